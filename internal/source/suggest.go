package source

import (
	"slices"
	"strings"

	"github.com/hbollon/go-edlib"
)

// minSimilarity is the Jaro-Winkler score below which no suggestion is made.
const minSimilarity = 0.75

// Contains reports whether name is one of the installed sources.
func Contains(sources []string, name string) bool {
	return slices.Contains(sources, name)
}

// Suggest returns the candidate closest to name, for "did you mean" hints.
func Suggest(name string, candidates []string) (string, bool) {
	if name == "" || len(candidates) == 0 {
		return "", false
	}
	lowered := make([]string, len(candidates))
	for i, c := range candidates {
		lowered[i] = strings.ToLower(c)
	}
	match, err := edlib.FuzzySearchThreshold(strings.ToLower(name), lowered, minSimilarity, edlib.JaroWinkler)
	if err != nil || match == "" {
		return "", false
	}
	for i, l := range lowered {
		if l == match {
			return candidates[i], true
		}
	}
	return "", false
}
