package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// runFunc executes the tool in dir and returns its output streams.
type runFunc func(ctx context.Context, dir, name string, args ...string) (stdout, stderr []byte, err error)

func execRun(ctx context.Context, dir, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

var _ Provider = (*Mangal)(nil)

// Mangal is a Provider backed by the mangal CLI.
type Mangal struct {
	cfg    Config
	run    runFunc
	logger *slog.Logger
}

// NewMangal creates a mangal client.
func NewMangal(cfg Config, logger *slog.Logger) *Mangal {
	if cfg.Binary == "" {
		cfg.Binary = "mangal"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mangal{cfg: cfg, run: execRun, logger: logger}
}

// inlineOutput is the JSON document printed by `mangal inline -j`.
type inlineOutput struct {
	Result []struct {
		Source string `json:"source"`
		Mangal struct {
			Name     string `json:"name"`
			URL      string `json:"url"`
			Index    int    `json:"index"`
			Chapters []struct {
				Name   string `json:"name"`
				URL    string `json:"url"`
				Index  int    `json:"index"` // 1-based
				Volume string `json:"volume"`
			} `json:"chapters"`
		} `json:"mangal"`
	} `json:"result"`
}

func (m *Mangal) invoke(ctx context.Context, dir string, args ...string) ([]byte, error) {
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}

	m.logger.Debug("running source tool", "binary", m.cfg.Binary, "args", args, "dir", dir)
	stdout, stderr, err := m.run(ctx, dir, m.cfg.Binary, args...)
	errText := strings.TrimSpace(string(stderr))
	if err != nil || errText != "" {
		return nil, &ToolError{Args: args, Stderr: errText, Err: err}
	}
	return stdout, nil
}

// Sources returns the installed source identifiers.
func (m *Mangal) Sources(ctx context.Context) ([]string, error) {
	out, err := m.invoke(ctx, "", "sources", "list", "-r")
	if err != nil {
		return nil, err
	}
	var sources []string
	for _, line := range strings.Split(string(out), "\n") {
		if s := strings.TrimSpace(line); s != "" {
			sources = append(sources, s)
		}
	}
	return sources, nil
}

// Search returns every manga the source reports for query, with AniList
// details where mangal finds them.
func (m *Mangal) Search(ctx context.Context, source, query string) ([]Manga, error) {
	out, err := m.invoke(ctx, "", "inline", "--source", source, "--include-anilist-manga", "--query", query, "-j")
	if err != nil {
		return nil, err
	}
	return decodeInline(out)
}

// Chapters lists the chapters of the manga whose name exactly matches title.
func (m *Mangal) Chapters(ctx context.Context, source, title string) ([]RemoteChapter, error) {
	out, err := m.invoke(ctx, "",
		"inline", "--source", source, "--query", title, "--manga", "exact", "--chapters", "all", "-j")
	if err != nil {
		return nil, err
	}
	manga, err := decodeInline(out)
	if err != nil {
		return nil, err
	}
	if len(manga) != 1 {
		m.logger.Info("no unambiguous match", "source", source, "title", title, "results", len(manga))
		return nil, nil
	}
	return manga[0].Chapters, nil
}

// Download fetches the chapter at the 0-based index into dir and returns the
// absolute path of the written archive.
func (m *Mangal) Download(ctx context.Context, source, title string, index int, dir string) (string, error) {
	out, err := m.invoke(ctx, dir,
		"inline", "--source", source, "--query", title, "--manga", "exact",
		"--chapters", strconv.Itoa(index), "-d")
	if err != nil {
		return "", err
	}

	path := lastLine(string(out))
	if path == "" {
		return "", fmt.Errorf("download %s #%d: %w", title, index, ErrNoOutput)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	return path, nil
}

// BindAnilist makes mangal use the AniList entry id for title from now on.
func (m *Mangal) BindAnilist(ctx context.Context, title, anilistID string) error {
	_, err := m.invoke(ctx, "", "inline", "anilist", "set", "--name", title, "--id", anilistID)
	return err
}

// UpdateMetadata refreshes the metadata mangal wrote for the archives in
// dir.
func (m *Mangal) UpdateMetadata(ctx context.Context, dir string) error {
	_, err := m.invoke(ctx, "", "inline", "anilist", "update", "--path", dir)
	return err
}

func decodeInline(out []byte) ([]Manga, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, nil
	}
	var doc inlineOutput
	if err := json.Unmarshal(out, &doc); err != nil {
		return nil, fmt.Errorf("decode mangal output: %w", err)
	}

	manga := make([]Manga, 0, len(doc.Result))
	for _, r := range doc.Result {
		mg := Manga{Source: r.Source, Name: r.Mangal.Name, URL: r.Mangal.URL}
		for _, c := range r.Mangal.Chapters {
			if c.Index < 1 {
				continue
			}
			mg.Chapters = append(mg.Chapters, RemoteChapter{
				Index:  c.Index - 1,
				Name:   c.Name,
				URL:    c.URL,
				Volume: c.Volume,
			})
		}
		manga = append(manga, mg)
	}
	return manga, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
