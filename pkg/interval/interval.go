// Package interval models how often a title is checked for new chapters.
//
// An Interval is either Never or Recurring(pattern) where pattern is a cron
// expression. The zero value is Never.
package interval

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// NeverLiteral is the textual form of Never, as stored and accepted.
const NeverLiteral = "never"

// ErrInvalid is returned for expressions that are neither "never" nor a
// parseable cron pattern.
var ErrInvalid = errors.New("invalid interval")

// parser accepts 5-field patterns, an optional leading seconds field and
// descriptors such as @hourly or @every 30m.
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Interval is a tagged variant: Never, or Recurring with a cron pattern.
type Interval struct {
	pattern  string
	schedule cron.Schedule
}

// Never returns the interval that disables recurring checks.
func Never() Interval {
	return Interval{}
}

// Recurring returns an interval for the given cron pattern.
func Recurring(pattern string) (Interval, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || strings.EqualFold(pattern, NeverLiteral) {
		return Interval{}, fmt.Errorf("%w: empty pattern", ErrInvalid)
	}
	sched, err := parser.Parse(pattern)
	if err != nil {
		return Interval{}, fmt.Errorf("%w: %q: %v", ErrInvalid, pattern, err)
	}
	return Interval{pattern: pattern, schedule: sched}, nil
}

// MustRecurring is Recurring for patterns known to be valid. Panics otherwise.
func MustRecurring(pattern string) Interval {
	iv, err := Recurring(pattern)
	if err != nil {
		panic(err)
	}
	return iv
}

// Parse reads "never" or a cron pattern.
func Parse(s string) (Interval, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, NeverLiteral) {
		return Never(), nil
	}
	return Recurring(s)
}

// IsNever reports whether the interval disables recurring checks.
func (i Interval) IsNever() bool {
	return i.pattern == ""
}

// Pattern returns the cron pattern, or "" for Never.
func (i Interval) Pattern() string {
	return i.pattern
}

// Next returns the first activation strictly after t.
// Returns the zero time for Never.
func (i Interval) Next(t time.Time) time.Time {
	if i.IsNever() {
		return time.Time{}
	}
	return i.schedule.Next(t)
}

// String returns "never" or the cron pattern.
func (i Interval) String() string {
	if i.IsNever() {
		return NeverLiteral
	}
	return i.pattern
}

// Equal reports whether both intervals have the same textual form.
func (i Interval) Equal(other Interval) bool {
	return i.pattern == other.pattern
}

// Value implements driver.Valuer.
func (i Interval) Value() (driver.Value, error) {
	return i.String(), nil
}

// Scan implements sql.Scanner.
func (i *Interval) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		*i = Never()
		return nil
	default:
		return fmt.Errorf("scan interval: unsupported type %T", src)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (i Interval) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Interval) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
