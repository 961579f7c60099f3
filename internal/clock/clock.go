// Package clock supplies wall-clock time in the single civil timezone all
// snapshot timestamps are expressed in, independent of the host timezone.
package clock

import (
	"fmt"
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// CivilTime is one instant rendered in the configured civil timezone.
type CivilTime struct {
	t time.Time
}

// Date returns the zero-padded calendar date, YYYY-MM-DD.
func (c CivilTime) Date() string {
	return c.t.Format(dateLayout)
}

// Clock returns the zero-padded time of day, HH:MM:SS.
func (c CivilTime) Clock() string {
	return c.t.Format(timeLayout)
}

// Unix returns epoch seconds.
func (c CivilTime) Unix() int64 {
	return c.t.Unix()
}

// SecondOfDay returns the number of seconds elapsed since civil midnight.
func (c CivilTime) SecondOfDay() int {
	return c.t.Hour()*3600 + c.t.Minute()*60 + c.t.Second()
}

// Time exposes the underlying instant, already shifted into the civil zone.
func (c CivilTime) Time() time.Time {
	return c.t
}

// Source yields the current civil time.
type Source interface {
	Now() CivilTime
	Location() *time.Location
}

// System reads the host clock and shifts it into a fixed named timezone.
type System struct {
	loc *time.Location
}

// NewSystem resolves the named timezone, e.g. "Asia/Yangon".
func NewSystem(timezone string) (*System, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return &System{loc: loc}, nil
}

// Now returns the current instant in the fixed zone.
func (s *System) Now() CivilTime {
	return CivilTime{t: time.Now().In(s.loc)}
}

// Location returns the fixed zone.
func (s *System) Location() *time.Location {
	return s.loc
}

// At wraps an arbitrary instant in the given location. Intended for tests and
// for replaying stored timestamps.
func At(t time.Time, loc *time.Location) CivilTime {
	return CivilTime{t: t.In(loc)}
}

// SecondOfDayString converts a HH:MM:SS trigger string to seconds since
// midnight. The string must already be validated as a clock time.
func SecondOfDayString(hhmmss string) (int, error) {
	parsed, err := time.Parse(timeLayout, hhmmss)
	if err != nil {
		return 0, fmt.Errorf("parse clock time %q: %w", hhmmss, err)
	}
	return parsed.Hour()*3600 + parsed.Minute()*60 + parsed.Second(), nil
}

var _ Source = (*System)(nil)
