package recurrence

import (
	"errors"
	"time"

	"github.com/example/lesson-scheduler/internal/scheduler"
)

// DefaultMaxOccurrences bounds a single expansion to roughly one school year
// of daily lessons.
const DefaultMaxOccurrences = 366

// Frequency represents supported recurrence intervals.
type Frequency int

const (
	// FrequencyUnspecified indicates the rule frequency is not set.
	FrequencyUnspecified Frequency = iota
	// FrequencyDaily generates occurrences for each day within the range.
	FrequencyDaily
	// FrequencyWeekly generates occurrences for the selected weekdays.
	FrequencyWeekly
)

// Rule describes the weekly template of a class.
type Rule struct {
	ClassID   string
	Frequency Frequency
	Weekdays  []time.Weekday
	StartsOn  scheduler.Date
	EndsOn    *scheduler.Date
}

// Template is the wall-clock slot every occurrence is booked into.
type Template struct {
	Start scheduler.TimeOfDay
	End   scheduler.TimeOfDay
}

// GenerateOptions defines optional range bounds for occurrence generation.
type GenerateOptions struct {
	RangeStart *scheduler.Date
	RangeEnd   *scheduler.Date
}

// Occurrence represents a generated lesson slot of a class.
type Occurrence struct {
	ClassID string
	Date    scheduler.Date
	Start   scheduler.TimeOfDay
	End     scheduler.TimeOfDay
}

// Engine expands class templates into dated occurrences.
type Engine struct {
	maxOccurrences int
}

// NewEngine constructs an Engine. A non-positive limit falls back to
// DefaultMaxOccurrences.
func NewEngine(maxOccurrences int) *Engine {
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultMaxOccurrences
	}
	return &Engine{maxOccurrences: maxOccurrences}
}

var (
	// ErrInvalidFrequency indicates the recurrence frequency is not supported.
	ErrInvalidFrequency = errors.New("recurrence: invalid frequency")
	// ErrInvalidWindow indicates the generation window is unbounded.
	ErrInvalidWindow = errors.New("recurrence: generation window requires an end bound")
	// ErrInvalidDuration indicates the template slot is empty or inverted.
	ErrInvalidDuration = errors.New("recurrence: lesson duration must be positive")
	// ErrTooManyOccurrences indicates the window would produce more occurrences than allowed.
	ErrTooManyOccurrences = errors.New("recurrence: too many occurrences")
)

// GenerateOccurrences produces the class occurrences within the window.
//
// The window runs from the later of StartsOn and RangeStart to the earlier of
// EndsOn and RangeEnd, both inclusive. Weekly rules keep only the selected
// weekdays; daily rules filter by weekdays only when some are given.
// Occurrences are returned in chronological order.
func (e *Engine) GenerateOccurrences(rule Rule, template Template, opts GenerateOptions) ([]Occurrence, error) {
	slot := scheduler.Interval{Start: template.Start, End: template.End}
	if !slot.Valid() || !template.Start.Valid() || template.End > scheduler.MinutesPerDay {
		return nil, ErrInvalidDuration
	}

	var upper scheduler.Date
	hasUpper := false
	if rule.EndsOn != nil && !rule.EndsOn.IsZero() {
		upper = *rule.EndsOn
		hasUpper = true
	}
	if opts.RangeEnd != nil && !opts.RangeEnd.IsZero() {
		if !hasUpper || opts.RangeEnd.Before(upper) {
			upper = *opts.RangeEnd
		}
		hasUpper = true
	}
	if !hasUpper {
		return nil, ErrInvalidWindow
	}

	lower := rule.StartsOn
	if opts.RangeStart != nil && opts.RangeStart.After(lower) {
		lower = *opts.RangeStart
	}
	if lower.IsZero() {
		return nil, ErrInvalidWindow
	}
	if lower.After(upper) {
		return nil, nil
	}

	weekdaySet := make(map[time.Weekday]struct{}, len(rule.Weekdays))
	for _, day := range rule.Weekdays {
		weekdaySet[day] = struct{}{}
	}

	occurrences := make([]Occurrence, 0)
	for current := lower; !current.After(upper); current = current.AddDays(1) {
		include, err := shouldInclude(rule.Frequency, weekdaySet, current.Weekday())
		if err != nil {
			return nil, err
		}
		if !include {
			continue
		}
		if len(occurrences) == e.limit() {
			return nil, ErrTooManyOccurrences
		}
		occurrences = append(occurrences, Occurrence{
			ClassID: rule.ClassID,
			Date:    current,
			Start:   template.Start,
			End:     template.End,
		})
	}

	return occurrences, nil
}

// Dates extracts the occurrence dates in order.
func Dates(occurrences []Occurrence) []scheduler.Date {
	dates := make([]scheduler.Date, 0, len(occurrences))
	for _, occ := range occurrences {
		dates = append(dates, occ.Date)
	}
	return dates
}

func (e *Engine) limit() int {
	if e == nil || e.maxOccurrences <= 0 {
		return DefaultMaxOccurrences
	}
	return e.maxOccurrences
}

func shouldInclude(freq Frequency, weekdaySet map[time.Weekday]struct{}, day time.Weekday) (bool, error) {
	switch freq {
	case FrequencyDaily:
		if len(weekdaySet) == 0 {
			return true, nil
		}
		_, ok := weekdaySet[day]
		return ok, nil
	case FrequencyWeekly:
		if len(weekdaySet) == 0 {
			return false, nil
		}
		_, ok := weekdaySet[day]
		return ok, nil
	case FrequencyUnspecified:
		fallthrough
	default:
		return false, ErrInvalidFrequency
	}
}
