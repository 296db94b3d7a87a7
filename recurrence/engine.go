package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// ErrTooManyOccurrences is returned when a rule reaches the expansion limit
// before the end of the range, so whether it overlaps cannot be decided.
var ErrTooManyOccurrences = errors.New("too many occurrences")

// Engine provides unified recurrence expansion and validation logic
type Engine struct {
	opts ExpansionOptions
}

// NewEngine creates a new recurrence engine instance with default options
func NewEngine() *Engine {
	return NewEngineWithOptions(DefaultExpansionOptions)
}

// NewEngineWithOptions creates a recurrence engine with custom limits
func NewEngineWithOptions(opts ExpansionOptions) *Engine {
	return &Engine{opts: opts}
}

// HasOccurrenceInRange checks if a component with the given master period has
// any occurrence overlapping the range. Occurrences are generated lazily and
// the expansion stops at the end of the range.
func (e *Engine) HasOccurrenceInRange(master Period, recurrence RecurrenceInfo, r Range) (bool, error) {
	// Fast path: check master occurrence first (if no RRULE, this is the only occurrence)
	if r.Overlaps(master) && !e.isExcluded(master.Start, recurrence) {
		return true, nil
	}

	duration := master.Duration()

	// Check RRULE occurrences if present
	if recurrence.RRULE != "" {
		hasRRuleOccurrence, err := e.hasRRuleOccurrenceInRange(master.Start, duration, recurrence, r)
		if err != nil {
			return false, fmt.Errorf("failed to check RRULE occurrences: %w", err)
		}
		if hasRRuleOccurrence {
			return true, nil
		}
	}

	// Check RDATE occurrences
	for _, rdate := range recurrence.RDATE {
		if r.Overlaps(Period{Start: rdate, End: rdate.Add(duration)}) && !e.isExcluded(rdate, recurrence) {
			return true, nil
		}
	}

	return false, nil
}

func (e *Engine) hasRRuleOccurrenceInRange(masterStart time.Time, duration time.Duration, recurrence RecurrenceInfo, r Range) (bool, error) {
	found := false
	err := e.walkRRule(masterStart, recurrence.RRULE, r, func(occurrence time.Time) bool {
		if e.isExcluded(occurrence, recurrence) {
			return true
		}
		if r.Overlaps(Period{Start: occurrence, End: occurrence.Add(duration)}) {
			found = true
			return false
		}
		return true
	})
	return found, err
}

// walkRRule calls fn for each occurrence of the rule until fn returns false,
// the rule is exhausted or an occurrence starts at or after the end of the
// range. Producing MaxOccurrences occurrences first is an error.
func (e *Engine) walkRRule(masterStart time.Time, rruleStr string, r Range, fn func(time.Time) bool) error {
	rule, err := parseRRule(masterStart, rruleStr)
	if err != nil {
		return err
	}

	next := rule.Iterator()
	for i := 0; e.opts.MaxOccurrences == 0 || i < e.opts.MaxOccurrences; i++ {
		occurrence, ok := next()
		if !ok {
			return nil
		}
		if !r.End.IsZero() && !occurrence.Before(r.End) {
			return nil
		}
		if !fn(occurrence) {
			return nil
		}
	}
	return fmt.Errorf("%w: RRULE '%s' exceeds %d occurrences", ErrTooManyOccurrences, rruleStr, e.opts.MaxOccurrences)
}

func parseRRule(masterStart time.Time, rruleStr string) (*rrule.RRule, error) {
	opt, err := rrule.StrToROptionInLocation(rruleStr, masterStart.Location())
	if err != nil {
		return nil, fmt.Errorf("failed to parse RRULE '%s': %w", rruleStr, err)
	}
	opt.Dtstart = masterStart
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("failed to build RRULE '%s': %w", rruleStr, err)
	}
	return rule, nil
}

// isExcluded checks if a given time is in the EXDATE list or replaced by an override
func (e *Engine) isExcluded(t time.Time, recurrence RecurrenceInfo) bool {
	return matchesAny(t, recurrence.EXDATE) || matchesAny(t, recurrence.Overridden)
}

func matchesAny(t time.Time, dates []time.Time) bool {
	for _, d := range dates {
		// Handle both exact timestamp matches and date-only matches
		if t.Equal(d) {
			return true
		}

		// For date-only exceptions (stored as midnight UTC), check if the occurrence
		// falls on the same date when normalized to midnight UTC
		if isMidnight(d) && d.Location() == time.UTC {
			occurrenceAtMidnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			if occurrenceAtMidnight.Equal(d) {
				return true
			}
		}
	}
	return false
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0
}
