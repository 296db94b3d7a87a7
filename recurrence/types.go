package recurrence

import (
	"time"
)

// RecurrenceInfo contains all recurrence-related information for a component
type RecurrenceInfo struct {
	RRULE  string      // The RRULE string (without "RRULE:" prefix)
	RDATE  []time.Time // Additional recurrence dates
	EXDATE []time.Time // Exception dates (excluded occurrences)
	// Overridden lists the RECURRENCE-IDs of instances that are stored as
	// separate components. Those occurrences are skipped during expansion.
	Overridden []time.Time
}

// IsRecurring reports whether the component produces more than one occurrence.
func (r RecurrenceInfo) IsRecurring() bool {
	return r.RRULE != "" || len(r.RDATE) > 0
}

// Period is the time span an occurrence occupies. Start == End denotes an
// instantaneous occurrence.
type Period struct {
	Start time.Time
	End   time.Time
}

// Duration returns the length of the period.
func (p Period) Duration() time.Duration {
	return p.End.Sub(p.Start)
}

// Range is a half-open time window [Start, End). A zero bound is open.
type Range struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether p overlaps the range.
// A period with a length overlaps iff p.Start < r.End and p.End > r.Start.
// An instantaneous period overlaps iff r.Start <= p.Start < r.End.
func (r Range) Overlaps(p Period) bool {
	if !p.End.After(p.Start) {
		return (r.Start.IsZero() || !p.Start.Before(r.Start)) &&
			(r.End.IsZero() || p.Start.Before(r.End))
	}
	return (r.End.IsZero() || p.Start.Before(r.End)) &&
		(r.Start.IsZero() || p.End.After(r.Start))
}

// ExpansionOptions controls how recurrence expansion behaves
type ExpansionOptions struct {
	// MaxOccurrences is the number of occurrences a rule may produce before
	// the end of a range; needing more is ErrTooManyOccurrences (0 = unlimited).
	MaxOccurrences int
}

// DefaultExpansionOptions provides sensible defaults for expansion.
// A daily rule started a century ago still fits.
var DefaultExpansionOptions = ExpansionOptions{
	MaxOccurrences: 50000,
}
