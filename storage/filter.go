package storage

import (
	"iter"
	"strings"
	"time"

	"github.com/cyp0633/caldorafs/recurrence"
	"github.com/emersion/go-ical"
	"github.com/samber/mo"
)

// Test values combining sibling constraints.
const (
	TestAllOf = "allof"
	TestAnyOf = "anyof"
)

// Match types of a text-match.
const (
	MatchEquals     = "equals"
	MatchContains   = "contains"
	MatchStartsWith = "starts-with"
	MatchEndsWith   = "ends-with"
)

// Collations of a text-match.
const (
	CollationOctet          = "i;octet"
	CollationASCIICasemap   = "i;ascii-casemap"
	CollationUnicodeCasemap = "i;unicode-casemap"
)

// TextMatch describes a <text‑match> constraint.
type TextMatch struct {
	Collation string // "i;unicode-casemap", etc. Empty compares octets.
	MatchType string // "equals", "contains", … Empty means contains.
	Negate    bool   // true if negate-condition="yes"
	Value     string // text to match
}

// ParamFilter describes a <param-filter> inside a prop-filter.
type ParamFilter struct {
	Name         string     // e.g. "LANGUAGE", "PARTSTAT"
	IsNotDefined bool       // <is-not-defined/>
	TextMatch    *TextMatch // optional
}

// PropFilter describes a <prop‑filter> inside a comp-filter.
type PropFilter struct {
	Name         string        // e.g. "SUMMARY", "UID"
	IsNotDefined bool          // <is-not-defined/>
	TextMatch    *TextMatch    // optional
	ParamFilters []ParamFilter // zero or more <param-filter>
	Test         string        // combines ParamFilters: "allof" (default) or "anyof"
}

// TimeRange describes a <time‑range> in a comp-filter. A nil bound is open.
type TimeRange struct {
	Start *time.Time
	End   *time.Time
}

// Filter is the one and only node type of a query: a comp-filter with its
// time-range, prop-filters and nested comp-filters.
//
// A root named VCALENDAR (or unnamed) selects objects through its children:
// an object matches if any positive child matches it and no is-not-defined
// child names its component. A root naming a scheduling component directly
// selects that component only.
type Filter struct {
	Component    string       // Name of component (e.g. "VCALENDAR", "VEVENT")
	IsNotDefined bool         // <is-not-defined/>
	TimeRange    *TimeRange   // optional <time-range>
	PropFilters  []PropFilter // zero or more <prop-filter>
	Children     []Filter     // nested <comp-filter>
	Test         string       // combines PropFilters: "allof" (default) or "anyof"

	// Location is the zone floating date-times are evaluated in. Nil means UTC.
	Location *time.Location
	// Recurrence expands recurring components for time ranges. Nil uses
	// recurrence.DefaultExpansionOptions.
	Recurrence *recurrence.Engine
}

var knownComponents = map[string]bool{
	ical.CompCalendar:         true,
	ical.CompEvent:            true,
	ical.CompToDo:             true,
	ical.CompJournal:          true,
	ical.CompFreeBusy:         true,
	ical.CompAlarm:            true,
	ical.CompTimezone:         true,
	ical.CompTimezoneStandard: true,
	ical.CompTimezoneDaylight: true,
}

// Validate checks the whole filter tree and reports the first construct the
// engine cannot evaluate.
func (f *Filter) Validate() error {
	if f == nil {
		return nil
	}
	if f.isRoot() {
		if f.TimeRange != nil {
			return UnsupportedFilterError("time-range on %s", ical.CompCalendar)
		}
		if len(f.PropFilters) > 0 {
			return UnsupportedFilterError("prop-filter on %s", ical.CompCalendar)
		}
		if f.IsNotDefined {
			return UnsupportedFilterError("is-not-defined on %s", ical.CompCalendar)
		}
		for i := range f.Children {
			child := &f.Children[i]
			if child.isRoot() || KindFromComponent(strings.ToUpper(child.Component)) == KindUnknown {
				return UnsupportedFilterError("component %q cannot be selected", child.Component)
			}
			if err := child.validateComponent(); err != nil {
				return err
			}
		}
		return nil
	}
	if KindFromComponent(strings.ToUpper(f.Component)) == KindUnknown {
		return UnsupportedFilterError("component %q cannot be selected", f.Component)
	}
	return f.validateComponent()
}

func (f *Filter) isRoot() bool {
	return f.Component == "" || strings.EqualFold(f.Component, ical.CompCalendar)
}

func (f *Filter) validateComponent() error {
	name := strings.ToUpper(f.Component)
	if !knownComponents[name] || name == ical.CompCalendar {
		return UnsupportedFilterError("unknown component %q", f.Component)
	}
	if err := validateTest(f.Test); err != nil {
		return err
	}
	if f.IsNotDefined && (f.TimeRange != nil || len(f.PropFilters) > 0 || len(f.Children) > 0) {
		return UnsupportedFilterError("is-not-defined on %s combined with other constraints", name)
	}
	if f.TimeRange != nil {
		if KindFromComponent(name) == KindUnknown {
			return UnsupportedFilterError("time-range on %s", name)
		}
		if err := f.TimeRange.validate(); err != nil {
			return err
		}
	}
	for i := range f.PropFilters {
		if err := f.PropFilters[i].validate(); err != nil {
			return err
		}
	}
	for i := range f.Children {
		if err := f.Children[i].validateComponent(); err != nil {
			return err
		}
	}
	return nil
}

func (tr *TimeRange) validate() error {
	if tr.Start == nil && tr.End == nil {
		return UnsupportedFilterError("time-range without start or end")
	}
	if tr.Start != nil && tr.End != nil && !tr.End.After(*tr.Start) {
		return UnsupportedFilterError("time-range end %s is not after start %s",
			tr.End.Format(time.RFC3339), tr.Start.Format(time.RFC3339))
	}
	return nil
}

func (pf *PropFilter) validate() error {
	if pf.Name == "" {
		return UnsupportedFilterError("prop-filter without name")
	}
	if err := validateTest(pf.Test); err != nil {
		return err
	}
	if pf.IsNotDefined && (pf.TextMatch != nil || len(pf.ParamFilters) > 0) {
		return UnsupportedFilterError("is-not-defined on %s combined with other constraints", pf.Name)
	}
	if pf.TextMatch != nil {
		if err := pf.TextMatch.validate(); err != nil {
			return err
		}
	}
	for _, param := range pf.ParamFilters {
		if param.Name == "" {
			return UnsupportedFilterError("param-filter without name")
		}
		if param.IsNotDefined && param.TextMatch != nil {
			return UnsupportedFilterError("is-not-defined on %s combined with text-match", param.Name)
		}
		if param.TextMatch != nil {
			if err := param.TextMatch.validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (tm *TextMatch) validate() error {
	switch strings.ToLower(tm.MatchType) {
	case "", MatchEquals, MatchContains, MatchStartsWith, MatchEndsWith:
	default:
		return UnsupportedFilterError("unsupported match type %q", tm.MatchType)
	}
	switch strings.ToLower(tm.Collation) {
	case "", CollationOctet, CollationASCIICasemap, CollationUnicodeCasemap:
	default:
		return UnsupportedFilterError("unsupported collation %q", tm.Collation)
	}
	return nil
}

func validateTest(test string) error {
	switch strings.ToLower(test) {
	case "", TestAllOf, TestAnyOf:
		return nil
	default:
		return UnsupportedFilterError("unsupported test %q", test)
	}
}

// Match reports whether obj satisfies the filter. A nil filter matches every
// object. An object with malformed dates yields a CorruptData error.
// Nested comp-filters use the root's Location and Recurrence.
func (f *Filter) Match(obj *CalendarObject) (bool, error) {
	if err := f.Validate(); err != nil {
		return false, err
	}
	return f.match(obj)
}

// match assumes a validated filter.
func (f *Filter) match(obj *CalendarObject) (bool, error) {
	if f == nil {
		return true, nil
	}
	if obj == nil || obj.Component == nil {
		return false, nil
	}
	env := f.env()
	if !f.isRoot() {
		return f.matchObject(obj, env)
	}

	selected := true
	positive := false
	for i := range f.Children {
		child := &f.Children[i]
		if child.IsNotDefined {
			if strings.EqualFold(child.Component, obj.Component.Name) {
				return false, nil
			}
			continue
		}
		if !positive {
			positive = true
			selected = false
		}
		if selected {
			continue
		}
		ok, err := child.matchObject(obj, env)
		if err != nil {
			return false, err
		}
		selected = ok
	}
	return selected, nil
}

// matchObject applies a comp-filter naming a scheduling component to an
// object, including its overridden instances for time ranges.
func (f *Filter) matchObject(obj *CalendarObject, env evalEnv) (bool, error) {
	if !strings.EqualFold(f.Component, obj.Component.Name) {
		return f.IsNotDefined, nil
	}
	if f.IsNotDefined {
		return false, nil
	}
	if f.TimeRange != nil {
		ok, err := matchTimeRange(f.TimeRange, obj, env)
		if err != nil || !ok {
			return false, err
		}
	}
	return f.matchConstraints(obj.Component, env)
}

// matchComponent applies a nested comp-filter to a component of the same name.
func (f *Filter) matchComponent(comp *ical.Component, env evalEnv) (bool, error) {
	if f.TimeRange != nil {
		ok, err := matchComponentTimeRange(f.TimeRange, comp, env)
		if err != nil || !ok {
			return false, err
		}
	}
	return f.matchConstraints(comp, env)
}

func (f *Filter) matchConstraints(comp *ical.Component, env evalEnv) (bool, error) {
	if len(f.PropFilters) > 0 {
		anyOf := strings.EqualFold(f.Test, TestAnyOf)
		matched := !anyOf
		for i := range f.PropFilters {
			ok := f.PropFilters[i].match(comp)
			if anyOf && ok {
				matched = true
				break
			}
			if !anyOf && !ok {
				matched = false
				break
			}
		}
		if !matched {
			return false, nil
		}
	}

	for i := range f.Children {
		ok, err := f.Children[i].matchChild(comp, env)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// matchChild checks a nested comp-filter against the sub-components of parent.
func (f *Filter) matchChild(parent *ical.Component, env evalEnv) (bool, error) {
	found := false
	for _, sub := range parent.Children {
		if !strings.EqualFold(sub.Name, f.Component) {
			continue
		}
		if f.IsNotDefined {
			return false, nil
		}
		found = true
		ok, err := f.matchComponent(sub, env)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	if f.IsNotDefined {
		return !found, nil
	}
	return false, nil
}

func (pf *PropFilter) match(comp *ical.Component) bool {
	props := comp.Props[strings.ToUpper(pf.Name)]
	if pf.IsNotDefined {
		return len(props) == 0
	}
	if len(props) == 0 {
		return false
	}
	if pf.TextMatch == nil && len(pf.ParamFilters) == 0 {
		return true
	}

	// any instance of a repeated property may satisfy the constraints
	for i := range props {
		prop := &props[i]
		if pf.TextMatch != nil && !pf.TextMatch.match(prop.Value) {
			continue
		}
		if pf.matchParams(prop) {
			return true
		}
	}
	return false
}

func (pf *PropFilter) matchParams(prop *ical.Prop) bool {
	if len(pf.ParamFilters) == 0 {
		return true
	}
	anyOf := strings.EqualFold(pf.Test, TestAnyOf)
	for _, param := range pf.ParamFilters {
		ok := param.match(prop)
		if anyOf && ok {
			return true
		}
		if !anyOf && !ok {
			return false
		}
	}
	return !anyOf
}

func (p *ParamFilter) match(prop *ical.Prop) bool {
	values := prop.Params[strings.ToUpper(p.Name)]
	if p.IsNotDefined {
		return len(values) == 0
	}
	if len(values) == 0 {
		return false
	}
	if p.TextMatch == nil {
		return true
	}
	for _, v := range values {
		if p.TextMatch.match(v) {
			return true
		}
	}
	return false
}

func (tm *TextMatch) match(value string) bool {
	needle := tm.Value
	switch strings.ToLower(tm.Collation) {
	case CollationASCIICasemap:
		value, needle = asciiLower(value), asciiLower(needle)
	case CollationUnicodeCasemap:
		value, needle = strings.ToLower(value), strings.ToLower(needle)
	}

	var ok bool
	switch strings.ToLower(tm.MatchType) {
	case MatchEquals:
		ok = value == needle
	case MatchStartsWith:
		ok = strings.HasPrefix(value, needle)
	case MatchEndsWith:
		ok = strings.HasSuffix(value, needle)
	default:
		ok = strings.Contains(value, needle)
	}
	return ok != tm.Negate
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Evaluate lazily filters objects. An invalid filter yields a single
// UnsupportedFilter error and nothing else. Recoverable errors in the input
// are passed through; an object that cannot be evaluated is reported as
// corrupt and skipped.
func (f *Filter) Evaluate(objects iter.Seq[mo.Result[*CalendarObject]]) iter.Seq[mo.Result[*CalendarObject]] {
	return func(yield func(mo.Result[*CalendarObject]) bool) {
		if err := f.Validate(); err != nil {
			yield(mo.Err[*CalendarObject](err))
			return
		}
		for res := range objects {
			obj, err := res.Get()
			if err != nil {
				if !yield(res) {
					return
				}
				continue
			}
			ok, err := f.match(obj)
			if err != nil {
				if !yield(mo.Err[*CalendarObject](err)) {
					return
				}
				continue
			}
			if ok && !yield(res) {
				return
			}
		}
	}
}
