package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

const (
	dateFormat = "20060102"

	propRecurrenceID = "RECURRENCE-ID"
	paramValue       = "VALUE"
)

// farFuture stands in for an open end, e.g. a VTODO that was created but
// never completed.
var farFuture = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// ExtractRecurrenceInfoFromComponent extracts recurrence information from an iCal component
func ExtractRecurrenceInfoFromComponent(comp *ical.Component, loc *time.Location) (RecurrenceInfo, error) {
	info := RecurrenceInfo{}

	// Extract RRULE
	if rruleProp := comp.Props.Get(ical.PropRecurrenceRule); rruleProp != nil && rruleProp.Value != "" {
		info.RRULE = rruleProp.Value
	}

	// Extract RDATE and EXDATE, which may repeat and hold comma-separated lists
	for _, prop := range comp.Props[ical.PropRecurrenceDates] {
		dates, err := parseDateList(&prop, loc)
		if err != nil {
			return info, fmt.Errorf("invalid RDATE: %w", err)
		}
		info.RDATE = append(info.RDATE, dates...)
	}
	for _, prop := range comp.Props[ical.PropExceptionDates] {
		dates, err := parseDateList(&prop, loc)
		if err != nil {
			return info, fmt.Errorf("invalid EXDATE: %w", err)
		}
		info.EXDATE = append(info.EXDATE, dates...)
	}

	return info, nil
}

// RecurrenceID returns the RECURRENCE-ID of an overridden instance.
func RecurrenceID(comp *ical.Component, loc *time.Location) (time.Time, bool, error) {
	prop := comp.Props.Get(propRecurrenceID)
	if prop == nil || prop.Value == "" {
		return time.Time{}, false, nil
	}
	t, _, err := PropTime(prop, loc)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid RECURRENCE-ID: %w", err)
	}
	return t, true, nil
}

// ComponentPeriods computes the periods a component occupies, ignoring
// recurrence. always is true for components that overlap every range
// (a VTODO without any date). A component with no usable date yields no
// periods and never overlaps.
func ComponentPeriods(comp *ical.Component, loc *time.Location) (periods []Period, always bool, err error) {
	switch comp.Name {
	case ical.CompEvent:
		p, ok, err := eventPeriod(comp, loc)
		if err != nil || !ok {
			return nil, false, err
		}
		return []Period{p}, false, nil
	case ical.CompToDo:
		return todoPeriods(comp, loc)
	case ical.CompJournal:
		start, allDay, ok, err := propDateTime(comp, ical.PropDateTimeStart, loc)
		if err != nil || !ok {
			return nil, false, err
		}
		if allDay {
			return []Period{{Start: start, End: start.AddDate(0, 0, 1)}}, false, nil
		}
		return []Period{{Start: start, End: start}}, false, nil
	case ical.CompFreeBusy:
		periods, err := freeBusyPeriods(comp, loc)
		return periods, false, err
	default:
		return nil, false, fmt.Errorf("%s has no time range", comp.Name)
	}
}

func eventPeriod(comp *ical.Component, loc *time.Location) (Period, bool, error) {
	start, allDay, ok, err := propDateTime(comp, ical.PropDateTimeStart, loc)
	if err != nil || !ok {
		return Period{}, false, err
	}

	end, _, hasEnd, err := propDateTime(comp, ical.PropDateTimeEnd, loc)
	if err != nil {
		return Period{}, false, err
	}
	switch {
	case hasEnd:
		// an all-day event whose DTEND equals DTSTART still covers that day
		if allDay && !end.After(start) {
			end = start.AddDate(0, 0, 1)
		}
	case comp.Props.Get(ical.PropDuration) != nil:
		d, err := comp.Props.Get(ical.PropDuration).Duration()
		if err != nil {
			return Period{}, false, fmt.Errorf("invalid DURATION: %w", err)
		}
		end = start.Add(d)
	case allDay:
		end = start.AddDate(0, 0, 1)
	default:
		end = start
	}
	return Period{Start: start, End: end}, true, nil
}

func todoPeriods(comp *ical.Component, loc *time.Location) ([]Period, bool, error) {
	start, _, hasStart, err := propDateTime(comp, ical.PropDateTimeStart, loc)
	if err != nil {
		return nil, false, err
	}
	due, _, hasDue, err := propDateTime(comp, ical.PropDue, loc)
	if err != nil {
		return nil, false, err
	}

	if hasStart {
		if durProp := comp.Props.Get(ical.PropDuration); durProp != nil {
			d, err := durProp.Duration()
			if err != nil {
				return nil, false, fmt.Errorf("invalid DURATION: %w", err)
			}
			return []Period{{Start: start, End: start.Add(d)}}, false, nil
		}
		if hasDue && due.After(start) {
			return []Period{{Start: start, End: due}}, false, nil
		}
		return []Period{{Start: start, End: start}}, false, nil
	}
	if hasDue {
		return []Period{{Start: due, End: due}}, false, nil
	}

	completed, _, hasCompleted, err := propDateTime(comp, ical.PropCompleted, loc)
	if err != nil {
		return nil, false, err
	}
	created, _, hasCreated, err := propDateTime(comp, ical.PropCreated, loc)
	if err != nil {
		return nil, false, err
	}
	switch {
	case hasCreated && hasCompleted:
		return []Period{{Start: created, End: completed}}, false, nil
	case hasCompleted:
		return []Period{{Start: completed, End: completed}}, false, nil
	case hasCreated:
		return []Period{{Start: created, End: farFuture}}, false, nil
	}
	return nil, true, nil
}

func freeBusyPeriods(comp *ical.Component, loc *time.Location) ([]Period, error) {
	start, _, hasStart, err := propDateTime(comp, ical.PropDateTimeStart, loc)
	if err != nil {
		return nil, err
	}
	end, _, hasEnd, err := propDateTime(comp, ical.PropDateTimeEnd, loc)
	if err != nil {
		return nil, err
	}
	if hasStart && hasEnd {
		return []Period{{Start: start, End: end}}, nil
	}

	var periods []Period
	for _, prop := range comp.Props[ical.PropFreeBusy] {
		for _, value := range strings.Split(prop.Value, ",") {
			p, err := parsePeriod(strings.TrimSpace(value), loc)
			if err != nil {
				return nil, fmt.Errorf("invalid FREEBUSY: %w", err)
			}
			periods = append(periods, p)
		}
	}
	return periods, nil
}

// parsePeriod parses an RFC 5545 PERIOD value: "start/end" or "start/duration".
func parsePeriod(value string, loc *time.Location) (Period, error) {
	startStr, rest, ok := strings.Cut(value, "/")
	if !ok {
		return Period{}, fmt.Errorf("malformed period %q", value)
	}
	start, _, err := PropTime(&ical.Prop{Name: ical.PropDateTimeStart, Params: ical.Params{}, Value: startStr}, loc)
	if err != nil {
		return Period{}, err
	}
	if strings.HasPrefix(rest, "P") || strings.HasPrefix(rest, "+P") || strings.HasPrefix(rest, "-P") {
		d, err := (&ical.Prop{Name: ical.PropDuration, Params: ical.Params{}, Value: rest}).Duration()
		if err != nil {
			return Period{}, err
		}
		return Period{Start: start, End: start.Add(d)}, nil
	}
	end, _, err := PropTime(&ical.Prop{Name: ical.PropDateTimeEnd, Params: ical.Params{}, Value: rest}, loc)
	if err != nil {
		return Period{}, err
	}
	return Period{Start: start, End: end}, nil
}

// propDateTime reads a date or date-time property. ok is false if the
// property is absent.
func propDateTime(comp *ical.Component, name string, loc *time.Location) (t time.Time, allDay, ok bool, err error) {
	prop := comp.Props.Get(name)
	if prop == nil || prop.Value == "" {
		return time.Time{}, false, false, nil
	}
	t, allDay, err = PropTime(prop, loc)
	if err != nil {
		return time.Time{}, false, false, fmt.Errorf("invalid %s: %w", name, err)
	}
	return t, allDay, true, nil
}

// PropTime parses a DATE or DATE-TIME property value. Floating date-times and
// dates are interpreted in loc. allDay reports a DATE value.
func PropTime(prop *ical.Prop, loc *time.Location) (t time.Time, allDay bool, err error) {
	if loc == nil {
		loc = time.UTC
	}
	p := *prop
	// RECURRENCE-ID, RDATE and EXDATE share the DTSTART value rules
	p.Name = ical.PropDateTimeStart
	allDay = strings.EqualFold(p.Params.Get(paramValue), "DATE") || len(p.Value) == len(dateFormat)
	if allDay && p.Params.Get(paramValue) == "" {
		p.Params = make(ical.Params, len(prop.Params)+1)
		for k, v := range prop.Params {
			p.Params[k] = v
		}
		p.Params.Set(paramValue, "DATE")
	}
	t, err = p.DateTime(loc)
	return t, allDay, err
}

// parseDateList parses RDATE/EXDATE values, which hold comma-separated dates.
// Date-only values are stored as midnight UTC so that they match occurrences
// by day. PERIOD values contribute their start.
func parseDateList(prop *ical.Prop, loc *time.Location) ([]time.Time, error) {
	var dates []time.Time
	for _, value := range strings.Split(prop.Value, ",") {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		value, _, _ = strings.Cut(value, "/")
		p := ical.Prop{Name: ical.PropDateTimeStart, Params: prop.Params, Value: value}
		if p.Params == nil {
			p.Params = ical.Params{}
		}
		if strings.EqualFold(p.Params.Get(paramValue), "PERIOD") {
			p.Params = ical.Params{}
			if tzid := prop.Params.Get(ical.PropTimezoneID); tzid != "" {
				p.Params.Set(ical.PropTimezoneID, tzid)
			}
		}
		t, allDay, err := PropTime(&p, loc)
		if err != nil {
			return nil, err
		}
		if allDay {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
		dates = append(dates, t)
	}
	return dates, nil
}
