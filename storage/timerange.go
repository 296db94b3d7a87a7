package storage

import (
	"time"

	"github.com/cyp0633/caldorafs/recurrence"
	"github.com/emersion/go-ical"
)

const propRecurrenceID = "RECURRENCE-ID"

var defaultEngine = recurrence.NewEngine()

// evalEnv carries what the root filter fixes for the whole tree.
type evalEnv struct {
	loc    *time.Location
	engine *recurrence.Engine
}

func (f *Filter) env() evalEnv {
	env := evalEnv{loc: f.Location, engine: f.Recurrence}
	if env.loc == nil {
		env.loc = time.UTC
	}
	if env.engine == nil {
		env.engine = defaultEngine
	}
	return env
}

func (tr *TimeRange) toRange() recurrence.Range {
	var r recurrence.Range
	if tr.Start != nil {
		r.Start = *tr.Start
	}
	if tr.End != nil {
		r.End = *tr.End
	}
	return r
}

// matchTimeRange reports whether any instance of obj overlaps the range: the
// master's expanded occurrences minus EXDATEs and overridden instances, or
// one of the overrides themselves.
func matchTimeRange(tr *TimeRange, obj *CalendarObject, env evalEnv) (bool, error) {
	r := tr.toRange()

	info, err := recurrence.ExtractRecurrenceInfoFromComponent(obj.Component, env.loc)
	if err != nil {
		return false, CorruptDataError(err, "object %s", obj.UID)
	}
	for _, override := range obj.Overrides {
		rid, ok, err := recurrence.RecurrenceID(override, env.loc)
		if err != nil {
			return false, CorruptDataError(err, "object %s", obj.UID)
		}
		if ok {
			info.Overridden = append(info.Overridden, rid)
		}
	}

	ok, err := componentOverlaps(obj.Component, info, r, env)
	if err != nil {
		return false, CorruptDataError(err, "object %s", obj.UID)
	}
	if ok {
		return true, nil
	}

	for _, override := range obj.Overrides {
		ok, err := componentOverlaps(override, recurrence.RecurrenceInfo{}, r, env)
		if err != nil {
			return false, CorruptDataError(err, "object %s", obj.UID)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// matchComponentTimeRange applies a time range to a nested component, which
// has no overrides of its own.
func matchComponentTimeRange(tr *TimeRange, comp *ical.Component, env evalEnv) (bool, error) {
	info, err := recurrence.ExtractRecurrenceInfoFromComponent(comp, env.loc)
	if err != nil {
		return false, CorruptDataError(err, "%s", comp.Name)
	}
	ok, err := componentOverlaps(comp, info, tr.toRange(), env)
	if err != nil {
		return false, CorruptDataError(err, "%s", comp.Name)
	}
	return ok, nil
}

func componentOverlaps(comp *ical.Component, info recurrence.RecurrenceInfo, r recurrence.Range, env evalEnv) (bool, error) {
	periods, always, err := recurrence.ComponentPeriods(comp, env.loc)
	if err != nil {
		return false, err
	}
	if always {
		return true, nil
	}
	for _, p := range periods {
		if !info.IsRecurring() && len(info.Overridden) == 0 {
			if r.Overlaps(p) {
				return true, nil
			}
			continue
		}
		ok, err := env.engine.HasOccurrenceInRange(p, info, r)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
