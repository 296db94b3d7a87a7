/*
Package storage defines the persistence contract of a CalDAV server: calendars,
the scheduling objects they contain, the comp-filter tree used by
calendar-query reports and the typed errors every backend returns.

# Objects

A CalendarObject is one VEVENT, VTODO, VFREEBUSY or VJOURNAL keyed by its UID,
together with the overridden instances (RECURRENCE-ID) that share the UID.
Everything else in the iCalendar stream, such as VTIMEZONE, is not kept.

# Enumeration

Enumerations return iter.Seq[mo.Result[T]]. A failing entry is yielded as an
error result and the sequence continues, so one corrupt file never hides the
rest of a calendar:

	seq, err := store.ListObjects(ctx, cal)
	if err != nil {
		return err
	}
	for res := range seq {
		obj, err := res.Get()
		if err != nil {
			log.Printf("skipping: %v", err)
			continue
		}
		fmt.Println(obj.UID)
	}

# Errors

Every error returned by a backend is a *Error whose Type is one of not_found,
invalid_identifier, corrupt_data, unsupported_filter or io_failure. Compare with
errors.Is(err, storage.ErrNotFound) and friends.

# Filters

Filter is a comp-filter tree. Validate rejects constructs the engine cannot
evaluate; Match and Evaluate never silently ignore a constraint.

	f := &storage.Filter{
		Component: "VCALENDAR",
		Children: []storage.Filter{{
			Component: "VEVENT",
			TimeRange: &storage.TimeRange{Start: &start, End: &end},
		}},
	}
*/
package storage
