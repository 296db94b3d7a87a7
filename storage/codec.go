package storage

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
)

const (
	productID = "-//Caldora//Go Calendar//EN"
	version   = "2.0"
)

// Codec converts calendars to and from their textual representation.
type Codec interface {
	Decode(r io.Reader) (*ical.Calendar, error)
	Encode(w io.Writer, cal *ical.Calendar) error
}

// ICalCodec is the iCalendar (RFC 5545) codec backed by go-ical.
type ICalCodec struct{}

func (ICalCodec) Decode(r io.Reader) (*ical.Calendar, error) {
	cal, err := ical.NewDecoder(r).Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode calendar: %w", err)
	}
	return cal, nil
}

func (ICalCodec) Encode(w io.Writer, cal *ical.Calendar) error {
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

// WrapObject builds the VCALENDAR that stores a single object: the master
// component and its overrides, nothing else.
func WrapObject(obj *CalendarObject) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, version)
	cal.Props.SetText(ical.PropProductID, productID)

	for _, comp := range obj.Components() {
		// Ensure DTSTAMP is present, on a copy so obj is left alone
		if comp.Props.Get(ical.PropDateTimeStamp) == nil {
			stamped := *comp
			stamped.Props = make(ical.Props, len(comp.Props)+1)
			for name, props := range comp.Props {
				stamped.Props[name] = props
			}
			stamped.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
			comp = &stamped
		}
		cal.Children = append(cal.Children, comp)
	}
	return cal
}

// UnwrapObject extracts the calendar object stored in cal: the first
// scheduling component without RECURRENCE-ID becomes the master, components
// with the same UID and a RECURRENCE-ID become overrides.
func UnwrapObject(cal *ical.Calendar) (*CalendarObject, error) {
	if cal == nil {
		return nil, CorruptDataError(nil, "empty calendar")
	}

	var master *ical.Component
	var rest []*ical.Component
	for _, child := range cal.Children {
		if KindFromComponent(child.Name) == KindUnknown {
			continue
		}
		if master == nil && child.Props.Get(propRecurrenceID) == nil {
			master = child
			continue
		}
		rest = append(rest, child)
	}
	if master == nil && len(rest) > 0 {
		// only overridden instances were stored
		master, rest = rest[0], rest[1:]
	}
	if master == nil {
		return nil, CorruptDataError(nil, "no scheduling component found in calendar")
	}

	obj, err := NewCalendarObject(master)
	if err != nil {
		return nil, CorruptDataError(err, "invalid %s", master.Name)
	}
	for _, comp := range rest {
		uid, _ := comp.Props.Text(ical.PropUID)
		if comp.Name == master.Name && uid == obj.UID {
			obj.Overrides = append(obj.Overrides, comp)
		}
	}
	return obj, nil
}

// ETag computes the entity tag of encoded object data.
func ETag(data []byte) string {
	hash := sha1.Sum(data)
	return `"` + hex.EncodeToString(hash[:]) + `"`
}
