package storage

import (
	"bytes"
	"io"

	"github.com/emersion/go-ical"
)

// EncodeObject serializes obj, and nothing else, as an iCalendar document.
func EncodeObject(codec Codec, obj *CalendarObject) ([]byte, error) {
	var buf bytes.Buffer
	if err := codec.Encode(&buf, WrapObject(obj)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeObject reads an object file. Any failure is CorruptData.
func DecodeObject(codec Codec, r io.Reader) (*CalendarObject, error) {
	cal, err := codec.Decode(r)
	if err != nil {
		return nil, CorruptDataError(err, "cannot decode object")
	}
	return UnwrapObject(cal)
}

// SplitCalendar groups the scheduling components of an arbitrary calendar
// into objects by UID, keeping their order of first appearance. Components
// without a UID are returned separately so the caller can assign one.
func SplitCalendar(cal *ical.Calendar) (objects []*CalendarObject, missingUID []*ical.Component) {
	byUID := map[string][]*ical.Component{}
	var order []string
	for _, child := range cal.Children {
		if KindFromComponent(child.Name) == KindUnknown {
			continue
		}
		uid, _ := child.Props.Text(ical.PropUID)
		if uid == "" {
			missingUID = append(missingUID, child)
			continue
		}
		if _, ok := byUID[uid]; !ok {
			order = append(order, uid)
		}
		byUID[uid] = append(byUID[uid], child)
	}

	for _, uid := range order {
		sub := ical.NewCalendar()
		sub.Children = byUID[uid]
		obj, err := UnwrapObject(sub)
		if err != nil {
			continue
		}
		objects = append(objects, obj)
	}
	return objects, missingUID
}
