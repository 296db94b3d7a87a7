package storage

import (
	"context"
	"iter"
	"time"

	"github.com/emersion/go-ical"
	"github.com/samber/mo"
)

// Storage is the contract the CalDAV protocol layer uses to reach persisted
// calendars and calendar objects. Please use the error types provided.
type Storage interface {
	// ListCalendars enumerates every calendar under the store root. A calendar
	// whose descriptor cannot be read is yielded as an error result and the
	// enumeration continues.
	ListCalendars(ctx context.Context) iter.Seq[mo.Result[*Calendar]]
	// GetCalendar finds a calendar by name or by an href that contains it.
	GetCalendar(ctx context.Context, name string) (*Calendar, error)
	// CreateCalendar creates a calendar collection. If the calendar already
	// exists, the existing one is returned instead of failing.
	CreateCalendar(ctx context.Context, calendar *Calendar) (*Calendar, error)
	// UpdateCalendar replaces the properties of an existing calendar.
	UpdateCalendar(ctx context.Context, calendar *Calendar) error
	// LastModified returns the newest modification time among the calendar's
	// objects, or Epoch if it has none.
	LastModified(ctx context.Context, calendar *Calendar) (time.Time, error)

	// SaveObject creates or replaces the object with the same UID.
	// The returned object carries the new ETag.
	SaveObject(ctx context.Context, calendar *Calendar, object *CalendarObject) (*CalendarObject, error)
	// GetObject finds a calendar object by UID.
	GetObject(ctx context.Context, calendar *Calendar, uid string) (*CalendarObject, error)
	// GetObjectByPath finds a calendar object by its href.
	GetObjectByPath(ctx context.Context, href string) (*CalendarObject, error)
	// ListObjects enumerates every object of a calendar lazily.
	ListObjects(ctx context.Context, calendar *Calendar) (iter.Seq[mo.Result[*CalendarObject]], error)
	// QueryObjects returns the objects matching q. An unsupported filter fails
	// the call before anything is yielded.
	QueryObjects(ctx context.Context, q Query) (iter.Seq[mo.Result[*CalendarObject]], error)
	// DeleteObject removes an object by href, file name or UID. Deleting an
	// absent object succeeds.
	DeleteObject(ctx context.Context, calendar *Calendar, path string) error
}

// Epoch is returned as the last-modified time of a calendar without objects.
var Epoch = time.Unix(0, 0).UTC()

// Calendar represents a CalDAV calendar collection.
type Calendar struct {
	// Path is the calendar's name and directory. It is assigned by the store
	// when the calendar is loaded and never persisted in the descriptor.
	// Example: "work"
	Path string
	// DisplayName is returned in displayname
	DisplayName string
	// Description is returned in calendar-description
	Description string
	// TimeZone is an IANA zone name, e.g. Asia/Shanghai. Floating date-times of
	// the calendar's objects are evaluated in it.
	TimeZone string
	// 6-character HEX string with # prefix
	Color string
	// SupportedComponents lists the component types this calendar accepts,
	// e.g. "VEVENT", "VTODO". Empty means all scheduling components.
	SupportedComponents []string
	// Created is set once when the calendar is created.
	Created time.Time
	// LastModified is filled on load from the objects' modification times.
	// It can serve as the source of a collection tag.
	LastModified time.Time
}

// Supports reports whether the calendar accepts objects of the given kind.
func (c *Calendar) Supports(kind ObjectKind) bool {
	if len(c.SupportedComponents) == 0 {
		return true
	}
	for _, comp := range c.SupportedComponents {
		if KindFromComponent(comp) == kind {
			return true
		}
	}
	return false
}

// Location returns the calendar's time zone, or UTC if it is unset or unknown.
func (c *Calendar) Location() *time.Location {
	if c == nil || c.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ObjectKind is the closed set of scheduling components a calendar object
// can be.
type ObjectKind int

const (
	KindUnknown ObjectKind = iota
	KindEvent
	KindToDo
	KindFreeBusy
	KindJournal
)

// String returns the iCalendar component name of the kind.
func (k ObjectKind) String() string {
	switch k {
	case KindEvent:
		return ical.CompEvent
	case KindToDo:
		return ical.CompToDo
	case KindFreeBusy:
		return ical.CompFreeBusy
	case KindJournal:
		return ical.CompJournal
	default:
		return "UNKNOWN"
	}
}

// KindFromComponent maps a component name to its kind. Names that are not
// scheduling components map to KindUnknown.
func KindFromComponent(name string) ObjectKind {
	switch name {
	case ical.CompEvent:
		return KindEvent
	case ical.CompToDo:
		return KindToDo
	case ical.CompFreeBusy:
		return KindFreeBusy
	case ical.CompJournal:
		return KindJournal
	default:
		return KindUnknown
	}
}

// CalendarObject represents an individual calendar resource like an event (VEVENT),
// task (VTODO), free-busy block (VFREEBUSY) or journal entry (VJOURNAL).
type CalendarObject struct {
	// Path is the href of this calendar object resource.
	// Example: "/work/event1.ics"
	Path string
	// UID is the iCalendar UID, the object's only key within its calendar.
	UID string
	// Kind tells which scheduling component Component is.
	Kind ObjectKind
	// ETag changes whenever the object's stored data changes.
	ETag string
	// LastModified is the modification time of the object's file.
	LastModified time.Time
	// Component stores the VEVENT, VTODO, etc. data using go-ical.
	Component *ical.Component
	// Overrides holds instances of a recurring component that carry a
	// RECURRENCE-ID and the same UID.
	Overrides []*ical.Component
}

// NewCalendarObject wraps a scheduling component. The UID is read from the
// component.
func NewCalendarObject(comp *ical.Component) (*CalendarObject, error) {
	if comp == nil {
		return nil, InvalidIdentifierError("nil component")
	}
	kind := KindFromComponent(comp.Name)
	if kind == KindUnknown {
		return nil, InvalidIdentifierError("%s is not a scheduling component", comp.Name)
	}
	uid, err := comp.Props.Text(ical.PropUID)
	if err != nil || uid == "" {
		return nil, InvalidIdentifierError("%s has no UID", comp.Name)
	}
	return &CalendarObject{UID: uid, Kind: kind, Component: comp}, nil
}

// Components returns the master component followed by its overrides.
func (o *CalendarObject) Components() []*ical.Component {
	comps := make([]*ical.Component, 0, 1+len(o.Overrides))
	if o.Component != nil {
		comps = append(comps, o.Component)
	}
	return append(comps, o.Overrides...)
}

// Query selects calendar objects with a filter.
type Query struct {
	// Calendar restricts the query to one calendar. Empty means every calendar.
	Calendar string
	// Filter is evaluated against every object. Nil matches everything.
	Filter *Filter
	// Limit caps the number of matching objects yielded. 0 means unlimited.
	Limit int
}
