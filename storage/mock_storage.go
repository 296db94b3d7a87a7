package storage

import (
	"context"
	"io"
	"iter"
	"slices"
	"time"

	"github.com/emersion/go-ical"
	"github.com/samber/mo"
	"github.com/stretchr/testify/mock"
)

// MockStorage implements the Storage interface for testing
type MockStorage struct {
	mock.Mock
}

// ListCalendars implements the Storage interface
func (m *MockStorage) ListCalendars(ctx context.Context) iter.Seq[mo.Result[*Calendar]] {
	args := m.Called(ctx)
	return slices.Values(args.Get(0).([]mo.Result[*Calendar]))
}

func (m *MockStorage) GetCalendar(ctx context.Context, name string) (*Calendar, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Calendar), args.Error(1)
}

func (m *MockStorage) CreateCalendar(ctx context.Context, calendar *Calendar) (*Calendar, error) {
	args := m.Called(ctx, calendar)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Calendar), args.Error(1)
}

func (m *MockStorage) UpdateCalendar(ctx context.Context, calendar *Calendar) error {
	args := m.Called(ctx, calendar)
	return args.Error(0)
}

func (m *MockStorage) LastModified(ctx context.Context, calendar *Calendar) (time.Time, error) {
	args := m.Called(ctx, calendar)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockStorage) SaveObject(ctx context.Context, calendar *Calendar, object *CalendarObject) (*CalendarObject, error) {
	args := m.Called(ctx, calendar, object)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CalendarObject), args.Error(1)
}

func (m *MockStorage) GetObject(ctx context.Context, calendar *Calendar, uid string) (*CalendarObject, error) {
	args := m.Called(ctx, calendar, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CalendarObject), args.Error(1)
}

func (m *MockStorage) GetObjectByPath(ctx context.Context, href string) (*CalendarObject, error) {
	args := m.Called(ctx, href)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CalendarObject), args.Error(1)
}

// ListObjects implements the Storage interface. The first return value is a
// []mo.Result[*CalendarObject].
func (m *MockStorage) ListObjects(ctx context.Context, calendar *Calendar) (iter.Seq[mo.Result[*CalendarObject]], error) {
	args := m.Called(ctx, calendar)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return slices.Values(args.Get(0).([]mo.Result[*CalendarObject])), args.Error(1)
}

// QueryObjects implements the Storage interface. The first return value is a
// []mo.Result[*CalendarObject].
func (m *MockStorage) QueryObjects(ctx context.Context, q Query) (iter.Seq[mo.Result[*CalendarObject]], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return slices.Values(args.Get(0).([]mo.Result[*CalendarObject])), args.Error(1)
}

func (m *MockStorage) DeleteObject(ctx context.Context, calendar *Calendar, path string) error {
	args := m.Called(ctx, calendar, path)
	return args.Error(0)
}

// MockCodec implements the Codec interface for testing
type MockCodec struct {
	mock.Mock
}

func (m *MockCodec) Decode(r io.Reader) (*ical.Calendar, error) {
	args := m.Called(r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ical.Calendar), args.Error(1)
}

func (m *MockCodec) Encode(w io.Writer, cal *ical.Calendar) error {
	args := m.Called(w, cal)
	return args.Error(0)
}

// --- Helper methods for creating test data ---

// NewMockCalendar creates a test Calendar with basic properties
func NewMockCalendar(path, name, description string) *Calendar {
	return &Calendar{
		Path:        path,
		DisplayName: name,
		Description: description,
		Color:       "#FF9500",
		Created:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// NewMockEvent creates a test VEVENT calendar object
func NewMockEvent(uid, summary string, start, end time.Time) *CalendarObject {
	event := ical.NewComponent(ical.CompEvent)
	event.Props.SetText(ical.PropUID, uid)
	event.Props.SetText(ical.PropSummary, summary)
	event.Props.SetDateTime(ical.PropDateTimeStamp, start)
	event.Props.SetDateTime(ical.PropDateTimeStart, start)
	event.Props.SetDateTime(ical.PropDateTimeEnd, end)

	return &CalendarObject{UID: uid, Kind: KindEvent, Component: event}
}

// NewMockTodo creates a test VTODO calendar object
func NewMockTodo(uid, summary string, due time.Time) *CalendarObject {
	todo := ical.NewComponent(ical.CompToDo)
	todo.Props.SetText(ical.PropUID, uid)
	todo.Props.SetText(ical.PropSummary, summary)
	todo.Props.SetDateTime(ical.PropDateTimeStamp, due)
	todo.Props.SetDateTime(ical.PropDue, due)

	return &CalendarObject{UID: uid, Kind: KindToDo, Component: todo}
}

// NewMockJournal creates a test VJOURNAL calendar object
func NewMockJournal(uid, summary string, start time.Time) *CalendarObject {
	journal := ical.NewComponent(ical.CompJournal)
	journal.Props.SetText(ical.PropUID, uid)
	journal.Props.SetText(ical.PropSummary, summary)
	journal.Props.SetDateTime(ical.PropDateTimeStamp, start)
	journal.Props.SetDateTime(ical.PropDateTimeStart, start)

	return &CalendarObject{UID: uid, Kind: KindJournal, Component: journal}
}

// NewMockFreeBusy creates a test VFREEBUSY calendar object
func NewMockFreeBusy(uid string, start, end time.Time) *CalendarObject {
	fb := ical.NewComponent(ical.CompFreeBusy)
	fb.Props.SetText(ical.PropUID, uid)
	fb.Props.SetDateTime(ical.PropDateTimeStamp, start)
	fb.Props.SetDateTime(ical.PropDateTimeStart, start)
	fb.Props.SetDateTime(ical.PropDateTimeEnd, end)

	return &CalendarObject{UID: uid, Kind: KindFreeBusy, Component: fb}
}

// Results wraps values as successful sequence items, for mocked enumerations.
func Results[T any](values ...T) []mo.Result[T] {
	out := make([]mo.Result[T], len(values))
	for i, v := range values {
		out[i] = mo.Ok(v)
	}
	return out
}
