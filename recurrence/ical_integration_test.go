package recurrence

import (
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func component(name string, props map[string]string) *ical.Component {
	comp := ical.NewComponent(name)
	for k, v := range props {
		comp.Props.Set(&ical.Prop{Name: k, Params: ical.Params{}, Value: v})
	}
	return comp
}

func TestExtractRecurrenceInfoFromComponent(t *testing.T) {
	comp := &ical.Component{
		Name:  "VEVENT",
		Props: make(ical.Props),
	}
	info, err := ExtractRecurrenceInfoFromComponent(comp, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "", info.RRULE)
	assert.Empty(t, info.RDATE)
	assert.Empty(t, info.EXDATE)
	assert.False(t, info.IsRecurring())

	comp = component(ical.CompEvent, map[string]string{
		ical.PropRecurrenceRule:  "FREQ=WEEKLY;BYDAY=MO",
		ical.PropRecurrenceDates: "20240110T090000Z,20240112T090000Z",
		ical.PropExceptionDates:  "20240115",
	})
	info, err = ExtractRecurrenceInfoFromComponent(comp, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO", info.RRULE)
	require.Len(t, info.RDATE, 2)
	assert.True(t, info.RDATE[0].Equal(jan(10, 9)))
	assert.True(t, info.RDATE[1].Equal(jan(12, 9)))
	require.Len(t, info.EXDATE, 1)
	assert.True(t, info.EXDATE[0].Equal(jan(15, 0)))
	assert.Equal(t, time.UTC, info.EXDATE[0].Location())
	assert.True(t, info.IsRecurring())

	bad := component(ical.CompEvent, map[string]string{ical.PropExceptionDates: "yesterday"})
	_, err = ExtractRecurrenceInfoFromComponent(bad, time.UTC)
	assert.Error(t, err)
}

func TestRecurrenceID(t *testing.T) {
	_, ok, err := RecurrenceID(component(ical.CompEvent, nil), time.UTC)
	require.NoError(t, err)
	assert.False(t, ok)

	rid, ok, err := RecurrenceID(component(ical.CompEvent, map[string]string{"RECURRENCE-ID": "20240103T090000Z"}), time.UTC)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, rid.Equal(jan(3, 9)))
}

func TestComponentPeriods(t *testing.T) {
	tests := []struct {
		name       string
		comp       *ical.Component
		want       []Period
		wantAlways bool
	}{
		{
			"event with end",
			component(ical.CompEvent, map[string]string{"DTSTART": "20240101T090000Z", "DTEND": "20240101T100000Z"}),
			[]Period{{Start: jan(1, 9), End: jan(1, 10)}}, false,
		},
		{
			"event with duration",
			component(ical.CompEvent, map[string]string{"DTSTART": "20240101T090000Z", "DURATION": "PT2H"}),
			[]Period{{Start: jan(1, 9), End: jan(1, 11)}}, false,
		},
		{
			"all-day event",
			component(ical.CompEvent, map[string]string{"DTSTART": "20240101"}),
			[]Period{{Start: jan(1, 0), End: jan(2, 0)}}, false,
		},
		{
			"instant event",
			component(ical.CompEvent, map[string]string{"DTSTART": "20240101T090000Z"}),
			[]Period{{Start: jan(1, 9), End: jan(1, 9)}}, false,
		},
		{
			"event without start",
			component(ical.CompEvent, nil),
			nil, false,
		},
		{
			"todo with start and due",
			component(ical.CompToDo, map[string]string{"DTSTART": "20240101T090000Z", "DUE": "20240101T170000Z"}),
			[]Period{{Start: jan(1, 9), End: jan(1, 17)}}, false,
		},
		{
			"todo with due",
			component(ical.CompToDo, map[string]string{"DUE": "20240101T170000Z"}),
			[]Period{{Start: jan(1, 17), End: jan(1, 17)}}, false,
		},
		{
			"todo created and completed",
			component(ical.CompToDo, map[string]string{"CREATED": "20240101T090000Z", "COMPLETED": "20240102T090000Z"}),
			[]Period{{Start: jan(1, 9), End: jan(2, 9)}}, false,
		},
		{
			"todo without dates",
			component(ical.CompToDo, nil),
			nil, true,
		},
		{
			"journal day",
			component(ical.CompJournal, map[string]string{"DTSTART": "20240105"}),
			[]Period{{Start: jan(5, 0), End: jan(6, 0)}}, false,
		},
		{
			"free-busy periods",
			component(ical.CompFreeBusy, map[string]string{"FREEBUSY": "20240101T090000Z/20240101T100000Z,20240101T140000Z/PT1H"}),
			[]Period{{Start: jan(1, 9), End: jan(1, 10)}, {Start: jan(1, 14), End: jan(1, 15)}}, false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, always, err := ComponentPeriods(tt.comp, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAlways, always)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.True(t, tt.want[i].Start.Equal(got[i].Start), "start %d: %s", i, got[i].Start)
				assert.True(t, tt.want[i].End.Equal(got[i].End), "end %d: %s", i, got[i].End)
			}
		})
	}

	_, _, err := ComponentPeriods(component(ical.CompAlarm, nil), time.UTC)
	assert.Error(t, err)

	_, _, err = ComponentPeriods(component(ical.CompEvent, map[string]string{"DTSTART": "tomorrow"}), time.UTC)
	assert.Error(t, err)
}

func TestPropTime_FloatingInLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	prop := &ical.Prop{Name: ical.PropDateTimeStart, Params: ical.Params{}, Value: "20240101T090000"}

	got, allDay, err := PropTime(prop, tokyo)
	require.NoError(t, err)
	assert.False(t, allDay)
	assert.True(t, got.Equal(jan(1, 0)))

	// the caller's property is not modified
	date := &ical.Prop{Name: ical.PropDateTimeStart, Params: ical.Params{}, Value: "20240101"}
	_, allDay, err = PropTime(date, tokyo)
	require.NoError(t, err)
	assert.True(t, allDay)
	assert.Empty(t, date.Params.Get("VALUE"))
}
