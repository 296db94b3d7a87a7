package main

import (
	"log/slog"
	"testing"
	"time"

	"github.com/cyp0633/caldorafs/internal/config"
	"github.com/cyp0633/caldorafs/storage"
	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func runMock(t *testing.T, store *storage.MockStorage, stdin string, args ...string) result {
	t.Helper()
	cmd := newRootCmdWith(func(*config.Config, *slog.Logger) (storage.Storage, error) {
		return store, nil
	})
	return execute(cmd, t.TempDir(), stdin, args...)
}

func TestCalstore_ListCalendarsReportsEntries(t *testing.T) {
	work := storage.NewMockCalendar("work", "Work", "")
	home := storage.NewMockCalendar("home", "Home", "")

	tests := []struct {
		name    string
		results []mo.Result[*storage.Calendar]
		want    []string
		skipped bool
		wantErr error
	}{
		{
			name:    "all readable",
			results: storage.Results(work, home),
			want:    []string{"work\tWork\tall", "home\tHome\tall"},
		},
		{
			name: "corrupt descriptor is skipped",
			results: []mo.Result[*storage.Calendar]{
				mo.Ok(work),
				mo.Err[*storage.Calendar](storage.CorruptDataError(nil, "calendar broken")),
				mo.Ok(home),
			},
			want:    []string{"work\tWork\tall", "home\tHome\tall"},
			skipped: true,
		},
		{
			name: "I/O failure stops the listing",
			results: []mo.Result[*storage.Calendar]{
				mo.Ok(work),
				mo.Err[*storage.Calendar](storage.IOFailureError(nil, "disk gone")),
				mo.Ok(home),
			},
			want:    []string{"work\tWork\tall"},
			wantErr: storage.ErrIOFailure,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &storage.MockStorage{}
			store.On("ListCalendars", mock.Anything).Return(tt.results)

			res := runMock(t, store, "", "calendars", "list")
			if tt.wantErr != nil {
				assert.ErrorIs(t, res.err, tt.wantErr)
			} else {
				require.NoError(t, res.err)
			}
			assert.Equal(t, tt.want, lines(res.stdout))
			assert.Equal(t, tt.skipped, len(res.stderr) > 0)
			store.AssertExpectations(t)
		})
	}
}

func TestCalstore_QueryPassesRequest(t *testing.T) {
	standup := storage.NewMockEvent("standup", "Standup", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC))
	standup.Path = "/work/standup.ics"
	standup.ETag = `"abc"`

	store := &storage.MockStorage{}
	store.On("QueryObjects", mock.Anything, mock.MatchedBy(func(q storage.Query) bool {
		return q.Calendar == "work" && q.Limit == 1 &&
			q.Filter != nil && len(q.Filter.Children) == 1 && q.Filter.Children[0].Component == "VEVENT"
	})).Return(storage.Results(standup), nil)

	res := runMock(t, store, standupFilter, "query", "-", "--calendar", "work", "--limit", "1")
	require.NoError(t, res.err)
	assert.Equal(t, []string{"/work/standup.ics\tVEVENT\tstandup\t\"abc\""}, lines(res.stdout))
	store.AssertExpectations(t)
}

func TestCalstore_PutAssignsMissingUIDs(t *testing.T) {
	work := storage.NewMockCalendar("work", "Work", "")

	store := &storage.MockStorage{}
	store.On("GetCalendar", mock.Anything, "work").Return(work, nil)
	store.On("SaveObject", mock.Anything, work, mock.MatchedBy(func(obj *storage.CalendarObject) bool {
		return obj.UID == "standup"
	})).Return(&storage.CalendarObject{Path: "/work/standup.ics", ETag: `"1"`}, nil).Once()
	store.On("SaveObject", mock.Anything, work, mock.MatchedBy(func(obj *storage.CalendarObject) bool {
		_, err := uuid.Parse(obj.UID)
		return err == nil
	})).Return(&storage.CalendarObject{Path: "/work/generated.ics", ETag: `"2"`}, nil).Once()

	res := runMock(t, store, twoEvents, "objects", "put", "work", "-")
	require.NoError(t, res.err)
	assert.Equal(t, []string{"/work/standup.ics\t\"1\"", "/work/generated.ics\t\"2\""}, lines(res.stdout))
	store.AssertExpectations(t)
}

func TestCalstore_DeletePassesHref(t *testing.T) {
	work := storage.NewMockCalendar("work", "Work", "")

	store := &storage.MockStorage{}
	store.On("GetCalendar", mock.Anything, "work").Return(work, nil)
	store.On("DeleteObject", mock.Anything, work, "/caldav/work/a.ics").Return(nil)
	store.On("DeleteObject", mock.Anything, work, "b").Return(storage.IOFailureError(nil, "read-only"))

	require.NoError(t, runMock(t, store, "", "objects", "delete", "work", "/caldav/work/a.ics").err)
	assert.ErrorIs(t, runMock(t, store, "", "objects", "delete", "work", "b").err, storage.ErrIOFailure)
	store.AssertExpectations(t)
}
