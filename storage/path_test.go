package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseObjectHref(t *testing.T) {
	tests := []struct {
		name         string
		href         string
		wantCalendar string
		wantUID      string
		wantErr      bool
	}{
		{"bare", "work/abc.ics", "work", "abc", false},
		{"rooted", "/work/abc.ics", "work", "abc", false},
		{"caldav prefix", "/caldav/work/abc.ics", "work", "abc", false},
		{"calendars prefix", "/calendars/work/abc.ics", "work", "abc", false},
		{"calendar prefix upper-case", "/Calendar/work/abc.ics", "work", "abc", false},
		{"double slashes", "//caldav//work//abc.ics", "work", "abc", false},
		{"no extension", "/work/abc", "work", "abc", false},
		{"dotted UID", "/work/abc.def@example.com.ics", "work", "abc.def@example.com", false},
		{"prefix as calendar name", "/caldav/caldav/abc.ics", "caldav", "abc", false},
		{"calendar only", "/caldav/work/", "", "", true},
		{"too deep", "/a/b/c.ics", "", "", true},
		{"empty", "", "", "", true},
		{"only extension", "/work/.ics", "", "", true},
		{"backslash", `/work\abc.ics`, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calendar, uid, err := ParseObjectHref(tt.href)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidIdentifier)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantCalendar, calendar)
			assert.Equal(t, tt.wantUID, uid)
		})
	}
}

func TestParseCalendarHref(t *testing.T) {
	tests := []struct {
		name    string
		href    string
		want    string
		wantErr bool
	}{
		{"bare", "work", "work", false},
		{"trailing slash", "/work/", "work", false},
		{"prefixed", "/caldav/work/", "work", false},
		{"object href", "/calendars/work/abc.ics", "work", false},
		{"prefix only", "/caldav/", "", true},
		{"root", "/", "", true},
		{"backslash", `work\x`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCalendarHref(tt.href)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidIdentifier)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUIDFromFileName(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		want   string
		wantOK bool
	}{
		{"object", "abc.ics", "abc", true},
		{"round trip", ObjectFileName("x@y.z"), "x@y.z", true},
		{"descriptor", "_calendar.yaml", "", false},
		{"temp file", ".abc.ics-1234.tmp", "", false},
		{"hidden object", ".abc.ics", "", false},
		{"extension only", ".ics", "", false},
		{"other extension", "abc.ical", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := UIDFromFileName(tt.file)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUIDFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"abc", "abc", false},
		{"abc.ics", "abc", false},
		{"/caldav/work/abc.ics", "abc", false},
		{"/work/", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := UIDFromPath(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidIdentifier)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
