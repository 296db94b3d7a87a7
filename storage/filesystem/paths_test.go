package filesystem

import (
	"path/filepath"
	"testing"

	"github.com/cyp0633/caldorafs/storage"
	"github.com/stretchr/testify/assert"
)

func TestCleanCalendarPath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"simple", "work", "work", false},
		{"lower-cased", "Work", "work", false},
		{"surrounding slashes", "/work/", "work", false},
		{"empty", "", "", true},
		{"only slashes", "//", "", true},
		{"dot", ".", "", true},
		{"dot dot", "..", "", true},
		{"traversal", "../work", "", true},
		{"nested", "a/b", "", true},
		{"backslash", `a\b`, "", true},
		{"nul", "a\x00b", "", true},
		{"hidden", ".work", "", true},
		{"dots inside", "a..b", "a..b", false},
		{"href prefix", "caldav", "", true},
		{"href prefix upper-case", "/Calendars/", "", true},
		{"href prefix inside name", "caldav-work", "caldav-work", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cleanCalendarPath(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, storage.ErrInvalidIdentifier)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanUID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"uuid", "4f1c2a7e-9d1b-4a57-8f2e-1b0c3d4e5f60", false},
		{"case kept", "ABC@example.com", false},
		{"empty", "", true},
		{"dot dot", "..", true},
		{"separator", "a/b", true},
		{"backslash", `a\b`, true},
		{"hidden", ".abc", true},
		{"object extension", "report.ics", true},
		{"object extension upper-case", "report.ICS", true},
		{"extension inside", "report.ics.bak", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cleanUID(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, storage.ErrInvalidIdentifier)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.input, got)
		})
	}
}

func TestStore_Paths(t *testing.T) {
	s := &Store{root: "/srv/cal"}
	assert.Equal(t, filepath.Join("/srv/cal", "work"), s.calendarDir("work"))
	assert.Equal(t, filepath.Join("/srv/cal", "work", "_calendar.yaml"), s.descriptorFile("work"))
	assert.Equal(t, filepath.Join("/srv/cal", "work", "abc.ics"), s.objectFile("work", "abc"))
	assert.Equal(t, "/work/abc.ics", s.objectHref("work", "abc"))

	s.hrefPrefix = "dav"
	assert.Equal(t, "/dav/work/abc.ics", s.objectHref("work", "abc"))
	assert.Equal(t, "work/abc.ics", s.trimHrefPrefix("/dav/work/abc.ics"))
	assert.Equal(t, "/caldav/work/abc.ics", s.trimHrefPrefix("/caldav/work/abc.ics"))
}
