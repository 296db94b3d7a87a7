package storage

import (
	"strings"
)

// ObjectExt is the file extension of stored calendar objects.
const ObjectExt = ".ics"

// protocol segments that may prefix a calendar name in an href
var hrefPrefixes = map[string]bool{
	"calendars": true,
	"calendar":  true,
	"caldav":    true,
}

// ObjectFileName returns the file name an object with the given UID is stored under.
func ObjectFileName(uid string) string {
	return uid + ObjectExt
}

// UIDFromFileName reverses ObjectFileName. ok is false for names that are not
// object files.
func UIDFromFileName(name string) (uid string, ok bool) {
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ObjectExt) {
		return "", false
	}
	uid = strings.TrimSuffix(name, ObjectExt)
	if uid == "" {
		return "", false
	}
	return uid, true
}

// IsHrefPrefix reports whether name is one of the protocol prefixes an href
// may carry before the calendar name. Such names cannot name a calendar.
func IsHrefPrefix(name string) bool {
	return hrefPrefixes[strings.ToLower(name)]
}

// hrefSegments splits an href and drops empty segments and one protocol
// prefix before the calendar name.
func hrefSegments(href string) []string {
	var segments []string
	prefixed := false
	for _, p := range strings.Split(href, "/") {
		if p == "" {
			continue
		}
		if len(segments) == 0 && !prefixed && hrefPrefixes[strings.ToLower(p)] {
			prefixed = true
			continue
		}
		segments = append(segments, p)
	}
	return segments
}

// ParseCalendarHref extracts the calendar name from a bare name or an href
// such as "/caldav/work/". Trailing object segments are ignored.
func ParseCalendarHref(href string) (string, error) {
	if strings.ContainsRune(href, '\\') {
		return "", InvalidIdentifierError("invalid calendar href %q", href)
	}
	segments := hrefSegments(href)
	if len(segments) == 0 {
		return "", InvalidIdentifierError("no calendar in href %q", href)
	}
	return segments[0], nil
}

// ParseObjectHref splits an object href such as "/caldav/work/abc.ics" into
// the calendar name and the object UID.
func ParseObjectHref(href string) (calendar, uid string, err error) {
	if strings.ContainsRune(href, '\\') {
		return "", "", InvalidIdentifierError("invalid object href %q", href)
	}
	segments := hrefSegments(href)
	if len(segments) != 2 {
		return "", "", InvalidIdentifierError("invalid object href %q", href)
	}
	calendar = segments[0]
	uid = strings.TrimSuffix(segments[1], ObjectExt)
	if uid == "" {
		return "", "", InvalidIdentifierError("no UID in href %q", href)
	}
	return calendar, uid, nil
}

// UIDFromPath accepts an href, a file name or a bare UID and returns the UID.
func UIDFromPath(path string) (string, error) {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	uid := strings.TrimSuffix(path, ObjectExt)
	if uid == "" {
		return "", InvalidIdentifierError("no UID in path")
	}
	return uid, nil
}
