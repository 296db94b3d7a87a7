package filesystem

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/cyp0633/caldorafs/storage"
)

// descriptorName is the file holding a calendar's properties. A directory
// without it is not a calendar.
const descriptorName = "_calendar.yaml"

// checkSegment rejects names that could leave their directory or collide
// with temp files.
func checkSegment(kind, name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return storage.InvalidIdentifierError("invalid %s %q", kind, name)
	case strings.ContainsAny(name, "/\\\x00"):
		return storage.InvalidIdentifierError("%s %q contains a separator", kind, name)
	case strings.HasPrefix(name, "."):
		return storage.InvalidIdentifierError("%s %q starts with a dot", kind, name)
	case filepath.VolumeName(name) != "":
		return storage.InvalidIdentifierError("%s %q is absolute", kind, name)
	}
	return nil
}

// cleanCalendarPath turns a calendar path into its directory name. Calendar
// paths are case-insensitive and may not be an href prefix.
func cleanCalendarPath(p string) (string, error) {
	name := strings.Trim(p, "/")
	if err := checkSegment("calendar path", name); err != nil {
		return "", err
	}
	if storage.IsHrefPrefix(name) {
		return "", storage.InvalidIdentifierError("calendar path %q is reserved", name)
	}
	return strings.ToLower(name), nil
}

// cleanUID validates a UID for use as a file name. UIDs keep their case. A
// UID ending in the object extension would be ambiguous with its file name.
func cleanUID(uid string) (string, error) {
	if err := checkSegment("UID", uid); err != nil {
		return "", err
	}
	if strings.HasSuffix(strings.ToLower(uid), storage.ObjectExt) {
		return "", storage.InvalidIdentifierError("UID %q ends in %s", uid, storage.ObjectExt)
	}
	return uid, nil
}

// isOwnPrefix reports whether a cleaned calendar name equals the configured
// href prefix, which would hide the calendar behind it.
func (s *Store) isOwnPrefix(name string) bool {
	prefix := strings.Trim(s.hrefPrefix, "/")
	return prefix != "" && strings.EqualFold(prefix, name)
}

func (s *Store) calendarDir(name string) string {
	return filepath.Join(s.root, name)
}

func (s *Store) descriptorFile(name string) string {
	return filepath.Join(s.root, name, descriptorName)
}

func (s *Store) objectFile(name, uid string) string {
	return filepath.Join(s.root, name, storage.ObjectFileName(uid))
}

// objectHref is the protocol path of an object.
func (s *Store) objectHref(name, uid string) string {
	return path.Join("/", s.hrefPrefix, name, storage.ObjectFileName(uid))
}

// trimHrefPrefix removes the configured href prefix so the remaining path
// can be parsed like a bare one.
func (s *Store) trimHrefPrefix(href string) string {
	if s.hrefPrefix == "" {
		return href
	}
	clean := "/" + strings.TrimLeft(href, "/")
	prefix := "/" + strings.Trim(s.hrefPrefix, "/") + "/"
	if strings.HasPrefix(clean, prefix) {
		return strings.TrimPrefix(clean, prefix)
	}
	return href
}
