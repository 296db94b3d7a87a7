package filesystem

import (
	"context"
	"errors"
	"io/fs"
	"iter"
	"os"
	"strings"
	"time"

	"github.com/cyp0633/caldorafs/storage"
	"github.com/samber/mo"
	"gopkg.in/yaml.v3"
)

// descriptor is the document stored in _calendar.yaml.
type descriptor struct {
	Calendar *calendarEntity `yaml:"calendar"`
}

type calendarEntity struct {
	DisplayName         string    `yaml:"display_name,omitempty"`
	Description         string    `yaml:"description,omitempty"`
	TimeZone            string    `yaml:"timezone,omitempty"`
	Color               string    `yaml:"color,omitempty"`
	SupportedComponents []string  `yaml:"supported_components,omitempty"`
	Created             time.Time `yaml:"created"`
}

func entityFromCalendar(cal *storage.Calendar) *calendarEntity {
	return &calendarEntity{
		DisplayName:         cal.DisplayName,
		Description:         cal.Description,
		TimeZone:            cal.TimeZone,
		Color:               cal.Color,
		SupportedComponents: cal.SupportedComponents,
		Created:             cal.Created.UTC(),
	}
}

func (e *calendarEntity) calendar(name string) *storage.Calendar {
	return &storage.Calendar{
		Path:                name,
		DisplayName:         e.DisplayName,
		Description:         e.Description,
		TimeZone:            e.TimeZone,
		Color:               e.Color,
		SupportedComponents: e.SupportedComponents,
		Created:             e.Created,
	}
}

// normalizeComponents upper-cases the supported component names and rejects
// anything that is not a scheduling component.
func normalizeComponents(comps []string) ([]string, error) {
	if len(comps) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(comps))
	for _, c := range comps {
		name := strings.ToUpper(strings.TrimSpace(c))
		if storage.KindFromComponent(name) == storage.KindUnknown {
			return nil, storage.InvalidIdentifierError("unsupported calendar component %q", c)
		}
		out = append(out, name)
	}
	return out, nil
}

func (s *Store) encodeDescriptor(cal *storage.Calendar) ([]byte, error) {
	data, err := yaml.Marshal(descriptor{Calendar: entityFromCalendar(cal)})
	if err != nil {
		return nil, storage.IOFailureError(err, "cannot encode calendar %s", cal.Path)
	}
	return data, nil
}

// readCalendar decodes the descriptor of a cleaned calendar name.
func (s *Store) readCalendar(name string) (*storage.Calendar, error) {
	data, err := os.ReadFile(s.descriptorFile(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.NotFoundError("calendar %s not found", name)
		}
		return nil, storage.IOFailureError(err, "cannot read calendar %s", name)
	}

	var doc descriptor
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, storage.CorruptDataError(err, "cannot decode calendar %s", name)
	}
	if doc.Calendar == nil {
		return nil, storage.CorruptDataError(nil, "descriptor of %s holds no calendar", name)
	}
	return doc.Calendar.calendar(name), nil
}

// loadCalendar reads a calendar and fills its last-modified time.
func (s *Store) loadCalendar(p string) (*storage.Calendar, error) {
	name, err := cleanCalendarPath(p)
	if err != nil {
		return nil, err
	}
	cal, err := s.readCalendar(name)
	if err != nil {
		return nil, err
	}
	cal.LastModified, err = s.lastModified(name)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("calendar loaded", "calendar", name)
	return cal, nil
}

// createCalendar publishes the descriptor unless one exists. The caller
// that loses a race, or comes late, gets the existing calendar back.
func (s *Store) createCalendar(calendar *storage.Calendar) (*storage.Calendar, error) {
	if calendar == nil {
		return nil, storage.InvalidIdentifierError("nil calendar")
	}
	name, err := cleanCalendarPath(calendar.Path)
	if err != nil {
		return nil, err
	}
	if s.isOwnPrefix(name) {
		return nil, storage.InvalidIdentifierError("calendar path %q is the href prefix", name)
	}
	comps, err := normalizeComponents(calendar.SupportedComponents)
	if err != nil {
		return nil, err
	}

	cal := *calendar
	cal.Path = name
	cal.SupportedComponents = comps
	if cal.Created.IsZero() {
		cal.Created = s.now()
	}

	if err := os.MkdirAll(s.calendarDir(name), dirPerm); err != nil {
		return nil, storage.IOFailureError(err, "cannot create calendar directory %s", name)
	}
	data, err := s.encodeDescriptor(&cal)
	if err != nil {
		return nil, err
	}
	created, err := createFileExclusive(s.descriptorFile(name), data, filePerm)
	if err != nil {
		return nil, storage.IOFailureError(err, "cannot write calendar %s", name)
	}
	if !created {
		s.logger.Info("calendar already exists", "calendar", name)
	} else {
		s.logger.Info("calendar created", "calendar", name)
	}
	return s.loadCalendar(name)
}

// updateCalendar replaces the properties of an existing calendar. Created is
// kept from the stored descriptor when the caller leaves it zero.
func (s *Store) updateCalendar(calendar *storage.Calendar) error {
	if calendar == nil {
		return storage.InvalidIdentifierError("nil calendar")
	}
	name, err := cleanCalendarPath(calendar.Path)
	if err != nil {
		return err
	}
	comps, err := normalizeComponents(calendar.SupportedComponents)
	if err != nil {
		return err
	}
	existing, err := s.readCalendar(name)
	if err != nil {
		return err
	}

	cal := *calendar
	cal.Path = name
	cal.SupportedComponents = comps
	if cal.Created.IsZero() {
		cal.Created = existing.Created
	}
	data, err := s.encodeDescriptor(&cal)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.descriptorFile(name), data, filePerm); err != nil {
		return storage.IOFailureError(err, "cannot write calendar %s", name)
	}
	s.logger.Info("calendar updated", "calendar", name)
	return nil
}

// calendars enumerates the calendar directories under the root. Directories
// without a descriptor are not calendars and are skipped silently; broken
// descriptors are reported and the enumeration continues.
func (s *Store) calendars(ctx context.Context) iter.Seq[mo.Result[*storage.Calendar]] {
	return func(yield func(mo.Result[*storage.Calendar]) bool) {
		entries, err := os.ReadDir(s.root)
		if err != nil {
			yield(mo.Err[*storage.Calendar](storage.IOFailureError(err, "cannot list calendars")))
			return
		}

		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				yield(mo.Err[*storage.Calendar](storage.IOFailureError(err, "list calendars")))
				return
			}
			if !entry.IsDir() {
				continue
			}
			name, err := cleanCalendarPath(entry.Name())
			if err != nil || name != entry.Name() {
				s.logger.Debug("ignoring directory", "name", entry.Name())
				continue
			}

			cal, err := s.loadCalendar(name)
			switch {
			case errors.Is(err, storage.ErrNotFound):
				s.logger.Debug("ignoring directory without descriptor", "name", name)
				continue
			case err != nil:
				s.logger.Warn("skipping unreadable calendar", "calendar", name, "error", err)
				s.skip("calendar")
				if !yield(mo.Err[*storage.Calendar](err)) {
					return
				}
				continue
			}
			if !yield(mo.Ok(cal)) {
				return
			}
		}
	}
}

// lastModified returns the newest mtime of the calendar's object files, or
// storage.Epoch when there are none.
func (s *Store) lastModified(name string) (time.Time, error) {
	entries, err := os.ReadDir(s.calendarDir(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, storage.NotFoundError("calendar %s not found", name)
		}
		return time.Time{}, storage.IOFailureError(err, "cannot list calendar %s", name)
	}

	latest := storage.Epoch
	for _, entry := range entries {
		if _, ok := storage.UIDFromFileName(entry.Name()); !ok || !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed since the listing
			continue
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime().UTC()
		}
	}
	return latest, nil
}
