package filesystem

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"iter"
	"os"

	"github.com/cyp0633/caldorafs/storage"
	"github.com/emersion/go-ical"
	"github.com/samber/mo"
)

// readObject loads one object file of a cleaned calendar name.
func (s *Store) readObject(name, uid string) (*storage.CalendarObject, error) {
	f, err := os.Open(s.objectFile(name, uid))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.NotFoundError("object %s not found in %s", uid, name)
		}
		return nil, storage.IOFailureError(err, "cannot open object %s in %s", uid, name)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, storage.IOFailureError(err, "cannot stat object %s in %s", uid, name)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, storage.IOFailureError(err, "cannot read object %s in %s", uid, name)
	}

	obj, err := storage.DecodeObject(s.codec, bytes.NewReader(data))
	if err != nil {
		return nil, storage.CorruptDataError(err, "object %s in %s", uid, name)
	}
	if obj.UID != uid {
		return nil, storage.CorruptDataError(nil, "object file %s in %s holds UID %q",
			storage.ObjectFileName(uid), name, obj.UID)
	}
	obj.Path = s.objectHref(name, uid)
	obj.ETag = storage.ETag(data)
	obj.LastModified = info.ModTime().UTC()
	return obj, nil
}

func (s *Store) getObject(calendarPath, uid string) (*storage.CalendarObject, error) {
	name, err := cleanCalendarPath(calendarPath)
	if err != nil {
		return nil, err
	}
	uid, err = cleanUID(uid)
	if err != nil {
		return nil, err
	}

	obj, err := s.readObject(name, uid)
	if err != nil {
		if errors.Is(err, storage.ErrCorruptData) {
			s.logger.Warn("corrupt object", "calendar", name, "uid", uid, "error", err)
		}
		return nil, err
	}
	s.logger.Debug("object loaded", "calendar", name, "uid", uid)
	return obj, nil
}

// objects lists the calendar directory up front, so a missing calendar fails
// the call, and decodes each object file when it is reached.
func (s *Store) objects(ctx context.Context, calendarPath string) (iter.Seq[mo.Result[*storage.CalendarObject]], error) {
	name, err := cleanCalendarPath(calendarPath)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.calendarDir(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.NotFoundError("calendar %s not found", name)
		}
		return nil, storage.IOFailureError(err, "cannot list calendar %s", name)
	}

	var uids []string
	hasDescriptor := false
	for _, entry := range entries {
		if entry.Name() == descriptorName {
			hasDescriptor = true
			continue
		}
		if uid, ok := storage.UIDFromFileName(entry.Name()); ok && entry.Type().IsRegular() {
			uids = append(uids, uid)
		}
	}
	if !hasDescriptor {
		return nil, storage.NotFoundError("calendar %s not found", name)
	}

	return func(yield func(mo.Result[*storage.CalendarObject]) bool) {
		for _, uid := range uids {
			if err := ctx.Err(); err != nil {
				yield(mo.Err[*storage.CalendarObject](storage.IOFailureError(err, "list objects of %s", name)))
				return
			}

			obj, err := s.readObject(name, uid)
			switch {
			case errors.Is(err, storage.ErrNotFound):
				// deleted since the listing
				continue
			case err != nil:
				s.logger.Warn("skipping unreadable object",
					"calendar", name,
					"uid", uid,
					"error", err)
				s.skip("object")
				if !yield(mo.Err[*storage.CalendarObject](err)) {
					return
				}
				continue
			}
			if !yield(mo.Ok(obj)) {
				return
			}
		}
	}, nil
}

// saveObject writes the object to <uid>.ics, replacing any object with the
// same UID. Only the object itself is written.
func (s *Store) saveObject(calendarPath string, object *storage.CalendarObject) (*storage.CalendarObject, error) {
	if object == nil {
		return nil, storage.InvalidIdentifierError("nil object")
	}
	name, err := cleanCalendarPath(calendarPath)
	if err != nil {
		return nil, err
	}
	stored, err := storage.NewCalendarObject(object.Component)
	if err != nil {
		return nil, err
	}
	if object.UID != "" && object.UID != stored.UID {
		return nil, storage.InvalidIdentifierError("object UID %q does not match component UID %q", object.UID, stored.UID)
	}
	uid, err := cleanUID(stored.UID)
	if err != nil {
		return nil, err
	}
	for _, override := range object.Overrides {
		overrideUID, _ := override.Props.Text(ical.PropUID)
		if override.Name != stored.Component.Name || overrideUID != uid {
			return nil, storage.InvalidIdentifierError("override %s %q does not belong to %s %q",
				override.Name, overrideUID, stored.Component.Name, uid)
		}
	}
	stored.Overrides = object.Overrides

	cal, err := s.readCalendar(name)
	if err != nil {
		return nil, err
	}
	if !cal.Supports(stored.Kind) {
		return nil, storage.InvalidIdentifierError("calendar %s does not accept %s", name, stored.Kind)
	}

	data, err := storage.EncodeObject(s.codec, stored)
	if err != nil {
		return nil, storage.CorruptDataError(err, "cannot encode object %s", uid)
	}
	target := s.objectFile(name, uid)
	if err := writeFileAtomic(target, data, filePerm); err != nil {
		return nil, storage.IOFailureError(err, "cannot write object %s in %s", uid, name)
	}
	info, err := os.Stat(target)
	if err != nil {
		return nil, storage.IOFailureError(err, "cannot stat object %s in %s", uid, name)
	}

	stored.Path = s.objectHref(name, uid)
	stored.ETag = storage.ETag(data)
	stored.LastModified = info.ModTime().UTC()
	s.logger.Info("object saved",
		"calendar", name,
		"uid", uid,
		"kind", stored.Kind.String(),
		"etag", stored.ETag)
	return stored, nil
}

// deleteObject removes an object given by href, file name or UID. Removing
// an absent object is not an error.
func (s *Store) deleteObject(calendarPath, p string) error {
	name, err := cleanCalendarPath(calendarPath)
	if err != nil {
		return err
	}
	uid, err := storage.UIDFromPath(p)
	if err != nil {
		return err
	}
	uid, err = cleanUID(uid)
	if err != nil {
		return err
	}

	if err := os.Remove(s.objectFile(name, uid)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("object already absent", "calendar", name, "uid", uid)
			return nil
		}
		return storage.IOFailureError(err, "cannot delete object %s in %s", uid, name)
	}
	s.logger.Info("object deleted", "calendar", name, "uid", uid)
	return nil
}
