// Package filesystem stores calendars as directories and calendar objects as
// one iCalendar file per UID under a single root directory.
//
//	root/
//	  work/
//	    _calendar.yaml
//	    4f1c....ics
//
// Every write goes through a temp file in the target directory and a rename,
// so readers never observe partial content. The store keeps no state between
// calls besides its configuration.
package filesystem

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cyp0633/caldorafs/recurrence"
	"github.com/cyp0633/caldorafs/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/mo"
)

const (
	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

// Store implements storage.Storage on a directory tree
type Store struct {
	root       string
	codec      storage.Codec
	logger     *slog.Logger
	hrefPrefix string
	metrics    *metrics
	registerer prometheus.Registerer
	location   *time.Location
	recurrence *recurrence.Engine
	now        func() time.Time
}

var _ storage.Storage = (*Store)(nil)

// New opens the store rooted at root, creating the directory if needed.
func New(root string, opts ...Option) (*Store, error) {
	s := &Store{
		codec:  storage.ICalCodec{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}

	// Apply options
	for _, opt := range opts {
		opt(s)
	}

	if root == "" {
		return nil, storage.InvalidIdentifierError("empty root directory")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, storage.IOFailureError(err, "cannot resolve root %s", root)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, storage.IOFailureError(err, "cannot create root %s", abs)
	}
	s.root = abs

	s.metrics, err = newMetrics(s.registerer)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("store opened", "root", abs)
	return s, nil
}

// Option represents a configuration option for the Store
type Option func(*Store)

// WithLogger sets the logger for the store
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCodec replaces the iCalendar codec
func WithCodec(codec storage.Codec) Option {
	return func(s *Store) {
		if codec != nil {
			s.codec = codec
		}
	}
}

// WithHrefPrefix sets the path segment that object hrefs start with, e.g.
// "caldav" gives "/caldav/work/abc.ics".
func WithHrefPrefix(prefix string) Option {
	return func(s *Store) {
		s.hrefPrefix = strings.Trim(prefix, "/")
	}
}

// WithRegisterer registers the store's metrics with reg. Without it the
// metrics are kept but not exported.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Store) {
		s.registerer = reg
	}
}

// WithDefaultLocation sets the zone floating times are evaluated in when a
// calendar has no time zone of its own.
func WithDefaultLocation(loc *time.Location) Option {
	return func(s *Store) {
		s.location = loc
	}
}

// WithRecurrenceEngine sets the engine that expands recurring objects for
// time-range queries, e.g. one with a different occurrence limit.
func WithRecurrenceEngine(e *recurrence.Engine) Option {
	return func(s *Store) {
		s.recurrence = e
	}
}

// Root returns the absolute root directory.
func (s *Store) Root() string {
	return s.root
}

// Calendar operations

func (s *Store) ListCalendars(ctx context.Context) iter.Seq[mo.Result[*storage.Calendar]] {
	return s.calendars(ctx)
}

func (s *Store) GetCalendar(ctx context.Context, name string) (*storage.Calendar, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.IOFailureError(err, "get calendar")
	}
	name, err := storage.ParseCalendarHref(s.trimHrefPrefix(name))
	if err != nil {
		return nil, s.observe(opGetCalendar, err)
	}
	cal, err := s.loadCalendar(name)
	return cal, s.observe(opGetCalendar, err)
}

func (s *Store) CreateCalendar(ctx context.Context, calendar *storage.Calendar) (*storage.Calendar, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.IOFailureError(err, "create calendar")
	}
	cal, err := s.createCalendar(calendar)
	return cal, s.observe(opCreateCalendar, err)
}

func (s *Store) UpdateCalendar(ctx context.Context, calendar *storage.Calendar) error {
	if err := ctx.Err(); err != nil {
		return storage.IOFailureError(err, "update calendar")
	}
	return s.observe(opUpdateCalendar, s.updateCalendar(calendar))
}

func (s *Store) LastModified(ctx context.Context, calendar *storage.Calendar) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, storage.IOFailureError(err, "last modified")
	}
	if calendar == nil {
		return time.Time{}, storage.InvalidIdentifierError("nil calendar")
	}
	name, err := cleanCalendarPath(calendar.Path)
	if err != nil {
		return time.Time{}, err
	}
	return s.lastModified(name)
}

// Object operations

func (s *Store) SaveObject(ctx context.Context, calendar *storage.Calendar, object *storage.CalendarObject) (*storage.CalendarObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.IOFailureError(err, "save object")
	}
	if calendar == nil {
		return nil, storage.InvalidIdentifierError("nil calendar")
	}
	obj, err := s.saveObject(calendar.Path, object)
	return obj, s.observe(opSaveObject, err)
}

func (s *Store) GetObject(ctx context.Context, calendar *storage.Calendar, uid string) (*storage.CalendarObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.IOFailureError(err, "get object")
	}
	if calendar == nil {
		return nil, storage.InvalidIdentifierError("nil calendar")
	}
	obj, err := s.getObject(calendar.Path, uid)
	return obj, s.observe(opGetObject, err)
}

func (s *Store) GetObjectByPath(ctx context.Context, href string) (*storage.CalendarObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.IOFailureError(err, "get object")
	}
	name, uid, err := storage.ParseObjectHref(s.trimHrefPrefix(href))
	if err != nil {
		return nil, s.observe(opGetObject, err)
	}
	obj, err := s.getObject(name, uid)
	return obj, s.observe(opGetObject, err)
}

func (s *Store) ListObjects(ctx context.Context, calendar *storage.Calendar) (iter.Seq[mo.Result[*storage.CalendarObject]], error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.IOFailureError(err, "list objects")
	}
	if calendar == nil {
		return nil, storage.InvalidIdentifierError("nil calendar")
	}
	seq, err := s.objects(ctx, calendar.Path)
	return seq, s.observe(opListObjects, err)
}

// QueryObjects validates the filter before touching the filesystem, then
// scans the named calendar or, when q.Calendar is empty, every calendar.
func (s *Store) QueryObjects(ctx context.Context, q storage.Query) (iter.Seq[mo.Result[*storage.CalendarObject]], error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.IOFailureError(err, "query objects")
	}
	if err := q.Filter.Validate(); err != nil {
		s.logger.Debug("rejected filter", "error", err)
		return nil, s.observe(opQueryObjects, err)
	}

	if q.Calendar != "" {
		cal, err := s.GetCalendar(ctx, q.Calendar)
		if err != nil {
			return nil, s.observe(opQueryObjects, err)
		}
		seq, err := s.objects(ctx, cal.Path)
		if err != nil {
			return nil, s.observe(opQueryObjects, err)
		}
		s.observe(opQueryObjects, nil)
		return storage.Limit(s.forCalendar(q.Filter, cal).Evaluate(seq), q.Limit), nil
	}

	all := func(yield func(mo.Result[*storage.CalendarObject]) bool) {
		for res := range s.calendars(ctx) {
			cal, err := res.Get()
			if err != nil {
				if !yield(mo.Err[*storage.CalendarObject](err)) {
					return
				}
				continue
			}
			seq, err := s.objects(ctx, cal.Path)
			if err != nil {
				if !yield(mo.Err[*storage.CalendarObject](err)) {
					return
				}
				continue
			}
			for obj := range s.forCalendar(q.Filter, cal).Evaluate(seq) {
				if !yield(obj) {
					return
				}
			}
		}
	}
	s.observe(opQueryObjects, nil)
	return storage.Limit(all, q.Limit), nil
}

// forCalendar returns a copy of f evaluating floating times in the
// calendar's zone, or the store default, unless f already names one. The
// store's recurrence engine applies unless f carries its own.
func (s *Store) forCalendar(f *storage.Filter, cal *storage.Calendar) *storage.Filter {
	if f == nil {
		return nil
	}
	c := *f
	if c.Location == nil {
		c.Location = s.location
		if cal.TimeZone != "" {
			c.Location = cal.Location()
		}
	}
	if c.Recurrence == nil {
		c.Recurrence = s.recurrence
	}
	return &c
}

func (s *Store) DeleteObject(ctx context.Context, calendar *storage.Calendar, path string) error {
	if err := ctx.Err(); err != nil {
		return storage.IOFailureError(err, "delete object")
	}
	if calendar == nil {
		return storage.InvalidIdentifierError("nil calendar")
	}
	return s.observe(opDeleteObject, s.deleteObject(calendar.Path, path))
}
