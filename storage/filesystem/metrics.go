package filesystem

import (
	"errors"

	"github.com/cyp0633/caldorafs/storage"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "caldorafs"

const (
	opGetCalendar    = "get_calendar"
	opCreateCalendar = "create_calendar"
	opUpdateCalendar = "update_calendar"
	opSaveObject     = "save_object"
	opGetObject      = "get_object"
	opListObjects    = "list_objects"
	opQueryObjects   = "query_objects"
	opDeleteObject   = "delete_object"
)

type metrics struct {
	operations *prometheus.CounterVec
	skipped    *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by outcome.",
		}, []string{"op", "result"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "skipped_entries_total",
			Help:      "Entries skipped during enumeration because they could not be read.",
		}, []string{"kind"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.operations, m.skipped} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return nil, storage.IOFailureError(err, "cannot register metrics")
			}
			// share the counters of a store opened earlier on the same registry
			switch c {
			case m.operations:
				m.operations = already.ExistingCollector.(*prometheus.CounterVec)
			case m.skipped:
				m.skipped = already.ExistingCollector.(*prometheus.CounterVec)
			}
		}
	}
	return m, nil
}

// observe counts an operation by error type and returns err unchanged.
func (s *Store) observe(op string, err error) error {
	result := "ok"
	if err != nil {
		result = string(storage.TypeOf(err))
		if result == "" {
			result = "error"
		}
	}
	s.metrics.operations.WithLabelValues(op, result).Inc()
	return err
}

func (s *Store) skip(kind string) {
	s.metrics.skipped.WithLabelValues(kind).Inc()
}
