package jwtrevoke

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation labels
const (
	opList   = "list"
	opRevoke = "revoke"
	opDelete = "delete"
)

// metrics groups the collectors of one client. A nil *metrics records nothing.
type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	retries  *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jwtrevoke",
			Name:      "requests_total",
			Help:      "Revocation API calls by operation and outcome",
		}, []string{"operation", "outcome"}), // outcome: HTTP status, "transport" or "error"
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "jwtrevoke",
			Name:      "request_duration_seconds",
			Help:      "Latency of revocation API calls, retries included",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jwtrevoke",
			Name:      "retries_total",
			Help:      "Attempts beyond the first one",
		}, []string{"operation"}),
	}

	// Collectors this call added; undone if a later one fails
	var added []prometheus.Collector
	fail := func(err error) (*metrics, error) {
		for _, c := range added {
			reg.Unregister(c)
		}
		return nil, err
	}

	var err error
	var fresh bool
	if m.requests, fresh, err = register(reg, m.requests); err != nil {
		return fail(err)
	} else if fresh {
		added = append(added, m.requests)
	}
	if m.duration, fresh, err = register(reg, m.duration); err != nil {
		return fail(err)
	} else if fresh {
		added = append(added, m.duration)
	}
	if m.retries, _, err = register(reg, m.retries); err != nil {
		return fail(err)
	}
	return m, nil
}

// register adds c to reg, reusing the collector another client already
// registered under the same name. fresh is true when c itself was added.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (_ T, fresh bool, _ error) {
	err := reg.Register(c)
	if err == nil {
		return c, true, nil
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if prev, ok := already.ExistingCollector.(T); ok {
			return prev, false, nil
		}
	}
	return c, false, err
}

func (m *metrics) observe(op string, status int, err error, start time.Time) {
	if m == nil {
		return
	}

	outcome := "error"
	switch {
	case status != 0:
		outcome = strconv.Itoa(status)
	case IsTransportError(err):
		outcome = "transport"
	}

	m.requests.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *metrics) retried(op string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(op).Inc()
}
