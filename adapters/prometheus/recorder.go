// Package prometheus bridges the pipeline metrics contract onto a prometheus
// registry. Collectors are created lazily on first use, one per metric name
// and label set.
package prometheus

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-cargo-notify/core"
)

type Recorder struct {
	registerer prometheus.Registerer
	namespace  string

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

type Option func(*Recorder)

func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		r.namespace = strings.TrimSpace(namespace)
	}
}

func WithRegisterer(registerer prometheus.Registerer) Option {
	return func(r *Recorder) {
		if registerer != nil {
			r.registerer = registerer
		}
	}
}

func NewRecorder(options ...Option) *Recorder {
	recorder := &Recorder{
		registerer: prometheus.DefaultRegisterer,
		namespace:  "cargo_notify",
		counters:   map[string]*prometheus.CounterVec{},
		histograms: map[string]*prometheus.HistogramVec{},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(recorder)
	}
	return recorder
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value <= 0 {
		return
	}
	labels, values := normalizeTags(tags)
	vec := r.counterVec(name, labels)
	if vec == nil {
		return
	}
	vec.With(values).Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	labels, values := normalizeTags(tags)
	vec := r.histogramVec(name, labels)
	if vec == nil {
		return
	}
	vec.With(values).Observe(value)
}

func (r *Recorder) counterVec(name string, labels []string) *prometheus.CounterVec {
	key := collectorKey(name, labels)

	r.mu.Lock()
	defer r.mu.Unlock()
	if vec, ok := r.counters[key]; ok {
		return vec
	}

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      sanitizeMetricName(name),
	}, labels)
	if err := r.registerer.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				r.counters[key] = existing
				return existing
			}
		}
		return nil
	}
	r.counters[key] = vec
	return vec
}

func (r *Recorder) histogramVec(name string, labels []string) *prometheus.HistogramVec {
	key := collectorKey(name, labels)

	r.mu.Lock()
	defer r.mu.Unlock()
	if vec, ok := r.histograms[key]; ok {
		return vec
	}

	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      sanitizeMetricName(name),
		Buckets:   prometheus.DefBuckets,
	}, labels)
	if err := r.registerer.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.HistogramVec); ok {
				r.histograms[key] = existing
				return existing
			}
		}
		return nil
	}
	r.histograms[key] = vec
	return vec
}

func collectorKey(name string, labels []string) string {
	return sanitizeMetricName(name) + "|" + strings.Join(labels, ",")
}

// sanitizeMetricName converts pipeline metric names such as
// "cargo_notify.webhook_delivery.total" into prometheus-safe identifiers.
func sanitizeMetricName(name string) string {
	var out strings.Builder
	for i, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			out.WriteRune(r)
		case r >= '0' && r <= '9' && i > 0:
			out.WriteRune(r)
		default:
			out.WriteRune('_')
		}
	}
	if out.Len() == 0 {
		return "unnamed"
	}
	return out.String()
}

// normalizeTags sanitizes tag keys into prometheus label names and dedupes
// collisions. When two keys sanitize to the same label (for example "a.b" and
// "a_b") the first key in sorted order wins, so the label set and the value
// picked stay stable across calls.
func normalizeTags(tags map[string]string) ([]string, prometheus.Labels) {
	if len(tags) == 0 {
		return nil, nil
	}
	rawKeys := make([]string, 0, len(tags))
	for key := range tags {
		rawKeys = append(rawKeys, key)
	}
	sort.Strings(rawKeys)

	values := make(prometheus.Labels, len(tags))
	labels := make([]string, 0, len(tags))
	for _, raw := range rawKeys {
		label := sanitizeMetricName(raw)
		if _, seen := values[label]; seen {
			continue
		}
		values[label] = tags[raw]
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels, values
}

var _ core.MetricsRecorder = (*Recorder)(nil)
