// Package observability is a small Prometheus-compatible metrics registry:
// a counter/gauge/histogram core with a text-exposition Handler, plus the
// tracking helpers for what this ledger bot actually emits — upstream sync
// activity, ledger growth, scheduler sweeps, NLQ intents and
// AI-enrichment calls.
package observability

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Counter is a monotonically increasing value.
type Counter struct {
	value int64
}

func (c *Counter) Inc()         { atomic.AddInt64(&c.value, 1) }
func (c *Counter) Add(n int64)  { atomic.AddInt64(&c.value, n) }
func (c *Counter) Value() int64 { return atomic.LoadInt64(&c.value) }

// Gauge is a value that can go up and down.
type Gauge struct {
	value int64 // stored as micros for float-like precision
}

func (g *Gauge) Set(v float64)  { atomic.StoreInt64(&g.value, int64(v*1e6)) }
func (g *Gauge) Value() float64 { return float64(atomic.LoadInt64(&g.value)) / 1e6 }

// Histogram tracks value distributions with configurable buckets.
type Histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []int64 // per-bucket counts (+ Inf)
	sum     float64
	count   int64
}

func newHistogram(buckets []float64) *Histogram {
	sorted := make([]float64, len(buckets))
	copy(sorted, buckets)
	sort.Float64s(sorted)
	return &Histogram{buckets: sorted, counts: make([]int64, len(sorted)+1)}
}

func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.count++
	for i, b := range h.buckets {
		if v <= b {
			h.counts[i]++
			return
		}
	}
	h.counts[len(h.buckets)]++ // +Inf bucket
}

func labelKey(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, labels[k])
	}
	return strings.Join(parts, ",")
}

// Metrics is the process-wide Prometheus-compatible metrics registry.
type Metrics struct {
	mu         sync.RWMutex
	logger     zerolog.Logger
	counters   map[string]map[string]*Counter
	gauges     map[string]map[string]*Gauge
	histograms map[string]map[string]*Histogram

	durationBuckets []float64
}

// NewMetrics creates a new metrics registry.
func NewMetrics(logger zerolog.Logger) *Metrics {
	return &Metrics{
		logger:          logger.With().Str("component", "metrics").Logger(),
		counters:        make(map[string]map[string]*Counter),
		gauges:          make(map[string]map[string]*Gauge),
		histograms:      make(map[string]map[string]*Histogram),
		durationBuckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 20000},
	}
}

func (m *Metrics) counterInc(name string, labels map[string]string) {
	m.getCounter(name, labels).Inc()
}

func (m *Metrics) counterAdd(name string, labels map[string]string, n int64) {
	m.getCounter(name, labels).Add(n)
}

func (m *Metrics) getCounter(name string, labels map[string]string) *Counter {
	key := labelKey(labels)
	m.mu.RLock()
	if byName, ok := m.counters[name]; ok {
		if c, ok := byName[key]; ok {
			m.mu.RUnlock()
			return c
		}
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.counters[name]; !ok {
		m.counters[name] = make(map[string]*Counter)
	}
	if _, ok := m.counters[name][key]; !ok {
		m.counters[name][key] = &Counter{}
	}
	return m.counters[name][key]
}

func (m *Metrics) gaugeSet(name string, labels map[string]string, v float64) {
	key := labelKey(labels)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.gauges[name]; !ok {
		m.gauges[name] = make(map[string]*Gauge)
	}
	if _, ok := m.gauges[name][key]; !ok {
		m.gauges[name][key] = &Gauge{}
	}
	m.gauges[name][key].Set(v)
}

func (m *Metrics) histogramObserve(name string, labels map[string]string, v float64) {
	key := labelKey(labels)
	m.mu.Lock()
	if _, ok := m.histograms[name]; !ok {
		m.histograms[name] = make(map[string]*Histogram)
	}
	if _, ok := m.histograms[name][key]; !ok {
		m.histograms[name][key] = newHistogram(m.durationBuckets)
	}
	h := m.histograms[name][key]
	m.mu.Unlock()
	h.Observe(v)
}

// TrackSync records one sync.Sync call's outcome: requests issued against
// the upstream API and rows appended to the ledger for one account.
func (m *Metrics) TrackSync(accountID string, requests, appended int, durationMs float64, failed bool) {
	labels := map[string]string{"account": accountID}
	m.counterAdd("monoledger_sync_requests_total", labels, int64(requests))
	m.counterAdd("monoledger_ledger_rows_appended_total", labels, int64(appended))
	m.histogramObserve("monoledger_sync_duration_ms", nil, durationMs)
	if failed {
		m.counterInc("monoledger_sync_failures_total", labels)
	}
}

// TrackSchedulerRun records one scheduler sweep (interval/daily/weekly/monthly).
func (m *Metrics) TrackSchedulerRun(trigger string, scanned, refreshed int) {
	labels := map[string]string{"trigger": trigger}
	m.counterInc("monoledger_scheduler_runs_total", labels)
	m.gaugeSet("monoledger_scheduler_last_scanned", labels, float64(scanned))
	m.gaugeSet("monoledger_scheduler_last_refreshed", labels, float64(refreshed))
}

// TrackNLQIntent records one routed NLQ intent.
func (m *Metrics) TrackNLQIntent(intent string) {
	m.counterInc("monoledger_nlq_intents_total", map[string]string{"intent": intent})
}

// TrackAIEnrichment records one AI-enrichment call and whether it degraded.
func (m *Metrics) TrackAIEnrichment(ok bool, durationMs float64) {
	m.histogramObserve("monoledger_ai_enrichment_duration_ms", nil, durationMs)
	status := "ok"
	if !ok {
		status = "degraded"
	}
	m.counterInc("monoledger_ai_enrichment_total", map[string]string{"status": status})
}

// Handler returns an http.HandlerFunc that serves /metrics in Prometheus
// text exposition format.
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("# monoledger metrics - %s\n\n", time.Now().UTC().Format(time.RFC3339)))

		m.mu.RLock()
		defer m.mu.RUnlock()

		for name, byLabel := range m.counters {
			sb.WriteString(fmt.Sprintf("# TYPE %s counter\n", name))
			for lk, c := range byLabel {
				if lk == "" {
					sb.WriteString(fmt.Sprintf("%s %d\n", name, c.Value()))
				} else {
					sb.WriteString(fmt.Sprintf("%s{%s} %d\n", name, lk, c.Value()))
				}
			}
			sb.WriteString("\n")
		}

		for name, byLabel := range m.gauges {
			sb.WriteString(fmt.Sprintf("# TYPE %s gauge\n", name))
			for lk, g := range byLabel {
				if lk == "" {
					sb.WriteString(fmt.Sprintf("%s %f\n", name, g.Value()))
				} else {
					sb.WriteString(fmt.Sprintf("%s{%s} %f\n", name, lk, g.Value()))
				}
			}
			sb.WriteString("\n")
		}

		for name, byLabel := range m.histograms {
			sb.WriteString(fmt.Sprintf("# TYPE %s histogram\n", name))
			for lk, h := range byLabel {
				h.mu.Lock()
				prefix := name
				if lk != "" {
					prefix = fmt.Sprintf("%s{%s}", name, lk)
				}
				cumulative := int64(0)
				for i, b := range h.buckets {
					cumulative += h.counts[i]
					if lk != "" {
						sb.WriteString(fmt.Sprintf("%s_bucket{le=\"%g\",%s} %d\n", name, b, lk, cumulative))
					} else {
						sb.WriteString(fmt.Sprintf("%s_bucket{le=\"%g\"} %d\n", name, b, cumulative))
					}
				}
				cumulative += h.counts[len(h.buckets)]
				if lk != "" {
					sb.WriteString(fmt.Sprintf("%s_bucket{le=\"+Inf\",%s} %d\n", name, lk, cumulative))
				} else {
					sb.WriteString(fmt.Sprintf("%s_bucket{le=\"+Inf\"} %d\n", name, cumulative))
				}
				sb.WriteString(fmt.Sprintf("%s_sum %f\n", prefix, h.sum))
				sb.WriteString(fmt.Sprintf("%s_count %d\n", prefix, h.count))
				h.mu.Unlock()
			}
			sb.WriteString("\n")
		}

		_, _ = w.Write([]byte(sb.String()))
	}
}
