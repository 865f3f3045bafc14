package artifactcache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks engine activity. All methods are safe on a nil
// receiver, so an engine without metrics pays only a nil check.
type Metrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	writes    prometheus.Counter
	conflicts prometheus.Counter

	writtenBytes prometheus.Counter

	evictedEntries prometheus.Counter
	evictedBytes   prometheus.Counter

	ledgerBytes prometheus.Gauge
}

// NewMetrics creates engine metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "artifactcache",
			Name:      "read_hits_total",
			Help:      "Successful cache reads.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "artifactcache",
			Name:      "read_misses_total",
			Help:      "Cache reads of absent hashes.",
		}),
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "artifactcache",
			Name:      "writes_total",
			Help:      "Accepted cache writes.",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "artifactcache",
			Name:      "write_conflicts_total",
			Help:      "Writes rejected by write-once semantics.",
		}),
		writtenBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "artifactcache",
			Name:      "written_bytes_total",
			Help:      "Bytes admitted by accepted writes.",
		}),
		evictedEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "artifactcache",
			Name:      "evicted_entries_total",
			Help:      "Entries removed by LRU eviction.",
		}),
		evictedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "artifactcache",
			Name:      "evicted_bytes_total",
			Help:      "Bytes freed by LRU eviction.",
		}),
		ledgerBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "artifactcache",
			Name:      "ledger_bytes",
			Help:      "Total bytes currently accounted by the size ledger.",
		}),
	}
	reg.MustRegister(
		m.hits, m.misses, m.writes, m.conflicts, m.writtenBytes,
		m.evictedEntries, m.evictedBytes, m.ledgerBytes,
	)
	return m
}

func (m *Metrics) readHit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) readMiss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) writeAccepted(size, ledgerTotal int64) {
	if m != nil {
		m.writes.Inc()
		m.writtenBytes.Add(float64(size))
		m.ledgerBytes.Set(float64(ledgerTotal))
	}
}

func (m *Metrics) writeConflict() {
	if m != nil {
		m.conflicts.Inc()
	}
}

func (m *Metrics) evicted(entries, bytes int64) {
	if m != nil {
		m.evictedEntries.Add(float64(entries))
		m.evictedBytes.Add(float64(bytes))
	}
}
