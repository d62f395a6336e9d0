package metric

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/respkv/internal/storage/memory"
)

// KeyspaceSource reports per-database counts.
type KeyspaceSource interface {
	Stats() []memory.Stats
}

// KeyspaceCollector exports database sizes, read at scrape time.
type KeyspaceCollector struct {
	source  KeyspaceSource
	keys    *prometheus.Desc
	expires *prometheus.Desc
}

// NewKeyspaceCollector creates a collector over src.
func NewKeyspaceCollector(src KeyspaceSource) *KeyspaceCollector {
	return &KeyspaceCollector{
		source: src,
		keys: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "db_keys"),
			"Keys held by each database.",
			[]string{"db"}, nil,
		),
		expires: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "db_expiring_keys"),
			"Keys with a deadline in each database.",
			[]string{"db"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *KeyspaceCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
	ch <- c.expires
}

// Collect implements prometheus.Collector.
func (c *KeyspaceCollector) Collect(ch chan<- prometheus.Metric) {
	for _, st := range c.source.Stats() {
		db := strconv.FormatUint(st.ID, 10)
		ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(st.Keys), db)
		ch <- prometheus.MustNewConstMetric(c.expires, prometheus.GaugeValue, float64(st.Expires), db)
	}
}
