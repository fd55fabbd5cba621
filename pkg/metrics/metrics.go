package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConnectorMetrics are process-wide counters for the bulk/scroll data
// paths. Per-session numbers live in the session Stats snapshots; these
// exist so a scraping endpoint sees totals across all sessions.
type ConnectorMetrics struct {
	BulkFlushes      prometheus.Counter
	BulkFlushErrors  prometheus.Counter
	BulkBytesWritten prometheus.Counter
	BulkDocsWritten  prometheus.Counter

	ScrollPages prometheus.Counter
	ScrollDocs  prometheus.Counter

	StaleResolutions prometheus.Counter
}

var (
	connectorMetrics     *ConnectorMetrics
	connectorMetricsLock sync.Mutex
)

func GetConnectorMetrics() *ConnectorMetrics {
	connectorMetricsLock.Lock()
	defer connectorMetricsLock.Unlock()

	if connectorMetrics == nil {
		connectorMetrics = newConnectorMetrics()
	}

	return connectorMetrics
}

func newConnectorMetrics() *ConnectorMetrics {
	return &ConnectorMetrics{
		BulkFlushes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "eshadoop",
			Subsystem: "bulk",
			Name:      "flushes_total",
			Help:      "Total number of bulk requests sent",
		}),
		BulkFlushErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "eshadoop",
			Subsystem: "bulk",
			Name:      "flush_errors_total",
			Help:      "Total number of failed bulk requests",
		}),
		BulkBytesWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "eshadoop",
			Subsystem: "bulk",
			Name:      "bytes_written_total",
			Help:      "Total bytes sent through bulk requests",
		}),
		BulkDocsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "eshadoop",
			Subsystem: "bulk",
			Name:      "docs_written_total",
			Help:      "Total documents sent through bulk requests",
		}),
		ScrollPages: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "eshadoop",
			Subsystem: "scroll",
			Name:      "pages_total",
			Help:      "Total scroll pages fetched",
		}),
		ScrollDocs: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "eshadoop",
			Subsystem: "scroll",
			Name:      "docs_read_total",
			Help:      "Total documents read from scroll pages",
		}),
		StaleResolutions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "eshadoop",
			Subsystem: "topology",
			Name:      "stale_resolutions_total",
			Help:      "Total shard resolution attempts rejected as stale",
		}),
	}
}
