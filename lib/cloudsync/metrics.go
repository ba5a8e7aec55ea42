package cloudsync

import (
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// syncMetrics holds the counters of one facade. Every facade owns its own
// metrics.Set so that several facades can live in one process.
type syncMetrics struct {
	set *metrics.Set

	reads         *metrics.Counter
	readErrors    *metrics.Counter
	typeMismatch  *metrics.Counter
	writes        *metrics.Counter
	writeErrors   *metrics.Counter
	syncs         *metrics.Counter
	syncFailures  *metrics.Counter
	syncCoalesced *metrics.Counter
	remoteChanges *metrics.Counter
	syncDuration  *metrics.Histogram
}

func newSyncMetrics(observers func() float64) *syncMetrics {
	set := metrics.NewSet()
	set.NewGauge("cloudsync_observers", observers)
	return &syncMetrics{
		set:           set,
		reads:         set.NewCounter("cloudsync_reads_total"),
		readErrors:    set.NewCounter(`cloudsync_errors_total{op="read"}`),
		typeMismatch:  set.NewCounter("cloudsync_type_mismatch_total"),
		writes:        set.NewCounter("cloudsync_writes_total"),
		writeErrors:   set.NewCounter(`cloudsync_errors_total{op="write"}`),
		syncs:         set.NewCounter("cloudsync_synchronize_total"),
		syncFailures:  set.NewCounter(`cloudsync_errors_total{op="synchronize"}`),
		syncCoalesced: set.NewCounter("cloudsync_synchronize_coalesced_total"),
		remoteChanges: set.NewCounter("cloudsync_remote_changes_total"),
		syncDuration:  set.NewHistogram("cloudsync_synchronize_duration_seconds"),
	}
}

// WritePrometheus writes the facade metrics in Prometheus text format to w.
func (s *Sync) WritePrometheus(w io.Writer) {
	s.metrics.set.WritePrometheus(w)
}
