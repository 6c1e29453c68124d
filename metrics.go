package ardrone

import "github.com/prometheus/client_golang/prometheus"

// Prometheus collectors for the events an operator wants visibility
// into during a flight session. Registered in init(), the same
// pattern monitoring.go uses for the pack's flight-tracking metrics.
var (
	navdataSequenceDrops = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ardrone",
		Subsystem: "navdata",
		Name:      "sequence_drops_total",
		Help:      "Navdata frames dropped because their sequence number was not greater than the last accepted one.",
	})

	navdataChecksumFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ardrone",
		Subsystem: "navdata",
		Name:      "checksum_failures_total",
		Help:      "Navdata frames discarded because their checksum did not match.",
	})

	atDatagramsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ardrone",
		Subsystem: "at",
		Name:      "datagrams_sent_total",
		Help:      "UDP datagrams sent on the AT command channel.",
	})

	configRetriesExhausted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ardrone",
		Subsystem: "config",
		Name:      "retries_exhausted_total",
		Help:      "Config Send requests that failed to ack within the retry budget.",
	})

	controlTickInterval = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ardrone",
		Subsystem: "control",
		Name:      "tick_interval_seconds",
		Help:      "Observed interval between consecutive control ticks.",
		Buckets:   prometheus.LinearBuckets(0.005, 0.005, 10),
	})

	videoKeyframeResyncs = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ardrone",
		Subsystem: "video",
		Name:      "keyframe_resyncs_total",
		Help:      "Times the video stream skipped bytes to resynchronize on the next PaVE signature after losing framing.",
	})

	emergencyLatchTransitions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ardrone",
		Subsystem: "control",
		Name:      "emergency_latch_transitions_total",
		Help:      "Times the emergency latch changed state.",
	})

	videoBacklogDiscards = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ardrone",
		Subsystem: "video",
		Name:      "backlog_discards_total",
		Help:      "Pending non-keyframe frames dropped from the dispatch backlog when a fresh keyframe arrived.",
	})
)

func init() {
	prometheus.MustRegister(
		navdataSequenceDrops,
		navdataChecksumFailures,
		atDatagramsSent,
		configRetriesExhausted,
		controlTickInterval,
		videoKeyframeResyncs,
		emergencyLatchTransitions,
		videoBacklogDiscards,
	)
}

