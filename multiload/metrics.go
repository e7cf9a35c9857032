package multiload

// Metric names reported to stats.Tracker, labelled with "source".
const (
	MetricFetch           = "multiload_fetch"
	MetricFetchFailed     = "multiload_fetch_failed"
	MetricWriteSuppressed = "multiload_write_suppressed"
	MetricDiscarded       = "multiload_discarded"
)
