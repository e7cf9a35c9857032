package swrcache

// Metric names reported to stats.Tracker, labelled with "namespace".
const (
	MetricHit          = "swrcache_hit"
	MetricMiss         = "swrcache_miss"
	MetricExpired      = "swrcache_expired"
	MetricWrite        = "swrcache_write"
	MetricSelfHeal     = "swrcache_self_heal"
	MetricStorageFault = "swrcache_storage_fault"
)
