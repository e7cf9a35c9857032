package swrcache

// Self-heal reasons passed to Hooks.SelfHeal.
const (
	ReasonCorrupt         = "corrupt"
	ReasonVersionMismatch = "version_mismatch"
	ReasonValueDecode     = "value_decode"
)

// Hooks lightweight callbacks for high-signal storage events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// A stored entry was deleted by the cache on read.
	// reason ∈ {"corrupt", "version_mismatch", "value_decode"}
	SelfHeal(storageKey, reason string)

	// The provider or the codec failed. The cache treated the call as a miss/no-op.
	StorageFault(err *StorageError)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SelfHeal(string, string)   {}
func (NopHooks) StorageFault(*StorageError) {}
