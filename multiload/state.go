package multiload

import (
	"fmt"
	"time"
)

// Phase is the per-source state machine: idle -> loading -> success|error -> loading ...
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// PageState combines every source into one page-level verdict.
type PageState uint8

const (
	// PageIdle: no load has been started.
	PageIdle PageState = iota
	// PageLoading: no source has data yet and at least one fetch is in flight.
	PageLoading
	// PageReady: at least one source has data, cached or fetched.
	PageReady
	// PageFailed: no source ever produced data and nothing is in flight.
	PageFailed
)

func (s PageState) String() string {
	switch s {
	case PageIdle:
		return "idle"
	case PageLoading:
		return "loading"
	case PageReady:
		return "ready"
	case PageFailed:
		return "failed"
	}
	return fmt.Sprintf("page(%d)", uint8(s))
}

func (s PageState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// State is what the orchestrator knows about one source.
//
// Err is cleared by any successful fetch; a failed fetch sets Err and leaves Data as it was.
// IsFromCache is true while Data is the cached value and no different network value has
// replaced it. LastUpdatedAt is the cache entry's stored-at time or the fetch completion time.
type State[V any] struct {
	Data          V
	HasData       bool
	Loading       bool
	Err           error
	IsFromCache   bool
	Expired       bool
	LastUpdatedAt time.Time
	Phase         Phase
}

// Status is the type-erased, JSON-ready view of a State handed to renderers.
type Status struct {
	Source        string     `json:"source"`
	Data          any        `json:"data,omitempty"`
	HasData       bool       `json:"hasData"`
	Loading       bool       `json:"loading"`
	Error         string     `json:"error,omitempty"`
	IsFromCache   bool       `json:"isFromCache"`
	Expired       bool       `json:"expired"`
	LastUpdatedAt *time.Time `json:"lastUpdatedAt,omitempty"`
	Phase         Phase      `json:"phase"`
}

func statusOf[V any](name string, st State[V]) Status {
	s := Status{
		Source:      name,
		HasData:     st.HasData,
		Loading:     st.Loading,
		IsFromCache: st.IsFromCache,
		Expired:     st.Expired,
		Phase:       st.Phase,
	}
	if st.HasData {
		s.Data = st.Data
	}
	if st.Err != nil {
		s.Error = st.Err.Error()
	}
	if !st.LastUpdatedAt.IsZero() {
		t := st.LastUpdatedAt
		s.LastUpdatedAt = &t
	}
	return s
}

// Event is published to subscribers after every state change of a source.
type Event struct {
	Cycle  string    `json:"cycle,omitempty"`
	Status Status    `json:"status"`
	Page   PageState `json:"page"`
}
