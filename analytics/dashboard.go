package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bool64/stats"

	"github.com/unkn0wn-root/swrcache"
	c "github.com/unkn0wn-root/swrcache/codec"
	"github.com/unkn0wn-root/swrcache/genstore"
	"github.com/unkn0wn-root/swrcache/internal/util"
	"github.com/unkn0wn-root/swrcache/multiload"
	pr "github.com/unkn0wn-root/swrcache/provider"
)

const (
	// SchemaVersion tags every cached payload; bump it when a payload type changes shape.
	SchemaVersion = "1.0.0"
	// KeyPrefix groups the dashboard's cache keys.
	KeyPrefix        = "advanced_analytics"
	defaultNamespace = "crm"
)

// DefaultTTLs per source.
var DefaultTTLs = map[string]time.Duration{
	SourceCompany: 10 * time.Minute,
	SourcePending: 2 * time.Minute,
	SourceBrokers: 15 * time.Minute,
	SourceChurn:   30 * time.Minute,
	SourceFunnel:  15 * time.Minute,
	SourceCapture: 10 * time.Minute,
}

// Key is the cache key of a source.
func Key(source string) string { return KeyPrefix + ":" + source }

// Config builds a Dashboard. Provider is required.
type Config struct {
	Provider      pr.Provider
	Namespace     string // "" => "crm"
	SchemaVersion string // "" => SchemaVersion
	Logger        swrcache.Logger
	Hooks         swrcache.Hooks
	Stats         stats.Tracker
	// TTLs override DefaultTTLs per source name.
	TTLs map[string]time.Duration
	// Codec is "json" (default), "cbor" or "msgpack".
	Codec string
	// MaxEntryBytes refuses to cache payloads larger than this; 0 disables the limit.
	MaxEntryBytes  int
	MaxConcurrency int
	FoldFilters    bool
	Tokens         genstore.GenStore
	Now            func() time.Time
	DisableCache   bool
}

// Dashboard is the orchestrator with the six analytics sources registered.
type Dashboard struct {
	*multiload.Orchestrator[Filters]

	Company *multiload.Source[Filters, CompanyPerformance]
	Pending *multiload.Source[Filters, []PendingMatch]
	Brokers *multiload.Source[Filters, []BrokerRanking]
	Churn   *multiload.Source[Filters, ChurnAnalysis]
	Funnel  *multiload.Source[Filters, ConversionFunnel]
	Capture *multiload.Source[Filters, CaptureStats]

	provider pr.Provider
}

func NewDashboard(api API, cfg Config) (*Dashboard, error) {
	if api == nil {
		return nil, errors.New("analytics: api is required")
	}
	if cfg.Provider == nil {
		return nil, errors.New("analytics: provider is required")
	}
	cfg.Namespace = util.Coalesce(cfg.Namespace, defaultNamespace)
	cfg.SchemaVersion = util.Coalesce(cfg.SchemaVersion, SchemaVersion)

	d := &Dashboard{
		Orchestrator: multiload.New[Filters](multiload.Options{
			Logger:         cfg.Logger,
			Stats:          cfg.Stats,
			Tokens:         cfg.Tokens,
			MaxConcurrency: cfg.MaxConcurrency,
			Now:            cfg.Now,
			FoldFilters:    cfg.FoldFilters,
		}),
		provider: cfg.Provider,
	}

	var err error
	if d.Company, err = register[CompanyPerformance](d.Orchestrator, cfg, SourceCompany, api.CompanyPerformance); err != nil {
		return nil, err
	}
	if d.Pending, err = register[[]PendingMatch](d.Orchestrator, cfg, SourcePending, api.PendingMatches); err != nil {
		return nil, err
	}
	if d.Brokers, err = register[[]BrokerRanking](d.Orchestrator, cfg, SourceBrokers, api.BrokerRankings); err != nil {
		return nil, err
	}
	if d.Churn, err = register[ChurnAnalysis](d.Orchestrator, cfg, SourceChurn, api.ChurnAnalysis); err != nil {
		return nil, err
	}
	if d.Funnel, err = register[ConversionFunnel](d.Orchestrator, cfg, SourceFunnel, api.ConversionFunnel); err != nil {
		return nil, err
	}
	if d.Capture, err = register[CaptureStats](d.Orchestrator, cfg, SourceCapture, api.CaptureStats); err != nil {
		return nil, err
	}
	return d, nil
}

func register[V any](o *multiload.Orchestrator[Filters], cfg Config, name string, fetch multiload.FetchFunc[Filters, V]) (*multiload.Source[Filters, V], error) {
	codec, err := newCodec[V](cfg.Codec, cfg.MaxEntryBytes)
	if err != nil {
		return nil, err
	}
	cache, err := swrcache.New[V](swrcache.Options[V]{
		Namespace:     cfg.Namespace,
		Provider:      cfg.Provider,
		Codec:         codec,
		SchemaVersion: cfg.SchemaVersion,
		Logger:        cfg.Logger,
		Hooks:         cfg.Hooks,
		Stats:         cfg.Stats,
		Now:           cfg.Now,
		Disabled:      cfg.DisableCache,
	})
	if err != nil {
		return nil, fmt.Errorf("analytics: %s cache: %w", name, err)
	}
	ttl, ok := cfg.TTLs[name]
	if !ok {
		ttl = DefaultTTLs[name]
	}
	return multiload.Register(o, multiload.SourceConfig[Filters, V]{
		Name:  name,
		Key:   Key(name),
		TTL:   ttl,
		Cache: cache,
		Fetch: fetch,
	})
}

func newCodec[V any](name string, maxBytes int) (c.Codec[V], error) {
	var cd c.Codec[V]
	switch name {
	case "", "json":
		cd = c.JSON[V]{}
	case "cbor":
		cb, err := c.NewCBOR[V](true)
		if err != nil {
			return nil, err
		}
		cd = cb
	case "msgpack":
		cd = c.Msgpack[V]{}
	default:
		return nil, fmt.Errorf("analytics: unknown codec %q", name)
	}
	if maxBytes > 0 {
		cd = c.LimitCodec[V]{Inner: cd, Max: maxBytes}
	}
	return cd, nil
}

// Close releases the orchestrator and the shared provider.
func (d *Dashboard) Close(ctx context.Context) error {
	return errors.Join(d.Orchestrator.Close(ctx), d.provider.Close(ctx))
}
