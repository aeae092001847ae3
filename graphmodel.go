package graphmodel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/soundprediction/graphmodel/pkg/config"
	"github.com/soundprediction/graphmodel/pkg/driver"
	"github.com/soundprediction/graphmodel/pkg/logger"
	"github.com/soundprediction/graphmodel/pkg/types"
)

// Graph is the main entry point for mapping typed entities onto a graph
// store. It is safe for concurrent use; per-operation state lives in the
// operation, not in the Graph.
type Graph struct {
	store  driver.GraphStore
	config *Config
	logger *slog.Logger
}

// Config holds configuration for a Graph.
type Config struct {
	// DefaultOptions applies when an operation is called without explicit
	// options. A zero TraversalDepth falls back to DefaultDepthAllowed.
	DefaultOptions types.GraphOperationOptions

	// BulkConcurrency bounds the parallelism of CreateNodes and UpdateNodes;
	// non-positive values use the executor default.
	BulkConcurrency int
}

// New creates a Graph over an existing store. A nil config or logger falls
// back to defaults.
func New(store driver.GraphStore, cfg *Config, log *slog.Logger) (*Graph, error) {
	if store == nil {
		return nil, fmt.Errorf("graph store is required")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.DefaultOptions.TraversalDepth == 0 {
		cfg.DefaultOptions.TraversalDepth = DefaultDepthAllowed
	}
	if log == nil {
		log = slog.Default()
	}
	return &Graph{store: store, config: cfg, logger: log}, nil
}

// Open builds a store from configuration and wraps it in a Graph. It is the
// convenience path for applications driven by config files and environment
// variables.
func Open(cfg *config.Config) (*Graph, error) {
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	store, err := NewStore(cfg)
	if err != nil {
		return nil, err
	}

	graphCfg := &Config{
		DefaultOptions: types.GraphOperationOptions{
			TraversalDepth:      cfg.Graph.DefaultDepth,
			CreateMissingNodes:  cfg.Graph.CreateMissingNodes,
			UpdateExistingNodes: cfg.Graph.UpdateExistingNodes,
		},
		BulkConcurrency: cfg.Graph.BulkConcurrency,
	}
	return New(store, graphCfg, logger.New(cfg.Log))
}

// NewStore constructs a graph store from database configuration, optionally
// wrapped in a circuit breaker.
func NewStore(cfg *config.Config) (driver.GraphStore, error) {
	var store driver.GraphStore
	var err error

	switch cfg.Database.Driver {
	case "neo4j":
		store, err = driver.NewNeo4jStore(cfg.Database.URI, cfg.Database.Username, cfg.Database.Password, cfg.Database.Database)
	case "embedded", "":
		store, err = driver.NewEmbeddedStore(cfg.Database.URI)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CircuitBreaker.Enabled {
		store = driver.NewBreakerStore(store, driver.BreakerSettings{
			Name:             "graphmodel-" + cfg.Database.Driver,
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			Interval:         time.Duration(cfg.CircuitBreaker.Interval) * time.Second,
			Timeout:          time.Duration(cfg.CircuitBreaker.Timeout) * time.Second,
			FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		})
	}
	return store, nil
}

// Store returns the underlying graph store.
func (g *Graph) Store() driver.GraphStore {
	return g.store
}

// Close releases the underlying store.
func (g *Graph) Close(ctx context.Context) error {
	return g.store.Close(ctx)
}

// options resolves the effective options for one operation. Explicit options
// are taken as-is, so a zero TraversalDepth means the entity alone; the
// configured defaults apply only when the caller passes nothing.
func (g *Graph) options(opts []types.GraphOperationOptions) types.GraphOperationOptions {
	if len(opts) > 0 {
		return opts[0]
	}
	return g.config.DefaultOptions
}
