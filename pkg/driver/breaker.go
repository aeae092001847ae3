package driver

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/soundprediction/graphmodel/pkg/query"
	"github.com/soundprediction/graphmodel/pkg/types"
)

// BreakerSettings tunes the circuit breaker wrapped around a store.
type BreakerSettings struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// FailureThreshold trips the breaker once this many consecutive
	// failures are observed. Zero uses the default of 5.
	FailureThreshold uint32
}

// BreakerStore wraps a GraphStore with a circuit breaker so that a flapping
// backend fails fast instead of queueing callers behind timeouts. Domain
// errors such as ErrNotFound and ErrConflict do not count as failures.
type BreakerStore struct {
	inner GraphStore
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerStore wraps a store with circuit breaking.
func NewBreakerStore(inner GraphStore, settings BreakerSettings) *BreakerStore {
	threshold := settings.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	name := settings.Name
	if name == "" {
		name = "graph-store"
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return errors.Is(err, types.ErrNotFound) ||
				errors.Is(err, types.ErrConflict) ||
				errors.Is(err, types.ErrMissingEndpoint) ||
				errors.Is(err, types.ErrInvalidGraph)
		},
	})
	return &BreakerStore{inner: inner, cb: cb}
}

func (s *BreakerStore) execute(fn func() (any, error)) (any, error) {
	return s.cb.Execute(fn)
}

func (s *BreakerStore) UpsertNode(ctx context.Context, tx Tx, labels []string, id string, props map[string]any) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.inner.UpsertNode(ctx, tx, labels, id, props)
	})
	return err
}

func (s *BreakerStore) UpsertRelationship(ctx context.Context, tx Tx, relType, startID, endID, id string, props map[string]any) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.inner.UpsertRelationship(ctx, tx, relType, startID, endID, id, props)
	})
	return err
}

func (s *BreakerStore) FetchNode(ctx context.Context, tx Tx, id string) (*NodeRecord, error) {
	out, err := s.execute(func() (any, error) {
		return s.inner.FetchNode(ctx, tx, id)
	})
	if err != nil {
		return nil, err
	}
	return out.(*NodeRecord), nil
}

func (s *BreakerStore) FetchNodes(ctx context.Context, tx Tx, ids []string) ([]*NodeRecord, error) {
	out, err := s.execute(func() (any, error) {
		return s.inner.FetchNodes(ctx, tx, ids)
	})
	if err != nil {
		return nil, err
	}
	return out.([]*NodeRecord), nil
}

func (s *BreakerStore) FetchRelationship(ctx context.Context, tx Tx, id string) (*RelRecord, error) {
	out, err := s.execute(func() (any, error) {
		return s.inner.FetchRelationship(ctx, tx, id)
	})
	if err != nil {
		return nil, err
	}
	return out.(*RelRecord), nil
}

func (s *BreakerStore) FetchIncident(ctx context.Context, tx Tx, nodeIDs []string, relTypes []string) ([]*RelRecord, error) {
	out, err := s.execute(func() (any, error) {
		return s.inner.FetchIncident(ctx, tx, nodeIDs, relTypes)
	})
	if err != nil {
		return nil, err
	}
	return out.([]*RelRecord), nil
}

func (s *BreakerStore) NodeExists(ctx context.Context, tx Tx, id string) (bool, error) {
	out, err := s.execute(func() (any, error) {
		return s.inner.NodeExists(ctx, tx, id)
	})
	if err != nil {
		return false, err
	}
	return out.(bool), nil
}

func (s *BreakerStore) DeleteNode(ctx context.Context, tx Tx, id string, cascade bool) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.inner.DeleteNode(ctx, tx, id, cascade)
	})
	return err
}

func (s *BreakerStore) DeleteRelationship(ctx context.Context, tx Tx, id string) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.inner.DeleteRelationship(ctx, tx, id)
	})
	return err
}

func (s *BreakerStore) ApplyPlan(ctx context.Context, tx Tx, plan *WritePlan) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.inner.ApplyPlan(ctx, tx, plan)
	})
	return err
}

func (s *BreakerStore) ExecuteQuery(ctx context.Context, tx Tx, spec *query.Spec) ([]query.Record, error) {
	out, err := s.execute(func() (any, error) {
		return s.inner.ExecuteQuery(ctx, tx, spec)
	})
	if err != nil {
		return nil, err
	}
	return out.([]query.Record), nil
}

// Begin is not breaker-guarded: a unit of work is a long-lived handle, and
// its statements are already guarded individually.
func (s *BreakerStore) Begin(ctx context.Context) (Tx, error) {
	return s.inner.Begin(ctx)
}

func (s *BreakerStore) Close(ctx context.Context) error {
	return s.inner.Close(ctx)
}

var _ GraphStore = (*BreakerStore)(nil)
