package graphmodel

import (
	"context"
	"sync"

	"github.com/soundprediction/graphmodel/pkg/driver"
)

// TransactionState tracks the lifecycle of a unit of work.
type TransactionState string

const (
	// TransactionActive accepts operations, commit, and rollback.
	TransactionActive TransactionState = "active"
	// TransactionCommitted means the work was made durable.
	TransactionCommitted TransactionState = "committed"
	// TransactionRolledBack means the work was discarded.
	TransactionRolledBack TransactionState = "rolled_back"
	// TransactionDisposed means the handle was closed.
	TransactionDisposed TransactionState = "disposed"
)

func (s TransactionState) String() string { return string(s) }

// Transaction is a unit of work over the graph. Writes made through it are
// visible to reads through the same handle and invisible elsewhere until
// Commit. A Transaction is not safe for concurrent use.
type Transaction struct {
	graph *Graph
	tx    driver.Tx

	mu    sync.Mutex
	state TransactionState
}

// Handle is anything graph operations can run against: the Graph itself for
// auto-committed operations, or a Transaction for grouped ones.
type Handle interface {
	handle() (*Graph, driver.Tx, error)
}

func (g *Graph) handle() (*Graph, driver.Tx, error) {
	return g, nil, nil
}

func (t *Transaction) handle() (*Graph, driver.Tx, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TransactionActive {
		return nil, nil, &TransactionStateError{State: t.state, Op: "use"}
	}
	return t.graph, t.tx, nil
}

// BeginTransaction opens a new unit of work.
func (g *Graph) BeginTransaction(ctx context.Context) (*Transaction, error) {
	tx, err := g.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("transaction started")
	return &Transaction{graph: g, tx: tx, state: TransactionActive}, nil
}

// GetTransaction opens a new unit of work. It is an alias of
// BeginTransaction; there is no ambient transaction state to fetch.
func (g *Graph) GetTransaction(ctx context.Context) (*Transaction, error) {
	return g.BeginTransaction(ctx)
}

// State returns the current lifecycle state.
func (t *Transaction) State() TransactionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Commit makes all buffered writes durable. Only an active transaction can
// commit; anything else reports a TransactionStateError.
func (t *Transaction) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TransactionActive {
		return &TransactionStateError{State: t.state, Op: "commit"}
	}
	if err := t.tx.Commit(ctx); err != nil {
		return err
	}
	t.state = TransactionCommitted
	t.graph.logger.Debug("transaction committed")
	return nil
}

// Rollback discards all buffered writes. Only an active transaction can roll
// back.
func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TransactionActive {
		return &TransactionStateError{State: t.state, Op: "rollback"}
	}
	if err := t.tx.Rollback(ctx); err != nil {
		return err
	}
	t.state = TransactionRolledBack
	t.graph.logger.Debug("transaction rolled back")
	return nil
}

// Close disposes the handle, rolling back first when still active. It is
// idempotent and safe to defer alongside explicit Commit or Rollback.
func (t *Transaction) Close(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == TransactionDisposed {
		return nil
	}
	var err error
	if t.state == TransactionActive {
		err = t.tx.Rollback(ctx)
	}
	t.state = TransactionDisposed
	return err
}
