// Package reorder implements optimistic drag reordering of a cached list.
//
// The engine snapshots the list when reordering begins, applies every drag
// to the cache immediately and sends the final order in a single request on
// Commit. A rejected commit restores the snapshot and leaves the engine in
// reordering mode so the user can retry or cancel.
//
//	Viewing --Begin--> Reordering --Commit--> Saving --ok--> Viewing
//	                      ^   |                  |
//	                      |   +--Cancel--> Viewing
//	                      +-------- error -------+
package reorder

import (
	"context"
	"slices"
	"sync"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-listsync/cache"
	"github.com/goliatone/go-listsync/mutation"
	"github.com/goliatone/go-listsync/pagination"
	"github.com/goliatone/go-listsync/query"
)

// State is the engine mode.
type State int

const (
	Viewing State = iota
	Reordering
	Saving
)

func (s State) String() string {
	switch s {
	case Viewing:
		return "viewing"
	case Reordering:
		return "reordering"
	case Saving:
		return "saving"
	default:
		return "unknown"
	}
}

// ErrInvalidState is returned when an operation is not allowed in the
// current state.
var ErrInvalidState = goerrors.New("operation not allowed in current reorder state", goerrors.CategoryOperation).
	WithTextCode("INVALID_STATE")

// Executor sends the reorder request. *mutation.Dispatcher satisfies it.
type Executor interface {
	Execute(ctx context.Context, req mutation.Request) (mutation.Response, error)
}

// IDFunc returns the identity sent to the server for an item.
type IDFunc[T any] func(T) string

// Engine reorders the items cached under one key.
type Engine[T any] struct {
	mu       sync.Mutex
	store    cache.Store
	exec     Executor
	key      query.Key
	resource string
	id       IDFunc[T]
	logger   cache.Logger

	state      State
	baseline   []T
	nextCursor string
}

// Option configures an Engine.
type Option[T any] func(*Engine[T])

// WithLogger sets the logger used for diagnostics.
func WithLogger[T any](l cache.Logger) Option[T] {
	return func(e *Engine[T]) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithResource overrides the resource the reorder request is sent to,
// the key resource by default.
func WithResource[T any](resource string) Option[T] {
	return func(e *Engine[T]) {
		if resource != "" {
			e.resource = resource
		}
	}
}

// NewEngine creates an engine for the list cached under key.
func NewEngine[T any](store cache.Store, exec Executor, key query.Key, id IDFunc[T], opts ...Option[T]) *Engine[T] {
	e := &Engine[T]{
		store:    store,
		exec:     exec,
		key:      key,
		resource: key.Resource(),
		id:       id,
		logger:   cache.NopLogger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current mode.
func (e *Engine[T]) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Items returns the order currently cached for the key.
func (e *Engine[T]) Items() []T {
	e.mu.Lock()
	defer e.mu.Unlock()
	page, _ := e.page()
	return append([]T(nil), page.Items...)
}

// Begin enters reordering mode and snapshots the current order.
func (e *Engine[T]) Begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Viewing {
		return ErrInvalidState
	}
	page, ok := e.page()
	if !ok {
		return goerrors.New("nothing loaded to reorder", goerrors.CategoryNotFound).
			WithTextCode("REORDER_EMPTY")
	}

	e.baseline = slices.Clone(page.Items)
	e.nextCursor = page.NextCursor
	e.state = Reordering
	return nil
}

// Drag moves the item at src to dst and writes the new order to the cache.
func (e *Engine[T]) Drag(src, dst int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Reordering {
		return ErrInvalidState
	}
	page, _ := e.page()
	moved, err := Move(page.Items, src, dst)
	if err != nil {
		return err
	}
	e.store.Write(e.key, pagination.Page[T]{Items: moved, NextCursor: page.NextCursor})
	return nil
}

// Cancel leaves reordering mode and restores the snapshot without any
// network call.
func (e *Engine[T]) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Reordering {
		return ErrInvalidState
	}
	e.restore()
	e.baseline = nil
	e.state = Viewing
	return nil
}

// Commit sends the full order as one reorder request. On success the key
// is invalidated and the engine returns to viewing. On failure the
// snapshot is restored, the engine stays in reordering mode and the
// server error is returned.
func (e *Engine[T]) Commit(ctx context.Context) error {
	e.mu.Lock()
	if e.state != Reordering {
		e.mu.Unlock()
		return ErrInvalidState
	}
	page, _ := e.page()
	order := make([]string, 0, len(page.Items))
	for _, item := range page.Items {
		order = append(order, e.id(item))
	}
	e.state = Saving
	e.mu.Unlock()

	_, err := e.exec.Execute(ctx, mutation.Request{
		Operation:    mutation.OpReorder,
		Resource:     e.resource,
		Payload:      mutation.ReorderPayload{SlideOrder: order},
		AffectedKeys: []string{e.key.String()},
	})

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		e.logger.Printf("reorder: commit for %s rejected: %v", e.key, err)
		e.restore()
		e.state = Reordering
		return err
	}

	e.baseline = nil
	e.state = Viewing
	return nil
}

// page reads the cached page. Callers hold e.mu.
func (e *Engine[T]) page() (pagination.Page[T], bool) {
	return cache.DataAs[pagination.Page[T]](e.store.Read(e.key))
}

// restore writes the snapshot back. Callers hold e.mu.
func (e *Engine[T]) restore() {
	e.store.Write(e.key, pagination.Page[T]{Items: slices.Clone(e.baseline), NextCursor: e.nextCursor})
}
