// Package mutation sends create, update, delete and reorder requests and
// keeps the cache consistent with their outcome.
//
// A successful mutation invalidates every affected key so the next read
// refetches; a failed one leaves the cache untouched and returns an error
// carrying the message the server sent back. Identical mutations are not
// de-duplicated.
package mutation

import (
	"context"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-listsync/cache"
)

// DefaultErrorMessage is shown when the server did not explain a failure.
const DefaultErrorMessage = "Something went wrong. Please try again."

// Backend performs mutation requests against the source of truth.
type Backend interface {
	Do(ctx context.Context, req Request) (Response, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req Request) (Response, error)

// Do calls f.
func (f BackendFunc) Do(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Dispatcher executes mutations and invalidates the cache on success.
type Dispatcher struct {
	backend Backend
	store   cache.Store
	logger  cache.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l cache.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher creates a dispatcher sending requests through backend.
func NewDispatcher(backend Backend, store cache.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		backend: backend,
		store:   store,
		logger:  cache.NopLogger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Execute validates and sends req. On success every affected key is
// invalidated before the response is returned. Failures come back as
// *errors.Error and leave the cache as it was.
func (d *Dispatcher) Execute(ctx context.Context, req Request) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, err
	}

	resp, err := d.backend.Do(ctx, req)
	if err != nil {
		d.logger.Printf("mutation: %s %s failed: %v", req.Operation, req.Resource, err)
		return Response{}, normalize(err)
	}

	for _, target := range req.AffectedKeys {
		n := d.store.Invalidate(target)
		d.logger.Printf("mutation: %s %s invalidated %d entries for %s", req.Operation, req.Resource, n, target)
	}
	return resp, nil
}

func normalize(err error) error {
	var e *goerrors.Error
	if goerrors.As(err, &e) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryExternal, DefaultErrorMessage).
		WithTextCode("MUTATION_FAILED")
}

// Message returns the text to show for a failed mutation: the server
// message when one was sent, DefaultErrorMessage otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *goerrors.Error
	if goerrors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return DefaultErrorMessage
}
