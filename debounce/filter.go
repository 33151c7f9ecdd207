package debounce

import (
	"context"
	"time"

	"github.com/goliatone/go-listsync/query"
)

// DefaultSearchDelay matches the admin console search boxes.
const DefaultSearchDelay = 500 * time.Millisecond

// Filterable is a list view that can apply a filter and reload.
type Filterable interface {
	ApplyFilter(ctx context.Context, name string, value any) error
}

// SearchFilter feeds debounced search text into a list filter.
type SearchFilter struct {
	debouncer *Debouncer[string]
	field     string
}

// FilterOption configures a SearchFilter.
type FilterOption func(*filterOptions)

type filterOptions struct {
	field   string
	delay   time.Duration
	onError func(error)
	opts    []Option
}

// WithField sets the filter name, query.SearchField by default.
func WithField(name string) FilterOption {
	return func(o *filterOptions) {
		o.field = name
	}
}

// WithDelay sets the debounce window, DefaultSearchDelay by default.
func WithDelay(d time.Duration) FilterOption {
	return func(o *filterOptions) {
		o.delay = d
	}
}

// WithErrorHandler receives reload errors; they are dropped otherwise.
func WithErrorHandler(fn func(error)) FilterOption {
	return func(o *filterOptions) {
		o.onError = fn
	}
}

// WithDebounceOptions passes options to the underlying Debouncer.
func WithDebounceOptions(opts ...Option) FilterOption {
	return func(o *filterOptions) {
		o.opts = append(o.opts, opts...)
	}
}

// NewSearchFilter wires a debouncer to target. ctx bounds the reloads
// triggered by settled values.
func NewSearchFilter(ctx context.Context, target Filterable, opts ...FilterOption) *SearchFilter {
	o := &filterOptions{
		field: query.SearchField,
		delay: DefaultSearchDelay,
	}
	for _, opt := range opts {
		opt(o)
	}

	f := &SearchFilter{field: o.field}
	f.debouncer = New(o.delay, func(term string) {
		if err := target.ApplyFilter(ctx, o.field, term); err != nil && o.onError != nil {
			o.onError(err)
		}
	}, o.opts...)
	return f
}

// Input records raw text from the search box.
func (f *SearchFilter) Input(raw string) {
	f.debouncer.Observe(raw)
}

// Term returns the last settled search term.
func (f *SearchFilter) Term() string {
	return f.debouncer.Value()
}

// Close cancels any pending reload.
func (f *SearchFilter) Close() {
	f.debouncer.Stop()
}
