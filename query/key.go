package query

import (
	"net/url"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator defines the delimiter used between key segments.
const KeySeparator = "::"

// Well known filter names understood by the listing endpoints.
const (
	CursorField = "cursor"
	LimitField  = "limit"
	SortField   = "sortBy"
	SearchField = "searchTerm"
)

// Filter is a single named filter value.
type Filter struct {
	Name  string
	Value any
}

// F is shorthand for building a Filter.
func F(name string, value any) Filter {
	return Filter{Name: name, Value: value}
}

// Key addresses one listing query: a resource, its filters and an optional
// page cursor. Keys are immutable values; the With* helpers return copies.
//
// The canonical form sorts filters by name and always places the cursor
// last, so Prefix is a literal string prefix of every page key that shares
// the same filters.
type Key struct {
	resource string
	fields   map[string]string
	cursor   string
}

// New builds a key for resource with the given filters. Filters with empty
// values are dropped. A filter named CursorField sets the cursor.
func New(resource string, filters ...Filter) Key {
	k := Key{resource: resource}
	for _, f := range filters {
		k = k.With(f.Name, f.Value)
	}
	return k
}

// Resource returns the resource name the key belongs to.
func (k Key) Resource() string {
	return k.resource
}

// IsZero reports whether the key was never initialized.
func (k Key) IsZero() bool {
	return k.resource == "" && len(k.fields) == 0 && k.cursor == ""
}

// With returns a copy of the key with name set to value. An empty value
// removes the filter.
func (k Key) With(name string, value any) Key {
	if name == CursorField {
		return k.WithCursor(FormatValue(value))
	}

	out := k.clone()
	if isEmpty(value) {
		delete(out.fields, name)
		return out
	}
	rendered := FormatValue(value)
	if rendered == "" {
		delete(out.fields, name)
		return out
	}
	out.fields[name] = rendered
	return out
}

// Without returns a copy of the key with the named filter removed.
func (k Key) Without(name string) Key {
	if name == CursorField {
		return k.WithCursor("")
	}
	out := k.clone()
	delete(out.fields, name)
	return out
}

// WithCursor returns a copy of the key pointing at cursor. The empty cursor
// is the first page.
func (k Key) WithCursor(cursor string) Key {
	out := k.clone()
	out.cursor = cursor
	return out
}

// Cursor returns the page cursor, empty for the first page.
func (k Key) Cursor() string {
	return k.cursor
}

// Get returns the rendered value of a filter.
func (k Key) Get(name string) (string, bool) {
	if name == CursorField {
		return k.cursor, k.cursor != ""
	}
	v, ok := k.fields[name]
	return v, ok
}

// Fields returns a copy of the filters, excluding the cursor.
func (k Key) Fields() map[string]string {
	out := make(map[string]string, len(k.fields))
	for name, v := range k.fields {
		out[name] = v
	}
	return out
}

// String renders the canonical form of the key.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.resource)
	for _, name := range k.sortedNames() {
		b.WriteString(KeySeparator)
		b.WriteString(url.QueryEscape(name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(k.fields[name]))
	}
	if k.cursor != "" {
		b.WriteString(KeySeparator)
		b.WriteString(CursorField)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(k.cursor))
	}
	return b.String()
}

// Prefix renders the key without its cursor. Every page of the same
// filtered listing shares this prefix.
func (k Key) Prefix() string {
	return k.WithCursor("").String()
}

// Equal reports whether both keys address the same query.
func (k Key) Equal(other Key) bool {
	return k.String() == other.String()
}

// SameFilters reports whether both keys differ at most by their cursor.
func (k Key) SameFilters(other Key) bool {
	return k.Prefix() == other.Prefix()
}

// Fingerprint is a compact hash of the canonical form.
func (k Key) Fingerprint() uint64 {
	return xxhash.Sum64String(k.String())
}

// Values renders the filters and cursor as request query parameters.
func (k Key) Values() url.Values {
	values := url.Values{}
	for name, v := range k.fields {
		values.Set(name, v)
	}
	if k.cursor != "" {
		values.Set(CursorField, k.cursor)
	}
	return values
}

// Matches reports whether key is addressed by target, either exactly or
// because target is a segment prefix of key. "cars" matches "cars" and
// "cars::sortBy=newest" but not "cars_archive".
func Matches(key, target string) bool {
	if target == "" {
		return false
	}
	if key == target {
		return true
	}
	return strings.HasPrefix(key, target+KeySeparator)
}

func (k Key) sortedNames() []string {
	names := make([]string, 0, len(k.fields))
	for name := range k.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (k Key) clone() Key {
	fields := make(map[string]string, len(k.fields)+1)
	for name, v := range k.fields {
		fields[name] = v
	}
	return Key{resource: k.resource, fields: fields, cursor: k.cursor}
}
