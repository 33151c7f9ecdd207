package pagination

import "encoding/json"

// Page is one page of a cursor paginated listing. The wire shape is
//
//	{"data": [...], "pagination": {"nextCursor": "..." | null}}
//
// An empty NextCursor means there are no further pages.
type Page[T any] struct {
	Items      []T
	NextCursor string
}

// HasNext reports whether another page can be requested.
func (p Page[T]) HasNext() bool {
	return p.NextCursor != ""
}

type pageInfo struct {
	NextCursor *string `json:"nextCursor"`
}

type wirePage[T any] struct {
	Data       []T      `json:"data"`
	Pagination pageInfo `json:"pagination"`
}

// MarshalJSON renders the listing wire shape.
func (p Page[T]) MarshalJSON() ([]byte, error) {
	w := wirePage[T]{Data: p.Items}
	if w.Data == nil {
		w.Data = []T{}
	}
	if p.NextCursor != "" {
		cursor := p.NextCursor
		w.Pagination.NextCursor = &cursor
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the listing wire shape. A null or missing cursor maps
// to the empty cursor.
func (p *Page[T]) UnmarshalJSON(b []byte) error {
	var w wirePage[T]
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	p.Items = w.Data
	p.NextCursor = ""
	if w.Pagination.NextCursor != nil {
		p.NextCursor = *w.Pagination.NextCursor
	}
	return nil
}
