package pagination

// History tracks the cursors of the pages visited so far. The first entry is
// always the empty cursor of the first page.
type History struct {
	cursors []string
	index   int
}

// NewHistory returns a history positioned on the first page.
func NewHistory() *History {
	return &History{cursors: []string{""}}
}

// Next moves forward to the page addressed by cursor. It is a no-op, and
// returns false, for the empty cursor.
//
// When the page after the current one was already visited with the same
// cursor it is reused; otherwise the forward history is dropped and cursor
// becomes the new next page.
func (h *History) Next(cursor string) bool {
	if cursor == "" {
		return false
	}
	if h.index+1 < len(h.cursors) && h.cursors[h.index+1] == cursor {
		h.index++
		return true
	}
	h.cursors = append(h.cursors[:h.index+1], cursor)
	h.index++
	return true
}

// Previous moves back one page. It returns false on the first page.
func (h *History) Previous() bool {
	if h.index == 0 {
		return false
	}
	h.index--
	return true
}

// Reset returns to the first page and forgets every cursor.
func (h *History) Reset() {
	h.cursors = []string{""}
	h.index = 0
}

// Current returns the cursor of the current page.
func (h *History) Current() string {
	return h.cursors[h.index]
}

// PageIndex returns the zero based position of the current page.
func (h *History) PageIndex() int {
	return h.index
}

// HasPrevious reports whether Previous would move.
func (h *History) HasPrevious() bool {
	return h.index > 0
}

// Cursors returns a copy of the visited cursors.
func (h *History) Cursors() []string {
	return append([]string(nil), h.cursors...)
}
