package cache

import "time"

// Status is the fetch state of an entry.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Freshness tells readers whether the entry data can be shown as is.
type Freshness int

const (
	// Fresh data can be served without a network call.
	Fresh Freshness = iota
	// Stale data is still served but the next read should re-fetch.
	Stale
	// Fetching means a fetch for the key is in flight.
	Fetching
)

func (f Freshness) String() string {
	switch f {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	case Fetching:
		return "fetching"
	default:
		return "unknown"
	}
}

// Entry is a snapshot of one cached query result. Entries returned by the
// store are copies; mutating them has no effect on the store.
type Entry struct {
	Key           string
	Status        Status
	Freshness     Freshness
	Data          any
	Err           error
	LastFetchedAt time.Time
	StaleAfter    time.Time
	// Invalidated is set by Store.Invalidate and cleared by the next
	// successful fetch.
	Invalidated bool
}

// NeedsFetch reports whether a reader should start a fetch for the entry.
func (e Entry) NeedsFetch() bool {
	return e.Freshness == Stale
}

// HasData reports whether the entry carries data from a fetch or an
// optimistic write. Stale entries keep their data.
func (e Entry) HasData() bool {
	return e.Data != nil
}

// DataAs returns the entry data as T.
func DataAs[T any](e Entry) (T, bool) {
	v, ok := e.Data.(T)
	return v, ok
}

// freshness derives the tri-state at time now.
func (e Entry) freshness(now time.Time) Freshness {
	switch {
	case e.Status == StatusLoading:
		return Fetching
	case e.Status == StatusIdle, e.Status == StatusError, e.Invalidated:
		return Stale
	case !e.StaleAfter.IsZero() && !now.Before(e.StaleAfter):
		return Stale
	default:
		return Fresh
	}
}
