package cache

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-listsync/clock"
	"github.com/goliatone/go-listsync/internal/cacheinfra"
	"github.com/goliatone/go-listsync/query"
)

// Ticket identifies one fetch started with StartFetch. A ticket only
// resolves the fetch it was issued for: once the store is reset or the
// entry evicted, the ticket is stale and its result is dropped.
type Ticket struct {
	Key        query.Key
	generation uint64
	epoch      uint64
}

// Valid reports whether the ticket was issued by StartFetch.
func (t Ticket) Valid() bool {
	return t.generation != 0
}

type record struct {
	entry             Entry
	generation        uint64
	invalidatedInLoad bool
}

// MemoryStore is the default Store. Entries live in a sturdyc backed
// storage; every transition runs under a single mutex so it is atomic from
// the caller's point of view.
type MemoryStore struct {
	mu       sync.Mutex
	records  *cacheinfra.Storage[*record]
	inFlight *xsync.MapOf[string, uint64]
	epoch    uint64
	nextGen  uint64
	cfg      Config
	clock    clock.Clock
	logger   Logger
	stats    *Stats
}

var _ Store = (*MemoryStore)(nil)

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithClock sets the time source used for timestamps and staleness.
func WithClock(c clock.Clock) Option {
	return func(s *MemoryStore) {
		s.clock = clock.OrReal(c)
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l Logger) Option {
	return func(s *MemoryStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore constructs the default store implementation using the provided configuration.
func NewStore(cfg Config, opts ...Option) (*MemoryStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	records, err := cacheinfra.NewStorage[*record](cfg.toInternal())
	if err != nil {
		return nil, err
	}

	s := &MemoryStore{
		records:  records,
		inFlight: xsync.NewMapOf[string, uint64](),
		cfg:      cfg,
		clock:    clock.Real{},
		logger:   NopLogger,
		stats:    &Stats{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Stats exposes the store counters.
func (s *MemoryStore) Stats() *Stats {
	return s.stats
}

// Read implements Store.
func (s *MemoryStore) Read(key query.Key) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.load(key.String())
	return s.snapshot(rec)
}

// StartFetch implements Store.
func (s *MemoryStore) StartFetch(key query.Key) (Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key.String()
	rec := s.load(k)
	if rec.entry.Status == StatusLoading {
		s.stats.FetchesDeduplicated.Add(1)
		return Ticket{}, false
	}

	s.nextGen++
	rec.generation = s.nextGen
	rec.invalidatedInLoad = false
	rec.entry.Status = StatusLoading
	s.records.Set(k, rec)
	s.inFlight.Store(k, rec.generation)
	s.stats.FetchesStarted.Add(1)

	return Ticket{Key: key, generation: rec.generation, epoch: s.epoch}, true
}

// Resolve implements Store.
func (s *MemoryStore) Resolve(ticket Ticket, data any) bool {
	return s.finish(ticket, data, nil)
}

// Reject implements Store. It never fails; the error is kept in the entry.
func (s *MemoryStore) Reject(ticket Ticket, err error) bool {
	return s.finish(ticket, nil, err)
}

func (s *MemoryStore) finish(ticket Ticket, data any, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := ticket.Key.String()
	rec, ok := s.records.Get(k)
	if !ok || !ticket.Valid() || ticket.epoch != s.epoch ||
		rec.generation != ticket.generation || rec.entry.Status != StatusLoading {
		// the record may have been evicted while loading
		if ticket.Valid() && ticket.epoch == s.epoch {
			if gen, running := s.inFlight.Load(k); running && gen == ticket.generation {
				s.inFlight.Delete(k)
			}
		}
		s.stats.StaleDiscarded.Add(1)
		s.logger.Printf("cache: discarding stale result for %s", k)
		return false
	}

	now := s.clock.Now()
	rec.entry.LastFetchedAt = now
	rec.entry.Invalidated = rec.invalidatedInLoad
	rec.invalidatedInLoad = false

	if err != nil {
		rec.entry.Status = StatusError
		rec.entry.Err = err
		s.stats.FetchesRejected.Add(1)
	} else {
		rec.entry.Status = StatusSuccess
		rec.entry.Data = data
		rec.entry.Err = nil
		rec.entry.StaleAfter = time.Time{}
		if s.cfg.StaleTime > 0 {
			rec.entry.StaleAfter = now.Add(s.cfg.StaleTime)
		}
		s.stats.FetchesResolved.Add(1)
	}

	s.records.Set(k, rec)
	s.inFlight.Delete(k)
	return true
}

// Write implements Store.
func (s *MemoryStore) Write(key query.Key, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key.String()
	rec := s.load(k)
	rec.entry.Data = data
	s.records.Set(k, rec)
	s.stats.OptimisticWrites.Add(1)
}

// Invalidate implements Store.
func (s *MemoryStore) Invalidate(target string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, k := range s.records.KeysWithPrefix(target) {
		if !query.Matches(k, target) {
			continue
		}
		rec, ok := s.records.Get(k)
		if !ok {
			continue
		}
		if rec.entry.Status == StatusLoading {
			rec.invalidatedInLoad = true
		} else {
			rec.entry.Invalidated = true
		}
		s.records.Set(k, rec)
		count++
	}

	s.stats.Invalidations.Add(int64(count))
	return count
}

// Reset implements Store. Fetches in flight at reset time are discarded when
// they complete.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records.Clear()
	s.inFlight.Clear()
	s.epoch++
	s.stats.Resets.Add(1)
}

// Keys returns every key currently held.
func (s *MemoryStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records.Keys()
}

// InFlight reports whether a fetch for key is running. It does not take the
// store lock.
func (s *MemoryStore) InFlight(key query.Key) bool {
	_, ok := s.inFlight.Load(key.String())
	return ok
}

// load returns the record for k, creating an idle one when absent.
// Callers hold s.mu.
func (s *MemoryStore) load(k string) *record {
	if rec, ok := s.records.Get(k); ok {
		return rec
	}
	rec := &record{entry: Entry{Key: k, Status: StatusIdle}}
	s.records.Set(k, rec)
	return rec
}

func (s *MemoryStore) snapshot(rec *record) Entry {
	entry := rec.entry
	entry.Freshness = entry.freshness(s.clock.Now())
	return entry
}
