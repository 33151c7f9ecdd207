package cache

import "sync/atomic"

// Stats holds atomic counters describing store activity.
type Stats struct {
	FetchesStarted      atomic.Int64
	FetchesDeduplicated atomic.Int64
	FetchesResolved     atomic.Int64
	FetchesRejected     atomic.Int64
	StaleDiscarded      atomic.Int64
	Invalidations       atomic.Int64
	OptimisticWrites    atomic.Int64
	Resets              atomic.Int64
}

// Snapshot returns all counters as a string-keyed map.
func (s *Stats) Snapshot() map[string]int64 {
	return map[string]int64{
		"fetches_started":      s.FetchesStarted.Load(),
		"fetches_deduplicated": s.FetchesDeduplicated.Load(),
		"fetches_resolved":     s.FetchesResolved.Load(),
		"fetches_rejected":     s.FetchesRejected.Load(),
		"stale_discarded":      s.StaleDiscarded.Load(),
		"invalidations":        s.Invalidations.Load(),
		"optimistic_writes":    s.OptimisticWrites.Load(),
		"resets":               s.Resets.Load(),
	}
}
