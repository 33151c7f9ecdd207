package pagination

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-listsync/cache"
	"github.com/goliatone/go-listsync/pkg/testsupport"
	"github.com/goliatone/go-listsync/query"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type car struct {
	ID   string
	Name string
}

// pageServer serves fixed pages keyed by cursor and records every fetch.
type pageServer struct {
	mu    sync.Mutex
	pages map[string]Page[car]
	calls []string
	err   error
}

func newPageServer() *pageServer {
	return &pageServer{pages: map[string]Page[car]{
		"":   {Items: []car{{"1", "Roma"}, {"2", "Huracan"}}, NextCursor: "c1"},
		"c1": {Items: []car{{"3", "911"}, {"4", "DB12"}}, NextCursor: "c2"},
		"c2": {Items: []car{{"5", "Chiron"}}},
	}}
}

func (s *pageServer) fetch(_ context.Context, key query.Key) (Page[car], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, key.String())
	if s.err != nil {
		return Page[car]{}, s.err
	}
	return s.pages[key.Cursor()], nil
}

func (s *pageServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newTestList(t *testing.T, srv *pageServer) (*PagedList[car], *testsupport.FakeClock, *cache.MemoryStore) {
	t.Helper()
	clk := testsupport.NewFakeClock(epoch)
	store, err := cache.NewStore(cache.DefaultConfig(), cache.WithClock(clk))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	base := query.New("cars", query.F(query.LimitField, 20), query.F(query.SortField, "newest"))
	return NewPagedList(store, base, srv.fetch), clk, store
}

func TestPagedList_ForwardThenBackServedFromCache(t *testing.T) {
	srv := newPageServer()
	list, _, _ := newTestList(t, srv)
	ctx := context.Background()

	view, err := list.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if view.PageIndex != 0 || len(view.Items) != 2 || !view.HasNext || view.HasPrevious {
		t.Fatalf("unexpected first page view %+v", view)
	}

	if view, err = list.Next(ctx); err != nil {
		t.Fatalf("next: %v", err)
	}
	if view.PageIndex != 1 || view.Items[0].ID != "3" {
		t.Fatalf("unexpected second page view %+v", view)
	}

	if view, err = list.Next(ctx); err != nil {
		t.Fatalf("next: %v", err)
	}
	if view.PageIndex != 2 || view.HasNext {
		t.Fatalf("unexpected last page view %+v", view)
	}
	if srv.count() != 3 {
		t.Fatalf("expected 3 fetches, got %d", srv.count())
	}

	view, err = list.Previous(ctx)
	if err != nil {
		t.Fatalf("previous: %v", err)
	}
	if view.PageIndex != 1 || view.Items[0].ID != "3" {
		t.Errorf("unexpected view after previous %+v", view)
	}
	if view.Freshness != cache.Fresh {
		t.Errorf("expected fresh page, got %s", view.Freshness)
	}
	if srv.count() != 3 {
		t.Errorf("expected previous to be served from cache, got %d fetches", srv.count())
	}

	want := []string{
		"cars::limit=20::sortBy=newest",
		"cars::limit=20::sortBy=newest::cursor=c1",
		"cars::limit=20::sortBy=newest::cursor=c2",
	}
	for i, k := range want {
		if srv.calls[i] != k {
			t.Errorf("fetch %d: expected %s, got %s", i, k, srv.calls[i])
		}
	}
}

func TestPagedList_PreviousRefetchesStalePage(t *testing.T) {
	srv := newPageServer()
	list, clk, _ := newTestList(t, srv)
	ctx := context.Background()

	list.Load(ctx)
	list.Next(ctx)
	clk.Advance(cache.DefaultStaleTime)

	if _, err := list.Previous(ctx); err != nil {
		t.Fatalf("previous: %v", err)
	}
	if srv.count() != 3 {
		t.Errorf("expected stale page to be refetched, got %d fetches", srv.count())
	}
}

func TestPagedList_NextWithoutCursorIsNoop(t *testing.T) {
	srv := newPageServer()
	list, _, _ := newTestList(t, srv)
	ctx := context.Background()

	// nothing loaded yet
	view, err := list.Next(ctx)
	if err != nil || view.PageIndex != 0 || srv.count() != 0 {
		t.Fatalf("expected no-op before load, got %+v, %v, %d fetches", view, err, srv.count())
	}

	list.Load(ctx)
	list.Next(ctx)
	list.Next(ctx)
	view, _ = list.Next(ctx)

	if view.PageIndex != 2 {
		t.Errorf("expected to stay on last page, got %d", view.PageIndex)
	}
	if srv.count() != 3 {
		t.Errorf("expected 3 fetches, got %d", srv.count())
	}

	if view, _ = list.Previous(ctx); view.PageIndex != 1 {
		t.Fatalf("expected page 1, got %d", view.PageIndex)
	}
	list.Previous(ctx)
	if view, _ = list.Previous(ctx); view.PageIndex != 0 {
		t.Errorf("expected previous on first page to stay, got %d", view.PageIndex)
	}
}

func TestPagedList_FilterChangeResetsHistory(t *testing.T) {
	srv := newPageServer()
	list, _, _ := newTestList(t, srv)
	ctx := context.Background()

	list.Load(ctx)
	list.Next(ctx)

	if list.SetFilters(list.Base()) {
		t.Error("expected identical filters to be a no-op")
	}
	if list.View().PageIndex != 1 {
		t.Fatal("expected page index to survive identical filters")
	}

	changed := list.SetFilters(list.Base().With(query.SortField, "oldest"))
	if !changed {
		t.Fatal("expected filter change")
	}
	view := list.View()
	if view.PageIndex != 0 || view.Key.Cursor() != "" {
		t.Errorf("expected reset to first page, got %+v", view)
	}
	if got, _ := view.Key.Get(query.SortField); got != "oldest" {
		t.Errorf("expected sortBy=oldest, got %s", got)
	}
}

func TestPagedList_ApplyFilterLoadsFirstPage(t *testing.T) {
	srv := newPageServer()
	list, _, _ := newTestList(t, srv)
	ctx := context.Background()

	list.Load(ctx)
	list.Next(ctx)

	if err := list.ApplyFilter(ctx, query.SearchField, "Ferrari"); err != nil {
		t.Fatalf("apply filter: %v", err)
	}

	last := srv.calls[len(srv.calls)-1]
	if last != "cars::limit=20::searchTerm=Ferrari::sortBy=newest" {
		t.Errorf("unexpected fetch key %s", last)
	}
	if list.View().PageIndex != 0 {
		t.Error("expected first page after filter")
	}
}

func TestPagedList_SupersededResultNotSurfaced(t *testing.T) {
	srv := newPageServer()
	release := make(chan struct{})
	started := make(chan struct{})

	clk := testsupport.NewFakeClock(epoch)
	store, err := cache.NewStore(cache.DefaultConfig(), cache.WithClock(clk))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	oldKey := query.New("cars", query.F(query.SearchField, "Fer"))
	newKey := query.New("cars", query.F(query.SearchField, "Ferrari"))

	var once sync.Once
	list := NewPagedList(store, oldKey, func(ctx context.Context, key query.Key) (Page[car], error) {
		if key.Equal(oldKey) {
			once.Do(func() { close(started) })
			<-release
		}
		return srv.fetch(ctx, key)
	})

	type result struct {
		view View[car]
		err  error
	}
	done := make(chan result, 1)
	go func() {
		v, err := list.Load(context.Background())
		done <- result{v, err}
	}()

	<-started
	list.SetFilters(newKey)
	close(release)
	res := <-done

	if res.err != nil {
		t.Fatalf("unexpected error %v", res.err)
	}
	if !res.view.Key.Equal(newKey) {
		t.Errorf("expected view of %s, got %s", newKey, res.view.Key)
	}
	if res.view.Items != nil {
		t.Errorf("expected no items for the new key yet, got %v", res.view.Items)
	}

	old := store.Read(oldKey)
	if old.Status != cache.StatusSuccess {
		t.Errorf("expected old result stored under its own key, got %s", old.Status)
	}
}

func TestPagedList_ErrorSurfaced(t *testing.T) {
	srv := newPageServer()
	srv.err = errors.New("backend down")
	list, _, _ := newTestList(t, srv)

	view, err := list.Load(context.Background())
	if err == nil {
		t.Fatal("expected fetch error")
	}
	if view.Status != cache.StatusError || view.Err == nil {
		t.Errorf("expected error view, got %+v", view)
	}
	if view.Freshness != cache.Stale {
		t.Errorf("expected error entry to be stale, got %s", view.Freshness)
	}

	srv.err = nil
	if _, err := list.Load(context.Background()); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if srv.count() != 2 {
		t.Errorf("expected retry fetch, got %d fetches", srv.count())
	}
}
