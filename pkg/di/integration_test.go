package di

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-listsync/cache"
	"github.com/goliatone/go-listsync/catalog"
	"github.com/goliatone/go-listsync/internal/stubapi"
	"github.com/goliatone/go-listsync/internal/stubstore"
	"github.com/goliatone/go-listsync/pagination"
	"github.com/goliatone/go-listsync/pkg/testsupport"
	"github.com/goliatone/go-listsync/query"
	"github.com/goliatone/go-listsync/reorder"
)

const integrationSecret = "integration-secret-0123456789"

type harness struct {
	t         *testing.T
	db        *stubstore.Store
	server    *stubapi.Server
	clock     *testsupport.FakeClock
	container *Container
}

func newHarness(t *testing.T, pageSize int) *harness {
	t.Helper()
	ctx := context.Background()

	db, err := stubstore.Open(stubstore.DriverSQLite, stubstore.MemoryDSN)
	if err != nil {
		t.Fatalf("open stub store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Init(ctx); err != nil {
		t.Fatalf("init stub store: %v", err)
	}

	clk := testsupport.NewFakeClock(time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC))
	auth, err := stubapi.NewAuthenticator(integrationSecret, clk)
	if err != nil {
		t.Fatalf("authenticator: %v", err)
	}
	token, err := auth.Mint("admin", time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	server := stubapi.NewServer(db, stubapi.WithAuthenticator(auth))
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	cfg := testConfig(ts.URL)
	cfg.Token = token
	cfg.PageSize = pageSize
	container, err := NewContainer(cfg,
		WithClock(clk),
		WithLogger(log.New(io.Discard, "", 0)),
	)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	t.Cleanup(func() { _ = container.Close() })

	return &harness{t: t, db: db, server: server, clock: clk, container: container}
}

func (h *harness) seed(resource string, records ...any) []string {
	h.t.Helper()
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			h.t.Fatalf("marshal seed: %v", err)
		}
		body, err := h.db.Create(context.Background(), resource, raw)
		if err != nil {
			h.t.Fatalf("seed %s: %v", resource, err)
		}
		var id struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(body, &id)
		ids = append(ids, id.ID)
	}
	return ids
}

func (h *harness) seedCars(n int) {
	h.t.Helper()
	for i := 0; i < n; i++ {
		h.seed(catalog.Cars, catalog.Vehicle{Make: "Porsche", Model: fmt.Sprintf("911 #%02d", i), Year: 1990, Price: int64(1000 + i)})
	}
}

func (h *harness) listHits(resource string) int {
	return h.server.Faults().Hits(stubapi.ActionList, resource)
}

func models(items []catalog.Vehicle) []string {
	out := make([]string, len(items))
	for i, v := range items {
		out[i] = v.Make + " " + v.Model
	}
	return out
}

func titles(items []catalog.HeroSlide) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = s.Title
	}
	return out
}

func TestIntegration_SearchSettlesIntoOneFetch(t *testing.T) {
	h := newHarness(t, 20)
	h.seedCars(3)
	h.seed(catalog.Cars, catalog.Vehicle{Make: "Ferrari", Model: "F40", Year: 1990, Price: 2400000})
	ctx := context.Background()

	cars := Resource[catalog.Vehicle](h.container, catalog.Cars)
	list := cars.Paged(query.F(query.SortField, catalog.SortNewest))
	if _, err := list.Load(ctx); err != nil {
		t.Fatalf("initial load: %v", err)
	}
	before := h.listHits(catalog.Cars)

	search := h.container.SearchFilter(ctx, list)
	defer search.Close()

	typed := ""
	for _, r := range "Ferrari" {
		typed += string(r)
		search.Input(typed)
		h.clock.Advance(100 * time.Millisecond)
	}
	if got := h.listHits(catalog.Cars); got != before {
		t.Fatalf("expected no fetch while typing, got %d new", got-before)
	}

	h.clock.Advance(400 * time.Millisecond)
	if got := h.listHits(catalog.Cars); got != before+1 {
		t.Fatalf("expected exactly one fetch after the quiet period, got %d", got-before)
	}

	view := list.View()
	if term, _ := view.Key.Get(query.SearchField); term != "Ferrari" {
		t.Errorf("expected searchTerm=Ferrari in %s", view.Key)
	}
	if got := models(view.Items); len(got) != 1 || got[0] != "Ferrari F40" {
		t.Errorf("expected only the Ferrari, got %v", got)
	}
}

func TestIntegration_PreviousPageServedFromCache(t *testing.T) {
	h := newHarness(t, 20)
	h.seedCars(25)
	ctx := context.Background()

	list := Resource[catalog.Vehicle](h.container, catalog.Cars).Paged()

	first, err := list.Load(ctx)
	if err != nil {
		t.Fatalf("load page 1: %v", err)
	}
	if len(first.Items) != 20 || !first.HasNext || first.HasPrevious {
		t.Fatalf("unexpected page 1: %d items next=%v prev=%v", len(first.Items), first.HasNext, first.HasPrevious)
	}

	second, err := list.Next(ctx)
	if err != nil {
		t.Fatalf("load page 2: %v", err)
	}
	if len(second.Items) != 5 || second.HasNext || second.PageIndex != 1 {
		t.Fatalf("unexpected page 2: %d items next=%v index=%d", len(second.Items), second.HasNext, second.PageIndex)
	}
	if second.Key.Cursor() == "" {
		t.Error("expected page 2 to be addressed by the server cursor")
	}
	if got := h.listHits(catalog.Cars); got != 2 {
		t.Fatalf("expected 2 list requests, got %d", got)
	}

	back, err := list.Previous(ctx)
	if err != nil {
		t.Fatalf("previous: %v", err)
	}
	if got := h.listHits(catalog.Cars); got != 2 {
		t.Errorf("expected page 1 from cache, got %d list requests", got)
	}
	if back.PageIndex != 0 || back.Freshness != cache.Fresh {
		t.Errorf("expected fresh page 1, got index=%d freshness=%s", back.PageIndex, back.Freshness)
	}
	if fmt.Sprint(models(back.Items)) != fmt.Sprint(models(first.Items)) {
		t.Error("expected page 1 items to be unchanged")
	}

	h.clock.Advance(h.container.Config().StaleTime)
	if _, err := list.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := h.listHits(catalog.Cars); got != 3 {
		t.Errorf("expected stale page 1 to be fetched again, got %d list requests", got)
	}
}

func TestIntegration_ReorderFailureRestoresOrder(t *testing.T) {
	h := newHarness(t, 20)
	h.seed(catalog.HeroSlides,
		catalog.HeroSlide{Title: "A", ImageURL: "/a.jpg"},
		catalog.HeroSlide{Title: "B", ImageURL: "/b.jpg"},
		catalog.HeroSlide{Title: "C", ImageURL: "/c.jpg"},
	)
	ctx := context.Background()

	slides := Resource[catalog.HeroSlide](h.container, catalog.HeroSlides)
	list := slides.Paged()
	if _, err := list.Load(ctx); err != nil {
		t.Fatalf("load slides: %v", err)
	}

	engine := slides.Reorderer(list.CurrentKey())
	if err := engine.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := engine.Drag(2, 0); err != nil {
		t.Fatalf("drag: %v", err)
	}
	if got := titles(list.View().Items); fmt.Sprint(got) != "[C A B]" {
		t.Fatalf("expected optimistic [C A B], got %v", got)
	}

	h.server.Faults().Inject(stubapi.ActionReorder, catalog.HeroSlides, stubapi.Fault{Status: http.StatusInternalServerError, Times: 1})

	err := engine.Commit(ctx)
	if err == nil {
		t.Fatal("expected commit to fail")
	}
	var gerr *goerrors.Error
	if !goerrors.As(err, &gerr) || gerr.Code != http.StatusInternalServerError {
		t.Fatalf("expected HTTP 500 error, got %v", err)
	}
	if !goerrors.IsCategory(err, goerrors.CategoryExternal) {
		t.Errorf("expected external category, got %v", err)
	}
	if gerr.Message == "" {
		t.Error("expected a message to show")
	}
	if got := titles(list.View().Items); fmt.Sprint(got) != "[A B C]" {
		t.Errorf("expected restored [A B C], got %v", got)
	}
	if engine.State() != reorder.Reordering {
		t.Errorf("expected engine to stay in reordering, got %s", engine.State())
	}

	res, err := h.db.List(ctx, catalog.HeroSlides, stubstore.ListParams{})
	if err != nil {
		t.Fatalf("server list: %v", err)
	}
	var stored []catalog.HeroSlide
	for _, raw := range res.Items {
		var s catalog.HeroSlide
		_ = json.Unmarshal(raw, &s)
		stored = append(stored, s)
	}
	if fmt.Sprint(titles(stored)) != "[A B C]" {
		t.Errorf("expected server order untouched, got %v", titles(stored))
	}

	if err := engine.Drag(2, 0); err != nil {
		t.Fatalf("drag again: %v", err)
	}
	if err := engine.Commit(ctx); err != nil {
		t.Fatalf("retry commit: %v", err)
	}
	if engine.State() != reorder.Viewing {
		t.Errorf("expected viewing after commit, got %s", engine.State())
	}

	view, err := list.Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := titles(view.Items); fmt.Sprint(got) != "[C A B]" {
		t.Errorf("expected server order [C A B], got %v", got)
	}
	for i, s := range view.Items {
		if s.Position != i {
			t.Errorf("slide %s: expected position %d, got %d", s.Title, i, s.Position)
		}
	}
}

func TestIntegration_CreateInvalidatesListing(t *testing.T) {
	h := newHarness(t, 20)
	h.seedCars(2)
	ctx := context.Background()

	cars := Resource[catalog.Vehicle](h.container, catalog.Cars)
	list := cars.Paged(query.F(query.SortField, catalog.SortNewest))
	if _, err := list.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	resp, err := cars.Create(ctx, catalog.Vehicle{Make: "Lancia", Model: "Stratos", Year: 1974, Price: 450000})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var created catalog.Vehicle
	if err := resp.Decode(&created); err != nil || created.ID == "" {
		t.Fatalf("expected created record in response, got %+v (%v)", created, err)
	}

	if view := list.View(); view.Freshness != cache.Stale {
		t.Fatalf("expected listing to be stale after create, got %s", view.Freshness)
	}

	view, err := list.Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(view.Items) != 3 || view.Items[0].ID != created.ID {
		t.Errorf("expected new car first, got %v", models(view.Items))
	}
	if got := h.listHits(catalog.Cars); got != 2 {
		t.Errorf("expected 2 list requests, got %d", got)
	}
}

func TestIntegration_UpdateAndDelete(t *testing.T) {
	h := newHarness(t, 20)
	h.seedCars(2)
	ctx := context.Background()

	cars := Resource[catalog.Vehicle](h.container, catalog.Cars)
	list := cars.Paged()
	view, err := list.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	target := view.Items[0]
	target.Price = 1
	if _, err := cars.Update(ctx, target); err != nil {
		t.Fatalf("update: %v", err)
	}
	view, _ = list.Load(ctx)
	if view.Items[0].Price != 1 {
		t.Errorf("expected updated price, got %d", view.Items[0].Price)
	}

	if _, err := cars.Delete(ctx, target.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	view, _ = list.Load(ctx)
	if len(view.Items) != 1 {
		t.Errorf("expected one car after delete, got %d", len(view.Items))
	}

	_, err = cars.Delete(ctx, target.ID)
	if !goerrors.IsNotFound(err) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
	if view := list.View(); view.Freshness != cache.Fresh {
		t.Errorf("expected failed delete to leave the cache fresh, got %s", view.Freshness)
	}
}

func TestIntegration_CreateRejectedClientSide(t *testing.T) {
	h := newHarness(t, 20)
	cars := Resource[catalog.Vehicle](h.container, catalog.Cars)

	_, err := cars.Create(context.Background(), catalog.Vehicle{Make: "Ferrari"})
	if !goerrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := h.server.Faults().Hits(stubapi.ActionCreate, catalog.Cars); got != 0 {
		t.Errorf("expected no request for an invalid record, got %d", got)
	}
}

func TestIntegration_InfiniteScroll(t *testing.T) {
	h := newHarness(t, 10)
	h.seedCars(25)
	ctx := context.Background()

	cars := Resource[catalog.Vehicle](h.container, catalog.Cars)
	feed := cars.Infinite(query.F(query.SortField, catalog.SortOldest))

	for feed.HasMore() {
		if _, err := feed.FetchNext(ctx); err != nil {
			t.Fatalf("fetch next: %v", err)
		}
	}
	if feed.Len() != 25 {
		t.Fatalf("expected 25 cars, got %d", feed.Len())
	}
	if got := h.listHits(catalog.Cars); got != 3 {
		t.Errorf("expected 3 page requests, got %d", got)
	}

	if _, err := cars.Create(ctx, catalog.Vehicle{Make: "Lancia", Model: "Stratos", Year: 1974}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := feed.Revalidate(ctx); err != nil {
		t.Fatalf("revalidate: %v", err)
	}
	if feed.Len() != 26 {
		t.Errorf("expected 26 cars after revalidate, got %d", feed.Len())
	}
	items := feed.Items()
	if last := items[len(items)-1]; last.Model != "Stratos" {
		t.Errorf("expected new car at the end of the oldest-first feed, got %s", last.Model)
	}
}

func TestIntegration_MissingToken(t *testing.T) {
	h := newHarness(t, 20)

	cfg := h.container.Config()
	cfg.Token = ""
	container, err := NewContainer(cfg, WithLogger(log.New(io.Discard, "", 0)))
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer container.Close()

	list := Resource[catalog.Vehicle](container, catalog.Cars).Paged()
	view, err := list.Load(context.Background())
	if !goerrors.IsAuth(err) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if view.Status != cache.StatusError || view.Err == nil {
		t.Errorf("expected error view, got status=%s err=%v", view.Status, view.Err)
	}
	if got := h.listHits(catalog.Cars); got != 0 {
		t.Errorf("expected no request without a token, got %d", got)
	}
}

func BenchmarkPagedList_CachedPage(b *testing.B) {
	var calls int
	store, err := cache.NewStore(cache.DefaultConfig())
	if err != nil {
		b.Fatalf("NewStore() failed: %v", err)
	}
	fetch := func(ctx context.Context, key query.Key) (pagination.Page[catalog.Vehicle], error) {
		calls++
		return pagination.Page[catalog.Vehicle]{Items: make([]catalog.Vehicle, 20)}, nil
	}
	list := pagination.NewPagedList(store, query.New(catalog.Cars, query.F(query.LimitField, 20)), fetch)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := list.Load(ctx); err != nil {
			b.Fatal(err)
		}
	}
	b.StopTimer()
	if calls != 1 {
		b.Errorf("expected a single fetch, got %d", calls)
	}
}
