package debounce

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-listsync/pkg/testsupport"
	"github.com/goliatone/go-listsync/query"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	values []string
}

func (r *recorder) settle(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.values...)
}

func TestDebouncer_EmitsLastValueAfterQuietPeriod(t *testing.T) {
	clk := testsupport.NewFakeClock(epoch)
	rec := &recorder{}
	d := New(500*time.Millisecond, rec.settle, WithClock(clk))

	d.Observe("a")
	clk.Advance(200 * time.Millisecond)
	d.Observe("ab")
	clk.Advance(499 * time.Millisecond)

	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("expected no emission inside the window, got %v", got)
	}
	if !d.Pending() {
		t.Error("expected a pending value")
	}

	clk.Advance(time.Millisecond)

	got := rec.snapshot()
	if len(got) != 1 || got[0] != "ab" {
		t.Fatalf("expected [ab], got %v", got)
	}
	if d.Value() != "ab" {
		t.Errorf("expected settled value ab, got %q", d.Value())
	}
	if d.Pending() {
		t.Error("expected nothing pending after settle")
	}
	if clk.Pending() != 0 {
		t.Errorf("expected no live timers, got %d", clk.Pending())
	}
}

func TestDebouncer_SingleTimerPerBurst(t *testing.T) {
	clk := testsupport.NewFakeClock(epoch)
	rec := &recorder{}
	d := New(300*time.Millisecond, rec.settle, WithClock(clk))

	for _, v := range []string{"p", "po", "por"} {
		d.Observe(v)
		if clk.Pending() != 1 {
			t.Fatalf("expected exactly one pending timer, got %d", clk.Pending())
		}
		clk.Advance(50 * time.Millisecond)
	}
}

func TestDebouncer_EqualValueNotReemitted(t *testing.T) {
	clk := testsupport.NewFakeClock(epoch)
	rec := &recorder{}
	d := New(100*time.Millisecond, rec.settle, WithClock(clk))

	d.Observe("x")
	clk.Advance(100 * time.Millisecond)
	d.Observe("xy")
	d.Observe("x")
	clk.Advance(100 * time.Millisecond)

	if got := rec.snapshot(); len(got) != 1 {
		t.Fatalf("expected one emission, got %v", got)
	}

	// back to the initial zero value
	d.Observe("")
	clk.Advance(100 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 2 || got[1] != "" {
		t.Fatalf("expected clearing to emit, got %v", got)
	}
}

func TestDebouncer_StopCancelsPendingEmission(t *testing.T) {
	clk := testsupport.NewFakeClock(epoch)
	rec := &recorder{}
	d := New(100*time.Millisecond, rec.settle, WithClock(clk))

	d.Observe("gone")
	d.Stop()
	clk.Advance(time.Second)

	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("expected no emission after Stop, got %v", got)
	}

	d.Observe("ignored")
	clk.Advance(time.Second)
	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("expected Observe after Stop to be ignored, got %v", got)
	}
}

func TestDebouncer_RealClock(t *testing.T) {
	done := make(chan int, 1)
	d := New(10*time.Millisecond, func(v int) { done <- v })

	d.Observe(1)
	d.Observe(2)

	select {
	case v := <-done:
		if v != 2 {
			t.Errorf("expected 2, got %d", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for settle")
	}
}

type fakeList struct {
	mu      sync.Mutex
	applied []string
	err     error
}

func (f *fakeList) ApplyFilter(_ context.Context, name string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, name+"="+value.(string))
	return f.err
}

func (f *fakeList) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.applied...)
}

func TestSearchFilter_TypingProducesSingleFetch(t *testing.T) {
	clk := testsupport.NewFakeClock(epoch)
	list := &fakeList{}
	f := NewSearchFilter(context.Background(), list, WithDebounceOptions(WithClock(clk)))
	defer f.Close()

	term := "Ferrari"
	for i := 1; i <= len(term); i++ {
		f.Input(term[:i])
		clk.Advance(100 * time.Millisecond)
	}

	// last keystroke was 100ms ago, the window closes 400ms from now
	clk.Advance(399 * time.Millisecond)
	if got := list.calls(); len(got) != 0 {
		t.Fatalf("expected no reload inside the window, got %v", got)
	}

	clk.Advance(time.Millisecond)

	got := list.calls()
	if len(got) != 1 {
		t.Fatalf("expected exactly one reload, got %v", got)
	}
	if got[0] != query.SearchField+"=Ferrari" {
		t.Errorf("unexpected filter %q", got[0])
	}
	if f.Term() != "Ferrari" {
		t.Errorf("expected term Ferrari, got %q", f.Term())
	}
}

func TestSearchFilter_CustomFieldAndErrors(t *testing.T) {
	clk := testsupport.NewFakeClock(epoch)
	list := &fakeList{err: errors.New("boom")}
	var reported error

	f := NewSearchFilter(context.Background(), list,
		WithField("make"),
		WithDelay(50*time.Millisecond),
		WithErrorHandler(func(err error) { reported = err }),
		WithDebounceOptions(WithClock(clk)),
	)

	f.Input("Porsche")
	clk.Advance(50 * time.Millisecond)

	if got := list.calls(); len(got) != 1 || got[0] != "make=Porsche" {
		t.Fatalf("unexpected calls %v", got)
	}
	if reported == nil {
		t.Error("expected reload error to reach the handler")
	}

	f.Close()
	f.Input("BMW")
	clk.Advance(time.Second)
	if got := list.calls(); len(got) != 1 {
		t.Errorf("expected no reload after Close, got %v", got)
	}
}
