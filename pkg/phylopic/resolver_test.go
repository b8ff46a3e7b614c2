package phylopic

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/api"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, uuid, color string) (string, error)
}

func (f *fakeFetcher) FetchSilhouette(ctx context.Context, uuid, color string, size int) (string, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.fn(call, uuid, color)
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestResolver(f *fakeFetcher) *Resolver {
	r := NewResolver(f, 64)
	r.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return r
}

func TestResolveCachesByUUIDAndColor(t *testing.T) {
	f := &fakeFetcher{fn: func(call int, uuid, color string) (string, error) {
		return "data:image/png;base64,aaa_" + color, nil
	}}
	r := newTestResolver(f)
	ctx := context.Background()

	got1, err := r.Resolve(ctx, "uuid-1", "#111111")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got2, err := r.Resolve(ctx, "uuid-1", "#111111")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if got1 != got2 {
		t.Errorf("cache returned different values: %q vs %q", got1, got2)
	}
	if f.callCount() != 1 {
		t.Errorf("second resolve should hit the cache, fetcher called %d times", f.callCount())
	}

	// Same uuid, different color is a distinct key.
	if _, err := r.Resolve(ctx, "uuid-1", "#222222"); err != nil {
		t.Fatalf("resolve other color: %v", err)
	}
	if f.callCount() != 2 {
		t.Errorf("different color should refetch, fetcher called %d times", f.callCount())
	}
}

func TestResolveNegativeCachesMissing(t *testing.T) {
	f := &fakeFetcher{fn: func(call int, uuid, color string) (string, error) {
		return "", api.ErrNoSilhouette
	}}
	r := newTestResolver(f)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "uuid-gone", "#111111"); !errors.Is(err, ErrMissing) {
		t.Fatalf("want ErrMissing, got %v", err)
	}
	if _, err := r.Resolve(ctx, "uuid-gone", "#111111"); !errors.Is(err, ErrMissing) {
		t.Fatalf("cached miss should return ErrMissing, got %v", err)
	}
	if f.callCount() != 1 {
		t.Errorf("cached miss must not refetch, fetcher called %d times", f.callCount())
	}
	if !r.Missing("uuid-gone", "#111111") {
		t.Error("Missing() should report the cached miss")
	}
}

func TestResolveRetriesTransientFailures(t *testing.T) {
	transient := errors.New("connection reset")
	f := &fakeFetcher{fn: func(call int, uuid, color string) (string, error) {
		if call < 3 {
			return "", transient
		}
		return "data:image/png;base64,ok", nil
	}}
	r := newTestResolver(f)

	got, err := r.Resolve(context.Background(), "uuid-2", "#111111")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "data:image/png;base64,ok" {
		t.Errorf("got %q", got)
	}
	if f.callCount() != 3 {
		t.Errorf("expected 3 attempts, got %d", f.callCount())
	}
}

func TestResolveFinalFailureNotCached(t *testing.T) {
	transient := errors.New("connection reset")
	f := &fakeFetcher{fn: func(call int, uuid, color string) (string, error) {
		if call <= 3 {
			return "", transient
		}
		return "data:image/png;base64,late", nil
	}}
	r := newTestResolver(f)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "uuid-3", "#111111"); err == nil {
		t.Fatal("expected failure after exhausting attempts")
	}
	if r.Missing("uuid-3", "#111111") {
		t.Error("transient failure must not negative-cache")
	}

	// A later call starts fresh and can succeed.
	got, err := r.Resolve(ctx, "uuid-3", "#111111")
	if err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if got != "data:image/png;base64,late" {
		t.Errorf("got %q", got)
	}
}

func TestResolveStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeFetcher{fn: func(call int, uuid, color string) (string, error) {
		cancel()
		return "", context.Canceled
	}}
	r := newTestResolver(f)

	if _, err := r.Resolve(ctx, "uuid-4", "#111111"); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if f.callCount() != 1 {
		t.Errorf("cancellation must not retry, fetcher called %d times", f.callCount())
	}
}

func TestRefreshBypassesCachedMiss(t *testing.T) {
	f := &fakeFetcher{fn: func(call int, uuid, color string) (string, error) {
		if call == 1 {
			return "", api.ErrNoSilhouette
		}
		return "data:image/png;base64,recovered", nil
	}}
	r := newTestResolver(f)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "uuid-5", "#111111"); !errors.Is(err, ErrMissing) {
		t.Fatalf("want ErrMissing, got %v", err)
	}
	got, err := r.Refresh(ctx, "uuid-5", "#111111")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got != "data:image/png;base64,recovered" {
		t.Errorf("got %q", got)
	}
	if cached, ok := r.Cached("uuid-5", "#111111"); !ok || cached != got {
		t.Errorf("refresh should overwrite the miss, Cached = %q, %v", cached, ok)
	}
}

func TestAuditOnlyRefetchesUnresolved(t *testing.T) {
	f := &fakeFetcher{fn: func(call int, uuid, color string) (string, error) {
		if uuid == "uuid-dead" {
			return "", api.ErrNoSilhouette
		}
		return "data:image/png;base64," + uuid, nil
	}}
	r := newTestResolver(f)
	ctx := context.Background()

	// Seed one positive entry. The audit must leave it alone.
	if _, err := r.Resolve(ctx, "uuid-ok", "#111111"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before := f.callCount()

	result, err := r.Audit(ctx, []AuditTarget{
		{UUID: "uuid-ok", Color: "#111111"},
		{UUID: "uuid-new", Color: "#222222"},
		{UUID: "uuid-dead", Color: "#333333"},
		{UUID: "", Color: "#444444"},
	})
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if result.Checked != 2 {
		t.Errorf("Checked = %d, want 2 (cached and empty targets skipped)", result.Checked)
	}
	if result.Recovered != 1 || result.Failed != 1 {
		t.Errorf("Recovered/Failed = %d/%d, want 1/1", result.Recovered, result.Failed)
	}
	if f.callCount() == before {
		t.Error("audit should have fetched the pending targets")
	}
	if _, ok := r.Cached("uuid-new", "#222222"); !ok {
		t.Error("recovered target should now be cached")
	}
}

func TestAuditEmptyListNoWork(t *testing.T) {
	f := &fakeFetcher{fn: func(call int, uuid, color string) (string, error) {
		t.Error("fetcher should not be called")
		return "", nil
	}}
	r := newTestResolver(f)

	result, err := r.Audit(context.Background(), nil)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if result != (AuditResult{}) {
		t.Errorf("result = %+v, want zero", result)
	}
}
