// Package phylopic resolves and caches node silhouette images. Silhouettes
// are fetched through the backend proxy, cached per (uuid, color) pair for
// the life of the process, and negative-cached when the backend reports no
// image for a uuid.
package phylopic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/api"
	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/debug"
)

const (
	// maxAttempts is how many fetches a single Resolve call makes before
	// giving up on a transient failure.
	maxAttempts = 3
	// retryBaseDelay grows linearly with the attempt number.
	retryBaseDelay = 600 * time.Millisecond
	// auditConcurrency bounds parallel refetches during an audit pass.
	auditConcurrency = 4
)

// ErrMissing marks a uuid the backend has no silhouette for. The miss is
// cached; later Resolve calls for the same key return it without a fetch.
var ErrMissing = errors.New("silhouette permanently unavailable")

// Fetcher fetches one silhouette as a data-URL. *api.Client satisfies it.
type Fetcher interface {
	FetchSilhouette(ctx context.Context, uuid, color string, size int) (string, error)
}

type cacheKey struct {
	uuid  string
	color string
}

type cacheEntry struct {
	dataURL string
	missing bool
}

// Resolver caches silhouette lookups across trees. Safe for concurrent use.
type Resolver struct {
	fetcher Fetcher
	size    int

	mu    sync.Mutex
	cache map[cacheKey]cacheEntry

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewResolver creates a resolver fetching silhouettes at the given pixel
// size (0 means api.DefaultSilhouetteSize).
func NewResolver(fetcher Fetcher, size int) *Resolver {
	if size <= 0 {
		size = api.DefaultSilhouetteSize
	}
	return &Resolver{
		fetcher: fetcher,
		size:    size,
		cache:   make(map[cacheKey]cacheEntry),
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Resolve returns the data-URL for a (uuid, color) pair, fetching on a
// cache miss. A cached miss returns ErrMissing without a network call.
// Transient failures are retried with a linearly growing delay; after the
// final attempt the error is returned uncached, so a later call retries.
func (r *Resolver) Resolve(ctx context.Context, uuid, color string) (string, error) {
	key := cacheKey{uuid: uuid, color: color}

	r.mu.Lock()
	if entry, ok := r.cache[key]; ok {
		r.mu.Unlock()
		if entry.missing {
			return "", ErrMissing
		}
		return entry.dataURL, nil
	}
	r.mu.Unlock()

	return r.fetch(ctx, key)
}

// Refresh bypasses the cache (including a cached miss) and refetches,
// overwriting the entry on success. Used by the post-reveal audit.
func (r *Resolver) Refresh(ctx context.Context, uuid, color string) (string, error) {
	return r.fetch(ctx, cacheKey{uuid: uuid, color: color})
}

func (r *Resolver) fetch(ctx context.Context, key cacheKey) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		dataURL, err := r.fetcher.FetchSilhouette(ctx, key.uuid, key.color, r.size)
		switch {
		case err == nil && dataURL != "":
			r.store(key, cacheEntry{dataURL: dataURL})
			return dataURL, nil
		case errors.Is(err, api.ErrNoSilhouette):
			r.store(key, cacheEntry{missing: true})
			return "", ErrMissing
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return "", err
		}
		if err == nil {
			err = api.ErrNoSilhouette
		}
		lastErr = err
		debug.Log("silhouette fetch attempt %d/%d failed for %s: %v",
			attempt, maxAttempts, key.uuid, err)
		if attempt < maxAttempts {
			if serr := r.sleep(ctx, time.Duration(attempt)*retryBaseDelay); serr != nil {
				return "", serr
			}
		}
	}
	return "", fmt.Errorf("silhouette %s: %w", key.uuid, lastErr)
}

func (r *Resolver) store(key cacheKey, entry cacheEntry) {
	r.mu.Lock()
	r.cache[key] = entry
	r.mu.Unlock()
}

// Cached returns the cached data-URL for a pair, if a positive entry
// exists. Never triggers a fetch.
func (r *Resolver) Cached(uuid, color string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.cache[cacheKey{uuid: uuid, color: color}]
	if !ok || entry.missing {
		return "", false
	}
	return entry.dataURL, true
}

// Missing reports whether a pair has a cached miss.
func (r *Resolver) Missing(uuid, color string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.cache[cacheKey{uuid: uuid, color: color}]
	return ok && entry.missing
}

// AuditTarget is one (uuid, color) pair the audit should verify.
type AuditTarget struct {
	UUID  string
	Color string
}

// AuditResult summarizes one audit pass.
type AuditResult struct {
	Checked   int
	Recovered int
	Failed    int
}

// Audit refetches every target that lacks a positive cache entry. It runs
// once per tree, after the reveal settles: targets whose earlier fetch
// failed transiently (or was never attempted) get one more chance, cached
// misses stay missed unless the refetch now succeeds. Fetches run with
// bounded concurrency; a context cancellation aborts the pass.
func (r *Resolver) Audit(ctx context.Context, targets []AuditTarget) (AuditResult, error) {
	var pending []AuditTarget
	for _, t := range targets {
		if t.UUID == "" {
			continue
		}
		if _, ok := r.Cached(t.UUID, t.Color); !ok {
			pending = append(pending, t)
		}
	}
	result := AuditResult{Checked: len(pending)}
	if len(pending) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(auditConcurrency)
	for _, t := range pending {
		g.Go(func() error {
			_, err := r.Refresh(gctx, t.UUID, t.Color)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				result.Failed++
				return nil
			}
			result.Recovered++
			return nil
		})
	}
	err := g.Wait()
	debug.Log("silhouette audit: checked=%d recovered=%d failed=%d",
		result.Checked, result.Recovered, result.Failed)
	return result, err
}
