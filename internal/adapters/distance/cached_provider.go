package distance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"pick-allocation-service/internal/domain"
	"pick-allocation-service/internal/platform/obs"
	"pick-allocation-service/internal/ports"
)

// CachedProvider puts a persistent distance cache in front of another provider.
//
// It coordinates:
//   - Layout-scoped cache keys
//   - Batched cache reads
//   - Origin->many lookups for cache misses only
//   - Best-effort cache write-back
//
// The provider is safe for concurrent use when the wrapped provider and the
// cache are.
type CachedProvider struct {
	next      ports.DistanceProvider
	cache     ports.DistanceCache
	namespace string
}

func NewCachedProvider(next ports.DistanceProvider, cache ports.DistanceCache, namespace string) (*CachedProvider, error) {
	if next == nil {
		return nil, errors.New("cached provider: wrapped provider is nil")
	}
	if strings.TrimSpace(namespace) == "" {
		return nil, errors.New("cached provider: namespace must be non-empty")
	}
	return &CachedProvider{next: next, cache: cache, namespace: namespace}, nil
}

func (c *CachedProvider) key(p domain.Position) string { return c.namespace + "|" + p.Key() }

// Delegate to batched path to reuse caching logic.
func (c *CachedProvider) GetDistance(ctx context.Context, origin, destination domain.Position) (ports.DistanceResult, error) {
	results, err := c.GetDistances(ctx, origin, []domain.Position{destination})
	if err != nil {
		return ports.DistanceResult{}, fmt.Errorf("get distance %s -> %s: %w", origin, destination, err)
	}

	result, ok := results[destination]
	if !ok {
		return ports.DistanceResult{}, fmt.Errorf("no distance result for %s -> %s", origin, destination)
	}
	return result, nil
}

// Compute distances from a single origin to many destinations.
func (c *CachedProvider) GetDistances(
	ctx context.Context,
	origin domain.Position,
	destinations []domain.Position,
) (_ map[domain.Position]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.cached.GetDistances")(&err)

	out := make(map[domain.Position]ports.DistanceResult, len(destinations))
	if len(destinations) == 0 {
		return out, nil
	}

	seen := make(map[domain.Position]struct{}, len(destinations))
	destList := make([]domain.Position, 0, len(destinations))
	for _, d := range destinations {
		if d == origin {
			out[d] = ports.DistanceResult{}
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		destList = append(destList, d)
	}

	if len(destList) == 0 {
		return out, nil
	}

	originKey := c.key(origin)
	byKey := make(map[string]domain.Position, len(destList))
	keys := make([]string, 0, len(destList))
	for _, d := range destList {
		k := c.key(d)
		byKey[k] = d
		keys = append(keys, k)
	}

	hits := map[string]ports.DistanceResult{}
	// Check the persistent cache before computing.
	if c.cache != nil {
		hits, err = c.cache.GetMany(ctx, originKey, keys)
		if err != nil {
			return nil, fmt.Errorf("distance cache get: %w", err)
		}
	}

	misses := make([]domain.Position, 0, len(destList))
	for _, k := range keys {
		if r, ok := hits[k]; ok {
			out[byKey[k]] = r
			continue
		}
		misses = append(misses, byKey[k])
	}

	obs.DistanceCacheLookups.WithLabelValues("hit").Add(float64(len(keys) - len(misses)))
	obs.DistanceCacheLookups.WithLabelValues("miss").Add(float64(len(misses)))

	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := c.fetch(ctx, origin, misses)
	if err != nil {
		return nil, err
	}

	fresh := make(map[string]ports.DistanceResult, len(fetched))
	for d, r := range fetched {
		out[d] = r
		fresh[c.key(d)] = r
	}

	if c.cache != nil {
		if err := c.cache.PutMany(ctx, originKey, fresh); err != nil {
			log.Warn().Err(err).Str("origin", origin.Key()).Msg("distance cache write failed")
		}
	}

	return out, nil
}

func (c *CachedProvider) fetch(ctx context.Context, origin domain.Position, misses []domain.Position) (map[domain.Position]ports.DistanceResult, error) {
	// Prefer a single origin->many lookup when supported.
	if mp, ok := c.next.(ports.DistanceMatrixProvider); ok {
		res, err := mp.GetDistances(ctx, origin, misses)
		if err != nil {
			return nil, fmt.Errorf("fetch distances from %s: %w", origin, err)
		}
		for _, d := range misses {
			if _, ok := res[d]; !ok {
				return nil, fmt.Errorf("provider did not return distance %s -> %s", origin, d)
			}
		}
		return res, nil
	}

	res := make(map[domain.Position]ports.DistanceResult, len(misses))
	for _, d := range misses {
		r, err := c.next.GetDistance(ctx, origin, d)
		if err != nil {
			return nil, fmt.Errorf("fetch distance %s -> %s: %w", origin, d, err)
		}
		res[d] = r
	}
	return res, nil
}
