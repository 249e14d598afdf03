package cache

import (
	"context"
	"sync"

	"pick-allocation-service/internal/ports"
)

// MemoryDistanceCache keeps distances for the life of the process.
type MemoryDistanceCache struct {
	mu sync.RWMutex
	m  map[string]map[string]ports.DistanceResult
}

func NewMemoryDistanceCache() *MemoryDistanceCache {
	return &MemoryDistanceCache{m: make(map[string]map[string]ports.DistanceResult)}
}

func (c *MemoryDistanceCache) GetMany(_ context.Context, origin string, destinations []string) (map[string]ports.DistanceResult, error) {
	if err := validateOrigin("get memory distance cache", origin); err != nil {
		return nil, err
	}

	keys := uniqueKeys(destinations)
	out := make(map[string]ports.DistanceResult, len(keys))

	c.mu.RLock()
	defer c.mu.RUnlock()
	row := c.m[origin]
	for _, k := range keys {
		if r, ok := row[k]; ok {
			out[k] = r
		}
	}
	return out, nil
}

func (c *MemoryDistanceCache) PutMany(_ context.Context, origin string, results map[string]ports.DistanceResult) error {
	if err := validateOrigin("put memory distance cache", origin); err != nil {
		return err
	}
	if err := validateResults("put memory distance cache", results); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	row, ok := c.m[origin]
	if !ok {
		row = make(map[string]ports.DistanceResult, len(results))
		c.m[origin] = row
	}
	for k, r := range results {
		row[k] = r
	}
	return nil
}

// Len is the number of cached pairs.
func (c *MemoryDistanceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, row := range c.m {
		n += len(row)
	}
	return n
}
