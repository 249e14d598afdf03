package cache

import (
	"errors"
	"strings"

	"pick-allocation-service/internal/ports"
)

var errNilBackend = errors.New("distance cache: backend is nil")

// uniqueKeys trims, drops empties and deduplicates destination keys, keeping
// first-seen order.
func uniqueKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func validateOrigin(op, origin string) error {
	if strings.TrimSpace(origin) == "" {
		return errors.New(op + ": origin must not be empty")
	}
	return nil
}

func validateResults(op string, results map[string]ports.DistanceResult) error {
	for dest, r := range results {
		if strings.TrimSpace(dest) == "" {
			return errors.New(op + ": empty destination key")
		}
		if r.Steps < 0 {
			return errors.New(op + ": negative distance for " + dest)
		}
	}
	return nil
}
