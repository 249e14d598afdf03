package ports

import "context"

// Port: persistent origin->destination distance cache. Keys are position keys
// ("x,y") prefixed by the layout they were computed for.
type DistanceCache interface {
	GetMany(ctx context.Context, origin string, destinations []string) (map[string]DistanceResult, error)
	PutMany(ctx context.Context, origin string, results map[string]DistanceResult) error
}
