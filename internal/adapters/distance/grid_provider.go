package distance

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"pick-allocation-service/internal/domain"
	"pick-allocation-service/internal/platform/obs"
	"pick-allocation-service/internal/ports"
)

// GridProvider computes shortest walking distances around blocked cells with a
// breadth-first search over the warehouse grid. Moves are 4-connected.
//
// The provider only reads the warehouse and is safe for concurrent use.
type GridProvider struct {
	w *domain.Warehouse
}

func NewGridProvider(w *domain.Warehouse) (*GridProvider, error) {
	if w == nil {
		return nil, errors.New("grid provider: warehouse is nil")
	}
	return &GridProvider{w: w}, nil
}

// Delegate to the batched path.
func (g *GridProvider) GetDistance(ctx context.Context, origin, destination domain.Position) (ports.DistanceResult, error) {
	results, err := g.GetDistances(ctx, origin, []domain.Position{destination})
	if err != nil {
		return ports.DistanceResult{}, err
	}
	return results[destination], nil
}

// One BFS from origin answers every destination.
func (g *GridProvider) GetDistances(
	ctx context.Context,
	origin domain.Position,
	destinations []domain.Position,
) (_ map[domain.Position]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.grid.GetDistances")(&err)

	if !g.w.Walkable(origin) {
		return nil, fmt.Errorf("grid distance: origin %s is not walkable", origin)
	}

	dist := g.bfs(origin)

	out := make(map[domain.Position]ports.DistanceResult, len(destinations))
	for _, d := range destinations {
		steps, ok := dist[d]
		if !ok {
			return nil, fmt.Errorf("grid distance: %s unreachable from %s", d, origin)
		}
		out[d] = ports.DistanceResult{Steps: steps}
	}

	return out, nil
}

func (g *GridProvider) bfs(origin domain.Position) map[domain.Position]int {
	dist := map[domain.Position]int{origin: 0}
	queue := []domain.Position{origin}
	moves := [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, m := range moves {
			next := domain.Position{X: cur.X + m[0], Y: cur.Y + m[1]}
			if !g.w.Walkable(next) {
				continue
			}
			if _, seen := dist[next]; seen {
				continue
			}
			dist[next] = dist[cur] + 1
			queue = append(queue, next)
		}
	}
	return dist
}

// LayoutKey identifies a warehouse layout so cached distances from one layout
// are never served for another. Deterministic across processes.
func LayoutKey(w *domain.Warehouse) string {
	var blocked []domain.Position
	for _, z := range w.Zones {
		for _, c := range z.Cells {
			if !w.Walkable(c) {
				blocked = append(blocked, c)
			}
		}
	}
	slices.SortFunc(blocked, func(a, b domain.Position) int {
		if a.Less(b) {
			return -1
		}
		if b.Less(a) {
			return 1
		}
		return 0
	})

	var sb strings.Builder
	sb.WriteString(strconv.Itoa(w.Rows) + "x" + strconv.Itoa(w.Cols))
	for _, b := range blocked {
		sb.WriteString(";" + b.Key())
	}

	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(sb.String())).String()
}
