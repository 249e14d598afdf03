package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"pick-allocation-service/internal/adapters/distance"
	"pick-allocation-service/internal/config"
	"pick-allocation-service/internal/domain"
	"pick-allocation-service/internal/platform/obs"
	"pick-allocation-service/internal/ports"
	"pick-allocation-service/internal/services"
)

// App is the composition root: configuration, fleet profiles and the distance
// cache, wired into planners and comparators for a given model.
type App struct {
	Config config.Config
	Fleet  *config.Fleet

	cache      ports.DistanceCache
	closeCache func() error
}

// New wires the application from cfg. Close releases the cache connection.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := obs.SetupLogger(cfg.LogLevel, cfg.LogPretty); err != nil {
		return nil, err
	}
	obs.RegisterDefault()

	fleet, err := config.LoadFleet(cfg.FleetProfilePath)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	c, closeFn, err := config.OpenDistanceCache(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	log.Info().
		Str("distance_cache", cfg.DistanceCache).
		Int("fleet_profiles", len(fleet.Profiles)).
		Dur("solver_time_limit", cfg.SolverTimeLimit).
		Msg("planner configured")

	return &App{Config: cfg, Fleet: fleet, cache: c, closeCache: closeFn}, nil
}

func (a *App) Close() error { return a.closeCache() }

// Distances precomputes walking distances between the model's waypoints on
// its warehouse grid, reading and filling the configured cache.
func (a *App) Distances(ctx context.Context, model *domain.Model) (*domain.DistanceTable, error) {
	grid, err := distance.NewGridProvider(model.Warehouse)
	if err != nil {
		return nil, fmt.Errorf("app distances: %w", err)
	}

	var provider ports.DistanceProvider = grid
	if a.cache != nil {
		cached, err := distance.NewCachedProvider(grid, a.cache, distance.LayoutKey(model.Warehouse))
		if err != nil {
			return nil, fmt.Errorf("app distances: %w", err)
		}
		provider = cached
	}

	return services.BuildDistanceTable(ctx, model, provider, a.Config.RouteParallelism)
}

// Planner returns a planner over the model's grid distances.
func (a *App) Planner(ctx context.Context, model *domain.Model) (*services.Planner, error) {
	table, err := a.Distances(ctx, model)
	if err != nil {
		return nil, err
	}
	return services.NewPlanner(table, a.Config.Params()), nil
}

// Compare runs greedy against optimal over model.
func (a *App) Compare(ctx context.Context, model *domain.Model) (services.Comparison, error) {
	planner, err := a.Planner(ctx, model)
	if err != nil {
		return services.Comparison{}, err
	}
	return services.DefaultComparator(planner).Compare(ctx, model)
}

// Slotting analyses the model's orders and proposes a re-slotting measured in
// walked steps from dock. dock should be a waypoint of the model, such as an
// agent base, so the precomputed grid distance applies.
func (a *App) Slotting(ctx context.Context, model *domain.Model, dock domain.Position) (services.StorageAnalysis, services.SlottingProposal, error) {
	table, err := a.Distances(ctx, model)
	if err != nil {
		return services.StorageAnalysis{}, services.SlottingProposal{}, err
	}

	analysis := services.AnalyzeStorage(model.Orders)
	proposal := services.ProposeSlotting(model, table, dock, analysis)

	ev := log.Info().
		Int("products", len(analysis.Frequency)).
		Int("moves", len(proposal.Moves)).
		Float64("improvement_pct", proposal.ImprovementPct())
	if top := analysis.TopProducts(1); len(top) > 0 {
		ev = ev.Str("top_product", top[0].ProductID)
	}
	ev.Msg("slotting analysed")

	return analysis, proposal, nil
}
