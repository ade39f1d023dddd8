// Package stories loads nearby stories onto the map and submits new ones.
package stories

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mapofsmiles/companion/internal/domain"
	"github.com/mapofsmiles/companion/internal/metrics"
)

// Registry is the marker set stories are rendered through.
type Registry interface {
	Has(id string) bool
	Register(story *domain.Story) bool
	Clear()
}

// FetchState is the fetcher's position in its idle -> fetching -> idle cycle.
type FetchState int32

const (
	StateIdle FetchState = iota
	StateFetching
)

func (s FetchState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	default:
		return "unknown"
	}
}

// FetchReport describes one LoadNearby call.
type FetchReport struct {
	// Skipped is set when another fetch was in flight; no request was made.
	Skipped  bool             `json:"skipped"`
	Window   domain.GeoWindow `json:"window"`
	Received int              `json:"received"`
	Added    int              `json:"added"`
}

// Fetcher loads approved stories around a position. At most one fetch runs
// at a time; calls arriving meanwhile are dropped, not queued.
type Fetcher struct {
	store      domain.StoryStore
	registry   Registry
	loadRadius float64
	state      atomic.Int32
	logger     *zap.Logger
}

func NewFetcher(store domain.StoryStore, registry Registry, loadRadius float64, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		store:      store,
		registry:   registry,
		loadRadius: loadRadius,
		logger:     logger,
	}
}

func (f *Fetcher) State() FetchState {
	return FetchState(f.state.Load())
}

// LoadNearby queries the store around pos and registers every story not
// already on the map. radius <= 0 uses the configured load radius.
// On failure existing markers are left as they are.
func (f *Fetcher) LoadNearby(ctx context.Context, pos domain.Position, radius float64) (FetchReport, error) {
	if !f.state.CompareAndSwap(int32(StateIdle), int32(StateFetching)) {
		metrics.RecordFetch(metrics.FetchSkipped, 0, 0)
		f.logger.Debug("fetch already in flight, dropping request",
			zap.Float64("lat", pos.Lat),
			zap.Float64("lng", pos.Lng),
		)
		return FetchReport{Skipped: true}, nil
	}
	defer f.state.Store(int32(StateIdle))

	if !f.store.IsConfigured() {
		metrics.RecordFetch(metrics.FetchNotConfigured, 0, 0)
		f.logger.Warn("story store not configured, skipping nearby fetch")
		return FetchReport{}, domain.ErrStoreNotConfigured
	}

	if radius <= 0 {
		radius = f.loadRadius
	}
	report := FetchReport{Window: domain.ComputeWindow(pos, radius)}

	start := time.Now()
	stories, err := f.store.FindInWindow(ctx, domain.StoryQuery{
		Window: report.Window,
		Status: domain.StatusApproved,
		Limit:  domain.NearbyPageSize,
	})
	if err != nil {
		metrics.RecordFetch(metrics.FetchFailed, 0, time.Since(start).Seconds())
		f.logger.Error("failed to load nearby stories",
			zap.Float64("lat", pos.Lat),
			zap.Float64("lng", pos.Lng),
			zap.Float64("radius", radius),
			zap.Error(err),
		)
		return report, err
	}

	report.Received = len(stories)
	for _, s := range stories {
		if f.registry.Has(s.ID) {
			continue
		}
		if f.registry.Register(s) {
			report.Added++
		}
	}

	metrics.RecordFetch(metrics.FetchCompleted, report.Added, time.Since(start).Seconds())
	f.logger.Info("loaded nearby stories",
		zap.Int("received", report.Received),
		zap.Int("added", report.Added),
		zap.Duration("duration", time.Since(start)),
	)
	return report, nil
}

// ClearCache drops every marker so the next fetch renders from scratch.
func (f *Fetcher) ClearCache() {
	f.registry.Clear()
}
