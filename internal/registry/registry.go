// Package registry tracks which stories are on the map.
package registry

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mapofsmiles/companion/internal/domain"
	"github.com/mapofsmiles/companion/internal/metrics"
)

// MarkerRegistry owns the set of rendered story ids. It is the only path
// that issues commands to the renderer, so its set always equals what the
// renderer shows.
type MarkerRegistry struct {
	mu       sync.Mutex
	stories  map[string]*domain.Story
	renderer domain.Renderer
	logger   *zap.Logger
}

func New(renderer domain.Renderer, logger *zap.Logger) *MarkerRegistry {
	return &MarkerRegistry{
		stories:  make(map[string]*domain.Story),
		renderer: renderer,
		logger:   logger,
	}
}

func (r *MarkerRegistry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.stories[id]
	return ok
}

// Register adds the story and renders it. It returns false if the id is
// already present, in which case nothing is rendered.
func (r *MarkerRegistry) Register(story *domain.Story) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.stories[story.ID]; ok {
		return false
	}
	r.stories[story.ID] = story
	r.renderer.AddMarker(story)
	metrics.SetMarkers(len(r.stories))

	r.logger.Debug("marker added",
		zap.String("story_id", story.ID),
		zap.Bool("local", story.IsLocal()),
	)
	return true
}

// Clear removes every marker.
func (r *MarkerRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.stories)
	r.stories = make(map[string]*domain.Story)
	r.renderer.ClearMarkers()
	metrics.SetMarkers(0)

	r.logger.Debug("markers cleared", zap.Int("count", n))
}

func (r *MarkerRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stories)
}

// Snapshot returns the rendered stories, newest first.
func (r *MarkerRegistry) Snapshot() []*domain.Story {
	r.mu.Lock()
	out := make([]*domain.Story, 0, len(r.stories))
	for _, s := range r.stories {
		out = append(out, s)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
