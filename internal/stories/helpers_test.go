package stories

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mapofsmiles/companion/internal/domain"
	"github.com/mapofsmiles/companion/internal/registry"
)

type recordingRenderer struct {
	mu      sync.Mutex
	markers map[string]*domain.Story
}

func (r *recordingRenderer) AddMarker(story *domain.Story) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markers == nil {
		r.markers = make(map[string]*domain.Story)
	}
	r.markers[story.ID] = story
}

func (r *recordingRenderer) ClearMarkers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markers = nil
}

func (r *recordingRenderer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.markers)
}

func newRegistry() (*registry.MarkerRegistry, *recordingRenderer) {
	renderer := &recordingRenderer{}
	return registry.New(renderer, zap.NewNop()), renderer
}

// fakeStore returns queued responses, one per call. A non-nil gate blocks
// each call until it is closed.
type fakeStore struct {
	configured bool
	responses  [][]*domain.Story
	err        error
	gate       chan struct{}
	started    chan struct{}

	calls   atomic.Int32
	mu      sync.Mutex
	queries []domain.StoryQuery
}

func (s *fakeStore) IsConfigured() bool { return s.configured }

func (s *fakeStore) FindInWindow(ctx context.Context, q domain.StoryQuery) ([]*domain.Story, error) {
	n := int(s.calls.Add(1)) - 1
	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.mu.Unlock()

	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	if n < len(s.responses) {
		return s.responses[n], nil
	}
	return nil, nil
}

func approved(id string, lat, lng float64) *domain.Story {
	return &domain.Story{
		ID:        id,
		Lat:       lat,
		Lng:       lng,
		Text:      "someone smiled at me on the tram",
		Emotion:   domain.EmotionHappy,
		CreatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		Status:    domain.StatusApproved,
	}
}

type fakeEndpoint struct {
	configured bool
	reply      *domain.SubmitResponse
	err        error

	calls []domain.Submission
}

func (e *fakeEndpoint) IsConfigured() bool { return e.configured }

func (e *fakeEndpoint) Submit(ctx context.Context, sub domain.Submission) (*domain.SubmitResponse, error) {
	e.calls = append(e.calls, sub)
	return e.reply, e.err
}

type fixedPosition struct {
	pos *domain.Position
}

func (p fixedPosition) CurrentPosition() (domain.Position, bool) {
	if p.pos == nil {
		return domain.Position{}, false
	}
	return *p.pos, true
}
