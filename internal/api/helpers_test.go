package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mapofsmiles/companion/internal/config"
	"github.com/mapofsmiles/companion/internal/domain"
	"github.com/mapofsmiles/companion/internal/middleware"
	"github.com/mapofsmiles/companion/internal/session"
	"github.com/mapofsmiles/companion/internal/stories"
	"github.com/mapofsmiles/companion/pkg/response"
)

var sofia = domain.NewPosition(42.6977, 23.3219)

type fakeStore struct {
	mu         sync.Mutex
	configured bool
	stories    []*domain.Story
	err        error
	calls      int
}

func (s *fakeStore) IsConfigured() bool { return s.configured }

func (s *fakeStore) FindInWindow(_ context.Context, q domain.StoryQuery) ([]*domain.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []*domain.Story
	for _, st := range s.stories {
		if q.Window.Contains(st.Lat, st.Lng) {
			out = append(out, st)
		}
	}
	return out, nil
}

type fakeEndpoint struct {
	configured bool
	resp       *domain.SubmitResponse
	err        error
}

func (e *fakeEndpoint) IsConfigured() bool { return e.configured }

func (e *fakeEndpoint) Submit(context.Context, domain.Submission) (*domain.SubmitResponse, error) {
	return e.resp, e.err
}

type fixture struct {
	cfg      *config.Config
	store    *fakeStore
	endpoint *fakeEndpoint
	hub      *WebSocketManager
	session  *session.Session
	handler  http.Handler
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "0", Env: "test"},
		Store: config.StoreConfig{
			Driver:  "postgrest",
			URL:     "https://example.supabase.co",
			AnonKey: "anon",
			Table:   "stories",
		},
		Submit: config.SubmitConfig{WebhookURL: "https://hooks.example.com/submit"},
		Map: config.MapConfig{
			DefaultCenter: sofia,
			DefaultZoom:   13,
			MinZoom:       3,
			MaxZoom:       18,
		},
		Stories: config.StoriesConfig{
			MaxLength:     500,
			MinLength:     10,
			DefaultRadius: 5000,
			LoadRadius:    10000,
			Emotions:      domain.DefaultEmotions,
		},
		Geo: config.GeoConfig{InitialFixTimeout: time.Second},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		cfg:   testConfig(),
		store: &fakeStore{configured: true},
		endpoint: &fakeEndpoint{
			configured: true,
			resp:       &domain.SubmitResponse{OK: true, StatusCode: http.StatusOK},
		},
	}
	logger := zap.NewNop()

	origins := middleware.NewOriginPolicy([]string{"http://localhost:*"}, logger)
	f.hub = NewWebSocketManager(origins.CheckRequest, logger)
	f.session = session.New(f.store, f.endpoint, f.hub, f.hub, session.Options{
		DefaultCenter:     f.cfg.Map.DefaultCenter,
		LoadRadius:        f.cfg.Stories.LoadRadius,
		InitialFixTimeout: f.cfg.Geo.InitialFixTimeout,
		Rules: stories.Rules{
			MinLength: f.cfg.Stories.MinLength,
			MaxLength: f.cfg.Stories.MaxLength,
			Emotions:  f.cfg.Stories.Emotions,
		},
	}, logger)
	f.hub.SetSource(f.session)

	readiness := ServiceReadiness{Store: f.store, Submit: f.endpoint}
	router := NewRouter(
		NewMapHandler(f.session, f.cfg, readiness, logger),
		NewStoryHandler(f.session, logger),
		NewHealthHandler(readiness, f.hub),
		f.hub,
		origins,
		logger,
	)
	f.handler = router.Setup()

	t.Cleanup(f.session.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

// envelope decodes a response and unmarshals its data into out.
func envelope(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) response.Response {
	t.Helper()

	var raw struct {
		Success bool                `json:"success"`
		Data    json.RawMessage     `json:"data"`
		Error   *response.ErrorInfo `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	if out != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, out))
	}
	return response.Response{Success: raw.Success, Error: raw.Error}
}

func story(id string, lat, lng float64, emotion domain.Emotion) *domain.Story {
	return &domain.Story{
		ID:        id,
		Lat:       lat,
		Lng:       lng,
		Text:      "A smile worth sharing",
		Emotion:   emotion,
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Status:    domain.StatusApproved,
	}
}

var errStoreDown = errors.New("store down")
