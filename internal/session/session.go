// Package session wires one instance of the story engine: position
// tracking, marker registry, nearby fetches and submissions.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mapofsmiles/companion/internal/domain"
	"github.com/mapofsmiles/companion/internal/registry"
	"github.com/mapofsmiles/companion/internal/stories"
	"github.com/mapofsmiles/companion/internal/tracker"
)

type Options struct {
	DefaultCenter     domain.Position
	LoadRadius        float64
	InitialFixTimeout time.Duration
	Rules             stories.Rules
}

// Positions is a read-only view of the tracker.
type Positions struct {
	Current  *domain.Position `json:"current"`
	GPS      *domain.Position `json:"gps"`
	Selected *domain.Position `json:"selected"`
	Error    string           `json:"error,omitempty"`
}

// Session owns the engine state for one map view. Fetches triggered by
// position events run in the background until Close.
type Session struct {
	tracker   *tracker.Tracker
	registry  *registry.MarkerRegistry
	fetcher   *stories.Fetcher
	submitter *stories.Submitter
	notifier  domain.Notifier
	opts      Options
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func New(
	store domain.StoryStore,
	endpoint domain.SubmitEndpoint,
	renderer domain.Renderer,
	notifier domain.Notifier,
	opts Options,
	logger *zap.Logger,
) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		notifier: notifier,
		opts:     opts,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	s.registry = registry.New(renderer, logger.Named("registry"))
	s.tracker = tracker.New(tracker.Hooks{
		OnFix:     s.onFix,
		OnFailure: s.onLocationFailure,
	}, logger.Named("tracker"))
	s.fetcher = stories.NewFetcher(store, s.registry, opts.LoadRadius, logger.Named("fetcher"))
	s.submitter = stories.NewSubmitter(endpoint, s.tracker, s.registry, opts.Rules, logger.Named("submitter"))

	return s
}

// Start waits for the initial GPS fix. If none arrives in time the tracker
// reports a timeout and stories are loaded around the default center.
func (s *Session) Start(ctx context.Context) error {
	timeout := s.opts.InitialFixTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	s.logger.Info("waiting for initial location fix", zap.Duration("timeout", timeout))
	pos, err := s.tracker.AwaitInitialFix(ctx, timeout)
	if err != nil {
		var locErr *tracker.LocationError
		if errors.As(err, &locErr) {
			return nil
		}
		return err
	}

	s.logger.Info("initial location fix", zap.Float64("lat", pos.Lat), zap.Float64("lng", pos.Lng))
	return nil
}

// ReportFix feeds a platform GPS fix.
func (s *Session) ReportFix(pos domain.Position) {
	s.tracker.ReportGpsFix(pos)
}

// ReportLocationError feeds a platform geolocation failure.
func (s *Session) ReportLocationError(reason tracker.Reason) *tracker.LocationError {
	return s.tracker.ReportFailure(reason)
}

func (s *Session) SelectPosition(pos domain.Position) {
	s.tracker.SelectPosition(pos)
}

func (s *Session) ClearSelection() {
	s.tracker.ClearSelection()
}

// CurrentPosition is the selection if any, else the GPS fix.
func (s *Session) CurrentPosition() (domain.Position, bool) {
	return s.tracker.CurrentPosition()
}

func (s *Session) Positions() Positions {
	var p Positions
	if pos, ok := s.tracker.CurrentPosition(); ok {
		p.Current = &pos
	}
	if pos, ok := s.tracker.RawGpsPosition(); ok {
		p.GPS = &pos
	}
	if pos, ok := s.tracker.Selected(); ok {
		p.Selected = &pos
	}
	if err := s.tracker.LastError(); err != nil {
		p.Error = err.Message()
	}
	return p
}

// MapMoved loads stories around the new map center.
func (s *Session) MapMoved(center domain.Position) {
	s.trigger(center)
}

// LoadNearby runs a fetch and waits for it.
func (s *Session) LoadNearby(ctx context.Context, pos domain.Position, radius float64) (stories.FetchReport, error) {
	return s.fetcher.LoadNearby(ctx, pos, radius)
}

// LoadAroundCurrent runs a fetch at the current position and waits for it.
func (s *Session) LoadAroundCurrent(ctx context.Context, radius float64) (stories.FetchReport, error) {
	pos, ok := s.tracker.CurrentPosition()
	if !ok {
		return stories.FetchReport{}, domain.ErrNoPosition
	}
	return s.fetcher.LoadNearby(ctx, pos, radius)
}

// ClearMarkers drops every marker, e.g. after a filter change.
func (s *Session) ClearMarkers() {
	s.fetcher.ClearCache()
}

func (s *Session) Markers() []*domain.Story {
	return s.registry.Snapshot()
}

func (s *Session) HasMarker(id string) bool {
	return s.registry.Has(id)
}

// Submit posts a story and notifies the user of the outcome.
func (s *Session) Submit(ctx context.Context, text string, emotion domain.Emotion) stories.Result {
	res := s.submitter.Submit(ctx, text, emotion)

	level := domain.LevelError
	if res.Success {
		level = domain.LevelSuccess
	}
	s.notifier.Notify(ctx, domain.Notification{Level: level, Message: res.Message})
	return res
}

// Wait blocks until every background fetch started so far has finished.
// Triggers arriving meanwhile wait for it to return before starting.
func (s *Session) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wg.Wait()
}

// Close cancels background fetches and waits for them.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Session) onFix(current domain.Position) {
	s.trigger(current)
}

func (s *Session) onLocationFailure(err *tracker.LocationError) {
	s.notifier.Notify(s.ctx, domain.Notification{Level: domain.LevelError, Message: err.Message()})
	s.trigger(s.opts.DefaultCenter)
}

// trigger starts a background fetch. The fetcher drops it if one is
// already in flight.
func (s *Session) trigger(pos domain.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, _ = s.fetcher.LoadNearby(s.ctx, pos, 0)
	}()
}
