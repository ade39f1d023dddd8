// Package tracker keeps the reference position used for loading and posting stories.
package tracker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mapofsmiles/companion/internal/domain"
)

// Hooks are invoked outside the tracker lock.
type Hooks struct {
	// OnFix receives the current position after every GPS fix.
	OnFix func(current domain.Position)
	// OnFailure receives every reported geolocation failure.
	OnFailure func(err *LocationError)
}

// Tracker holds two independent slots: the live GPS fix and an optional
// user-selected override. The override wins while it is set.
type Tracker struct {
	mu       sync.RWMutex
	gps      *domain.Position
	selected *domain.Position
	lastErr  *LocationError

	firstFix     chan struct{}
	firstFixOnce sync.Once

	hooks  Hooks
	logger *zap.Logger
}

func New(hooks Hooks, logger *zap.Logger) *Tracker {
	return &Tracker{
		firstFix: make(chan struct{}),
		hooks:    hooks,
		logger:   logger,
	}
}

// ReportGpsFix replaces the GPS slot and triggers OnFix with the current position.
func (t *Tracker) ReportGpsFix(pos domain.Position) {
	t.mu.Lock()
	t.gps = &pos
	t.lastErr = nil
	current := t.currentLocked()
	t.mu.Unlock()

	t.firstFixOnce.Do(func() { close(t.firstFix) })

	fields := []zap.Field{zap.Float64("lat", pos.Lat), zap.Float64("lng", pos.Lng)}
	if pos.Accuracy != nil {
		fields = append(fields, zap.Float64("accuracy", *pos.Accuracy))
	}
	t.logger.Debug("gps fix", fields...)

	if t.hooks.OnFix != nil {
		t.hooks.OnFix(*current)
	}
}

// ReportFailure records a geolocation failure and hands it to OnFailure.
// The last GPS fix, if any, is kept.
func (t *Tracker) ReportFailure(reason Reason) *LocationError {
	err := &LocationError{Reason: reason}

	t.mu.Lock()
	t.lastErr = err
	t.mu.Unlock()

	t.logger.Warn("geolocation failed", zap.String("reason", string(reason)))

	if t.hooks.OnFailure != nil {
		t.hooks.OnFailure(err)
	}
	return err
}

// SelectPosition overrides GPS for every consumer until ClearSelection.
func (t *Tracker) SelectPosition(pos domain.Position) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selected = &pos
}

func (t *Tracker) ClearSelection() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selected = nil
}

// CurrentPosition returns the selection if set, else the GPS fix.
func (t *Tracker) CurrentPosition() (domain.Position, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return deref(t.currentLocked())
}

// RawGpsPosition ignores any selection.
func (t *Tracker) RawGpsPosition() (domain.Position, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return deref(t.gps)
}

func (t *Tracker) Selected() (domain.Position, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return deref(t.selected)
}

// LastError returns the failure reported since the last fix, if any.
func (t *Tracker) LastError() *LocationError {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastErr
}

// AwaitInitialFix blocks until the first GPS fix or the timeout. On timeout
// it reports a timeout failure, which runs OnFailure.
func (t *Tracker) AwaitInitialFix(ctx context.Context, timeout time.Duration) (domain.Position, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-t.firstFix:
		pos, _ := t.RawGpsPosition()
		return pos, nil
	case <-timer.C:
		return domain.Position{}, t.ReportFailure(ReasonTimeout)
	case <-ctx.Done():
		return domain.Position{}, ctx.Err()
	}
}

func (t *Tracker) currentLocked() *domain.Position {
	if t.selected != nil {
		return t.selected
	}
	return t.gps
}

func deref(p *domain.Position) (domain.Position, bool) {
	if p == nil {
		return domain.Position{}, false
	}
	return *p, true
}
