// Package notify delivers user-facing notifications to push-style sinks.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/mapofsmiles/companion/internal/domain"
)

// Multi fans a notification out to every sink.
type Multi []domain.Notifier

func (m Multi) Notify(ctx context.Context, n domain.Notification) {
	for _, sink := range m {
		if sink != nil {
			sink.Notify(ctx, n)
		}
	}
}

// Log writes notifications to the logger; used when no map view is attached.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(_ context.Context, n domain.Notification) {
	l.logger.Info("notification",
		zap.String("level", string(n.Level)),
		zap.String("message", n.Message),
	)
}
