package notify

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mapofsmiles/companion/internal/domain"
)

type collector struct {
	got []domain.Notification
}

func (c *collector) Notify(_ context.Context, n domain.Notification) {
	c.got = append(c.got, n)
}

type fakeSender struct {
	messages []*messaging.Message
	err      error
}

func (s *fakeSender) Send(_ context.Context, m *messaging.Message) (string, error) {
	s.messages = append(s.messages, m)
	return "projects/p/messages/1", s.err
}

func TestMulti_Notify(t *testing.T) {
	a, b := &collector{}, &collector{}
	n := domain.Notification{Level: domain.LevelError, Message: "Location unavailable"}

	Multi{a, nil, b}.Notify(context.Background(), n)

	assert.Equal(t, []domain.Notification{n}, a.got)
	assert.Equal(t, []domain.Notification{n}, b.got)
}

func TestLog_Notify(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	NewLog(zap.New(core)).Notify(context.Background(), domain.Notification{Level: domain.LevelSuccess, Message: "Story shared!"})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "notification", entry.Message)
	assert.Equal(t, "Story shared!", entry.ContextMap()["message"])
}

func TestFCM_Notify(t *testing.T) {
	t.Run("sends to the configured token", func(t *testing.T) {
		s := &fakeSender{}
		c := &FCM{msgClient: s, token: "device-token", logger: zap.NewNop()}

		c.Notify(context.Background(), domain.Notification{Level: domain.LevelError, Message: "Please enable location access"})

		require.Len(t, s.messages, 1)
		m := s.messages[0]
		assert.Equal(t, "device-token", m.Token)
		assert.Equal(t, "Please enable location access", m.Notification.Body)
		assert.Equal(t, "error", m.Data["level"])
	})

	t.Run("no token means no send", func(t *testing.T) {
		s := &fakeSender{}
		c := &FCM{msgClient: s, logger: zap.NewNop()}

		c.Notify(context.Background(), domain.Notification{Message: "hi"})

		assert.Empty(t, s.messages)
	})

	t.Run("send errors are logged, not returned", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		s := &fakeSender{err: errors.New("registration-token-not-registered")}
		c := &FCM{msgClient: s, token: "stale", logger: zap.New(core)}

		c.Notify(context.Background(), domain.Notification{Message: "hi"})

		assert.Equal(t, 1, logs.Len())
	})
}
