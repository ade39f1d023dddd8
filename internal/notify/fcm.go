package notify

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/mapofsmiles/companion/internal/domain"
)

const pushTitle = "Map of Smiles"

// sender is the part of messaging.Client used here.
type sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCM pushes notifications to one device through Firebase Cloud Messaging.
type FCM struct {
	msgClient sender
	token     string
	logger    *zap.Logger
}

func NewFCM(ctx context.Context, logger *zap.Logger, credentialsFile, token string) (*FCM, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	} else {
		logger.Warn("No Firebase credentials file provided. FCM will use default credentials.")
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCM{
		msgClient: msgClient,
		token:     token,
		logger:    logger,
	}, nil
}

func (c *FCM) Notify(ctx context.Context, n domain.Notification) {
	if c.token == "" {
		return
	}

	message := &messaging.Message{
		Token: c.token,
		Notification: &messaging.Notification{
			Title: pushTitle,
			Body:  n.Message,
		},
		Data: map[string]string{
			"type":  "toast",
			"level": string(n.Level),
		},
	}

	if _, err := c.msgClient.Send(ctx, message); err != nil {
		c.logger.Error("Failed to send FCM message", zap.Error(err))
	}
}
