// Package notify delivers push notifications via Firebase Cloud Messaging.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMSender sends push notifications via Firebase Cloud Messaging.
type FCMSender struct {
	client *messaging.Client
	logger *slog.Logger
}

// NewFCMSender creates an FCM sender from a service account credentials
// file. Returns (nil, nil) when credentialsFile is empty so callers can
// run with push delivery disabled.
func NewFCMSender(ctx context.Context, credentialsFile string, logger *slog.Logger) (*FCMSender, error) {
	if credentialsFile == "" {
		return nil, nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init fcm client: %w", err)
	}

	return &FCMSender{client: client, logger: logger}, nil
}

// SendMulti sends one notification to multiple device tokens. Any
// per-token delivery failure makes the whole call fail so the caller's
// retry policy applies.
func (s *FCMSender) SendMulti(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if len(tokens) == 0 {
		return fmt.Errorf("no tokens to send to")
	}

	msg := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	resp, err := s.client.SendEachForMulticast(ctx, msg)
	if err != nil {
		return fmt.Errorf("fcm multicast: %w", err)
	}
	if resp.FailureCount > 0 {
		for _, r := range resp.Responses {
			if r.Error != nil {
				return fmt.Errorf("fcm delivery failed for %d of %d tokens: %w",
					resp.FailureCount, len(tokens), r.Error)
			}
		}
	}

	s.logger.Info("FCM send", "tokens", len(tokens), "title", title)
	return nil
}
