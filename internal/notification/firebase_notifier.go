package notification

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stanstork/sasper-insights/internal/config"
	fcm "google.golang.org/api/fcm/v1"
	"google.golang.org/api/option"
)

// FirebaseNotifier sends push notifications through the FCM HTTP v1 API.
// A disabled notifier accepts every message without sending it.
type FirebaseNotifier struct {
	enabled   bool
	projectID string
	service   *fcm.Service
	logger    zerolog.Logger
}

func NewFirebaseNotifier(ctx context.Context, cfg config.FirebaseConfig, logger zerolog.Logger, opts ...option.ClientOption) (*FirebaseNotifier, error) {
	n := &FirebaseNotifier{
		enabled:   cfg.Enabled && cfg.ProjectID != "",
		projectID: cfg.ProjectID,
		logger:    logger.With().Str("notifier", "firebase").Logger(),
	}
	if !n.enabled {
		return n, nil
	}

	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	svc, err := fcm.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create fcm client")
	}
	n.service = svc
	return n, nil
}

func (n *FirebaseNotifier) Notify(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if !n.enabled {
		n.logger.Debug().Str("title", msg.Title).Msg("firebase disabled, dropping notification")
		return nil
	}

	req := &fcm.SendMessageRequest{
		Message: &fcm.Message{
			Token: msg.Token,
			Notification: &fcm.Notification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: msg.Data,
		},
	}
	resp, err := n.service.Projects.Messages.Send("projects/"+n.projectID, req).Context(ctx).Do()
	if err != nil {
		return errors.Wrap(err, "send fcm message")
	}

	n.logger.Info().
		Str("message_name", resp.Name).
		Str("title", msg.Title).
		Msg("push notification sent")
	return nil
}

func (n *FirebaseNotifier) String() string {
	if !n.enabled {
		return "FirebaseNotifier(disabled)"
	}
	return fmt.Sprintf("FirebaseNotifier(project=%s)", n.projectID)
}
