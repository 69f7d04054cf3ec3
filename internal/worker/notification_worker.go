package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/aiimpactmedia/casting/internal/metrics"
	"github.com/aiimpactmedia/casting/internal/model"
	"github.com/aiimpactmedia/casting/internal/service"
)

// EmailSender delivers a single plain text message
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) (string, error)
}

// NotificationWorker delivers queued confirmation emails
type NotificationWorker struct {
	sender EmailSender
	logger *zap.Logger
}

// NewNotificationWorker creates a worker. A nil sender logs messages
// instead of delivering them.
func NewNotificationWorker(sender EmailSender, logger *zap.Logger) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		sender: sender,
		logger: logger.With(zap.String("component", "notification-worker")),
	}
}

// ProcessTask handles notification task processing
func (w *NotificationWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.NotificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal notification payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.RecipientEmail == "" {
		return fmt.Errorf("notification %s has no recipient: %w", payload.ID, asynq.SkipRetry)
	}

	log := w.logger.With(
		zap.String("notificationId", payload.ID),
		zap.String("kind", string(payload.Kind)),
	)

	subject, body := service.RenderNotification(payload.Kind, payload.RecipientName)
	if payload.Body != "" {
		body = payload.Body
	}

	if w.sender == nil {
		log.Info("notification (mock delivery)",
			zap.String("to", payload.RecipientEmail),
			zap.String("subject", subject),
			zap.String("body", body),
		)
		metrics.NotificationsTotal.WithLabelValues(string(payload.Kind), "logged").Inc()
		return nil
	}

	messageID, err := w.sender.Send(ctx, payload.RecipientEmail, subject, body)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(string(payload.Kind), metrics.OutcomeFailure).Inc()
		log.Warn("notification delivery failed", zap.Error(err))
		return fmt.Errorf("%w: %w", model.ErrNotificationFailed, err)
	}

	metrics.NotificationsTotal.WithLabelValues(string(payload.Kind), "delivered").Inc()
	log.Info("notification delivered", zap.String("messageId", messageID))
	return nil
}
