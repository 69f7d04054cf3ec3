package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/aiimpactmedia/casting/internal/metrics"
	"github.com/aiimpactmedia/casting/internal/model"
)

const (
	TypeNotificationSend = "notification:send"
	QueueNotifications   = "notifications"
)

// Enqueuer is satisfied by *asynq.Client
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NotificationService queues confirmation emails for the notification worker
type NotificationService struct {
	asynqClient Enqueuer
	logger      *zap.Logger
}

// NewNotificationService creates a notification service. With a nil client
// messages are only logged.
func NewNotificationService(asynqClient Enqueuer, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		asynqClient: asynqClient,
		logger:      logger.With(zap.String("component", "notification")),
	}
}

// Notify queues a message of the given kind for email
func (s *NotificationService) Notify(ctx context.Context, email, name string, kind model.NotificationKind) error {
	payload := model.NotificationPayload{
		ID:             uuid.New().String(),
		RecipientEmail: email,
		RecipientName:  name,
		Kind:           kind,
	}

	if s.asynqClient == nil {
		subject, body := RenderNotification(kind, name)
		s.logger.Info("notification (mock delivery)",
			zap.String("to", email),
			zap.String("subject", subject),
			zap.String("body", body),
		)
		metrics.NotificationsTotal.WithLabelValues(string(kind), "logged").Inc()
		return nil
	}

	task, err := NewNotificationTask(payload)
	if err != nil {
		return err
	}

	_, err = s.asynqClient.EnqueueContext(ctx, task,
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(string(kind), metrics.OutcomeFailure).Inc()
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}

	metrics.NotificationsTotal.WithLabelValues(string(kind), "queued").Inc()
	return nil
}

// NewNotificationTask wraps a payload into an asynq task
func NewNotificationTask(payload model.NotificationPayload) (*asynq.Task, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification: %w", err)
	}
	return asynq.NewTask(TypeNotificationSend, b), nil
}

// RenderNotification returns the subject and body for a notification kind
func RenderNotification(kind model.NotificationKind, name string) (string, string) {
	switch kind {
	case model.NotificationSponsor:
		return "Thank you for your interest in AI Impact Media",
			fmt.Sprintf("Hello %s, thank you for your sponsorship inquiry. Our team will contact you shortly.", name)
	default:
		return "Submission Received - AI Impact Media",
			fmt.Sprintf("Hello %s, we have received your casting submission. Please note this is a voluntary project with no financial compensation. Thank you!", name)
	}
}
