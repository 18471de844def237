package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docuvault-io/docuvault-api/internal/models"
	appErrors "github.com/docuvault-io/docuvault-api/pkg/errors"
	"github.com/docuvault-io/docuvault-api/pkg/jobs"
)

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, userID string, page, pageSize int) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, userID, id string) (bool, error)
}

// NotificationService persists notifications and pushes them to connected
// clients. The database row is the durable record; realtime delivery is a
// best-effort extra.
type NotificationService struct {
	repo        notificationRepository
	broadcaster Broadcaster
	logger      *zap.Logger
}

// NewNotificationService constructs the notification service.
func NewNotificationService(repo notificationRepository, broadcaster Broadcaster, logger *zap.Logger) *NotificationService {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &NotificationService{repo: repo, broadcaster: broadcaster, logger: logger}
}

// Notify stores a notification and attempts realtime delivery.
func (s *NotificationService) Notify(ctx context.Context, userID, ntype, title, message string) (*models.Notification, error) {
	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      ntype,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	if message != "" {
		n.Message = &message
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create notification")
	}

	delivered := s.broadcaster.TryBroadcastToUser(userID, EventNotificationNew, n)
	if !delivered && s.logger != nil {
		s.logger.Debug("notification stored, recipient offline", zap.String("user_id", userID))
	}
	return n, nil
}

// HandleJob adapts Notify into a background queue handler.
func (s *NotificationService) HandleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(NotificationPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for job %s", job.Payload, job.ID)
	}
	_, err := s.Notify(ctx, payload.UserID, payload.Type, payload.Title, payload.Message)
	return err
}

// List returns a page of the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, page, pageSize int) ([]models.Notification, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	items, total, err := s.repo.List(ctx, userID, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return items, models.NewPagination(page, pageSize, total), nil
}

// MarkRead flags a notification as read. Unknown or foreign ids surface as
// not found.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	ok, err := s.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notification")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}
