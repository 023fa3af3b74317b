package services

import (
	"context"
	"time"

	"omnidesk/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NotificationService persists notifications and pushes them to connected
// clients. It is the send_notification action target.
type NotificationService struct {
	db     *gorm.DB
	hub    *WebSocketHub
	logger *logrus.Logger
}

func NewNotificationService(db *gorm.DB, hub *WebSocketHub, logger *logrus.Logger) *NotificationService {
	if logger == nil {
		logger = logrus.New()
	}
	return &NotificationService{db: db, hub: hub, logger: logger}
}

// SendFromAutomation is the send_notification action capability.
func (s *NotificationService) SendFromAutomation(ctx context.Context, params map[string]interface{}, payload map[string]interface{}) error {
	title, _ := params["title"].(string)
	if title == "" {
		title = "Automation notification"
	}
	body, _ := params["message"].(string)
	userID, _ := params["userId"].(string)

	n := &models.Notification{
		UserID:    userID,
		Type:      "automation",
		Title:     title,
		Body:      body,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return err
	}
	if s.hub != nil {
		s.hub.BroadcastNotification(n)
	}
	return nil
}

// ListNotifications 返回最近通知
func (s *NotificationService) ListNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var notifications []models.Notification
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkRead flags one notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
