package api

import (
	"context"
	"net/url"
)

const notificationsPath = "/notifications"

// Notification levels.
const (
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// Notification is an alert raised for a machine.
type Notification struct {
	ID          string `json:"id"`
	MachineName string `json:"machineName"`
	Message     string `json:"message"`
	Level       string `json:"level"`
	Time        string `json:"time"`
}

// NewNotification is the create payload.
type NewNotification struct {
	MachineName string `json:"machineName"`
	Message     string `json:"message"`
	Level       string `json:"level"`
}

// NotificationService reads and manages notifications.
type NotificationService struct {
	d Doer
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(d Doer) *NotificationService {
	return &NotificationService{d: d}
}

func (s *NotificationService) List(ctx context.Context) ([]Notification, error) {
	var out struct {
		Notifications []Notification `json:"notifications"`
	}
	if err := get(ctx, s.d, notificationsPath, &out); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}

// Create raises a notification and returns its id.
func (s *NotificationService) Create(ctx context.Context, n NewNotification) (string, error) {
	var out struct {
		NotificationID string `json:"notificationId"`
	}
	if err := post(ctx, s.d, notificationsPath, n, &out); err != nil {
		return "", err
	}
	return out.NotificationID, nil
}

func (s *NotificationService) Delete(ctx context.Context, id string) error {
	return del(ctx, s.d, notificationsPath+"/"+url.PathEscape(id))
}
