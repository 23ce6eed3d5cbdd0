// Package notify persists user notifications and pushes them to live
// connections.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"Soundbay/apperr"
	"Soundbay/core/hub"
	"Soundbay/logger"
	"Soundbay/model"
	"Soundbay/repository"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// DefaultListLimit 通知列表默认条数
const DefaultListLimit = 30

// roleFanout 角色群发的并发上限
const roleFanout = 8

// Pusher delivers an envelope to a user's live connections.
type Pusher interface {
	SendToUser(userID string, env hub.Envelope) int
}

// Sender is the notification surface services depend on.
type Sender interface {
	NotifyUser(ctx context.Context, userID, message string, meta model.NotificationMetadata) (*model.Notification, error)
	NotifyRole(ctx context.Context, role model.Role, message string, meta model.NotificationMetadata) error
}

// Payload 推送给客户端的通知内容
type Payload struct {
	ID        string                     `json:"id"`
	Message   string                     `json:"message"`
	IsRead    bool                       `json:"isRead"`
	CreatedAt time.Time                  `json:"createdAt"`
	Metadata  model.NotificationMetadata `json:"metadata"`
}

// Notifier 通知服务；没有队列也不重试
type Notifier struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	pusher        Pusher
}

// NewNotifier 创建通知服务，pusher 可以为 nil
func NewNotifier(notifications repository.NotificationRepository, users repository.UserRepository, pusher Pusher) *Notifier {
	return &Notifier{notifications: notifications, users: users, pusher: pusher}
}

// NotifyUser 保存一条未读通知并推送到该用户的所有在线连接
func (n *Notifier) NotifyUser(ctx context.Context, userID, message string, meta model.NotificationMetadata) (*model.Notification, error) {
	row := &model.Notification{UserID: userID, Message: message, Metadata: datatypes.NewJSONType(meta)}
	if err := n.notifications.Create(ctx, row); err != nil {
		return nil, err
	}

	if n.pusher != nil {
		n.pusher.SendToUser(userID, hub.Envelope{
			Type: hub.TypeNotification,
			Payload: Payload{
				ID:        row.ID,
				Message:   row.Message,
				IsRead:    row.IsRead,
				CreatedAt: row.CreatedAt,
				Metadata:  meta,
			},
		})
	}
	return row, nil
}

// NotifyRole 通知该角色下所有未封禁用户；单个失败不影响其他人，错误合并返回
func (n *Notifier) NotifyRole(ctx context.Context, role model.Role, message string, meta model.NotificationMetadata) error {
	ids, err := n.users.ListActiveIDsByRole(ctx, role)
	if err != nil {
		return err
	}

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(roleFanout)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if _, err := n.NotifyUser(ctx, id, message, meta); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("notify %s: %w", id, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// List 最新的在前
func (n *Notifier) List(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return n.notifications.ListByUser(ctx, userID, limit)
}

// MarkRead 幂等；不属于调用者时返回 NotFound
func (n *Notifier) MarkRead(ctx context.Context, id, userID string) error {
	ok, err := n.notifications.MarkRead(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("Notification not found")
	}
	return nil
}

// MarkAllRead 一次批量更新
func (n *Notifier) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	count, err := n.notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	logger.Debug("notifications marked read", logger.String("user", userID), logger.Int64("count", count))
	return count, nil
}
