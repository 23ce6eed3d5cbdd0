// Package checkout turns a buyer's cart into an order and library entries.
package checkout

import (
	"context"
	"time"

	"Soundbay/apperr"
	"Soundbay/core/activity"
	"Soundbay/core/notify"
	"Soundbay/logger"
	"Soundbay/model"
	"Soundbay/repository"
	"Soundbay/validate"

	"github.com/shopspring/decimal"
)

const purchaseMessage = "Покупка успешно завершена. Треки добавлены в медиатеку"

// PaymentDetails 只校验是否填写，不保存也不核验
type PaymentDetails struct {
	CardNumber string `json:"cardNumber" validate:"required"`
	CardHolder string `json:"cardHolder" validate:"required"`
	Expiry     string `json:"expiry" validate:"required"`
	CVV        string `json:"cvv" validate:"required"`
}

// Service 购物车与结算服务
type Service struct {
	store    *repository.Store
	notifier notify.Sender
	activity activity.Sink
	now      func() time.Time
}

// NewService 创建结算服务
func NewService(store *repository.Store, notifier notify.Sender, sink activity.Sink) *Service {
	return &Service{store: store, notifier: notifier, activity: sink, now: time.Now}
}

// Checkout 购买购物车中仍可购买的曲目。不可购买的条目留在购物车里
func (s *Service) Checkout(ctx context.Context, buyerID string, payment PaymentDetails) (*model.Order, error) {
	if err := validate.Struct(payment); err != nil {
		return nil, err
	}

	var order *model.Order
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		lines, err := tx.Carts.LockLines(ctx, buyerID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return apperr.Validation("cart is empty")
		}

		var (
			purchased []repository.CartLine
			total     = decimal.Zero
		)
		for _, l := range lines {
			if l.Status != model.TrackStatusApproved {
				continue
			}
			purchased = append(purchased, l)
			total = total.Add(l.Price)
		}
		if len(purchased) == 0 {
			return apperr.Validation("no available tracks for purchase")
		}

		order = &model.Order{UserID: buyerID, Total: total}
		if err := tx.Orders.Create(ctx, order); err != nil {
			return err
		}

		now := s.now()
		items := make([]model.OrderItem, 0, len(purchased))
		owned := make([]model.LibraryItem, 0, len(purchased))
		trackIDs := make([]string, 0, len(purchased))
		for _, l := range purchased {
			items = append(items, model.OrderItem{OrderID: order.ID, TrackID: l.TrackID, Price: l.Price})
			owned = append(owned, model.LibraryItem{
				UserID:        buyerID,
				TrackID:       l.TrackID,
				SourceOrderID: order.ID,
				PurchasedAt:   now,
			})
			trackIDs = append(trackIDs, l.TrackID)
		}
		if err := tx.Orders.CreateItems(ctx, items); err != nil {
			return err
		}
		if err := tx.Library.AddMany(ctx, owned); err != nil {
			return err
		}

		removed, err := tx.Carts.RemoveTracks(ctx, buyerID, trackIDs)
		if err != nil {
			return err
		}
		if removed < int64(len(trackIDs)) {
			return apperr.Conflict("Cart changed during checkout, please retry")
		}
		order.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCheckout(ctx, order)
	return order, nil
}

func (s *Service) afterCheckout(ctx context.Context, order *model.Order) {
	s.activity.Record(ctx, activity.Entry{
		Action:     activity.ActionCheckout,
		EntityType: activity.EntityOrder,
		EntityID:   order.ID,
		UserID:     order.UserID,
		Details:    map[string]interface{}{"total": order.Total.InexactFloat64(), "items": len(order.Items)},
	})

	meta := model.NotificationMetadata{
		TargetPath: "/library",
		OrderID:    order.ID,
		Extra:      map[string]any{"total": order.Total.InexactFloat64()},
	}
	if _, err := s.notifier.NotifyUser(ctx, order.UserID, purchaseMessage, meta); err != nil {
		logger.Warn("failed to notify buyer about order",
			logger.String("order", order.ID), logger.ErrorField(err))
	}
	logger.Info("order completed",
		logger.String("order", order.ID),
		logger.String("buyer", order.UserID),
		logger.Stringer("total", order.Total))
}
