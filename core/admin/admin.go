// Package admin implements the back office: accounts, genres and reports.
// Moderation queues live in core/moderation.
package admin

import (
	"context"
	"strings"
	"time"

	"Soundbay/apperr"
	"Soundbay/cache"
	"Soundbay/core/activity"
	"Soundbay/db"
	"Soundbay/logger"
	"Soundbay/model"
	"Soundbay/repository"
	"Soundbay/validate"

	"github.com/shopspring/decimal"
)

// ActivityReportLimit 操作日志报表条数
const ActivityReportLimit = 300

// GenreInput 曲风名称
type GenreInput struct {
	Name string `json:"name" validate:"min=2,max=60"`
}

// Service 后台管理服务
type Service struct {
	store    *repository.Store
	cache    cache.Invalidator
	activity *activity.Recorder
}

// NewService 创建后台服务
func NewService(store *repository.Store, c cache.Invalidator, recorder *activity.Recorder) *Service {
	return &Service{store: store, cache: c, activity: recorder}
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		logger.Warn("failed to invalidate catalog cache", logger.ErrorField(err))
	}
}

// Users 全部用户，最新注册的在前
func (s *Service) Users(ctx context.Context) ([]*model.User, error) {
	return s.store.Users.List(ctx)
}

// SetBlocked 封禁或解封用户，管理员不能封禁自己
func (s *Service) SetBlocked(ctx context.Context, adminID, userID string, blocked bool) (*model.User, error) {
	if blocked && adminID == userID {
		return nil, apperr.Validation("You cannot block yourself")
	}
	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("User not found")
	}
	if err := s.store.Users.SetBlocked(ctx, user.ID, blocked); err != nil {
		return nil, err
	}
	user.IsBlocked = blocked

	action := activity.ActionUnblockUser
	if blocked {
		action = activity.ActionBlockUser
	}
	s.activity.Record(ctx, activity.Entry{
		Action:     action,
		EntityType: activity.EntityUser,
		EntityID:   user.ID,
		UserID:     adminID,
	})
	return user, nil
}

// CreateGenre 新建曲风，重名返回冲突
func (s *Service) CreateGenre(ctx context.Context, adminID string, in GenreInput) (*model.Genre, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	genre := &model.Genre{Name: in.Name}
	if err := s.store.Genres.Create(ctx, genre); err != nil {
		if db.IsDuplicateKey(err) {
			return nil, apperr.Conflict("Genre already exists")
		}
		return nil, err
	}
	s.invalidate(ctx)
	s.activity.Record(ctx, activity.Entry{
		Action:     activity.ActionCreateGenre,
		EntityType: activity.EntityGenre,
		EntityID:   genre.ID,
		UserID:     adminID,
		Details:    map[string]interface{}{"name": genre.Name},
	})
	return genre, nil
}

// RenameGenre 重命名曲风
func (s *Service) RenameGenre(ctx context.Context, adminID, id string, in GenreInput) (*model.Genre, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	genre, err := s.store.Genres.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if genre == nil {
		return nil, apperr.NotFound("Genre not found")
	}
	if err := s.store.Genres.Rename(ctx, genre.ID, in.Name); err != nil {
		if db.IsDuplicateKey(err) {
			return nil, apperr.Conflict("Genre already exists")
		}
		return nil, err
	}
	previous := genre.Name
	genre.Name = in.Name
	s.invalidate(ctx)
	s.activity.Record(ctx, activity.Entry{
		Action:     activity.ActionUpdateGenre,
		EntityType: activity.EntityGenre,
		EntityID:   genre.ID,
		UserID:     adminID,
		Details:    map[string]interface{}{"from": previous, "to": genre.Name},
	})
	return genre, nil
}

// DeleteGenre 只能删除没有曲目的曲风。曲风行在事务内加锁，与提交和审核中的曲风校验互斥
func (s *Service) DeleteGenre(ctx context.Context, adminID, id string) error {
	var genre *model.Genre
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		genre, err = tx.Genres.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if genre == nil {
			return apperr.NotFound("Genre not found")
		}
		linked, err := tx.Genres.CountTracks(ctx, genre.ID)
		if err != nil {
			return err
		}
		if linked > 0 {
			return apperr.Validation("Cannot delete genre with linked tracks")
		}
		deleted, err := tx.Genres.Delete(ctx, genre.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return apperr.Validation("Cannot delete genre with linked tracks")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	s.activity.Record(ctx, activity.Entry{
		Action:     activity.ActionDeleteGenre,
		EntityType: activity.EntityGenre,
		EntityID:   genre.ID,
		UserID:     adminID,
		Details:    map[string]interface{}{"name": genre.Name},
	})
	return nil
}

// SaleItem 报表中的订单明细
type SaleItem struct {
	TrackID string             `json:"trackId"`
	Title   string             `json:"title"`
	Price   decimal.Decimal    `json:"price"`
	Seller  *model.UserSummary `json:"seller"`
}

// Sale 报表中的订单
type Sale struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"createdAt"`
	Total     decimal.Decimal    `json:"total"`
	Buyer     *model.UserSummary `json:"buyer"`
	Items     []SaleItem         `json:"items"`
}

// SalesReport 销售报表
type SalesReport struct {
	TotalOrders  int             `json:"totalOrders"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	Orders       []Sale          `json:"orders"`
}

// SalesReport 全部订单及汇总
func (s *Service) SalesReport(ctx context.Context) (*SalesReport, error) {
	orders, err := s.store.Orders.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	report := &SalesReport{TotalOrders: len(orders), TotalRevenue: decimal.Zero, Orders: make([]Sale, 0, len(orders))}
	for _, o := range orders {
		sale := Sale{ID: o.ID, CreatedAt: o.CreatedAt, Total: o.Total, Buyer: o.User.Summary(), Items: make([]SaleItem, 0, len(o.Items))}
		for _, it := range o.Items {
			item := SaleItem{TrackID: it.TrackID, Price: it.Price}
			if it.Track != nil {
				item.Title = it.Track.Title
				item.Seller = it.Track.Seller.Summary()
			}
			sale.Items = append(sale.Items, item)
		}
		report.TotalRevenue = report.TotalRevenue.Add(o.Total)
		report.Orders = append(report.Orders, sale)
	}
	return report, nil
}

// ActivityRow 操作日志报表中的一行
type ActivityRow struct {
	*model.ActivityLog
	User *model.UserSummary `json:"user"`
}

// ActivityReport 最近的操作日志
func (s *Service) ActivityReport(ctx context.Context) ([]ActivityRow, error) {
	logs, err := s.activity.Recent(ctx, ActivityReportLimit)
	if err != nil {
		return nil, err
	}
	rows := make([]ActivityRow, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, ActivityRow{ActivityLog: l, User: l.User.Summary()})
	}
	return rows, nil
}
