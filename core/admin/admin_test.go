package admin

import (
	"context"
	"errors"
	"testing"

	"Soundbay/apperr"
	"Soundbay/core/activity"
	"Soundbay/internal/testdb"
	"Soundbay/model"
	"Soundbay/repository"

	"github.com/shopspring/decimal"
)

type countingCache struct{ n int }

func (c *countingCache) Invalidate(context.Context) error {
	c.n++
	return nil
}

func TestGenreLifecycle(t *testing.T) {
	gdb := testdb.Open(t)
	store := repository.NewStore(gdb)
	c := &countingCache{}
	svc := NewService(store, c, activity.NewRecorder(store.Activity))
	ctx := context.Background()
	admin := testdb.User(t, gdb, "admin@example.com", model.RoleAdmin)
	seller := testdb.User(t, gdb, "seller@example.com", model.RoleSeller)

	rock, err := svc.CreateGenre(ctx, admin.ID, GenreInput{Name: " Рок "})
	if err != nil || rock.Name != "Рок" {
		t.Fatalf("create: %+v (%v)", rock, err)
	}
	if _, err := svc.CreateGenre(ctx, admin.ID, GenreInput{Name: "Рок"}); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict on duplicate, got %v", err)
	}
	if _, err := svc.CreateGenre(ctx, admin.ID, GenreInput{Name: "R"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation on short name, got %v", err)
	}

	pop, err := svc.CreateGenre(ctx, admin.ID, GenreInput{Name: "Поп"})
	if err != nil {
		t.Fatalf("create pop: %v", err)
	}
	if _, err := svc.RenameGenre(ctx, admin.ID, pop.ID, GenreInput{Name: "Рок"}); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict on rename, got %v", err)
	}
	renamed, err := svc.RenameGenre(ctx, admin.ID, pop.ID, GenreInput{Name: "Поп-рок"})
	if err != nil || renamed.Name != "Поп-рок" {
		t.Fatalf("rename: %+v (%v)", renamed, err)
	}

	testdb.Track(t, gdb, seller, rock, "Linked", "1.00", model.TrackStatusArchived)
	if err := svc.DeleteGenre(ctx, admin.ID, rock.ID); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation deleting linked genre, got %v", err)
	}
	if g, _ := store.Genres.GetByID(ctx, rock.ID); g == nil {
		t.Fatalf("linked genre was deleted")
	}
	if err := svc.DeleteGenre(ctx, admin.ID, pop.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteGenre(ctx, admin.ID, pop.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if c.n != 4 {
		t.Fatalf("expected 4 cache invalidations, got %d", c.n)
	}

	rows, err := svc.ActivityReport(ctx)
	if err != nil {
		t.Fatalf("activity report: %v", err)
	}
	if len(rows) != 4 || rows[0].User == nil || rows[0].User.ID != admin.ID {
		t.Fatalf("unexpected activity report %+v", rows)
	}
}

func TestBlockUser(t *testing.T) {
	gdb := testdb.Open(t)
	store := repository.NewStore(gdb)
	svc := NewService(store, &countingCache{}, activity.NewRecorder(store.Activity))
	ctx := context.Background()
	admin := testdb.User(t, gdb, "admin@example.com", model.RoleAdmin)
	user := testdb.User(t, gdb, "user@example.com", model.RoleUser)

	if _, err := svc.SetBlocked(ctx, admin.ID, admin.ID, true); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation when blocking self, got %v", err)
	}
	if _, err := svc.SetBlocked(ctx, admin.ID, "missing", true); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	got, err := svc.SetBlocked(ctx, admin.ID, user.ID, true)
	if err != nil || !got.IsBlocked {
		t.Fatalf("block: %+v (%v)", got, err)
	}
	ids, err := store.Users.ListActiveIDsByRole(ctx, model.RoleUser)
	if err != nil || len(ids) != 0 {
		t.Fatalf("blocked user still active: %v (%v)", ids, err)
	}
	if _, err := svc.SetBlocked(ctx, admin.ID, user.ID, false); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	users, err := svc.Users(ctx)
	if err != nil || len(users) != 2 {
		t.Fatalf("users: %d (%v)", len(users), err)
	}
}

func TestSalesReport(t *testing.T) {
	gdb := testdb.Open(t)
	store := repository.NewStore(gdb)
	svc := NewService(store, &countingCache{}, activity.NewRecorder(store.Activity))
	ctx := context.Background()
	seller := testdb.User(t, gdb, "seller@example.com", model.RoleSeller)
	buyer := testdb.User(t, gdb, "buyer@example.com", model.RoleUser)
	genre := testdb.Genre(t, gdb, "Рэп")
	tr := testdb.Track(t, gdb, seller, genre, "Sold", "2.50", model.TrackStatusApproved)

	for i := 0; i < 2; i++ {
		order := &model.Order{UserID: buyer.ID, Total: decimal.RequireFromString("2.50")}
		if err := store.Orders.Create(ctx, order); err != nil {
			t.Fatalf("order: %v", err)
		}
		if err := store.Orders.CreateItems(ctx, []model.OrderItem{{OrderID: order.ID, TrackID: tr.ID, Price: order.Total}}); err != nil {
			t.Fatalf("items: %v", err)
		}
	}

	report, err := svc.SalesReport(ctx)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.TotalOrders != 2 || !report.TotalRevenue.Equal(decimal.RequireFromString("5")) {
		t.Fatalf("unexpected totals %d / %s", report.TotalOrders, report.TotalRevenue)
	}
	first := report.Orders[0]
	if first.Buyer == nil || first.Buyer.ID != buyer.ID || len(first.Items) != 1 {
		t.Fatalf("unexpected order %+v", first)
	}
	if item := first.Items[0]; item.Title != "Sold" || item.Seller == nil || item.Seller.ID != seller.ID {
		t.Fatalf("unexpected item %+v", item)
	}
}
