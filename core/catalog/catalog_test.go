package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"Soundbay/apperr"
	"Soundbay/cache"
	"Soundbay/core/activity"
	"Soundbay/core/moderation"
	"Soundbay/core/notify"
	"Soundbay/internal/testdb"
	"Soundbay/model"
	"Soundbay/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type env struct {
	gdb      *gorm.DB
	store    *repository.Store
	cache    *cache.CatalogCache
	redis    *miniredis.Miniredis
	notifier *notify.Notifier
	sink     *activity.Recorder
	svc      *Service
}

func newEnv(t *testing.T) *env {
	gdb := testdb.Open(t)
	store := repository.NewStore(gdb)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	e := &env{
		gdb:      gdb,
		store:    store,
		cache:    cache.NewCatalogCache(client, time.Minute),
		redis:    mr,
		notifier: notify.NewNotifier(store.Notifications, store.Users, nil),
		sink:     activity.NewRecorder(store.Activity),
	}
	e.svc = NewService(store, e.cache, e.notifier, e.sink)
	return e
}

func titles(list *TrackList) []string {
	out := make([]string, len(list.Tracks))
	for i, t := range list.Tracks {
		out[i] = t.Title
	}
	return out
}

func TestListTracksFiltersAndSorts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seller := testdb.User(t, e.gdb, "seller@example.com", model.RoleSeller)
	rock := testdb.Genre(t, e.gdb, "Рок")
	pop := testdb.Genre(t, e.gdb, "Поп")
	testdb.Track(t, e.gdb, seller, rock, "Cheap rock", "1.00", model.TrackStatusApproved)
	testdb.Track(t, e.gdb, seller, pop, "Pricey pop", "9.00", model.TrackStatusApproved)
	testdb.Track(t, e.gdb, seller, pop, "Hidden", "5.00", model.TrackStatusPending)

	list, err := e.svc.ListTracks(ctx, TrackQuery{Sort: SortPriceDesc})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := strings.Join(titles(list), ","); got != "Pricey pop,Cheap rock" {
		t.Fatalf("unexpected order %q", got)
	}
	if list.Tracks[0].Genre == nil || list.Tracks[0].Genre.Name != "Поп" {
		t.Fatalf("genre not attached: %+v", list.Tracks[0])
	}

	ceiling := decimal.RequireFromString("5")
	list, err = e.svc.ListTracks(ctx, TrackQuery{MaxPrice: &ceiling})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := strings.Join(titles(list), ","); got != "Cheap rock" {
		t.Fatalf("price bound ignored: %q", got)
	}

	list, err = e.svc.ListTracks(ctx, TrackQuery{Genre: rock.ID})
	if err != nil || len(list.Tracks) != 1 || list.Tracks[0].Title != "Cheap rock" {
		t.Fatalf("genre filter: %+v (%v)", list, err)
	}

	list, err = e.svc.ListTracks(ctx, TrackQuery{Search: "PRICEY"})
	if err != nil || len(list.Tracks) != 1 {
		t.Fatalf("search: %+v (%v)", list, err)
	}

	_, err = e.svc.ListTracks(ctx, TrackQuery{Sort: "random"})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation for unknown sort, got %v", err)
	}
}

func TestListTracksServedFromCache(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seller := testdb.User(t, e.gdb, "seller@example.com", model.RoleSeller)
	genre := testdb.Genre(t, e.gdb, "Поп")
	testdb.Track(t, e.gdb, seller, genre, "First", "1.00", model.TrackStatusApproved)

	if _, err := e.svc.ListTracks(ctx, TrackQuery{}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if n := len(e.redis.Keys()); n != 1 {
		t.Fatalf("expected one cached listing, got %d", n)
	}

	// 直接写库，缓存不会感知
	testdb.Track(t, e.gdb, seller, genre, "Second", "2.00", model.TrackStatusApproved)
	list, err := e.svc.ListTracks(ctx, TrackQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Tracks) != 1 {
		t.Fatalf("expected cached result, got %v", titles(list))
	}

	if err := e.cache.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	list, err = e.svc.ListTracks(ctx, TrackQuery{})
	if err != nil || len(list.Tracks) != 2 {
		t.Fatalf("expected fresh result after invalidation, got %v (%v)", titles(list), err)
	}
}

func TestReviewsAffectRatingOnlyWhenApproved(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seller := testdb.User(t, e.gdb, "seller@example.com", model.RoleSeller)
	admin := testdb.User(t, e.gdb, "admin@example.com", model.RoleAdmin)
	buyer := testdb.User(t, e.gdb, "buyer@example.com", model.RoleUser)
	genre := testdb.Genre(t, e.gdb, "Рок")
	low := testdb.Track(t, e.gdb, seller, genre, "Low", "1.00", model.TrackStatusApproved)
	high := testdb.Track(t, e.gdb, seller, genre, "High", "1.00", model.TrackStatusApproved)
	engine := moderation.NewEngine(e.store, e.cache, e.notifier, e.sink)

	_, err := e.svc.SubmitReview(ctx, high.ID, buyer.ID, ReviewInput{Rating: 0, Comment: "x"})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation, got %v", err)
	}

	r1, err := e.svc.SubmitReview(ctx, high.ID, buyer.ID, ReviewInput{Rating: 5, Comment: "  superb  "})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if r1.Status != model.ModerationPending || r1.Comment != "superb" {
		t.Fatalf("unexpected review %+v", r1)
	}
	if _, err := e.svc.SubmitReview(ctx, low.ID, buyer.ID, ReviewInput{Rating: 2, Comment: "meh"}); err != nil {
		t.Fatalf("review: %v", err)
	}
	unread, _ := e.store.Notifications.CountUnread(ctx, admin.ID)
	if unread != 2 {
		t.Fatalf("expected admin notified twice, got %d", unread)
	}

	detail, err := e.svc.TrackDetail(ctx, high.ID)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if detail.RatingCount != 0 || len(detail.Reviews) != 0 {
		t.Fatalf("pending review leaked: %+v", detail)
	}

	if _, err := engine.DecideReview(ctx, r1.ID, admin.ID, model.DecisionApprove, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}
	list, err := e.svc.ListTracks(ctx, TrackQuery{Sort: SortRatingDesc})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Tracks[0].ID != high.ID || list.Tracks[0].AverageRating != 5 || list.Tracks[0].RatingCount != 1 {
		t.Fatalf("rating sort wrong: %+v", list.Tracks)
	}

	detail, err = e.svc.TrackDetail(ctx, high.ID)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if len(detail.Reviews) != 1 || detail.Reviews[0].User == nil || detail.Reviews[0].User.ID != buyer.ID {
		t.Fatalf("approved review missing: %+v", detail.Reviews)
	}
}

func TestPublishedTrackAppearsInCatalog(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seller := testdb.User(t, e.gdb, "seller@example.com", model.RoleSeller)
	admin := testdb.User(t, e.gdb, "admin@example.com", model.RoleAdmin)
	genre := testdb.Genre(t, e.gdb, "Електронная")
	engine := moderation.NewEngine(e.store, e.cache, e.notifier, e.sink)

	track, req, err := engine.SubmitCreate(ctx, seller.ID, model.TrackSnapshot{
		Title:       "Баобаб",
		Description: "Летний трек для долгих поездок",
		AuthorName:  "Seller",
		GenreID:     genre.ID,
		Price:       decimal.RequireFromString("4.49"),
		MediaURL:    "/uploads/tracks/1-baobab.mp3",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	list, err := e.svc.ListTracks(ctx, TrackQuery{Search: "баобаб"})
	if err != nil || len(list.Tracks) != 0 {
		t.Fatalf("pending track visible: %+v (%v)", list, err)
	}
	if _, err := e.svc.TrackDetail(ctx, track.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found for pending track, got %v", err)
	}

	note := "ok"
	if _, err := engine.Decide(ctx, req.ID, admin.ID, model.DecisionApprove, &note); err != nil {
		t.Fatalf("approve: %v", err)
	}

	list, err = e.svc.ListTracks(ctx, TrackQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Tracks) != 1 || list.Tracks[0].Title != "Баобаб" || !list.Tracks[0].Price.Equal(decimal.RequireFromString("4.49")) {
		t.Fatalf("approved track not listed: %+v", list.Tracks)
	}

	notes, err := e.notifier.List(ctx, seller.ID, 0)
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}
	if len(notes) != 1 || notes[0].Metadata.Data().TrackID != track.ID || notes[0].Metadata.Data().Note != "ok" {
		t.Fatalf("seller notification wrong: %+v", notes)
	}
}
