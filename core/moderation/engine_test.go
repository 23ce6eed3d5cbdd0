package moderation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"Soundbay/apperr"
	"Soundbay/core/activity"
	"Soundbay/internal/testdb"
	"Soundbay/model"
	"Soundbay/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type sentNote struct {
	to      string
	message string
	meta    model.NotificationMetadata
}

type fakeNotifier struct {
	mu    sync.Mutex
	users []sentNote
	roles []sentNote
}

func (f *fakeNotifier) NotifyUser(_ context.Context, userID, message string, meta model.NotificationMetadata) (*model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, sentNote{to: userID, message: message, meta: meta})
	return &model.Notification{UserID: userID, Message: message}, nil
}

func (f *fakeNotifier) NotifyRole(_ context.Context, role model.Role, message string, meta model.NotificationMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles = append(f.roles, sentNote{to: string(role), message: message, meta: meta})
	return nil
}

type fakeSink struct {
	entries []activity.Entry
}

func (s *fakeSink) Record(_ context.Context, e activity.Entry) { s.entries = append(s.entries, e) }

type countingCache struct{ n int }

func (c *countingCache) Invalidate(context.Context) error {
	c.n++
	return nil
}

type fixture struct {
	gdb      *gorm.DB
	store    *repository.Store
	engine   *Engine
	notifier *fakeNotifier
	sink     *fakeSink
	cache    *countingCache
	seller   *model.User
	admin    *model.User
	genre    *model.Genre
}

func newFixture(t *testing.T) *fixture {
	gdb := testdb.Open(t)
	store := repository.NewStore(gdb)
	f := &fixture{
		gdb:      gdb,
		store:    store,
		notifier: &fakeNotifier{},
		sink:     &fakeSink{},
		cache:    &countingCache{},
	}
	f.engine = NewEngine(store, f.cache, f.notifier, f.sink)
	f.seller = testdb.User(t, gdb, "seller@example.com", model.RoleSeller)
	f.admin = testdb.User(t, gdb, "admin@example.com", model.RoleAdmin)
	f.genre = testdb.Genre(t, gdb, "Рок")
	return f
}

func snapshot(genreID, title, price string) model.TrackSnapshot {
	return model.TrackSnapshot{
		Title:       title,
		Description: "Some description here",
		AuthorName:  "Author",
		GenreID:     genreID,
		Price:       decimal.RequireFromString(price),
		MediaURL:    "/uploads/tracks/1-a.mp3",
	}
}

func (f *fixture) track(t *testing.T, id string) *model.Track {
	t.Helper()
	tr, err := f.store.Tracks.GetByID(context.Background(), id)
	if err != nil || tr == nil {
		t.Fatalf("load track %s: %v", id, err)
	}
	return tr
}

func TestCreateApproveThenUpdateMergesFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	track, req, err := f.engine.SubmitCreate(ctx, f.seller.ID, snapshot(f.genre.ID, "Баобаб", "4.49"))
	if err != nil {
		t.Fatalf("submit create: %v", err)
	}
	if track.Status != model.TrackStatusPending || req.Status != model.ModerationPending {
		t.Fatalf("expected pending track and request, got %s/%s", track.Status, req.Status)
	}
	if len(f.notifier.roles) != 1 || f.notifier.roles[0].message != "Новый трек «Баобаб» отправлен на модерацию" {
		t.Fatalf("admins not notified: %+v", f.notifier.roles)
	}

	if _, err := f.engine.Decide(ctx, req.ID, f.admin.ID, model.DecisionApprove, nil); err != nil {
		t.Fatalf("approve create: %v", err)
	}
	got := f.track(t, track.ID)
	if got.Status != model.TrackStatusApproved || got.PublishedAt == nil {
		t.Fatalf("expected approved and published track, got %+v", got)
	}

	price := decimal.RequireFromString("3.99")
	upd, err := f.engine.SubmitUpdate(ctx, f.seller.ID, track.ID, model.TrackChanges{Price: &price})
	if err != nil {
		t.Fatalf("submit update: %v", err)
	}
	// 审核前曲目不变
	if got := f.track(t, track.ID); !got.Price.Equal(decimal.RequireFromString("4.49")) {
		t.Fatalf("price changed before approval: %s", got.Price)
	}

	note := "ok"
	decided, err := f.engine.Decide(ctx, upd.ID, f.admin.ID, model.DecisionApprove, &note)
	if err != nil {
		t.Fatalf("approve update: %v", err)
	}
	if decided.Status != model.ModerationApproved || decided.ModeratorID == nil || *decided.ModeratorID != f.admin.ID {
		t.Fatalf("request not marked decided: %+v", decided)
	}
	got = f.track(t, track.ID)
	if !got.Price.Equal(price) || got.Title != "Баобаб" || got.Description != "Some description here" {
		t.Fatalf("update not merged: %+v", got)
	}

	last := f.notifier.users[len(f.notifier.users)-1]
	if last.to != f.seller.ID || last.message != "Ваш запрос на модерацию трека одобрен" || last.meta.Note != "ok" {
		t.Fatalf("seller notification wrong: %+v", last)
	}
	if f.cache.n < 2 {
		t.Fatalf("expected catalog invalidation, got %d", f.cache.n)
	}
}

func TestDecideIsOneShot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, req, err := f.engine.SubmitCreate(ctx, f.seller.ID, snapshot(f.genre.ID, "Я пират", "2.99"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.engine.Decide(ctx, req.ID, f.admin.ID, model.DecisionApprove, nil); err != nil {
		t.Fatalf("first decision: %v", err)
	}
	_, err = f.engine.Decide(ctx, req.ID, f.admin.ID, model.DecisionReject, nil)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict on second decision, got %v", err)
	}
	if got := f.track(t, *req.TrackID); got.Status != model.TrackStatusApproved {
		t.Fatalf("second decision changed the track: %s", got.Status)
	}

	_, err = f.engine.Decide(ctx, "missing", f.admin.ID, model.DecisionApprove, nil)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	_, err = f.engine.Decide(ctx, req.ID, f.admin.ID, model.Decision("maybe"), nil)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRejectCreateAndApproveDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rejected, req, err := f.engine.SubmitCreate(ctx, f.seller.ID, snapshot(f.genre.ID, "Reject me", "1.00"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.engine.Decide(ctx, req.ID, f.admin.ID, model.DecisionReject, nil); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got := f.track(t, rejected.ID); got.Status != model.TrackStatusRejected {
		t.Fatalf("expected rejected track, got %s", got.Status)
	}
	last := f.notifier.users[len(f.notifier.users)-1]
	if last.message != "Ваш запрос на модерацию трека отклонён" {
		t.Fatalf("unexpected message %q", last.message)
	}

	live := testdb.Track(t, f.gdb, f.seller, f.genre, "Live", "5.00", model.TrackStatusApproved)
	del, err := f.engine.SubmitDelete(ctx, f.seller.ID, live.ID)
	if err != nil {
		t.Fatalf("submit delete: %v", err)
	}
	if got := del.Payload.Data().Delete; got == nil || got.Title != "Live" {
		t.Fatalf("delete payload missing: %+v", del.Payload.Data())
	}
	if _, err := f.engine.Decide(ctx, del.ID, f.admin.ID, model.DecisionApprove, nil); err != nil {
		t.Fatalf("approve delete: %v", err)
	}
	if got := f.track(t, live.ID); got.Status != model.TrackStatusArchived {
		t.Fatalf("expected archived track, got %s", got.Status)
	}

	// 已归档的曲目不能再提交
	_, err = f.engine.SubmitDelete(ctx, f.seller.ID, live.ID)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found for archived track, got %v", err)
	}
}

func TestSubmitChecksOwnershipAndPayload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := testdb.User(t, f.gdb, "other@example.com", model.RoleSeller)
	tr := testdb.Track(t, f.gdb, f.seller, f.genre, "Mine", "2.00", model.TrackStatusApproved)

	title := "Stolen"
	_, err := f.engine.SubmitUpdate(ctx, other.ID, tr.ID, model.TrackChanges{Title: &title})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found for foreign track, got %v", err)
	}
	_, err = f.engine.SubmitUpdate(ctx, f.seller.ID, tr.ID, model.TrackChanges{})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation for empty update, got %v", err)
	}
	missing := "no-such-genre"
	_, err = f.engine.SubmitUpdate(ctx, f.seller.ID, tr.ID, model.TrackChanges{GenreID: &missing})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected genre not found, got %v", err)
	}
	_, err = f.engine.Submit(ctx, Submission{
		Type:     model.ModerationTrackDelete,
		TrackID:  tr.ID,
		SellerID: f.seller.ID,
		Payload:  model.ModerationPayload{Update: &model.TrackChanges{Title: &title}},
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected mismatched payload rejection, got %v", err)
	}
	_, _, err = f.engine.SubmitCreate(ctx, f.seller.ID, snapshot("no-such-genre", "X", "1.00"))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected genre not found on create, got %v", err)
	}

	pending, err := f.engine.PendingTrackRequests(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("failed submissions left requests behind: %d", len(pending))
	}
}

func TestDecideReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := testdb.User(t, f.gdb, "buyer@example.com", model.RoleUser)
	tr := testdb.Track(t, f.gdb, f.seller, f.genre, "Город под подошвой", "3.99", model.TrackStatusApproved)

	review, err := f.store.Reviews.Upsert(ctx, &model.Review{
		TrackID: tr.ID, UserID: buyer.ID, Rating: 5, Comment: "great", Status: model.ModerationPending,
	})
	if err != nil {
		t.Fatalf("upsert review: %v", err)
	}

	queue, err := f.engine.PendingReviews(ctx)
	if err != nil || len(queue) != 1 || queue[0].User.ID != buyer.ID || queue[0].Track.Title != tr.Title {
		t.Fatalf("unexpected review queue %+v (%v)", queue, err)
	}

	got, err := f.engine.DecideReview(ctx, review.ID, f.admin.ID, model.DecisionApprove, nil)
	if err != nil {
		t.Fatalf("approve review: %v", err)
	}
	if got.Status != model.ModerationApproved {
		t.Fatalf("review not approved: %s", got.Status)
	}
	if len(f.notifier.users) != 2 {
		t.Fatalf("expected author and seller notified, got %+v", f.notifier.users)
	}
	if f.notifier.users[0].to != buyer.ID || f.notifier.users[1].to != f.seller.ID {
		t.Fatalf("notifications sent to wrong users: %+v", f.notifier.users)
	}
	if f.notifier.users[1].message != "Новый одобренный отзыв к треку «Город под подошвой»" {
		t.Fatalf("unexpected seller message %q", f.notifier.users[1].message)
	}

	_, err = f.engine.DecideReview(ctx, review.ID, f.admin.ID, model.DecisionReject, nil)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	last := f.sink.entries[len(f.sink.entries)-1]
	if last.Action != activity.ActionApproveReview || last.EntityID != review.ID {
		t.Fatalf("unexpected activity %+v", last)
	}
}

func TestRejectUpdateAndDeleteLeaveTrackUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := testdb.Track(t, f.gdb, f.seller, f.genre, "Original", "2.00", model.TrackStatusApproved)

	title := "Renamed"
	upd, err := f.engine.SubmitUpdate(ctx, f.seller.ID, tr.ID, model.TrackChanges{Title: &title})
	if err != nil {
		t.Fatalf("submit update: %v", err)
	}
	decided, err := f.engine.Decide(ctx, upd.ID, f.admin.ID, model.DecisionReject, nil)
	if err != nil {
		t.Fatalf("reject update: %v", err)
	}
	if decided.Status != model.ModerationRejected {
		t.Fatalf("request not rejected: %s", decided.Status)
	}
	got := f.track(t, tr.ID)
	if got.Title != "Original" || got.Status != model.TrackStatusApproved || !got.Price.Equal(decimal.RequireFromString("2.00")) {
		t.Fatalf("rejected update changed the track: %+v", got)
	}

	del, err := f.engine.SubmitDelete(ctx, f.seller.ID, tr.ID)
	if err != nil {
		t.Fatalf("submit delete: %v", err)
	}
	if _, err := f.engine.Decide(ctx, del.ID, f.admin.ID, model.DecisionReject, nil); err != nil {
		t.Fatalf("reject delete: %v", err)
	}
	got = f.track(t, tr.ID)
	if got.Status != model.TrackStatusApproved || got.Title != "Original" {
		t.Fatalf("rejected delete changed the track: %+v", got)
	}
}

func TestDecideWithMissingTrackHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	track, req, err := f.engine.SubmitCreate(ctx, f.seller.ID, snapshot(f.genre.ID, "Gone", "1.00"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := f.gdb.Where("id = ?", track.ID).Delete(&model.Track{}).Error; err != nil {
		t.Fatalf("remove track row: %v", err)
	}
	users, roles, entries, invalidations := len(f.notifier.users), len(f.notifier.roles), len(f.sink.entries), f.cache.n

	_, err = f.engine.Decide(ctx, req.ID, f.admin.ID, model.DecisionApprove, nil)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	stored, err := f.store.Moderation.GetByID(ctx, req.ID)
	if err != nil || stored == nil {
		t.Fatalf("load request: %+v (%v)", stored, err)
	}
	if stored.Status != model.ModerationPending || stored.ModeratorID != nil {
		t.Fatalf("request changed by failed decision: %+v", stored)
	}
	if len(f.notifier.users) != users || len(f.notifier.roles) != roles {
		t.Fatalf("failed decision sent notifications: %+v %+v", f.notifier.users, f.notifier.roles)
	}
	if len(f.sink.entries) != entries {
		t.Fatalf("failed decision recorded activity: %+v", f.sink.entries)
	}
	if f.cache.n != invalidations {
		t.Fatalf("failed decision invalidated the catalog")
	}
}
