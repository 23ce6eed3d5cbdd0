package repository

import (
	"context"
	"testing"
	"time"

	"Soundbay/internal/testdb"
	"Soundbay/model"
)

func TestReviewUpsertResetsModeration(t *testing.T) {
	gdb := testdb.Open(t)
	store := NewStore(gdb)
	ctx := context.Background()

	seller := testdb.User(t, gdb, "seller@example.com", model.RoleSeller)
	buyer := testdb.User(t, gdb, "buyer@example.com", model.RoleUser)
	admin := testdb.User(t, gdb, "admin@example.com", model.RoleAdmin)
	genre := testdb.Genre(t, gdb, "Rock")
	track := testdb.Track(t, gdb, seller, genre, "Song", "1.00", model.TrackStatusApproved)

	first, err := store.Reviews.Upsert(ctx, &model.Review{TrackID: track.ID, UserID: buyer.ID, Rating: 3, Comment: "fine"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	note := "ok"
	if n, err := store.Reviews.MarkDecided(ctx, first.ID, model.ModerationApproved, admin.ID, &note); err != nil || n != 1 {
		t.Fatalf("decide: n=%d err=%v", n, err)
	}

	second, err := store.Reviews.Upsert(ctx, &model.Review{TrackID: track.ID, UserID: buyer.ID, Rating: 5, Comment: "great"})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("resubmission created a new row: %s != %s", second.ID, first.ID)
	}
	if second.Status != model.ModerationPending || second.Rating != 5 || second.Comment != "great" {
		t.Fatalf("unexpected review after resubmission: %+v", second)
	}
	if second.ModerationNote != nil || second.ModeratedByID != nil {
		t.Fatalf("moderation fields were not cleared: %+v", second)
	}

	if n, _ := store.Reviews.MarkDecided(ctx, first.ID, model.ModerationApproved, admin.ID, nil); n != 1 {
		t.Fatalf("expected pending review to be decidable again")
	}
	if n, _ := store.Reviews.MarkDecided(ctx, first.ID, model.ModerationRejected, admin.ID, nil); n != 0 {
		t.Fatalf("decided review must not flip twice")
	}

	stats, err := store.Reviews.RatingStats(ctx, []string{track.ID})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if s := stats[track.ID]; s.Count != 1 || s.Average != 5 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestCartAndLibraryAreIdempotent(t *testing.T) {
	gdb := testdb.Open(t)
	store := NewStore(gdb)
	ctx := context.Background()

	seller := testdb.User(t, gdb, "seller@example.com", model.RoleSeller)
	buyer := testdb.User(t, gdb, "buyer@example.com", model.RoleUser)
	genre := testdb.Genre(t, gdb, "Pop")
	a := testdb.Track(t, gdb, seller, genre, "A", "2.50", model.TrackStatusApproved)
	b := testdb.Track(t, gdb, seller, genre, "B", "1.25", model.TrackStatusArchived)

	for i := 0; i < 2; i++ {
		if err := store.Carts.Add(ctx, buyer.ID, a.ID); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := store.Carts.Add(ctx, buyer.ID, b.ID); err != nil {
		t.Fatalf("add: %v", err)
	}

	var lines []CartLine
	err := store.Transaction(ctx, func(tx *Store) error {
		var err error
		lines, err = tx.Carts.LockLines(ctx, buyer.ID)
		return err
	})
	if err != nil {
		t.Fatalf("lock lines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 cart lines, got %d", len(lines))
	}
	for _, l := range lines {
		if l.TrackID == a.ID && (l.Status != model.TrackStatusApproved || l.Price.String() != "2.5") {
			t.Fatalf("unexpected line %+v", l)
		}
	}

	items := []model.LibraryItem{{UserID: buyer.ID, TrackID: a.ID, SourceOrderID: "o1", PurchasedAt: time.Now()}}
	if err := store.Library.AddMany(ctx, items); err != nil {
		t.Fatalf("add library: %v", err)
	}
	again := []model.LibraryItem{{UserID: buyer.ID, TrackID: a.ID, SourceOrderID: "o2", PurchasedAt: time.Now()}}
	if err := store.Library.AddMany(ctx, again); err != nil {
		t.Fatalf("add library twice: %v", err)
	}
	if n, _ := store.Library.Count(ctx, buyer.ID); n != 1 {
		t.Fatalf("expected 1 library item, got %d", n)
	}

	n, err := store.Carts.RemoveTracks(ctx, buyer.ID, []string{a.ID})
	if err != nil || n != 1 {
		t.Fatalf("remove tracks: n=%d err=%v", n, err)
	}
	left, _ := store.Carts.ListByUser(ctx, buyer.ID)
	if len(left) != 1 || left[0].TrackID != b.ID {
		t.Fatalf("expected only the archived track to remain, got %+v", left)
	}
}

func TestNotificationMarkRead(t *testing.T) {
	gdb := testdb.Open(t)
	store := NewStore(gdb)
	ctx := context.Background()

	owner := testdb.User(t, gdb, "owner@example.com", model.RoleUser)
	other := testdb.User(t, gdb, "other@example.com", model.RoleUser)

	n := &model.Notification{UserID: owner.ID, Message: "hello"}
	if err := store.Notifications.Create(ctx, n); err != nil {
		t.Fatalf("create: %v", err)
	}

	if ok, err := store.Notifications.MarkRead(ctx, n.ID, other.ID); err != nil || ok {
		t.Fatalf("foreign mark read: ok=%v err=%v", ok, err)
	}
	for i := 0; i < 2; i++ {
		if ok, err := store.Notifications.MarkRead(ctx, n.ID, owner.ID); err != nil || !ok {
			t.Fatalf("mark read #%d: ok=%v err=%v", i, ok, err)
		}
	}
	if c, _ := store.Notifications.CountUnread(ctx, owner.ID); c != 0 {
		t.Fatalf("expected 0 unread, got %d", c)
	}
}

func TestTrackSearchFilters(t *testing.T) {
	gdb := testdb.Open(t)
	store := NewStore(gdb)
	ctx := context.Background()

	seller := testdb.User(t, gdb, "seller@example.com", model.RoleSeller)
	rock := testdb.Genre(t, gdb, "Rock")
	pop := testdb.Genre(t, gdb, "Pop")
	testdb.Track(t, gdb, seller, rock, "Cheap Rock", "1.00", model.TrackStatusApproved)
	testdb.Track(t, gdb, seller, rock, "Pricey Rock", "9.00", model.TrackStatusApproved)
	testdb.Track(t, gdb, seller, pop, "Pop Song", "5.00", model.TrackStatusApproved)
	testdb.Track(t, gdb, seller, pop, "Hidden Pop", "5.00", model.TrackStatusPending)

	got, err := store.Tracks.Search(ctx, TrackFilter{Genre: "roc", OrderBy: TrackOrderPriceDesc})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 || got[0].Title != "Pricey Rock" {
		t.Fatalf("unexpected genre search result %+v", got)
	}
	if got[0].Genre == nil || got[0].Genre.Name != "Rock" {
		t.Fatalf("genre not preloaded")
	}

	got, err = store.Tracks.Search(ctx, TrackFilter{Search: "POP"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Pop Song" {
		t.Fatalf("pending track leaked or search broken: %+v", got)
	}
}

func TestGenreDeleteKeepsLinkedGenre(t *testing.T) {
	gdb := testdb.Open(t)
	store := NewStore(gdb)
	ctx := context.Background()

	seller := testdb.User(t, gdb, "seller@example.com", model.RoleSeller)
	rock := testdb.Genre(t, gdb, "Rock")
	jazz := testdb.Genre(t, gdb, "Jazz")
	testdb.Track(t, gdb, seller, rock, "Linked", "1.00", model.TrackStatusArchived)

	deleted, err := store.Genres.Delete(ctx, rock.ID)
	if err != nil {
		t.Fatalf("delete linked: %v", err)
	}
	if deleted {
		t.Fatalf("linked genre reported as deleted")
	}
	if g, _ := store.Genres.GetByID(ctx, rock.ID); g == nil {
		t.Fatalf("linked genre was deleted")
	}

	err = store.Transaction(ctx, func(tx *Store) error {
		g, err := tx.Genres.GetForUpdate(ctx, jazz.ID)
		if err != nil || g == nil {
			t.Fatalf("lock genre: %+v (%v)", g, err)
		}
		deleted, err = tx.Genres.Delete(ctx, g.ID)
		return err
	})
	if err != nil || !deleted {
		t.Fatalf("delete unused: deleted=%v err=%v", deleted, err)
	}
	if g, _ := store.Genres.GetForUpdate(ctx, jazz.ID); g != nil {
		t.Fatalf("unused genre still present")
	}
}

func TestPlaylistGetOwnedWithTracks(t *testing.T) {
	gdb := testdb.Open(t)
	store := NewStore(gdb)
	ctx := context.Background()

	seller := testdb.User(t, gdb, "seller@example.com", model.RoleSeller)
	owner := testdb.User(t, gdb, "owner@example.com", model.RoleUser)
	stranger := testdb.User(t, gdb, "stranger@example.com", model.RoleUser)
	genre := testdb.Genre(t, gdb, "Jazz")
	first := testdb.Track(t, gdb, seller, genre, "First", "1.00", model.TrackStatusApproved)
	second := testdb.Track(t, gdb, seller, genre, "Second", "1.00", model.TrackStatusApproved)

	evening := &model.Playlist{UserID: owner.ID, Name: "Evening"}
	morning := &model.Playlist{UserID: owner.ID, Name: "Morning"}
	for _, p := range []*model.Playlist{evening, morning} {
		if err := store.Playlists.Create(ctx, p); err != nil {
			t.Fatalf("create %s: %v", p.Name, err)
		}
	}
	if err := store.Playlists.AddTrack(ctx, evening.ID, first.ID); err != nil {
		t.Fatalf("add first: %v", err)
	}
	if err := store.Playlists.AddTrack(ctx, evening.ID, second.ID); err != nil {
		t.Fatalf("add second: %v", err)
	}
	if err := store.Playlists.AddTrack(ctx, morning.ID, second.ID); err != nil {
		t.Fatalf("add to morning: %v", err)
	}

	got, err := store.Playlists.GetOwnedWithTracks(ctx, evening.ID, owner.ID)
	if err != nil || got == nil {
		t.Fatalf("get owned: %+v (%v)", got, err)
	}
	if got.Name != "Evening" || len(got.Entries) != 2 {
		t.Fatalf("unexpected playlist %+v", got)
	}
	for _, e := range got.Entries {
		if e.Track == nil || e.Track.Genre == nil || e.Track.Genre.Name != "Jazz" {
			t.Fatalf("entry not preloaded: %+v", e)
		}
	}

	got, err = store.Playlists.GetOwnedWithTracks(ctx, evening.ID, stranger.ID)
	if err != nil || got != nil {
		t.Fatalf("foreign playlist returned: %+v (%v)", got, err)
	}
}
