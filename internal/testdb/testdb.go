// Package testdb opens a migrated SQLite database for package tests.
package testdb

import (
	"fmt"
	"path/filepath"
	"testing"

	"Soundbay/db"
	"Soundbay/model"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open returns a fresh database under t.TempDir with every model migrated.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "soundbay.db")
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	gdb, err := gorm.Open(sqlite.Open(dsn), db.Options(gormlogger.Silent))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}

// User inserts an account with the given role.
func User(t testing.TB, gdb *gorm.DB, email string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{Email: email, Username: email, PasswordHash: "x", Role: role}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

// Genre inserts a genre.
func Genre(t testing.TB, gdb *gorm.DB, name string) *model.Genre {
	t.Helper()
	g := &model.Genre{Name: name}
	if err := gdb.Create(g).Error; err != nil {
		t.Fatalf("create genre %s: %v", name, err)
	}
	return g
}

// Track inserts a track in the given status.
func Track(t testing.TB, gdb *gorm.DB, seller *model.User, genre *model.Genre, title, price string, status model.TrackStatus) *model.Track {
	t.Helper()
	tr := &model.Track{
		SellerID:    seller.ID,
		Title:       title,
		Description: title + " description",
		AuthorName:  seller.Username,
		GenreID:     genre.ID,
		Price:       decimal.RequireFromString(price),
		MediaURL:    "/uploads/tracks/" + title + ".mp3",
		Status:      status,
	}
	if err := gdb.Omit("Genre", "Seller").Create(tr).Error; err != nil {
		t.Fatalf("create track %s: %v", title, err)
	}
	return tr
}
