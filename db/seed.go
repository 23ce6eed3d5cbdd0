package db

import (
	"context"
	"fmt"
	"time"

	"Soundbay/core/auth"
	"Soundbay/logger"
	"Soundbay/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type seedUser struct {
	email, username, password string
	role                      model.Role
}

var seedUsers = []seedUser{
	{"admin", "System Admin", "admin", model.RoleAdmin},
	{"seller@goldensound.dev", "Demo Seller", "seller123", model.RoleSeller},
	{"user@goldensound.dev", "Demo User", "user123", model.RoleUser},
}

var seedGenres = []string{"Электронная", "Рок", "Хип-хоп", "Рэп", "Поп"}

type seedTrack struct {
	title, description, price, media, cover, genre string
}

var seedTracks = []seedTrack{
	{"Город под подошвой", "Жизнеутверждающий трек папочки окси", "3.99", "demo-oxxxy.mp3", "demo-city.jpg", "Рэп"},
	{"Баобаб", "Лучший трек ивана золкина", "4.49", "demo-guitar-horizon.mp3", "demo-baobab.jpg", "Поп"},
	{"Я пират", "Классика от Александра Пистолетова", "2.99", "demo-midnight-coffee.mp3", "demo-pirate.jpg", "Рок"},
}

// Seed 写入演示账号、曲风和已上架曲目。重复执行不会产生重复数据
func Seed(ctx context.Context, gdb *gorm.DB) error {
	return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := make(map[model.Role]*model.User, len(seedUsers))
		for _, su := range seedUsers {
			hash, err := auth.HashPassword(su.password)
			if err != nil {
				return fmt.Errorf("failed to hash password for %s: %w", su.email, err)
			}
			var u model.User
			err = tx.Where(model.User{Email: su.email}).
				Attrs(model.User{Username: su.username, PasswordHash: hash, Role: su.role}).
				FirstOrCreate(&u).Error
			if err != nil {
				return fmt.Errorf("failed to seed user %s: %w", su.email, err)
			}
			users[su.role] = &u
		}

		genres := make(map[string]*model.Genre, len(seedGenres))
		for _, name := range seedGenres {
			var g model.Genre
			if err := tx.Where("name = ?", name).FirstOrCreate(&g, model.Genre{Name: name}).Error; err != nil {
				return fmt.Errorf("failed to seed genre %s: %w", name, err)
			}
			genres[name] = &g
		}

		seller := users[model.RoleSeller]
		created := 0
		for _, st := range seedTracks {
			var count int64
			if err := tx.Model(&model.Track{}).Where("seller_id = ? AND title = ?", seller.ID, st.title).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check track %s: %w", st.title, err)
			}
			if count > 0 {
				continue
			}
			now := time.Now()
			cover := "/uploads/covers/" + st.cover
			track := model.Track{
				SellerID:    seller.ID,
				Title:       st.title,
				Description: st.description,
				AuthorName:  seller.Username,
				GenreID:     genres[st.genre].ID,
				Price:       decimal.RequireFromString(st.price),
				MediaURL:    "/uploads/tracks/" + st.media,
				CoverURL:    &cover,
				Status:      model.TrackStatusApproved,
				PublishedAt: &now,
			}
			if err := tx.Omit("Genre", "Seller").Create(&track).Error; err != nil {
				return fmt.Errorf("failed to seed track %s: %w", st.title, err)
			}
			created++
		}
		logger.Info("Seed data ready", logger.Int("tracksCreated", created))
		return nil
	})
}
