package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Soundbay/cache"
	"Soundbay/config"
	"Soundbay/core/account"
	"Soundbay/core/activity"
	"Soundbay/core/admin"
	"Soundbay/core/auth"
	"Soundbay/core/catalog"
	"Soundbay/core/checkout"
	"Soundbay/core/hub"
	"Soundbay/core/library"
	"Soundbay/core/moderation"
	"Soundbay/core/notify"
	"Soundbay/core/seller"
	"Soundbay/db"
	"Soundbay/logger"
	"Soundbay/model"
	"Soundbay/repository"
	"Soundbay/storage"

	"github.com/gorilla/mux"
)

// Deps 外部资源，由 Start 或测试构造
type Deps struct {
	Store  *repository.Store
	Cache  *cache.CatalogCache
	Files  storage.FileStore
	Tokens *auth.TokenManager
}

// Wire 构造全部服务，返回 API 处理器和推送 hub
func Wire(d Deps) (*APIHandler, *hub.Hub) {
	recorder := activity.NewRecorder(d.Store.Activity)
	accounts := account.NewService(d.Store.Users, d.Tokens, d.Files, recorder)
	wsHub := hub.New(accounts)
	notifier := notify.NewNotifier(d.Store.Notifications, d.Store.Users, wsHub)
	engine := moderation.NewEngine(d.Store, d.Cache, notifier, recorder)

	h := NewAPIHandler(Services{
		Accounts:   accounts,
		Catalog:    catalog.NewService(d.Store, d.Cache, notifier, recorder),
		Checkout:   checkout.NewService(d.Store, notifier, recorder),
		Library:    library.NewService(d.Store),
		Seller:     seller.NewService(d.Store, engine, d.Files),
		Admin:      admin.NewService(d.Store, d.Cache, recorder),
		Moderation: engine,
		Notifier:   notifier,
	})
	return h, wsHub
}

// NewRouter 注册全部路由，CORS 和访问日志包在最外层以便处理 OPTIONS 预检
func NewRouter(h *APIHandler, ws http.Handler, files storage.FileStore, clientURL string) http.Handler {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)

	// 用户认证相关的API端点
	api.HandleFunc("/auth/register", h.RegisterHandler).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.LoginHandler).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", h.AuthMiddleware(h.MeHandler)).Methods(http.MethodGet)
	api.HandleFunc("/auth/logout", h.LogoutHandler).Methods(http.MethodPost)

	api.HandleFunc("/users/profile", h.AuthMiddleware(h.GetUserProfileHandler)).Methods(http.MethodGet)
	api.HandleFunc("/users/profile", h.AuthMiddleware(h.UpdateUserProfileHandler)).Methods(http.MethodPatch)
	api.HandleFunc("/users/password", h.AuthMiddleware(h.ChangePasswordHandler)).Methods(http.MethodPatch)
	api.HandleFunc("/users/notifications", h.AuthMiddleware(h.ListNotificationsHandler)).Methods(http.MethodGet)
	api.HandleFunc("/users/notifications/read-all", h.AuthMiddleware(h.MarkAllNotificationsReadHandler)).Methods(http.MethodPatch)
	api.HandleFunc("/users/notifications/{id}/read", h.AuthMiddleware(h.MarkNotificationReadHandler)).Methods(http.MethodPatch)

	// 公开目录
	api.HandleFunc("/catalog/genres", h.GenresHandler).Methods(http.MethodGet)
	api.HandleFunc("/catalog/tracks", h.ListTracksHandler).Methods(http.MethodGet)
	api.HandleFunc("/catalog/tracks/{id}", h.TrackDetailHandler).Methods(http.MethodGet)
	api.HandleFunc("/catalog/tracks/{id}/reviews", h.AuthMiddleware(h.SubmitReviewHandler)).Methods(http.MethodPost)

	api.HandleFunc("/cart", h.AuthMiddleware(h.GetCartHandler)).Methods(http.MethodGet)
	api.HandleFunc("/cart/items", h.AuthMiddleware(h.AddToCartHandler)).Methods(http.MethodPost)
	api.HandleFunc("/cart/items/{trackId}", h.AuthMiddleware(h.RemoveFromCartHandler)).Methods(http.MethodDelete)
	api.HandleFunc("/cart/checkout", h.AuthMiddleware(h.CheckoutHandler)).Methods(http.MethodPost)

	// 媒体库与歌单
	api.HandleFunc("/library/tracks", h.AuthMiddleware(h.LibraryTracksHandler)).Methods(http.MethodGet)
	api.HandleFunc("/library/orders", h.AuthMiddleware(h.LibraryOrdersHandler)).Methods(http.MethodGet)
	api.HandleFunc("/library/playlists", h.AuthMiddleware(h.ListPlaylistsHandler)).Methods(http.MethodGet)
	api.HandleFunc("/library/playlists", h.AuthMiddleware(h.CreatePlaylistHandler)).Methods(http.MethodPost)
	api.HandleFunc("/library/playlists/{id}", h.AuthMiddleware(h.RenamePlaylistHandler)).Methods(http.MethodPatch)
	api.HandleFunc("/library/playlists/{id}", h.AuthMiddleware(h.DeletePlaylistHandler)).Methods(http.MethodDelete)
	api.HandleFunc("/library/playlists/{id}/tracks", h.AuthMiddleware(h.AddPlaylistTrackHandler)).Methods(http.MethodPost)
	api.HandleFunc("/library/playlists/{id}/tracks/{trackId}", h.AuthMiddleware(h.RemovePlaylistTrackHandler)).Methods(http.MethodDelete)

	// 卖家
	api.HandleFunc("/seller/tracks", h.RequireRole(model.RoleSeller, h.SellerTracksHandler)).Methods(http.MethodGet)
	api.HandleFunc("/seller/tracks", h.RequireRole(model.RoleSeller, h.CreateTrackHandler)).Methods(http.MethodPost)
	api.HandleFunc("/seller/tracks/{id}", h.RequireRole(model.RoleSeller, h.UpdateTrackHandler)).Methods(http.MethodPatch)
	api.HandleFunc("/seller/tracks/{id}", h.RequireRole(model.RoleSeller, h.DeleteTrackHandler)).Methods(http.MethodDelete)
	api.HandleFunc("/seller/dashboard", h.RequireRole(model.RoleSeller, h.SellerDashboardHandler)).Methods(http.MethodGet)

	// 管理后台
	adminOnly := func(f http.HandlerFunc) http.HandlerFunc { return h.RequireRole(model.RoleAdmin, f) }
	api.HandleFunc("/admin/moderation/tracks", adminOnly(h.PendingTracksHandler)).Methods(http.MethodGet)
	api.HandleFunc("/admin/moderation/tracks/{id}/approve", adminOnly(h.DecideTrackHandler(model.DecisionApprove))).Methods(http.MethodPost)
	api.HandleFunc("/admin/moderation/tracks/{id}/reject", adminOnly(h.DecideTrackHandler(model.DecisionReject))).Methods(http.MethodPost)
	api.HandleFunc("/admin/moderation/reviews", adminOnly(h.PendingReviewsHandler)).Methods(http.MethodGet)
	api.HandleFunc("/admin/moderation/reviews/{id}/approve", adminOnly(h.DecideReviewHandler(model.DecisionApprove))).Methods(http.MethodPost)
	api.HandleFunc("/admin/moderation/reviews/{id}/reject", adminOnly(h.DecideReviewHandler(model.DecisionReject))).Methods(http.MethodPost)
	api.HandleFunc("/admin/users", adminOnly(h.ListUsersHandler)).Methods(http.MethodGet)
	api.HandleFunc("/admin/users/{id}/block", adminOnly(h.SetBlockedHandler(true))).Methods(http.MethodPost)
	api.HandleFunc("/admin/users/{id}/unblock", adminOnly(h.SetBlockedHandler(false))).Methods(http.MethodPost)
	api.HandleFunc("/admin/genres", adminOnly(h.AdminGenresHandler)).Methods(http.MethodGet)
	api.HandleFunc("/admin/genres", adminOnly(h.CreateGenreHandler)).Methods(http.MethodPost)
	api.HandleFunc("/admin/genres/{id}", adminOnly(h.RenameGenreHandler)).Methods(http.MethodPatch)
	api.HandleFunc("/admin/genres/{id}", adminOnly(h.DeleteGenreHandler)).Methods(http.MethodDelete)
	api.HandleFunc("/admin/reports/sales", adminOnly(h.SalesReportHandler)).Methods(http.MethodGet)
	api.HandleFunc("/admin/reports/activity", adminOnly(h.ActivityReportHandler)).Methods(http.MethodGet)

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Route not found")
	})

	router.Handle("/ws", ws)
	router.PathPrefix(storage.PublicPrefix).Handler(uploadsHandler(files))

	return cors(clientURL)(accessLog(router))
}

func openFiles(cfg *config.Config) (storage.FileStore, error) {
	if cfg.StorageDriver == "minio" {
		return storage.NewMinioStore(cfg)
	}
	return storage.NewLocalStore(cfg.UploadDir)
}

// Start initializes and starts the HTTP server. It blocks until SIGINT/SIGTERM.
func Start(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	gdb, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close(gdb)

	if err := db.AutoMigrate(gdb); err != nil {
		return err
	}

	rdb, err := cache.NewRedisClient(cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()
	logger.Info("Successfully connected to Redis", logger.String("host", cfg.RedisHost))

	files, err := openFiles(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize %s storage: %w", cfg.StorageDriver, err)
	}

	h, wsHub := Wire(Deps{
		Store:  repository.NewStore(gdb),
		Cache:  cache.NewCatalogCache(rdb, cfg.CatalogCacheTTL),
		Files:  files,
		Tokens: auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL),
	})

	// 设置服务器超时
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      NewRouter(h, wsHub, files, cfg.ClientURL),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logger.String("addr", srv.Addr), logger.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("Shutting down server...", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Shutdown 不会关闭被劫持的 websocket 连接
	wsHub.Shutdown()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server exited")
	return nil
}
