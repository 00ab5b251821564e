package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/sorenhale/chorebank/internal/backup"
	"github.com/sorenhale/chorebank/internal/config"
	"github.com/sorenhale/chorebank/internal/handler"
	"github.com/sorenhale/chorebank/internal/middleware"
	"github.com/sorenhale/chorebank/internal/store"
	ws "github.com/sorenhale/chorebank/internal/websocket"
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	authH         *handler.AuthHandler
	pointH        *handler.PointHandler
	taskH         *handler.TaskHandler
	rewardH       *handler.RewardHandler
	backupH       *handler.BackupHandler
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	jwtSecret     string
	logger        *slog.Logger
}

func New(db *sql.DB, cfg config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	pointStore := store.NewPointStore(db)
	taskStore := store.NewTaskStore(db)
	rewardStore := store.NewRewardStore(db)

	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.Backup.S3Endpoint,
			Bucket:    cfg.Backup.S3Bucket,
			Region:    cfg.Backup.S3Region,
			AccessKey: cfg.Backup.AccessKey,
			SecretKey: cfg.Backup.SecretKey,
		},
		DBPath:     cfg.DBPath,
		Passphrase: cfg.Backup.Passphrase,
		Interval:   cfg.Backup.Interval,
	}, db, logger.With("component", "backup"))

	return &Server{
		db:            db,
		hub:           hub,
		authH:         handler.NewAuthHandler(userStore, cfg.JWTSecret, cfg.TokenTTL, logger.With("component", "auth")),
		pointH:        handler.NewPointHandler(pointStore, userStore, hub, logger.With("component", "points")),
		taskH:         handler.NewTaskHandler(taskStore, userStore, hub, logger.With("component", "tasks")),
		rewardH:       handler.NewRewardHandler(rewardStore, userStore, hub, logger.With("component", "rewards")),
		backupH:       handler.NewBackupHandler(backupMgr, logger.With("component", "backup_handler")),
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		jwtSecret:     cfg.JWTSecret,
		logger:        logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.jwtSecret)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /auth/me", s.authH.Me)

	// Points
	mux.HandleFunc("GET /points/user", s.pointH.GetBalance)
	mux.HandleFunc("GET /points/user/{userId}", s.pointH.GetBalance)
	mux.Handle("POST /points/add", middleware.RequireParent(http.HandlerFunc(s.pointH.Add)))
	mux.Handle("POST /points/deduct", middleware.RequireParent(http.HandlerFunc(s.pointH.Deduct)))
	mux.HandleFunc("GET /points/history", s.pointH.History)
	mux.HandleFunc("GET /points/history/{userId}", s.pointH.History)
	mux.HandleFunc("GET /points/leaderboard/{familyId}", s.pointH.Leaderboard)

	// Tasks
	mux.Handle("POST /tasks", middleware.RequireParent(http.HandlerFunc(s.taskH.Create)))
	mux.HandleFunc("GET /tasks/family/{familyId}", s.taskH.ListFamily)
	mux.HandleFunc("GET /tasks/user", s.taskH.ListUser)
	mux.HandleFunc("GET /tasks/user/{userId}", s.taskH.ListUser)
	mux.HandleFunc("PUT /tasks/{taskId}/status", s.taskH.UpdateStatus)
	mux.Handle("DELETE /tasks/{taskId}", middleware.RequireParent(http.HandlerFunc(s.taskH.Delete)))

	// Rewards
	mux.Handle("POST /rewards", middleware.RequireParent(http.HandlerFunc(s.rewardH.Create)))
	mux.HandleFunc("GET /rewards/family/{familyId}", s.rewardH.ListFamily)
	mux.Handle("PUT /rewards/{rewardId}", middleware.RequireParent(http.HandlerFunc(s.rewardH.Update)))
	mux.Handle("DELETE /rewards/{rewardId}", middleware.RequireParent(http.HandlerFunc(s.rewardH.Delete)))

	// Redemptions
	mux.HandleFunc("POST /rewards/{rewardId}/redeem", s.rewardH.Redeem)
	mux.Handle("PUT /rewards/redeem/{historyId}/status", middleware.RequireParent(http.HandlerFunc(s.rewardH.UpdateRedeemStatus)))
	mux.HandleFunc("GET /rewards/redeem/user", s.rewardH.ListUserRedemptions)
	mux.HandleFunc("GET /rewards/redeem/user/{userId}", s.rewardH.ListUserRedemptions)
	mux.Handle("GET /rewards/redeem/family/{familyId}", middleware.RequireParent(http.HandlerFunc(s.rewardH.ListFamilyRedemptions)))

	// Admin
	mux.Handle("POST /admin/backup", middleware.RequireParent(http.HandlerFunc(s.backupH.RunNow)))
	mux.Handle("GET /admin/backup/status", middleware.RequireParent(http.HandlerFunc(s.backupH.Status)))

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
