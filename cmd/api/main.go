package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"hostel-backend/internal/assignment"
	"hostel-backend/internal/config"
	"hostel-backend/internal/cron"
	"hostel-backend/internal/database"
	"hostel-backend/internal/handlers"
	"hostel-backend/internal/middleware"
	"hostel-backend/internal/notify"
	"hostel-backend/internal/storage"
)

func main() {
	// 1. Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Connect to PostgreSQL
	db := database.New(&cfg.DB)
	defer db.Close()
	seedAssignmentDefaults(db, cfg)

	// 3. Initialize image storage (R2 when configured, local disk otherwise)
	var imageStore storage.Store
	if cfg.Upload.R2AccountID != "" {
		imageStore, err = storage.NewR2Store(
			cfg.Upload.R2AccountID, cfg.Upload.R2AccessKey, cfg.Upload.R2SecretKey,
			cfg.Upload.R2Bucket, cfg.Upload.R2PublicURL,
		)
	} else {
		imageStore, err = storage.NewLocalStore(cfg.Upload.Dir, cfg.Upload.BaseURL)
	}
	if err != nil {
		log.Fatalf("Failed to initialize image storage: %v", err)
	}

	// 4. Redis for notification fan-out (optional — nil disables the pub/sub
	// channel, persisted notifications still work)
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("Redis unavailable, realtime notifications disabled: %v", err)
			rdb = nil
		}
	}

	// 5. Wire the domain services
	engine := assignment.New(db.GetPool())
	dispatcher := notify.NewService(db.GetPool(), rdb)

	// 6. Set up router with global middleware
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 7. Initialize handlers with their dependencies
	authHandler := handlers.NewAuthHandler(db, cfg.JWTSecret)
	complaintHandler := handlers.NewComplaintHandler(db, engine, dispatcher, imageStore)
	staffHandler := handlers.NewStaffHandler(db)
	configHandler := handlers.NewAssignConfigHandler(db)
	uploadHandler := handlers.NewUploadHandler(imageStore)
	notificationHandler := handlers.NewNotificationHandler(db)
	activityHandler := handlers.NewActivityHandler(db)

	// Start background cron jobs
	cron.StartNotifier(db, engine)

	// 8. Public routes (no authentication required)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Hostel Management System API"))
	})
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(db.Health())
	})

	// Auth routes — public, login is rate limited per IP
	r.Post("/api/auth/register", authHandler.Register)
	r.With(middleware.RateLimit(rate.Every(time.Second), 5)).
		Post("/api/auth/login", authHandler.Login)

	// Serve uploaded images (local storage only — R2 redirects to CDN)
	r.Get("/api/files/*", uploadHandler.ServeFile)

	// 9. Protected routes (require valid JWT)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))

		// Current user profile
		r.Get("/api/auth/me", authHandler.Me)

		// Image upload
		r.Post("/api/upload", uploadHandler.Upload)

		// Notifications (user-scoped, all authenticated users)
		r.Get("/api/notifications", notificationHandler.List)
		r.Get("/api/notifications/count", notificationHandler.UnreadCount)
		r.Patch("/api/notifications/read-all", notificationHandler.MarkAllRead)
		r.Patch("/api/notifications/{id}/read", notificationHandler.MarkRead)

		// Complaints — create and read are open to every authenticated user;
		// students are scoped to their own records inside the handlers
		r.Post("/api/complaints", complaintHandler.Create)
		r.Get("/api/complaints", complaintHandler.List)
		r.Route("/api/complaints/{id}", func(r chi.Router) {
			r.Get("/", complaintHandler.GetByID)
			r.Get("/timeline", complaintHandler.Timeline)
			r.Post("/feedback", complaintHandler.Feedback)
		})

		// Warden and admin operations
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireMinRole("warden"))

			r.Patch("/api/complaints/{id}/status", complaintHandler.UpdateStatus)
			r.Post("/api/complaints/{id}/assign", complaintHandler.TriggerAssign)

			r.Get("/api/staff", staffHandler.List)
			r.Get("/api/staff/{id}", staffHandler.GetByID)

			r.Get("/api/assignment-config", configHandler.Get)
		})

		// Admin-only operations
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireMinRole("admin"))

			r.Delete("/api/complaints/{id}", complaintHandler.Delete)

			r.Post("/api/staff", staffHandler.Create)
			r.Put("/api/staff/{id}", staffHandler.Update)
			r.Patch("/api/staff/{id}/deactivate", staffHandler.Deactivate)
			r.Patch("/api/staff/{id}/reactivate", staffHandler.Reactivate)

			r.Put("/api/assignment-config", configHandler.Save)

			r.Get("/api/activity", activityHandler.List)
		})
	})

	// 10. Start server with graceful shutdown
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server started on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-done
	log.Println("Server stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited properly")
}

// seedAssignmentDefaults writes the environment-provided tuning values into
// the configuration singleton on first boot only. Values saved later by an
// admin always win over the environment.
func seedAssignmentDefaults(db database.Service, cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := db.GetPool().Exec(ctx, `
		INSERT INTO assignment_config (id, max_workload, efficiency_threshold)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO NOTHING
	`, cfg.Assign.MaxWorkload, cfg.Assign.EfficiencyThreshold)
	if err != nil {
		log.Printf("Failed to seed assignment config: %v", err)
	}
}
