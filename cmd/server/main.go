package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/oauth2/google"

	"vocaroom/internal/config"
	"vocaroom/internal/database"
	"vocaroom/internal/handlers"
	"vocaroom/internal/security"
	"vocaroom/internal/service"
	"vocaroom/internal/store"
)

func main() {
	cfg := config.Load()

	// Durable store (sqlite, postgres or mysql)
	db, err := database.Initialize(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed successfully")

	// Stores and services
	memory := store.NewMemoryStore(cfg.ClassroomTTL, cfg.RemoveVoteQuota)
	durable := service.NewClassroomService(db, cfg.CodeAttempts)
	manager := service.NewManager(memory, durable)

	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	// Handlers
	limiter := security.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	middleware := handlers.NewMiddleware(cfg.JWTSigningKey, cfg.JWTIssuer, limiter)
	classroomHandler := handlers.NewClassroomHandler(manager, memory, durable, emailService, cfg.UploadMaxSize)
	authHandler := handlers.NewAuthHandler(cfg, google.Endpoint)

	// Routes
	mux := http.NewServeMux()

	mux.HandleFunc("GET /auth/google", authHandler.StartOAuth)
	mux.HandleFunc("GET /auth/google/callback", authHandler.OAuthCallback)

	mux.HandleFunc("POST /classroom/create", middleware.RateLimit(middleware.OptionalAuth(classroomHandler.Create)))
	mux.HandleFunc("POST /classroom/join", middleware.RateLimit(middleware.OptionalAuth(classroomHandler.Join)))
	mux.HandleFunc("GET /classroom/api/info/{code}", middleware.OptionalAuth(classroomHandler.GetClassroom))
	mux.HandleFunc("POST /classroom/api/session/start", middleware.OptionalAuth(classroomHandler.StartSession))
	mux.HandleFunc("POST /classroom/api/session/end", middleware.OptionalAuth(classroomHandler.EndSession))
	mux.HandleFunc("GET /classroom/api/leaderboard/{code}", middleware.OptionalAuth(classroomHandler.Leaderboard))
	mux.HandleFunc("GET /classroom/api/status/{code}/{name}", middleware.OptionalAuth(classroomHandler.StudentStatus))
	mux.HandleFunc("POST /classroom/api/word/swap", middleware.OptionalAuth(classroomHandler.SwapWords))
	mux.HandleFunc("POST /classroom/api/word/practice", middleware.OptionalAuth(classroomHandler.RecordPractice))
	mux.HandleFunc("POST /classroom/api/word/remove/request", classroomHandler.RequestRemoveWord)
	mux.HandleFunc("POST /classroom/api/word/remove/vote", classroomHandler.VoteRemoveWord)
	mux.HandleFunc("GET /classroom/api/word/remove/list/{code}", classroomHandler.ListRemoveRequests)
	mux.HandleFunc("GET /classroom/api/word/remove/{code}/{requestId}", classroomHandler.GetRemoveRequest)
	mux.HandleFunc("GET /classroom/api/my-classrooms", middleware.RequireAuth(classroomHandler.MyClassrooms))
	mux.HandleFunc("GET /classroom/api/my-participations", middleware.RequireAuth(classroomHandler.MyParticipations))
	mux.HandleFunc("GET /classroom/api/progress/{classroomId}", middleware.RequireAuth(classroomHandler.Progress))

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	handler := handlers.Logging(mux)

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Reclaim expired anonymous classrooms in the background
	go sweepExpiredClassrooms(memory, cfg.SweepInterval)

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
}

// sweepExpiredClassrooms periodically drops expired in-memory classrooms.
// Lookups already filter expired rooms, so this only reclaims memory.
func sweepExpiredClassrooms(memory *store.MemoryStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		if removed := memory.Sweep(); removed > 0 {
			log.Printf("Swept %d expired classrooms (%d live)", removed, memory.Len())
		}
	}
}
