package main

import (
	"context"
	"encoding/hex"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"booknook/internal/db"
	"booknook/internal/handlers"
	mw "booknook/internal/middleware"
	"booknook/internal/rewards"
	"booknook/internal/services"
	"booknook/internal/store"
)

func mustGetenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	encKey, err := hex.DecodeString(os.Getenv("ENTRY_ENCRYPTION_KEY"))
	if err != nil || len(encKey) != 32 {
		slog.Error("ENTRY_ENCRYPTION_KEY must be 64 hex chars (32 bytes)")
		os.Exit(1)
	}

	port := mustGetenv("PORT", "8080")

	dbConn, err := sqlx.Open("pgx", databaseURL)
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	dbConn.SetMaxOpenConns(10)
	dbConn.SetConnMaxLifetime(2 * time.Hour)
	if err = dbConn.Ping(); err != nil {
		slog.Error("failed to ping db", slog.Any("err", err))
		os.Exit(1)
	}
	if err := db.RunMigrations(dbConn); err != nil {
		slog.Error("failed migrations", slog.Any("err", err))
		os.Exit(1)
	}

	zlog, err := zap.NewProduction()
	if err != nil {
		slog.Error("failed to build request logger", slog.Any("err", err))
		os.Exit(1)
	}
	defer zlog.Sync()

	encSvc, err := services.NewEncryptionService(encKey)
	if err != nil {
		slog.Error("failed to init encryption", slog.Any("err", err))
		os.Exit(1)
	}

	userStore := store.NewPostgresStore(dbConn)
	clock := rewards.SystemClock()
	ledger := rewards.NewLedger(userStore)
	tracker := rewards.NewStreakTracker(userStore, clock)
	rules := rewards.NewAwardRules(userStore)
	habits := rewards.NewHabitTracker(userStore, clock)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(mw.RequestLogger(zlog))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authHandler := handlers.NewAuthHandler(dbConn, []byte(jwtSecret))
	userHandler := handlers.NewUserHandler(dbConn)
	booksHandler := handlers.NewBooksHandler(userStore, rules, habits, encSvc)
	pointsHandler := handlers.NewPointsHandler(ledger)
	streakHandler := handlers.NewStreakHandler(tracker)
	habitsHandler := handlers.NewHabitsHandler(habits)
	dashboardHandler := handlers.NewDashboardHandler(dbConn, ledger, tracker, habits)
	adminHandler := handlers.NewAdminHandler(dbConn)
	importHandler := handlers.NewImportHandler(userStore, encSvc)
	authMW := mw.NewAuthMiddleware([]byte(jwtSecret))

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/signup", authHandler.Signup)
		api.Post("/auth/login", authHandler.Login)
		api.Group(func(pr chi.Router) {
			pr.Use(authMW.RequireAuth)
			pr.Get("/me", userHandler.GetMe)
			pr.Put("/me", userHandler.UpdateMe)

			pr.Post("/books", booksHandler.Add)
			pr.Get("/books", booksHandler.List)
			pr.Put("/books/{bookID}/status", booksHandler.UpdateStatus)
			pr.Put("/books/{bookID}/rating", booksHandler.SubmitRating)
			pr.Put("/books/{bookID}/review", booksHandler.SubmitReview)
			pr.Delete("/books/{bookID}", booksHandler.Delete)

			pr.Get("/points", pointsHandler.Balance)
			pr.Get("/points/history", pointsHandler.History)
			pr.Post("/points/redeem", pointsHandler.Redeem)

			pr.Get("/streak", streakHandler.Get)
			pr.Post("/streak/check-in", streakHandler.CheckIn)

			pr.Put("/habits/goal", habitsHandler.SetGoal)
			pr.Get("/habits/goal", habitsHandler.GetGoal)
			pr.Delete("/habits/goal", habitsHandler.DeleteGoal)
			pr.Post("/habits/progress", habitsHandler.ReportProgress)

			pr.Get("/dashboard", dashboardHandler.Get)
			pr.Get("/admin/overview", adminHandler.Overview)
			pr.Post("/import", importHandler.ImportData)
		})
	})

	srv := &http.Server{Addr: ":" + port, Handler: r}
	go func() {
		slog.Info("server starting", slog.String("addr", ":"+port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.Any("err", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutdown initiated")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	slog.Info("server stopped")
}
