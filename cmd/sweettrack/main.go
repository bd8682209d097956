package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sweettrack/backend/internal/auth"
	"github.com/sweettrack/backend/internal/config"
	"github.com/sweettrack/backend/internal/db"
	"github.com/sweettrack/backend/internal/googlefit"
	"github.com/sweettrack/backend/internal/metrics"
	"github.com/sweettrack/backend/internal/notify"
	"github.com/sweettrack/backend/internal/server/handlers"
	syncsvc "github.com/sweettrack/backend/internal/sync"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var logger *zap.Logger
	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	database, err := db.Init(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}

	m := metrics.New("sweettrack")

	// Google Fit client
	fit := googlefit.NewClient(googlefit.Options{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURI:  cfg.GoogleRedirectURI,
		Timeout:      cfg.ProviderTimeout,
		Logger:       logger.Named("googlefit"),
	})
	if !fit.Configured() {
		logger.Warn("Google Fit credentials not configured, sync endpoints will be unavailable")
	}

	tokens := auth.NewManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	orch := syncsvc.NewOrchestrator(database, fit, logger.Named("sync"), m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background jobs
	reconciler := syncsvc.NewReconciler(database, orch, logger.Named("reconciler"), m, cfg.SyncInterval)
	reconciler.Start(ctx)

	pushSender := notify.NewExpoSender(cfg.ExpoPushURL, logger.Named("push"))
	evaluator := notify.NewEvaluator(database, pushSender, logger.Named("goals"), m, cfg.GoalCheckInterval)
	evaluator.Start(ctx)

	// Create router
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"message":"SweetTrack API is running"}`))
	})
	r.Handle("/metrics", m.Handler())

	requireAuth := auth.RequireAuth(tokens, database)

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/auth/register", handlers.RegisterHandler(database, tokens, logger))
		r.Post("/auth/login", handlers.LoginHandler(database, tokens, logger))
		r.Post("/auth/refresh", handlers.RefreshSessionHandler(database, tokens))
		r.Get("/google-fit/callback", handlers.CallbackHandler(database, fit, logger))

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/auth/me", handlers.MeHandler(database))

			r.Get("/google-fit/authorize", handlers.ConnectHandler(fit))
			r.Post("/google-fit/connect", handlers.ConnectHandler(fit))
			r.Post("/google-fit/disconnect", handlers.DisconnectHandler(database))
			r.Post("/google-fit/sync", handlers.SyncHandler(orch))
			r.Get("/google-fit/status", handlers.StatusHandler(database))

			r.Post("/health", handlers.SaveProfileHandler(database))
			r.Get("/health", handlers.GetProfileHandler(database))
			r.Get("/health/metrics", handlers.MetricsHistoryHandler(database))

			r.Post("/meals", handlers.CreateMealHandler(database))
			r.Get("/meals", handlers.ListMealsHandler(database))
			r.Get("/meals/{id}", handlers.GetMealHandler(database))
			r.Delete("/meals/{id}", handlers.DeleteMealHandler(database))

			r.Get("/notifications/goals", handlers.GetGoalsHandler(database))
			r.Put("/notifications/goals", handlers.UpsertGoalsHandler(database))
			r.Get("/notifications/progress", handlers.ProgressHandler(database))
			r.Put("/notifications/water", handlers.WaterHandler(database))
			r.Post("/notifications/push-token", handlers.RegisterPushTokenHandler(database))

			r.Get("/settings", handlers.GetSettingsHandler(database))
			r.Put("/settings", handlers.UpdateSettingsHandler(database))
		})
	})

	logger.Info("SweetTrack backend starting", zap.String("addr", cfg.Addr()))

	srv := &http.Server{Addr: cfg.Addr(), Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ProviderTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server failed", zap.Error(err))
	}
}
