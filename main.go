package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"communityAPI/handlers"
	"communityAPI/internal/config"
	"communityAPI/internal/firebaseapp"
	"communityAPI/internal/notification"
	"communityAPI/internal/store"
	"communityAPI/middleware"
	"communityAPI/services"

	_ "net/http/pprof"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	clerk.SetKey(cfg.ClerkSecretKey)
	logger.Info("Clerk initialized successfully")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var fbApp *firebase.App
	if cfg.NeedsFirebase() {
		fbApp, err = firebaseapp.New(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsJSON, cfg.FirebaseCredentialsFile)
		if err != nil {
			if cfg.StoreBackend == config.BackendFirestore {
				logger.Fatalw("Failed to initialize Firebase", "error", err)
			}
			logger.Warnw("Could not initialize Firebase, push notifications disabled", "error", err)
		}
	}

	st, err := openStore(ctx, cfg, fbApp, logger)
	if err != nil {
		logger.Fatalw("Failed to open document store", "backend", cfg.StoreBackend, "error", err)
	}
	defer func() {
		logger.Info("Closing document store...")
		st.Close()
	}()

	middleware.InitPrometheus(prometheus.DefaultRegisterer)

	reputationService := services.NewReputationService(st, logger.Named("reputation"))

	feedHub := services.NewFeedHub(logger.Named("feed"))
	defer feedHub.Close()
	reputationService.SetFeed(feedHub)

	var pushProvider services.PushNotificationProvider
	if cfg.PushEnabled && fbApp != nil {
		fcmService, err := notification.NewFCMService(ctx, fbApp, logger.Named("fcm"))
		if err != nil {
			logger.Warnw("Could not initialize FCM", "error", err)
		} else {
			pushProvider = fcmService
			logger.Info("FCM Push Provider initialized successfully")
		}
	}
	dispatcher := services.NewBadgeDispatcher(st, pushProvider, logger.Named("dispatcher"))
	defer dispatcher.Stop()
	reputationService.SetNotifier(dispatcher)

	communityHandler := handlers.NewCommunityHandler(reputationService, logger)
	reputationHandler := handlers.NewReputationHandler(reputationService, logger)
	notificationHandler := handlers.NewNotificationHandler(st, logger)
	feedHandler := handlers.NewFeedHandler(feedHub, cfg.AllowedOrigins, logger)

	authMiddleware := middleware.ClerkAuthMiddleware(middleware.ClerkVerifier, logger)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	go rateLimiter.CleanupVisitors(bgCtx)

	r := mux.NewRouter()

	// Long-lived websocket connections skip the rate limiter and request metrics.
	r.Handle("/api/v1/workspaces/{topic}/feed", authMiddleware(http.HandlerFunc(feedHandler.Subscribe))).Methods("GET")

	standardRouter := r.PathPrefix("/").Subrouter()
	standardRouter.Use(rateLimiter.Middleware)
	standardRouter.Use(middleware.MonitorMiddleware)
	standardRouter.Use(middleware.RequestLogger(logger.Named("http")))

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler()))
	standardRouter.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(cfg.PprofSecret)(http.DefaultServeMux))

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := st.Ping(ctx); err != nil {
			logger.Warnw("Health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "document store unreachable"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "community-api"}`))
	}).Methods("GET")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := standardRouter.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/workspaces", communityHandler.ListWorkspaces).Methods("GET")
	api.HandleFunc("/badges", communityHandler.ListBadges).Methods("GET")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(authMiddleware)

	protected.HandleFunc("/workspaces/{topic}/posts", communityHandler.ListPosts).Methods("GET")
	protected.HandleFunc("/workspaces/{topic}/posts", communityHandler.CreatePost).Methods("POST")
	protected.HandleFunc("/workspaces/{topic}/posts/{postId}", communityHandler.GetPost).Methods("GET")
	protected.HandleFunc("/workspaces/{topic}/posts/{postId}/rating", communityHandler.RatePost).Methods("PUT")

	protected.HandleFunc("/user/badges", reputationHandler.GetMyBadges).Methods("GET")
	protected.HandleFunc("/user/stats", reputationHandler.GetMyStats).Methods("GET")
	protected.HandleFunc("/users/{userId}/badges", reputationHandler.GetUserBadges).Methods("GET")
	protected.HandleFunc("/community/leaderboard", reputationHandler.GetLeaderboard).Methods("GET")

	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins(cfg.AllowedOrigins),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := ":" + cfg.Port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Infow("Starting server", "port", port, "backend", cfg.StoreBackend, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("Error starting server", "error", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logger.Infow("Got signal", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("Server shutdown error", "error", err)
	}

	logger.Info("Server shutdown complete")
}

func newLogger(cfg *config.Config) (*zap.SugaredLogger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development() {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zcfg.Level = level

	base, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return base.Sugar(), nil
}

func openStore(ctx context.Context, cfg *config.Config, fbApp *firebase.App, logger *zap.SugaredLogger) (store.DocumentStore, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		logger.Warn("Using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil

	case config.BackendPostgres:
		pool, err := store.NewPgPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		st, err := store.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("Successfully connected to Postgres")
		return st, nil

	case config.BackendFirestore:
		client, err := fbApp.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("error getting firestore client: %w", err)
		}
		logger.Info("Successfully connected to Firestore")
		return store.NewFirestoreStore(client), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
