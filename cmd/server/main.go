package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/config"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/database"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/handler"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/httputil"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/jobs"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/middleware"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/realtime"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/redis"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/repository"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/service"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/token"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)
	if cfg.IsProduction() {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	if cfg.AutoMigrate {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	localLimiter := middleware.NewRateLimiter()
	var limiter middleware.Limiter = localLimiter
	redisClient, err := redis.NewClient(context.Background(), cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, rate limiting is per instance")
	} else {
		defer redisClient.Close()
		limiter = middleware.NewRedisRateLimiter(redisClient.Client, localLimiter)
		log.Info().Msg("redis connected")
	}

	userRepo := repository.NewUserRepository(db.DB)
	profileRepo := repository.NewProfileRepository(db.DB)
	convRepo := repository.NewConversationRepository(db.DB)
	messageRepo := repository.NewMessageRepository(db.DB)
	studentRepo := repository.NewStudentRepository(db.DB)
	connectionRepo := repository.NewConnectionRepository(db.DB)

	tokens, err := token.NewService(cfg.TokenConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create token service")
	}

	registry := realtime.NewRegistry()

	authService := service.NewAuthService(userRepo, profileRepo, tokens, db)
	chatService := service.NewChatService(convRepo, messageRepo, registry)
	connectionService := service.NewConnectionService(userRepo, connectionRepo)
	studentService := service.NewStudentService(studentRepo, connectionService)

	cookies := middleware.NewCookies(cfg.IsProduction(), cfg.SameSite())
	authMiddleware := middleware.NewAuthMiddleware(tokens)
	signupLimit := middleware.NewIPRateLimitMiddleware(limiter, cfg.AuthRateLimitPerMin, config.AuthRateLimitWindow, "signup")
	loginLimit := middleware.NewIPRateLimitMiddleware(limiter, cfg.AuthRateLimitPerMin, config.AuthRateLimitWindow, "login")
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(cfg.IsProduction())

	authHandler := handler.NewAuthHandler(authService, cookies, authMiddleware.Handler,
		handler.WithSignupLimit(signupLimit.Handler),
		handler.WithLoginLimit(loginLimit.Handler),
	)
	chatHandler := handler.NewChatHandler(chatService)
	studentHandler := handler.NewStudentHandler(studentService, connectionService, authMiddleware.Handler)
	connectionHandler := handler.NewConnectionHandler(connectionService, authMiddleware.Handler)
	socketHandler := handler.NewSocketHandler(registry, chatService, cfg.CORSOrigins)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Long lived upgrade; kept outside the request timeout.
	r.Handle("/socket", socketHandler)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Use(securityHeadersMiddleware.Handler)
		r.Use(bodyLimitMiddleware.Handler)

		r.Get("/health", healthHandler(db))
		r.Handle("/metrics", promhttp.Handler())

		api := func(r chi.Router) {
			r.Mount("/auth", authHandler.Routes())
			r.Mount("/chat", chatHandler.Routes())
			r.Mount("/student", studentHandler.Routes())
			r.Mount("/connection", connectionHandler.Routes())
		}
		r.Group(api)
		r.Route("/v1/api", api)
	})

	cleanupJob := jobs.NewCleanupJob(userRepo, connectionRepo, config.CleanupJobInterval, cfg.ConnectionRequestTTL)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("env", cfg.Environment).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	// Hijacked websocket conns are not tracked by Shutdown.
	registry.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func healthHandler(db *database.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), config.DBPingTimeout)
		defer cancel()

		status, code := "ok", http.StatusOK
		if err := db.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("health check: database unreachable")
			status, code = "degraded", http.StatusServiceUnavailable
		}

		httputil.WriteJSON(w, code, map[string]any{
			"status":    status,
			"timestamp": time.Now().UnixMilli(),
		})
	}
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
