// Package main is the entrypoint for the scheduler API server.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"github.com/anonsched/scheduler/internal/auth"
	"github.com/anonsched/scheduler/internal/cache"
	"github.com/anonsched/scheduler/internal/calendar"
	"github.com/anonsched/scheduler/internal/config"
	"github.com/anonsched/scheduler/internal/handler"
	"github.com/anonsched/scheduler/internal/metrics"
	"github.com/anonsched/scheduler/internal/middleware"
	"github.com/anonsched/scheduler/internal/notify"
	"github.com/anonsched/scheduler/internal/repository"
	"github.com/anonsched/scheduler/internal/server"
	"github.com/anonsched/scheduler/internal/service"
)

const tokenIssuer = "scheduler"

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL, repository.WithMaxConns(cfg.DBMaxConns))
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	if cfg.AutoMigrate {
		applied, err := repo.Migrate(ctx)
		if err != nil {
			logger.Error("failed to apply migrations", "error", sanitizeError(err, cfg.DatabaseURL))
			os.Exit(1)
		}
		logger.Info("migrations applied", "versions", applied)
	}

	// The outbox runs on database/sql so claims use their own pool.
	outboxDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open outbox database", "error", sanitizeError(err, cfg.DatabaseURL))
		os.Exit(1)
	}
	outboxDB.SetMaxOpenConns(4)
	outboxDB.SetConnMaxIdleTime(5 * time.Minute)
	defer outboxDB.Close()

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	var recorder metrics.Recorder = metrics.NewNoop()
	if cfg.MetricsEnabled {
		recorder = metrics.NewPrometheus()
	}

	// Email: outbox in front, SMTP or log sender behind the worker.
	outboxRepo := notify.NewRepository(outboxDB)
	outbox := notify.NewOutbox(outboxRepo, logger, recorder)

	var sender notify.Sender = notify.NewLogSender(logger)
	if cfg.EmailEnabled() {
		mailer, err := notify.NewSMTPMailer(notify.SMTPConfig{
			Host:       cfg.SMTPHost,
			Port:       cfg.SMTPPort,
			Username:   cfg.SMTPUsername,
			Password:   cfg.SMTPPassword,
			From:       cfg.MailFrom(),
			RatePerSec: cfg.MailRatePerSec,
			Burst:      cfg.MailBurst,
		})
		if err != nil {
			logger.Error("invalid SMTP configuration", "error", err)
			os.Exit(1)
		}
		sender = mailer
	}

	worker := notify.NewWorker(outboxRepo, sender, logger, recorder)
	worker.SetBatchSize(cfg.OutboxBatchSize)
	worker.SetPollInterval(cfg.OutboxPollInterval)
	worker.SetMaxAttempts(cfg.OutboxMaxAttempts)

	// Google Calendar is optional; nil interfaces disable it downstream.
	var (
		provider    calendar.Provider
		oauthClient service.OAuthClient
	)
	if cfg.GoogleEnabled() {
		oauth := calendar.NewOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI)
		oauthClient = oauth
		provider = calendar.NewGoogleCalendar(oauth, repo, logger)
		logger.Info("google calendar enabled")
	}

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL, tokenIssuer)

	settingsService := service.NewSettingsService(repo, cacheClient, cfg.AdminSetupToken, logger)
	authService := service.NewAuthService(repo, issuer, outbox, oauthClient, service.AuthConfig{
		BackendURL:      cfg.BackendURL,
		FrontendURL:     cfg.FrontendURL,
		EmailEnabled:    cfg.EmailEnabled(),
		ExposeVerifyURL: cfg.IsDevelopment(),
	}, logger)
	meetingService := service.NewMeetingService(service.MeetingDeps{
		Meetings: repo,
		Users:    repo,
		Notifier: outbox,
		Calendar: provider,
		Branding: settingsService,
		Logger:   logger,
		Metrics:  recorder,
	})
	healthService := service.NewHealthService(repo, cacheClient, repo, service.ConfigPresence{
		HasDatabaseURL:     cfg.DatabaseURL != "",
		HasRedisURL:        cfg.RedisURL != "",
		HasJWTSecret:       cfg.JWTSecret != "",
		HasEmailConfig:     cfg.EmailEnabled(),
		HasGoogleOAuth:     cfg.GoogleEnabled(),
		FrontendURL:        cfg.FrontendURL,
		HasAdminSetupToken: cfg.AdminSetupToken != "",
	})

	handlers := routeHandlers{
		root:     handler.New(),
		health:   handler.NewHealthHandler(repo, cacheClient),
		metrics:  handler.NewMetricsHandler(recorder),
		auth:     handler.NewAuthHandler(authService, logger),
		meetings: handler.NewMeetingHandler(meetingService, logger),
		admin:    handler.NewAdminHandler(settingsService, healthService, logger),
	}

	r := setupRouter(handlers, issuer, cacheClient, recorder, cfg, logger)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)
	srv.Background("email-worker", worker.Run)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting server",
		"port", cfg.AppPort,
		"backend_url", cfg.BackendURL,
		"env", cfg.AppEnv,
		"email_enabled", cfg.EmailEnabled(),
		"google_enabled", cfg.GoogleEnabled(),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type routeHandlers struct {
	root     *handler.Handler
	health   *handler.HealthHandler
	metrics  *handler.MetricsHandler
	auth     *handler.AuthHandler
	meetings *handler.MeetingHandler
	admin    *handler.AdminHandler
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h routeHandlers,
	issuer *auth.TokenIssuer,
	cacheClient *cache.Cache,
	recorder metrics.Recorder,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger, recorder))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = append(cfg.GetCORSAllowedOrigins(), cfg.FrontendURL)
	r.Use(middleware.CORS(cors))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	// Probes and info (no auth required)
	r.Get("/", h.root.Root)
	r.Get("/openapi.yaml", h.root.OpenAPI)
	r.Get("/healthz", h.health.Healthz)
	r.Get("/readyz", h.health.Readyz)
	if cfg.MetricsEnabled {
		r.Method(http.MethodGet, "/metrics", http.HandlerFunc(h.metrics.Metrics))
	}

	authCfg := middleware.AuthConfig{
		Logger: logger,
		Issuer: issuer,
	}

	limits := middleware.RateLimitConfig{
		Logger:    logger,
		UserRPM:   cfg.RateLimitAPIRPM,
		UserBurst: cfg.RateLimitAPIBurst,
		IPRPS:     cfg.RateLimitAdminRPS,
		IPBurst:   cfg.RateLimitAdminBurst,
	}
	if cacheClient != nil {
		limits.IPs = cacheClient
		if cfg.RateLimitAPIEnabled {
			limits.Users = cacheClient
		}
	}
	credentialLimiter := middleware.NewLocalIPLimiter(cfg.RateLimitAuthRPS, cfg.RateLimitAuthBurst)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RateLimitIP(limits))
			r.Get("/health", h.admin.Health)
			r.Get("/public-settings", h.admin.PublicSettings)
			r.Post("/bootstrap", h.admin.Bootstrap)
			r.Get("/settings", h.admin.GetSettings)
			r.Put("/settings", h.admin.UpdateSettings)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(credentialLimiter.Middleware(logger))
				r.Post("/register", h.auth.Register)
				r.Post("/login", h.auth.Login)
			})
			r.Get("/verify/{token}", h.auth.Verify)

			// Browsers navigate to these directly, so they authenticate themselves.
			r.Get("/google", h.auth.GoogleAuth)
			r.Get("/google/callback", h.auth.GoogleCallback)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(authCfg))
				r.Use(middleware.RateLimitUser(limits))
				r.Get("/availability", h.auth.GetAvailability)
				r.Put("/availability", h.auth.UpdateAvailability)
			})
		})

		r.Route("/meetings", func(r chi.Router) {
			r.Use(middleware.Auth(authCfg))
			r.Use(middleware.RateLimitUser(limits))
			h.meetings.Routes(r)
		})
	})

	r.NotFound(h.root.NotFound)
	r.MethodNotAllowed(h.root.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
