// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opsdesk/incident-desk/internal/analytics"
	"github.com/opsdesk/incident-desk/internal/attachments"
	attachmentsfs "github.com/opsdesk/incident-desk/internal/attachments/fs"
	attachmentsminio "github.com/opsdesk/incident-desk/internal/attachments/minio"
	"github.com/opsdesk/incident-desk/internal/config"
	"github.com/opsdesk/incident-desk/internal/domain"
	"github.com/opsdesk/incident-desk/internal/export"
	"github.com/opsdesk/incident-desk/internal/identity"
	"github.com/opsdesk/incident-desk/internal/identity/jwt"
	"github.com/opsdesk/incident-desk/internal/incidents"
	"github.com/opsdesk/incident-desk/internal/kv"
	kvfile "github.com/opsdesk/incident-desk/internal/kv/file"
	kvpostgres "github.com/opsdesk/incident-desk/internal/kv/postgres"
	kvsqlite "github.com/opsdesk/incident-desk/internal/kv/sqlite"
	"github.com/opsdesk/incident-desk/internal/notifications"
	"github.com/opsdesk/incident-desk/internal/notifications/email"
	"github.com/opsdesk/incident-desk/internal/notifications/webhook"
	"github.com/opsdesk/incident-desk/internal/pkg/ctxlog"
	"github.com/opsdesk/incident-desk/internal/pkg/httputil"
	"github.com/opsdesk/incident-desk/internal/pkg/metrics"
	"github.com/opsdesk/incident-desk/internal/sla"
	"github.com/opsdesk/incident-desk/internal/store"
	"github.com/opsdesk/incident-desk/internal/version"
)

// App represents the application instance.
type App struct {
	config             *config.Config
	logger             *slog.Logger
	kv                 kv.Store
	incidentStore      *store.Store
	server             *http.Server
	metricsServer      *http.Server
	backgroundCancel   context.CancelFunc
	notificationWorker *notifications.Worker
	slaMonitor         *sla.Monitor
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)

	openCtx, openCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer openCancel()

	kvStore, pool, err := openKV(openCtx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	incidentStore, err := store.Open(openCtx, kvStore)
	if err != nil {
		kvStore.Close()
		return nil, fmt.Errorf("open incident store: %w", err)
	}

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())

	app := &App{
		config:           cfg,
		logger:           logger,
		kv:               kvStore,
		incidentStore:    incidentStore,
		backgroundCancel: backgroundCancel,
	}

	if pool != nil {
		go collectDBMetrics(backgroundCtx, pool)
	}

	router, err := app.setupRouter(backgroundCtx)
	if err != nil {
		kvStore.Close()
		backgroundCancel()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	// Start metrics server in background
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	// Start main server
	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.backgroundCancel()

	// Stop background loops before the servers so in-flight deliveries
	// and sweeps finish cleanly.
	if a.slaMonitor != nil {
		a.slaMonitor.Stop()
	}
	if a.notificationWorker != nil {
		a.notificationWorker.Stop()
	}

	// Shutdown both servers in parallel
	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	if err := a.kv.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close snapshot store: %w", err))
	}

	return errors.Join(errs...)
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// NotificationWorker returns the notification worker instance.
// Used in tests to access worker state. Returns nil if notifications disabled.
func (a *App) NotificationWorker() *notifications.Worker {
	return a.notificationWorker
}

func openKV(ctx context.Context, cfg config.StorageConfig) (kv.Store, *kvpostgres.Store, error) {
	switch cfg.Driver {
	case "postgres":
		pg, err := kvpostgres.Open(ctx, kvpostgres.Config{
			URL:             cfg.Postgres.URL,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
			ConnectAttempts: cfg.Postgres.ConnectAttempts,
		})
		if err != nil {
			return nil, nil, err
		}
		return pg, pg, nil
	case "sqlite":
		st, err := kvsqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return st, nil, nil
	case "file":
		st, err := kvfile.New(cfg.File.Dir)
		if err != nil {
			return nil, nil, err
		}
		return st, nil, nil
	case "memory":
		return kv.NewMemory(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func (a *App) setupRouter(ctx context.Context) (*chi.Mux, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(a.config.Server.RequestTimeout))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	// Setup notifications first (needed for incident and SLA hooks)
	slog.Info("notifications configured",
		"enabled", a.config.Notifications.Enabled,
		"email_enabled", a.config.Notifications.Email.Enabled,
		"webhook_targets", len(a.config.Notifications.WebhookURLs),
	)

	var incidentNotifier incidents.Notifier = incidents.NopNotifier{}
	var slaNotifier sla.Notifier = sla.NopNotifier{}

	if a.config.Notifications.Enabled {
		webhookSender := webhook.NewSender(webhook.Config{
			Timeout:   a.config.Notifications.Webhook.Timeout,
			RateLimit: a.config.Notifications.Webhook.RateLimit,
		})

		emailSender, err := email.NewSender(email.Config{
			Enabled:      a.config.Notifications.Email.Enabled,
			SMTPHost:     a.config.Notifications.Email.SMTPHost,
			SMTPPort:     a.config.Notifications.Email.SMTPPort,
			SMTPUser:     a.config.Notifications.Email.SMTPUser,
			SMTPPassword: a.config.Notifications.Email.SMTPPassword,
			FromAddress:  a.config.Notifications.Email.FromAddress,
		})
		if err != nil {
			return nil, fmt.Errorf("create email sender: %w", err)
		}

		if !a.config.Notifications.Email.Enabled {
			slog.Warn("email sender is disabled: email notifications will not be sent")
		}

		dispatcher := notifications.NewDispatcher(webhookSender, emailSender)

		renderer, err := notifications.NewRenderer()
		if err != nil {
			return nil, fmt.Errorf("create notification renderer: %w", err)
		}

		queue, err := notifications.OpenQueue(ctx, a.kv)
		if err != nil {
			return nil, fmt.Errorf("open notification queue: %w", err)
		}

		notifier := notifications.NewNotifier(queue, renderer, notifications.Recipients{
			WebhookURLs: a.config.Notifications.WebhookURLs,
			Emails:      a.config.Notifications.Emails,
		}, a.config.Notifications.Worker.MaxAttempts)

		incidentNotifier = notifier
		slaNotifier = notifier

		workerConfig := notifications.WorkerConfig{
			BatchSize:         a.config.Notifications.Worker.BatchSize,
			PollInterval:      a.config.Notifications.Worker.PollInterval,
			MaxAttempts:       a.config.Notifications.Worker.MaxAttempts,
			InitialBackoff:    a.config.Notifications.Worker.InitialBackoff,
			MaxBackoff:        a.config.Notifications.Worker.MaxBackoff,
			BackoffMultiplier: a.config.Notifications.Worker.BackoffMultiplier,
			NumWorkers:        a.config.Notifications.Worker.NumWorkers,
		}

		a.notificationWorker = notifications.NewWorker(workerConfig, queue, dispatcher)
		a.notificationWorker.Start(ctx)
	}

	incidentsService := incidents.NewService(a.incidentStore, incidentNotifier)
	incidentsHandler := incidents.NewHandler(incidentsService)

	ledger, err := sla.OpenLedger(ctx, a.kv)
	if err != nil {
		return nil, fmt.Errorf("open sla ledger: %w", err)
	}

	a.slaMonitor = sla.NewMonitor(sla.Config{
		CheckInterval: a.config.SLA.CheckInterval,
		WarnAfter:     a.config.SLA.WarnAfter,
		EscalateAfter: a.config.SLA.EscalateAfter,
	}, a.incidentStore, ledger, slaNotifier, incidentsService)
	a.slaMonitor.Start(ctx)

	jwtAuth, err := jwt.NewAuthenticator(jwt.Config{
		Secret:   a.config.JWT.Secret,
		TokenTTL: a.config.JWT.TokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("create jwt authenticator: %w", err)
	}

	userStore, err := identity.OpenStore(ctx, a.kv)
	if err != nil {
		return nil, fmt.Errorf("open user store: %w", err)
	}

	admins := make([]identity.AdminAccount, 0, len(a.config.Auth.Admins))
	for _, admin := range a.config.Auth.Admins {
		admins = append(admins, identity.AdminAccount{
			Username:    admin.Username,
			Password:    admin.Password,
			DisplayName: admin.DisplayName,
			Email:       admin.Email,
		})
	}

	users := make([]identity.UserAccount, 0, len(a.config.Auth.Users))
	for _, u := range a.config.Auth.Users {
		users = append(users, identity.UserAccount{
			Username:    u.Username,
			Password:    u.Password,
			DisplayName: u.DisplayName,
			Email:       u.Email,
		})
	}

	identityService := identity.NewService(userStore, jwtAuth, admins, users)
	identityHandler := identity.NewHandler(identityService)

	blobs, err := openBlobStore(ctx, a.config.Attachments)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	attachmentsHandler := attachments.NewHandler(blobs)

	analyticsService := analytics.NewService(a.incidentStore, a.config.SLA.EscalateAfter)
	analyticsHandler := analytics.NewHandler(analyticsService)

	exportHandler := export.NewHandler(a.incidentStore)

	r.Route("/api/v1", func(r chi.Router) {
		identityHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(httputil.AuthMiddleware(jwtAuth))

			identityHandler.RegisterProtectedRoutes(r)
			incidentsHandler.RegisterRoutes(r)
			attachmentsHandler.RegisterRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(httputil.RequireRole(domain.RoleAdmin))
				identityHandler.RegisterAdminRoutes(r)
				analyticsHandler.RegisterRoutes(r)
				exportHandler.RegisterRoutes(r)
			})
		})
	})

	return r, nil
}

func openBlobStore(ctx context.Context, cfg config.AttachmentsConfig) (attachments.BlobStore, error) {
	switch cfg.Driver {
	case "fs":
		return attachmentsfs.New(cfg.FS.Dir)
	case "minio":
		return attachmentsminio.New(ctx, attachmentsminio.Config{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown attachments driver %q", cfg.Driver)
	}
}

func collectDBMetrics(ctx context.Context, pg *kvpostgres.Store) {
	// Collect immediately on start
	metrics.RecordDBPoolMetrics(pg.Pool())

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(pg.Pool())
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.kv.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Storage unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
