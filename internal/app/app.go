package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"mtid/internal/chat"
	"mtid/internal/config"
	"mtid/internal/dataset"
	apierrors "mtid/internal/errors"
	"mtid/internal/infrastructure"
	customMiddleware "mtid/internal/middleware"
	"mtid/internal/services"
	"mtid/internal/session"
	handlers "mtid/internal/transport/http"
	"mtid/internal/validation"
	ws "mtid/internal/websocket"
	"mtid/pkg/contracts"
)

const (
	AppName = "Merchandise Trade Intelligence Dashboard"

	shutdownNotice = "The dashboard server is shutting down."
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	Router        *chi.Mux
	Server        *http.Server
	Data          *dataset.Dataset
	Sessions      *session.Store
	Hub           *ws.Hub
	Chat          *chat.Service
	Dashboard     *services.DashboardService
	Health        *services.HealthService
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.DashboardMetrics
	ErrorHandler  *apierrors.ErrorHandler
	FrontendFS    fs.FS
}

// NewApplication loads both trade files and wires the application
func NewApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, frontendFS fs.FS) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if err := validation.NewFileValidator(logger).ValidateSources(cfg.Data.FormalPath, cfg.Data.InformalPath); err != nil {
		return nil, fmt.Errorf("invalid trade sources: %w", err)
	}
	data, err := dataset.NewLoader(logger).Load(ctx, cfg.Data.FormalPath, cfg.Data.InformalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load trade data: %w", err)
	}
	return New(cfg, logger, data, frontendFS)
}

// New wires the application around an already loaded dataset. frontendFS
// may be nil, in which case only the API is served.
func New(cfg *config.Config, logger *slog.Logger, data *dataset.Dataset, frontendFS fs.FS) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if data == nil {
		return nil, services.ErrDatasetNotLoaded
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.Int("records", data.Len()))

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry, contracts.Version), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.NewDashboardMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create dashboard metrics: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		Data:          data,
		OTelProviders: providers,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Telemetry.Environment == "development"),
		FrontendFS:    frontendFS,
	}

	if err := a.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	if err := a.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}
	a.createServer()
	return a, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	observer := services.NewMetricsObserver(a.Metrics)

	a.Sessions = session.NewStore(a.Config.Session.TTL, a.Logger)
	if err := infrastructure.RegisterSessionGauge(a.OTelProviders.Meter, a.Sessions.Len); err != nil {
		return fmt.Errorf("failed to register session gauge: %w", err)
	}

	opts := chat.Options{
		MaxLength:  a.Config.Chat.MaxLength,
		History:    a.Config.Chat.History,
		RatePerMin: a.Config.Chat.RatePerMin,
		Burst:      a.Config.Chat.Burst,
		Observer:   observer,
	}
	if a.Config.Chat.Endpoint != "" {
		opts.Remote = chat.NewHTTPResponder(a.Config.Chat.Endpoint, a.Config.Chat.Model, a.Config.Chat.APIKey, a.Config.Chat.Timeout)
	}
	a.Chat = chat.NewService(a.Data, opts, a.Logger)

	a.Hub = ws.NewHub(a.Logger, observer)

	dashboard, err := services.NewDashboardService(services.DashboardOptions{
		Data:     a.Data,
		Sessions: a.Sessions,
		Chat:     a.Chat,
		Metrics:  a.Metrics,
	}, a.Logger)
	if err != nil {
		return err
	}
	a.Dashboard = dashboard

	a.Health = services.NewHealthService(contracts.Version, a.Data, a.Hub, a.Sessions, a.chatMode(), a.Logger)
	return nil
}

func (a *Application) chatMode() string {
	if a.Config.Chat.Endpoint != "" {
		return "remote"
	}
	return "local"
}

func (a *Application) isDevelopmentMode() bool {
	return a.Config.Telemetry.Environment == "development"
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() error {
	r := chi.NewRouter()
	logger := a.Logger
	cfg := a.Config
	validator := customMiddleware.NewValidator(logger)
	sessions := handlers.SessionMiddleware(cfg.Session.CookieName, cfg.Session.TTL)

	r.Use(customMiddleware.RequestID)
	r.Use(chimw.RealIP)

	chatHandler := handlers.NewChatHandler(a.Dashboard, a.Hub, a.Chat, validator, handlers.ChatOptions{
		AllowedOrigins:  cfg.Security.AllowedOrigins,
		DevMode:         a.isDevelopmentMode(),
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		PongWait:        cfg.WebSocket.PongWait,
		AskTimeout:      cfg.Chat.Timeout,
	}, logger, a.ErrorHandler)

	// The socket must not pass through the timeout or header-rewriting middleware
	r.With(customMiddleware.WebSocketTraceMiddleware(logger), sessions).Get("/ws/chat", chatHandler.ServeWS)

	r.Mount("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.ErrorHandler).Routes())

	var frontend *handlers.FrontendHandler
	if a.FrontendFS != nil {
		fe, err := handlers.NewFrontendHandler(a.FrontendFS, logger)
		if err != nil {
			return fmt.Errorf("frontend: %w", err)
		}
		frontend = fe
	}

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → Timeout
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(logger))
		r.Use(apierrors.RecoveryMiddleware(a.ErrorHandler))
		r.Use(customMiddleware.Timeout(cfg.Server.RequestTimeout, logger))

		secure := customMiddleware.DefaultSecureHeaders()
		secure.DevMode = a.isDevelopmentMode()
		r.Use(secure.Handler)

		if cfg.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}
		if cfg.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(cfg.Security.RateLimit.RPS, cfg.Security.RateLimit.Burst, logger).Handler)
		}
		r.Use(sessions)
		r.Use(customMiddleware.AuditLog(logger, cfg.Session.CookieName))

		r.Route("/api", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))

			health := handlers.NewHealthHandler(a.Health, logger)
			r.Get("/health", health.HealthCheck)
			r.Get("/health/ready", health.ReadinessCheck)
			r.Get("/health/live", health.LivenessCheck)
			r.Get("/version", health.Version)

			handlers.NewDashboardHandler(a.Dashboard, validator, logger, a.ErrorHandler).RegisterRoutes(r)
			r.Mount("/data", handlers.NewDataHandler(a.Dashboard, logger, a.ErrorHandler).Routes())

			r.With(customMiddleware.ContentTypeValidator("application/json")).Post("/chat", chatHandler.PostChat)
			r.With(customMiddleware.ContentTypeValidator("application/json")).
				Post("/logs", handlers.NewClientLogHandler(validator, logger, a.ErrorHandler).Handle)
		})

		if frontend != nil {
			r.Get("/", frontend.ServeIndex)
			r.Get("/static/*", frontend.ServeStatic)
		}
	})

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.Router = r
	return nil
}

// getCORSConfig returns the CORS configuration for the configured origins
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	origins := append([]string{}, a.Config.Security.AllowedOrigins...)
	if a.isDevelopmentMode() {
		origins = append(origins,
			fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
			fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port))
	}
	return customMiddleware.CORSConfig{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Serve runs the HTTP server and the background workers on ln until ctx is
// done, then shuts everything down
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	// the hub outlives gctx so the shutdown notice can still be delivered
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	g.Go(func() error {
		a.Hub.Run(hubCtx)
		return nil
	})
	g.Go(func() error {
		a.Sessions.Run(gctx, a.sweepInterval())
		return nil
	})
	g.Go(func() error {
		a.pruneConversations(gctx)
		return nil
	})
	g.Go(func() error {
		a.Logger.InfoContext(gctx, "Application started successfully",
			slog.String("address", "http://"+ln.Addr().String()),
			slog.String("chat_mode", a.chatMode()))
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown(stopHub)
	})

	return g.Wait()
}

// Start listens on the configured address and serves until ctx is done
func (a *Application) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.Start(ctx)
}

func (a *Application) shutdown(stopHub context.CancelFunc) error {
	ctx := context.Background()
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	a.Hub.Notice(shutdownNotice)

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	stopHub()
	select {
	case <-a.Hub.Done():
	case <-shutdownCtx.Done():
		a.Logger.WarnContext(ctx, "Chat hub did not stop in time")
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

func (a *Application) sweepInterval() time.Duration {
	if a.Config.Session.SweepInterval > 0 {
		return a.Config.Session.SweepInterval
	}
	return 5 * time.Minute
}

// pruneConversations drops chat histories of sessions that went idle
func (a *Application) pruneConversations(ctx context.Context) {
	ticker := time.NewTicker(a.sweepInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.Chat.Prune(a.Config.Session.TTL); n > 0 {
				a.Logger.DebugContext(ctx, "idle conversations pruned", slog.Int("count", n))
			}
		}
	}
}
