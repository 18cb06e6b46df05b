package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"edgerouter/internal/config"
	"edgerouter/internal/edge"
	"edgerouter/internal/handlers"
	"edgerouter/internal/health"
	"edgerouter/internal/logging"
	"edgerouter/internal/metrics"
	"edgerouter/internal/upstream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const shutdownTimeout = 10 * time.Second

type Deps struct {
	Router         *edge.Router
	Checker        *health.Checker
	Metrics        *metrics.Collector
	Log            *slog.Logger
	TrustedProxies []string
}

func fiberConfig(d Deps) fiber.Config {
	cfg := fiber.Config{
		DisableStartupMessage:     true,
		DisableDefaultContentType: true,
		ErrorHandler:              handlers.ErrorHandler(d.Log),
		ReadTimeout:               30 * time.Second,
		IdleTimeout:               2 * time.Minute,
	}
	if len(d.TrustedProxies) > 0 {
		cfg.EnableTrustedProxyCheck = true
		cfg.TrustedProxies = d.TrustedProxies
		cfg.ProxyHeader = fiber.HeaderXForwardedFor
	}
	return cfg
}

// NewEdgeApp serves every host and path through the router.
func NewEdgeApp(d Deps) *fiber.App {
	app := fiber.New(fiberConfig(d))

	// recover sits inside the access log and metrics so a panic is still
	// logged and counted with the status the client got.
	app.Use(d.Metrics.Middleware())
	app.Use(logging.AccessLog(d.Log))
	app.Use(recover.New())
	app.Use(handlers.Edge(d.Router))

	return app
}

// NewAdminApp serves the operational endpoints. It is meant for a private
// address.
func NewAdminApp(d Deps) *fiber.App {
	app := fiber.New(fiberConfig(d))

	app.Use(recover.New())

	app.Get("/healthz", handlers.Healthz)
	app.Get("/status", handlers.Status(d.Checker))
	app.Get("/metrics", d.Metrics.Handler())
	app.Get("/tls/ask", handlers.TLSAsk(d.Router.Sites()))

	return app
}

type Server struct {
	Edge    *fiber.App
	Admin   *fiber.App
	Checker *health.Checker
	Log     *slog.Logger
}

// New wires the router, upstream client, metrics and probe loop from cfg.
func New(cfg *config.Config, log *slog.Logger) *Server {
	var m *metrics.Collector
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	client := upstream.NewClient(
		upstream.WithTimeout(cfg.UpstreamTimeout),
		upstream.WithObserver(m.ObserveUpstream),
	)
	router := edge.NewRouter(cfg.Sites, client)

	var checker *health.Checker
	if cfg.ProbeInterval > 0 {
		checker = health.NewChecker(health.DefaultProbes(cfg.Sites), cfg.ProbeInterval, cfg.ProbeTimeout,
			cfg.WebhookURL, cfg.WebhookFormat, cfg.AlertThreshold, log.With("component", "health"))
		checker.OnResult = func(r health.Result) { m.SetProbe(r.Name, r.OK) }
	}

	d := Deps{
		Router:         router,
		Checker:        checker,
		Metrics:        m,
		Log:            log,
		TrustedProxies: cfg.TrustedProxies,
	}
	return &Server{
		Edge:    NewEdgeApp(d),
		Admin:   NewAdminApp(d),
		Checker: checker,
		Log:     log,
	}
}

// Run serves both listeners and the probe loop until ctx is cancelled or a
// listener fails, then shuts everything down. adminLn may be nil.
func (s *Server) Run(ctx context.Context, edgeLn, adminLn net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.Checker != nil {
		go s.Checker.Start(ctx)
	}

	errCh := make(chan error, 2)
	go func() {
		s.Log.Info("edge listener started", "addr", edgeLn.Addr().String())
		if err := s.Edge.Listener(edgeLn); err != nil {
			errCh <- fmt.Errorf("edge listener: %w", err)
		}
	}()
	if adminLn != nil {
		go func() {
			s.Log.Info("admin listener started", "addr", adminLn.Addr().String())
			if err := s.Admin.Listener(adminLn); err != nil {
				errCh <- fmt.Errorf("admin listener: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		s.Log.Info("shutting down")
	case runErr = <-errCh:
		s.Log.Error("listener failed", "error", runErr)
	}
	cancel()

	var errs []error
	if err := s.Edge.ShutdownWithTimeout(shutdownTimeout); err != nil {
		errs = append(errs, fmt.Errorf("edge shutdown: %w", err))
	}
	if adminLn != nil {
		if err := s.Admin.ShutdownWithTimeout(shutdownTimeout); err != nil {
			errs = append(errs, fmt.Errorf("admin shutdown: %w", err))
		}
	}
	return errors.Join(append([]error{runErr}, errs...)...)
}
