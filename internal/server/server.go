package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/campus-pay/campus_pay/internal/config"
	"github.com/campus-pay/campus_pay/internal/httpx"
	"github.com/campus-pay/campus_pay/internal/metrics"
	"github.com/campus-pay/campus_pay/internal/routes"
)

// Server wraps the Fiber application, its background workers and shared dependencies.
type Server struct {
	app        *fiber.App
	cfg        config.Config
	logger     *slog.Logger
	background *routes.Background

	stopQueue context.CancelFunc
	queueDone chan struct{}
	startOnce sync.Once
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger, m *metrics.Metrics) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpx.ErrorHandler(logger),
		DisableStartupMessage: !cfg.IsDevelopment(),
	})

	bg, err := routes.Setup(app, routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger, Metrics: m})
	if err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, logger: logger, background: bg, queueDone: make(chan struct{})}, nil
}

// App exposes the underlying Fiber application for tests.
func (s *Server) App() *fiber.App { return s.app }

// Start launches the notification queue and reminder scheduler.
func (s *Server) Start() {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopQueue = cancel
		go func() {
			defer close(s.queueDone)
			s.background.Queue.Run(ctx)
		}()
		s.background.Reminder.Start()
	})
}

// Listen starts the background workers and the HTTP server.
func (s *Server) Listen() error {
	s.Start()
	return s.app.Listen(s.cfg.Address())
}

// Shutdown stops accepting requests, then stops the scheduler and drains
// queued notifications.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)

	if s.stopQueue != nil {
		s.background.Reminder.Stop(ctx)
		s.stopQueue()
		select {
		case <-s.queueDone:
		case <-ctx.Done():
			err = errors.Join(err, ctx.Err())
		}
	}
	return err
}
