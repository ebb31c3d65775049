package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/campus-pay/campus_pay/internal/account"
	"github.com/campus-pay/campus_pay/internal/auth"
	"github.com/campus-pay/campus_pay/internal/billing"
	"github.com/campus-pay/campus_pay/internal/config"
	"github.com/campus-pay/campus_pay/internal/enrollment"
	"github.com/campus-pay/campus_pay/internal/groups"
	"github.com/campus-pay/campus_pay/internal/identity"
	"github.com/campus-pay/campus_pay/internal/ledger"
	"github.com/campus-pay/campus_pay/internal/metrics"
	"github.com/campus-pay/campus_pay/internal/middleware"
	"github.com/campus-pay/campus_pay/internal/notification"
	"github.com/campus-pay/campus_pay/internal/payments"
	"github.com/campus-pay/campus_pay/internal/reminder"
	"github.com/campus-pay/campus_pay/internal/settlement"
)

const loginAttemptsPerMinute = 5

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Background holds the workers the server must start and stop alongside HTTP.
type Background struct {
	Queue    *notification.Queue
	Reminder *reminder.Scheduler
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) (*Background, error) {
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New(recover.Config{EnableStackTrace: d.Cfg.IsDevelopment()}))
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	app.Use(middleware.Metrics(d.Metrics))

	RegisterHealthRoutes(app, d)

	store := newStore(d)
	inbox, sink := newNotificationSink(d)
	queue := notification.NewQueue(sink, d.Cfg.NotificationQueueSize, d.Logger, d.Metrics)

	var (
		identityRepo   identity.Repository
		groupRepo      groups.Repository
		enrollmentRepo enrollment.Repository
	)
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
		groupRepo = groups.NewPostgresRepository(d.DB)
		enrollmentRepo = enrollment.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
		groupRepo = groups.NewMemoryRepository()
		enrollmentRepo = enrollment.NewMemoryRepository()
	}

	accountSvc := account.NewService(store, d.Cfg.OpeningBalance)
	identitySvc := identity.NewService(identityRepo, accountSvc, d.Logger)
	tokens := auth.NewTokenManager(d.Cfg.JWTSecret, d.Cfg.AccessTokenTTL, d.Cfg.AppName)
	groupSvc := groups.NewService(groupRepo, queue, d.Logger)
	paymentSvc := payments.NewService(store, queue, d.Logger, d.Metrics)
	billingSvc := billing.NewService(store, groupSvc, groupSvc, queue, d.Logger, d.Metrics)
	settlementSvc := settlement.NewService(store, queue, d.Logger, d.Metrics)
	enrollmentSvc := enrollment.NewService(enrollmentRepo, store, queue, d.Logger, d.Metrics)

	scheduler, err := reminder.New(store, queue, d.Logger, d.Cfg.ReminderSchedule)
	if err != nil {
		return nil, err
	}

	identityHandler := identity.NewHandler(identitySvc)
	idempotent := middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals(middleware.RequestIDLocal).(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterAuthRoutes(api, identityHandler, auth.NewHandler(identitySvc, tokens),
		middleware.LoginRateLimit(d.Cache, loginAttemptsPerMinute))

	// Protected routes
	protected := api.Group("", middleware.JWTAuth(tokens))
	protected.Get("/me", identityHandler.Me)
	RegisterAccountRoutes(protected, account.NewHandler(accountSvc))
	RegisterPaymentRoutes(protected, payments.NewHandler(paymentSvc), idempotent)
	RegisterGroupRoutes(protected, groups.NewHandler(groupSvc), billing.NewHandler(billingSvc), idempotent)
	RegisterBillRoutes(protected, settlement.NewHandler(settlementSvc), idempotent)
	RegisterEnrollmentRoutes(protected, enrollment.NewHandler(enrollmentSvc), idempotent)
	RegisterNotificationRoutes(protected, notification.NewHandler(inbox))

	return &Background{Queue: queue, Reminder: scheduler}, nil
}

func newStore(d Deps) ledger.Store {
	if d.DB == nil {
		d.Logger.Warn("DATABASE_URL not set, using in-memory ledger")
		return ledger.NewInMemory()
	}
	return ledger.NewPostgresStore(d.DB,
		ledger.WithTxTimeout(d.Cfg.TxTimeout),
		ledger.WithMaxRetries(d.Cfg.TxMaxRetries),
		ledger.WithRetryHook(func(attempt int, err error) {
			d.Metrics.TxRetry()
			d.Logger.Warn("ledger transaction retried", slog.Int("attempt", attempt), slog.Any("error", err))
		}),
	)
}

// newNotificationSink returns the inbox users read from and the sink the
// queue delivers to. Redis writes sit behind a circuit breaker.
func newNotificationSink(d Deps) (notification.Inbox, notification.Notifier) {
	logSink := notification.NewLoggerNotifier(d.Logger)
	if d.Cache == nil {
		inbox := notification.NewMemoryInbox()
		return inbox, notification.Multi{logSink, inbox}
	}
	inbox := notification.NewRedisInbox(d.Cache, 0)
	return inbox, notification.Multi{logSink, notification.NewBreakerNotifier(inbox, "notification-inbox", d.Logger)}
}
