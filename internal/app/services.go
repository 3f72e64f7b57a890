package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-pos/internal/auth"
	"github.com/odyssey-erp/odyssey-pos/internal/backup"
	"github.com/odyssey-erp/odyssey-pos/internal/cart"
	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/checkout"
	"github.com/odyssey-erp/odyssey-pos/internal/dashboard"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
	"github.com/odyssey-erp/odyssey-pos/internal/live"
	"github.com/odyssey-erp/odyssey-pos/internal/notify"
	"github.com/odyssey-erp/odyssey-pos/internal/observability"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/docstore"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/mailer"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/objectstore"
	"github.com/odyssey-erp/odyssey-pos/internal/preferences"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/receipt"
	"github.com/odyssey-erp/odyssey-pos/internal/reports"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
	"github.com/odyssey-erp/odyssey-pos/internal/shop"
	"github.com/odyssey-erp/odyssey-pos/internal/transfer"
	"github.com/odyssey-erp/odyssey-pos/internal/users"
	"github.com/odyssey-erp/odyssey-pos/jobs"
	"github.com/odyssey-erp/odyssey-pos/report"
)

const (
	lastBillTTL    = 7 * 24 * time.Hour
	idempotencyTTL = 24 * time.Hour
)

// Services is the wired object graph shared by the server, worker and posctl.
type Services struct {
	Config   *Config
	Logger   *slog.Logger
	Location *time.Location

	Redis *redis.Client
	Pool  *pgxpool.Pool
	Docs  *docstore.Store

	Products catalog.Repository
	Bills    ledger.Repository
	Accounts users.Repository

	Audit       shared.AuditRecorder
	Metrics     *observability.Metrics
	Queue       *jobs.Client
	Preferences *preferences.Store
	Catalog     *catalog.Service
	Ledger      *ledger.Service
	Shop        *shop.Service
	Users       *users.Service
	Auth        *auth.Service
	RBAC        *rbac.Service
	Carts       *cart.Service
	Checkout    *checkout.Service
	LastBills   *checkout.LastBillStore
	ReportCache *reports.Cache
	Reports     *reports.Service
	Dashboard   *dashboard.Service
	PDF         *report.Client
	Receipts    *receipt.Renderer
	Mailer      *mailer.Mailer
	Notifier    *notify.Service
	Objects     objectstore.Store
	Backups     *backup.Service
	Transfer    *transfer.Service
	Live        *live.Publisher

	closers []func()
}

// alertFanout delivers catalog threshold crossings to every sink.
type alertFanout []catalog.AlertSink

func (f alertFanout) LowStock(ctx context.Context, change catalog.StockChange) error {
	var errs []error
	for _, sink := range f {
		if err := sink.LowStock(ctx, change); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build connects the stores named by cfg and wires every service.
func Build(ctx context.Context, cfg *Config, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	s := &Services{Config: cfg, Logger: logger, Location: loc}

	s.Redis, err = cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	s.onClose(func() {
		if err := s.Redis.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	})

	var (
		shopRepo shop.Repository
		sessions auth.SessionRepository
		idem     shared.IdempotencyGuard
	)
	switch cfg.StoreBackend {
	case BackendMongo:
		s.Docs, err = docstore.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.onClose(func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.Docs.Close(closeCtx); err != nil {
				logger.Warn("mongo close", slog.Any("error", err))
			}
		})
		if err := s.Docs.EnsureIndexes(ctx); err != nil {
			s.Close()
			return nil, err
		}
		s.Products = catalog.NewMongoRepository(s.Docs.Database)
		s.Bills = ledger.NewMongoRepository(s.Docs.Database)
		s.Accounts = users.NewMongoRepository(s.Docs.Database)
		shopRepo = shop.NewMongoRepository(s.Docs.Database)
		sessions = auth.NewMongoSessions(s.Docs.Database)
		s.Audit = shared.SlogAudit{Logger: logger.With(slog.String("component", "audit"))}
		idem = shared.NewRedisIdempotency(s.Redis, idempotencyTTL)
	default:
		s.Pool, err = db.New(ctx, cfg.PGDSN)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.onClose(s.Pool.Close)
		if err := db.Migrate(ctx, s.Pool); err != nil {
			s.Close()
			return nil, err
		}
		s.Products = catalog.NewPGRepository(s.Pool)
		s.Bills = ledger.NewPGRepository(s.Pool)
		s.Accounts = users.NewPGRepository(s.Pool)
		shopRepo = shop.NewPGRepository(s.Pool)
		sessions = auth.NewPGSessions(s.Pool)
		s.Audit = shared.NewAuditLogger(s.Pool)
		idem = shared.NewIdempotencyStore(s.Pool)
	}

	s.Metrics = observability.NewMetrics()
	s.Queue, err = jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.onClose(func() {
		if err := s.Queue.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	})

	s.Objects, err = newObjectStore(ctx, cfg, logger)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Preferences = preferences.NewStore(s.Redis)
	s.Ledger = ledger.NewService(s.Bills)
	s.Shop = shop.NewService(shopRepo)
	s.Users = users.NewService(s.Accounts, logger, users.WithAudit(s.Audit))
	s.Auth = auth.NewService(s.Accounts, sessions, auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL), logger)
	s.RBAC = rbac.NewService(s.Users)

	s.Live = live.NewPublisher(s.Redis)
	hook := notify.NewHook(s.Queue)
	s.Catalog = catalog.NewService(s.Products, logger,
		catalog.WithAudit(s.Audit),
		catalog.WithAlerts(alertFanout{hook, s.Live}),
	)

	s.ReportCache = reports.NewCache(s.Redis, cfg.ReportCacheTTL)
	s.Reports = reports.NewService(s.Ledger, s.ReportCache, loc)
	s.Dashboard = dashboard.NewService(s.Catalog, s.Ledger, loc)

	carts := cart.NewStore(s.Redis, cfg.CartTTL)
	s.Carts = cart.NewService(carts, s.Catalog, s.Preferences)
	s.LastBills = checkout.NewLastBillStore(s.Redis, lastBillTTL)
	s.Checkout = checkout.NewService(checkout.Config{
		Carts:       carts,
		Stock:       s.Products,
		Ledger:      s.Ledger,
		Tax:         s.Preferences,
		LastBills:   s.LastBills,
		Idempotency: idem,
		Audit:       s.Audit,
		Metrics:     s.Metrics,
		Guard:       checkout.ParseStockGuard(cfg.CheckoutStockGuard),
		Logger:      logger,
		Hooks:       []checkout.Hook{s.ReportCache, hook, s.Live},
	})

	s.PDF = report.NewClient(cfg.GotenbergURL)
	s.Receipts = receipt.NewRenderer(s.PDF, s.Shop, loc)
	s.Mailer = mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     strconv.Itoa(cfg.SMTPPort),
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	s.Notifier = notify.NewService(notify.Deps{
		Sender:   s.Mailer,
		Profiles: s.Shop,
		Bills:    s.Ledger,
		Products: s.Catalog,
		Reports:  s.Reports,
		Receipts: s.Receipts,
		Location: loc,
		Logger:   logger,
	})

	s.Backups = backup.NewService(backup.Deps{
		Store:    s.Objects,
		Redis:    s.Redis,
		Products: s.Products,
		Bills:    s.Bills,
		Accounts: s.Accounts,
		Profiles: s.Shop,
		Audit:    s.Audit,
		Logger:   logger,
	})
	s.Transfer = transfer.NewService(s.Catalog, s.Ledger, s.Accounts, s.Shop)
	return s, nil
}

func newObjectStore(ctx context.Context, cfg *Config, logger *slog.Logger) (objectstore.Store, error) {
	if cfg.S3Bucket == "" {
		logger.Warn("S3_BUCKET not set, backups are kept in memory only")
		return objectstore.NewMemory(), nil
	}
	store, err := objectstore.NewS3(ctx, objectstore.S3Config{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		return nil, fmt.Errorf("app: object store: %w", err)
	}
	return store, nil
}

func (s *Services) onClose(fn func()) {
	s.closers = append(s.closers, fn)
}

// Close releases connections in reverse order of acquisition.
func (s *Services) Close() {
	if s == nil {
		return
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// JobHandlers wires the worker task handlers to the services.
func (s *Services) JobHandlers() *jobs.Handlers {
	return &jobs.Handlers{
		Notifier:  s.Notifier,
		Backups:   s.Backups,
		Mail:      s.Mailer,
		Retention: s.Config.BackupRetention,
		Location:  s.Location,
		Metrics:   s.Metrics.Jobs(),
		Logger:    s.Logger,
	}
}
