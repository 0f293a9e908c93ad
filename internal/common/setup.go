package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"loyalty-ledger-go/internal/config"
	"loyalty-ledger-go/internal/database"
	"loyalty-ledger-go/internal/events"
	"loyalty-ledger-go/internal/formance"
	"loyalty-ledger-go/internal/ledger"
	"loyalty-ledger-go/internal/leveldb"
	"loyalty-ledger-go/internal/metrics"
	"loyalty-ledger-go/internal/models"
	"loyalty-ledger-go/internal/store"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	Store   store.Store
	Ledger  *ledger.Ledger
	Metrics *metrics.LedgerMetrics
	Mirror  *formance.Mirror

	formanceService *formance.Service
}

// ServiceOptions selects the optional pieces wired around the ledger.
type ServiceOptions struct {
	// Auth defaults to ledger.CallerAuthenticator
	Auth ledger.Authenticator
	// Registerer enables Prometheus metrics when non-nil
	Registerer prometheus.Registerer
	// EnableMirror connects to Formance when the config has a stack URL
	EnableMirror bool
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeStore opens the backend selected by cfg.Backend.
func InitializeStore(ctx context.Context, cfg *models.Config) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendLevelDB:
		st, err := leveldb.Open(cfg.LevelDB.Path, cfg.Lifetime.EntryLifetime)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.BackendSQLite, "":
		st, err := database.NewService(ctx, cfg.Database, cfg.Lifetime.EntryLifetime)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}

// InitializeServices opens the store and builds the ledger with its audit
// emitters: structured logs always, metrics and the Formance mirror on request.
func InitializeServices(ctx context.Context, cfg *models.Config, opts ServiceOptions) (*Services, error) {
	st, err := InitializeStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewServices(ctx, cfg, st, opts)
}

// NewServices builds the ledger over an already opened store. The store is
// closed with the services.
func NewServices(ctx context.Context, cfg *models.Config, st store.Store, opts ServiceOptions) (*Services, error) {
	services := &Services{Store: st}
	emitters := events.MultiEmitter{events.NewLogEmitter(zap.L())}

	if opts.Registerer != nil {
		m, err := metrics.NewLedgerMetrics(opts.Registerer)
		if err != nil {
			services.Close()
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		services.Metrics = m
		emitters = append(emitters, m)
	}

	if opts.EnableMirror && cfg.Formance.Enabled() {
		svc, err := formance.NewService(ctx, cfg.Formance)
		if err != nil {
			services.Close()
			return nil, err
		}
		services.formanceService = svc
		services.Mirror = formance.NewMirror(svc, cfg.Formance.Timeout)
		emitters = append(emitters, services.Mirror)
	}

	auth := opts.Auth
	if auth == nil {
		auth = ledger.CallerAuthenticator{}
	}

	l, err := ledger.New(st, auth,
		ledger.WithEmitter(emitters),
		ledger.WithLifetime(cfg.Lifetime.MinRemaining, cfg.Lifetime.MaxExtension),
	)
	if err != nil {
		services.Close()
		return nil, err
	}
	services.Ledger = l

	if services.Metrics != nil {
		supply, err := l.TotalSupply(ctx)
		if err != nil {
			services.Close()
			return nil, err
		}
		services.Metrics.SetTotalSupply(supply)
	}

	zap.L().Info("Ledger initialized",
		zap.String("backend", cfg.Backend),
		zap.Bool("metrics", services.Metrics != nil),
		zap.Bool("formance_mirror", services.Mirror != nil))
	return services, nil
}

func (cs *Services) Close() {
	if cs.formanceService != nil {
		cs.formanceService.Close()
	}
	if cs.Store != nil {
		cs.Store.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
