package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/gabapcia/depositwatch/internal/classifier"
	"github.com/gabapcia/depositwatch/internal/config"
	"github.com/gabapcia/depositwatch/internal/depositwatch"
	"github.com/gabapcia/depositwatch/internal/handlers/cli"
	"github.com/gabapcia/depositwatch/internal/infra/blockchain/ethereum"
	"github.com/gabapcia/depositwatch/internal/infra/storage/redis"
	"github.com/gabapcia/depositwatch/internal/notifier"
	"github.com/gabapcia/depositwatch/internal/pkg/logger"
	"github.com/gabapcia/depositwatch/internal/pkg/telemetry"
	transporthttp "github.com/gabapcia/depositwatch/internal/pkg/transport/http"
	"github.com/gabapcia/depositwatch/internal/pkg/transport/jsonrpc"
	"github.com/gabapcia/depositwatch/internal/walletregistry"
)

// ErrRedisWalletSourceRequired is returned by wallet commands when wallets
// are read from a file.
var ErrRedisWalletSourceRequired = errors.New("wallet commands need DEPOSITWATCH_WALLET_SOURCE=redis")

// app builds the services from the configuration the first time a command
// asks for one.
type app struct {
	setupOnce sync.Once
	setupErr  error

	cfg         config.Config
	redisClient redisClient
	shutdown    telemetry.ShutdownFunc
}

// redisClient is the part of the Redis client the app uses.
type redisClient interface {
	walletregistry.WalletStorage
	StateStore(namespace string) depositwatch.StateStore
	Close() error
}

var _ cli.Builder = (*app)(nil)

func newApp() *app {
	return &app{}
}

func (a *app) setup(ctx context.Context) error {
	a.setupOnce.Do(func() {
		a.setupErr = a.init(ctx)
	})
	return a.setupErr
}

func (a *app) init(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(ctx, cfg.Telemetry.ServiceName)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		a.shutdown = shutdown
	}

	if err := logger.Init(cfg.LogLevel); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if cfg.UsesRedis() {
		c, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Username, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		a.redisClient = c
	}

	return nil
}

func (a *app) close(ctx context.Context) {
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil {
			logger.Error(ctx, "telemetry shutdown failed", "error", err)
		}
	}
	_ = logger.Sync()
}

// WalletService returns the Redis-backed wallet service.
func (a *app) WalletService(ctx context.Context) (walletregistry.Service, error) {
	if err := a.setup(ctx); err != nil {
		return nil, err
	}
	if a.cfg.WalletSource != config.WalletSourceRedis {
		return nil, ErrRedisWalletSourceRequired
	}

	return walletregistry.NewService(a.redisClient), nil
}

func (a *app) wallets(ctx context.Context) (*walletregistry.Registry, error) {
	if a.cfg.WalletSource == config.WalletSourceRedis {
		return walletregistry.NewService(a.redisClient).Load(ctx)
	}

	f, err := os.Open(a.cfg.WalletsFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	addresses, err := walletregistry.ReadAddresses(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", a.cfg.WalletsFile, err)
	}

	return walletregistry.New(addresses)
}

func (a *app) stateStore() depositwatch.StateStore {
	if a.cfg.StateStore == config.StateStoreRedis {
		return a.redisClient.StateStore(a.cfg.Namespace())
	}
	return depositwatch.NopStateStore()
}

// Cycler builds the watcher for the configured mode and its state store.
func (a *app) Cycler(ctx context.Context) (depositwatch.Cycler, depositwatch.StateStore, error) {
	if err := a.setup(ctx); err != nil {
		return nil, nil, err
	}

	wallets, err := a.wallets(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load wallets: %w", err)
	}

	node := ethereum.NewClient(jsonrpc.NewClient(a.cfg.Node.URL,
		jsonrpc.WithTimeout(a.cfg.Node.Timeout),
		jsonrpc.WithRetryMax(a.cfg.Node.RetryMax),
		jsonrpc.WithRateLimit(a.cfg.Node.RateLimit, a.cfg.Node.RateBurst),
	))

	var source depositwatch.TransferSource = classifier.NewNativeSource(node, wallets)
	if a.cfg.Mode == config.ModeToken {
		source = classifier.NewTokenSource(node, wallets, a.cfg.TokenContract)
	}

	sender, err := notifier.NewWebhook(notifier.Config{
		CallbackURL: a.cfg.Webhook.CallbackURL,
		APIKey:      a.cfg.Webhook.APIKey,
		APISecret:   a.cfg.Webhook.APISecret,
	}, transporthttp.NewClient(
		transporthttp.WithTimeout(a.cfg.Webhook.Timeout),
		transporthttp.WithRetryMax(a.cfg.Webhook.RetryMax),
		transporthttp.WithRequestLogging(true),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("create notifier: %w", err)
	}

	w, err := depositwatch.New(node, source, sender,
		depositwatch.WithCurrency(a.cfg.Currency),
		depositwatch.WithDecimals(a.cfg.Decimals),
	)
	if err != nil {
		return nil, nil, err
	}

	logger.Info(ctx, "watcher configured",
		"mode", a.cfg.Mode,
		"wallets", wallets.Len(),
		"node", a.cfg.Node.URL,
		"callback", a.cfg.Webhook.CallbackURL,
		"state_store", a.cfg.StateStore,
	)

	return w, a.stateStore(), nil
}

// Runner wraps Cycler in a runner using the configured delays. opts are
// applied last.
func (a *app) Runner(ctx context.Context, opts ...depositwatch.RunnerOption) (depositwatch.Runner, error) {
	cycler, store, err := a.Cycler(ctx)
	if err != nil {
		return nil, err
	}

	opts = append([]depositwatch.RunnerOption{
		depositwatch.WithStateStore(store),
		depositwatch.WithSuccessDelay(a.cfg.SuccessDelay),
		depositwatch.WithFailureDelay(a.cfg.FailureDelay),
	}, opts...)

	return depositwatch.NewRunner(cycler, opts...), nil
}
