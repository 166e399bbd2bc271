package daemon

import (
	"context"

	"github.com/matheus3301/wppbridge/internal/alias"
	"github.com/matheus3301/wppbridge/internal/api"
	"github.com/matheus3301/wppbridge/internal/bus"
	"github.com/matheus3301/wppbridge/internal/config"
	"github.com/matheus3301/wppbridge/internal/delivery"
	"github.com/matheus3301/wppbridge/internal/gateway"
	"github.com/matheus3301/wppbridge/internal/history"
	"github.com/matheus3301/wppbridge/internal/inbox"
	"github.com/matheus3301/wppbridge/internal/instance"
	"github.com/matheus3301/wppbridge/internal/lock"
	"github.com/matheus3301/wppbridge/internal/logging"
	"github.com/matheus3301/wppbridge/internal/names"
	"github.com/matheus3301/wppbridge/internal/outbox"
	"github.com/matheus3301/wppbridge/internal/status"
	"github.com/matheus3301/wppbridge/internal/store"
	intsync "github.com/matheus3301/wppbridge/internal/sync"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved instance configuration passed to the fx module.
type Params struct {
	Instance   string
	SocketPath string         // optional override for testing; empty = use default
	Config     *config.Config // optional; nil = read config.toml
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideTransport,
			provideGatewayClient,
			provideAliasCache,
			provideNames,
			provideHistory,
			provideDelivery,
			provideInbox,
			provideSyncEngine,
			provideSender,
			providePoller,
			provideSessionService,
			provideInboxService,
			provideMessageService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	if p.Config != nil {
		return p.Config, nil
	}
	return config.LoadOrDefault(instance.ConfigPath())
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(instance.LogPath(p.Instance), p.Instance)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := instance.EnsureDir(p.Instance); err != nil {
		return nil, err
	}
	logger.Info("acquiring instance lock")
	l, err := lock.Acquire(instance.Dir(p.Instance), p.Instance)
	if err != nil {
		return nil, err
	}
	logger.Info("instance lock acquired")
	return l, nil
}

// provideStore takes the lock so the database is only opened by its holder.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := instance.DBPath(p.Instance)
	db, result, err := store.OpenMigrated(dbPath)
	if err != nil {
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideTransport(p Params, cfg *config.Config, logger *zap.Logger) gateway.Transport {
	t := gateway.New(gateway.Options{
		BaseURL:       cfg.Gateway.BaseURL,
		APIKey:        cfg.Gateway.APIKey,
		Timeout:       cfg.Timeout(),
		RelayURL:      cfg.Relay.URL,
		RelayFunction: cfg.Relay.Function,
		RelayToken:    cfg.Relay.Token,
		RuntimeHost:   cfg.Relay.RuntimeHost,
		Instance:      p.Instance,
	})
	switch t.(type) {
	case *gateway.Relay:
		logger.Info("gateway transport selected", zap.String("mode", "relay"), zap.String("url", cfg.Relay.URL))
	default:
		logger.Info("gateway transport selected", zap.String("mode", "direct"), zap.String("url", cfg.Gateway.BaseURL))
	}
	return t
}

func provideGatewayClient(p Params, t gateway.Transport, logger *zap.Logger) *gateway.Client {
	return gateway.NewClient(t, p.Instance, logger)
}

func provideAliasCache(db *store.DB, logger *zap.Logger) *alias.Cache {
	return alias.New(db, logger)
}

func provideNames(db *store.DB, cache *alias.Cache, logger *zap.Logger) *names.Resolver {
	return names.NewResolver(db, cache, logger)
}

func provideHistory(gw *gateway.Client, cache *alias.Cache, logger *zap.Logger) *history.Service {
	return history.NewService(gw, cache, logger)
}

func provideDelivery(gw *gateway.Client, h *history.Service, cache *alias.Cache, logger *zap.Logger) *delivery.Engine {
	return delivery.NewEngine(gw, h, cache, logger)
}

func provideInbox(gw *gateway.Client, cache *alias.Cache, resolver *names.Resolver, db *store.DB, cfg *config.Config, logger *zap.Logger) *inbox.Service {
	return inbox.NewService(gw, cache, resolver, db, cfg.Inbox.MessageWindow, logger)
}

func provideSyncEngine(gw *gateway.Client, db *store.DB, cache *alias.Cache, resolver *names.Resolver, b *bus.Bus, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(gw, db, cache, resolver, b, logger)
}

func provideSender(db *store.DB, engine *delivery.Engine, b *bus.Bus, logger *zap.Logger) *outbox.Sender {
	return outbox.NewSender(db, engine, b, logger)
}

func providePoller(gw *gateway.Client, m *status.Machine, cfg *config.Config, logger *zap.Logger) *status.Poller {
	return status.NewPoller(gw, m, cfg.PollInterval(), logger)
}

func provideSessionService(p Params, gw *gateway.Client, poller *status.Poller, m *status.Machine, db *store.DB, cache *alias.Cache, b *bus.Bus, logger *zap.Logger) *api.SessionService {
	return api.NewSessionService(p.Instance, gw, poller, m, db, cache, b, logger)
}

func provideInboxService(in *inbox.Service, engine *intsync.Engine, resolver *names.Resolver, logger *zap.Logger) *api.InboxService {
	return api.NewInboxService(in, engine, resolver, logger)
}

func provideMessageService(h *history.Service, sender *outbox.Sender, logger *zap.Logger) *api.MessageService {
	return api.NewMessageService(h, sender, logger)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, db *store.DB, engine *intsync.Engine, sender *outbox.Sender, poller *status.Poller, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Stored contacts feed names and aliases before the first sync.
			if err := engine.Warm(); err != nil {
				logger.Warn("failed to load stored contacts", zap.Error(err))
			}
			if _, err := sender.Recover(); err != nil {
				logger.Warn("failed to recover outbox", zap.Error(err))
			}

			// Runs the first contact sync once the connection is open.
			engine.Start(context.Background())

			// Start gRPC server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			poller.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			poller.Stop()
			engine.Stop()
			srv.Stop(ctx)
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
