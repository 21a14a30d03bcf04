package app

import (
	"context"
	"sync"

	"github.com/termchat/termchat/internal/bus"
	"github.com/termchat/termchat/internal/config"
	"github.com/termchat/termchat/internal/lock"
	"github.com/termchat/termchat/internal/logging"
	"github.com/termchat/termchat/internal/mailbox"
	"github.com/termchat/termchat/internal/presence"
	"github.com/termchat/termchat/internal/profile"
	"github.com/termchat/termchat/internal/rest"
	"github.com/termchat/termchat/internal/status"
	"github.com/termchat/termchat/internal/store"
	intsync "github.com/termchat/termchat/internal/sync"
	"github.com/termchat/termchat/internal/tui"
	"github.com/termchat/termchat/internal/typing"
	"github.com/termchat/termchat/internal/wire"
	"github.com/termchat/termchat/internal/ws"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile string
}

// sendRelay forwards frames to the connection manager once it exists.
// The typing aggregator needs a sender before the manager can be
// constructed, so the relay stands in and is bound during startup.
type sendRelay struct {
	mu     sync.Mutex
	target typing.Sender
}

func (r *sendRelay) Send(f wire.Frame) {
	r.mu.Lock()
	target := r.target
	r.mu.Unlock()
	if target != nil {
		target.Send(f)
	}
}

func (r *sendRelay) bind(target typing.Sender) {
	r.mu.Lock()
	r.target = target
	r.mu.Unlock()
}

// Module returns the fx module for the client, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("app",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideConfig,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideMailbox,
			provideRegistry,
			provideRoster,
			provideRelay,
			provideAggregator,
			provideEngine,
			provideRouter,
			provideManager,
			provideRESTClient,
			provideUI,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.Profile), p.Profile)
}

func provideConfig(logger *zap.Logger) (*config.Config, error) {
	cfg, err := config.Load(profile.ConfigPath())
	if err != nil {
		return nil, err
	}
	logger.Info("configuration loaded",
		zap.String("server_url", cfg.ServerURL),
		zap.String("websocket_url", cfg.WebsocketURL))
	return cfg, nil
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(profile.Dir(p.Profile))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.Profile)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
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

func provideMailbox() *mailbox.Store {
	return mailbox.NewStore()
}

func provideRegistry() *mailbox.Registry {
	return mailbox.NewRegistry()
}

func provideRoster() *presence.Tracker {
	return presence.NewTracker()
}

func provideRelay() *sendRelay {
	return &sendRelay{}
}

func provideAggregator(relay *sendRelay, cfg *config.Config, b *bus.Bus) *typing.Aggregator {
	return typing.NewAggregator(relay, cfg.Idle(), b)
}

func provideEngine(mb *mailbox.Store, reg *mailbox.Registry, roster *presence.Tracker, typ *typing.Aggregator, b *bus.Bus, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(mb, reg, roster, typ, b, logger)
}

func provideRouter(engine *intsync.Engine, logger *zap.Logger) *ws.Router {
	return ws.NewRouter(engine, logger)
}

func provideManager(cfg *config.Config, db *store.DB, router *ws.Router, machine *status.Machine, logger *zap.Logger) *ws.Manager {
	return ws.NewManager(cfg.WebsocketURL, db, ws.GorillaDialer{}, router, machine, cfg.Backoff(), logger)
}

func provideRESTClient(cfg *config.Config, db *store.DB, logger *zap.Logger) *rest.Client {
	return rest.NewClient(cfg.ServerURL, db, logger)
}

func provideUI(p Params, api *rest.Client, manager *ws.Manager, machine *status.Machine, mb *mailbox.Store, reg *mailbox.Registry, roster *presence.Tracker, typ *typing.Aggregator, db *store.DB, b *bus.Bus, logger *zap.Logger) *tui.App {
	return tui.NewApp(p.Profile, api, manager, machine, mb, reg, roster, typ, db, b, logger)
}

func registerLifecycle(lc fx.Lifecycle, shutdowner fx.Shutdowner, ui *tui.App, relay *sendRelay, manager *ws.Manager, typ *typing.Aggregator, db *store.DB, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			relay.bind(manager)

			// Connect skips silently when no credentials are stored;
			// the login flow triggers it after authentication.
			manager.Connect()

			go func() {
				if err := ui.Run(); err != nil {
					logger.Error("terminal UI error", zap.Error(err))
				}
				_ = shutdowner.Shutdown()
			}()

			return nil
		},
		OnStop: func(_ context.Context) error {
			ui.Stop()
			typ.Stop()
			manager.Teardown()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("client stopped")
			return nil
		},
	})
}
