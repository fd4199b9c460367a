package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"npbridge/internal/automation"
	"npbridge/internal/bridge"
	"npbridge/internal/config"
	"npbridge/internal/domain"
	"npbridge/internal/poller"
)

// AppOptions is the full dependency graph, exported as a variable so tests
// can validate it with fx.ValidateApp
var AppOptions = fx.Options(
	fx.Provide(
		newLogger,
		fx.Annotate(config.NewAppConfig, fx.As(new(domain.Config))),
		newDBusClient,
		newAutomationChannel,
		fx.Annotate(bridge.NewSnapshotBridge, fx.As(new(domain.NowPlayingSource))),
		fx.Annotate(poller.NewPoller, fx.As(new(domain.Poller))),
	),
	fx.Invoke(registerHooks),
)

func main() {
	app := fx.New(
		AppOptions,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		panic(err)
	}

	// Wait for interrupt signal
	<-ctx.Done()

	if err := app.Stop(context.Background()); err != nil {
		panic(err)
	}
}

// newLogger creates a new zap logger instance
func newLogger() (*zap.Logger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return logger, nil
}

// newDBusClient connects to the session bus and ties the connection to the
// application lifecycle
func newDBusClient(lc fx.Lifecycle, logger *zap.Logger) (automation.DBusClient, error) {
	client, err := automation.NewStdDBusClient()
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close D-Bus connection", zap.Error(err))
			}
			return nil
		},
	})

	return client, nil
}

// newAutomationChannel builds the MPRIS adapter for the configured player
func newAutomationChannel(logger *zap.Logger, cfg domain.Config, conn automation.DBusClient) domain.AutomationChannel {
	return automation.NewMPRISChannel(logger, conn, cfg.PlayerName())
}

// registerHooks wires the poller into the application lifecycle. The loop
// gets its own context: the OnStart context only covers startup.
func registerHooks(lc fx.Lifecycle, logger *zap.Logger, p domain.Poller) {
	loopCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("npbridge daemon started")
			return p.Start(loopCtx)
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down")
			cancel()
			return p.Stop(ctx)
		},
	})
}
