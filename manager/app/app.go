package app

import (
	"context"

	"github.com/groupgraph/api/config"
	"github.com/groupgraph/api/manager/domain"
	"github.com/groupgraph/api/pkg/logger"
	"go.uber.org/fx"
)

// App holds the started object graph used by one CLI invocation.
type App struct {
	fx      *fx.App
	Config  config.ManageConfig
	Repo    domain.Repository
	Service domain.Service
}

// Start builds the service graph from the named config and runs its start
// hooks. Opening the repository applies pending migrations.
func Start(ctx context.Context, configName string, configPath string, extra ...fx.Option) (*App, error) {
	serviceModule, err := ServiceModule(configName, configPath)
	if err != nil {
		return nil, err
	}

	a := &App{}
	opts := append([]fx.Option{
		serviceModule,
		fx.NopLogger,
		fx.Invoke(ApplyLogging),
		fx.Populate(&a.Config, &a.Repo, &a.Service),
	}, extra...)
	a.fx = fx.New(opts...)
	if err := a.fx.Err(); err != nil {
		return nil, err
	}
	if err := a.fx.Start(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) Stop(ctx context.Context) error {
	return a.fx.Stop(ctx)
}

// ApplyLogging sets the global log level once the graph starts.
func ApplyLogging(lc fx.Lifecycle, cfg config.LoggingConfig) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.SetLevel(cfg.Level)
			logger.Logger(ctx).Debug().Msgf("log level set to %s", cfg.Level)
			return nil
		},
	})
}
