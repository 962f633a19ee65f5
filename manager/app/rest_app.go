package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/groupgraph/api/config"
	"github.com/groupgraph/api/manager/domain"
	"github.com/groupgraph/api/manager/rest"
	"github.com/groupgraph/api/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
)

func NewRestApp(configName string, configDirPath string) (*fx.App, error) {
	handlerModule, err := HandlerModule(configName, configDirPath)
	if err != nil {
		return nil, err
	}

	app := fx.New(
		handlerModule,
		fx.NopLogger,
		fx.Invoke(ApplyLogging),
		fx.Invoke(StartRestApp),
		fx.Invoke(StartExpirationSweeper),
	)
	return app, app.Err()
}

func StartRestApp(lc fx.Lifecycle, cfg config.ServerConfig, handler *rest.Handler) error {
	engine := echo.New()
	engine.HideBanner = true
	engine.HidePort = true
	handler.SetupRoutes(engine)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			serverHost := cfg.Host
			if serverHost == "" {
				serverHost = ":8080"
			}
			go func() {
				logger.Logger(ctx).Info().Msgf("starting rest server on %s", serverHost)
				if err := engine.Start(serverHost); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Logger(ctx).Fatal().Err(err).Msgf("start rest server fail on %s", serverHost)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Logger(ctx).Info().Msg("shutting down rest server")
			return engine.Shutdown(ctx)
		},
	})

	return nil
}

// StartExpirationSweeper warns about memberships that are about to expire on
// the configured cron schedule. The first sweep runs right after startup.
func StartExpirationSweeper(lc fx.Lifecycle, svc domain.Service, cfg config.NotifyConfig) error {
	sweep := func() {
		ctx := context.Background()
		sent, err := svc.NotifyExpiringMemberships(ctx, time.Now())
		if err != nil {
			logger.Logger(ctx).Warn().Err(err).Msg("expiration sweep failed")
			return
		}
		if sent > 0 {
			logger.Logger(ctx).Info().Msgf("expiration sweep sent %d warnings", sent)
		}
	}

	scheduler := cron.New()
	schedule := cfg.Schedule()
	if _, err := scheduler.AddFunc(schedule, sweep); err != nil {
		return fmt.Errorf("invalid expiration sweep schedule %q, err: %w", schedule, err)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Logger(ctx).Info().Msgf("expiration sweeper starting, schedule %s", schedule)
			go sweep()
			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			select {
			case <-scheduler.Stop().Done():
				logger.Logger(ctx).Info().Msg("expiration sweeper stopped")
			case <-ctx.Done():
			}
			return nil
		},
	})

	return nil
}
