package app

import (
	"github.com/groupgraph/api/config"
	"github.com/groupgraph/api/manager/auditlog"
	"github.com/groupgraph/api/manager/client"
	"github.com/groupgraph/api/manager/repository"
	"github.com/groupgraph/api/manager/rest"
	"github.com/groupgraph/api/manager/service"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

func ConfigModule(configName string, configPath string) (fx.Option, error) {
	cfg, err := config.InitManagerConfig(configName, configPath)
	if err != nil {
		return nil, err
	}

	return fx.Options(
		fx.Provide(func() config.ManageConfig {
			return cfg
		}),
		fx.Provide(func(managerCfg config.ManageConfig) config.ServerConfig {
			return managerCfg.Server
		}),
		fx.Provide(func(managerCfg config.ManageConfig) config.LoggingConfig {
			return managerCfg.Logging
		}),
		fx.Provide(func(managerCfg config.ManageConfig) config.SQLiteConfig {
			return managerCfg.SQLite
		}),
		fx.Provide(func(managerCfg config.ManageConfig) config.MongoDBConfig {
			return managerCfg.MongoDB
		}),
		fx.Provide(func(managerCfg config.ManageConfig) config.NotifyConfig {
			return managerCfg.Notify
		}),
		fx.Provide(func(managerCfg config.ManageConfig) config.AuditConfig {
			return managerCfg.Audit
		}),
		fx.Provide(func(managerCfg config.ManageConfig) config.OwnershipConfig {
			return managerCfg.Ownership
		}),
	), nil
}

// RepoModule creates an Fx module that provides the repository layer, return domain.Repository
func RepoModule(configName string, configPath string) (fx.Option, error) {
	configModule, err := ConfigModule(configName, configPath)
	if err != nil {
		return nil, err
	}

	return fx.Options(
		configModule,
		fx.Provide(repository.NewRepository),
	), nil
}

// ServiceModule creates an Fx module that provides the service layer, return domain.Service
func ServiceModule(configName string, configPath string) (fx.Option, error) {
	repoModule, err := RepoModule(configName, configPath)
	if err != nil {
		return nil, err
	}

	return fx.Options(
		repoModule,
		fx.Provide(auditlog.NewAuditLogger),
		fx.Provide(client.NewNotifier),
		fx.Provide(func() prometheus.Registerer {
			return prometheus.DefaultRegisterer
		}),
		fx.Provide(func() prometheus.Gatherer {
			return prometheus.DefaultGatherer
		}),
		fx.Provide(service.NewService),
	), nil
}

// HandlerModule creates an Fx module that provides the REST handler, return *rest.Handler
func HandlerModule(configName string, configPath string) (fx.Option, error) {
	serviceModule, err := ServiceModule(configName, configPath)
	if err != nil {
		return nil, err
	}

	return fx.Options(
		serviceModule,
		fx.Provide(rest.NewHandler),
	), nil
}
