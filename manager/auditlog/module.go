package auditlog

import (
	"context"
	"fmt"

	"github.com/groupgraph/api/config"
	"github.com/groupgraph/api/manager/domain"
	"go.uber.org/fx"
)

type Params struct {
	fx.In
	AuditConfig   config.AuditConfig
	MongoDBConfig config.MongoDBConfig
	Lifecycle     fx.Lifecycle `optional:"true"`
}

// NewAuditLogger returns the audit sink selected by audit.log_backend.
func NewAuditLogger(params Params) (domain.AuditLogger, error) {
	switch params.AuditConfig.LogBackend {
	case "", config.AuditLogBackendLog:
		return NewLogLogger(), nil
	case config.AuditLogBackendMongo:
		store, err := NewMongoStore(context.Background(), params.MongoDBConfig)
		if err != nil {
			return nil, err
		}
		if params.Lifecycle != nil {
			params.Lifecycle.Append(fx.Hook{
				OnStop: store.Close,
			})
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown audit log backend %q", params.AuditConfig.LogBackend)
	}
}
