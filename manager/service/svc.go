package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	cache "github.com/Code-Hex/go-generics-cache"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/groupgraph/api/config"
	"github.com/groupgraph/api/manager/domain"
	"github.com/groupgraph/api/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"go.uber.org/fx"
)

type Params struct {
	fx.In
	Repo             domain.Repository
	Notifier         domain.Notifier
	AuditLogger      domain.AuditLogger
	AuditConfig      config.AuditConfig
	OwnershipConfig  config.OwnershipConfig
	NotifyConfig     config.NotifyConfig      `optional:"true"`
	OwnershipPlugins []domain.OwnershipPlugin `group:"ownership_plugins"`
	PrincipalPlugins []domain.PrincipalPlugin `group:"principal_plugins"`
	Registerer       prometheus.Registerer    `optional:"true"`
}

func NewService(params Params) (domain.Service, error) {
	return newService(params)
}

func newService(params Params) (*Service, error) {
	auditorPermission := params.AuditConfig.AuditorPermission
	if auditorPermission == "" {
		auditorPermission = domain.PermissionAuditor
	}
	policy, err := compileApproverPolicy(params.AuditConfig.ApproverPolicy)
	if err != nil {
		return nil, fmt.Errorf("compile approver policy: %w", err)
	}

	svc := &Service{
		Repo:              params.Repo,
		Notifier:          params.Notifier,
		AuditLogger:       params.AuditLogger,
		auditorPermission: auditorPermission,
		approverPolicy:    policy,
		restricted:        params.OwnershipConfig.RestrictedPermissions,
		expirationNotice:  params.NotifyConfig.ExpirationNotice(),
		ownershipPlugins:  sortPlugins(params.OwnershipPlugins),
		principalPlugins:  sortPlugins(params.PrincipalPlugins),
		metricCollector:   NewMetricCollector(),
	}
	if params.OwnershipConfig.CacheEnabled {
		svc.ownersCache = cache.New[int64, domain.OwnersByArgByPerm]()
		svc.ownersCacheTTL = params.OwnershipConfig.CacheTTL()
	}
	if params.Registerer != nil {
		if err := svc.metricCollector.Register(params.Registerer); err != nil {
			return nil, fmt.Errorf("failed to register metric collector: %v", err)
		}
	}
	return svc, nil
}

type Service struct {
	Repo        domain.Repository
	Notifier    domain.Notifier
	AuditLogger domain.AuditLogger

	auditorPermission string
	approverPolicy    *vm.Program
	restricted        []string
	expirationNotice  time.Duration
	ownershipPlugins  []domain.OwnershipPlugin
	principalPlugins  []domain.PrincipalPlugin
	ownersCache       *cache.Cache[int64, domain.OwnersByArgByPerm]
	ownersCacheTTL    time.Duration
	metricCollector   *MetricCollector
}

type namedPlugin interface {
	Name() string
}

// sortPlugins fixes the execution order, value groups carry no ordering.
func sortPlugins[T namedPlugin](plugins []T) []T {
	out := append([]T(nil), plugins...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Name() < out[j].Name()
	})
	return out
}

// approverEnv is the environment of the approver policy expression.
type approverEnv struct {
	User           string `expr:"user"`
	Group          string `expr:"group"`
	Role           string `expr:"role"`
	Auditor        bool   `expr:"auditor"`
	RoleUser       bool   `expr:"role_user"`
	ServiceAccount bool   `expr:"service_account"`
}

func compileApproverPolicy(policy string) (*vm.Program, error) {
	if policy == "" {
		policy = "auditor"
	}
	return expr.Compile(policy, expr.Env(approverEnv{}), expr.AsBool())
}

// startOperation tags ctx with an operation id used in logs and audit records.
func (svc *Service) startOperation(ctx context.Context, op string) (context.Context, string) {
	opID := xid.New().String()
	log := logger.Logger(ctx).With().Str("op", op).Str("op_id", opID).Logger()
	return log.WithContext(ctx), opID
}

// audit writes an audit record. The record describes a committed change, so
// a failing audit sink is logged rather than returned.
func (svc *Service) audit(ctx context.Context, opID string, entry *domain.AuditLog) {
	if svc.AuditLogger == nil {
		return
	}
	entry.RequestID = opID
	if entry.Timestamp == 0 {
		entry.Timestamp = time.Now().UnixMilli()
	}
	if err := svc.AuditLogger.Log(ctx, entry); err != nil {
		logger.Logger(ctx).Error().Err(err).Str("action", entry.Action).Msg("write audit log failed")
	}
}

func (svc *Service) notify(ctx context.Context, notification domain.Notification) {
	if svc.Notifier == nil || len(notification.Recipients) == 0 {
		return
	}
	if err := svc.Notifier.Send(ctx, notification); err != nil {
		logger.Logger(ctx).Error().Err(err).
			Strs("recipients", notification.Recipients).
			Str("template", notification.Template).
			Msg("send notification failed")
	}
}
