package auditlog

import (
	"context"
	"time"

	"github.com/groupgraph/api/manager/domain"
	"github.com/groupgraph/api/pkg/logger"
)

// LogLogger writes audit records to the application log only.
type LogLogger struct{}

func NewLogLogger() *LogLogger {
	return &LogLogger{}
}

func (l *LogLogger) Log(ctx context.Context, log *domain.AuditLog) error {
	if log.Timestamp == 0 {
		log.Timestamp = time.Now().UnixMilli()
	}
	event := logger.Logger(ctx).Info().
		Str("audit_action", log.Action).
		Int64("actor_id", log.ActorID).
		Int64("audit_ts", log.Timestamp)
	if log.OnGroupID != 0 {
		event = event.Int64("on_group_id", log.OnGroupID)
	}
	if log.OnUserID != 0 {
		event = event.Int64("on_user_id", log.OnUserID)
	}
	if log.OnPermissionID != 0 {
		event = event.Int64("on_permission_id", log.OnPermissionID)
	}
	if log.RequestID != "" {
		event = event.Str("request_id", log.RequestID)
	}
	event.Msg(log.Description)
	return nil
}
