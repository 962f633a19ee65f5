package domain

import "go.mongodb.org/mongo-driver/v2/bson"

// Audit log actions.
const (
	AuditActionCreateUser        = "create_user"
	AuditActionCreateGroup       = "create_group"
	AuditActionCreatePermission  = "create_permission"
	AuditActionAddMember         = "add_member"
	AuditActionRevokeMember      = "revoke_member"
	AuditActionGrantPermission   = "grant_permission"
	AuditActionRevokePermission  = "revoke_permission"
	AuditActionEnableUser        = "enable_user"
	AuditActionDisableUser       = "disable_user"
	AuditActionEnableGroup       = "enable_group"
	AuditActionDisableGroup      = "disable_group"
	AuditActionEnableAuditing    = "enable_auditing"
	AuditActionDisableAuditing   = "disable_auditing"
	AuditActionCreatePermRequest = "create_perm_request"
	AuditActionUpdatePermRequest = "update_perm_request"
)

// AuditLog ids of zero mean the record does not relate to that object.
type AuditLog struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	ActorID        int64         `bson:"actor_id"`
	Action         string        `bson:"action"`
	Description    string        `bson:"description,omitempty"`
	OnGroupID      int64         `bson:"on_group_id,omitempty"`
	OnUserID       int64         `bson:"on_user_id,omitempty"`
	OnPermissionID int64         `bson:"on_permission_id,omitempty"`
	RequestID      string        `bson:"request_id,omitempty"`
	Timestamp      int64         `bson:"timestamp,omitempty"`
}
