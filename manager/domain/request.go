package domain

import "time"

type PermissionRequest struct {
	ID           int64
	RequesterID  int64
	GroupID      int64
	PermissionID int64
	Argument     string
	Status       RequestStatus
	RequestedAt  time.Time
	ChangedAt    time.Time

	// Filled by queries.
	RequesterName  string
	GroupName      string
	PermissionName string
}

// PermissionRequestStatusChange is an append-only history row. FromStatus is
// nil for the creation row.
type PermissionRequestStatusChange struct {
	ID          int64
	RequestID   int64
	FromStatus  *RequestStatus
	ToStatus    RequestStatus
	ChangedByID int64
	ChangeAt    time.Time

	ChangedByName string
}

func (c *PermissionRequestStatusChange) CommentTarget() CommentTarget {
	return CommentTarget{Kind: CommentOnPermissionRequestStatusChange, ID: c.ID}
}

// CommentTarget is a typed reference to the row a comment belongs to.
type CommentTarget struct {
	Kind CommentTargetKind
	ID   int64
}

type Comment struct {
	ID        int64
	Target    CommentTarget
	UserID    int64
	Comment   string
	CreatedOn time.Time
}

// RequestList is one page of requests with their history attached.
type RequestList struct {
	Requests []*PermissionRequest
	Total    int
	// StatusChanges is keyed by request id, oldest first.
	StatusChanges map[int64][]*PermissionRequestStatusChange
	// Comments is keyed by status change id.
	Comments map[int64]*Comment
}
