package domain

import (
	"fmt"
	"time"
)

type User struct {
	ID             int64
	Username       string
	Enabled        bool
	RoleUser       bool
	ServiceAccount bool
	CreatedOn      time.Time
}

// Member returns the edge endpoint for the user.
func (u *User) Member() Member {
	return Member{Type: MemberTypeUser, ID: u.ID}
}

type Group struct {
	ID          int64
	Name        string
	Description string
	Enabled     bool
	CreatedOn   time.Time
}

func (g *Group) Member() Member {
	return Member{Type: MemberTypeGroup, ID: g.ID}
}

// Member identifies the member side of a group edge.
type Member struct {
	Type MemberType
	ID   int64
}

func UserMember(id int64) Member {
	return Member{Type: MemberTypeUser, ID: id}
}

func GroupMember(id int64) Member {
	return Member{Type: MemberTypeGroup, ID: id}
}

func (m Member) String() string {
	return fmt.Sprintf("%s:%d", m.Type, m.ID)
}

// GroupEdge is a directed membership edge from Member into GroupID.
type GroupEdge struct {
	ID         int64
	GroupID    int64
	Member     Member
	Role       GroupEdgeRole
	Active     bool
	Expiration *time.Time
}

// ActiveAt reports whether the edge counts for resolution at now. An edge
// expiring exactly at now is already inactive.
func (e *GroupEdge) ActiveAt(now time.Time) bool {
	if !e.Active {
		return false
	}
	return e.Expiration == nil || e.Expiration.After(now)
}

// GroupMembership is one group reached from a principal, with the edge of
// the hop that reached it. Distance 1 is direct membership.
type GroupMembership struct {
	Group    *Group
	Edge     *GroupEdge
	Distance int
}
