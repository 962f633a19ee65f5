package service

import (
	"time"

	"github.com/groupgraph/api/manager/domain"
	"github.com/groupgraph/api/pkg/util"
)

func (suite *ServiceTestSuite) TestResolveSkipsExpiredEdges() {
	alice := suite.user("alice")
	current := suite.group("current")
	expired := suite.group("expired")
	read := suite.permission("read", false)
	suite.grant(current, read, "current")
	suite.grant(expired, read, "expired")

	later := suite.now.Add(time.Hour)
	earlier := suite.now.Add(-time.Hour)
	suite.joinUntil(current, alice.Member(), domain.RoleMember, &later)
	suite.joinUntil(expired, alice.Member(), domain.RoleMember, &earlier)

	grants, err := suite.svc.ResolvePermissions(suite.ctx, alice.Member(), suite.now)
	suite.Require().NoError(err)
	suite.Equal([]string{"read:current"}, grantNames(grants))

	grants, err = suite.svc.ResolvePermissions(suite.ctx, alice.Member(), later)
	suite.Require().NoError(err)
	suite.Empty(grants)
}

func (suite *ServiceTestSuite) TestResolveSkipsExpiredNestedEdge() {
	alice := suite.user("alice")
	team := suite.group("team")
	parent := suite.group("parent")
	read := suite.permission("read", false)
	suite.grant(parent, read, "*")
	suite.join(team, alice.Member(), domain.RoleMember)
	expiry := suite.now
	suite.joinUntil(parent, team.Member(), domain.RoleMember, &expiry)

	grants, err := suite.svc.ResolvePermissions(suite.ctx, alice.Member(), suite.now)
	suite.Require().NoError(err)
	suite.Empty(grants)
}

func (suite *ServiceTestSuite) TestNPOwnerEdgeStopsInheritance() {
	alice := suite.user("alice")
	team := suite.group("team")
	platform := suite.group("platform")
	org := suite.group("org")
	x := suite.permission("x", false)
	y := suite.permission("y", false)
	z := suite.permission("z", false)
	suite.grant(team, x, "*")
	suite.grant(platform, y, "*")
	suite.grant(org, z, "*")

	suite.join(team, alice.Member(), domain.RoleMember)
	suite.join(platform, team.Member(), domain.RoleNPOwner)
	suite.join(org, platform.Member(), domain.RoleMember)

	grants, err := suite.svc.ResolvePermissions(suite.ctx, alice.Member(), suite.now)
	suite.Require().NoError(err)
	suite.Equal([]string{"x:*"}, grantNames(grants))

	teamGrants, err := suite.svc.ResolvePermissions(suite.ctx, team.Member(), suite.now)
	suite.Require().NoError(err)
	suite.Empty(teamGrants)

	memberships, err := suite.svc.GroupsForPrincipal(suite.ctx, alice.Member(), suite.now)
	suite.Require().NoError(err)
	distances := map[string]int{}
	for _, m := range memberships {
		distances[m.Group.Name] = m.Distance
	}
	suite.Equal(map[string]int{"team": 1, "platform": 2, "org": 3}, distances)
}

func (suite *ServiceTestSuite) TestGroupsForPrincipalToleratesCycles() {
	a := suite.group("a")
	b := suite.group("b")
	suite.join(b, a.Member(), domain.RoleMember)
	suite.join(a, b.Member(), domain.RoleMember)

	memberships, err := suite.svc.GroupsForPrincipal(suite.ctx, a.Member(), suite.now)
	suite.Require().NoError(err)
	suite.Require().Len(memberships, 1)
	suite.Equal("b", memberships[0].Group.Name)

	memberships, err = suite.svc.GroupsForPrincipal(suite.ctx, domain.UserMember(404), suite.now)
	suite.Require().NoError(err)
	suite.Empty(memberships)
}

func (suite *ServiceTestSuite) TestDirectPermissionsDoNotInherit() {
	alice := suite.user("alice")
	team := suite.group("team")
	parent := suite.group("parent")
	deploy := suite.permission("deploy", false)
	ssh := suite.permission("ssh", false)
	suite.grant(team, deploy, "web")
	suite.grant(parent, ssh, "*")
	suite.join(team, alice.Member(), domain.RoleOwner)
	suite.join(parent, team.Member(), domain.RoleMember)

	direct, err := suite.svc.DirectPermissions(suite.ctx, alice.ID, suite.now)
	suite.Require().NoError(err)
	suite.Equal([]string{"deploy:web"}, grantNames(direct))

	full, err := suite.svc.ResolvePermissions(suite.ctx, alice.Member(), suite.now)
	suite.Require().NoError(err)
	suite.Equal([]string{"deploy:web", "ssh:*"}, grantNames(full))

	ok, err := suite.svc.HasPermission(suite.ctx, alice.ID, "deploy", util.Ptr("web"), suite.now)
	suite.Require().NoError(err)
	suite.True(ok)
	ok, err = suite.svc.HasPermission(suite.ctx, alice.ID, "deploy", util.Ptr("api"), suite.now)
	suite.Require().NoError(err)
	suite.False(ok)
	ok, err = suite.svc.HasPermission(suite.ctx, alice.ID, "deploy", nil, suite.now)
	suite.Require().NoError(err)
	suite.True(ok)
	ok, err = suite.svc.HasPermission(suite.ctx, alice.ID, "ssh", util.Ptr("host1"), suite.now)
	suite.Require().NoError(err)
	suite.False(ok)
}

func (suite *ServiceTestSuite) TestHasPermissionWildcardGrant() {
	alice := suite.user("alice")
	team := suite.group("team")
	deploy := suite.permission("deploy", false)
	suite.grant(team, deploy, "*")
	suite.join(team, alice.Member(), domain.RoleMember)

	ok, err := suite.svc.HasPermission(suite.ctx, alice.ID, "deploy", util.Ptr("anything"), suite.now)
	suite.Require().NoError(err)
	suite.True(ok)
}

func (suite *ServiceTestSuite) TestPermissionsForUserSkipsSpecialUsers() {
	team := suite.group("team")
	deploy := suite.permission("deploy", false)
	suite.grant(team, deploy, "*")

	regular := suite.user("regular")
	service := &domain.User{Username: "svc", Enabled: true, ServiceAccount: true}
	suite.Require().NoError(suite.repo.CreateUser(suite.ctx, service))
	role := &domain.User{Username: "role", Enabled: true, RoleUser: true}
	suite.Require().NoError(suite.repo.CreateUser(suite.ctx, role))
	for _, user := range []*domain.User{regular, service, role} {
		suite.join(team, user.Member(), domain.RoleMember)
	}

	grants, err := suite.svc.PermissionsForUser(suite.ctx, regular.ID, suite.now)
	suite.Require().NoError(err)
	suite.Equal([]string{"deploy:*"}, grantNames(grants))

	for _, user := range []*domain.User{service, role} {
		grants, err := suite.svc.PermissionsForUser(suite.ctx, user.ID, suite.now)
		suite.Require().NoError(err)
		suite.Empty(grants, user.Username)
	}

	ok, err := suite.svc.UserHasPermissionAnyArgument(suite.ctx, regular.ID, "deploy", suite.now)
	suite.Require().NoError(err)
	suite.True(ok)

	suite.Require().NoError(suite.repo.SetUserEnabled(suite.ctx, regular.ID, false))
	ok, err = suite.svc.UserHasPermissionAnyArgument(suite.ctx, regular.ID, "deploy", suite.now)
	suite.Require().NoError(err)
	suite.False(ok)
}

func (suite *ServiceTestSuite) TestPermissionGrantsForPermission() {
	zeta := suite.group("zeta")
	alpha := suite.group("alpha")
	off := suite.group("off")
	deploy := suite.permission("deploy", false)
	suite.grant(zeta, deploy, "web")
	suite.grant(alpha, deploy, "web")
	suite.grant(alpha, deploy, "api")
	suite.grant(off, deploy, "*")
	suite.Require().NoError(suite.repo.SetGroupEnabled(suite.ctx, off.ID, false))

	grants, err := suite.svc.PermissionGrantsForPermission(suite.ctx, "deploy")
	suite.Require().NoError(err)
	var got []string
	for _, grant := range grants {
		got = append(got, grant.GroupName+":"+grant.Argument)
	}
	suite.Equal([]string{"alpha:api", "alpha:web", "zeta:web"}, got)

	grants, err = suite.svc.PermissionGrantsForPermission(suite.ctx, "missing")
	suite.Require().NoError(err)
	suite.Empty(grants)
}

func (suite *ServiceTestSuite) TestCanManage() {
	team := suite.group("team")
	owner := suite.user("owner")
	manager := suite.user("manager")
	member := suite.user("member")
	suite.join(team, owner.Member(), domain.RoleOwner)
	suite.join(team, manager.Member(), domain.RoleManager)
	suite.join(team, member.Member(), domain.RoleMember)

	for user, want := range map[*domain.User]bool{owner: true, manager: true, member: false} {
		ok, err := suite.svc.CanManage(suite.ctx, user.ID, team.ID, suite.now)
		suite.Require().NoError(err)
		suite.Equal(want, ok, user.Username)
	}
}
