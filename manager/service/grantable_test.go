package service

import (
	"math/rand"
	"testing"

	"github.com/groupgraph/api/manager/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPermissions(names ...string) []*domain.Permission {
	out := make([]*domain.Permission, 0, len(names))
	for i, name := range names {
		out = append(out, &domain.Permission{ID: int64(i + 1), Name: name, Enabled: true})
	}
	return out
}

func grantOf(argument string, groupID int64) *domain.ResolvedGrant {
	return &domain.ResolvedGrant{Permission: domain.PermissionGrant, Argument: argument, GroupID: groupID}
}

func grantablePairs(in []*domain.GrantablePermission) []string {
	out := make([]string, 0, len(in))
	for _, gp := range in {
		out = append(out, gp.Permission.Name+"/"+gp.Argument)
	}
	return out
}

func TestFilterGrantable(t *testing.T) {
	permissions := testPermissions("ssh-access", "ssh-admin", "db-access", "deploy")
	grants := []*domain.ResolvedGrant{
		grantOf("ssh-*/prod", 1),
		grantOf("deploy", 2),
		grantOf("ssh-access/prod", 3),
		grantOf("db-access/replica-?", 1),
	}

	got, err := FilterGrantable(grants, permissions)
	require.NoError(t, err)
	want := []string{"db-access/replica-?", "deploy/*", "ssh-access/prod", "ssh-admin/prod"}
	assert.Equal(t, want, grantablePairs(got))

	again, err := FilterGrantable(grants, permissions)
	require.NoError(t, err)
	assert.Equal(t, want, grantablePairs(again))

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		shuffled := append([]*domain.ResolvedGrant(nil), grants...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		out, err := FilterGrantable(shuffled, permissions)
		require.NoError(t, err)
		assert.Equal(t, want, grantablePairs(out))
	}
}

func TestFilterGrantableRejectsOtherPermissions(t *testing.T) {
	grants := []*domain.ResolvedGrant{{Permission: "deploy", Argument: "*"}}
	_, err := FilterGrantable(grants, testPermissions("deploy"))
	require.ErrorIs(t, err, domain.ErrInvariant)
}

func TestFilterGrantableEmpty(t *testing.T) {
	got, err := FilterGrantable(nil, testPermissions("deploy"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReduceArguments(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		restricted []string
		want       []string
	}{
		{name: "empty", args: nil, want: nil},
		{name: "wildcard only", args: []string{"*"}, want: []string{"*"}},
		{name: "wildcard subsumes", args: []string{"b", "*", "a"}, want: []string{"*"}},
		{name: "specific only", args: []string{"b", "a", "b"}, want: []string{"a", "b"}},
		{name: "restricted keeps specific", args: []string{"b", "*", "a"}, restricted: []string{"p"}, want: []string{"a", "b"}},
		{name: "restricted wildcard only", args: []string{"*"}, restricted: []string{"p"}, want: []string{"*"}},
		{name: "other permission restricted", args: []string{"a", "*"}, restricted: []string{"q"}, want: []string{"*"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReduceArguments("p", tt.args, tt.restricted))
		})
	}
}

func (suite *ServiceTestSuite) TestGrantablePermissions() {
	grantPerm := suite.permission(domain.PermissionGrant, false)
	suite.permission("ssh-access", false)
	suite.permission("secrets", false)
	wide := suite.group("wide")
	narrow := suite.group("narrow")
	suite.grant(wide, grantPerm, "ssh-access")
	suite.grant(wide, grantPerm, "secrets")
	suite.grant(narrow, grantPerm, "ssh-access/prod")
	suite.grant(narrow, grantPerm, "secrets/vault")

	got, err := suite.svc.GrantablePermissions(suite.ctx, []string{"secrets"}, suite.now)
	suite.Require().NoError(err)
	suite.Equal(map[string][]string{
		"ssh-access": {"*"},
		"secrets":    {"vault"},
	}, got)

	svc := suite.newService(Params{})
	svc.restricted = []string{"ssh-access"}
	got, err = svc.GrantablePermissions(suite.ctx, nil, suite.now)
	suite.Require().NoError(err)
	suite.Equal([]string{"prod"}, got["ssh-access"])
	suite.Equal([]string{"*"}, got["secrets"])
}

func (suite *ServiceTestSuite) TestUserGrantableAndCreatable() {
	grantPerm := suite.permission(domain.PermissionGrant, false)
	createPerm := suite.permission(domain.PermissionCreate, false)
	admin := suite.permission(domain.PermissionAdmin, false)
	suite.permission("ssh-access", false)

	leads := suite.group("leads")
	suite.grant(leads, grantPerm, "ssh-*/prod")
	suite.grant(leads, createPerm, "team.*")
	lead := suite.user("lead")
	suite.join(leads, lead.Member(), domain.RoleMember)

	grantable, err := suite.svc.UserGrantablePermissions(suite.ctx, lead.ID, suite.now)
	suite.Require().NoError(err)
	suite.Equal([]string{"ssh-access/prod"}, grantablePairs(grantable))

	creatable, err := suite.svc.UserCreatablePermissions(suite.ctx, lead.ID, suite.now)
	suite.Require().NoError(err)
	suite.Equal([]string{"team.*"}, creatable)

	admins := suite.group("admins")
	suite.grant(admins, admin, "*")
	root := suite.user("root")
	suite.join(admins, root.Member(), domain.RoleMember)

	grantable, err = suite.svc.UserGrantablePermissions(suite.ctx, root.ID, suite.now)
	suite.Require().NoError(err)
	suite.Len(grantable, 4)
	for _, gp := range grantable {
		suite.Equal(domain.WildcardArgument, gp.Argument)
	}
	creatable, err = suite.svc.UserCreatablePermissions(suite.ctx, root.ID, suite.now)
	suite.Require().NoError(err)
	suite.Equal([]string{"*"}, creatable)

	nobody := suite.user("nobody")
	creatable, err = suite.svc.UserCreatablePermissions(suite.ctx, nobody.ID, suite.now)
	suite.Require().NoError(err)
	suite.Empty(creatable)
}
