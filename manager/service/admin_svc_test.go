package service

import (
	"context"
	"errors"

	"github.com/groupgraph/api/manager/domain"
	"github.com/stretchr/testify/mock"
)

func (suite *ServiceTestSuite) TestCreateUserWritesAuditAndCallsPlugins() {
	auditLogger := domain.NewMockAuditLogger(suite.T())
	var logged *domain.AuditLog
	auditLogger.EXPECT().Log(mock.Anything, mock.Anything).
		Run(func(_ context.Context, log *domain.AuditLog) { logged = log }).
		Return(nil).Once()
	plugin := domain.NewMockPrincipalPlugin(suite.T())
	plugin.EXPECT().Name().Return("welcome").Maybe()
	plugin.EXPECT().PrincipalCreated(mock.Anything, mock.Anything, "alice").Return(nil).Once()

	svc := suite.newService(Params{AuditLogger: auditLogger, PrincipalPlugins: []domain.PrincipalPlugin{plugin}})
	user := &domain.User{Username: "alice", Enabled: true}
	suite.Require().NoError(svc.CreateUser(suite.ctx, 7, user))
	suite.NotZero(user.ID)

	suite.Require().NotNil(logged)
	suite.Equal(domain.AuditActionCreateUser, logged.Action)
	suite.Equal(int64(7), logged.ActorID)
	suite.Equal(user.ID, logged.OnUserID)
	suite.NotEmpty(logged.RequestID)
	suite.NotZero(logged.Timestamp)
}

func (suite *ServiceTestSuite) TestCreateGroupPluginRejectionRollsBack() {
	plugin := domain.NewMockPrincipalPlugin(suite.T())
	plugin.EXPECT().Name().Return("naming").Maybe()
	plugin.EXPECT().PrincipalCreated(mock.Anything, mock.Anything, "Bad Name").
		Return(&domain.PluginRejection{Plugin: "naming", Reason: "spaces not allowed"})

	svc := suite.newService(Params{PrincipalPlugins: []domain.PrincipalPlugin{plugin}})
	err := svc.CreateGroup(suite.ctx, 1, &domain.Group{Name: "Bad Name", Enabled: true})
	var rejection *domain.PluginRejection
	suite.Require().ErrorAs(err, &rejection)

	_, err = svc.GetGroupByName(suite.ctx, "Bad Name")
	suite.Require().ErrorIs(err, domain.ErrNotFound)
}

func (suite *ServiceTestSuite) TestCreateGroupPluginFailureIsIgnored() {
	plugin := domain.NewMockPrincipalPlugin(suite.T())
	plugin.EXPECT().Name().Return("sync").Maybe()
	plugin.EXPECT().PrincipalCreated(mock.Anything, mock.Anything, "eng").Return(errors.New("ldap down"))

	svc := suite.newService(Params{PrincipalPlugins: []domain.PrincipalPlugin{plugin}})
	suite.Require().NoError(svc.CreateGroup(suite.ctx, 1, &domain.Group{Name: "eng", Enabled: true}))
	group, err := svc.GetGroupByName(suite.ctx, "eng")
	suite.Require().NoError(err)
	suite.Equal("eng", group.Name)
}

func (suite *ServiceTestSuite) TestAuditFailureDoesNotFailOperation() {
	auditLogger := domain.NewMockAuditLogger(suite.T())
	auditLogger.EXPECT().Log(mock.Anything, mock.Anything).Return(errors.New("mongo down")).Once()

	svc := suite.newService(Params{AuditLogger: auditLogger})
	suite.Require().NoError(svc.CreatePermission(suite.ctx, 1, &domain.Permission{Name: "deploy", Enabled: true}))
	permission, err := svc.GetPermissionByName(suite.ctx, "deploy")
	suite.Require().NoError(err)
	suite.True(permission.Enabled)
}

func (suite *ServiceTestSuite) TestMembershipAndGrantAdminOps() {
	admin := suite.user("admin")
	alice := suite.user("alice")
	eng := suite.group("eng")
	deploy := suite.permission("deploy", false)

	suite.Require().NoError(suite.svc.AddMember(suite.ctx, admin.ID, domain.AddMemberOptions{
		GroupID: eng.ID,
		Member:  alice.Member(),
		Role:    domain.RoleMember,
	}))
	suite.Require().NoError(suite.svc.GrantPermission(suite.ctx, admin.ID, eng.ID, deploy.ID, "web"))

	ok, err := suite.svc.HasPermission(suite.ctx, alice.ID, "deploy", nil, suite.now)
	suite.Require().NoError(err)
	suite.True(ok)

	suite.Require().NoError(suite.svc.AddMember(suite.ctx, admin.ID, domain.AddMemberOptions{
		GroupID: eng.ID,
		Member:  alice.Member(),
		Role:    domain.RoleManager,
	}))
	ok, err = suite.svc.CanManage(suite.ctx, alice.ID, eng.ID, suite.now)
	suite.Require().NoError(err)
	suite.True(ok)

	suite.Require().NoError(suite.svc.SetGroupEnabled(suite.ctx, admin.ID, eng.ID, false))
	ok, err = suite.svc.HasPermission(suite.ctx, alice.ID, "deploy", nil, suite.now)
	suite.Require().NoError(err)
	suite.False(ok)
	suite.Require().NoError(suite.svc.SetGroupEnabled(suite.ctx, admin.ID, eng.ID, true))

	suite.Require().NoError(suite.svc.RevokePermission(suite.ctx, admin.ID, eng.ID, deploy.ID, "web"))
	ok, err = suite.svc.HasPermission(suite.ctx, alice.ID, "deploy", nil, suite.now)
	suite.Require().NoError(err)
	suite.False(ok)

	suite.Require().NoError(suite.svc.RevokeMember(suite.ctx, admin.ID, eng.ID, alice.Member()))
	memberships, err := suite.svc.GroupsForPrincipal(suite.ctx, alice.Member(), suite.now)
	suite.Require().NoError(err)
	suite.Empty(memberships)

	err = suite.svc.RevokePermission(suite.ctx, admin.ID, eng.ID, deploy.ID, "web")
	suite.Require().ErrorIs(err, domain.ErrNotFound)
}

func (suite *ServiceTestSuite) TestAddGroupToItself() {
	eng := suite.group("eng")
	err := suite.svc.AddMember(suite.ctx, 1, domain.AddMemberOptions{GroupID: eng.ID, Member: eng.Member()})
	suite.Require().ErrorIs(err, domain.ErrInvariant)
}

func (suite *ServiceTestSuite) TestSetPermissionAuditedAndUserEnabled() {
	deploy := suite.permission("deploy", false)
	suite.Require().NoError(suite.svc.SetPermissionAudited(suite.ctx, 1, deploy.ID, true))
	permission, err := suite.svc.GetPermissionByName(suite.ctx, "deploy")
	suite.Require().NoError(err)
	suite.True(permission.Audited)

	alice := suite.user("alice")
	suite.Require().NoError(suite.svc.SetUserEnabled(suite.ctx, 1, alice.ID, false))
	user, err := suite.svc.GetUserByName(suite.ctx, "alice")
	suite.Require().NoError(err)
	suite.False(user.Enabled)

	_, err = suite.svc.GetUserByName(suite.ctx, "nobody")
	suite.Require().ErrorIs(err, domain.ErrNotFound)
}
