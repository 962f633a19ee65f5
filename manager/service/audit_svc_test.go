package service

import (
	"github.com/groupgraph/api/config"
	"github.com/groupgraph/api/manager/domain"
	"github.com/groupgraph/api/manager/errs"
)

func (suite *ServiceTestSuite) TestAuditGateChecksSubgroups() {
	auditorPerm := suite.permission(domain.PermissionAuditor, false)
	auditors := suite.group("auditors")
	suite.grant(auditors, auditorPerm, "*")

	eng := suite.group("eng")
	oncall := suite.group("eng-oncall")
	suite.join(eng, oncall.Member(), domain.RoleMember)
	suite.join(oncall, eng.Member(), domain.RoleMember)

	erin := suite.user("erin")
	suite.join(auditors, erin.Member(), domain.RoleMember)
	suite.join(eng, erin.Member(), domain.RoleOwner)
	suite.join(oncall, suite.user("plain").Member(), domain.RoleMember)
	suite.Require().NoError(suite.svc.AssertControllersAreAuditors(suite.ctx, eng.ID, suite.now))

	dave := suite.user("dave")
	suite.join(oncall, dave.Member(), domain.RoleManager)
	err := suite.svc.AssertControllersAreAuditors(suite.ctx, eng.ID, suite.now)
	suite.Require().ErrorIs(err, domain.ErrUserNotAuditor)
	policyErr, ok := errs.IsPolicyError(err)
	suite.Require().True(ok)
	suite.Contains(policyErr.Message, "dave")
	suite.Contains(policyErr.Message, "eng-oncall")
}

func (suite *ServiceTestSuite) TestAuditGateNPOwnerMustBeAuditor() {
	eng := suite.group("eng")
	suite.join(eng, suite.user("nora").Member(), domain.RoleNPOwner)

	err := suite.svc.AssertControllersAreAuditors(suite.ctx, eng.ID, suite.now)
	suite.Require().ErrorIs(err, domain.ErrUserNotAuditor)
}

func (suite *ServiceTestSuite) TestAuditGateInheritedAuditor() {
	auditorPerm := suite.permission(domain.PermissionAuditor, false)
	audit := suite.group("audit")
	suite.grant(audit, auditorPerm, "*")
	security := suite.group("security")
	suite.join(audit, security.Member(), domain.RoleMember)

	eng := suite.group("eng")
	sam := suite.user("sam")
	suite.join(security, sam.Member(), domain.RoleMember)
	suite.join(eng, sam.Member(), domain.RoleManager)

	suite.Require().NoError(suite.svc.AssertControllersAreAuditors(suite.ctx, eng.ID, suite.now))
}

func (suite *ServiceTestSuite) TestAuditGatePolicyExpression() {
	eng := suite.group("eng")
	bot := &domain.User{Username: "bot", Enabled: true, ServiceAccount: true}
	suite.Require().NoError(suite.repo.CreateUser(suite.ctx, bot))
	suite.join(eng, bot.Member(), domain.RoleOwner)

	svc := suite.newService(Params{AuditConfig: config.AuditConfig{ApproverPolicy: `auditor || service_account`}})
	suite.Require().NoError(svc.AssertControllersAreAuditors(suite.ctx, eng.ID, suite.now))

	manager := suite.user("manny")
	suite.join(eng, manager.Member(), domain.RoleManager)
	suite.Require().ErrorIs(svc.AssertControllersAreAuditors(suite.ctx, eng.ID, suite.now), domain.ErrUserNotAuditor)

	lenient := suite.newService(Params{AuditConfig: config.AuditConfig{ApproverPolicy: `auditor || service_account || role == "manager"`}})
	suite.Require().NoError(lenient.AssertControllersAreAuditors(suite.ctx, eng.ID, suite.now))
}

func (suite *ServiceTestSuite) TestAuditGateCustomAuditorPermission() {
	reviewer := suite.permission("compliance.reviewer", false)
	reviewers := suite.group("reviewers")
	suite.grant(reviewers, reviewer, "*")
	eng := suite.group("eng")
	rita := suite.user("rita")
	suite.join(reviewers, rita.Member(), domain.RoleMember)
	suite.join(eng, rita.Member(), domain.RoleOwner)

	suite.Require().ErrorIs(suite.svc.AssertControllersAreAuditors(suite.ctx, eng.ID, suite.now), domain.ErrUserNotAuditor)

	svc := suite.newService(Params{AuditConfig: config.AuditConfig{AuditorPermission: "compliance.reviewer"}})
	suite.Require().NoError(svc.AssertControllersAreAuditors(suite.ctx, eng.ID, suite.now))
}
