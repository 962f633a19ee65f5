package service

import (
	"context"
	"time"

	"github.com/groupgraph/api/manager/domain"
	"github.com/stretchr/testify/mock"
)

func (suite *ServiceTestSuite) TestNotifyExpiringMemberships() {
	eng := suite.group("eng")
	oncall := suite.group("eng-oncall")
	alice := suite.user("alice")
	bob := suite.user("bob")
	carol := suite.user("carol")
	dave := suite.user("dave")
	erin := suite.user("erin")
	frank := suite.user("frank")

	soon := suite.now.Add(48 * time.Hour)
	later := suite.now.Add(30 * 24 * time.Hour)
	past := suite.now.Add(-time.Hour)
	tomorrow := suite.now.Add(24 * time.Hour)
	suite.joinUntil(eng, alice.Member(), domain.RoleMember, &soon)
	suite.join(eng, bob.Member(), domain.RoleMember)
	suite.joinUntil(eng, carol.Member(), domain.RoleMember, &later)
	suite.joinUntil(eng, frank.Member(), domain.RoleMember, &past)
	suite.joinUntil(eng, oncall.Member(), domain.RoleMember, &tomorrow)
	suite.join(oncall, dave.Member(), domain.RoleManager)
	suite.join(oncall, erin.Member(), domain.RoleMember)

	var sent []domain.Notification
	suite.notifier.EXPECT().Send(mock.Anything, mock.Anything).
		Run(func(_ context.Context, n domain.Notification) { sent = append(sent, n) }).
		Return(nil).Times(2)

	count, err := suite.svc.NotifyExpiringMemberships(suite.ctx, suite.now)
	suite.Require().NoError(err)
	suite.Equal(2, count)
	suite.Require().Len(sent, 2)
	suite.Equal([]string{"alice"}, sent[0].Recipients)
	suite.Equal("expiration_warning", sent[0].Template)
	suite.Equal("expiration warning for membership in group 'eng'", sent[0].Subject)
	suite.Equal(true, sent[0].Context["member_is_user"])
	suite.Equal([]string{"dave"}, sent[1].Recipients, "group members are warned through approvers")
	suite.Equal("eng-oncall", sent[1].Context["member_name"])

	count, err = suite.svc.NotifyExpiringMemberships(suite.ctx, suite.now.Add(time.Hour))
	suite.Require().NoError(err)
	suite.Zero(count, "warnings are sent once per expiration")
}

func (suite *ServiceTestSuite) TestNotifyExpiringMembershipsAfterExtension() {
	eng := suite.group("eng")
	alice := suite.user("alice")
	soon := suite.now.Add(24 * time.Hour)
	suite.joinUntil(eng, alice.Member(), domain.RoleMember, &soon)

	suite.notifier.EXPECT().Send(mock.Anything, mock.MatchedBy(func(n domain.Notification) bool {
		return len(n.Recipients) == 1 && n.Recipients[0] == "alice"
	})).Return(nil).Times(2)

	count, err := suite.svc.NotifyExpiringMemberships(suite.ctx, suite.now)
	suite.Require().NoError(err)
	suite.Equal(1, count)

	extended := suite.now.Add(72 * time.Hour)
	suite.joinUntil(eng, alice.Member(), domain.RoleMember, &extended)
	count, err = suite.svc.NotifyExpiringMemberships(suite.ctx, suite.now)
	suite.Require().NoError(err)
	suite.Equal(1, count, "a new expiration earns a new warning")
}

func (suite *ServiceTestSuite) TestNotifyExpiringGroupWithoutApprovers() {
	eng := suite.group("eng")
	oncall := suite.group("eng-oncall")
	erin := suite.user("erin")
	soon := suite.now.Add(24 * time.Hour)
	suite.joinUntil(eng, oncall.Member(), domain.RoleMember, &soon)
	suite.join(oncall, erin.Member(), domain.RoleMember)

	suite.notifier.EXPECT().Send(mock.Anything, mock.MatchedBy(func(n domain.Notification) bool {
		return len(n.Recipients) == 1 && n.Recipients[0] == "erin"
	})).Return(nil).Once()

	count, err := suite.svc.NotifyExpiringMemberships(suite.ctx, suite.now)
	suite.Require().NoError(err)
	suite.Equal(1, count)
}
