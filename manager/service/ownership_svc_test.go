package service

import (
	"context"
	"errors"
	"time"

	"github.com/groupgraph/api/config"
	"github.com/groupgraph/api/manager/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"
)

func (suite *ServiceTestSuite) TestOwnersFromGlobGrant() {
	grantPerm := suite.permission(domain.PermissionGrant, false)
	suite.permission("ssh-access", false)
	suite.permission("ssh-admin", false)
	suite.permission("db-access", false)
	eng := suite.group("eng")
	suite.grant(eng, grantPerm, "ssh-*/prod")

	owners, err := suite.svc.OwnersByArgumentByPermission(suite.ctx, suite.now)
	suite.Require().NoError(err)
	suite.Equal([]string{"eng"}, groupNames(owners["ssh-access"]["prod"]))
	suite.Equal([]string{"eng"}, groupNames(owners["ssh-admin"]["prod"]))
	suite.NotContains(owners, "db-access")
}

func (suite *ServiceTestSuite) TestAdminOwnsEverythingWithWildcard() {
	admin := suite.permission(domain.PermissionAdmin, false)
	suite.permission("ssh-access", false)
	suite.permission("legacy", false)
	suite.Require().NoError(suite.repo.CreatePermission(suite.ctx, &domain.Permission{Name: "off", Enabled: false}))
	admins := suite.group("admins")
	suite.grant(admins, admin, "*")

	owners, err := suite.svc.OwnersByArgumentByPermission(suite.ctx, suite.now)
	suite.Require().NoError(err)
	for _, name := range []string{domain.PermissionAdmin, "ssh-access", "legacy"} {
		suite.Equal([]string{"admins"}, groupNames(owners[name]["*"]), name)
	}
	suite.NotContains(owners, "off")
}

func (suite *ServiceTestSuite) TestDisabledOwnerGroupOwnsNothing() {
	grantPerm := suite.permission(domain.PermissionGrant, false)
	suite.permission("ssh-access", false)
	eng := suite.group("eng")
	suite.grant(eng, grantPerm, "ssh-access")
	suite.Require().NoError(suite.repo.SetGroupEnabled(suite.ctx, eng.ID, false))

	owners, err := suite.svc.OwnersByArgumentByPermission(suite.ctx, suite.now)
	suite.Require().NoError(err)
	suite.Empty(owners)
}

func (suite *ServiceTestSuite) TestOwnerArgListMatchesPatterns() {
	star := &domain.Group{ID: 1, Name: "star"}
	foo := &domain.Group{ID: 2, Name: "foo-owners"}
	bar := &domain.Group{ID: 3, Name: "bar-owners"}
	owners := domain.OwnersByArgByPerm{}
	owners.Add("p", "*", star)
	owners.Add("p", "foo", foo)
	owners.Add("p", "bar", bar)

	list, err := suite.svc.OwnerArgList(suite.ctx, "p", "foo", owners, suite.now)
	suite.Require().NoError(err)
	suite.Require().Len(list, 2)
	suite.Equal(&domain.OwnerArg{Group: star, Argument: "*"}, list[0])
	suite.Equal(&domain.OwnerArg{Group: foo, Argument: "foo"}, list[1])

	list, err = suite.svc.OwnerArgList(suite.ctx, "other", "foo", owners, suite.now)
	suite.Require().NoError(err)
	suite.Empty(list)
}

func (suite *ServiceTestSuite) TestOwnerArgListGlobPattern() {
	owners := domain.OwnersByArgByPerm{}
	web := &domain.Group{ID: 1, Name: "web"}
	owners.Add("ssh", "web-*", web)

	suite.Len(ownerArgList(owners, "ssh", "web-01"), 1)
	suite.Len(ownerArgList(owners, "ssh", "web/01"), 0)
	suite.Len(ownerArgList(owners, "ssh", "db-01"), 0)
}

func (suite *ServiceTestSuite) TestOwnershipCacheFollowsUpdates() {
	svc := suite.newService(Params{OwnershipConfig: config.OwnershipConfig{CacheEnabled: true, CacheTTLSec: 60}})
	grantPerm := suite.permission(domain.PermissionGrant, false)
	suite.permission("ssh-access", false)
	eng := suite.group("eng")
	suite.grant(eng, grantPerm, "ssh-access/prod")

	owners, err := svc.OwnersByArgumentByPermission(suite.ctx, suite.now)
	suite.Require().NoError(err)
	suite.Contains(owners["ssh-access"], "prod")
	owners["ssh-access"]["mutated"] = nil

	owners, err = svc.OwnersByArgumentByPermission(suite.ctx, suite.now)
	suite.Require().NoError(err)
	suite.NotContains(owners["ssh-access"], "mutated")
	suite.Equal(1.0, testutil.ToFloat64(svc.metricCollector.ownershipCache.WithLabelValues("miss")))
	suite.Equal(1.0, testutil.ToFloat64(svc.metricCollector.ownershipCache.WithLabelValues("hit")))

	ops := suite.group("ops")
	suite.grant(ops, grantPerm, "ssh-access/dev")
	owners, err = svc.OwnersByArgumentByPermission(suite.ctx, suite.now)
	suite.Require().NoError(err)
	suite.Equal([]string{"ops"}, groupNames(owners["ssh-access"]["dev"]))
	suite.Equal(2.0, testutil.ToFloat64(svc.metricCollector.ownershipCache.WithLabelValues("miss")))
}

func (suite *ServiceTestSuite) TestOwnershipPluginsMergeAndIsolate() {
	suite.permission("ssh-access", false)
	extra := &domain.Group{ID: 77, Name: "plugin-owners"}

	good := domain.NewMockOwnershipPlugin(suite.T())
	good.EXPECT().Name().Return("good").Maybe()
	good.EXPECT().OwnersByArgByPerm(mock.Anything, mock.Anything, suite.now).
		Return(domain.OwnersByArgByPerm{"ssh-access": {"prod": {extra}}}, nil)

	broken := domain.NewMockOwnershipPlugin(suite.T())
	broken.EXPECT().Name().Return("broken").Maybe()
	broken.EXPECT().OwnersByArgByPerm(mock.Anything, mock.Anything, suite.now).
		Return(nil, errors.New("backend down"))

	panicking := domain.NewMockOwnershipPlugin(suite.T())
	panicking.EXPECT().Name().Return("panicking").Maybe()
	panicking.EXPECT().OwnersByArgByPerm(mock.Anything, mock.Anything, suite.now).
		RunAndReturn(func(context.Context, domain.Repository, time.Time) (domain.OwnersByArgByPerm, error) {
			panic("boom")
		})

	svc := suite.newService(Params{OwnershipPlugins: []domain.OwnershipPlugin{good, broken, panicking}})
	owners, err := svc.OwnersByArgumentByPermission(suite.ctx, suite.now)
	suite.Require().NoError(err)
	suite.Equal([]string{"plugin-owners"}, groupNames(owners["ssh-access"]["prod"]))
	suite.Equal(1.0, testutil.ToFloat64(svc.metricCollector.pluginFailures.WithLabelValues("broken")))
	suite.Equal(1.0, testutil.ToFloat64(svc.metricCollector.pluginFailures.WithLabelValues("panicking")))
}

func (suite *ServiceTestSuite) TestOwnershipPluginRejectionAborts() {
	rejecting := domain.NewMockOwnershipPlugin(suite.T())
	rejecting.EXPECT().Name().Return("strict").Maybe()
	rejecting.EXPECT().OwnersByArgByPerm(mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &domain.PluginRejection{Plugin: "strict", Reason: "maintenance"})

	svc := suite.newService(Params{OwnershipPlugins: []domain.OwnershipPlugin{rejecting}})
	_, err := svc.OwnersByArgumentByPermission(suite.ctx, suite.now)
	var rejection *domain.PluginRejection
	suite.Require().ErrorAs(err, &rejection)
	suite.Equal("maintenance", rejection.Reason)
}
