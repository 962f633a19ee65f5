package service

import (
	"context"
	"sync"
	"time"

	"github.com/groupgraph/api/manager/domain"
	"github.com/groupgraph/api/manager/errs"
	"github.com/groupgraph/api/pkg/util"
	"github.com/stretchr/testify/mock"
)

// requestFixture is a requester in group eng, permission ssh-access owned
// for "prod" by sec (member bob) and for everything by admins (member root).
type requestFixture struct {
	alice      *domain.User
	bob        *domain.User
	root       *domain.User
	eng        *domain.Group
	sec        *domain.Group
	admins     *domain.Group
	permission *domain.Permission
}

func (suite *ServiceTestSuite) requestFixture(audited bool) *requestFixture {
	f := &requestFixture{
		alice:  suite.user("alice"),
		bob:    suite.user("bob"),
		root:   suite.user("root"),
		eng:    suite.group("eng"),
		sec:    suite.group("sec"),
		admins: suite.group("admins"),
	}
	grantPerm := suite.permission(domain.PermissionGrant, false)
	admin := suite.permission(domain.PermissionAdmin, false)
	f.permission = suite.permission("ssh-access", audited)
	suite.grant(f.sec, grantPerm, "ssh-access/prod")
	suite.grant(f.admins, admin, "*")
	suite.join(f.eng, f.alice.Member(), domain.RoleMember)
	suite.join(f.sec, f.bob.Member(), domain.RoleMember)
	suite.join(f.admins, f.root.Member(), domain.RoleMember)
	return f
}

func (suite *ServiceTestSuite) createRequest(f *requestFixture, argument string, at time.Time) *domain.PermissionRequest {
	request, err := suite.svc.CreateRequest(suite.ctx, domain.CreateRequestOptions{
		RequesterID:  f.alice.ID,
		GroupID:      f.eng.ID,
		PermissionID: f.permission.ID,
		Argument:     argument,
		Reason:       "on call",
		Now:          at,
	})
	suite.Require().NoError(err)
	return request
}

func (suite *ServiceTestSuite) TestCreateRequestNotifiesSpecificOwners() {
	f := suite.requestFixture(false)
	var sent domain.Notification
	suite.notifier.EXPECT().Send(mock.Anything, mock.Anything).
		Run(func(_ context.Context, n domain.Notification) { sent = n }).
		Return(nil).Once()

	request := suite.createRequest(f, "prod", suite.now)
	suite.NotZero(request.ID)
	suite.Equal(domain.RequestStatusPending, request.Status)
	suite.Equal([]string{"bob"}, sent.Recipients)
	suite.Equal("Request for permission: ssh-access", sent.Subject)
	suite.Equal("pending_permission_request", sent.Template)
	suite.Equal("alice", sent.Context["user_name"])
	suite.Equal(request.ID, sent.Context["request_id"])
}

func (suite *ServiceTestSuite) TestCreateRequestFallsBackToWildcardOwners() {
	f := suite.requestFixture(false)
	suite.notifier.EXPECT().Send(mock.Anything, mock.MatchedBy(func(n domain.Notification) bool {
		return len(n.Recipients) == 1 && n.Recipients[0] == "root"
	})).Return(nil).Once()

	suite.createRequest(f, "staging", suite.now)
}

func (suite *ServiceTestSuite) TestCreateThenGetRoundTrip() {
	f := suite.requestFixture(false)
	suite.notifier.EXPECT().Send(mock.Anything, mock.Anything).Return(nil).Maybe()

	created := suite.createRequest(f, "prod", suite.now)
	fetched, err := suite.svc.GetRequest(suite.ctx, created.ID)
	suite.Require().NoError(err)
	suite.Equal(created.RequesterID, fetched.RequesterID)
	suite.Equal(created.GroupID, fetched.GroupID)
	suite.Equal(created.PermissionID, fetched.PermissionID)
	suite.Equal(created.Argument, fetched.Argument)
	suite.Equal(created.Status, fetched.Status)
	suite.Equal("alice", fetched.RequesterName)
	suite.Equal("eng", fetched.GroupName)
	suite.Equal("ssh-access", fetched.PermissionName)
	suite.True(created.RequestedAt.Equal(fetched.RequestedAt))

	changes := &domain.QueryStatusChangeOptions{RequestIDs: []int64{created.ID}}
	suite.Require().NoError(suite.repo.QueryStatusChanges(suite.ctx, changes))
	suite.Require().Len(changes.Result, 1)
	suite.Nil(changes.Result[0].FromStatus)
	suite.Equal(domain.RequestStatusPending, changes.Result[0].ToStatus)

	comments := &domain.QueryCommentOptions{Targets: []domain.CommentTarget{changes.Result[0].CommentTarget()}}
	suite.Require().NoError(suite.repo.QueryComments(suite.ctx, comments))
	suite.Require().Len(comments.Result, 1)
	suite.Equal("on call", comments.Result[0].Comment)
}

func (suite *ServiceTestSuite) TestCreateRequestAlreadyGranted() {
	f := suite.requestFixture(false)
	suite.grant(f.eng, f.permission, "prod")

	_, err := suite.svc.CreateRequest(suite.ctx, domain.CreateRequestOptions{
		RequesterID:  f.alice.ID,
		GroupID:      f.eng.ID,
		PermissionID: f.permission.ID,
		Argument:     "prod",
		Now:          suite.now,
	})
	suite.Require().ErrorIs(err, domain.ErrRequestAlreadyGranted)
	_, ok := errs.IsPolicyError(err)
	suite.True(ok)

	opt := &domain.QueryPermissionRequestOptions{GroupIDs: []int64{f.eng.ID}}
	suite.Require().NoError(suite.repo.QueryPermissionRequests(suite.ctx, opt))
	suite.Empty(opt.Result)
}

func (suite *ServiceTestSuite) TestCreateRequestAlreadyExists() {
	f := suite.requestFixture(false)
	suite.notifier.EXPECT().Send(mock.Anything, mock.Anything).Return(nil).Once()
	suite.createRequest(f, "prod", suite.now)

	_, err := suite.svc.CreateRequest(suite.ctx, domain.CreateRequestOptions{
		RequesterID:  f.alice.ID,
		GroupID:      f.eng.ID,
		PermissionID: f.permission.ID,
		Argument:     "prod",
		Now:          suite.now.Add(time.Minute),
	})
	suite.Require().ErrorIs(err, domain.ErrRequestAlreadyExists)
}

func (suite *ServiceTestSuite) TestCreateRequestNoOwners() {
	alice := suite.user("alice")
	eng := suite.group("eng")
	orphan := suite.permission("orphan", false)

	_, err := suite.svc.CreateRequest(suite.ctx, domain.CreateRequestOptions{
		RequesterID:  alice.ID,
		GroupID:      eng.ID,
		PermissionID: orphan.ID,
		Argument:     "*",
		Now:          suite.now,
	})
	suite.Require().ErrorIs(err, domain.ErrNoOwnersAvailable)
}

func (suite *ServiceTestSuite) TestActionRequestGrants() {
	f := suite.requestFixture(false)
	suite.notifier.EXPECT().Send(mock.Anything, mock.MatchedBy(func(n domain.Notification) bool {
		return n.Template == "pending_permission_request"
	})).Return(nil).Once()
	suite.notifier.EXPECT().Send(mock.Anything, mock.MatchedBy(func(n domain.Notification) bool {
		return n.Template == "permission_request_actioned" &&
			n.Subject == "Request for Permission Actioned" &&
			len(n.Recipients) == 1 && n.Recipients[0] == "alice" &&
			n.Context["action_taken_by"] == "bob"
	})).Return(nil).Once()

	request := suite.createRequest(f, "prod", suite.now)
	updated, err := suite.svc.TransitionRequest(suite.ctx, domain.TransitionRequestOptions{
		RequestID: request.ID,
		ActorID:   f.bob.ID,
		NewStatus: domain.RequestStatusActioned,
		Comment:   "approved",
		Now:       suite.now.Add(time.Minute),
	})
	suite.Require().NoError(err)
	suite.Equal(domain.RequestStatusActioned, updated.Status)

	ok, err := suite.svc.HasPermission(suite.ctx, f.alice.ID, "ssh-access", util.Ptr("prod"), suite.now)
	suite.Require().NoError(err)
	suite.True(ok)

	list := &domain.ListRequestsOptions{OwnerID: f.bob.ID, Status: util.Ptr(domain.RequestStatusActioned), Now: suite.now}
	suite.Require().NoError(suite.svc.ListRequestsForOwner(suite.ctx, list))
	suite.Require().Len(list.Result.Requests, 1)
	changes := list.Result.StatusChanges[request.ID]
	suite.Require().Len(changes, 2)
	suite.Equal(domain.RequestStatusPending, *changes[1].FromStatus)
	suite.Equal(domain.RequestStatusActioned, changes[1].ToStatus)
	suite.Equal("approved", list.Result.Comments[changes[1].ID].Comment)
	suite.Equal("on call", list.Result.Comments[changes[0].ID].Comment)
}

func (suite *ServiceTestSuite) TestCancelRequestAndTerminalState() {
	f := suite.requestFixture(false)
	suite.notifier.EXPECT().Send(mock.Anything, mock.MatchedBy(func(n domain.Notification) bool {
		return n.Template == "pending_permission_request"
	})).Return(nil).Once()
	suite.notifier.EXPECT().Send(mock.Anything, mock.MatchedBy(func(n domain.Notification) bool {
		return n.Template == "permission_request_cancelled" && n.Subject == "Request for Permission Cancelled"
	})).Return(nil).Once()

	request := suite.createRequest(f, "prod", suite.now)
	_, err := suite.svc.TransitionRequest(suite.ctx, domain.TransitionRequestOptions{
		RequestID: request.ID,
		ActorID:   f.bob.ID,
		NewStatus: domain.RequestStatusCancelled,
		Comment:   "not needed",
		Now:       suite.now,
	})
	suite.Require().NoError(err)

	unchanged, err := suite.svc.TransitionRequest(suite.ctx, domain.TransitionRequestOptions{
		RequestID: request.ID,
		ActorID:   f.bob.ID,
		NewStatus: domain.RequestStatusCancelled,
		Now:       suite.now,
	})
	suite.Require().NoError(err)
	suite.Equal(domain.RequestStatusCancelled, unchanged.Status)

	_, err = suite.svc.TransitionRequest(suite.ctx, domain.TransitionRequestOptions{
		RequestID: request.ID,
		ActorID:   f.bob.ID,
		NewStatus: domain.RequestStatusActioned,
		Now:       suite.now,
	})
	suite.Require().ErrorIs(err, domain.ErrInvalidTransition)

	ok, err := suite.svc.HasPermission(suite.ctx, f.alice.ID, "ssh-access", nil, suite.now)
	suite.Require().NoError(err)
	suite.False(ok)
}

func (suite *ServiceTestSuite) TestActionAuditedWithoutAuditorsStaysPending() {
	f := suite.requestFixture(true)
	carol := suite.user("carol")
	suite.join(f.eng, carol.Member(), domain.RoleOwner)
	suite.notifier.EXPECT().Send(mock.Anything, mock.Anything).Return(nil).Once()

	request := suite.createRequest(f, "prod", suite.now)
	_, err := suite.svc.TransitionRequest(suite.ctx, domain.TransitionRequestOptions{
		RequestID: request.ID,
		ActorID:   f.bob.ID,
		NewStatus: domain.RequestStatusActioned,
		Comment:   "approved",
		Now:       suite.now,
	})
	suite.Require().ErrorIs(err, domain.ErrUserNotAuditor)
	suite.Contains(err.Error(), "carol")

	fetched, err := suite.svc.GetRequest(suite.ctx, request.ID)
	suite.Require().NoError(err)
	suite.Equal(domain.RequestStatusPending, fetched.Status)

	grants := &domain.QueryPermissionMapOptions{GroupIDs: []int64{f.eng.ID}}
	suite.Require().NoError(suite.repo.QueryPermissionMaps(suite.ctx, grants))
	suite.Empty(grants.Result)

	changes := &domain.QueryStatusChangeOptions{RequestIDs: []int64{request.ID}}
	suite.Require().NoError(suite.repo.QueryStatusChanges(suite.ctx, changes))
	suite.Len(changes.Result, 1)
}

func (suite *ServiceTestSuite) TestActionAuditedWithAuditorOwner() {
	f := suite.requestFixture(true)
	auditorPerm := suite.permission(domain.PermissionAuditor, false)
	auditors := suite.group("auditors")
	suite.grant(auditors, auditorPerm, "*")
	carol := suite.user("carol")
	suite.join(auditors, carol.Member(), domain.RoleMember)
	suite.join(f.eng, carol.Member(), domain.RoleOwner)
	suite.notifier.EXPECT().Send(mock.Anything, mock.Anything).Return(nil).Twice()

	request := suite.createRequest(f, "prod", suite.now)
	updated, err := suite.svc.TransitionRequest(suite.ctx, domain.TransitionRequestOptions{
		RequestID: request.ID,
		ActorID:   f.bob.ID,
		NewStatus: domain.RequestStatusActioned,
		Now:       suite.now,
	})
	suite.Require().NoError(err)
	suite.Equal(domain.RequestStatusActioned, updated.Status)
}

func (suite *ServiceTestSuite) TestListRequestsForOwnerPages() {
	f := suite.requestFixture(false)
	suite.notifier.EXPECT().Send(mock.Anything, mock.Anything).Return(nil).Times(3)
	first := suite.createRequest(f, "prod-a", suite.now)
	second := suite.createRequest(f, "prod-b", suite.now.Add(time.Minute))
	third := suite.createRequest(f, "prod-c", suite.now.Add(2*time.Minute))

	list := &domain.ListRequestsOptions{OwnerID: f.root.ID, Limit: 2, Offset: 1, Now: suite.now}
	suite.Require().NoError(suite.svc.ListRequestsForOwner(suite.ctx, list))
	suite.Equal(3, list.Result.Total)
	suite.Require().Len(list.Result.Requests, 2)
	suite.Equal(second.ID, list.Result.Requests[0].ID)
	suite.Equal(first.ID, list.Result.Requests[1].ID)

	list = &domain.ListRequestsOptions{OwnerID: f.root.ID, Limit: 1, Now: suite.now}
	suite.Require().NoError(suite.svc.ListRequestsForOwner(suite.ctx, list))
	suite.Require().Len(list.Result.Requests, 1)
	suite.Equal(third.ID, list.Result.Requests[0].ID)

	list = &domain.ListRequestsOptions{OwnerID: f.root.ID, Offset: 5, Now: suite.now}
	suite.Require().NoError(suite.svc.ListRequestsForOwner(suite.ctx, list))
	suite.Equal(3, list.Result.Total)
	suite.Empty(list.Result.Requests)

	// bob owns "prod" only, none of these match it.
	list = &domain.ListRequestsOptions{OwnerID: f.bob.ID, Now: suite.now}
	suite.Require().NoError(suite.svc.ListRequestsForOwner(suite.ctx, list))
	suite.Zero(list.Result.Total)

	list = &domain.ListRequestsOptions{OwnerID: f.alice.ID, Now: suite.now}
	suite.Require().NoError(suite.svc.ListRequestsForOwner(suite.ctx, list))
	suite.Zero(list.Result.Total)
}

func (suite *ServiceTestSuite) TestGetRequestInvalidID() {
	_, err := suite.svc.GetRequest(suite.ctx, 404)
	suite.Require().ErrorIs(err, domain.ErrInvalidRequestID)
}

func (suite *ServiceTestSuite) TestPendingRequestsForGroup() {
	f := suite.requestFixture(false)
	suite.notifier.EXPECT().Send(mock.Anything, mock.Anything).Return(nil).Times(3)
	suite.createRequest(f, "prod", suite.now)
	cancelled := suite.createRequest(f, "staging", suite.now)
	_, err := suite.svc.TransitionRequest(suite.ctx, domain.TransitionRequestOptions{
		RequestID: cancelled.ID,
		ActorID:   f.root.ID,
		NewStatus: domain.RequestStatusCancelled,
		Now:       suite.now,
	})
	suite.Require().NoError(err)

	pending, err := suite.svc.PendingRequestsForGroup(suite.ctx, f.eng.ID)
	suite.Require().NoError(err)
	suite.Require().Len(pending, 1)
	suite.Equal("prod", pending[0].Argument)
}

// slowTxRepository delays every transaction so concurrent callers have all
// passed their pre-checks before either one writes.
type slowTxRepository struct {
	domain.Repository
	delay time.Duration
}

func (r *slowTxRepository) WithTx(ctx context.Context, fn func(ctx context.Context, repo domain.Repository) error) error {
	time.Sleep(r.delay)
	return r.Repository.WithTx(ctx, fn)
}

func (suite *ServiceTestSuite) TestConcurrentTransitionsApplyOnce() {
	f := suite.requestFixture(false)
	suite.notifier.EXPECT().Send(mock.Anything, mock.MatchedBy(func(n domain.Notification) bool {
		return n.Template == "pending_permission_request"
	})).Return(nil).Once()
	suite.notifier.EXPECT().Send(mock.Anything, mock.MatchedBy(func(n domain.Notification) bool {
		return n.Template == "permission_request_actioned" || n.Template == "permission_request_cancelled"
	})).Return(nil).Once()

	request := suite.createRequest(f, "prod", suite.now)
	svc := suite.newService(Params{Repo: &slowTxRepository{Repository: suite.repo, delay: 50 * time.Millisecond}})

	statuses := []domain.RequestStatus{domain.RequestStatusActioned, domain.RequestStatusCancelled}
	results := make([]error, len(statuses))
	var wg sync.WaitGroup
	for i, status := range statuses {
		wg.Add(1)
		go func(i int, status domain.RequestStatus) {
			defer wg.Done()
			_, results[i] = svc.TransitionRequest(suite.ctx, domain.TransitionRequestOptions{
				RequestID: request.ID,
				ActorID:   f.bob.ID,
				NewStatus: status,
				Now:       suite.now.Add(time.Minute),
			})
		}(i, status)
	}
	wg.Wait()

	var winner domain.RequestStatus
	failures := 0
	for i, err := range results {
		if err == nil {
			winner = statuses[i]
			continue
		}
		failures++
		suite.ErrorIs(err, domain.ErrInvalidTransition)
		_, isPolicy := errs.IsPolicyError(err)
		suite.True(isPolicy)
	}
	suite.Require().Equal(1, failures, "exactly one transition applies")

	stored, err := suite.svc.GetRequest(suite.ctx, request.ID)
	suite.Require().NoError(err)
	suite.Equal(winner, stored.Status)

	changes := &domain.QueryStatusChangeOptions{RequestIDs: []int64{request.ID}}
	suite.Require().NoError(suite.repo.QueryStatusChanges(suite.ctx, changes))
	suite.Len(changes.Result, 2)

	grants := &domain.QueryPermissionMapOptions{GroupIDs: []int64{f.eng.ID}, PermissionIDs: []int64{f.permission.ID}}
	suite.Require().NoError(suite.repo.QueryPermissionMaps(suite.ctx, grants))
	if winner == domain.RequestStatusActioned {
		suite.Len(grants.Result, 1)
	} else {
		suite.Empty(grants.Result)
	}
}
