package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/groupgraph/api/manager/domain"
)

type PermissionRequest struct {
	ID          int64          `json:"id"`
	Requester   string         `json:"requester"`
	Group       string         `json:"group"`
	Permission  string         `json:"permission"`
	Argument    string         `json:"argument"`
	Status      string         `json:"status"`
	RequestedAt time.Time      `json:"requestedAt"`
	ChangedAt   time.Time      `json:"changedAt"`
	History     []StatusChange `json:"history,omitempty"`
}

type StatusChange struct {
	From      string    `json:"from,omitempty"`
	To        string    `json:"to"`
	ChangedBy string    `json:"changedBy"`
	ChangedAt time.Time `json:"changedAt"`
	Comment   string    `json:"comment,omitempty"`
}

func convertRequest(request *domain.PermissionRequest) *PermissionRequest {
	return &PermissionRequest{
		ID:          request.ID,
		Requester:   request.RequesterName,
		Group:       request.GroupName,
		Permission:  request.PermissionName,
		Argument:    request.Argument,
		Status:      string(request.Status),
		RequestedAt: request.RequestedAt,
		ChangedAt:   request.ChangedAt,
	}
}

func convertStatusChange(change *domain.PermissionRequestStatusChange, comment *domain.Comment) StatusChange {
	out := StatusChange{
		To:        string(change.ToStatus),
		ChangedBy: change.ChangedByName,
		ChangedAt: change.ChangeAt,
	}
	if change.FromStatus != nil {
		out.From = string(*change.FromStatus)
	}
	if comment != nil {
		out.Comment = comment.Comment
	}
	return out
}

type CreateRequestRequest struct {
	Group      string `json:"group"`
	Permission string `json:"permission"`
	Argument   string `json:"argument"`
	Reason     string `json:"reason"`
}

func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CreateRequestRequest
	err := h.JSONBind(r, &req)
	if err != nil {
		h.ErrorResponse(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	actor, ok := h.GetActorFromContext(ctx)
	if !ok {
		h.ErrorResponse(ctx, w, http.StatusUnauthorized, "Unauthorized", errors.New("actor not found"))
		return
	}

	group, err := h.Svc.GetGroupByName(ctx, req.Group)
	if err != nil {
		h.HandleError(ctx, w, err)
		return
	}
	permission, err := h.Svc.GetPermissionByName(ctx, req.Permission)
	if err != nil {
		h.HandleError(ctx, w, err)
		return
	}
	request, err := h.Svc.CreateRequest(ctx, domain.CreateRequestOptions{
		RequesterID:  actor.ID,
		GroupID:      group.ID,
		PermissionID: permission.ID,
		Argument:     req.Argument,
		Reason:       req.Reason,
		Now:          time.Now(),
	})
	if err != nil {
		h.HandleError(ctx, w, err)
		return
	}
	h.JSONResponse(ctx, w, http.StatusCreated, NewSuccessResponse(convertRequest(request)))
}

type ListRequestsResponse struct {
	Total    int                  `json:"total"`
	Requests []*PermissionRequest `json:"requests"`
}

// ListRequests pages through the requests the actor owns. Query parameters:
// status, limit, offset.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.GetActorFromContext(ctx)
	if !ok {
		h.ErrorResponse(ctx, w, http.StatusUnauthorized, "Unauthorized", errors.New("actor not found"))
		return
	}

	query := r.URL.Query()
	opt := &domain.ListRequestsOptions{OwnerID: actor.ID, Now: time.Now()}
	if s := query.Get("status"); s != "" {
		status, err := domain.ParseRequestStatus(s)
		if err != nil {
			h.ErrorResponse(ctx, w, http.StatusBadRequest, "Invalid status", err)
			return
		}
		opt.Status = &status
	}
	var err error
	if opt.Limit, err = intQuery(query.Get("limit"), 20); err != nil {
		h.ErrorResponse(ctx, w, http.StatusBadRequest, "Invalid limit", err)
		return
	}
	if opt.Offset, err = intQuery(query.Get("offset"), 0); err != nil {
		h.ErrorResponse(ctx, w, http.StatusBadRequest, "Invalid offset", err)
		return
	}

	if err := h.Svc.ListRequestsForOwner(ctx, opt); err != nil {
		h.HandleError(ctx, w, err)
		return
	}
	data := ListRequestsResponse{Total: opt.Result.Total, Requests: make([]*PermissionRequest, 0, len(opt.Result.Requests))}
	for _, request := range opt.Result.Requests {
		item := convertRequest(request)
		for _, change := range opt.Result.StatusChanges[request.ID] {
			item.History = append(item.History, convertStatusChange(change, opt.Result.Comments[change.ID]))
		}
		data.Requests = append(data.Requests, item)
	}
	h.JSONResponse(ctx, w, http.StatusOK, NewSuccessResponse(&data))
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := strconv.ParseInt(h.GetPathParam(r, "id"), 10, 64)
	if err != nil {
		h.ErrorResponse(ctx, w, http.StatusBadRequest, "Invalid request id", err)
		return
	}
	request, err := h.Svc.GetRequest(ctx, requestID)
	if err != nil {
		h.HandleError(ctx, w, err)
		return
	}
	h.JSONResponse(ctx, w, http.StatusOK, NewSuccessResponse(convertRequest(request)))
}

type UpdateRequestRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

func (h *Handler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := strconv.ParseInt(h.GetPathParam(r, "id"), 10, 64)
	if err != nil {
		h.ErrorResponse(ctx, w, http.StatusBadRequest, "Invalid request id", err)
		return
	}
	var req UpdateRequestRequest
	if err := h.JSONBind(r, &req); err != nil {
		h.ErrorResponse(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	status, err := domain.ParseRequestStatus(req.Status)
	if err != nil {
		h.ErrorResponse(ctx, w, http.StatusBadRequest, "Invalid status", err)
		return
	}
	actor, ok := h.GetActorFromContext(ctx)
	if !ok {
		h.ErrorResponse(ctx, w, http.StatusUnauthorized, "Unauthorized", errors.New("actor not found"))
		return
	}

	current, err := h.Svc.GetRequest(ctx, requestID)
	if err != nil {
		h.HandleError(ctx, w, err)
		return
	}
	allowed, err := h.canTransition(ctx, actor, current, status)
	if err != nil {
		h.HandleError(ctx, w, err)
		return
	}
	if !allowed {
		h.ErrorResponse(ctx, w, http.StatusForbidden, "Not an owner of the requested permission", nil)
		return
	}

	request, err := h.Svc.TransitionRequest(ctx, domain.TransitionRequestOptions{
		RequestID: requestID,
		ActorID:   actor.ID,
		NewStatus: status,
		Comment:   req.Comment,
		Now:       time.Now(),
	})
	if err != nil {
		h.HandleError(ctx, w, err)
		return
	}
	h.JSONResponse(ctx, w, http.StatusOK, NewSuccessResponse(convertRequest(request)))
}

// canTransition allows owners of the requested (permission, argument) and
// lets requesters cancel their own request.
func (h *Handler) canTransition(ctx context.Context, actor *domain.User, request *domain.PermissionRequest, status domain.RequestStatus) (bool, error) {
	if status == domain.RequestStatusCancelled && request.RequesterID == actor.ID {
		return true, nil
	}
	now := time.Now()
	owners, err := h.Svc.OwnerArgList(ctx, request.PermissionName, request.Argument, nil, now)
	if err != nil {
		return false, err
	}
	memberships, err := h.Svc.GroupsForPrincipal(ctx, actor.Member(), now)
	if err != nil {
		return false, err
	}
	for _, owner := range owners {
		for _, m := range memberships {
			if m.Group.ID == owner.Group.ID {
				return true, nil
			}
		}
	}
	return false, nil
}

func intQuery(value string, fallback int) (int, error) {
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}
