package rest

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/groupgraph/api/manager/domain"
)

type MemberRequest struct {
	// Type is "user" or "group".
	Type       string     `json:"type"`
	Name       string     `json:"name"`
	Role       string     `json:"role,omitempty"`
	Expiration *time.Time `json:"expiration,omitempty"`
}

func (h *Handler) resolveMember(r *http.Request, req MemberRequest) (domain.Member, error) {
	ctx := r.Context()
	switch req.Type {
	case "", "user":
		user, err := h.Svc.GetUserByName(ctx, req.Name)
		if err != nil {
			return domain.Member{}, err
		}
		return user.Member(), nil
	case "group":
		group, err := h.Svc.GetGroupByName(ctx, req.Name)
		if err != nil {
			return domain.Member{}, err
		}
		return group.Member(), nil
	default:
		return domain.Member{}, fmt.Errorf("%w: unknown member type %q", domain.ErrInvariant, req.Type)
	}
}

func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req MemberRequest
	if err := h.JSONBind(r, &req); err != nil {
		h.ErrorResponse(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	actor, ok := h.GetActorFromContext(ctx)
	if !ok {
		h.ErrorResponse(ctx, w, http.StatusUnauthorized, "Unauthorized", errors.New("actor not found"))
		return
	}
	role := domain.RoleMember
	if req.Role != "" {
		parsed, err := domain.ParseGroupEdgeRole(req.Role)
		if err != nil {
			h.ErrorResponse(ctx, w, http.StatusBadRequest, "Invalid role", err)
			return
		}
		role = parsed
	}

	group, err := h.Svc.GetGroupByName(ctx, h.GetPathParam(r, "group"))
	if err != nil {
		h.HandleError(ctx, w, err)
		return
	}
	member, err := h.resolveMember(r, req)
	if err != nil {
		h.HandleError(ctx, w, err)
		return
	}
	err = h.Svc.AddMember(ctx, actor.ID, domain.AddMemberOptions{
		GroupID:    group.ID,
		Member:     member,
		Role:       role,
		Expiration: req.Expiration,
	})
	if err != nil {
		h.HandleError(ctx, w, err)
		return
	}
	h.JSONResponse(ctx, w, http.StatusOK, NewSuccessResponse[string](nil))
}

func (h *Handler) RevokeMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req MemberRequest
	if err := h.JSONBind(r, &req); err != nil {
		h.ErrorResponse(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	actor, ok := h.GetActorFromContext(ctx)
	if !ok {
		h.ErrorResponse(ctx, w, http.StatusUnauthorized, "Unauthorized", errors.New("actor not found"))
		return
	}

	group, err := h.Svc.GetGroupByName(ctx, h.GetPathParam(r, "group"))
	if err != nil {
		h.HandleError(ctx, w, err)
		return
	}
	member, err := h.resolveMember(r, req)
	if err != nil {
		h.HandleError(ctx, w, err)
		return
	}
	if err := h.Svc.RevokeMember(ctx, actor.ID, group.ID, member); err != nil {
		h.HandleError(ctx, w, err)
		return
	}
	h.JSONResponse(ctx, w, http.StatusOK, NewSuccessResponse[string](nil))
}

type GrantRequest struct {
	Permission string `json:"permission"`
	Argument   string `json:"argument"`
}

func (h *Handler) GrantPermission(w http.ResponseWriter, r *http.Request) {
	h.changeGrant(w, r, true)
}

func (h *Handler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	h.changeGrant(w, r, false)
}

func (h *Handler) changeGrant(w http.ResponseWriter, r *http.Request, grant bool) {
	ctx := r.Context()
	var req GrantRequest
	if err := h.JSONBind(r, &req); err != nil {
		h.ErrorResponse(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	actor, ok := h.GetActorFromContext(ctx)
	if !ok {
		h.ErrorResponse(ctx, w, http.StatusUnauthorized, "Unauthorized", errors.New("actor not found"))
		return
	}

	group, err := h.Svc.GetGroupByName(ctx, h.GetPathParam(r, "group"))
	if err != nil {
		h.HandleError(ctx, w, err)
		return
	}
	permission, err := h.Svc.GetPermissionByName(ctx, req.Permission)
	if err != nil {
		h.HandleError(ctx, w, err)
		return
	}
	if grant {
		err = h.Svc.GrantPermission(ctx, actor.ID, group.ID, permission.ID, req.Argument)
	} else {
		err = h.Svc.RevokePermission(ctx, actor.ID, group.ID, permission.ID, req.Argument)
	}
	if err != nil {
		h.HandleError(ctx, w, err)
		return
	}
	h.JSONResponse(ctx, w, http.StatusOK, NewSuccessResponse[string](nil))
}
