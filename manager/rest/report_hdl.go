package rest

import (
	"net/http"
	"time"

	"github.com/groupgraph/api/manager/domain"
)

type Grant struct {
	Permission string    `json:"permission"`
	Argument   string    `json:"argument"`
	Group      string    `json:"group"`
	GrantedOn  time.Time `json:"grantedOn"`
}

func convertGrants(grants []*domain.ResolvedGrant) []Grant {
	out := make([]Grant, 0, len(grants))
	for _, g := range grants {
		out = append(out, Grant{
			Permission: g.Permission,
			Argument:   g.Argument,
			Group:      g.GroupName,
			GrantedOn:  g.GrantedOn,
		})
	}
	return out
}

// ListUserPermissions reports a user's grants. direct=true limits the walk to
// the groups the user belongs to directly.
func (h *Handler) ListUserPermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.Svc.GetUserByName(ctx, h.GetPathParam(r, "username"))
	if err != nil {
		h.HandleError(ctx, w, err)
		return
	}

	now := time.Now()
	var grants []*domain.ResolvedGrant
	if r.URL.Query().Get("direct") == "true" {
		grants, err = h.Svc.DirectPermissions(ctx, user.ID, now)
	} else {
		grants, err = h.Svc.PermissionsForUser(ctx, user.ID, now)
	}
	if err != nil {
		h.HandleError(ctx, w, err)
		return
	}
	data := convertGrants(grants)
	h.JSONResponse(ctx, w, http.StatusOK, NewSuccessResponse(&data))
}

type GrantablePermission struct {
	Permission string `json:"permission"`
	Argument   string `json:"argument"`
}

func (h *Handler) ListUserGrantable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.Svc.GetUserByName(ctx, h.GetPathParam(r, "username"))
	if err != nil {
		h.HandleError(ctx, w, err)
		return
	}
	grantable, err := h.Svc.UserGrantablePermissions(ctx, user.ID, time.Now())
	if err != nil {
		h.HandleError(ctx, w, err)
		return
	}
	data := make([]GrantablePermission, 0, len(grantable))
	for _, g := range grantable {
		data = append(data, GrantablePermission{Permission: g.Permission.Name, Argument: g.Argument})
	}
	h.JSONResponse(ctx, w, http.StatusOK, NewSuccessResponse(&data))
}

func (h *Handler) ListPermissionGrants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	grants, err := h.Svc.PermissionGrantsForPermission(ctx, h.GetPathParam(r, "name"))
	if err != nil {
		h.HandleError(ctx, w, err)
		return
	}
	data := convertGrants(grants)
	h.JSONResponse(ctx, w, http.StatusOK, NewSuccessResponse(&data))
}

type Owner struct {
	Group    string `json:"group"`
	Argument string `json:"argument"`
}

func (h *Handler) ListOwners(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	permission := r.URL.Query().Get("permission")
	argument := r.URL.Query().Get("argument")
	if permission == "" {
		h.ErrorResponse(ctx, w, http.StatusBadRequest, "permission is required", nil)
		return
	}

	owners, err := h.Svc.OwnerArgList(ctx, permission, argument, nil, time.Now())
	if err != nil {
		h.HandleError(ctx, w, err)
		return
	}
	data := make([]Owner, 0, len(owners))
	for _, o := range owners {
		data = append(data, Owner{Group: o.Group.Name, Argument: o.Argument})
	}
	h.JSONResponse(ctx, w, http.StatusOK, NewSuccessResponse(&data))
}
