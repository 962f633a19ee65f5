package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/groupgraph/api/manager/domain"
	"github.com/groupgraph/api/manager/errs"
	"github.com/groupgraph/api/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
}

// SuccessResponse represents the success response structure
type SuccessResponse[T any] struct {
	Success   bool   `json:"success"`
	Data      *T     `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
}

func NewSuccessResponse[T any](data *T) SuccessResponse[T] {
	return SuccessResponse[T]{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

type Params struct {
	fx.In
	Svc      domain.Service
	Gatherer prometheus.Gatherer `optional:"true"`
}

func NewHandler(params Params) (*Handler, error) {
	gatherer := params.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{
		Svc:      params.Svc,
		gatherer: gatherer,
	}, nil
}

type Handler struct {
	Svc      domain.Service
	gatherer prometheus.Gatherer
}

func (h *Handler) JSONResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		logger.Logger(ctx).Error().Err(err).Msg("Failed to encode JSON response")
		http.Error(w, "Failed to encode JSON response", http.StatusInternalServerError)
	}
}

func (h *Handler) JSONBind(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	err := decoder.Decode(dst)
	if err != nil {
		return err
	}
	return nil
}

func (h *Handler) ErrorResponse(ctx context.Context, w http.ResponseWriter, status int, errMsg string, err error) {
	if err != nil {
		logger.Logger(ctx).Warn().Err(err).Int("status", status).Msg(errMsg)
	}
	resp := ErrorResponse{
		Success: false,
		Error:   errMsg,
	}
	h.JSONResponse(ctx, w, status, resp)
}

// HandleError maps service errors to a status code. Policy refusals carry
// their kind so clients can tell them apart.
func (h *Handler) HandleError(ctx context.Context, w http.ResponseWriter, err error) {
	if policyErr, ok := errs.IsPolicyError(err); ok {
		status := http.StatusConflict
		switch {
		case errors.Is(policyErr, domain.ErrInvalidRequestID):
			status = http.StatusNotFound
		case errors.Is(policyErr, domain.ErrUserNotAuditor):
			status = http.StatusForbidden
		case errors.Is(policyErr, domain.ErrNoOwnersAvailable):
			status = http.StatusUnprocessableEntity
		}
		h.JSONResponse(ctx, w, status, ErrorResponse{Error: policyErr.Error(), Kind: policyErr.Kind.Error()})
		return
	}

	var rejection *domain.PluginRejection
	switch {
	case errors.As(err, &rejection):
		h.ErrorResponse(ctx, w, http.StatusForbidden, rejection.Error(), err)
	case errors.Is(err, domain.ErrNotFound):
		h.ErrorResponse(ctx, w, http.StatusNotFound, err.Error(), err)
	case errors.Is(err, domain.ErrConflict):
		h.ErrorResponse(ctx, w, http.StatusConflict, err.Error(), err)
	case errors.Is(err, domain.ErrInvariant):
		h.ErrorResponse(ctx, w, http.StatusBadRequest, err.Error(), err)
	default:
		logger.Logger(ctx).Error().Err(err).Msg("request failed")
		h.ErrorResponse(ctx, w, http.StatusInternalServerError, "Internal Server Error", nil)
	}
}

func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"message":   "Group Graph API Server",
		"version":   "1.0.0",
		"endpoints": "/api/v1/requests (GET, POST), /api/v1/requests/:id (GET, PUT), /api/v1/users/:username/permissions (GET), /api/v1/owners (GET), /metrics (GET), /health (GET)",
	}
	h.JSONResponse(r.Context(), w, http.StatusOK, response)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "Group Graph API Server",
	}
	h.JSONResponse(r.Context(), w, http.StatusOK, response)
}
