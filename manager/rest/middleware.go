package rest

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/groupgraph/api/manager/domain"
	"github.com/groupgraph/api/pkg/logger"
	"github.com/rs/xid"
)

// ActorHeader carries the username the fronting proxy authenticated.
const ActorHeader = "X-Groupgraph-User"

type actorKey struct{}

// GetAuthMiddleware resolves the acting user from ActorHeader. A non-empty
// permission must be held by the actor with any argument.
func (h *Handler) GetAuthMiddleware(permission string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			username := r.Header.Get(ActorHeader)
			if username == "" {
				h.ErrorResponse(ctx, w, http.StatusUnauthorized, "Missing "+ActorHeader+" header", nil)
				return
			}

			actor, err := h.Svc.GetUserByName(ctx, username)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					h.ErrorResponse(ctx, w, http.StatusUnauthorized, "Unknown user", err)
					return
				}
				h.HandleError(ctx, w, err)
				return
			}
			if !actor.Enabled {
				h.ErrorResponse(ctx, w, http.StatusForbidden, "User is disabled", nil)
				return
			}
			if permission != "" {
				ok, err := h.Svc.UserHasPermissionAnyArgument(ctx, actor.ID, permission, time.Now())
				if err != nil {
					h.HandleError(ctx, w, err)
					return
				}
				if !ok {
					h.ErrorResponse(ctx, w, http.StatusForbidden, "Missing permission "+permission, nil)
					return
				}
			}

			log := logger.Logger(ctx).With().Str("actor", actor.Username).Logger()
			ctx = context.WithValue(log.WithContext(ctx), actorKey{}, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetActorFromContext returns the user set by GetAuthMiddleware.
func (h *Handler) GetActorFromContext(ctx context.Context) (*domain.User, bool) {
	actor, ok := ctx.Value(actorKey{}).(*domain.User)
	return actor, ok
}

func LoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = xid.New().String()
		}
		start := time.Now()
		log := logger.Logger(ctx).With().
			Str("method", r.Method).Str("req_id", reqID).
			Str("url", r.URL.String()).Logger()

		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("panic", err).Msgf("Recovered from panic, stack trace: %s", string(debug.Stack()))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		ctx = log.WithContext(ctx)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-ID", reqID)
		responseWriter := NewResponseWriter(w)
		next.ServeHTTP(responseWriter, r)
		cost := time.Since(start)
		log = log.With().
			Int("cost_msec", int(cost.Milliseconds())).
			Logger()
		if responseWriter.statusCode >= 500 {
			log.Error().
				Int("status_code", responseWriter.statusCode).
				Str("response_body", responseWriter.responseBody.String()).
				Msg("Request completed with server error")
		} else if responseWriter.statusCode >= 400 {
			log.Warn().
				Int("status_code", responseWriter.statusCode).
				Str("response_body", responseWriter.responseBody.String()).
				Msg("Request completed with client error")
		} else {
			log.Info().
				Int("status_code", responseWriter.statusCode).
				Msg("Request completed successfully")
		}
	})
}

type responseWriter struct {
	http.ResponseWriter
	responseBody bytes.Buffer
	statusCode   int
}

func NewResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.responseBody.Write(b)
	return rw.ResponseWriter.Write(b)
}
