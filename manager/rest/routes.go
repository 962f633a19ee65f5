package rest

import (
	"context"
	"net/http"

	"github.com/groupgraph/api/manager/domain"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (h *Handler) SetupRoutes(engine *echo.Echo) {
	engine.GET("/health", h.echoHandler(h.HealthCheck))
	engine.GET("/version", h.echoHandler(h.Version))
	engine.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))

	api := engine.Group("/api", echo.WrapMiddleware(LoggerMiddleware))
	// v1 routes
	{
		apiV1 := api.Group("/v1")
		actor := echo.WrapMiddleware(h.GetAuthMiddleware(""))
		admin := echo.WrapMiddleware(h.GetAuthMiddleware(domain.PermissionAdmin))

		// report routes
		apiV1.GET("/users/:username/permissions", h.echoHandlerWithParams(h.ListUserPermissions), actor)
		apiV1.GET("/users/:username/grantable", h.echoHandlerWithParams(h.ListUserGrantable), actor)
		apiV1.GET("/permissions/:name/grants", h.echoHandlerWithParams(h.ListPermissionGrants), actor)
		apiV1.GET("/owners", h.echoHandler(h.ListOwners), actor)

		// permission request routes
		apiV1.POST("/requests", h.echoHandler(h.CreateRequest), actor)
		apiV1.GET("/requests", h.echoHandler(h.ListRequests), actor)
		apiV1.GET("/requests/:id", h.echoHandlerWithParams(h.GetRequest), actor)
		apiV1.PUT("/requests/:id", h.echoHandlerWithParams(h.UpdateRequest), actor)

		// graph administration routes
		apiV1.POST("/groups/:group/members", h.echoHandlerWithParams(h.AddMember), admin)
		apiV1.DELETE("/groups/:group/members", h.echoHandlerWithParams(h.RevokeMember), admin)
		apiV1.POST("/groups/:group/grants", h.echoHandlerWithParams(h.GrantPermission), admin)
		apiV1.DELETE("/groups/:group/grants", h.echoHandlerWithParams(h.RevokePermission), admin)
	}
}

func (h *Handler) echoHandler(handlerFunc func(w http.ResponseWriter, r *http.Request)) echo.HandlerFunc {
	return echo.WrapHandler(http.HandlerFunc(handlerFunc))
}

// echoHandlerWithParams wraps a handler function and injects path parameters into request context
func (h *Handler) echoHandlerWithParams(handlerFunc func(w http.ResponseWriter, r *http.Request)) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request()
		for _, name := range c.ParamNames() {
			r = r.WithContext(context.WithValue(r.Context(), pathParamKey(name), c.Param(name)))
		}
		handlerFunc(c.Response().Writer, r)
		return nil
	}
}

type pathParamKey string

// GetPathParam retrieves a path parameter from request context
func (h *Handler) GetPathParam(r *http.Request, name string) string {
	if val, ok := r.Context().Value(pathParamKey(name)).(string); ok {
		return val
	}
	return ""
}
