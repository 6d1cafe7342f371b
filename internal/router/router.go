package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/notes-backend/internal/handler"
	"github.com/iliyamo/notes-backend/internal/metrics"
	"github.com/iliyamo/notes-backend/internal/middleware"
	"github.com/iliyamo/notes-backend/internal/service"
)

// Deps collects everything the HTTP surface needs. Metrics may be nil, in
// which case /metrics is not exposed.
type Deps struct {
	Auth     *handler.AuthHandler
	Notes    *handler.NotesHandler
	Accounts *service.AccountService
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

// New builds the echo instance: validator, error rendering, the global
// middleware chain and every route.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.HTTPErrorHandler(d.Log)

	// Order matters: the request id must exist before anything logs, and
	// recover sits innermost so a panic still produces a logged 500.
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	if d.Metrics != nil {
		e.Use(middleware.Metrics(d.Metrics))
	}
	e.Use(echomw.Recover())

	RegisterRoutes(e, d.Metrics)
	RegisterAuth(e, d.Auth, d.Accounts, d.Log)
	RegisterNotes(e, d.Notes, d.Accounts, d.Log)
	return e
}

// Protected is the middleware chain of every authenticated route:
// resolve the bearer token, then require an active account.
func Protected(accounts *service.AccountService, log *zap.Logger) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		middleware.JWTAuth(accounts, log),
		middleware.RequireActive(accounts, log),
	}
}

// RegisterRoutes registers routes that do not require authentication:
// the health check and, when enabled, the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, m *metrics.Metrics) {
	e.GET("/healthz", handler.Health)
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
}

// RegisterAuth registers login and registration under /auth and the
// protected current-user endpoint.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, accounts *service.AccountService, log *zap.Logger) {
	g := e.Group("/auth")
	g.POST("/token", a.Token)
	g.POST("/register", a.Register)

	e.GET("/users/me", a.Me, Protected(accounts, log)...)
}

// RegisterNotes registers the note CRUD routes. All of them are protected.
func RegisterNotes(e *echo.Echo, n *handler.NotesHandler, accounts *service.AccountService, log *zap.Logger) {
	g := e.Group("/notes", Protected(accounts, log)...)
	g.POST("", n.Create)
	g.GET("", n.List)
	g.GET("/:id", n.Get)
	g.PUT("/:id", n.Update)
	g.DELETE("/:id", n.Delete)
}
