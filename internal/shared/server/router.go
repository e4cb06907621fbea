package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-tailor/internal/auth"
	"resume-tailor/internal/jobs"
	"resume-tailor/internal/searchcache"
	"resume-tailor/internal/shared/config"
	"resume-tailor/internal/shared/metrics"
	"resume-tailor/internal/shared/server/middleware"
	"resume-tailor/internal/shared/server/respond"
	"resume-tailor/internal/templates"
	"resume-tailor/internal/uploads"
	"resume-tailor/internal/users"
)

// RouterDeps carries the handlers the router wires up. Nil handlers are
// skipped so tests can build partial routers.
type RouterDeps struct {
	Config           config.Config
	GoogleAuth       *auth.GoogleService
	JobsHandler      *jobs.Handler
	TemplatesHandler *templates.Handler
	SearchHandler    *searchcache.Handler
	UsersHandler     *users.Handler
	UploadsHandler   *uploads.Handler
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.Use(
		middleware.Auth(deps.Config.Env),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"DEFAULT": {Rate: 10, Burst: 30},
				"CREATE":  {Rate: 0.5, Burst: 5},
			},
			GroupFor: func(c *gin.Context) string {
				if c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/jobs" {
					return "CREATE"
				}
				return ""
			},
		}),
	)

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.UsersHandler != nil {
		deps.UsersHandler.RegisterRoutes(api)
	}
	if deps.JobsHandler != nil {
		deps.JobsHandler.RegisterRoutes(api)
	}
	if deps.TemplatesHandler != nil {
		deps.TemplatesHandler.RegisterRoutes(api)
	}
	if deps.SearchHandler != nil {
		deps.SearchHandler.RegisterRoutes(api)
	}
	if deps.UploadsHandler != nil {
		deps.UploadsHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
