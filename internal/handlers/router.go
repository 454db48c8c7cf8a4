package handlers

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/job-tracker/internal/logger"
	"github.com/justsurfingit/job-tracker/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterOptions struct {
	AllowedOrigins []string
	// Limiter is nil when rate limiting is disabled.
	Limiter *middleware.LimiterManager
	Logger  *zap.Logger
}

// NewRouter mounts the API under /api/v1 and, for existing clients, at the
// root as well.
func NewRouter(h *JobHandler, engine EngineStatus, opts RouterOptions) *gin.Engine {
	log := logger.OrNop(opts.Logger)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.Metrics())

	config := cors.DefaultConfig()
	if len(opts.AllowedOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = opts.AllowedOrigins
		config.AllowCredentials = true
	}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(config))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	health := HealthCheck(engine)
	for _, g := range []*gin.RouterGroup{r.Group("/"), r.Group("/api/v1")} {
		g.GET("/health", health)

		limited := g.Group("", middleware.RateLimit(opts.Limiter, log))
		{
			limited.GET("/", Root)

			limited.GET("/jobs", h.ListJobs)
			limited.POST("/jobs", h.CreateJob)
			limited.GET("/jobs/stats", h.JobStats)
			limited.POST("/jobs/extract", h.ParseJob)
			limited.GET("/jobs/:id", h.GetJob)
			limited.PATCH("/jobs/:id", h.UpdateJob)
			limited.DELETE("/jobs/:id", h.DeleteJob)

			limited.POST("/match", h.Match)
			limited.POST("/resume/parse", h.ParseResume)
		}
	}
	return r
}
