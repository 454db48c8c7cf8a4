package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type EngineStatus interface {
	Mode() string
	BreakerState() string
}

func Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Job Tracker API is running!"})
}

// HealthCheck reports liveness and which scoring path is active.
func HealthCheck(engine EngineStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"status": "healthy", "service": "Job Tracker API"}
		if engine != nil {
			body["match_mode"] = engine.Mode()
			body["breaker"] = engine.BreakerState()
		}
		c.JSON(http.StatusOK, body)
	}
}
