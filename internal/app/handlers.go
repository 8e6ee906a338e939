package app

import (
	"net/http"
	"time"

	"healthtrack/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

func (a *App) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"message":   "Health API Server Running",
		"version":   Version,
		"uptime":    time.Since(a.started).Seconds(),
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (a *App) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Health API Server Running",
		"version": Version,
		"documentation": gin.H{
			"auth":   "/api/auth",
			"health": "/api/health",
		},
	})
}

func notFound(c *gin.Context) {
	response.Error(c, http.StatusNotFound, response.CodeNotFound, "Resource not found")
}
