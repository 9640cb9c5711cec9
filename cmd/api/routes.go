package main

import (
	"database/sql"
	"net/http"
	"time"

	"dating-platform/internal/httpapi"
	"dating-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type routeDeps struct {
	handlers    httpapi.Handlers
	authMW      gin.HandlerFunc
	chatLimiter *httpapi.RateLimiter

	// Optional backends probed by /healthz.
	db  *sql.DB
	rdb *redis.Client
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic.
func registerRoutes(r *gin.Engine, d routeDeps) {
	r.GET("/healthz", func(c *gin.Context) {
		status := gin.H{"status": "ok"}
		code := http.StatusOK
		if d.db != nil {
			if err := utils.Probe(c.Request.Context(), d.db, 2*time.Second, "calls", "users", "chat_messages"); err != nil {
				status["status"], status["postgres"] = "degraded", err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		if d.rdb != nil {
			if err := d.rdb.Ping(c.Request.Context()).Err(); err != nil {
				status["status"], status["redis"] = "degraded", err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		c.JSON(code, status)
	})

	httpapi.Mount(r, d.handlers, d.authMW, d.chatLimiter)
}
