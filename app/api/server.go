package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
	allowedHeaders = "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	// Set Gin mode (can be controlled via GIN_MODE environment variable)
	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.RedirectTrailingSlash = false

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		slog.Error("Recovered from panic", "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"message": "Internal Server Error",
			"error":   fmt.Sprint(recovered),
		})
	}))

	r.Use(corsMiddleware())

	notFound := func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
	}
	r.NoRoute(notFound)
	r.NoMethod(notFound)

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/sinkholes", handler.ListReports)
	r.GET("/sinkholes/rss", handler.GetRSS)

	if apiAccessKey != "" {
		r.PUT("/sinkholes/:id", authMiddleware(apiAccessKey), handler.UpdateLocation)

		runs := r.Group("/runs")
		runs.Use(authMiddleware(apiAccessKey))
		{
			runs.POST("", handler.TriggerIngest)
			runs.POST("/reconcile", handler.TriggerReconcile)
		}
		slog.Info("Protected endpoints enabled with authentication")
	} else {
		r.PUT("/sinkholes/:id", handler.UpdateLocation)
		slog.Info("Run endpoints disabled (API_ACCESS_KEY not set)")
	}

	r.GET("/health", handler.GetHealth)
	r.GET("/metrics", gin.WrapH(handler.metrics.Handler()))
}

// corsMiddleware answers preflight requests and marks every response as JSON
// unless a handler overrides the content type.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", allowedMethods)
		c.Header("Access-Control-Allow-Headers", allowedHeaders)
		c.Header("Content-Type", "application/json")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}
