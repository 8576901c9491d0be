package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/sinkhole-watch/app/database"
	"github.com/lysyi3m/sinkhole-watch/app/feed"
	"github.com/lysyi3m/sinkhole-watch/app/metrics"
	"github.com/lysyi3m/sinkhole-watch/app/tasks"
)

func NewHandler(reportRepo database.ReportRepository, channel feed.Channel,
	scheduler tasks.TaskSchedulerInterface, m *metrics.Metrics, version string) *Handler {
	return &Handler{
		reportRepo: reportRepo,
		generator:  feed.NewGenerator(version),
		channel:    channel,
		scheduler:  scheduler,
		metrics:    m,
		version:    version,
	}
}

func (h *Handler) ListReports(c *gin.Context) {
	reports, err := h.reportRepo.ListReports(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, reports)
}

func (h *Handler) UpdateLocation(c *gin.Context) {
	id := c.Param("id")

	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}

	report, err := h.reportRepo.UpdateLocation(c.Request.Context(), id, req.toLocation())
	if err != nil {
		respondError(c, err)
		return
	}

	slog.Debug("Report location updated", "id", id)

	c.JSON(http.StatusOK, report)
}

func (h *Handler) GetRSS(c *gin.Context) {
	reports, err := h.reportRepo.ListReports(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	rss, err := h.generator.Run(h.channel, reports)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(reports)))
	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.reportRepo.CountReports(c.Request.Context()); err == nil {
		health["reports"] = count
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) TriggerIngest(c *gin.Context) {
	h.trigger(c, tasks.TaskTypeIngestFeed, h.scheduler.TriggerIngest)
}

func (h *Handler) TriggerReconcile(c *gin.Context) {
	h.trigger(c, tasks.TaskTypeReconcileReports, h.scheduler.TriggerReconcile)
}

func (h *Handler) trigger(c *gin.Context, taskType tasks.TaskType, enqueue func() (string, error)) {
	id, err := enqueue()
	if err != nil {
		slog.Error("Error enqueueing task", "type", string(taskType), "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"task": gin.H{
			"id":   id,
			"type": taskType,
		},
	})
}

// respondError writes 401 for authorization failures and 500 for everything
// else.
func respondError(c *gin.Context, err error) {
	var authErr *AuthorizationError
	if errors.As(err, &authErr) {
		slog.Warn("Unauthorized request", "path", c.Request.URL.Path, "reason", authErr.Reason)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"message": "Unauthorized",
			"error":   err.Error(),
		})
		return
	}

	slog.Error("Request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"message": "Internal Server Error",
		"error":   err.Error(),
	})
}
