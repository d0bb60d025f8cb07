// Package httpapi exposes the order engine over HTTP. The messaging channel (WhatsApp
// webhook relay, web chat) posts each customer message and sends back response_text.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
)

// MessageProcessor is implemented by engine.Engine.
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, conversationID, text string) (*model.Response, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	engine MessageProcessor
	checks map[string]HealthCheck
}

func NewHandler(engine MessageProcessor, checks map[string]HealthCheck) *Handler {
	return &Handler{engine: engine, checks: checks}
}

type messageRequest struct {
	Text string `json:"text"`
}

// SetupRoutes registers the API, health and metrics routes.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/conversations/:id/messages", h.PostMessage)
	}
}

// NewRouter builds a gin engine with recovery and request logging.
func NewRouter(mode string, h *Handler) *gin.Engine {
	gin.SetMode(mode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	h.SetupRoutes(router)
	return router
}

func (h *Handler) PostMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resp, err := h.engine.ProcessMessage(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		c.JSON(statusOf(err), resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// statusOf keeps the response body (the technical reply) but reports the failure class.
func statusOf(err error) int {
	var appErr *errx.AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	result := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			result[name] = err.Error()
			continue
		}
		result[name] = "ok"
	}
	c.JSON(status, gin.H{"status": http.StatusText(status), "checks": result})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ev := logx.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = logx.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}
