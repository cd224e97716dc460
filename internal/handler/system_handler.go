package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctor-backend/internal/response"
)

const healthTimeout = 2 * time.Second

// Pinger checks one backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// QueueDepth reports how many entries wait in a worker queue.
type QueueDepth func(ctx context.Context) (int64, error)

// SystemHandler reports liveness and dependency health.
type SystemHandler struct {
	deps       map[string]Pinger
	auditQueue QueueDepth
	startTime  time.Time
	log        zerolog.Logger
}

func NewSystemHandler(deps map[string]Pinger, auditQueue QueueDepth, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		deps:       deps,
		auditQueue: auditQueue,
		startTime:  time.Now(),
		log:        log.With().Str("component", "system_handler").Logger(),
	}
}

type healthReport struct {
	Status     string            `json:"status"`
	Uptime     string            `json:"uptime"`
	Goroutines int               `json:"goroutines"`
	Checks     map[string]string `json:"checks"`
	AuditQueue *int64            `json:"audit_queue,omitempty"`
}

// Health godoc
// GET /health
// 200 when every dependency answers, 503 otherwise.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	report := healthReport{
		Status:     "ok",
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		Checks:     make(map[string]string, len(h.deps)),
	}
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			h.log.Warn().Err(err).Str("dependency", name).Msg("Health check failed")
			report.Checks[name] = "down"
			report.Status = "degraded"
			continue
		}
		report.Checks[name] = "up"
	}
	if h.auditQueue != nil {
		if n, err := h.auditQueue(ctx); err == nil {
			report.AuditQueue = &n
		}
	}

	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	response.Success(c, status, report)
}
