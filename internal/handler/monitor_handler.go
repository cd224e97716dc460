package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctor-backend/internal/config"
	"github.com/stemsi/proctor-backend/internal/response"
)

const snapshotTimeout = 5 * time.Second // keep a slow query from stalling the stream

// Subscriber opens Redis pub/sub subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// MonitorHandler streams session changes of one exam to administrators.
type MonitorHandler struct {
	bus            Subscriber
	examService    ExamOperations
	sessionService SessionOperations
	monitorService MonitorOperations
	keepAlive      time.Duration
	log            zerolog.Logger
}

func NewMonitorHandler(
	bus Subscriber,
	examService ExamOperations,
	sessionService SessionOperations,
	monitorService MonitorOperations,
	keepAlive time.Duration,
	log zerolog.Logger,
) *MonitorHandler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &MonitorHandler{
		bus:            bus,
		examService:    examService,
		sessionService: sessionService,
		monitorService: monitorService,
		keepAlive:      keepAlive,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorExamSSE godoc
// GET /api/exams/:examId/monitor
// Sends a snapshot of every session, then one event per session change.
func (h *MonitorHandler) MonitorExamSSE(c *gin.Context) {
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	reqCtx := c.Request.Context()
	exam, err := h.examService.GetByID(reqCtx, examID)
	if err != nil {
		failWithServiceError(c, h.log, "monitor", err)
		return
	}

	// Subscribe before reading the snapshot so no change falls in between.
	pubsub := h.bus.Subscribe(reqCtx, config.CacheKey.ExamMonitorChannel(examID.String()))
	defer pubsub.Close()
	if _, err := pubsub.Receive(reqCtx); err != nil {
		h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Monitor subscription failed")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrStoreUnavailable)
		return
	}

	snapCtx, cancel := context.WithTimeout(reqCtx, snapshotTimeout)
	sessions, err := h.sessionService.ListSessions(snapCtx, examID, false)
	if err != nil {
		cancel()
		failWithServiceError(c, h.log, "monitor", err)
		return
	}
	stats, err := h.monitorService.Snapshot(snapCtx, examID)
	cancel()
	if err != nil {
		h.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Monitor stats unavailable")
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("snapshot", gin.H{
		"exam":     exam,
		"sessions": sessions,
		"stats":    stats,
	})
	c.Writer.Flush()

	h.log.Info().Str("exam_id", examID.String()).Msg("Admin attached to live monitor")

	ch := pubsub.Channel()
	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("exam_id", examID.String()).Msg("Admin detached from live monitor")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Payloads are already JSON; forward them untouched.
			c.SSEvent("session", json.RawMessage(msg.Payload))
			c.Writer.Flush()

		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"time": time.Now().UTC()})
			c.Writer.Flush()
		}
	}
}
