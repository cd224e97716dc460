package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctor-backend/internal/config"
	"github.com/stemsi/proctor-backend/internal/middleware"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/response"
	"github.com/stemsi/proctor-backend/internal/service"
	"github.com/stemsi/proctor-backend/internal/validator"
	ws "github.com/stemsi/proctor-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler pushes a student's own session changes over a WebSocket and
// accepts violation reports on the same connection.
type WSHandler struct {
	bus            Subscriber
	sessionService SessionOperations
	limiter        ViolationLimiter
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler. limiter may be nil.
func NewWSHandler(bus Subscriber, sessionService SessionOperations, limiter ViolationLimiter, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		bus:            bus,
		sessionService: sessionService,
		limiter:        limiter,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/exams/:examId/stream?token=...
func (h *WSHandler) SessionStream(c *gin.Context) {
	ident := middleware.GetIdentity(c)
	if ident == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	// The session must exist before we upgrade; a stream never creates one.
	session, err := h.sessionService.GetSession(c.Request.Context(), examID, ident.UserID)
	if err != nil {
		failWithServiceError(c, h.log, "ws_stream", err)
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	wsLog := h.log.With().Str("user_id", ident.UserID).Str("exam_id", examID.String()).Logger()
	wsLog.Info().Msg("Student connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := h.bus.Subscribe(ctx, config.CacheKey.StudentSessionChannel(examID.String(), ident.UserID))
	defer pubsub.Close()

	_ = conn.WriteTyped(ws.SessionResponse{Event: ws.EventSession, Session: session})
	go h.forward(ctx, conn, pubsub.Channel(), wsLog)

	for {
		msg, err := conn.ReadEnvelope()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionPing:
			_ = conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		case ws.ActionViolation:
			h.reportViolation(ctx, conn, examID, ident.UserID, msg, wsLog)
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			_ = conn.WriteError("unknown action: " + string(msg.Action))
		}
	}
}

// reportViolation applies the same rate limit and body rules as the REST
// route. The updated session reaches the client through the pub/sub forwarder.
func (h *WSHandler) reportViolation(ctx context.Context, conn *ws.Conn, examID uuid.UUID, userID string, msg ws.RequestEnvelope, log zerolog.Logger) {
	if h.limiter != nil {
		allowed, err := h.limiter.Allow(ctx, userID)
		if err != nil {
			log.Warn().Err(err).Msg("Rate limit check failed, allowing report")
		}
		if !allowed {
			_ = conn.WriteError(response.GetMessage(response.ErrRateLimitExceeded))
			return
		}
	}

	req := model.ReportViolationRequest{Reason: msg.Reason, EventID: msg.EventID}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		_ = conn.WriteFieldErrors(response.GetMessage(response.ErrValidation), validator.TranslateErrors(err))
		return
	}

	if _, err := h.sessionService.ReportViolation(ctx, examID, userID, req.Reason, req.EventID); err != nil {
		log.Error().Err(err).Msg("Violation over WebSocket failed")
		_ = conn.WriteError(wsErrorMessage(err))
	}
}

// forward relays the student's session events until ctx ends.
func (h *WSHandler) forward(ctx context.Context, conn *ws.Conn, ch <-chan *redis.Message, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev model.SessionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Warn().Err(err).Msg("Discarding malformed session event")
				continue
			}
			if err := conn.WriteTyped(ws.SessionResponse{Event: ws.EventSession, Cause: ev.Type, Session: ev.Session}); err != nil {
				log.Debug().Err(err).Msg("Push failed, stopping forwarder")
				return
			}
		}
	}
}

func wsErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return "no session for this exam"
	default:
		return "violation could not be recorded"
	}
}
