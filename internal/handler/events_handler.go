package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-wizard/internal/middleware"
	"github.com/stemsi/exstem-wizard/internal/response"
	ws "github.com/stemsi/exstem-wizard/internal/websocket"
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

// EventsHandler streams committed exam mutations to admin clients so open
// wizard screens can reload.
type EventsHandler struct {
	feed     *ws.Feed
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(feed *ws.Feed, log zerolog.Logger, allowedOrigins []string) *EventsHandler {
	return &EventsHandler{
		feed:     feed,
		log:      log.With().Str("component", "events_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// StreamExamEvents godoc
// WS /ws/v1/admin/exams/events?token=...&exam=ID
// The optional exam query limits the stream to one exam.
func (h *EventsHandler) StreamExamEvents(c *gin.Context) {
	var examID int64
	if raw := c.Query("exam"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		examID = id
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Int64("exam_id", examID).Logger()
	if claims := middleware.GetClaims(c); claims != nil {
		wsLog = wsLog.With().Int64("user_id", claims.UserID).Logger()
	}

	sub := h.feed.Subscribe(examID)
	defer h.feed.Unsubscribe(sub)
	wsLog.Info().Msg("Admin connected to exam events")

	// The reader goroutine only reads; every write happens below.
	pings := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				}
				return
			}
			if msg.Action == ws.ActionPing {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	for {
		select {
		case <-done:
			wsLog.Debug().Msg("Connection closed")
			return
		case <-pings:
			if err := ws.WriteTyped(conn, ws.EventResponse{Event: ws.EventPong}); err != nil {
				return
			}
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			if h.feed.TakeLagged(sub) {
				if err := ws.WriteTyped(conn, ws.EventResponse{Event: ws.EventLagged}); err != nil {
					return
				}
			}
			if err := ws.WriteTyped(conn, msg); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed")
				return
			}
		}
	}
}
