package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/chatdeck/chatdeck/internal/events"
	"github.com/chatdeck/chatdeck/internal/infrastructure/logging"
	"github.com/chatdeck/chatdeck/internal/infrastructure/monitoring"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The host UI connects from its own origin.
		return true
	},
}

// Handler manages WebSocket event subscribers.
type Handler struct {
	bus     *events.Bus
	metrics *monitoring.Metrics
	logger  *logging.Logger
}

// NewHandler creates a new WebSocket handler.
func NewHandler(bus *events.Bus, metrics *monitoring.Metrics, logger *logging.Logger) *Handler {
	return &Handler{bus: bus, metrics: metrics, logger: logger}
}

// HandleConnection upgrades the request and forwards status events
// until the client disconnects.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	ch, cancel := h.bus.Subscribe()
	defer cancel()

	// Drain client frames so pings and close frames are processed.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	welcome := map[string]any{"type": "system", "message": "connected"}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(welcome); err != nil {
		return
	}

	for {
		select {
		case <-readDone:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(map[string]any{
				"type":  "status_changed",
				"event": ev,
			}); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
			h.metrics.IncWSEvents()
		}
	}
}
