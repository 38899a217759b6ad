package wsocket

import (
	"context"
	"net/http"
	"time"

	"arxiv_digest/internal/models"
	"arxiv_digest/internal/utils/broker"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type Handler struct {
	broker       *broker.Broker
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	logger       zerolog.Logger
}

type Message struct {
	Type  string           `json:"type"`
	RunID string           `json:"runId"`
	Event *models.RunEvent `json:"event,omitempty"`
}

func NewHandler(messageBroker *broker.Broker, upgrader websocket.Upgrader, pingInterval time.Duration, logger zerolog.Logger) *Handler {
	return &Handler{
		broker:       messageBroker,
		upgrader:     upgrader,
		pingInterval: pingInterval,
		logger:       logger.With().Str("component", "wsocket").Logger(),
	}
}

// HandleRunEvents streams the progress events of one run until it completes,
// fails, or the client goes away.
func (h *Handler) HandleRunEvents(w http.ResponseWriter, r *http.Request, runID string) {
	if runID == "" {
		http.Error(w, "No run ID provided", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("Error upgrading connection")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	topic := models.RunTopic(runID)
	events := h.broker.Subscribe(topic)
	defer h.broker.Unsubscribe(topic, events)

	// The client sends nothing; reading only detects that it went away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case msg, ok := <-events:
			if !ok {
				return
			}
			event, ok := msg.(models.RunEvent)
			if !ok {
				continue
			}
			if err := conn.WriteJSON(Message{Type: "run_event", RunID: runID, Event: &event}); err != nil {
				h.logger.Debug().Err(err).Str("run_id", runID).Msg("Error sending run event")
				return
			}
			if event.Final() {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(event.Stage)),
					time.Now().Add(time.Second))
				return
			}
		}
	}
}
