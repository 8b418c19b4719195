package http

import (
	"encoding/json"
	"log"
	"net/http"

	"blitz-quiz-service/internal/app"
	"blitz-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

// DashboardHandler exposes the completion ledger to display collaborators:
// a one-shot JSON snapshot and a websocket feed that pushes a new snapshot
// whenever a session completes.
type DashboardHandler struct {
	ledger   app.CompletionLedger
	upgrader websocket.Upgrader
}

func NewDashboardHandler(ledger app.CompletionLedger) *DashboardHandler {
	return &DashboardHandler{
		ledger: ledger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeResults writes the current ledger snapshot as JSON.
func (h *DashboardHandler) ServeResults(w http.ResponseWriter, r *http.Request) {
	snap, err := h.ledger.Snapshot(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(outboundMessage[[]domain.CompletionRecord]{Type: "results", Payload: snap}); err != nil {
		log.Printf("write results failed: %v", err)
	}
}

// ServeWS upgrades the request and streams ledger snapshots until the client
// goes away.
func (h *DashboardHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.ledger.Subscribe()
	defer cancel()

	// The reader only watches for the peer closing; cancelling the
	// subscription closes the updates channel and ends the write loop.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	for snap := range updates {
		if err := conn.WriteJSON(outboundMessage[[]domain.CompletionRecord]{Type: "results", Payload: snap}); err != nil {
			log.Printf("ws write error: %v", err)
			return
		}
	}
}
