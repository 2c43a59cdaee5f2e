package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/felixgeelhaar/taskplan/internal/plan"
)

// webhookEvent is the inbound notification format, mirroring what the
// outbound notifier sends.
type webhookEvent struct {
	Event string     `json:"event"`
	Plan  *plan.Plan `json:"plan"`
}

// handleWebhook handles POST /api/webhook, the receiving end of
// collaborator notifications. The event is acknowledged and logged; the
// receiver never mutates local state.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var event webhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "malformed webhook payload: " + err.Error(),
		})
		return
	}

	s.webhookReceived.Add(1)
	s.webhookLast.Store(time.Now().UTC().UnixMilli())

	planID := ""
	if event.Plan != nil {
		planID = event.Plan.ID
	}
	s.logger.Info("webhook received", "event", event.Event, "plan_id", planID)

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleWebhookHealth handles GET /api/webhook/health with receiver
// statistics.
func (s *Server) handleWebhookHealth(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"status":   "ok",
		"received": s.webhookReceived.Load(),
	}
	if last := s.webhookLast.Load(); last > 0 {
		payload["last_received_at"] = time.UnixMilli(last).UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, payload)
}
