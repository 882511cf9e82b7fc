package web

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/ai"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/app"
)

// ── Pending action store ──────────────────────────────────────────────────────

// pendingAction is stored server-side until the operator confirms or cancels.
type pendingAction struct {
	Proposal  *ai.ActionProposal
	CreatedAt time.Time
}

const pendingTTL = 15 * time.Minute

// pendingStore is a thread-safe in-memory store with TTL expiry.
type pendingStore struct {
	mu      sync.Mutex
	actions map[string]pendingAction
	now     func() time.Time
}

func newPendingStore() *pendingStore {
	return &pendingStore{actions: make(map[string]pendingAction), now: time.Now}
}

func (s *pendingStore) put(token string, a pendingAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[token] = a
}

// take removes and returns the action so a token is executed at most once.
func (s *pendingStore) take(token string) (pendingAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[token]
	if !ok {
		return pendingAction{}, false
	}
	delete(s.actions, token)
	if s.now().Sub(a.CreatedAt) > pendingTTL {
		return pendingAction{}, false
	}
	return a, true
}

func (s *pendingStore) purgeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, action := range s.actions {
		if s.now().Sub(action.CreatedAt) > pendingTTL {
			delete(s.actions, token)
		}
	}
}

// startPurge starts a background goroutine that evicts expired entries every 5 minutes.
func (s *pendingStore) startPurge(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.purgeExpired()
			}
		}
	}()
}

// ── Request / response types ──────────────────────────────────────────────────

type chatMessageRequest struct {
	Text string `json:"text"`
}

type chatMessageResponse struct {
	Token    string             `json:"token"`
	Proposal *ai.ActionProposal `json:"proposal"`
}

type chatConfirmRequest struct {
	Token  string `json:"token"`
	Action string `json:"action"` // "confirm" or "cancel"
}

type chatConfirmResponse struct {
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
}

// chatMessage handles POST /api/chat. The text is interpreted into one
// proposed action that is held under a token until confirmed.
func (h *Handler) chatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Text == "" {
		writeError(w, r, "text is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	result, err := h.svc.InterpretAction(r.Context(), req.Text)
	if errors.Is(err, app.ErrAgentUnavailable) {
		writeError(w, r, err.Error(), "AGENT_UNAVAILABLE", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	token := uuid.NewString()
	h.pending.put(token, pendingAction{Proposal: result.Proposal, CreatedAt: h.pending.now()})
	writeJSON(w, chatMessageResponse{Token: token, Proposal: result.Proposal})
}

// chatConfirm handles POST /api/chat/confirm.
func (h *Handler) chatConfirm(w http.ResponseWriter, r *http.Request) {
	var req chatConfirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Action != "confirm" && req.Action != "cancel" {
		writeError(w, r, "action must be 'confirm' or 'cancel'", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	action, ok := h.pending.take(req.Token)
	if !ok {
		writeError(w, r, "pending action not found or expired", "NOT_FOUND", http.StatusNotFound)
		return
	}
	if req.Action == "cancel" {
		writeJSON(w, chatConfirmResponse{Status: "cancelled"})
		return
	}

	msg, err := h.svc.ExecuteProposal(r.Context(), action.Proposal)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, chatConfirmResponse{Status: "executed", Result: msg})
}
