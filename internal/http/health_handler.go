package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	storage   Pinger
	timeout   time.Duration
	responder responder
}

func NewHealthHandler(storage Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{storage: storage, timeout: 2 * time.Second, responder: newResponder(logger)}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		h.responder.writeJSON(w, r, http.StatusOK, healthResponse{Status: "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.storage.Ping(ctx); err != nil {
		h.responder.loggerFor(r).WarnContext(r.Context(), "health check failed", "error", err)
		h.responder.writeJSON(w, r, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	h.responder.writeJSON(w, r, http.StatusOK, healthResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
}
