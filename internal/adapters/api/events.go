package api

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/poyrazK/licenseHub/internal/infrastructure/metrics"
)

const heartbeatInterval = 30 * time.Second

// Events serves the realtime channel as Server-Sent Events. The bearer
// token is checked once at the handshake; the server emits a single
// generic `change` event type with no payload, and the client's only
// required reaction is to re-fetch the record list.
func (h *APIHandler) Events(w http.ResponseWriter, r *http.Request) {
	token := bearerFromRequest(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized: missing bearer token")
		return
	}
	if _, err := h.creds.Verify(token); err != nil {
		writeError(w, http.StatusForbidden, "Forbidden: invalid or expired token")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	id, signals := h.hub.Subscribe()
	defer h.hub.Unsubscribe(id)
	metrics.SSESessions.Inc()
	defer metrics.SSESessions.Dec()
	log.Printf("admin session connected: %s", id)
	defer log.Printf("admin session disconnected: %s", id)

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-signals:
			if _, err := fmt.Fprint(w, "event: change\ndata: {}\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// bearerFromRequest extracts the token from the Authorization header, or
// from the access_token query parameter for EventSource clients that
// cannot set headers.
func bearerFromRequest(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return r.URL.Query().Get("access_token")
}
