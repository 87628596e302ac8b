package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/poyrazK/licenseHub/internal/adapters/notifier"
	"github.com/poyrazK/licenseHub/internal/core/domain"
	"github.com/poyrazK/licenseHub/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIHandler handles HTTP requests for registration and administration.
type APIHandler struct {
	svc   ports.RegistrationService
	creds ports.Credentials
	hub   *notifier.Hub
}

// NewAPIHandler creates and returns a new APIHandler instance.
func NewAPIHandler(svc ports.RegistrationService, creds ports.Credentials, hub *notifier.Hub) *APIHandler {
	return &APIHandler{svc: svc, creds: creds, hub: hub}
}

// RegisterRoutes registers the API routes with the provided ServeMux.
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	// Public Routes
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("GET /metrics", h.Metrics)
	mux.HandleFunc("POST /register", h.Register)
	mux.HandleFunc("POST /validate", h.Validate)
	mux.HandleFunc("POST /admin/login", h.Login)

	// Middleware
	auth := AuthMiddleware(h.creds)

	// Protected Routes
	mux.Handle("GET /admin/records", auth(http.HandlerFunc(h.ListRecords)))
	mux.Handle("GET /admin/pending", auth(http.HandlerFunc(h.ListPending)))
	mux.Handle("POST /admin/decide/{id}", auth(http.HandlerFunc(h.Decide)))
	mux.Handle("DELETE /admin/record/{id}", auth(http.HandlerFunc(h.Delete)))

	// The realtime channel authenticates its own handshake: EventSource
	// cannot set an Authorization header, so the token may also arrive as
	// a query parameter.
	mux.HandleFunc("GET /admin/events", h.Events)
}

// Metrics handles Prometheus metrics scraping requests.
func (h *APIHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// HealthCheck handles health check requests.
func (h *APIHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "UP"
	details := make(map[string]string)
	checks := h.svc.HealthCheck(r.Context())

	for name, checkErr := range checks {
		if checkErr != nil {
			status = "DEGRADED"
			details[name] = checkErr.Error()
		} else {
			details[name] = "OK"
		}
	}

	resp := map[string]interface{}{
		"status":  status,
		"details": details,
	}

	w.Header().Set("Content-Type", "application/json")
	if status == "DEGRADED" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	writeJSON(w, resp)
}

type registerRequest struct {
	ClientKey string `json:"client_key"`
}

// Register accepts a client machine's license request. Registering an
// already-known key is a defined success, not an error.
func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing client_key")
		return
	}

	created, err := h.svc.Register(r.Context(), req.ClientKey)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if created {
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, map[string]string{"message": "Registration request received, pending approval"})
		return
	}
	writeJSON(w, map[string]string{"message": "Computer already registered or pending"})
}

// Validate reports the current status for a client key.
func (h *APIHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing client_key")
		return
	}

	status, err := h.svc.Validate(r.Context(), req.ClientKey)
	if errors.Is(err, domain.ErrNotFound) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]string{"status": "Not Found"})
		return
	}
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": string(status)})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates the administrator and issues a bearer token.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed login request")
		return
	}

	token, err := h.creds.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		// Uniform message regardless of which credential was wrong.
		writeError(w, http.StatusUnauthorized, "Bad username or password")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"token": token})
}

// ListRecords returns every registration, newest first.
func (h *APIHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	regs, err := h.svc.ListAll(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if regs == nil {
		regs = []domain.Registration{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, regs)
}

// ListPending returns registrations still awaiting a decision.
func (h *APIHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	regs, err := h.svc.ListPending(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if regs == nil {
		regs = []domain.Registration{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, regs)
}

type decideRequest struct {
	Action domain.Action `json:"action"`
}

// Decide approves or rejects a pending registration.
func (h *APIHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidAction.Error())
		return
	}

	status, err := h.svc.Decide(r.Context(), id, req.Action)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"message": fmt.Sprintf("Request %d has been %s", id, strings.ToLower(string(status))),
	})
}

// Delete removes a registration regardless of its status.
func (h *APIHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"message": fmt.Sprintf("Registration %d deleted successfully", id),
	})
}

// writeServiceError maps service errors onto the response taxonomy:
// validation 400, not-found-or-already-processed 404, everything else a
// store fault 500.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrMissingClientKey), errors.Is(err, domain.ErrInvalidAction):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
	default:
		log.Printf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Database error")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
