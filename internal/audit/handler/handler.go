// Package handler exposes the audit trail read side over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"verity/internal/audit"
	dErrors "verity/pkg/domain-errors"
	"verity/pkg/platform/httputil"
)

// Service defines the audit operations the transport layer needs.
type Service interface {
	GetTrail(ctx context.Context, entityID string, q audit.Query) ([]audit.Entry, error)
	VerifyIntegrity(ctx context.Context, entityID string) (audit.IntegrityReport, error)
}

// Handler wires audit endpoints to the audit trail.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an audit handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts audit endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit/{entityID}", h.HandleGetTrail)
	r.Get("/audit/{entityID}/integrity", h.HandleVerifyIntegrity)
}

// TrailResponse is the HTTP response for GET /audit/{entityID}.
type TrailResponse struct {
	EntityID string        `json:"entity_id"`
	Entries  []audit.Entry `json:"entries"`
}

// HandleGetTrail handles GET /audit/{entityID} requests. Optional query
// parameters: entity_type, start, end (RFC 3339).
func (h *Handler) HandleGetTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityID := chi.URLParam(r, "entityID")

	q := audit.Query{EntityType: r.URL.Query().Get("entity_type")}
	if raw := r.URL.Query().Get("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "start must be RFC 3339"))
			return
		}
		q.Start = t
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "end must be RFC 3339"))
			return
		}
		q.End = t
	}

	entries, err := h.service.GetTrail(ctx, entityID, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit trail read failed", "entity_id", entityID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	httputil.WriteJSON(w, http.StatusOK, TrailResponse{EntityID: entityID, Entries: entries})
}

// HandleVerifyIntegrity handles GET /audit/{entityID}/integrity requests.
func (h *Handler) HandleVerifyIntegrity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityID := chi.URLParam(r, "entityID")

	report, err := h.service.VerifyIntegrity(ctx, entityID)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit integrity check failed", "entity_id", entityID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}
