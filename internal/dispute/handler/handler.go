// Package handler exposes the dispute lifecycle over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"verity/internal/dispute"
	"verity/internal/mismatch"
	"verity/internal/risk"
	"verity/pkg/platform/httputil"
	"verity/pkg/requestcontext"
)

// Service defines the dispute operations the transport layer needs.
type Service interface {
	Create(ctx context.Context, req dispute.CreateRequest) (*dispute.Dispute, error)
	Get(ctx context.Context, disputeID string) (*dispute.Dispute, error)
	PerformTriage(ctx context.Context, disputeID string, original risk.Assessment) (*dispute.Triage, error)
	PerformReVerification(ctx context.Context, disputeID string, fields1, fields2 mismatch.FieldMap, newContext string) (*dispute.ReVerification, error)
	Resolve(ctx context.Context, disputeID string, finalDecision dispute.FinalDecision, reason string) (*dispute.Resolution, error)
	GenerateResolutionCommunication(ctx context.Context, disputeID string) (string, error)
	GetAnalytics(ctx context.Context) (dispute.Analytics, error)
}

// Handler wires dispute endpoints to the dispute manager.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a dispute handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts dispute endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/disputes", h.HandleCreate)
	r.Get("/disputes/analytics", h.HandleAnalytics)
	r.Get("/disputes/{disputeID}", h.HandleGet)
	r.Post("/disputes/{disputeID}/triage", h.HandleTriage)
	r.Post("/disputes/{disputeID}/re-verify", h.HandleReVerify)
	r.Post("/disputes/{disputeID}/resolve", h.HandleResolve)
	r.Get("/disputes/{disputeID}/letter", h.HandleLetter)
}

// HandleCreate handles POST /disputes requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	req, err := httputil.Decode[CreateDisputeRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	d, err := h.service.Create(ctx, dispute.CreateRequest{
		OriginalVerificationID: req.OriginalVerificationID,
		CustomerName:           req.CustomerName,
		CustomerReason:         req.CustomerReason,
		CustomerSegment:        req.CustomerSegment,
		AdditionalDocuments:    req.AdditionalDocuments,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "dispute creation failed",
			"request_id", requestcontext.RequestID(ctx),
			"verification_id", req.OriginalVerificationID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "dispute created",
		"request_id", requestcontext.RequestID(ctx),
		"dispute_id", d.ID,
		"verification_id", d.OriginalVerificationID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, d)
}

// HandleGet handles GET /disputes/{disputeID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d, err := h.service.Get(ctx, chi.URLParam(r, "disputeID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

// HandleTriage handles POST /disputes/{disputeID}/triage requests.
func (h *Handler) HandleTriage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	disputeID := chi.URLParam(r, "disputeID")

	req, err := httputil.Decode[TriageRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	triage, err := h.service.PerformTriage(ctx, disputeID, req.OriginalAssessment)
	if err != nil {
		h.logger.ErrorContext(ctx, "dispute triage failed",
			"request_id", requestcontext.RequestID(ctx),
			"dispute_id", disputeID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "dispute triaged",
		"request_id", requestcontext.RequestID(ctx),
		"dispute_id", disputeID,
		"recommendation", triage.Recommendation,
	)
	httputil.WriteJSON(w, http.StatusOK, triage)
}

// HandleReVerify handles POST /disputes/{disputeID}/re-verify requests.
func (h *Handler) HandleReVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	disputeID := chi.URLParam(r, "disputeID")

	req, err := httputil.Decode[ReVerifyRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	rv, err := h.service.PerformReVerification(ctx, disputeID, req.Document1Fields, req.Document2Fields, req.CustomerContext)
	if err != nil {
		h.logger.ErrorContext(ctx, "dispute re-verification failed",
			"request_id", requestcontext.RequestID(ctx),
			"dispute_id", disputeID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "dispute re-verified",
		"request_id", requestcontext.RequestID(ctx),
		"dispute_id", disputeID,
		"new_decision", rv.NewDecision,
		"decision_changed", rv.DecisionChanged,
	)
	httputil.WriteJSON(w, http.StatusOK, rv)
}

// HandleResolve handles POST /disputes/{disputeID}/resolve requests.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	disputeID := chi.URLParam(r, "disputeID")

	req, err := httputil.Decode[ResolveRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resolution, err := h.service.Resolve(ctx, disputeID, dispute.FinalDecision(req.FinalDecision), req.Reason)
	if err != nil {
		h.logger.ErrorContext(ctx, "dispute resolution failed",
			"request_id", requestcontext.RequestID(ctx),
			"dispute_id", disputeID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "dispute resolved",
		"request_id", requestcontext.RequestID(ctx),
		"dispute_id", disputeID,
		"final_decision", resolution.FinalDecision,
	)
	httputil.WriteJSON(w, http.StatusOK, resolution)
}

// HandleLetter handles GET /disputes/{disputeID}/letter requests.
func (h *Handler) HandleLetter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	disputeID := chi.URLParam(r, "disputeID")

	letter, err := h.service.GenerateResolutionCommunication(ctx, disputeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, LetterResponse{DisputeID: disputeID, Letter: letter})
}

// HandleAnalytics handles GET /disputes/analytics requests.
func (h *Handler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	analytics, err := h.service.GetAnalytics(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, analytics)
}
