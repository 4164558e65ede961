// Package handler exposes verification over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"verity/internal/mismatch"
	"verity/internal/verification"
	dErrors "verity/pkg/domain-errors"
	"verity/pkg/platform/httputil"
	"verity/pkg/requestcontext"
)

// Service defines the verification operations the transport layer needs.
type Service interface {
	Verify(ctx context.Context, req verification.VerifyRequest) (*verification.Verification, error)
	Get(ctx context.Context, id string) (*verification.Verification, error)
}

// Handler wires verification endpoints to the verification service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a verification handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verifications", h.HandleVerify)
	r.Get("/verifications/{verificationID}", h.HandleGet)
}

// VerifyRequest is the HTTP request body for POST /verifications.
type VerifyRequest struct {
	CustomerName      string            `json:"customer_name"`
	CustomerSegment   string            `json:"customer_segment"`
	OCRQuality        *int              `json:"ocr_quality"`
	TransactionAmount float64           `json:"transaction_amount"`
	Document1Fields   mismatch.FieldMap `json:"document1_fields"`
	Document2Fields   mismatch.FieldMap `json:"document2_fields"`
}

// Validate checks required fields and ranges.
func (r *VerifyRequest) Validate() error {
	if len(r.Document1Fields) == 0 || len(r.Document2Fields) == 0 {
		return dErrors.New(dErrors.CodeValidation, "document1_fields and document2_fields are required")
	}
	if r.OCRQuality == nil {
		return dErrors.New(dErrors.CodeValidation, "ocr_quality is required")
	}
	if *r.OCRQuality < 0 || *r.OCRQuality > 100 {
		return dErrors.New(dErrors.CodeValidation, "ocr_quality must be between 0 and 100")
	}
	if r.TransactionAmount < 0 {
		return dErrors.New(dErrors.CodeValidation, "transaction_amount must not be negative")
	}
	return nil
}

// HandleVerify handles POST /verifications requests.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	req, err := httputil.Decode[VerifyRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	v, err := h.service.Verify(ctx, verification.VerifyRequest{
		CustomerName:      req.CustomerName,
		CustomerSegment:   req.CustomerSegment,
		OCRQuality:        *req.OCRQuality,
		TransactionAmount: req.TransactionAmount,
		Document1Fields:   req.Document1Fields,
		Document2Fields:   req.Document2Fields,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "verification failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verification served",
		"request_id", requestcontext.RequestID(ctx),
		"verification_id", v.ID,
		"decision", v.Assessment.Decision,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, v)
}

// HandleGet handles GET /verifications/{verificationID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v, err := h.service.Get(ctx, chi.URLParam(r, "verificationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}
