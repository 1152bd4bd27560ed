// Package handler exposes the public verification surface. No
// authentication: anyone holding a code or certificate number may check it.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"credence/internal/verification/models"
	id "credence/pkg/domain"
	"credence/pkg/platform/httputil"
)

// Service defines the verification operations the handler needs.
type Service interface {
	VerifyByCode(ctx context.Context, code, organization string) *models.Result
	VerifyByNumber(ctx context.Context, certificateNo, organization string) *models.Result
	AttemptsFor(ctx context.Context, credentialID id.CredentialID) ([]models.Attempt, error)
}

// Handler wires verification endpoints to the verification service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public verification endpoints. RegisterAdmin mounts
// the attempt-trail endpoint, which belongs on the authenticated router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/verify/{code}", h.HandleVerifyByCode)
	r.Get("/verify/number/{certificateNo}", h.HandleVerifyByNumber)
}

// RegisterAdmin mounts the audit-trail listing for institution staff.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/credentials/{id}/attempts", h.HandleListAttempts)
}

// HandleVerifyByCode handles GET /verify/{code}. The outcome is always 200:
// NOT_FOUND and INVALID are verification answers, not transport errors.
func (h *Handler) HandleVerifyByCode(w http.ResponseWriter, r *http.Request) {
	result := h.service.VerifyByCode(r.Context(),
		chi.URLParam(r, "code"),
		r.URL.Query().Get("organization"),
	)
	httputil.WriteJSON(w, statusFor(result), result)
}

// HandleVerifyByNumber handles GET /verify/number/{certificateNo}.
func (h *Handler) HandleVerifyByNumber(w http.ResponseWriter, r *http.Request) {
	result := h.service.VerifyByNumber(r.Context(),
		chi.URLParam(r, "certificateNo"),
		r.URL.Query().Get("organization"),
	)
	httputil.WriteJSON(w, statusFor(result), result)
}

// HandleListAttempts handles GET /credentials/{id}/attempts.
func (h *Handler) HandleListAttempts(w http.ResponseWriter, r *http.Request) {
	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	attempts, err := h.service.AttemptsFor(r.Context(), credentialID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list verification attempts",
			"credential_id", credentialID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if attempts == nil {
		attempts = []models.Attempt{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"attempts": attempts})
}

// statusFor keeps business outcomes on 200 and reserves 503 for the one
// case where the system itself could not answer.
func statusFor(result *models.Result) int {
	if result.Outcome == models.OutcomeError {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
