// Package handler wires the issuing-institution credential endpoints. All
// routes here sit behind bearer authentication; the public verification
// surface lives in the verification handler.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"credence/internal/credential/models"
	"credence/internal/credential/service"
	"credence/internal/platform/middleware"
	id "credence/pkg/domain"
	dErrors "credence/pkg/domain-errors"
	"credence/pkg/platform/httputil"
)

// Service defines the credential operations the handler needs.
type Service interface {
	Issue(ctx context.Context, input service.IssueInput) (*models.Credential, error)
	GetCredential(ctx context.Context, credentialID id.CredentialID) (*models.Credential, error)
	Revoke(ctx context.Context, credentialID id.CredentialID, revokerID id.IssuerID, reason string) error
	Suspend(ctx context.Context, credentialID id.CredentialID, actorID id.IssuerID) error
	Reinstate(ctx context.Context, credentialID id.CredentialID, actorID id.IssuerID) error
}

// Handler wires credential endpoints to the credential service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the credential endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/credentials", h.HandleIssue)
	r.Get("/credentials/{id}", h.HandleGet)
	r.Post("/credentials/{id}/revoke", h.HandleRevoke)
	r.Post("/credentials/{id}/suspend", h.HandleSuspend)
	r.Post("/credentials/{id}/reinstate", h.HandleReinstate)
}

// IssueRequest is the issuance payload. The issuing institution and issuer
// come from the bearer token, never the body.
type IssueRequest struct {
	StudentName    string            `json:"student_name" validate:"required"`
	StudentID      string            `json:"student_id,omitempty"`
	DateOfBirth    string            `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	NationalID     string            `json:"national_id,omitempty"`
	ProgramName    string            `json:"program_name" validate:"required"`
	ProgramType    string            `json:"program_type" validate:"required"`
	ClassOfDegree  string            `json:"class_of_degree,omitempty"`
	CGPA           *float64          `json:"cgpa,omitempty" validate:"omitempty,gte=0,lte=5"`
	GraduationDate string            `json:"graduation_date" validate:"required,datetime=2006-01-02"`
	StartDate      string            `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate        string            `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// HandleIssue handles POST /credentials.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	issuerID, institutionID, ok := callerIdentity(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.Decode[IssueRequest](w, r)
	if !ok {
		return
	}

	input := service.IssueInput{
		InstitutionID: institutionID,
		IssuerID:      issuerID,
		StudentName:   req.StudentName,
		StudentID:     req.StudentID,
		NationalID:    req.NationalID,
		ProgramName:   req.ProgramName,
		ProgramType:   models.ProgramType(req.ProgramType),
		ClassOfDegree: req.ClassOfDegree,
		CGPA:          req.CGPA,
		Metadata:      req.Metadata,
	}
	input.GraduationDate, _ = time.Parse("2006-01-02", req.GraduationDate)
	input.DateOfBirth = parseOptionalDate(req.DateOfBirth)
	input.StartDate = parseOptionalDate(req.StartDate)
	input.EndDate = parseOptionalDate(req.EndDate)

	credential, err := h.service.Issue(ctx, input)
	if err != nil {
		h.logger.ErrorContext(ctx, "credential issuance failed",
			"request_id", middleware.GetRequestID(ctx),
			"issuer_id", issuerID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "credential issued",
		"request_id", middleware.GetRequestID(ctx),
		"credential_id", credential.ID.String(),
		"certificate_no", credential.CertificateNo,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, credential)
}

// HandleGet handles GET /credentials/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	credential, err := h.service.GetCredential(r.Context(), credentialID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, credential)
}

// RevokeRequest carries the mandatory revocation reason.
type RevokeRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// HandleRevoke handles POST /credentials/{id}/revoke.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	issuerID, _, ok := callerIdentity(w, ctx)
	if !ok {
		return
	}
	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[RevokeRequest](w, r)
	if !ok {
		return
	}

	if err := h.service.Revoke(ctx, credentialID, issuerID, req.Reason); err != nil {
		h.logger.ErrorContext(ctx, "credential revocation failed",
			"request_id", middleware.GetRequestID(ctx),
			"credential_id", credentialID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// HandleSuspend handles POST /credentials/{id}/suspend.
func (h *Handler) HandleSuspend(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "suspended", h.service.Suspend)
}

// HandleReinstate handles POST /credentials/{id}/reinstate.
func (h *Handler) HandleReinstate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "active", h.service.Reinstate)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, resultStatus string,
	op func(ctx context.Context, credentialID id.CredentialID, actorID id.IssuerID) error) {

	ctx := r.Context()
	issuerID, _, ok := callerIdentity(w, ctx)
	if !ok {
		return
	}
	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := op(ctx, credentialID, issuerID); err != nil {
		h.logger.ErrorContext(ctx, "credential transition failed",
			"request_id", middleware.GetRequestID(ctx),
			"credential_id", credentialID.String(),
			"target_status", resultStatus,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": resultStatus})
}

// callerIdentity reads the authenticated issuer and institution from the
// context. Missing identity means the auth middleware did not run; treat it
// as unauthorized rather than panicking.
func callerIdentity(w http.ResponseWriter, ctx context.Context) (id.IssuerID, id.InstitutionID, bool) {
	issuerID, err := id.ParseIssuerID(middleware.GetIssuerID(ctx))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.IssuerID{}, id.InstitutionID{}, false
	}
	institutionID, err := id.ParseInstitutionID(middleware.GetInstitutionID(ctx))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.IssuerID{}, id.InstitutionID{}, false
	}
	return issuerID, institutionID, true
}

func parseOptionalDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &parsed
}
