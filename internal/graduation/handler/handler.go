// Package handler wires the graduation pipeline endpoints. The handoff
// endpoint authenticates with the pipeline API key; approval, rejection and
// certification sit behind issuer bearer auth.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	credmodels "credence/internal/credential/models"
	"credence/internal/graduation/models"
	"credence/internal/graduation/service"
	"credence/internal/platform/middleware"
	id "credence/pkg/domain"
	dErrors "credence/pkg/domain-errors"
	"credence/pkg/platform/httputil"
)

// Service defines the graduation operations the handler needs.
type Service interface {
	Create(ctx context.Context, input service.CreateInput) (*models.Request, error)
	Get(ctx context.Context, requestID id.GraduationRequestID) (*models.Request, error)
	Approve(ctx context.Context, requestID id.GraduationRequestID) (*models.Request, error)
	Reject(ctx context.Context, requestID id.GraduationRequestID, reason string) (*models.Request, error)
	Certify(ctx context.Context, requestID id.GraduationRequestID, issuerID id.IssuerID) (*models.Request, error)
}

// Handler wires graduation endpoints to the graduation service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPipeline mounts the handoff endpoint for the upstream academic
// records system.
func (h *Handler) RegisterPipeline(r chi.Router) {
	r.Post("/graduation/requests", h.HandleCreate)
}

// RegisterAdmin mounts the review endpoints for institution staff.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/graduation/requests/{id}", h.HandleGet)
	r.Post("/graduation/requests/{id}/approve", h.HandleApprove)
	r.Post("/graduation/requests/{id}/reject", h.HandleReject)
	r.Post("/graduation/requests/{id}/certify", h.HandleCertify)
}

// CreateRequest is the pipeline handoff payload. Credits and CGPA arrive
// precomputed from the academic records system.
type CreateRequest struct {
	EnrollmentID   string  `json:"enrollment_id" validate:"required,uuid"`
	InstitutionID  string  `json:"institution_id" validate:"required,uuid"`
	StudentName    string  `json:"student_name" validate:"required"`
	StudentID      string  `json:"student_id,omitempty"`
	ProgramName    string  `json:"program_name" validate:"required"`
	ProgramType    string  `json:"program_type" validate:"required"`
	TotalCredits   int     `json:"total_credits" validate:"required,gt=0"`
	CGPA           float64 `json:"cgpa" validate:"gte=0,lte=5"`
	ClassOfDegree  string  `json:"class_of_degree,omitempty"`
	GraduationDate string  `json:"graduation_date" validate:"required,datetime=2006-01-02"`
}

// HandleCreate handles POST /graduation/requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[CreateRequest](w, r)
	if !ok {
		return
	}

	enrollmentID, err := id.ParseEnrollmentID(req.EnrollmentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	institutionID, err := id.ParseInstitutionID(req.InstitutionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	graduationDate, _ := time.Parse("2006-01-02", req.GraduationDate)

	request, err := h.service.Create(ctx, service.CreateInput{
		EnrollmentID:   enrollmentID,
		InstitutionID:  institutionID,
		StudentName:    req.StudentName,
		StudentID:      req.StudentID,
		ProgramName:    req.ProgramName,
		ProgramType:    credmodels.ProgramType(req.ProgramType),
		TotalCredits:   req.TotalCredits,
		CGPA:           req.CGPA,
		ClassOfDegree:  req.ClassOfDegree,
		GraduationDate: graduationDate,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "graduation handoff failed",
			"request_id", middleware.GetRequestID(ctx),
			"enrollment_id", req.EnrollmentID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, request)
}

// HandleGet handles GET /graduation/requests/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	requestID, err := id.ParseGraduationRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	request, err := h.service.Get(r.Context(), requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, request)
}

// HandleApprove handles POST /graduation/requests/{id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	requestID, err := id.ParseGraduationRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	request, err := h.service.Approve(r.Context(), requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, request)
}

// RejectRequest carries the mandatory rejection reason.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// HandleReject handles POST /graduation/requests/{id}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	requestID, err := id.ParseGraduationRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[RejectRequest](w, r)
	if !ok {
		return
	}

	request, err := h.service.Reject(r.Context(), requestID, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, request)
}

// HandleCertify handles POST /graduation/requests/{id}/certify. The issuing
// actor comes from the bearer token.
func (h *Handler) HandleCertify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	issuerID, err := id.ParseIssuerID(middleware.GetIssuerID(ctx))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	requestID, err := id.ParseGraduationRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	request, err := h.service.Certify(ctx, requestID, issuerID)
	if err != nil {
		h.logger.ErrorContext(ctx, "graduation certification failed",
			"request_id", middleware.GetRequestID(ctx),
			"graduation_request_id", requestID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, request)
}
