package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credence/internal/graduation/models"
	"credence/internal/graduation/service"
	"credence/internal/platform/middleware"
	id "credence/pkg/domain"
	dErrors "credence/pkg/domain-errors"
)

type fakeService struct {
	created   []service.CreateInput
	createErr error
	certified []id.IssuerID
	request   *models.Request
}

func (f *fakeService) Create(_ context.Context, input service.CreateInput) (*models.Request, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, input)
	return &models.Request{
		ID:            id.NewGraduationRequestID(),
		EnrollmentID:  input.EnrollmentID,
		Status:        models.StatusPending,
		ClassOfDegree: "First Class",
	}, nil
}

func (f *fakeService) Get(_ context.Context, _ id.GraduationRequestID) (*models.Request, error) {
	return f.request, nil
}

func (f *fakeService) Approve(_ context.Context, requestID id.GraduationRequestID) (*models.Request, error) {
	return &models.Request{ID: requestID, Status: models.StatusApproved}, nil
}

func (f *fakeService) Reject(_ context.Context, requestID id.GraduationRequestID, reason string) (*models.Request, error) {
	return &models.Request{ID: requestID, Status: models.StatusRejected, RejectionReason: reason}, nil
}

func (f *fakeService) Certify(_ context.Context, requestID id.GraduationRequestID, issuerID id.IssuerID) (*models.Request, error) {
	f.certified = append(f.certified, issuerID)
	return &models.Request{ID: requestID, Status: models.StatusCertified}, nil
}

func newTestRouter(svc *fakeService, authed bool) http.Handler {
	h := New(svc, slog.New(slog.DiscardHandler))
	r := chi.NewRouter()
	if authed {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := middleware.WithAuthContext(req.Context(),
					id.NewIssuerID().String(), id.NewInstitutionID().String())
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
	}
	h.RegisterPipeline(r)
	h.RegisterAdmin(r)
	return r
}

func handoffBody() string {
	return `{
		"enrollment_id": "` + uuid.NewString() + `",
		"institution_id": "` + uuid.NewString() + `",
		"student_name": "Aminata Kamara",
		"program_name": "BSc Computer Science",
		"program_type": "BACHELORS",
		"total_credits": 120,
		"cgpa": 3.72,
		"graduation_date": "2024-07-12"
	}`
}

func TestHandleCreate(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc, false)

	req := httptest.NewRequest(http.MethodPost, "/graduation/requests", strings.NewReader(handoffBody()))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, svc.created, 1)
	assert.Equal(t, 120, svc.created[0].TotalCredits)
	assert.Equal(t, 3.72, svc.created[0].CGPA)
}

func TestHandleCreate_DuplicateEnrollment(t *testing.T) {
	svc := &fakeService{createErr: dErrors.New(dErrors.CodeConflict, "a graduation request already exists for this enrollment")}
	router := newTestRouter(svc, false)

	req := httptest.NewRequest(http.MethodPost, "/graduation/requests", strings.NewReader(handoffBody()))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandleCreate_MissingFields(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc, false)

	req := httptest.NewRequest(http.MethodPost, "/graduation/requests",
		strings.NewReader(`{"student_name":"A"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.created)
}

func TestHandleReject(t *testing.T) {
	router := newTestRouter(&fakeService{}, true)

	req := httptest.NewRequest(http.MethodPost,
		"/graduation/requests/"+id.NewGraduationRequestID().String()+"/reject",
		strings.NewReader(`{"reason":"incomplete transcript"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.Request
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, models.StatusRejected, resp.Status)
	assert.Equal(t, "incomplete transcript", resp.RejectionReason)
}

func TestHandleCertify(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc, true)

	req := httptest.NewRequest(http.MethodPost,
		"/graduation/requests/"+id.NewGraduationRequestID().String()+"/certify", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, svc.certified, 1)
}

func TestHandleCertify_Unauthenticated(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc, false)

	req := httptest.NewRequest(http.MethodPost,
		"/graduation/requests/"+id.NewGraduationRequestID().String()+"/certify", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, svc.certified)
}
