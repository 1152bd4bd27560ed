// Package store persists graduation requests.
package store

import (
	"context"

	"credence/internal/graduation/models"
	id "credence/pkg/domain"
)

// Store is the graduation request repository. Create returns
// sentinel.ErrConflict when a request already exists for the enrollment.
type Store interface {
	Create(ctx context.Context, request *models.Request) error
	FindByID(ctx context.Context, requestID id.GraduationRequestID) (*models.Request, error)
	FindByEnrollment(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Request, error)

	// Execute loads the request, runs validate, and persists the result of
	// mutate, all under the store's concurrency control. Returns the
	// updated request.
	Execute(ctx context.Context, requestID id.GraduationRequestID,
		validate func(*models.Request) error,
		mutate func(*models.Request)) (*models.Request, error)
}
