package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	credmodels "credence/internal/credential/models"
	"credence/internal/graduation/models"
	id "credence/pkg/domain"
	"credence/pkg/platform/sentinel"
)

// PostgresStore persists graduation requests. The one-request-per-enrollment
// invariant is a unique index on enrollment_id.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const requestColumns = `
	id, enrollment_id, institution_id,
	student_name, student_id, program_name, program_type,
	total_credits, cgpa, class_of_degree, graduation_date,
	status, rejection_reason, credential_id,
	created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, request *models.Request) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO graduation_requests (`+requestColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		uuid.UUID(request.ID), uuid.UUID(request.EnrollmentID), uuid.UUID(request.InstitutionID),
		request.StudentName, nullString(request.StudentID), request.ProgramName, string(request.ProgramType),
		request.TotalCredits, request.CGPA, request.ClassOfDegree, request.GraduationDate,
		string(request.Status), nullString(request.RejectionReason), nullCredentialID(request.CredentialID),
		request.CreatedAt, request.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert graduation request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.GraduationRequestID) (*models.Request, error) {
	return s.findBy(ctx, s.db, "id = $1", uuid.UUID(requestID))
}

func (s *PostgresStore) FindByEnrollment(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Request, error) {
	return s.findBy(ctx, s.db, "enrollment_id = $1", uuid.UUID(enrollmentID))
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) findBy(ctx context.Context, q rowQuerier, where string, arg any) (*models.Request, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM graduation_requests WHERE `+where, arg)
	request, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find graduation request: %w", err)
	}
	return request, nil
}

// Execute runs validate-then-mutate under SELECT ... FOR UPDATE so
// concurrent transitions on the same request serialize.
func (s *PostgresStore) Execute(ctx context.Context, requestID id.GraduationRequestID,
	validate func(*models.Request) error,
	mutate func(*models.Request)) (*models.Request, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin graduation update: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM graduation_requests WHERE id = $1 FOR UPDATE`,
		uuid.UUID(requestID))
	request, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock graduation request: %w", err)
	}

	if err := validate(request); err != nil {
		return nil, err
	}
	mutate(request)

	_, err = tx.ExecContext(ctx, `
		UPDATE graduation_requests SET
			status = $2, rejection_reason = $3, credential_id = $4, updated_at = $5
		WHERE id = $1`,
		uuid.UUID(request.ID),
		string(request.Status), nullString(request.RejectionReason), nullCredentialID(request.CredentialID),
		request.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update graduation request: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit graduation update: %w", err)
	}
	return request, nil
}

func scanRequest(row interface{ Scan(dest ...any) error }) (*models.Request, error) {
	var (
		request         models.Request
		requestID       uuid.UUID
		enrollmentID    uuid.UUID
		institutionID   uuid.UUID
		studentID       sql.NullString
		programType     string
		status          string
		rejectionReason sql.NullString
		credentialID    sql.Null[uuid.UUID]
	)
	err := row.Scan(
		&requestID, &enrollmentID, &institutionID,
		&request.StudentName, &studentID, &request.ProgramName, &programType,
		&request.TotalCredits, &request.CGPA, &request.ClassOfDegree, &request.GraduationDate,
		&status, &rejectionReason, &credentialID,
		&request.CreatedAt, &request.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	request.ID = id.GraduationRequestID(requestID)
	request.EnrollmentID = id.EnrollmentID(enrollmentID)
	request.InstitutionID = id.InstitutionID(institutionID)
	request.StudentID = studentID.String
	request.ProgramType = credmodels.ProgramType(programType)
	request.Status = models.Status(status)
	request.RejectionReason = rejectionReason.String
	if credentialID.Valid {
		cid := id.CredentialID(credentialID.V)
		request.CredentialID = &cid
	}
	return &request, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullCredentialID(credentialID *id.CredentialID) sql.Null[uuid.UUID] {
	if credentialID == nil {
		return sql.Null[uuid.UUID]{}
	}
	return sql.Null[uuid.UUID]{V: uuid.UUID(*credentialID), Valid: true}
}
