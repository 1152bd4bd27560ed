package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"credence/internal/credential/models"
	id "credence/pkg/domain"
	"credence/pkg/platform/sentinel"
	txcontext "credence/pkg/platform/tx"
)

// PostgresStore persists credentials in PostgreSQL. Uniqueness of the
// verification code and certificate number is enforced by unique indexes;
// sequence allocation is an atomic upsert, never a count query.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) executor(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// InTx begins a transaction and threads it through the context, so every
// store call inside fn shares it. A failed insert rolls back the sequence
// bump allocated in the same attempt and numbering stays gap-free.
func (s *PostgresStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	if err := fn(txcontext.WithTx(ctx, dbtx)); err != nil {
		return err
	}
	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const credentialColumns = `
	id, institution_id, issuer_id, certificate_no, verification_code,
	student_name, student_id, date_of_birth, national_id,
	program_name, program_type, class_of_degree, cgpa,
	graduation_date, start_date, end_date, metadata,
	data_hash, anchor_status, ledger_reference,
	status, revoked_at, revoked_reason, revoked_by,
	created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, credential *models.Credential) error {
	metadata, err := json.Marshal(credential.Metadata)
	if err != nil {
		return fmt.Errorf("marshal credential metadata: %w", err)
	}

	_, err = s.executor(ctx).ExecContext(ctx, `
		INSERT INTO credentials (`+credentialColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26)`,
		uuid.UUID(credential.ID), uuid.UUID(credential.InstitutionID), uuid.UUID(credential.IssuerID),
		credential.CertificateNo, credential.VerificationCode,
		credential.StudentName, nullString(credential.StudentID), nullTime(credential.DateOfBirth), nullString(credential.NationalID),
		credential.ProgramName, string(credential.ProgramType), nullString(credential.ClassOfDegree), nullFloat(credential.CGPA),
		credential.GraduationDate, nullTime(credential.StartDate), nullTime(credential.EndDate), metadata,
		credential.DataHash, string(credential.AnchorStatus), nullString(credential.LedgerReference),
		string(credential.Status), nullTime(credential.RevokedAt), nullString(credential.RevokedReason), nullIssuerID(credential.RevokedBy),
		credential.CreatedAt, credential.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, credentialID id.CredentialID) (*models.Credential, error) {
	return s.findBy(ctx, "id = $1", uuid.UUID(credentialID))
}

func (s *PostgresStore) FindByCode(ctx context.Context, verificationCode string) (*models.Credential, error) {
	return s.findBy(ctx, "verification_code = $1", verificationCode)
}

func (s *PostgresStore) FindByNumber(ctx context.Context, certificateNo string) (*models.Credential, error) {
	return s.findBy(ctx, "certificate_no = $1", certificateNo)
}

func (s *PostgresStore) findBy(ctx context.Context, where string, arg any) (*models.Credential, error) {
	row := s.executor(ctx).QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE `+where, arg)
	credential, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return credential, nil
}

func (s *PostgresStore) VerificationCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.executor(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM credentials WHERE verification_code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check verification code: %w", err)
	}
	return exists, nil
}

// Execute runs validate-then-mutate under SELECT ... FOR UPDATE so
// concurrent lifecycle transitions on the same credential serialize.
func (s *PostgresStore) Execute(ctx context.Context, credentialID id.CredentialID,
	validate func(*models.Credential) error,
	mutate func(*models.Credential)) (*models.Credential, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin credential update: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE id = $1 FOR UPDATE`,
		uuid.UUID(credentialID))
	credential, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock credential: %w", err)
	}

	if err := validate(credential); err != nil {
		return nil, err
	}
	mutate(credential)

	_, err = tx.ExecContext(ctx, `
		UPDATE credentials SET
			status = $2, revoked_at = $3, revoked_reason = $4, revoked_by = $5,
			anchor_status = $6, ledger_reference = $7, updated_at = $8
		WHERE id = $1`,
		uuid.UUID(credential.ID),
		string(credential.Status), nullTime(credential.RevokedAt), nullString(credential.RevokedReason), nullIssuerID(credential.RevokedBy),
		string(credential.AnchorStatus), nullString(credential.LedgerReference), credential.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update credential: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit credential update: %w", err)
	}
	return credential, nil
}

// UpdateAnchorResult performs the single terminal writeback of the anchoring
// outcome. The WHERE clause only matches PENDING rows, so a duplicate or
// late writeback affects zero rows and is reported as ErrInvalidState.
func (s *PostgresStore) UpdateAnchorResult(ctx context.Context, credentialID id.CredentialID,
	status models.AnchorStatus, ledgerRef string, now time.Time) error {

	if !status.Terminal() {
		return sentinel.ErrInvalidState
	}
	res, err := s.executor(ctx).ExecContext(ctx, `
		UPDATE credentials
		SET anchor_status = $2, ledger_reference = $3, updated_at = $4
		WHERE id = $1 AND anchor_status = $5`,
		uuid.UUID(credentialID), string(status), nullString(ledgerRef), now, string(models.AnchorPending),
	)
	if err != nil {
		return fmt.Errorf("update anchor result: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update anchor result: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := s.executor(ctx).QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM credentials WHERE id = $1)`, uuid.UUID(credentialID)).Scan(&exists); err != nil {
			return fmt.Errorf("update anchor result: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

// NextSequence implements SequenceStore with an atomic upsert. The RETURNING
// value is computed inside the statement, so concurrent issuance for the
// same (institution, year) can never observe the same sequence.
func (s *PostgresStore) NextSequence(ctx context.Context, institutionCode string, year int) (int, error) {
	var value int
	err := s.executor(ctx).QueryRowContext(ctx, `
		INSERT INTO certificate_sequences (institution_code, year, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (institution_code, year)
		DO UPDATE SET value = certificate_sequences.value + 1
		RETURNING value`,
		institutionCode, year,
	).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("next certificate sequence: %w", err)
	}
	return value, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*models.Credential, error) {
	var (
		credential    models.Credential
		credID        uuid.UUID
		institutionID uuid.UUID
		issuerID      uuid.UUID
		studentID     sql.NullString
		dateOfBirth   sql.NullTime
		nationalID    sql.NullString
		classOfDegree sql.NullString
		cgpa          sql.NullFloat64
		startDate     sql.NullTime
		endDate       sql.NullTime
		metadata      []byte
		programType   string
		anchorStatus  string
		ledgerRef     sql.NullString
		status        string
		revokedAt     sql.NullTime
		revokedReason sql.NullString
		revokedBy     sql.Null[uuid.UUID]
	)
	err := row.Scan(
		&credID, &institutionID, &issuerID, &credential.CertificateNo, &credential.VerificationCode,
		&credential.StudentName, &studentID, &dateOfBirth, &nationalID,
		&credential.ProgramName, &programType, &classOfDegree, &cgpa,
		&credential.GraduationDate, &startDate, &endDate, &metadata,
		&credential.DataHash, &anchorStatus, &ledgerRef,
		&status, &revokedAt, &revokedReason, &revokedBy,
		&credential.CreatedAt, &credential.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	credential.ID = id.CredentialID(credID)
	credential.InstitutionID = id.InstitutionID(institutionID)
	credential.IssuerID = id.IssuerID(issuerID)
	credential.StudentID = studentID.String
	credential.NationalID = nationalID.String
	credential.ClassOfDegree = classOfDegree.String
	credential.ProgramType = models.ProgramType(programType)
	credential.AnchorStatus = models.AnchorStatus(anchorStatus)
	credential.LedgerReference = ledgerRef.String
	credential.Status = models.Status(status)
	credential.RevokedReason = revokedReason.String

	if dateOfBirth.Valid {
		credential.DateOfBirth = &dateOfBirth.Time
	}
	if cgpa.Valid {
		credential.CGPA = &cgpa.Float64
	}
	if startDate.Valid {
		credential.StartDate = &startDate.Time
	}
	if endDate.Valid {
		credential.EndDate = &endDate.Time
	}
	if revokedAt.Valid {
		credential.RevokedAt = &revokedAt.Time
	}
	if revokedBy.Valid {
		rb := id.IssuerID(revokedBy.V)
		credential.RevokedBy = &rb
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &credential.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal credential metadata: %w", err)
		}
	}
	return &credential, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullIssuerID(issuerID *id.IssuerID) sql.Null[uuid.UUID] {
	if issuerID == nil {
		return sql.Null[uuid.UUID]{}
	}
	return sql.Null[uuid.UUID]{V: uuid.UUID(*issuerID), Valid: true}
}
