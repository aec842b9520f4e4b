package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"travelcred/internal/platform/postgres"
	"travelcred/internal/visa/models"
	"travelcred/pkg/domain"
	"travelcred/pkg/platform/sentinel"
	txctx "travelcred/pkg/platform/tx"
)

// PostgresStore persists visas. Mutations expect to run inside the visa
// registry transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const visaColumns = `id, passport_id, applicant, destination_country, visa_type, application_date,
	issue_date, expiry_date, status, approved_by, rejection_reason, revocation_reason`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVisa(row rowScanner) (*models.Visa, error) {
	var (
		v                   models.Visa
		id, passportID      int64
		applicant, approver string
		visaType, status    int16
		issue, expiry       sql.NullTime
	)
	err := row.Scan(&id, &passportID, &applicant, &v.DestinationCountry, &visaType, &v.ApplicationDate,
		&issue, &expiry, &status, &approver, &v.RejectionReason, &v.RevocationReason)
	if err != nil {
		return nil, err
	}
	t, ok := models.TypeFromOrdinal(int(visaType))
	if !ok {
		return nil, fmt.Errorf("visa %d has unknown type ordinal %d", id, visaType)
	}
	v.ID = domain.VisaID(id)
	v.PassportID = domain.PassportID(passportID)
	v.Applicant = domain.Identity(applicant)
	v.ApprovedBy = domain.Identity(approver)
	v.Type = t
	v.ApplicationDate = v.ApplicationDate.UTC()
	if issue.Valid {
		v.IssueDate = issue.Time.UTC()
	}
	if expiry.Valid {
		v.ExpiryDate = expiry.Time.UTC()
	}
	v.Status = statusFromOrdinal(status)
	return &v, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func (s *PostgresStore) NextID(ctx context.Context) (domain.VisaID, error) {
	var next int64
	err := txctx.Querier(ctx, s.db).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(id), 0) + 1 FROM visas`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("allocate visa id: %w", err)
	}
	return domain.VisaID(next), nil
}

func (s *PostgresStore) Create(ctx context.Context, v *models.Visa) error {
	_, err := txctx.Querier(ctx, s.db).ExecContext(ctx,
		`INSERT INTO visas (`+visaColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		int64(v.ID), int64(v.PassportID), string(v.Applicant), v.DestinationCountry, int16(v.Type.Ordinal()),
		v.ApplicationDate, nullTime(v.IssueDate), nullTime(v.ExpiryDate), statusOrdinal(v.Status),
		string(v.ApprovedBy), v.RejectionReason, v.RevocationReason)
	if err != nil {
		if postgres.IsUniqueViolation(err, "visas_pkey") {
			return fmt.Errorf("insert visa: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert visa: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.VisaID) (*models.Visa, error) {
	row := txctx.Querier(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+visaColumns+` FROM visas WHERE id = $1`, int64(id))
	v, err := scanVisa(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find visa: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) IDsByApplicant(ctx context.Context, applicant domain.Identity) ([]domain.VisaID, error) {
	rows, err := txctx.Querier(ctx, s.db).QueryContext(ctx,
		`SELECT id FROM visas WHERE applicant = $1 ORDER BY id`, string(applicant))
	if err != nil {
		return nil, fmt.Errorf("find visas by applicant: %w", err)
	}
	defer rows.Close()
	ids := make([]domain.VisaID, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan visa id: %w", err)
		}
		ids = append(ids, domain.VisaID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visa ids: %w", err)
	}
	return ids, nil
}

// Execute locks the row, validates, mutates and writes back the lifecycle
// columns.
func (s *PostgresStore) Execute(ctx context.Context, id domain.VisaID, validate func(*models.Visa) error, mutate func(*models.Visa)) (*models.Visa, error) {
	q := txctx.Querier(ctx, s.db)
	row := q.QueryRowContext(ctx,
		`SELECT `+visaColumns+` FROM visas WHERE id = $1 FOR UPDATE`, int64(id))
	v, err := scanVisa(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock visa: %w", err)
	}
	if err := validate(v); err != nil {
		return nil, err
	}
	mutate(v)
	_, err = q.ExecContext(ctx,
		`UPDATE visas SET status = $2, issue_date = $3, expiry_date = $4, approved_by = $5,
		rejection_reason = $6, revocation_reason = $7 WHERE id = $1`,
		int64(v.ID), statusOrdinal(v.Status), nullTime(v.IssueDate), nullTime(v.ExpiryDate),
		string(v.ApprovedBy), v.RejectionReason, v.RevocationReason)
	if err != nil {
		return nil, fmt.Errorf("update visa: %w", err)
	}
	return v, nil
}

// List mirrors the passport listing: Approved and Expired are derived from
// expiry_date, every other status matches its stored ordinal.
func (s *PostgresStore) List(ctx context.Context, f models.ListFilter) ([]*models.Visa, error) {
	if f.AfterID > math.MaxInt64 {
		return []*models.Visa{}, nil
	}
	args := []any{int64(f.AfterID)}
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	query := `SELECT ` + visaColumns + ` FROM visas WHERE id > $1`
	if len(f.Statuses) > 0 {
		var (
			clauses []string
			stored  []int64
		)
		approved := statusOrdinal(models.StatusApproved)
		for _, st := range f.Statuses {
			switch st {
			case models.StatusApproved:
				clauses = append(clauses, fmt.Sprintf("(status = %d AND expiry_date > %s)", approved, next(f.Now)))
			case models.StatusExpired:
				clauses = append(clauses, fmt.Sprintf("(status = %d AND expiry_date <= %s)", approved, next(f.Now)))
			default:
				stored = append(stored, int64(statusOrdinal(st)))
			}
		}
		if len(stored) > 0 {
			clauses = append(clauses, "status = ANY("+next(pq.Array(stored))+"::smallint[])")
		}
		query += " AND (" + strings.Join(clauses, " OR ") + ")"
	}
	query += " ORDER BY id"
	if f.Limit > 0 {
		query += " LIMIT " + next(f.Limit)
	}

	rows, err := txctx.Querier(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list visas: %w", err)
	}
	defer rows.Close()
	out := make([]*models.Visa, 0)
	for rows.Next() {
		v, err := scanVisa(rows)
		if err != nil {
			return nil, fmt.Errorf("scan visa: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visas: %w", err)
	}
	return out, nil
}
