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

	"travelcred/internal/passport/models"
	"travelcred/internal/platform/postgres"
	"travelcred/pkg/domain"
	"travelcred/pkg/platform/sentinel"
	txctx "travelcred/pkg/platform/tx"
)

// PostgresStore persists passports. Mutations expect to run inside the
// passport registry transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const passportColumns = `id, holder, full_name, date_of_birth, nationality, passport_number,
	issue_date, expiry_date, status, document_pointer, revocation_reason, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPassport(row rowScanner) (*models.Passport, error) {
	var (
		p             models.Passport
		id            int64
		holder        string
		issue, expiry sql.NullTime
		status        int16
	)
	err := row.Scan(&id, &holder, &p.FullName, &p.DateOfBirth, &p.Nationality, &p.PassportNumber,
		&issue, &expiry, &status, &p.DocumentPointer, &p.RevocationReason, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.ID = domain.PassportID(id)
	p.Holder = domain.Identity(holder)
	if issue.Valid {
		p.IssueDate = issue.Time.UTC()
	}
	if expiry.Valid {
		p.ExpiryDate = expiry.Time.UTC()
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.Status = statusFromOrdinal(status)
	return &p, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func (s *PostgresStore) NextID(ctx context.Context) (domain.PassportID, error) {
	var next int64
	err := txctx.Querier(ctx, s.db).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(id), 0) + 1 FROM passports`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("allocate passport id: %w", err)
	}
	return domain.PassportID(next), nil
}

func (s *PostgresStore) Create(ctx context.Context, p *models.Passport) error {
	_, err := txctx.Querier(ctx, s.db).ExecContext(ctx,
		`INSERT INTO passports (`+passportColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		int64(p.ID), string(p.Holder), p.FullName, p.DateOfBirth, p.Nationality, p.PassportNumber,
		nullTime(p.IssueDate), nullTime(p.ExpiryDate), statusOrdinal(p.Status),
		p.DocumentPointer, p.RevocationReason, p.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, "passports_number_key") || postgres.IsUniqueViolation(err, "passports_pkey") {
			return fmt.Errorf("insert passport: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert passport: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.PassportID) (*models.Passport, error) {
	row := txctx.Querier(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+passportColumns+` FROM passports WHERE id = $1`, int64(id))
	p, err := scanPassport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find passport: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) FindByHolder(ctx context.Context, holder domain.Identity) ([]*models.Passport, error) {
	rows, err := txctx.Querier(ctx, s.db).QueryContext(ctx,
		`SELECT `+passportColumns+` FROM passports WHERE holder = $1 ORDER BY id`, string(holder))
	if err != nil {
		return nil, fmt.Errorf("find passports by holder: %w", err)
	}
	return collect(rows)
}

func (s *PostgresStore) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := txctx.Querier(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM passports WHERE passport_number = $1)`, number).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check passport number: %w", err)
	}
	return exists, nil
}

// Execute locks the row, validates, mutates and writes back the lifecycle
// columns.
func (s *PostgresStore) Execute(ctx context.Context, id domain.PassportID, validate func(*models.Passport) error, mutate func(*models.Passport)) (*models.Passport, error) {
	q := txctx.Querier(ctx, s.db)
	row := q.QueryRowContext(ctx,
		`SELECT `+passportColumns+` FROM passports WHERE id = $1 FOR UPDATE`, int64(id))
	p, err := scanPassport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock passport: %w", err)
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	mutate(p)
	_, err = q.ExecContext(ctx,
		`UPDATE passports SET status = $2, issue_date = $3, expiry_date = $4, revocation_reason = $5 WHERE id = $1`,
		int64(p.ID), statusOrdinal(p.Status), nullTime(p.IssueDate), nullTime(p.ExpiryDate), p.RevocationReason)
	if err != nil {
		return nil, fmt.Errorf("update passport: %w", err)
	}
	return p, nil
}

// List translates the derived-status filter into SQL: Pending and Revoked
// match the stored ordinal, Active and Expired compare expiry_date to f.Now.
func (s *PostgresStore) List(ctx context.Context, f models.ListFilter) ([]*models.Passport, error) {
	if f.AfterID > math.MaxInt64 {
		return []*models.Passport{}, nil
	}
	args := []any{int64(f.AfterID)}
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	query := `SELECT ` + passportColumns + ` FROM passports WHERE id > $1`
	if len(f.Statuses) > 0 {
		var (
			clauses []string
			stored  []int64
		)
		for _, st := range f.Statuses {
			switch st {
			case models.StatusActive:
				clauses = append(clauses, fmt.Sprintf("(status = %d AND expiry_date > %s)", statusOrdinal(models.StatusActive), next(f.Now)))
			case models.StatusExpired:
				clauses = append(clauses, fmt.Sprintf("(status = %d AND expiry_date <= %s)", statusOrdinal(models.StatusActive), next(f.Now)))
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
		return nil, fmt.Errorf("list passports: %w", err)
	}
	return collect(rows)
}

func collect(rows *sql.Rows) ([]*models.Passport, error) {
	defer rows.Close()
	out := make([]*models.Passport, 0)
	for rows.Next() {
		p, err := scanPassport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan passport: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passports: %w", err)
	}
	return out, nil
}
