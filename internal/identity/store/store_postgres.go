package store

import (
	"context"
	"database/sql"
	"fmt"

	"travelcred/internal/identity/models"
	"travelcred/pkg/domain"
	txctx "travelcred/pkg/platform/tx"
)

// PostgresStore persists officer sets in the officers table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Add(ctx context.Context, o models.Officer) (bool, error) {
	res, err := txctx.Querier(ctx, s.db).ExecContext(ctx,
		`INSERT INTO officers (kind, identity, added_at) VALUES ($1, $2, $3) ON CONFLICT (kind, identity) DO NOTHING`,
		string(o.Kind), string(o.Identity), o.AddedAt)
	if err != nil {
		return false, fmt.Errorf("insert officer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert officer: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresStore) Remove(ctx context.Context, kind domain.RegistryKind, identity domain.Identity) (bool, error) {
	res, err := txctx.Querier(ctx, s.db).ExecContext(ctx,
		`DELETE FROM officers WHERE kind = $1 AND identity = $2`,
		string(kind), string(identity))
	if err != nil {
		return false, fmt.Errorf("delete officer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete officer: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresStore) Exists(ctx context.Context, kind domain.RegistryKind, identity domain.Identity) (bool, error) {
	var exists bool
	err := txctx.Querier(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM officers WHERE kind = $1 AND identity = $2)`,
		string(kind), string(identity)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query officer: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Count(ctx context.Context, kind domain.RegistryKind) (int, error) {
	var n int
	err := txctx.Querier(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM officers WHERE kind = $1`, string(kind)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count officers: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) List(ctx context.Context, kind domain.RegistryKind) ([]models.Officer, error) {
	rows, err := txctx.Querier(ctx, s.db).QueryContext(ctx,
		`SELECT kind, identity, added_at FROM officers WHERE kind = $1 ORDER BY identity`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list officers: %w", err)
	}
	defer rows.Close()

	var out []models.Officer
	for rows.Next() {
		var o models.Officer
		var k, ident string
		if err := rows.Scan(&k, &ident, &o.AddedAt); err != nil {
			return nil, fmt.Errorf("scan officer: %w", err)
		}
		o.Kind = domain.RegistryKind(k)
		o.Identity = domain.Identity(ident)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list officers: %w", err)
	}
	return out, nil
}
