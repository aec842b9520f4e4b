package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"travelcred/internal/ledger/models"
	"travelcred/internal/platform/postgres"
	"travelcred/pkg/domain"
	"travelcred/pkg/platform/sentinel"
	txctx "travelcred/pkg/platform/tx"
)

// PostgresStore persists the transition log. Appends must run inside a
// registry transaction; the advisory lock taken here serializes the log tail
// across registries until that transaction ends.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const insertTransition = `INSERT INTO transitions (
	seq, event_id, registry, entity_id, operation, arguments, resulting_status,
	actor, client, request_id, occurred_at, prev_hash, hash
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

const selectTransitions = `SELECT seq, event_id, registry, entity_id, operation, arguments,
	resulting_status, actor, client, request_id, occurred_at, prev_hash, hash
FROM transitions WHERE seq > $1 ORDER BY seq LIMIT $2`

func (s *PostgresStore) Append(ctx context.Context, e models.Entry) (models.Entry, error) {
	tx, ok := txctx.From(ctx)
	if !ok {
		return models.Entry{}, errors.New("transition append requires a transaction")
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, postgres.LockTransitions); err != nil {
		return models.Entry{}, fmt.Errorf("lock transitions: %w", err)
	}

	var (
		lastSeq  int64
		lastHash []byte
	)
	err := tx.QueryRowContext(ctx, `SELECT seq, hash FROM transitions ORDER BY seq DESC LIMIT 1`).Scan(&lastSeq, &lastHash)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		lastHash = models.GenesisHash
	case err != nil:
		return models.Entry{}, fmt.Errorf("read transitions tail: %w", err)
	}

	sealed, err := models.Seal(e, uint64(lastSeq)+1, lastHash)
	if err != nil {
		return models.Entry{}, err
	}

	_, err = tx.ExecContext(ctx, insertTransition,
		int64(sealed.Seq),
		sealed.EventID,
		string(sealed.Source),
		int64(sealed.EntityID),
		string(sealed.Operation),
		[]byte(sealed.Arguments),
		sealed.ResultingStatus,
		sealed.Actor.String(),
		sealed.Client,
		sealed.RequestID,
		sealed.OccurredAt,
		sealed.PrevHash,
		sealed.Hash,
	)
	if err != nil {
		return models.Entry{}, fmt.Errorf("insert transition: %w", err)
	}
	return sealed, nil
}

func (s *PostgresStore) List(ctx context.Context, afterSeq uint64, limit int) ([]models.Entry, error) {
	if afterSeq > math.MaxInt64 {
		return []models.Entry{}, nil
	}
	rows, err := txctx.Querier(ctx, s.db).QueryContext(ctx, selectTransitions, int64(afterSeq), limit)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	out := []models.Entry{}
	for rows.Next() {
		var (
			e        models.Entry
			seq      int64
			entityID int64
			eventID  uuid.UUID
			source   string
			op       string
			actor    string
			args     []byte
		)
		if err := rows.Scan(&seq, &eventID, &source, &entityID, &op, &args,
			&e.ResultingStatus, &actor, &e.Client, &e.RequestID, &e.OccurredAt, &e.PrevHash, &e.Hash); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		e.Seq = uint64(seq)
		e.EventID = eventID
		e.Source = models.Source(source)
		e.EntityID = uint64(entityID)
		e.Operation = models.Operation(op)
		e.Actor = domain.Identity(actor)
		e.OccurredAt = e.OccurredAt.UTC()
		if e.Arguments, err = models.CanonicalArguments(args); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) HashAt(ctx context.Context, seq uint64) ([]byte, error) {
	if seq == 0 {
		return models.GenesisHash, nil
	}
	var hash []byte
	err := txctx.Querier(ctx, s.db).QueryRowContext(ctx, `SELECT hash FROM transitions WHERE seq = $1`, int64(seq)).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read transition hash: %w", err)
	}
	return hash, nil
}
