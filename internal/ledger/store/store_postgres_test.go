package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelcred/internal/ledger/models"
	"travelcred/internal/platform/postgres"
	txctx "travelcred/pkg/platform/tx"
)

func TestPostgresStore_AppendRequiresTx(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewPostgres(db).Append(context.Background(), draft(1))
	require.Error(t, err)
}

func TestPostgresStore_AppendChainsToTail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tailHash := make([]byte, models.HashSize)
	tailHash[0] = 0xab

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WithArgs(postgres.LockTransitions).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT seq, hash FROM transitions ORDER BY seq DESC LIMIT 1`)).
		WillReturnRows(sqlmock.NewRows([]string{"seq", "hash"}).AddRow(int64(41), tailHash))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO transitions`)).
		WithArgs(int64(42), sqlmock.AnyArg(), "visa", int64(7), "ApplyForVisa", sqlmock.AnyArg(),
			"Pending", "0xholder", "", "", sqlmock.AnyArg(), tailHash, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sqlTx, err := db.Begin()
	require.NoError(t, err)
	ctx := txctx.WithTx(context.Background(), sqlTx)

	sealed, err := NewPostgres(db).Append(ctx, draft(7))
	require.NoError(t, err)
	require.NoError(t, sqlTx.Commit())

	assert.Equal(t, uint64(42), sealed.Seq)
	assert.Equal(t, tailHash, sealed.PrevHash)
	require.NoError(t, models.VerifyChain([]models.Entry{sealed}, tailHash))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendFirstEntryUsesGenesis(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT seq, hash FROM transitions`).WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO transitions`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	sqlTx, err := db.Begin()
	require.NoError(t, err)
	sealed, err := NewPostgres(db).Append(txctx.WithTx(context.Background(), sqlTx), draft(1))
	require.NoError(t, err)
	require.NoError(t, sqlTx.Rollback())

	assert.Equal(t, uint64(1), sealed.Seq)
	assert.Equal(t, models.GenesisHash, sealed.PrevHash)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	eventID := uuid.New()
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM transitions WHERE seq > $1 ORDER BY seq LIMIT $2`)).
		WithArgs(int64(10), 2).
		WillReturnRows(sqlmock.NewRows([]string{
			"seq", "event_id", "registry", "entity_id", "operation", "arguments", "resulting_status",
			"actor", "client", "request_id", "occurred_at", "prev_hash", "hash",
		}).AddRow(int64(11), eventID.String(), "passport", int64(3), "IssuePassport",
			[]byte(`{"validity_years": 10}`), "Active", "0xofficer", "Chrome/Linux", "req-1", at, []byte{1}, []byte{2}))

	entries, err := NewPostgres(db).List(context.Background(), 10, 2)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, uint64(11), e.Seq)
	assert.Equal(t, eventID, e.EventID)
	assert.Equal(t, models.SourcePassport, e.Source)
	assert.Equal(t, models.OpIssuePassport, e.Operation)
	assert.Equal(t, json.RawMessage(`{"validity_years":10}`), e.Arguments)
	assert.Equal(t, "Chrome/Linux", e.Client)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListCursorPastBigintMatchesMemory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	entries, err := NewPostgres(db).List(context.Background(), math.MaxUint64, 50)
	require.NoError(t, err)
	assert.Empty(t, entries)
	require.NoError(t, mock.ExpectationsWereMet())

	mem, err := NewInMemory().List(context.Background(), math.MaxUint64, 50)
	require.NoError(t, err)
	assert.Empty(t, mem)
}
