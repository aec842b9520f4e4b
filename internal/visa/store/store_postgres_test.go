package store

import (
	"context"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelcred/internal/visa/models"
	"travelcred/pkg/domain"
	"travelcred/pkg/platform/sentinel"
)

var visaCols = []string{"id", "passport_id", "applicant", "destination_country", "visa_type", "application_date",
	"issue_date", "expiry_date", "status", "approved_by", "rejection_reason", "revocation_reason"}

func newMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), mock
}

func TestPostgresStore_CreateWritesTypeOrdinal(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO visas`).
		WithArgs(int64(1), int64(7), "0xa", "JPN", int16(3), t0, sqlmock.AnyArg(), sqlmock.AnyArg(), int16(0), "", "", "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	v := models.NewVisa(1, "0xa", models.Application{PassportID: 7, DestinationCountry: "JPN", Type: models.TypeWork}, t0)
	require.NoError(t, store.Create(context.Background(), v))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateMapsPrimaryKeyCollision(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO visas`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "visas_pkey"})

	v := models.NewVisa(1, "0xa", models.Application{PassportID: 1, Type: models.TypeTourist}, t0)
	assert.ErrorIs(t, store.Create(context.Background(), v), sentinel.ErrConflict)
}

func TestPostgresStore_FindByIDScansApprovedVisa(t *testing.T) {
	store, mock := newMock(t)
	expiry := t0.Add(180 * 24 * time.Hour)
	mock.ExpectQuery(`SELECT .* FROM visas WHERE id = \$1`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(visaCols).
			AddRow(int64(2), int64(1), "0xa", "FRA", int16(1), t0, t0, expiry, int16(1), "0xofficer", "", ""))

	v, err := store.FindByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, models.TypeBusiness, v.Type)
	assert.Equal(t, models.StatusApproved, v.Status)
	assert.Equal(t, domain.Identity("0xofficer"), v.ApprovedBy)
	assert.Equal(t, expiry, v.ExpiryDate)
}

func TestPostgresStore_FindByIDRejectsUnknownType(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(`SELECT .* FROM visas WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(visaCols).
			AddRow(int64(2), int64(1), "0xa", "FRA", int16(9), t0, nil, nil, int16(0), "", "", ""))

	_, err := store.FindByID(context.Background(), 2)
	require.Error(t, err)
	assert.NotErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresStore_IDsByApplicant(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(`SELECT id FROM visas WHERE applicant = \$1 ORDER BY id`).
		WithArgs("0xa").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(4)))

	ids, err := store.IDsByApplicant(context.Background(), "0xa")
	require.NoError(t, err)
	assert.Equal(t, []domain.VisaID{1, 4}, ids)
}

func TestPostgresStore_ExecuteRejectWritesReason(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(`SELECT .* FROM visas WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(visaCols).
			AddRow(int64(1), int64(1), "0xa", "FRA", int16(0), t0, nil, nil, int16(0), "", "", ""))
	mock.ExpectExec(`UPDATE visas SET status = \$2`).
		WithArgs(int64(1), int16(2), sqlmock.AnyArg(), sqlmock.AnyArg(), "", "missing documents", "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	v, err := store.Execute(context.Background(), 1,
		func(v *models.Visa) error { return v.CanReject(t0) },
		func(v *models.Visa) { v.ApplyReject("missing documents") })
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, v.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListBuildsDerivedStatusFilter(t *testing.T) {
	store, mock := newMock(t)
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id > $1 AND ((status = 1 AND expiry_date > $2) OR status = ANY($3::smallint[])) ORDER BY id LIMIT $4`)).
		WithArgs(int64(0), now, sqlmock.AnyArg(), 50).
		WillReturnRows(sqlmock.NewRows(visaCols))

	list, err := store.List(context.Background(), models.ListFilter{
		Statuses: []models.Status{models.StatusApproved, models.StatusPending},
		Limit:    50,
		Now:      now,
	})
	require.NoError(t, err)
	assert.Empty(t, list)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListCursorPastBigintIsEmpty(t *testing.T) {
	store, mock := newMock(t)

	list, err := store.List(context.Background(), models.ListFilter{AfterID: math.MaxInt64 + 1, Limit: 50})
	require.NoError(t, err)
	assert.Empty(t, list)
	require.NoError(t, mock.ExpectationsWereMet())
}
