package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelcred/internal/ledger/models"
	"travelcred/internal/ledger/store"
	dErrors "travelcred/pkg/domain-errors"
	"travelcred/pkg/requestcontext"
)

func TestRecord(t *testing.T) {
	svc := New(store.NewInMemory())
	now := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-42")
	ctx = requestcontext.WithClientMetadata(ctx, "10.0.0.1", "curl/8.0", "curl")

	entry, err := svc.Record(ctx, models.Draft{
		Source:          models.SourcePassport,
		EntityID:        1,
		Operation:       models.OpIssuePassport,
		Arguments:       map[string]any{"validity_years": 10},
		ResultingStatus: "Active",
		Actor:           "0xofficer",
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), entry.Seq)
	assert.Equal(t, now, entry.OccurredAt)
	assert.Equal(t, "req-42", entry.RequestID)
	assert.Equal(t, "curl", entry.Client)
	assert.JSONEq(t, `{"validity_years":10}`, string(entry.Arguments))
	assert.NotEqual(t, [16]byte{}, [16]byte(entry.EventID))
}

func TestListAndVerify(t *testing.T) {
	svc := New(store.NewInMemory())
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		_, err := svc.Record(ctx, models.Draft{Source: models.SourceVisa, EntityID: uint64(i), Operation: models.OpApplyForVisa, ResultingStatus: "Pending", Actor: "0xa"})
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NoError(t, svc.Verify(ctx, 1, page))

	page[0].Arguments = json.RawMessage(`{"forged":true}`)
	err = svc.Verify(ctx, 1, page)
	require.Error(t, err)

	err = svc.Verify(ctx, 99, nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, clampLimit(0))
	assert.Equal(t, MaxListLimit, clampLimit(10_000))
	assert.Equal(t, 7, clampLimit(7))
}
