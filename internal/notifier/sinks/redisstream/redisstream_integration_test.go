//go:build integration

package redisstream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelcred/internal/notifier"
	"travelcred/pkg/testutil/containers"
)

func TestSink_AppendsToStream(t *testing.T) {
	rc := containers.GetManager().GetRedis(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	sink := New(rc.Client, "travelcred.events.it")
	for i := 1; i <= 3; i++ {
		require.NoError(t, sink.Deliver(ctx, notifier.Event{Seq: uint64(i), Type: notifier.VisaApplied, EntityID: uint64(i)}))
	}

	msgs, err := rc.Client.XRange(ctx, "travelcred.events.it", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "1", msgs[0].Values["seq"])
	assert.Equal(t, "visa/3", msgs[2].Values["key"])
}
