package logger_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/audit"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/logger"
)

func TestRequestIDFromContext(t *testing.T) {
	t.Parallel()

	_, ok := logger.RequestIDFromContext(context.Background())
	assert.False(t, ok)

	ctx := logger.WithRequestID(context.Background(), "")
	_, ok = logger.RequestIDFromContext(ctx)
	assert.False(t, ok, "empty ids are not stored")

	ctx = logger.WithRequestID(ctx, "req-42")
	id, ok := logger.RequestIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "req-42", id)
}

func TestRequestIDFromContext_StampsAuditRecords(t *testing.T) {
	t.Parallel()

	storage := audit.NewMemoryStorage()
	recorder := audit.NewRecorder(storage, audit.WithRequestIDExtractor(logger.RequestIDFromContext))

	ctx := logger.WithRequestID(context.Background(), "sweep-7")
	itemID := uuid.New()
	require.NoError(t, recorder.Record(ctx, audit.Event{ItemID: itemID, Action: audit.ActionTransition}))

	stored, err := storage.Query(context.Background(), audit.Criteria{ItemID: itemID})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "sweep-7", stored[0].RequestID)
}
