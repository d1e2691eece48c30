package rabbitmq_adapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"interior-sync-service/internal/constants"
	"interior-sync-service/internal/contextkeys"
	"interior-sync-service/internal/contracts"
	"interior-sync-service/internal/core/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	routingKey string
	msgs       []amqp.Publishing
	err        error
}

func (f *fakePublisher) Publish(_ context.Context, routingKey string, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.routingKey = routingKey
	f.msgs = append(f.msgs, msg)
	return nil
}

func finishedEntry(t *testing.T) *domain.SyncLogEntry {
	t.Helper()
	entry := domain.NewSyncLogEntry("sheet-1", domain.DirectionPull, false)
	now := time.Now().UTC()
	entry.Status = domain.SyncStatusPartial
	entry.CompletedAt = &now
	entry.RowsTotal = 3
	entry.RowsSucceeded = 2
	entry.RowsFailed = 1
	entry.Errors = []domain.SyncError{{RowIndex: 4, Kind: domain.SyncErrorParse, Message: "bad area"}}
	return entry
}

func TestSyncReporterAdapter_ReportCompleted(t *testing.T) {
	pub := &fakePublisher{}
	reporter, err := NewSyncReporterAdapter(pub, constants.RoutingKeySyncCompleted)
	require.NoError(t, err)

	ctx := contextkeys.ContextWithTraceID(context.Background(), "trace-42")
	entry := finishedEntry(t)
	require.NoError(t, reporter.ReportCompleted(ctx, entry))

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, constants.RoutingKeySyncCompleted, pub.routingKey)

	msg := pub.msgs[0]
	assert.Equal(t, "trace-42", msg.Headers[constants.HeaderTraceID])
	assert.Equal(t, contracts.SyncRunCompletedEvent, msg.Headers[constants.HeaderEventType])
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)

	var event SyncRunCompletedEvent
	require.NoError(t, json.Unmarshal(msg.Body, &event))
	assert.Equal(t, entry.ID.String(), event.LogID)
	assert.Equal(t, "PARTIAL", event.Status)
	assert.Equal(t, 1, event.ErrorCount)
	assert.Equal(t, 3, event.RowsTotal)
}

func TestSyncReporterAdapter_RejectsRunningEntry(t *testing.T) {
	pub := &fakePublisher{}
	reporter, err := NewSyncReporterAdapter(pub, constants.RoutingKeySyncCompleted)
	require.NoError(t, err)

	entry := domain.NewSyncLogEntry("sheet-1", domain.DirectionPush, false)
	err = reporter.ReportCompleted(context.Background(), entry)
	require.Error(t, err)
	assert.Empty(t, pub.msgs)
}

func TestSyncReporterAdapter_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}
	reporter, err := NewSyncReporterAdapter(pub, constants.RoutingKeySyncCompleted)
	require.NoError(t, err)

	err = reporter.ReportCompleted(context.Background(), finishedEntry(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel closed")
}

func TestNewSyncReporterAdapter_Validation(t *testing.T) {
	_, err := NewSyncReporterAdapter(nil, "key")
	assert.Error(t, err)
	_, err = NewSyncReporterAdapter(&fakePublisher{}, "")
	assert.Error(t, err)
}
