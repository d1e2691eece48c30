package rabbitmq_adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"interior-sync-service/internal/constants"
	"interior-sync-service/internal/contextkeys"
	"interior-sync-service/internal/contracts"
	"interior-sync-service/internal/core/domain"
	"interior-sync-service/internal/core/port"

	amqp "github.com/rabbitmq/amqp091-go"
)

// publisher - то, что репортеру нужно от rabbitmq_producer.Publisher
type publisher interface {
	Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error
}

// SyncRunCompletedEvent - тело события interior.sync.completed
type SyncRunCompletedEvent struct {
	LogID         string    `json:"log_id"`
	SheetID       string    `json:"sheet_id"`
	Direction     string    `json:"direction"`
	Preview       bool      `json:"preview"`
	Status        string    `json:"status"`
	StartedAt     time.Time `json:"started_at"`
	CompletedAt   time.Time `json:"completed_at"`
	RowsTotal     int       `json:"rows_total"`
	RowsSucceeded int       `json:"rows_succeeded"`
	RowsSkipped   int       `json:"rows_skipped"`
	RowsFailed    int       `json:"rows_failed"`
	ErrorCount    int       `json:"error_count"`
}

func newSyncRunCompletedEvent(entry *domain.SyncLogEntry) SyncRunCompletedEvent {
	completedAt := time.Now().UTC()
	if entry.CompletedAt != nil {
		completedAt = *entry.CompletedAt
	}
	return SyncRunCompletedEvent{
		LogID:         entry.ID.String(),
		SheetID:       entry.SheetID,
		Direction:     string(entry.Direction),
		Preview:       entry.Preview,
		Status:        string(entry.Status),
		StartedAt:     entry.StartedAt,
		CompletedAt:   completedAt,
		RowsTotal:     entry.RowsTotal,
		RowsSucceeded: entry.RowsSucceeded,
		RowsSkipped:   entry.RowsSkipped,
		RowsFailed:    entry.RowsFailed,
		ErrorCount:    len(entry.Errors),
	}
}

// SyncReporterAdapter реализует SyncReporterPort публикацией события в RabbitMQ
type SyncReporterAdapter struct {
	producer   publisher
	routingKey string
}

func NewSyncReporterAdapter(producer publisher, routingKey string) (*SyncReporterAdapter, error) {
	if producer == nil {
		return nil, fmt.Errorf("rabbitmq adapter: producer cannot be nil")
	}
	if routingKey == "" {
		return nil, fmt.Errorf("rabbitmq adapter: routingKey cannot be empty")
	}
	return &SyncReporterAdapter{producer: producer, routingKey: routingKey}, nil
}

func (a *SyncReporterAdapter) ReportCompleted(ctx context.Context, entry *domain.SyncLogEntry) error {
	logger := contextkeys.LoggerFromContext(ctx)
	adapterLogger := logger.WithFields(port.Fields{
		"component":   "SyncReporterAdapter",
		"routing_key": a.routingKey,
		"log_id":      entry.ID.String(),
	})

	body, err := json.Marshal(newSyncRunCompletedEvent(entry))
	if err != nil {
		adapterLogger.Error("Failed to marshal sync completed event", err, nil)
		return fmt.Errorf("failed to marshal sync completed event: %w", err)
	}
	if err := contracts.ValidateEvent(contracts.SyncRunCompletedEvent, contracts.Version1, body); err != nil {
		adapterLogger.Error("Sync completed event failed schema validation", err, nil)
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers: amqp.Table{
			constants.HeaderEventType:    contracts.SyncRunCompletedEvent,
			constants.HeaderEventVersion: contracts.Version1,
		},
	}
	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		msg.Headers[constants.HeaderTraceID] = traceID
	}

	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.producer.Publish(publishCtx, a.routingKey, msg); err != nil {
		adapterLogger.Error("Failed to publish sync completed event", err, nil)
		return fmt.Errorf("rabbitmq adapter: failed to publish sync completed event %s: %w", entry.ID, err)
	}

	adapterLogger.Info("Sync completed event published", port.Fields{"status": string(entry.Status)})
	return nil
}
