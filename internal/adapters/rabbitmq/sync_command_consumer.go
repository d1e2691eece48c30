package rabbitmq_adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"interior-sync-service/internal/constants"
	"interior-sync-service/internal/contextkeys"
	"interior-sync-service/internal/contracts"
	"interior-sync-service/internal/core/domain"
	"interior-sync-service/internal/core/port"
	"interior-sync-service/internal/core/port/usecases_port"
	"interior-sync-service/pkg/rabbitmq/rabbitmq_common"
	"interior-sync-service/pkg/rabbitmq/rabbitmq_consumer"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// SyncCommandDTO - тело команды interior.sync.command
type SyncCommandDTO struct {
	SheetID   string `json:"sheet_id"`
	Direction string `json:"direction"`
	Preview   bool   `json:"preview"`
}

// SyncCommandConsumerAdapter запускает прогоны по командам из очереди
type SyncCommandConsumerAdapter struct {
	consumer  *rabbitmq_consumer.DistributingConsumer
	pullUC    usecases_port.PullFromSheetUseCase
	pushUC    usecases_port.PushToSheetUseCase
	previewUC usecases_port.PreviewSyncUseCase
	logger    port.LoggerPort
}

func NewSyncCommandConsumerAdapter(
	consumerCfg rabbitmq_consumer.ConsumerConfig,
	pullUC usecases_port.PullFromSheetUseCase,
	pushUC usecases_port.PushToSheetUseCase,
	previewUC usecases_port.PreviewSyncUseCase,
	logger port.LoggerPort,
	connManager *rabbitmq_common.ConnectionManager,
) (*SyncCommandConsumerAdapter, error) {

	adapter := &SyncCommandConsumerAdapter{
		pullUC:    pullUC,
		pushUC:    pushUC,
		previewUC: previewUC,
		logger:    logger,
	}

	pkgLogger := logger.WithFields(port.Fields{"component": "rabbitmq_distributing_consumer", "queue": consumerCfg.QueueName})
	consumerCfg.Logger = NewPkgLoggerBridge(pkgLogger)

	consumer, err := rabbitmq_consumer.NewDistributingConsumer(consumerCfg, adapter.messageHandler, connManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ consumer for sync commands: %w", err)
	}
	adapter.consumer = consumer

	return adapter, nil
}

func (a *SyncCommandConsumerAdapter) messageHandler(ctx context.Context, d amqp.Delivery) error {
	traceID, ok := d.Headers[constants.HeaderTraceID].(string)
	if !ok || traceID == "" {
		traceID = uuid.New().String()
	}

	msgLogger := a.logger.WithFields(port.Fields{
		"trace_id":     traceID,
		"delivery_tag": d.DeliveryTag,
	})
	ctx = contextkeys.ContextWithLogger(ctx, msgLogger)
	ctx = contextkeys.ContextWithTraceID(ctx, traceID)

	if err := contracts.ValidateEvent(contracts.SyncCommand, contracts.Version1, d.Body); err != nil {
		msgLogger.Error("Sync command failed schema validation", err, nil)
		return err
	}

	var cmd SyncCommandDTO
	if err := json.Unmarshal(d.Body, &cmd); err != nil {
		msgLogger.Error("Error unmarshalling sync command", err, nil)
		return fmt.Errorf("unmarshal error: %w", err)
	}
	direction, err := domain.ParseSyncDirection(cmd.Direction)
	if err != nil {
		msgLogger.Error("Invalid sync direction", err, nil)
		return err
	}

	cmdLogger := msgLogger.WithFields(port.Fields{
		"sheet_id":  cmd.SheetID,
		"direction": string(direction),
		"preview":   cmd.Preview,
	})
	ctx = contextkeys.ContextWithLogger(ctx, cmdLogger)
	cmdLogger.Info("Received sync command", nil)

	log, runErr := a.dispatch(ctx, cmd.SheetID, direction, cmd.Preview)
	if runErr == nil {
		return nil
	}
	if log == nil {
		// прогон даже не был записан в журнал - стоит повторить
		cmdLogger.Error("Sync run could not start", runErr, nil)
		return runErr
	}

	var transportErr *domain.TransportError
	if errors.As(runErr, &transportErr) && transportErr.RateLimited {
		cmdLogger.Warn("Sync run was rate limited, scheduling retry", port.Fields{"log_id": log.ID.String()})
		return runErr
	}

	// прогон завершен и записан в журнал со статусом FAILED, повтор ничего не даст
	cmdLogger.Error("Sync run failed", runErr, port.Fields{"log_id": log.ID.String(), "status": string(log.Status)})
	return nil
}

// dispatch возвращает финальную запись журнала, если прогон до нее дошел
func (a *SyncCommandConsumerAdapter) dispatch(ctx context.Context, sheetID string, direction domain.SyncDirection, preview bool) (*domain.SyncLogEntry, error) {
	switch {
	case preview:
		res, err := a.previewUC.Execute(ctx, sheetID, direction)
		if res == nil {
			return nil, err
		}
		return res.Log, err
	case direction == domain.DirectionPull:
		res, err := a.pullUC.Execute(ctx, sheetID)
		if res == nil {
			return nil, err
		}
		return res.Log, err
	default:
		res, err := a.pushUC.Execute(ctx, sheetID)
		if res == nil {
			return nil, err
		}
		return res.Log, err
	}
}

// Start реализует SyncCommandListenerPort
func (a *SyncCommandConsumerAdapter) Start(ctx context.Context) error {
	return a.consumer.StartConsuming(ctx)
}

// Close реализует SyncCommandListenerPort
func (a *SyncCommandConsumerAdapter) Close() error {
	return a.consumer.Close()
}
