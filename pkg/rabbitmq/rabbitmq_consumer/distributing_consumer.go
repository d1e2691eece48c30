package rabbitmq_consumer

import (
	"context"
	"fmt"
	"time"

	"interior-sync-service/pkg/rabbitmq/rabbitmq_common"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageHandler обрабатывает одно сообщение. ack/nack/ретраи решает потребитель:
// nil - ack, ошибка - цикл ретраев или отказ.
type MessageHandler func(ctx context.Context, delivery amqp.Delivery) error

// DistributingConsumer раздает сообщения горутинам, не больше MaxInFlight одновременно
type DistributingConsumer struct {
	baseConsumer *baseConsumer
	handler      MessageHandler
}

func NewDistributingConsumer(cfg ConsumerConfig, handler MessageHandler, connManager *rabbitmq_common.ConnectionManager) (*DistributingConsumer, error) {
	if handler == nil {
		return nil, fmt.Errorf("distributing Consumer: message handler is required")
	}
	bc, err := newBaseConsumer(cfg, connManager)
	if err != nil {
		return nil, fmt.Errorf("distributing Consumer: %w", err)
	}
	return &DistributingConsumer{baseConsumer: bc, handler: handler}, nil
}

// StartConsuming блокируется до отмены ctx (nil) или закрытия соединения (ошибка)
func (c *DistributingConsumer) StartConsuming(ctx context.Context) error {
	bc := c.baseConsumer
	if bc.channel == nil || bc.connection == nil || bc.connection.IsClosed() {
		return fmt.Errorf("distributing Consumer: not connected")
	}

	msgs, err := bc.channel.Consume(bc.config.QueueName, bc.config.ConsumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("distributing Consumer: failed to register a consumer on queue '%s': %w", bc.config.QueueName, err)
	}
	bc.Logger.Info("[*] Waiting for messages on queue", "queue_name", bc.config.QueueName)

	notifyClose := bc.connection.NotifyClose(make(chan *amqp.Error, 1))
	slots := make(chan struct{}, bc.config.inFlight())

	for {
		select {
		case <-ctx.Done():
			bc.Logger.Info("Context cancelled. Shutting down consumer.", "queue_name", bc.config.QueueName)
			return nil

		case amqpErr := <-notifyClose:
			if amqpErr == nil {
				return fmt.Errorf("distributing Consumer: connection closed")
			}
			bc.Logger.Error(amqpErr, "Connection closed for consumer.", "queue_name", bc.config.QueueName)
			return amqpErr

		case d, ok := <-msgs:
			if !ok {
				bc.Logger.Info("Deliveries channel closed by RabbitMQ. Exiting loop.", "queue_name", bc.config.QueueName)
				return nil
			}

			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
				// не начатое сообщение вернется в очередь
				_ = d.Nack(false, true)
				return nil
			}

			bc.wg.Add(1)
			go func(delivery amqp.Delivery) {
				defer bc.wg.Done()
				defer func() { <-slots }()
				c.handle(ctx, delivery)
			}(d)
		}
	}
}

func (c *DistributingConsumer) handle(ctx context.Context, delivery amqp.Delivery) {
	bc := c.baseConsumer
	bc.Logger.Debug("[->] Started processing message", "delivery_tag", delivery.DeliveryTag)

	processErr := c.handler(ctx, delivery)
	if processErr == nil {
		_ = delivery.Ack(false)
		bc.Logger.Debug("[+] Message Ack'd", "delivery_tag", delivery.DeliveryTag)
		return
	}

	bc.Logger.Error(processErr, "Handler error for message", "delivery_tag", delivery.DeliveryTag)

	if !bc.config.Retry.Enabled {
		_ = delivery.Nack(false, false)
		return
	}

	deaths := deathCount(delivery, bc.config.QueueName)
	if deaths < int64(bc.config.Retry.MaxRetries) {
		bc.Logger.Info("Retrying message", "delivery_tag", delivery.DeliveryTag, "death_count", deaths)
		_ = delivery.Nack(false, false)
		return
	}

	bc.Logger.Warn("Max retries reached for message. Publishing to final DLX.", "delivery_tag", delivery.DeliveryTag)
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	err := bc.finalDlxPublisher.Publish(pubCtx, bc.config.Retry.FinalDLQRoutingKey, amqp.Publishing{
		ContentType:  delivery.ContentType,
		Body:         delivery.Body,
		Headers:      delivery.Headers,
		Timestamp:    time.Now(),
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		bc.Logger.Error(err, "Failed to publish to final DLX. Nacking to trigger retry loop again.", "delivery_tag", delivery.DeliveryTag)
		_ = delivery.Nack(false, false)
		return
	}
	_ = delivery.Ack(false)
}

func (c *DistributingConsumer) Close() error {
	return c.baseConsumer.Close()
}
