package rabbitmq_consumer

import (
	"fmt"
	"sync"

	"interior-sync-service/pkg/rabbitmq/rabbitmq_common"
	"interior-sync-service/pkg/rabbitmq/rabbitmq_producer"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RetryConfig - цикл ретраев через wait-очередь с TTL и финальную DLQ
type RetryConfig struct {
	Enabled            bool
	Exchange           string // fanout, куда уходят nack'нутые сообщения
	WaitQueue          string // очередь ожидания, возвращает сообщение в основной обменник по TTL
	TTLMillis          int
	FinalDLXExchange   string
	FinalDLQ           string
	FinalDLQRoutingKey string
	MaxRetries         int
}

// ConsumerConfig - очередь, ее привязка и поведение потребителя
type ConsumerConfig struct {
	rabbitmq_common.Config

	QueueName    string
	DurableQueue bool
	QueueArgs    amqp.Table

	ExchangeName string // обменник для привязки, пусто - без привязки
	ExchangeType string
	RoutingKey   string

	PrefetchCount int
	MaxInFlight   int // сколько сообщений обрабатывается одновременно, <= 0 - PrefetchCount или 1
	ConsumerTag   string

	Retry RetryConfig

	Logger rabbitmq_common.Logger
}

func (c ConsumerConfig) validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if c.QueueName == "" {
		return fmt.Errorf("queue name is required")
	}
	if c.ExchangeName != "" && c.ExchangeType == "" {
		return fmt.Errorf("exchange type is required to declare exchange %q", c.ExchangeName)
	}
	if c.Retry.Enabled {
		if c.ExchangeName == "" {
			return fmt.Errorf("retry mechanism requires a bound exchange")
		}
		if c.Retry.Exchange == "" || c.Retry.WaitQueue == "" || c.Retry.FinalDLXExchange == "" || c.Retry.FinalDLQ == "" {
			return fmt.Errorf("retry exchange, wait queue and final DLX/DLQ names are required")
		}
	}
	return nil
}

func (c ConsumerConfig) inFlight() int {
	switch {
	case c.MaxInFlight > 0:
		return c.MaxInFlight
	case c.PrefetchCount > 0:
		return c.PrefetchCount
	}
	return 1
}

// baseConsumer - канал, топология и DLX-издатель, общие для потребителей
type baseConsumer struct {
	config            ConsumerConfig
	connection        *amqp.Connection
	channel           *amqp.Channel
	finalDlxPublisher *rabbitmq_producer.Publisher
	wg                sync.WaitGroup

	Logger rabbitmq_common.Logger
}

func newBaseConsumer(cfg ConsumerConfig, connManager *rabbitmq_common.ConnectionManager) (*baseConsumer, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("base Consumer: invalid config: %w", err)
	}
	if connManager == nil {
		return nil, fmt.Errorf("base Consumer: connection manager is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = rabbitmq_common.NewNoopLogger()
	}
	c := &baseConsumer{config: cfg, Logger: logger}

	conn, ch, err := connManager.GetChannel()
	if err != nil {
		return nil, fmt.Errorf("base Consumer: failed to get channel from manager: %w", err)
	}
	c.connection = conn
	c.channel = ch

	if err := c.setupTopology(); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("base Consumer: setup failed: %w", err)
	}

	if cfg.Retry.Enabled {
		dlxPublisher, err := rabbitmq_producer.NewPublisher(rabbitmq_producer.PublisherConfig{
			Config:       cfg.Config,
			ExchangeName: cfg.Retry.FinalDLXExchange,
			Logger:       logger,
		}, connManager)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("base Consumer: failed to create final DLX publisher: %w", err)
		}
		c.finalDlxPublisher = dlxPublisher
	}

	return c, nil
}

func (c *baseConsumer) setupTopology() error {
	cfg := c.config

	if cfg.PrefetchCount > 0 {
		if err := c.channel.Qos(cfg.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	if cfg.Retry.Enabled {
		if err := c.declareRetryInfrastructure(); err != nil {
			return err
		}
	}

	queueArgs := amqp.Table{}
	for k, v := range cfg.QueueArgs {
		queueArgs[k] = v
	}
	if cfg.Retry.Enabled {
		// nack без requeue отправляет сообщение в цикл ретраев
		queueArgs["x-dead-letter-exchange"] = cfg.Retry.Exchange
	}

	c.Logger.Debug("Declaring queue", "name", cfg.QueueName, "durable", cfg.DurableQueue)
	if _, err := c.channel.QueueDeclare(cfg.QueueName, cfg.DurableQueue, false, false, false, queueArgs); err != nil {
		return fmt.Errorf("failed to declare queue '%s': %w", cfg.QueueName, err)
	}

	if cfg.ExchangeName == "" {
		return nil
	}

	c.Logger.Debug("Declaring exchange", "name", cfg.ExchangeName, "type", cfg.ExchangeType)
	if err := c.channel.ExchangeDeclare(cfg.ExchangeName, cfg.ExchangeType, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange '%s': %w", cfg.ExchangeName, err)
	}

	c.Logger.Debug("Binding queue", "queue", cfg.QueueName, "exchange", cfg.ExchangeName, "routing_key", cfg.RoutingKey)
	if err := c.channel.QueueBind(cfg.QueueName, cfg.RoutingKey, cfg.ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue '%s' to exchange '%s': %w", cfg.QueueName, cfg.ExchangeName, err)
	}
	return nil
}

func (c *baseConsumer) declareRetryInfrastructure() error {
	r := c.config.Retry

	if err := c.channel.ExchangeDeclare(r.FinalDLXExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare final DLX: %w", err)
	}
	if _, err := c.channel.QueueDeclare(r.FinalDLQ, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare final DLQ: %w", err)
	}
	if err := c.channel.QueueBind(r.FinalDLQ, r.FinalDLQRoutingKey, r.FinalDLXExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind final DLQ: %w", err)
	}

	if err := c.channel.ExchangeDeclare(r.Exchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare retry exchange: %w", err)
	}
	_, err := c.channel.QueueDeclare(r.WaitQueue, true, false, false, false, amqp.Table{
		"x-message-ttl":          int32(r.TTLMillis),
		"x-dead-letter-exchange": c.config.ExchangeName,
	})
	if err != nil {
		return fmt.Errorf("failed to declare retry-wait queue: %w", err)
	}
	if err := c.channel.QueueBind(r.WaitQueue, "", r.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind retry-wait queue: %w", err)
	}

	c.Logger.Debug("Retry infrastructure declared", "wait_queue", r.WaitQueue, "ttl_ms", r.TTLMillis, "max_retries", r.MaxRetries)
	return nil
}

// deathCount - сколько раз сообщение умирало в основной очереди (по x-death)
func deathCount(d amqp.Delivery, queueName string) int64 {
	deaths, ok := d.Headers["x-death"].([]interface{})
	if !ok {
		return 0
	}
	for _, death := range deaths {
		tbl, ok := death.(amqp.Table)
		if !ok {
			continue
		}
		if queue, _ := tbl["queue"].(string); queue == queueName {
			if count, ok := tbl["count"].(int64); ok {
				return count
			}
		}
	}
	return 0
}

// Close дожидается обработчиков и закрывает канал. Соединение принадлежит менеджеру.
func (c *baseConsumer) Close() error {
	c.wg.Wait()

	var firstErr error
	if c.finalDlxPublisher != nil {
		if err := c.finalDlxPublisher.Close(); err != nil {
			firstErr = err
		}
	}
	if c.channel != nil {
		if err := c.channel.Close(); err != nil && firstErr == nil {
			c.Logger.Error(err, "Error closing consumer channel")
			firstErr = err
		}
		c.channel = nil
	}
	c.Logger.Info("Consumer closed", "queue", c.config.QueueName)
	return firstErr
}
