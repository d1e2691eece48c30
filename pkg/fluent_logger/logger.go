package fluentlogger

import (
	"fmt"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
)

// Config - подключение к Fluent Bit
type Config struct {
	Host      string // "127.0.0.1" или "fluent-bit" в docker-compose
	Port      int    // обычно 24224
	TagPrefix string // префикс тегов сервиса, например "interior-sync-service"
	Timeout   time.Duration
	Async     bool // не блокировать запросы, если Fluent Bit недоступен
}

// NewClient создает клиента Fluent Bit. Соединение не проверяется:
// fluent подключается лениво, ошибки будут при отправке.
func NewClient(cfg Config) (*fluent.Fluent, error) {
	if cfg.TagPrefix == "" {
		return nil, fmt.Errorf("fluentd tag prefix is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}

	client, err := fluent.New(fluent.Config{
		FluentHost:    cfg.Host,
		FluentPort:    cfg.Port,
		TagPrefix:     cfg.TagPrefix,
		Timeout:       cfg.Timeout,
		WriteTimeout:  cfg.Timeout,
		Async:         cfg.Async,
		MarshalAsJSON: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create fluentd logger: %w", err)
	}
	return client, nil
}
