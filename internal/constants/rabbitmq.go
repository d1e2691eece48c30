package constants

// Обменник платформы для команд и событий синхронизации
const (
	ExchangeInteriorSync     = "interior_sync"
	ExchangeInteriorSyncType = "topic"
)

// Имена очередей
const (
	QueueSyncCommands = "interior_sync_commands"
)

// Ключи маршрутизации
const (
	RoutingKeySyncCommand   = "interior.sync.command"
	RoutingKeySyncCompleted = "interior.sync.completed"
)

// Цикл ретраев для команд
const (
	RetryExchange      = "interior_sync_commands_retry"
	RetryWaitQueue     = "interior_sync_commands_wait"
	RetryTTLMillis     = 30000
	MaxRetries         = 3
	FinalDLXExchange   = "interior_sync_commands_final_dlx"
	FinalDLQ           = "interior_sync_commands_final_dlq"
	FinalDLQRoutingKey = "interior.sync.dlq"
)

// AMQP-заголовки
const (
	HeaderEventType    = "event-type"
	HeaderEventVersion = "event-version"
	HeaderTraceID      = "x-trace-id"
)
