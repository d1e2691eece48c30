package port

import "context"

// SyncCommandListenerPort - входящий канал команд синхронизации (очередь).
// Start блокирует до отмены ctx или обрыва соединения, Close дожидается обработки
// уже полученных команд.
type SyncCommandListenerPort interface {
	Start(ctx context.Context) error
	Close() error
}
