package port

// Fields - структурированные поля записи лога
type Fields map[string]interface{}

// LoggerPort - логгер, которым пользуются ядро и адаптеры.
// Ошибка в Error передается отдельно от полей, чтобы адаптер сам решал, как ее сериализовать.
type LoggerPort interface {
	Debug(msg string, fields Fields)
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, err error, fields Fields)

	// WithFields возвращает дочерний логгер; поля родителя сохраняются
	WithFields(fields Fields) LoggerPort
}
