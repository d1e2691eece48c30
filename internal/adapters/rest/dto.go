package rest

// SyncRequestDTO - тело POST /pull и POST /push
type SyncRequestDTO struct {
	SheetID string `json:"sheet_id"`
}

// PreviewRequestDTO - тело POST /preview
type PreviewRequestDTO struct {
	SheetID   string `json:"sheet_id"`
	Direction string `json:"direction"`
}

// OperationFailedDTO - ответ 502: прогон завершился ошибкой уровня операции,
// result содержит уже финализированную запись журнала
type OperationFailedDTO struct {
	Error  string      `json:"error"`
	Result interface{} `json:"result"`
}
