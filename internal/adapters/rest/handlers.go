package rest

import (
	"errors"
	"net/http"

	"interior-sync-service/internal/contextkeys"
	"interior-sync-service/internal/core/domain"
	"interior-sync-service/internal/core/port"
	"interior-sync-service/internal/core/port/usecases_port"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type SyncHandlers struct {
	pullUC    usecases_port.PullFromSheetUseCase
	pushUC    usecases_port.PushToSheetUseCase
	previewUC usecases_port.PreviewSyncUseCase
	listLogs  usecases_port.ListSyncLogsUseCase
	getLog    usecases_port.GetSyncLogUseCase
}

func NewSyncHandlers(
	pullUC usecases_port.PullFromSheetUseCase,
	pushUC usecases_port.PushToSheetUseCase,
	previewUC usecases_port.PreviewSyncUseCase,
	listLogs usecases_port.ListSyncLogsUseCase,
	getLog usecases_port.GetSyncLogUseCase,
) *SyncHandlers {
	return &SyncHandlers{
		pullUC:    pullUC,
		pushUC:    pushUC,
		previewUC: previewUC,
		listLogs:  listLogs,
		getLog:    getLog,
	}
}

// respondRun: ошибка без результата - прогон не начался; ошибка с результатом - 502 с журналом
func respondRun(w http.ResponseWriter, logger port.LoggerPort, result interface{}, hasResult bool, err error) {
	switch {
	case err == nil:
		RespondWithJSON(w, http.StatusOK, result)
	case errors.Is(err, domain.ErrInvalidSyncRequest):
		WriteJSONError(w, http.StatusBadRequest, err.Error())
	case hasResult:
		logger.Warn("Sync run failed at operation level", port.Fields{"error": err.Error()})
		RespondWithJSON(w, http.StatusBadGateway, OperationFailedDTO{Error: err.Error(), Result: result})
	default:
		logger.Error("Sync run could not start", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, "Failed to start sync run")
	}
}

// HandlePull - POST /api/v1/interior-sync/pull
func (h *SyncHandlers) HandlePull(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "HandlePull"})

	var req SyncRequestDTO
	if err := decodeBody(r, &req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.pullUC.Execute(r.Context(), req.SheetID)
	respondRun(w, logger, result, result != nil, err)
}

// HandlePush - POST /api/v1/interior-sync/push
func (h *SyncHandlers) HandlePush(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "HandlePush"})

	var req SyncRequestDTO
	if err := decodeBody(r, &req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.pushUC.Execute(r.Context(), req.SheetID)
	respondRun(w, logger, result, result != nil, err)
}

// HandlePreview - POST /api/v1/interior-sync/preview
func (h *SyncHandlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "HandlePreview"})

	var req PreviewRequestDTO
	if err := decodeBody(r, &req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	direction, err := domain.ParseSyncDirection(req.Direction)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Field 'direction' must be PULL or PUSH")
		return
	}

	result, err := h.previewUC.Execute(r.Context(), req.SheetID, direction)
	respondRun(w, logger, result, result != nil, err)
}

// HandleListLogs - GET /api/v1/interior-sync/logs
func (h *SyncHandlers) HandleListLogs(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "HandleListLogs"})

	limit, err := GetLimitOrDefault(r, domain.DefaultSyncLogLimit)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := GetOffsetOrDefault(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := domain.SyncLogFilter{
		SheetID: r.URL.Query().Get("sheet_id"),
		Limit:   limit,
		Offset:  offset,
	}
	if raw := r.URL.Query().Get("direction"); raw != "" {
		direction, err := domain.ParseSyncDirection(raw)
		if err != nil {
			WriteJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Direction = &direction
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := domain.ParseSyncLogStatus(raw)
		if err != nil {
			WriteJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Status = &status
	}

	page, err := h.listLogs.Execute(r.Context(), filter)
	if err != nil {
		logger.Error("Use case execution failed", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, "Failed to list sync logs")
		return
	}
	RespondWithJSON(w, http.StatusOK, page)
}

// HandleGetLog - GET /api/v1/interior-sync/logs/{logID}
func (h *SyncHandlers) HandleGetLog(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "HandleGetLog"})

	id, err := uuid.Parse(chi.URLParam(r, "logID"))
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid log ID format")
		return
	}

	entry, err := h.getLog.Execute(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrSyncLogNotFound) {
			WriteJSONError(w, http.StatusNotFound, "Sync log entry not found")
			return
		}
		logger.Error("Use case execution failed", err, port.Fields{"log_id": id.String()})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to get sync log entry")
		return
	}
	RespondWithJSON(w, http.StatusOK, entry)
}
