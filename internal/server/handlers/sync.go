package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/iudanet/puzzlesync/internal/conflict"
	"github.com/iudanet/puzzlesync/internal/models"
	"github.com/iudanet/puzzlesync/internal/server/room"
	"github.com/iudanet/puzzlesync/pkg/api"
)

// SyncHandler handles synchronization requests
type SyncHandler struct {
	logger *slog.Logger
	rooms  *room.Manager
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(logger *slog.Logger, rooms *room.Manager) *SyncHandler {
	return &SyncHandler{
		logger: logger,
		rooms:  rooms,
	}
}

// HandleGet обрабатывает GET /api/v1/rooms/{roomID}/sync?since=version
// Полный catch-up pull: все активные операции после указанной версии
func (h *SyncHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roomID := mux.Vars(r)["roomID"]

	var since int64
	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		var err error
		since, err = strconv.ParseInt(sinceStr, 10, 64)
		if err != nil {
			h.logger.Warn("Invalid since parameter", "since", sinceStr, "error", err)
			writeError(w, http.StatusBadRequest, "invalid since parameter")
			return
		}
	}

	rm, err := h.rooms.Get(ctx, roomID)
	if err != nil {
		h.logger.Error("Failed to get room", "error", err, "room_id", roomID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	result, err := rm.Pull(ctx, since)
	if err != nil {
		h.logger.Error("Pull failed", "error", err, "room_id", roomID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, api.PullResponse{
		Operations:    opsToAPI(result.Operations),
		SupersededIDs: result.SupersededIDs,
		Version:       result.Version,
	})

	h.logger.Info("GET sync completed",
		"room_id", roomID,
		"since", since,
		"operations", len(result.Operations))
}

// HandlePost обрабатывает POST /api/v1/rooms/{roomID}/sync
// Принимает ожидающие операции клиента против заявленной им последней версии
func (h *SyncHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roomID := mux.Vars(r)["roomID"]

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.Error("User ID not found in context")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req api.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode sync request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rm, err := h.rooms.Get(ctx, roomID)
	if err != nil {
		h.logger.Error("Failed to get room", "error", err, "room_id", roomID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	result, err := rm.Push(ctx, userID, req.LastVersion, opsFromAPI(req.Operations))
	if err != nil {
		h.writePushError(w, roomID, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, api.SyncResponse{
		Operations:         opsToAPI(result.Operations),
		Conflicts:          groupsToAPI(result.Conflicts),
		SupersededIDs:      result.SupersededIDs,
		Version:            result.Version,
		RequiresResolution: result.RequiresResolution,
	})

	h.logger.Info("POST sync completed",
		"room_id", roomID,
		"user_id", userID,
		"received", len(req.Operations),
		"returned", len(result.Operations),
		"conflicts", len(result.Conflicts),
		"version", result.Version)
}

// HandlePut обрабатывает PUT /api/v1/rooms/{roomID}/sync
// Принимает резолюцию конфликтной группы
func (h *SyncHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roomID := mux.Vars(r)["roomID"]

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.Error("User ID not found in context")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req api.ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode resolve request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	strategy, err := conflict.ParseStrategy(req.Strategy, req.SelectedOperations, req.CustomResolution)
	if err != nil {
		h.logger.Warn("Unknown resolution strategy", "strategy", req.Strategy)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rm, err := h.rooms.Get(ctx, roomID)
	if err != nil {
		h.logger.Error("Failed to get room", "error", err, "room_id", roomID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	result, err := rm.Resolve(ctx, userID, req.GroupID, strategy)
	if err != nil {
		switch {
		case errors.Is(err, room.ErrUnknownGroup):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, conflict.ErrMissingManualInput), errors.Is(err, conflict.ErrUnknownSelection):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("Resolve failed", "error", err, "room_id", roomID, "group_id", req.GroupID)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, h.logger, http.StatusOK, api.ResolveResponse{
		Success:       true,
		Version:       result.Version,
		Operations:    opsToAPI(result.Operations),
		SupersededIDs: result.SupersededIDs,
		Partial:       result.Partial,
	})

	h.logger.Info("PUT sync completed",
		"room_id", roomID,
		"user_id", userID,
		"group_id", req.GroupID,
		"strategy", req.Strategy,
		"version", result.Version)
}

// writePushError транслирует ошибки комнаты в HTTP статусы
func (h *SyncHandler) writePushError(w http.ResponseWriter, roomID string, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidOperation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, room.ErrVersionAhead):
		// Клиент обязан выполнить полный resync через GET sync
		writeErrorCode(w, http.StatusConflict, api.ErrCodeVersionAhead, err.Error())
	case errors.Is(err, room.ErrUnresolvedConflict):
		// Диапазон удержан: resync не поможет, нужна резолюция группы
		writeErrorCode(w, http.StatusConflict, api.ErrCodeUnresolvedConflict, err.Error())
	default:
		h.logger.Error("Push failed", "error", err, "room_id", roomID)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeJSON пишет JSON ответ с заданным статусом
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeError пишет JSON ошибку
func writeError(w http.ResponseWriter, status int, msg string) {
	writeErrorCode(w, status, "", msg)
}

// writeErrorCode пишет JSON ошибку с машинным кодом причины
func writeErrorCode(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: msg, Code: code})
}
