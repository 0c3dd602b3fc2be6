package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iudanet/puzzlesync/internal/completion"
	"github.com/iudanet/puzzlesync/internal/models"
	"github.com/iudanet/puzzlesync/pkg/api"
)

// CompletionHandler принимает события прогресса и отдает сводки по комнате
type CompletionHandler struct {
	logger  *slog.Logger
	tracker *completion.Tracker
}

// NewCompletionHandler creates a new completion handler
func NewCompletionHandler(logger *slog.Logger, tracker *completion.Tracker) *CompletionHandler {
	return &CompletionHandler{
		logger:  logger,
		tracker: tracker,
	}
}

// HandleEvent обрабатывает POST /api/v1/rooms/{roomID}/completion
func (h *CompletionHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roomID := mux.Vars(r)["roomID"]

	userID, ok := GetUserID(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var event api.CompletionEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.logger.Warn("Failed to decode completion event", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Автор события всегда аутентифицированный пользователь
	event.UserID = userID

	switch event.Type {
	case "progress":
		h.tracker.UpdateStatus(event.UserID, event.PuzzleID, roomID,
			models.CompletionState(event.Status),
			models.Progress{
				CompletedCells: event.CompletedCells,
				TotalCells:     event.TotalCells,
				CurrentSection: event.CurrentSection,
			},
			event.HintsUsed)
	case "cell":
		h.tracker.HandleCellCompletion(event.UserID, event.PuzzleID, roomID, event.Correct)
	case "achievement":
		h.tracker.HandleAchievementUnlock(event.UserID, event.PuzzleID, roomID,
			event.AchievementID, event.AchievementName)
	default:
		writeError(w, http.StatusBadRequest, "unknown event type")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleSummary обрабатывает GET /api/v1/rooms/{roomID}/completion?puzzle_id=ID
func (h *CompletionHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]
	puzzleID := r.URL.Query().Get("puzzle_id")
	if puzzleID == "" {
		writeError(w, http.StatusBadRequest, "puzzle_id is required")
		return
	}

	statuses := h.tracker.GetRoomSummary(roomID, puzzleID)

	resp := api.RoomSummaryResponse{
		RoomID:       roomID,
		PuzzleID:     puzzleID,
		Participants: make([]api.ParticipantProgress, 0, len(statuses)),
	}
	for _, st := range statuses {
		p := api.ParticipantProgress{
			UserID:         st.UserID,
			Status:         string(st.Status),
			CompletedCells: st.Progress.CompletedCells,
			TotalCells:     st.Progress.TotalCells,
			Attempts:       st.Attempts,
			Accuracy:       st.Accuracy,
			Streak:         st.Streak,
			HintsUsed:      st.HintsUsed,
		}
		for _, a := range st.Achievements {
			p.Achievements = append(p.Achievements, a.ID)
		}
		resp.Participants = append(resp.Participants, p)
	}

	writeJSON(w, h.logger, http.StatusOK, resp)
}

// HandleStats обрабатывает GET /api/v1/rooms/{roomID}/completion/stats
func (h *CompletionHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]

	counts := h.tracker.GetCompletionStats(roomID)

	resp := api.CompletionStatsResponse{
		RoomID: roomID,
		Counts: make(map[string]int, len(counts)),
	}
	for state, n := range counts {
		resp.Counts[string(state)] = n
	}

	writeJSON(w, h.logger, http.StatusOK, resp)
}
