package completion

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/iudanet/puzzlesync/internal/models"
)

// statusKey идентифицирует статус участника: (userID, puzzleID, roomID)
type statusKey struct {
	userID   string
	puzzleID string
	roomID   string
}

// Tracker ведет append-only поток прогресса участников: обновления статуса,
// заполнения ячеек и разблокировки достижений. Это параллельный канал с
// пониженной консистентностью: его данные потребляются UI и аналитикой и
// никогда не влияют на содержимое сетки. Трекер не блокирует движок
// трансформаций и не блокируется им.
type Tracker struct {
	mu       sync.RWMutex
	statuses map[statusKey]*models.CompletionStatus
	logger   *slog.Logger
}

// NewTracker создает трекер прогресса
func NewTracker(logger *slog.Logger) *Tracker {
	return &Tracker{
		statuses: make(map[statusKey]*models.CompletionStatus),
		logger:   logger,
	}
}

// UpdateStatus обновляет статус и прогресс участника
func (t *Tracker) UpdateStatus(userID, puzzleID, roomID string, state models.CompletionState, progress models.Progress, hintsUsed int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.getOrCreateLocked(userID, puzzleID, roomID)
	st.Status = state
	if progress.TotalCells > 0 {
		st.Progress = progress
	}
	if hintsUsed > st.HintsUsed {
		st.HintsUsed = hintsUsed
	}
	st.UpdatedAt = time.Now()

	t.logger.Debug("completion status updated",
		"user_id", userID,
		"room_id", roomID,
		"status", state)
}

// HandleCellCompletion фиксирует заполнение одной ячейки.
// Верные заполнения наращивают streak, неверные его сбрасывают;
// accuracy пересчитывается по накопленным попыткам.
func (t *Tracker) HandleCellCompletion(userID, puzzleID, roomID string, correct bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.getOrCreateLocked(userID, puzzleID, roomID)

	if st.Status == models.StatusNotStarted {
		st.Status = models.StatusInProgress
	}

	// Точность считается по всем попыткам; верно заполненные ячейки
	// учитываются отдельно, иначе неверные заполнения довели бы до completed
	correctSoFar := st.Accuracy * float64(st.Attempts)
	st.Attempts++

	if correct {
		correctSoFar++
		st.Streak++
		if st.Progress.CompletedCells < st.Progress.TotalCells || st.Progress.TotalCells == 0 {
			st.Progress.CompletedCells++
		}
	} else {
		st.Streak = 0
	}

	st.Accuracy = correctSoFar / float64(st.Attempts)

	if st.Progress.TotalCells > 0 && st.Progress.CompletedCells >= st.Progress.TotalCells {
		st.Status = models.StatusCompleted
	}
	st.UpdatedAt = time.Now()
}

// HandleAchievementUnlock фиксирует разблокировку достижения.
// Идемпотентно: повтор события с тем же achievement ID не дублирует
// достижение в списке участника.
func (t *Tracker) HandleAchievementUnlock(userID, puzzleID, roomID, achievementID, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.getOrCreateLocked(userID, puzzleID, roomID)

	if st.HasAchievement(achievementID) {
		t.logger.Debug("achievement already unlocked, skipping",
			"user_id", userID,
			"achievement_id", achievementID)
		return
	}

	st.Achievements = append(st.Achievements, models.Achievement{
		ID:         achievementID,
		Name:       name,
		UnlockedAt: time.Now(),
	})
	st.UpdatedAt = time.Now()

	t.logger.Info("achievement unlocked",
		"user_id", userID,
		"room_id", roomID,
		"achievement_id", achievementID)
}

// Get возвращает копию статуса участника или nil, если событий не было
func (t *Tracker) Get(userID, puzzleID, roomID string) *models.CompletionStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	st, ok := t.statuses[statusKey{userID, puzzleID, roomID}]
	if !ok {
		return nil
	}
	return st.Clone()
}

// GetRoomSummary возвращает агрегат прогресса всех участников комнаты
// по конкретному пазлу, в устойчивом порядке по userID
func (t *Tracker) GetRoomSummary(roomID, puzzleID string) []*models.CompletionStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*models.CompletionStatus, 0)
	for key, st := range t.statuses {
		if key.roomID == roomID && key.puzzleID == puzzleID {
			out = append(out, st.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })

	return out
}

// GetCompletionStats возвращает количество участников комнаты по статусам
func (t *Tracker) GetCompletionStats(roomID string) map[models.CompletionState]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	counts := make(map[models.CompletionState]int)
	for key, st := range t.statuses {
		if key.roomID == roomID {
			counts[st.Status]++
		}
	}
	return counts
}

// getOrCreateLocked возвращает статус, создавая его при первом событии.
// Вызывается только под t.mu.
func (t *Tracker) getOrCreateLocked(userID, puzzleID, roomID string) *models.CompletionStatus {
	key := statusKey{userID, puzzleID, roomID}
	st, ok := t.statuses[key]
	if !ok {
		st = &models.CompletionStatus{
			UserID:   userID,
			PuzzleID: puzzleID,
			RoomID:   roomID,
			Status:   models.StatusNotStarted,
		}
		t.statuses[key] = st
	}
	return st
}
