package models

import "time"

// CompletionState статус прохождения пазла участником
type CompletionState string

// Статусы прохождения
const (
	StatusNotStarted CompletionState = "not_started"
	StatusInProgress CompletionState = "in_progress"
	StatusCompleted  CompletionState = "completed"
	StatusPaused     CompletionState = "paused"
)

// Progress представляет прогресс заполнения сетки
type Progress struct {
	CompletedCells int    `json:"completed_cells"`
	TotalCells     int    `json:"total_cells"`
	CurrentSection string `json:"current_section,omitempty"`
}

// Achievement представляет разблокированное достижение.
// Дедупликация достижений выполняется по ID.
type Achievement struct {
	UnlockedAt time.Time `json:"unlocked_at"`
	ID         string    `json:"id"`
	Name       string    `json:"name"`
}

// CompletionStatus представляет состояние прохождения пазла одним участником
// в одной комнате. Принадлежит трекеру прогресса; движок трансформаций
// никогда не читает эти данные.
type CompletionStatus struct {
	UpdatedAt    time.Time       `json:"updated_at"`
	UserID       string          `json:"user_id"`
	PuzzleID     string          `json:"puzzle_id"`
	RoomID       string          `json:"room_id"`
	Status       CompletionState `json:"status"`
	Progress     Progress        `json:"progress"`
	Achievements []Achievement   `json:"achievements,omitempty"`
	Streak       int             `json:"streak"`
	HintsUsed    int             `json:"hints_used"`
	Attempts     int             `json:"attempts"` // все заполнения, включая неверные
	Accuracy     float64         `json:"accuracy"` // доля верных заполнений [0,1]
}

// Clone создает глубокую копию статуса
func (c *CompletionStatus) Clone() *CompletionStatus {
	out := *c
	out.Achievements = make([]Achievement, len(c.Achievements))
	copy(out.Achievements, c.Achievements)
	return &out
}

// HasAchievement проверяет наличие достижения по ID
func (c *CompletionStatus) HasAchievement(id string) bool {
	for _, a := range c.Achievements {
		if a.ID == id {
			return true
		}
	}
	return false
}
