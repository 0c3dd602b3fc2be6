package api

// CompletionEvent представляет событие прогресса участника.
// Type определяет, какие поля заполнены.
type CompletionEvent struct {
	Type     string `json:"type"` // progress, cell, achievement
	UserID   string `json:"user_id"`
	PuzzleID string `json:"puzzle_id"`

	// progress
	Status         string `json:"status,omitempty"` // not_started, in_progress, completed, paused
	CompletedCells int    `json:"completed_cells,omitempty"`
	TotalCells     int    `json:"total_cells,omitempty"`
	CurrentSection string `json:"current_section,omitempty"`
	HintsUsed      int    `json:"hints_used,omitempty"`

	// cell
	Position int  `json:"position,omitempty"`
	Correct  bool `json:"correct,omitempty"`

	// achievement
	AchievementID   string `json:"achievement_id,omitempty"`
	AchievementName string `json:"achievement_name,omitempty"`
}

// ParticipantProgress представляет прогресс одного участника в сводке комнаты
type ParticipantProgress struct {
	UserID         string   `json:"user_id"`
	Status         string   `json:"status"`
	CompletedCells int      `json:"completed_cells"`
	TotalCells     int      `json:"total_cells"`
	Attempts       int      `json:"attempts"`
	Accuracy       float64  `json:"accuracy"`
	Streak         int      `json:"streak"`
	HintsUsed      int      `json:"hints_used"`
	Achievements   []string `json:"achievements,omitempty"`
}

// RoomSummaryResponse представляет сводку прогресса по комнате
type RoomSummaryResponse struct {
	RoomID       string                `json:"room_id"`
	PuzzleID     string                `json:"puzzle_id"`
	Participants []ParticipantProgress `json:"participants"`
}

// CompletionStatsResponse представляет количество участников по статусам
type CompletionStatsResponse struct {
	RoomID string         `json:"room_id"`
	Counts map[string]int `json:"counts"`
}
