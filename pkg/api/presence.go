package api

// CursorUpdate представляет best-effort обновление курсора участника.
// Канал не версионируется: потерянные обновления допустимы.
type CursorUpdate struct {
	UserID   string `json:"user_id"`
	Position int    `json:"position"` // адрес ячейки под курсором
	SentAt   int64  `json:"sent_at"`  // unix millis
}
