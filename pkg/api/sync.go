package api

// Operation представляет одну операцию редактирования сетки в wire-формате.
// Поля Content/Length/Target заполняются в зависимости от типа операции.
type Operation struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Type      string `json:"type"` // insert, delete, replace, move
	Content   string `json:"content,omitempty"`
	Timestamp int64  `json:"timestamp"` // unix millis, клиентские часы
	Position  int    `json:"position"`
	Length    int    `json:"length,omitempty"`
	Target    int    `json:"target,omitempty"` // назначение для move
}

// ConflictGroup представляет группу конфликтующих операций в wire-формате
type ConflictGroup struct {
	ID           string      `json:"id"`
	Operations   []Operation `json:"operations"`
	Participants []string    `json:"participants"`
	RangeStart   int         `json:"range_start"`
	RangeEnd     int         `json:"range_end"`
	Timestamp    int64       `json:"timestamp"` // максимальный timestamp участников
}

// SyncRequest представляет запрос на синхронизацию от клиента
// POST /api/v1/rooms/{roomID}/sync
type SyncRequest struct {
	Operations  []Operation `json:"operations"`
	UserID      string      `json:"user_id"`
	LastVersion int64       `json:"last_version"` // последняя версия, которую видел клиент
}

// SyncResponse представляет ответ сервера на синхронизацию.
// Operations содержит все принятые операции после LastVersion клиента,
// включая только что принятые из этого запроса.
type SyncResponse struct {
	Operations         []Operation     `json:"operations"`
	Conflicts          []ConflictGroup `json:"conflicts,omitempty"`
	SupersededIDs      []string        `json:"superseded_ids,omitempty"` // операции, вытесненные резолюциями
	Version            int64           `json:"version"`
	RequiresResolution bool            `json:"requires_resolution"`
}

// PullResponse представляет ответ на полный catch-up pull
// GET /api/v1/rooms/{roomID}/sync?since=N
type PullResponse struct {
	Operations    []Operation `json:"operations"`
	SupersededIDs []string    `json:"superseded_ids,omitempty"`
	Version       int64       `json:"version"`
}

// ResolveRequest представляет запрос на разрешение конфликта
// PUT /api/v1/rooms/{roomID}/sync
type ResolveRequest struct {
	GroupID            string   `json:"group_id"`
	Strategy           string   `json:"strategy"` // last_write_wins, first_write_wins, manual, auto_merge
	SelectedOperations []string `json:"selected_operations,omitempty"`
	CustomResolution   string   `json:"custom_resolution,omitempty"`
}

// ResolveResponse представляет ответ сервера на разрешение конфликта
type ResolveResponse struct {
	Operations    []Operation `json:"operations"`
	SupersededIDs []string    `json:"superseded_ids,omitempty"`
	Version       int64       `json:"version"`
	Success       bool        `json:"success"`
	Partial       bool        `json:"partial,omitempty"` // auto_merge откатился к LWW на части диапазона
}

// Коды ошибок, различающие причины HTTP 409.
// version_ahead требует полного resync; unresolved_conflict означает,
// что затронутый диапазон удержан до резолюции конфликтной группы.
const (
	ErrCodeVersionAhead       = "version_ahead"
	ErrCodeUnresolvedConflict = "unresolved_conflict"
)

// ErrorResponse представляет ошибку API
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
