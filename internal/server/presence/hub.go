package presence

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/puzzlesync/pkg/api"
)

// cursorTTL — таймаут устаревания курсора: необновленный курсор очищается
const cursorTTL = 2 * time.Second

// sweepInterval — период проверки устаревших курсоров
const sweepInterval = 500 * time.Millisecond

// cursor представляет последнюю позицию курсора участника
type cursor struct {
	updatedAt time.Time
	position  int
}

// peer представляет подключенного участника комнаты
type peer struct {
	conn *websocket.Conn
	mu   sync.Mutex // сериализует записи в соединение
}

func (p *peer) send(upd api.CursorUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.conn.WriteJSON(upd)
}

// Hub представляет best-effort канал присутствия: позиции курсоров участников
// транслируются остальным подключенным в комнате. Канал не версионируется,
// потерянные обновления допустимы и не влияют на версионируемое состояние.
type Hub struct {
	mu       sync.Mutex
	rooms    map[string]map[string]*peer
	cursors  map[string]map[string]cursor
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHub создает hub присутствия
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:   make(map[string]map[string]*peer),
		cursors: make(map[string]map[string]cursor),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Run запускает периодическую очистку устаревших курсоров до отмены контекста
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.sweep()
		case <-ctx.Done():
			return
		}
	}
}

// ServeWS обрабатывает websocket-подключение участника комнаты
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, roomID, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err, "room_id", roomID)
		return
	}

	p := &peer{conn: conn}
	h.register(roomID, userID, p)

	h.logger.Info("presence peer connected", "room_id", roomID, "user_id", userID)

	defer func() {
		h.unregister(roomID, userID)
		conn.Close()
		h.logger.Info("presence peer disconnected", "room_id", roomID, "user_id", userID)
	}()

	for {
		var upd api.CursorUpdate
		if err := conn.ReadJSON(&upd); err != nil {
			return
		}
		h.UpdateCursor(roomID, userID, upd.Position)
	}
}

// UpdateCursor записывает позицию курсора и транслирует ее остальным
// участникам комнаты. Ошибки доставки игнорируются: канал best-effort.
func (h *Hub) UpdateCursor(roomID, userID string, position int) {
	now := time.Now()

	h.mu.Lock()
	if _, ok := h.cursors[roomID]; !ok {
		h.cursors[roomID] = make(map[string]cursor)
	}
	h.cursors[roomID][userID] = cursor{position: position, updatedAt: now}

	peers := make([]*peer, 0)
	for id, p := range h.rooms[roomID] {
		if id != userID {
			peers = append(peers, p)
		}
	}
	h.mu.Unlock()

	upd := api.CursorUpdate{
		UserID:   userID,
		Position: position,
		SentAt:   now.UnixMilli(),
	}
	for _, p := range peers {
		if err := p.send(upd); err != nil {
			h.logger.Debug("cursor broadcast failed", "room_id", roomID, "error", err)
		}
	}
}

// Cursors возвращает снимок свежих курсоров комнаты: userID -> позиция
func (h *Hub) Cursors(roomID string) map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]int)
	cutoff := time.Now().Add(-cursorTTL)
	for userID, c := range h.cursors[roomID] {
		if c.updatedAt.After(cutoff) {
			out[userID] = c.position
		}
	}
	return out
}

// sweep очищает курсоры, не обновлявшиеся дольше cursorTTL
func (h *Hub) sweep() {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := time.Now().Add(-cursorTTL)
	for roomID, cursors := range h.cursors {
		for userID, c := range cursors {
			if !c.updatedAt.After(cutoff) {
				delete(cursors, userID)
			}
		}
		if len(cursors) == 0 {
			delete(h.cursors, roomID)
		}
	}
}

func (h *Hub) register(roomID, userID string, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]*peer)
	}
	h.rooms[roomID][userID] = p
}

func (h *Hub) unregister(roomID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if peers, ok := h.rooms[roomID]; ok {
		delete(peers, userID)
		if len(peers) == 0 {
			delete(h.rooms, roomID)
		}
	}
	if cursors, ok := h.cursors[roomID]; ok {
		delete(cursors, userID)
	}
}
