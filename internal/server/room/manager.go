package room

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/iudanet/puzzlesync/internal/conflict"
	"github.com/iudanet/puzzlesync/internal/ot"
	"github.com/iudanet/puzzlesync/internal/server/storage"
)

// Manager владеет комнатами процесса. Комнаты создаются лениво; при первом
// обращении история комнаты восстанавливается из durable-журнала, поэтому
// перезапущенный сервер продолжает с той же версии. Запаркованные конфликтные
// группы производны и не переживают перезапуск.
type Manager struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	cfg    conflict.Config
	oplog  storage.OperationLog
	logger *slog.Logger
}

// NewManager создает менеджер комнат
func NewManager(cfg conflict.Config, oplog storage.OperationLog, logger *slog.Logger) *Manager {
	return &Manager{
		rooms:  make(map[string]*Room),
		cfg:    cfg,
		oplog:  oplog,
		logger: logger,
	}
}

// Get возвращает комнату, создавая и восстанавливая ее при необходимости
func (m *Manager) Get(ctx context.Context, roomID string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.rooms[roomID]; ok {
		return r, nil
	}

	history := ot.NewVersionedHistory()

	records, err := m.oplog.ListSince(ctx, roomID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load room %s: %w", roomID, err)
	}

	if len(records) > 0 {
		entries := make([]ot.Entry, 0, len(records))
		for _, rec := range records {
			entries = append(entries, ot.Entry{
				Op:           rec.Op,
				Version:      rec.Version,
				SupersededBy: rec.SupersededBy,
			})
		}
		history.Restore(entries)

		m.logger.Info("room history restored",
			"room_id", roomID,
			"operations", len(records),
			"version", history.Version())
	}

	r := New(roomID, history, m.cfg, m.oplog, m.logger)
	m.rooms[roomID] = r

	return r, nil
}
