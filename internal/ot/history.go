package ot

import (
	"sync"
	"time"

	"github.com/iudanet/puzzlesync/internal/models"
)

// Entry представляет принятую операцию с присвоенной сервером версией.
// SupersededBy заполняется, когда операция вытеснена разрешением конфликта:
// она остается в журнале для аудита, но исключается из реконструкции сетки.
type Entry struct {
	Op           models.Operation `json:"op"`
	Version      int64            `json:"version"`
	SupersededBy string           `json:"superseded_by,omitempty"`
}

// VersionedHistory владеет упорядоченной последовательностью принятых операций
// и монотонно растущей версией. Последовательность append-only; версия
// увеличивается ровно один раз на принятую операцию или на разрешенный батч.
// Повтор последовательности с пустого состояния детерминированно воспроизводит сетку.
type VersionedHistory struct {
	mu          sync.RWMutex
	index       map[string]int // ID операции -> позиция в entries
	entries     []Entry
	version     int64
	lastApplied time.Time
}

// NewVersionedHistory создает пустую историю
func NewVersionedHistory() *VersionedHistory {
	return &VersionedHistory{
		index: make(map[string]int),
	}
}

// Version возвращает текущую версию
func (h *VersionedHistory) Version() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.version
}

// LastApplied возвращает время последнего принятия
func (h *VersionedHistory) LastApplied() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.lastApplied
}

// Contains проверяет, принята ли уже операция с данным ID.
// Используется для дедупликации при at-least-once доставке.
func (h *VersionedHistory) Contains(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.index[id]
	return ok
}

// Append принимает одну операцию и возвращает присвоенную ей версию.
// Дубликат по ID не добавляется повторно: возвращается его исходная версия.
func (h *VersionedHistory) Append(op models.Operation) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if pos, ok := h.index[op.ID]; ok {
		return h.entries[pos].Version
	}

	h.version++
	h.index[op.ID] = len(h.entries)
	h.entries = append(h.entries, Entry{Op: op, Version: h.version})
	h.lastApplied = time.Now()

	return h.version
}

// AppendBatch принимает батч операций с единственным увеличением версии.
// Используется для результата разрешения конфликта: вся резолюция — один
// атомарный bump, даже если операций в ней ноль.
func (h *VersionedHistory) AppendBatch(ops []models.Operation) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.version++
	for _, op := range ops {
		if _, ok := h.index[op.ID]; ok {
			continue
		}
		h.index[op.ID] = len(h.entries)
		h.entries = append(h.entries, Entry{Op: op, Version: h.version})
	}
	h.lastApplied = time.Now()

	return h.version
}

// MarkSuperseded помечает операции как вытесненные резолюцией groupID
func (h *VersionedHistory) MarkSuperseded(ids []string, groupID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, id := range ids {
		if pos, ok := h.index[id]; ok {
			h.entries[pos].SupersededBy = groupID
		}
	}
}

// Since возвращает копии записей с версией строго больше заданной
func (h *VersionedHistory) Since(version int64) []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Entry, 0)
	for _, e := range h.entries {
		if e.Version > version {
			out = append(out, e)
		}
	}
	return out
}

// Active возвращает невытесненные операции в порядке принятия.
// Fold этой последовательности с пустого состояния дает текущую сетку.
func (h *VersionedHistory) Active() []models.Operation {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]models.Operation, 0, len(h.entries))
	for _, e := range h.entries {
		if e.SupersededBy == "" {
			out = append(out, e.Op)
		}
	}
	return out
}

// SupersededIDs возвращает ID всех вытесненных операций в истории.
// Список кумулятивный: клиенты вычитают его из своего авторитетного
// набора независимо от того, с какой версии они догоняют.
func (h *VersionedHistory) SupersededIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0)
	for _, e := range h.entries {
		if e.SupersededBy != "" {
			out = append(out, e.Op.ID)
		}
	}
	return out
}

// Restore восстанавливает историю из журнала операций.
// Записи должны идти в порядке возрастания версий.
func (h *VersionedHistory) Restore(entries []Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = make([]Entry, 0, len(entries))
	h.index = make(map[string]int, len(entries))
	h.version = 0

	for _, e := range entries {
		h.index[e.Op.ID] = len(h.entries)
		h.entries = append(h.entries, e)
		if e.Version > h.version {
			h.version = e.Version
		}
	}
	h.lastApplied = time.Now()
}
