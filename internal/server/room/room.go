package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/puzzlesync/internal/conflict"
	"github.com/iudanet/puzzlesync/internal/models"
	"github.com/iudanet/puzzlesync/internal/ot"
	"github.com/iudanet/puzzlesync/internal/server/storage"
)

// Ошибки комнаты
var (
	// ErrVersionAhead возвращается, когда клиент заявляет версию больше
	// серверной. Клиент обязан выполнить полный resync.
	ErrVersionAhead = errors.New("client version ahead of server")

	// ErrUnresolvedConflict возвращается, когда push затрагивает диапазон
	// неразрешенной конфликтной группы. Правки диапазона отклоняются
	// до вызова резолюции.
	ErrUnresolvedConflict = errors.New("range has unresolved conflict")

	// ErrUnknownGroup возвращается при резолюции несуществующей группы
	ErrUnknownGroup = errors.New("unknown conflict group")
)

// PushResult представляет результат принятия push-а клиента
type PushResult struct {
	// Operations содержит все активные операции после lastVersion клиента,
	// включая принятые из этого push-а, в порядке версий
	Operations         []models.Operation
	SupersededIDs      []string
	Conflicts          []models.ConflictGroup
	Version            int64
	RequiresResolution bool
}

// PullResult представляет результат catch-up pull-а
type PullResult struct {
	Operations    []models.Operation
	SupersededIDs []string
	Version       int64
}

// ResolveResult представляет результат разрешения конфликтной группы
type ResolveResult struct {
	Operations    []models.Operation // операции, вошедшие в историю резолюцией
	SupersededIDs []string
	Version       int64
	Partial       bool
}

// Room представляет единственного сериализующего владельца истории комнаты.
// Все шаги принятия, трансформации, обнаружения конфликтов и продвижения
// версии выполняются атомарно под одним мьютексом; разные комнаты независимы.
type Room struct {
	mu            sync.Mutex
	id            string
	history       *ot.VersionedHistory
	detector      *conflict.Detector
	resolver      *conflict.Resolver
	pendingGroups map[string]models.ConflictGroup
	oplog         storage.OperationLog
	logger        *slog.Logger
}

// New создает комнату поверх восстановленной истории
func New(id string, history *ot.VersionedHistory, cfg conflict.Config, oplog storage.OperationLog, logger *slog.Logger) *Room {
	return &Room{
		id:            id,
		history:       history,
		detector:      conflict.NewDetector(cfg),
		resolver:      conflict.NewResolver(logger),
		pendingGroups: make(map[string]models.ConflictGroup),
		oplog:         oplog,
		logger:        logger,
	}
}

// ID возвращает идентификатор комнаты
func (r *Room) ID() string {
	return r.id
}

// Version возвращает текущую версию комнаты
func (r *Room) Version() int64 {
	return r.history.Version()
}

// Grid возвращает текущую проекцию сетки комнаты (реконструкция активной истории)
func (r *Room) Grid() *ot.Grid {
	r.mu.Lock()
	defer r.mu.Unlock()

	return ot.Reconstruct(r.history.Active())
}

// PendingConflicts возвращает копии неразрешенных конфликтных групп
func (r *Room) PendingConflicts() []models.ConflictGroup {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.pendingConflictsLocked()
}

// Push принимает операции клиента, отправленные против lastVersion.
// Входящие операции трансформируются против всего, что принято после
// lastVersion, прогоняются через детектор конфликтов и либо принимаются
// с bump-ом версии на каждую, либо паркуются как конфликтная группа
// с удержанием версии для конфликтующего диапазона.
func (r *Room) Push(ctx context.Context, userID string, lastVersion int64, ops []models.Operation) (*PushResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lastVersion > r.history.Version() {
		return nil, fmt.Errorf("%w: client %d, server %d", ErrVersionAhead, lastVersion, r.history.Version())
	}

	// Активные операции, которые клиент еще не видел
	missed := make([]models.Operation, 0)
	for _, e := range r.history.Since(lastVersion) {
		if e.SupersededBy == "" {
			missed = append(missed, e.Op)
		}
	}

	// Валидация, дедупликация и трансформация входящих
	candidates := make([]models.Operation, 0, len(ops))
	for _, op := range ops {
		if err := op.Validate(); err != nil {
			return nil, err
		}
		if op.UserID != userID {
			return nil, fmt.Errorf("%w: operation %s author mismatch", models.ErrInvalidOperation, op.ID)
		}
		if r.history.Contains(op.ID) {
			// At-least-once доставка: повтор применяется ровно один раз
			continue
		}

		t := ot.TransformAgainst(op, missed)

		// Правки диапазона неразрешенного конфликта отклоняются целиком
		for _, g := range r.pendingGroups {
			if spanRange(t).Overlaps(g.AffectedRange) {
				return nil, fmt.Errorf("%w: group %s", ErrUnresolvedConflict, g.ID)
			}
		}

		candidates = append(candidates, t)
	}

	// Детектор работает над объединением: входящие плюс принятые после lastVersion
	merged := make([]models.Operation, 0, len(candidates)+len(missed))
	merged = append(merged, candidates...)
	merged = append(merged, missed...)
	groups := r.detector.Detect(merged)

	// Паркуем группы, в которых участвуют входящие операции
	parked := make(map[string]struct{})
	newGroups := make([]models.ConflictGroup, 0)
	for _, g := range groups {
		involvesIncoming := false
		for _, c := range candidates {
			if g.Contains(c.ID) {
				involvesIncoming = true
				break
			}
		}
		if !involvesIncoming {
			// Группа только из уже сериализованных операций: история их
			// уже упорядочила, блокировать нечего
			continue
		}

		r.pendingGroups[g.ID] = g
		newGroups = append(newGroups, g.Clone())
		for _, op := range g.Operations {
			parked[op.ID] = struct{}{}
		}

		r.logger.Info("conflict group parked",
			"room_id", r.id,
			"group_id", g.ID,
			"operations", len(g.Operations),
			"participants", g.Participants)
	}

	// Принимаем бесконфликтные операции: один bump версии на операцию
	for _, op := range candidates {
		if _, ok := parked[op.ID]; ok {
			continue
		}

		version := r.history.Append(op)
		if err := r.appendToLog(ctx, version, op); err != nil {
			return nil, err
		}

		r.logger.Debug("operation accepted",
			"room_id", r.id,
			"op_id", op.ID,
			"user_id", op.UserID,
			"version", version)
	}

	result := &PushResult{
		Operations:         r.activeSinceLocked(lastVersion),
		SupersededIDs:      r.history.SupersededIDs(),
		Version:            r.history.Version(),
		Conflicts:          newGroups,
		RequiresResolution: len(newGroups) > 0,
	}

	return result, nil
}

// Pull возвращает активные операции после заданной версии
func (r *Room) Pull(ctx context.Context, since int64) (*PullResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return &PullResult{
		Operations:    r.activeSinceLocked(since),
		SupersededIDs: r.history.SupersededIDs(),
		Version:       r.history.Version(),
	}, nil
}

// Resolve схлопывает запаркованную группу по выбранной стратегии.
// Вся резолюция — один атомарный bump версии: победители и вытесненные
// операции входят в историю батчем, проигравшие помечаются superseded.
func (r *Room) Resolve(ctx context.Context, userID, groupID string, strategy conflict.Strategy) (*ResolveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, ok := r.pendingGroups[groupID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}

	outcome, err := r.resolver.Resolve(group, strategy)
	if err != nil {
		return nil, err
	}

	beforeVersion := r.history.Version()

	// В историю входят все члены группы, которых там еще нет:
	// победители действуют, проигравшие остаются для аудита
	batch := make([]models.Operation, 0, len(group.Operations)+1)
	for _, w := range outcome.Winners {
		if !r.history.Contains(w.ID) {
			batch = append(batch, w)
		}
	}
	superseded := make(map[string]struct{}, len(outcome.SupersededIDs))
	for _, id := range outcome.SupersededIDs {
		superseded[id] = struct{}{}
	}
	for _, op := range group.Operations {
		if _, lost := superseded[op.ID]; lost && !r.history.Contains(op.ID) {
			batch = append(batch, op)
		}
	}

	// Ручная резолюция с текстом выражается синтетической операцией replace
	// поверх затронутого диапазона
	if outcome.Content != "" {
		batch = append(batch, models.Operation{
			ID:        uuid.New().String(),
			UserID:    userID,
			Type:      models.OpReplace,
			Content:   outcome.Content,
			Timestamp: time.Now().UnixMilli(),
			Position:  group.AffectedRange.Start,
			Length:    group.AffectedRange.End - group.AffectedRange.Start,
		})
	}

	version := r.history.AppendBatch(batch)
	for _, op := range batch {
		if err := r.appendToLog(ctx, version, op); err != nil {
			return nil, err
		}
	}

	r.history.MarkSuperseded(outcome.SupersededIDs, group.ID)
	if err := r.oplog.MarkSuperseded(ctx, r.id, outcome.SupersededIDs, group.ID); err != nil {
		return nil, fmt.Errorf("failed to mark superseded operations: %w", err)
	}

	delete(r.pendingGroups, groupID)

	r.logger.Info("conflict group resolved",
		"room_id", r.id,
		"group_id", groupID,
		"strategy", outcome.Strategy,
		"winners", len(outcome.Winners),
		"superseded", len(outcome.SupersededIDs),
		"partial", outcome.Partial,
		"version", version)

	return &ResolveResult{
		Operations:    r.activeSinceLocked(beforeVersion),
		SupersededIDs: r.history.SupersededIDs(),
		Version:       version,
		Partial:       outcome.Partial,
	}, nil
}

// appendToLog пишет принятую операцию в durable-журнал.
// Повтор записи журналом игнорируется: журнал append-only и идемпотентен по op ID.
func (r *Room) appendToLog(ctx context.Context, version int64, op models.Operation) error {
	err := r.oplog.Append(ctx, r.id, version, op)
	if err != nil && !errors.Is(err, storage.ErrDuplicateOperation) {
		return fmt.Errorf("failed to persist operation %s: %w", op.ID, err)
	}
	return nil
}

// activeSinceLocked возвращает невытесненные операции после версии.
// Вызывается только под r.mu.
func (r *Room) activeSinceLocked(since int64) []models.Operation {
	out := make([]models.Operation, 0)
	for _, e := range r.history.Since(since) {
		if e.SupersededBy == "" {
			out = append(out, e.Op)
		}
	}
	return out
}

// pendingConflictsLocked возвращает копии запаркованных групп.
// Вызывается только под r.mu.
func (r *Room) pendingConflictsLocked() []models.ConflictGroup {
	out := make([]models.ConflictGroup, 0, len(r.pendingGroups))
	for _, g := range r.pendingGroups {
		out = append(out, g.Clone())
	}
	return out
}

func spanRange(op models.Operation) models.Range {
	start, end := op.Span()
	return models.Range{Start: start, End: end}
}
