package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff"

	clientapi "github.com/iudanet/puzzlesync/internal/client/api"
	"github.com/iudanet/puzzlesync/internal/client/storage"
	"github.com/iudanet/puzzlesync/internal/models"
	"github.com/iudanet/puzzlesync/internal/ot"
	"github.com/iudanet/puzzlesync/pkg/api"
)

//go:generate go tool moq -out api_mock.go . ClientAPI

// ClientAPI определяет серверные вызовы, нужные координатору.
// Реализуется http-клиентом из internal/client/api, в тестах — моком.
type ClientAPI interface {
	// Pull выполняет catch-up pull операций комнаты после версии since
	Pull(ctx context.Context, roomID string, since int64) (*api.PullResponse, error)

	// Push отправляет ожидающие операции против последней виденной версии
	Push(ctx context.Context, roomID string, req api.SyncRequest) (*api.SyncResponse, error)

	// Resolve отправляет резолюцию конфликтной группы
	Resolve(ctx context.Context, roomID string, req api.ResolveRequest) (*api.ResolveResponse, error)
}

// Ошибки координатора
var (
	// ErrNotConnected операция требует установленной сессии
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected сессия уже установлена
	ErrAlreadyConnected = errors.New("already connected")

	// ErrRangeHeld диапазон заблокирован до разрешения конфликта
	ErrRangeHeld = errors.New("range held by unresolved conflict")
)

// State состояние координатора синхронизации
type State int

// Состояния координатора
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateSyncing
	StateReconciling
)

// String возвращает имя состояния
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSyncing:
		return "syncing"
	case StateReconciling:
		return "reconciling"
	}
	return "unknown"
}

// ConflictHandler вызывается, когда сервер сообщает о неразрешенных конфликтах.
// Вызов происходит вне мьютекса координатора.
type ConflictHandler func(groups []models.ConflictGroup)

// Coordinator управляет циклом синхронизации клиента: оптимистичное локальное
// применение, периодический push ожидающих операций, полный resync при
// расхождении версий и экспоненциальный backoff при сетевых сбоях.
//
// Версия продвигается только по подтверждению сервера. После Disconnect
// результаты запросов, начатых в старой сессии, отбрасываются по номеру эпохи.
type Coordinator struct {
	mu sync.Mutex

	roomID string
	userID string

	api       ClientAPI
	store     storage.PendingStore
	engine    *ot.Engine
	scheduler Scheduler
	logger    *slog.Logger

	state   State
	epoch   uint64
	version int64

	retry   *backoff.ExponentialBackOff
	retryAt time.Time

	conflicts  map[string]models.ConflictGroup
	held       map[string]struct{} // ID запаркованных сервером операций: не переотправляются до резолюции
	onConflict ConflictHandler
}

// NewCoordinator создает координатор для комнаты roomID от имени userID
func NewCoordinator(
	client ClientAPI,
	store storage.PendingStore,
	scheduler Scheduler,
	roomID, userID string,
	logger *slog.Logger,
) *Coordinator {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 500 * time.Millisecond
	retry.MaxInterval = 30 * time.Second
	retry.MaxElapsedTime = 0 // retry until disconnect

	return &Coordinator{
		roomID:    roomID,
		userID:    userID,
		api:       client,
		store:     store,
		engine:    ot.NewEngine(),
		scheduler: scheduler,
		logger:    logger,
		state:     StateDisconnected,
		retry:     retry,
		conflicts: make(map[string]models.ConflictGroup),
		held:      make(map[string]struct{}),
	}
}

// OnConflict устанавливает обработчик обнаруженных сервером конфликтов
func (c *Coordinator) OnConflict(h ConflictHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConflict = h
}

// State возвращает текущее состояние координатора
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Version возвращает последнюю подтвержденную сервером версию
func (c *Coordinator) Version() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Conflicts возвращает копию известных неразрешенных конфликтных групп
func (c *Coordinator) Conflicts() []models.ConflictGroup {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.ConflictGroup, 0, len(c.conflicts))
	for _, g := range c.conflicts {
		out = append(out, g.Clone())
	}
	return out
}

// Grid возвращает снимок текущей локальной проекции сетки
func (c *Coordinator) Grid() *ot.Grid {
	return c.engine.Grid()
}

// PendingCount возвращает размер очереди неподтвержденных операций
func (c *Coordinator) PendingCount() int {
	return c.engine.PendingCount()
}

// Connect устанавливает сессию: начальный полный pull, восстановление
// сохраненной очереди ожидающих операций, запуск планировщика.
func (c *Coordinator) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.state = StateConnecting
	epoch := c.epoch
	c.mu.Unlock()

	resp, err := c.api.Pull(ctx, c.roomID, 0)
	if err != nil {
		c.mu.Lock()
		if c.epoch == epoch {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
		return fmt.Errorf("initial pull failed: %w", err)
	}

	// Очередь из прошлого запуска клиента переживает рестарт
	persisted, err := c.store.ListPending(ctx)
	if err != nil {
		c.mu.Lock()
		if c.epoch == epoch {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
		return fmt.Errorf("failed to load pending queue: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch {
		return ErrNotConnected
	}

	c.resetToServer(resp.Operations, resp.SupersededIDs, persisted)
	c.version = resp.Version
	c.state = StateConnected
	c.retry.Reset()
	c.retryAt = time.Time{}

	if err := c.store.SaveLastVersion(ctx, resp.Version); err != nil {
		c.logger.Warn("failed to persist last version", "error", err)
	}

	c.scheduler.Start(func() { c.tickScheduled() })

	c.logger.Info("connected",
		"room_id", c.roomID,
		"version", resp.Version,
		"pending", len(persisted))

	return nil
}

// Disconnect разрывает сессию. Планировщик останавливается, номер эпохи
// увеличивается: ответы на запросы, начатые до разрыва, отбрасываются.
// Очередь ожидающих операций остается в хранилище.
func (c *Coordinator) Disconnect() {
	c.mu.Lock()
	if c.state == StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.epoch++
	c.state = StateDisconnected
	scheduler := c.scheduler
	c.mu.Unlock()

	scheduler.Stop()

	c.logger.Info("disconnected", "room_id", c.roomID)
}

// Apply валидирует операцию, оптимистично применяет ее к локальной проекции
// и ставит в очередь на отправку. Операции в диапазоне неразрешенного
// конфликта отклоняются до резолюции.
func (c *Coordinator) Apply(ctx context.Context, op models.Operation) error {
	if err := op.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	start, end := op.Span()
	span := models.Range{Start: start, End: end}
	for id, g := range c.conflicts {
		if span.Overlaps(g.AffectedRange) {
			c.mu.Unlock()
			return fmt.Errorf("%w: group %s", ErrRangeHeld, id)
		}
	}
	c.mu.Unlock()

	if err := c.engine.ApplyLocal(op); err != nil {
		return err
	}

	if err := c.store.SavePending(ctx, op); err != nil {
		return fmt.Errorf("failed to persist pending operation: %w", err)
	}

	return nil
}

// Tick выполняет один шаг автосинхронизации: отправляет очередь ожидающих
// операций, если координатор подключен, очередь непуста и окно backoff истекло.
// Возвращает nil, если шаг пропущен.
func (c *Coordinator) Tick(ctx context.Context) error {
	c.mu.Lock()

	if c.state != StateConnected {
		c.mu.Unlock()
		return nil
	}
	if !c.retryAt.IsZero() && time.Now().Before(c.retryAt) {
		c.mu.Unlock()
		return nil
	}

	// Запаркованные сервером операции не переотправляются: их судьбу
	// определит резолюция конфликтной группы
	pending := c.pendingUnheldLocked()
	if len(pending) == 0 {
		c.mu.Unlock()
		return nil
	}

	c.state = StateSyncing
	epoch := c.epoch
	lastVersion := c.version
	c.mu.Unlock()

	resp, err := c.api.Push(ctx, c.roomID, api.SyncRequest{
		Operations:  opsToAPI(pending),
		UserID:      c.userID,
		LastVersion: lastVersion,
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch {
		// Сессия разорвана во время запроса: результат устарел
		return nil
	}

	if err != nil {
		return c.handlePushError(ctx, epoch, err)
	}

	c.state = StateConnected
	c.retry.Reset()
	c.retryAt = time.Time{}

	return c.applySyncResponse(ctx, resp)
}

// ResolveConflict отправляет резолюцию конфликтной группы и применяет
// авторитетный результат сервера
func (c *Coordinator) ResolveConflict(ctx context.Context, req api.ResolveRequest) error {
	c.mu.Lock()
	if c.state == StateDisconnected || c.state == StateConnecting {
		c.mu.Unlock()
		return ErrNotConnected
	}
	epoch := c.epoch
	c.mu.Unlock()

	resp, err := c.api.Resolve(ctx, c.roomID, req)
	if err != nil {
		return fmt.Errorf("resolve failed: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch {
		return nil
	}

	// Судьбу запаркованных операций группы определил сервер:
	// удержание снимается, вытесненные уходят из очереди
	if group, ok := c.conflicts[req.GroupID]; ok {
		for _, op := range group.Operations {
			delete(c.held, op.ID)
		}
	}
	delete(c.conflicts, req.GroupID)

	remaining := c.pendingOutside(resp.SupersededIDs, resp.Operations)
	c.mergeServerOps(resp.Operations, resp.SupersededIDs, remaining)
	c.version = resp.Version

	if err := c.persistQueue(ctx, remaining, resp.Version); err != nil {
		c.logger.Warn("failed to persist queue after resolve", "error", err)
	}

	c.logger.Info("conflict resolved",
		"group_id", req.GroupID,
		"strategy", req.Strategy,
		"partial", resp.Partial,
		"version", resp.Version)

	return nil
}

// tickScheduled вызывается планировщиком
func (c *Coordinator) tickScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Tick(ctx); err != nil {
		c.logger.Warn("auto sync step failed", "error", err)
	}
}

// handlePushError обрабатывает ошибку push под мьютексом координатора
func (c *Coordinator) handlePushError(ctx context.Context, epoch uint64, err error) error {
	switch {
	case errors.Is(err, clientapi.ErrVersionConflict), errors.Is(err, clientapi.ErrNotFound):
		// Расхождение версий: полный resync, очередь сохраняется
		return c.reconcileLocked(ctx, epoch)
	case errors.Is(err, clientapi.ErrUnresolvedConflict):
		// Диапазон удержан на сервере чужой конфликтной группой:
		// resync не поможет, ждем резолюцию с backoff-ом
		c.state = StateConnected
		c.retryAt = time.Now().Add(c.retry.NextBackOff())
		c.logger.Warn("push rejected, range held on server", "error", err)
		return fmt.Errorf("push failed: %w", err)
	default:
		// Сетевой сбой: очередь остается, следующая попытка после backoff
		c.state = StateConnected
		c.retryAt = time.Now().Add(c.retry.NextBackOff())
		c.logger.Warn("push failed, will retry",
			"error", err,
			"retry_at", c.retryAt.Format(time.RFC3339))
		return fmt.Errorf("push failed: %w", err)
	}
}

// reconcileLocked выполняет полный pull и перестраивает локальное состояние.
// Вызывается под мьютексом; на время запроса мьютекс отпускается.
func (c *Coordinator) reconcileLocked(ctx context.Context, epoch uint64) error {
	c.state = StateReconciling
	c.logger.Info("version gap detected, reconciling", "room_id", c.roomID)

	c.mu.Unlock()
	resp, err := c.api.Pull(ctx, c.roomID, 0)
	c.mu.Lock()

	if c.epoch != epoch {
		return nil
	}

	if err != nil {
		c.state = StateConnected
		c.retryAt = time.Now().Add(c.retry.NextBackOff())
		return fmt.Errorf("reconcile pull failed: %w", err)
	}

	remaining := c.pendingOutside(resp.SupersededIDs, resp.Operations)
	c.resetToServerModels(opsFromAPI(resp.Operations), resp.SupersededIDs, remaining)
	c.version = resp.Version
	c.state = StateConnected
	c.retry.Reset()
	c.retryAt = time.Time{}

	if err := c.persistQueue(ctx, remaining, resp.Version); err != nil {
		c.logger.Warn("failed to persist queue after reconcile", "error", err)
	}

	c.logger.Info("reconciled", "version", resp.Version, "pending", len(remaining))

	return nil
}

// applySyncResponse применяет успешный ответ push под мьютексом координатора
func (c *Coordinator) applySyncResponse(ctx context.Context, resp *api.SyncResponse) error {
	// Операции, запаркованные сервером в конфликтных группах, остаются
	// в очереди до резолюции
	remaining := c.pendingOutside(resp.SupersededIDs, resp.Operations)

	c.mergeServerOps(resp.Operations, resp.SupersededIDs, remaining)
	c.version = resp.Version

	if err := c.persistQueue(ctx, remaining, resp.Version); err != nil {
		c.logger.Warn("failed to persist queue after sync", "error", err)
	}

	if resp.RequiresResolution {
		queued := make(map[string]struct{}, len(remaining))
		for _, op := range remaining {
			queued[op.ID] = struct{}{}
		}

		groups := groupsFromAPI(resp.Conflicts)
		for _, g := range groups {
			c.conflicts[g.ID] = g
			for _, op := range g.Operations {
				if _, ok := queued[op.ID]; ok {
					c.held[op.ID] = struct{}{}
				}
			}
		}
		handler := c.onConflict

		c.logger.Warn("server reported conflicts",
			"groups", len(groups),
			"version", resp.Version)

		if handler != nil {
			// Обработчик вызывается вне мьютекса
			c.mu.Unlock()
			handler(groups)
			c.mu.Lock()
		}
	}

	c.logger.Debug("sync step complete",
		"version", resp.Version,
		"accepted", len(resp.Operations),
		"held", len(remaining))

	return nil
}

// pendingUnheldLocked возвращает ожидающие операции, не запаркованные
// сервером. Вызывается под мьютексом.
func (c *Coordinator) pendingUnheldLocked() []models.Operation {
	out := make([]models.Operation, 0)
	for _, op := range c.engine.Pending() {
		if _, ok := c.held[op.ID]; !ok {
			out = append(out, op)
		}
	}
	return out
}

// mergeServerOps дополняет авторитетный список новыми операциями сервера,
// исключает вытесненные и перевыводит проекцию. remaining — операции,
// остающиеся в локальной очереди поверх авторитетного состояния.
func (c *Coordinator) mergeServerOps(ops []api.Operation, supersededIDs []string, remaining []models.Operation) {
	superseded := make(map[string]struct{}, len(supersededIDs))
	for _, id := range supersededIDs {
		superseded[id] = struct{}{}
	}

	current := c.engine.Accepted()
	seen := make(map[string]struct{}, len(current)+len(ops))
	merged := make([]models.Operation, 0, len(current)+len(ops))

	appendOp := func(op models.Operation) {
		if _, ok := superseded[op.ID]; ok {
			return
		}
		if _, ok := seen[op.ID]; ok {
			return
		}
		seen[op.ID] = struct{}{}
		merged = append(merged, op)
	}

	for _, op := range current {
		appendOp(op)
	}
	for _, op := range ops {
		appendOp(opFromAPI(op))
	}

	c.engine.ResetTo(merged)
	for _, op := range remaining {
		if err := c.engine.ApplyLocal(op); err != nil {
			c.logger.Warn("failed to reapply pending operation", "op_id", op.ID, "error", err)
		}
	}
}

// resetToServer полностью замещает локальное состояние ответом сервера
func (c *Coordinator) resetToServer(ops []api.Operation, supersededIDs []string, pending []models.Operation) {
	c.resetToServerModels(opsFromAPI(ops), supersededIDs, pending)
}

func (c *Coordinator) resetToServerModels(ops []models.Operation, supersededIDs []string, pending []models.Operation) {
	superseded := make(map[string]struct{}, len(supersededIDs))
	for _, id := range supersededIDs {
		superseded[id] = struct{}{}
	}

	active := make([]models.Operation, 0, len(ops))
	for _, op := range ops {
		if _, ok := superseded[op.ID]; ok {
			continue
		}
		active = append(active, op)
	}

	c.engine.ResetTo(active)
	for _, op := range pending {
		if err := c.engine.ApplyLocal(op); err != nil {
			c.logger.Warn("failed to reapply pending operation", "op_id", op.ID, "error", err)
		}
	}
}

// pendingOutside возвращает ожидающие операции, которых нет ни среди
// вытесненных, ни среди принятых сервером
func (c *Coordinator) pendingOutside(supersededIDs []string, ops []api.Operation) []models.Operation {
	drop := make(map[string]struct{}, len(supersededIDs)+len(ops))
	for _, id := range supersededIDs {
		drop[id] = struct{}{}
	}
	for _, op := range ops {
		drop[op.ID] = struct{}{}
	}

	out := make([]models.Operation, 0)
	for _, op := range c.engine.Pending() {
		if _, ok := drop[op.ID]; !ok {
			out = append(out, op)
		}
	}
	return out
}

// persistQueue перезаписывает сохраненную очередь и последнюю версию
func (c *Coordinator) persistQueue(ctx context.Context, remaining []models.Operation, version int64) error {
	if err := c.store.ClearPending(ctx); err != nil {
		return err
	}
	for _, op := range remaining {
		if err := c.store.SavePending(ctx, op); err != nil {
			return err
		}
	}
	return c.store.SaveLastVersion(ctx, version)
}
