package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	syncpkg "sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clientapi "github.com/iudanet/puzzlesync/internal/client/api"
	"github.com/iudanet/puzzlesync/internal/client/storage"
	"github.com/iudanet/puzzlesync/internal/models"
	"github.com/iudanet/puzzlesync/pkg/api"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeScheduler записывает запуски и остановки вместо реального тикера
type fakeScheduler struct {
	mu      syncpkg.Mutex
	started int
	stopped int
	tick    func()
}

func (f *fakeScheduler) Start(tick func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
	f.tick = tick
}

func (f *fakeScheduler) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
}

func (f *fakeScheduler) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started, f.stopped
}

// newStoreMock возвращает PendingStore поверх среза в памяти
func newStoreMock() *storage.PendingStoreMock {
	var mu syncpkg.Mutex
	var ops []models.Operation
	var version int64

	return &storage.PendingStoreMock{
		SavePendingFunc: func(ctx context.Context, op models.Operation) error {
			mu.Lock()
			defer mu.Unlock()
			ops = append(ops, op)
			return nil
		},
		ListPendingFunc: func(ctx context.Context) ([]models.Operation, error) {
			mu.Lock()
			defer mu.Unlock()
			out := make([]models.Operation, len(ops))
			copy(out, ops)
			return out, nil
		},
		ClearPendingFunc: func(ctx context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			ops = nil
			return nil
		},
		SaveLastVersionFunc: func(ctx context.Context, v int64) error {
			mu.Lock()
			defer mu.Unlock()
			version = v
			return nil
		},
		LastVersionFunc: func(ctx context.Context) (int64, error) {
			mu.Lock()
			defer mu.Unlock()
			return version, nil
		},
	}
}

func emptyPull() *api.PullResponse {
	return &api.PullResponse{Version: 0}
}

func insertOp(id, user string, pos int, ts int64, content string) models.Operation {
	return models.Operation{
		ID:        id,
		UserID:    user,
		Type:      models.OpInsert,
		Content:   content,
		Position:  pos,
		Timestamp: ts,
	}
}

func newTestCoordinator(client *ClientAPIMock, store *storage.PendingStoreMock, scheduler *fakeScheduler) *Coordinator {
	return NewCoordinator(client, store, scheduler, "room-1", "alice", testLogger())
}

func TestCoordinator_Connect(t *testing.T) {
	client := &ClientAPIMock{
		PullFunc: func(ctx context.Context, roomID string, since int64) (*api.PullResponse, error) {
			return &api.PullResponse{
				Version: 3,
				Operations: []api.Operation{
					{ID: "s1", UserID: "bob", Type: "insert", Content: "A", Position: 0, Timestamp: 1000},
				},
			}, nil
		},
	}
	store := newStoreMock()
	scheduler := &fakeScheduler{}

	// Очередь прошлого запуска восстанавливается поверх состояния сервера
	require.NoError(t, store.SavePending(context.Background(), insertOp("p1", "alice", 1, 2000, "B")))

	c := newTestCoordinator(client, store, scheduler)
	require.NoError(t, c.Connect(context.Background()))

	assert.Equal(t, StateConnected, c.State())
	assert.Equal(t, int64(3), c.Version())
	assert.Equal(t, 1, c.PendingCount())
	assert.Equal(t, "AB", c.Grid().Text())

	started, _ := scheduler.counts()
	assert.Equal(t, 1, started)

	require.Len(t, client.PullCalls(), 1)
	assert.Equal(t, int64(0), client.PullCalls()[0].Since)

	// Повторное подключение без разрыва отклоняется
	assert.ErrorIs(t, c.Connect(context.Background()), ErrAlreadyConnected)
}

func TestCoordinator_ConnectPullFails(t *testing.T) {
	client := &ClientAPIMock{
		PullFunc: func(ctx context.Context, roomID string, since int64) (*api.PullResponse, error) {
			return nil, errors.New("connection refused")
		},
	}
	scheduler := &fakeScheduler{}

	c := newTestCoordinator(client, newStoreMock(), scheduler)
	err := c.Connect(context.Background())
	require.Error(t, err)

	assert.Equal(t, StateDisconnected, c.State())
	started, _ := scheduler.counts()
	assert.Zero(t, started)
}

func TestCoordinator_ApplyQueuesOperation(t *testing.T) {
	client := &ClientAPIMock{
		PullFunc: func(ctx context.Context, roomID string, since int64) (*api.PullResponse, error) {
			return emptyPull(), nil
		},
	}
	store := newStoreMock()

	c := newTestCoordinator(client, store, &fakeScheduler{})
	require.NoError(t, c.Connect(context.Background()))

	require.NoError(t, c.Apply(context.Background(), insertOp("p1", "alice", 0, 1000, "X")))

	assert.Equal(t, 1, c.PendingCount())
	assert.Equal(t, "X", c.Grid().Text())

	// Операция пережила бы рестарт клиента
	persisted, err := store.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, "p1", persisted[0].ID)
}

func TestCoordinator_ApplyRejectsInvalid(t *testing.T) {
	c := newTestCoordinator(&ClientAPIMock{}, newStoreMock(), &fakeScheduler{})

	err := c.Apply(context.Background(), models.Operation{ID: "p1", UserID: "alice", Type: models.OpInsert})
	assert.ErrorIs(t, err, models.ErrInvalidOperation)
}

func TestCoordinator_TickSkipsWhenNothingPending(t *testing.T) {
	client := &ClientAPIMock{
		PullFunc: func(ctx context.Context, roomID string, since int64) (*api.PullResponse, error) {
			return emptyPull(), nil
		},
		PushFunc: func(ctx context.Context, roomID string, req api.SyncRequest) (*api.SyncResponse, error) {
			return &api.SyncResponse{}, nil
		},
	}

	c := newTestCoordinator(client, newStoreMock(), &fakeScheduler{})
	require.NoError(t, c.Connect(context.Background()))

	require.NoError(t, c.Tick(context.Background()))
	assert.Empty(t, client.PushCalls())
}

func TestCoordinator_TickPushesPending(t *testing.T) {
	client := &ClientAPIMock{
		PullFunc: func(ctx context.Context, roomID string, since int64) (*api.PullResponse, error) {
			return emptyPull(), nil
		},
		PushFunc: func(ctx context.Context, roomID string, req api.SyncRequest) (*api.SyncResponse, error) {
			return &api.SyncResponse{
				Version:    1,
				Operations: req.Operations,
			}, nil
		},
	}
	store := newStoreMock()

	c := newTestCoordinator(client, store, &fakeScheduler{})
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Apply(context.Background(), insertOp("p1", "alice", 0, 1000, "X")))

	require.NoError(t, c.Tick(context.Background()))

	assert.Equal(t, int64(1), c.Version())
	assert.Zero(t, c.PendingCount())
	assert.Equal(t, "X", c.Grid().Text())
	assert.Equal(t, StateConnected, c.State())

	require.Len(t, client.PushCalls(), 1)
	pushed := client.PushCalls()[0].Req
	assert.Equal(t, "alice", pushed.UserID)
	assert.Equal(t, int64(0), pushed.LastVersion)
	require.Len(t, pushed.Operations, 1)
	assert.Equal(t, "p1", pushed.Operations[0].ID)

	// Подтвержденная операция убрана из сохраненной очереди
	persisted, err := store.ListPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, persisted)

	version, err := store.LastVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestCoordinator_TickNetworkFailureBacksOff(t *testing.T) {
	client := &ClientAPIMock{
		PullFunc: func(ctx context.Context, roomID string, since int64) (*api.PullResponse, error) {
			return emptyPull(), nil
		},
		PushFunc: func(ctx context.Context, roomID string, req api.SyncRequest) (*api.SyncResponse, error) {
			return nil, errors.New("connection reset")
		},
	}

	c := newTestCoordinator(client, newStoreMock(), &fakeScheduler{})
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Apply(context.Background(), insertOp("p1", "alice", 0, 1000, "X")))

	err := c.Tick(context.Background())
	require.Error(t, err)

	// Очередь не потеряна, координатор остался подключенным
	assert.Equal(t, 1, c.PendingCount())
	assert.Equal(t, StateConnected, c.State())

	// Следующий шаг до истечения окна backoff пропускается
	require.NoError(t, c.Tick(context.Background()))
	assert.Len(t, client.PushCalls(), 1)
}

func TestCoordinator_TickVersionConflictReconciles(t *testing.T) {
	pulls := 0
	client := &ClientAPIMock{
		PullFunc: func(ctx context.Context, roomID string, since int64) (*api.PullResponse, error) {
			pulls++
			if pulls == 1 {
				return emptyPull(), nil
			}
			// Полный resync: сервер уже на версии 2
			return &api.PullResponse{
				Version: 2,
				Operations: []api.Operation{
					{ID: "s1", UserID: "bob", Type: "insert", Content: "A", Position: 0, Timestamp: 500},
					{ID: "s2", UserID: "bob", Type: "insert", Content: "B", Position: 1, Timestamp: 600},
				},
			}, nil
		},
		PushFunc: func(ctx context.Context, roomID string, req api.SyncRequest) (*api.SyncResponse, error) {
			return nil, clientapi.ErrVersionConflict
		},
	}

	c := newTestCoordinator(client, newStoreMock(), &fakeScheduler{})
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Apply(context.Background(), insertOp("p1", "alice", 0, 9000, "X")))

	require.NoError(t, c.Tick(context.Background()))

	assert.Equal(t, 2, pulls)
	assert.Equal(t, int64(2), c.Version())
	assert.Equal(t, StateConnected, c.State())

	// Локальная правка пережила resync и ждет следующей отправки
	assert.Equal(t, 1, c.PendingCount())
	assert.Equal(t, "XAB", c.Grid().Text())
}

func TestCoordinator_TickConflictParksPending(t *testing.T) {
	client := &ClientAPIMock{
		PullFunc: func(ctx context.Context, roomID string, since int64) (*api.PullResponse, error) {
			return emptyPull(), nil
		},
		PushFunc: func(ctx context.Context, roomID string, req api.SyncRequest) (*api.SyncResponse, error) {
			return &api.SyncResponse{
				Version:            1,
				RequiresResolution: true,
				Conflicts: []api.ConflictGroup{
					{
						ID:           "group-1",
						Operations:   req.Operations,
						Participants: []string{"alice", "bob"},
						RangeStart:   5,
						RangeEnd:     7,
						Timestamp:    1000,
					},
				},
			}, nil
		},
	}

	c := newTestCoordinator(client, newStoreMock(), &fakeScheduler{})
	require.NoError(t, c.Connect(context.Background()))

	var notified []models.ConflictGroup
	c.OnConflict(func(groups []models.ConflictGroup) {
		notified = groups
	})

	require.NoError(t, c.Apply(context.Background(), insertOp("p1", "alice", 5, 1000, "X")))
	require.NoError(t, c.Tick(context.Background()))

	// Запаркованная операция остается в очереди до резолюции
	assert.Equal(t, 1, c.PendingCount())
	require.Len(t, notified, 1)
	assert.Equal(t, "group-1", notified[0].ID)
	assert.Len(t, c.Conflicts(), 1)

	// Правки удержанного диапазона блокируются
	err := c.Apply(context.Background(), insertOp("p2", "alice", 6, 2000, "Y"))
	assert.ErrorIs(t, err, ErrRangeHeld)

	// Правка вне диапазона проходит
	require.NoError(t, c.Apply(context.Background(), insertOp("p3", "alice", 50, 2000, "Z")))
}

func TestCoordinator_TickHoldsParkedOpsUntilResolve(t *testing.T) {
	pushes := 0
	client := &ClientAPIMock{
		PullFunc: func(ctx context.Context, roomID string, since int64) (*api.PullResponse, error) {
			return emptyPull(), nil
		},
		PushFunc: func(ctx context.Context, roomID string, req api.SyncRequest) (*api.SyncResponse, error) {
			pushes++
			if pushes == 1 {
				// Первая отправка паркуется в конфликтной группе
				return &api.SyncResponse{
					Version:            1,
					RequiresResolution: true,
					Conflicts: []api.ConflictGroup{
						{
							ID:         "group-1",
							Operations: req.Operations,
							RangeStart: 0,
							RangeEnd:   1,
						},
					},
				}, nil
			}
			return &api.SyncResponse{Version: 2, Operations: req.Operations}, nil
		},
		ResolveFunc: func(ctx context.Context, roomID string, req api.ResolveRequest) (*api.ResolveResponse, error) {
			return &api.ResolveResponse{
				Version: 3,
				Success: true,
				Operations: []api.Operation{
					{ID: "w1", UserID: "bob", Type: "insert", Content: "W", Position: 0, Timestamp: 1100},
				},
				SupersededIDs: []string{"p1"},
			}, nil
		},
	}

	c := newTestCoordinator(client, newStoreMock(), &fakeScheduler{})
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Apply(context.Background(), insertOp("p1", "alice", 0, 1000, "X")))
	require.NoError(t, c.Tick(context.Background()))

	require.Len(t, client.PushCalls(), 1)
	assert.Equal(t, 1, c.PendingCount())

	// Запаркованная операция не переотправляется и не вызывает resync
	require.NoError(t, c.Tick(context.Background()))
	require.NoError(t, c.Tick(context.Background()))
	assert.Len(t, client.PushCalls(), 1)
	assert.Len(t, client.PullCalls(), 1)

	// Новая правка вне удержанного диапазона уходит без запаркованной
	require.NoError(t, c.Apply(context.Background(), insertOp("p3", "alice", 50, 2000, "Z")))
	require.NoError(t, c.Tick(context.Background()))

	require.Len(t, client.PushCalls(), 2)
	lastPush := client.PushCalls()[1].Req
	require.Len(t, lastPush.Operations, 1)
	assert.Equal(t, "p3", lastPush.Operations[0].ID)

	// Резолюция снимает удержание, вытесненная операция уходит из очереди
	require.NoError(t, c.ResolveConflict(context.Background(), api.ResolveRequest{
		GroupID:  "group-1",
		Strategy: "last_write_wins",
	}))

	assert.Empty(t, c.Conflicts())
	assert.Zero(t, c.PendingCount())
	require.NoError(t, c.Apply(context.Background(), insertOp("p4", "alice", 0, 3000, "Y")))
}

func TestCoordinator_TickHeldRangeRejectionBacksOff(t *testing.T) {
	client := &ClientAPIMock{
		PullFunc: func(ctx context.Context, roomID string, since int64) (*api.PullResponse, error) {
			return emptyPull(), nil
		},
		PushFunc: func(ctx context.Context, roomID string, req api.SyncRequest) (*api.SyncResponse, error) {
			return nil, clientapi.ErrUnresolvedConflict
		},
	}

	c := newTestCoordinator(client, newStoreMock(), &fakeScheduler{})
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Apply(context.Background(), insertOp("p1", "alice", 5, 1000, "X")))

	err := c.Tick(context.Background())
	require.ErrorIs(t, err, clientapi.ErrUnresolvedConflict)

	// Удержанный сервером диапазон не лечится полным resync-ом
	assert.Len(t, client.PullCalls(), 1)
	assert.Equal(t, StateConnected, c.State())
	assert.Equal(t, 1, c.PendingCount())

	// Повтор отложен до истечения окна backoff
	require.NoError(t, c.Tick(context.Background()))
	assert.Len(t, client.PushCalls(), 1)
}

func TestCoordinator_ResolveConflict(t *testing.T) {
	client := &ClientAPIMock{
		PullFunc: func(ctx context.Context, roomID string, since int64) (*api.PullResponse, error) {
			return emptyPull(), nil
		},
		PushFunc: func(ctx context.Context, roomID string, req api.SyncRequest) (*api.SyncResponse, error) {
			return &api.SyncResponse{
				Version:            0,
				RequiresResolution: true,
				Conflicts: []api.ConflictGroup{
					{
						ID:         "group-1",
						Operations: req.Operations,
						RangeStart: 0,
						RangeEnd:   1,
					},
				},
			}, nil
		},
		ResolveFunc: func(ctx context.Context, roomID string, req api.ResolveRequest) (*api.ResolveResponse, error) {
			return &api.ResolveResponse{
				Version: 1,
				Success: true,
				Operations: []api.Operation{
					{ID: "w1", UserID: "bob", Type: "insert", Content: "W", Position: 0, Timestamp: 1100},
				},
				SupersededIDs: []string{"p1"},
			}, nil
		},
	}
	store := newStoreMock()

	c := newTestCoordinator(client, store, &fakeScheduler{})
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Apply(context.Background(), insertOp("p1", "alice", 0, 1000, "X")))
	require.NoError(t, c.Tick(context.Background()))
	require.Len(t, c.Conflicts(), 1)

	require.NoError(t, c.ResolveConflict(context.Background(), api.ResolveRequest{
		GroupID:  "group-1",
		Strategy: "last_write_wins",
	}))

	// Вытесненная операция не переотправляется, диапазон разблокирован
	assert.Empty(t, c.Conflicts())
	assert.Zero(t, c.PendingCount())
	assert.Equal(t, int64(1), c.Version())
	assert.Equal(t, "W", c.Grid().Text())

	require.Len(t, client.ResolveCalls(), 1)
	assert.Equal(t, "group-1", client.ResolveCalls()[0].Req.GroupID)

	persisted, err := store.ListPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestCoordinator_ResolveConflictRequiresConnection(t *testing.T) {
	c := newTestCoordinator(&ClientAPIMock{}, newStoreMock(), &fakeScheduler{})

	err := c.ResolveConflict(context.Background(), api.ResolveRequest{GroupID: "g", Strategy: "manual"})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestCoordinator_Disconnect(t *testing.T) {
	client := &ClientAPIMock{
		PullFunc: func(ctx context.Context, roomID string, since int64) (*api.PullResponse, error) {
			return emptyPull(), nil
		},
		PushFunc: func(ctx context.Context, roomID string, req api.SyncRequest) (*api.SyncResponse, error) {
			return &api.SyncResponse{Version: 1, Operations: req.Operations}, nil
		},
	}
	scheduler := &fakeScheduler{}

	c := newTestCoordinator(client, newStoreMock(), scheduler)
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Apply(context.Background(), insertOp("p1", "alice", 0, 1000, "X")))

	c.Disconnect()

	assert.Equal(t, StateDisconnected, c.State())
	_, stopped := scheduler.counts()
	assert.Equal(t, 1, stopped)

	// Шаги после разрыва бездействуют
	require.NoError(t, c.Tick(context.Background()))
	assert.Empty(t, client.PushCalls())

	// Повторный разрыв безвреден
	c.Disconnect()
	_, stopped = scheduler.counts()
	assert.Equal(t, 1, stopped)
}

func TestCoordinator_DisconnectDuringPushDiscardsResult(t *testing.T) {
	var c *Coordinator
	client := &ClientAPIMock{
		PullFunc: func(ctx context.Context, roomID string, since int64) (*api.PullResponse, error) {
			return emptyPull(), nil
		},
		PushFunc: func(ctx context.Context, roomID string, req api.SyncRequest) (*api.SyncResponse, error) {
			// Сессия рвется, пока запрос в полете
			c.Disconnect()
			return &api.SyncResponse{Version: 9, Operations: req.Operations}, nil
		},
	}

	c = newTestCoordinator(client, newStoreMock(), &fakeScheduler{})
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Apply(context.Background(), insertOp("p1", "alice", 0, 1000, "X")))

	require.NoError(t, c.Tick(context.Background()))

	// Результат устаревшей эпохи отброшен
	assert.Equal(t, StateDisconnected, c.State())
	assert.Equal(t, int64(0), c.Version())
	assert.Equal(t, 1, c.PendingCount())
}
