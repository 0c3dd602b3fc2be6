package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/puzzlesync/internal/conflict"
	"github.com/iudanet/puzzlesync/internal/models"
	"github.com/iudanet/puzzlesync/internal/server/room"
	"github.com/iudanet/puzzlesync/internal/server/storage"
	"github.com/iudanet/puzzlesync/pkg/api"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// noopLog реализует журнал, которому ничего не нужно хранить
func noopLog() *storage.OperationLogMock {
	return &storage.OperationLogMock{
		AppendFunc: func(ctx context.Context, roomID string, version int64, op models.Operation) error {
			return nil
		},
		ListSinceFunc: func(ctx context.Context, roomID string, version int64) ([]storage.Record, error) {
			return nil, nil
		},
		MarkSupersededFunc: func(ctx context.Context, roomID string, opIDs []string, groupID string) error {
			return nil
		},
	}
}

// newTestRouter собирает sync-маршруты с подстановкой аутентифицированного
// пользователя вместо полной цепочки middleware
func newTestRouter(t *testing.T, userID string) *mux.Router {
	t.Helper()

	rooms := room.NewManager(conflict.DefaultConfig(), noopLog(), testLogger())
	h := NewSyncHandler(testLogger(), rooms)

	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(WithUserID(req.Context(), userID)))
		})
	})
	r.HandleFunc("/api/v1/rooms/{roomID}/sync", h.HandleGet).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/rooms/{roomID}/sync", h.HandlePost).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/rooms/{roomID}/sync", h.HandlePut).Methods(http.MethodPut)

	return r
}

func doJSON(t *testing.T, router *mux.Router, method, url string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, url, reader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSyncHandler_GetEmptyRoom(t *testing.T) {
	router := newTestRouter(t, "alice")

	w := doJSON(t, router, http.MethodGet, "/api/v1/rooms/room-1/sync", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.PullResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, int64(0), resp.Version)
	assert.Empty(t, resp.Operations)
}

func TestSyncHandler_GetInvalidSince(t *testing.T) {
	router := newTestRouter(t, "alice")

	w := doJSON(t, router, http.MethodGet, "/api/v1/rooms/room-1/sync?since=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncHandler_PostAcceptsOperations(t *testing.T) {
	router := newTestRouter(t, "alice")

	w := doJSON(t, router, http.MethodPost, "/api/v1/rooms/room-1/sync", api.SyncRequest{
		UserID:      "alice",
		LastVersion: 0,
		Operations: []api.Operation{
			{ID: "op-1", UserID: "alice", Type: "insert", Content: "X", Position: 0, Timestamp: 1000},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.SyncResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, int64(1), resp.Version)
	assert.False(t, resp.RequiresResolution)
	require.Len(t, resp.Operations, 1)
	assert.Equal(t, "op-1", resp.Operations[0].ID)
}

func TestSyncHandler_PostInvalidOperation(t *testing.T) {
	router := newTestRouter(t, "alice")

	w := doJSON(t, router, http.MethodPost, "/api/v1/rooms/room-1/sync", api.SyncRequest{
		UserID: "alice",
		Operations: []api.Operation{
			{ID: "op-1", UserID: "alice", Type: "insert", Position: 0},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncHandler_PostVersionAhead(t *testing.T) {
	router := newTestRouter(t, "alice")

	w := doJSON(t, router, http.MethodPost, "/api/v1/rooms/room-1/sync", api.SyncRequest{
		UserID:      "alice",
		LastVersion: 10,
		Operations: []api.Operation{
			{ID: "op-1", UserID: "alice", Type: "insert", Content: "X", Position: 0, Timestamp: 1000},
		},
	})

	// Клиент впереди сервера: обязан выполнить полный resync
	require.Equal(t, http.StatusConflict, w.Code)

	var errResp api.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&errResp))
	assert.Equal(t, api.ErrCodeVersionAhead, errResp.Code)
}

func TestSyncHandler_PostHeldRangeCode(t *testing.T) {
	rooms := room.NewManager(conflict.DefaultConfig(), noopLog(), testLogger())
	h := NewSyncHandler(testLogger(), rooms)

	newRouterAs := func(userID string) *mux.Router {
		r := mux.NewRouter()
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(WithUserID(req.Context(), userID)))
			})
		})
		r.HandleFunc("/api/v1/rooms/{roomID}/sync", h.HandlePost).Methods(http.MethodPost)
		return r
	}

	alice := newRouterAs("alice")
	bob := newRouterAs("bob")

	w := doJSON(t, alice, http.MethodPost, "/api/v1/rooms/room-1/sync", api.SyncRequest{
		UserID: "alice",
		Operations: []api.Operation{
			{ID: "op-a", UserID: "alice", Type: "insert", Content: "X", Position: 5, Timestamp: 1000},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, bob, http.MethodPost, "/api/v1/rooms/room-1/sync", api.SyncRequest{
		UserID: "bob",
		Operations: []api.Operation{
			{ID: "op-b", UserID: "bob", Type: "insert", Content: "Y", Position: 6, Timestamp: 1100},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var syncResp api.SyncResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&syncResp))
	require.True(t, syncResp.RequiresResolution)

	// Правка удержанного диапазона: 409 с кодом, отличным от version_ahead,
	// чтобы клиент не уходил в бесполезный resync
	w = doJSON(t, bob, http.MethodPost, "/api/v1/rooms/room-1/sync", api.SyncRequest{
		UserID:      "bob",
		LastVersion: syncResp.Version,
		Operations: []api.Operation{
			{ID: "op-c", UserID: "bob", Type: "insert", Content: "Z", Position: 6, Timestamp: 2000},
		},
	})
	require.Equal(t, http.StatusConflict, w.Code)

	var errResp api.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&errResp))
	assert.Equal(t, api.ErrCodeUnresolvedConflict, errResp.Code)
}

func TestSyncHandler_PostBadBody(t *testing.T) {
	router := newTestRouter(t, "alice")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rooms/room-1/sync", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncHandler_ConflictRoundTrip(t *testing.T) {
	rooms := room.NewManager(conflict.DefaultConfig(), noopLog(), testLogger())
	h := NewSyncHandler(testLogger(), rooms)

	newRouterAs := func(userID string) *mux.Router {
		r := mux.NewRouter()
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(WithUserID(req.Context(), userID)))
			})
		})
		r.HandleFunc("/api/v1/rooms/{roomID}/sync", h.HandlePost).Methods(http.MethodPost)
		r.HandleFunc("/api/v1/rooms/{roomID}/sync", h.HandlePut).Methods(http.MethodPut)
		return r
	}

	alice := newRouterAs("alice")
	bob := newRouterAs("bob")

	w := doJSON(t, alice, http.MethodPost, "/api/v1/rooms/room-1/sync", api.SyncRequest{
		UserID: "alice",
		Operations: []api.Operation{
			{ID: "op-a", UserID: "alice", Type: "insert", Content: "X", Position: 5, Timestamp: 1000},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Конкурентная правка bob рядом по времени и месту
	w = doJSON(t, bob, http.MethodPost, "/api/v1/rooms/room-1/sync", api.SyncRequest{
		UserID: "bob",
		Operations: []api.Operation{
			{ID: "op-b", UserID: "bob", Type: "insert", Content: "Y", Position: 6, Timestamp: 1100},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var syncResp api.SyncResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&syncResp))
	require.True(t, syncResp.RequiresResolution)
	require.Len(t, syncResp.Conflicts, 1)
	groupID := syncResp.Conflicts[0].ID

	// Резолюция конфликтной группы
	w = doJSON(t, bob, http.MethodPut, "/api/v1/rooms/room-1/sync", api.ResolveRequest{
		GroupID:  groupID,
		Strategy: "last_write_wins",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resolveResp api.ResolveResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resolveResp))
	assert.True(t, resolveResp.Success)
	assert.Equal(t, []string{"op-a"}, resolveResp.SupersededIDs)
	require.Len(t, resolveResp.Operations, 1)
	assert.Equal(t, "op-b", resolveResp.Operations[0].ID)
}

func TestSyncHandler_PutUnknownGroup(t *testing.T) {
	router := newTestRouter(t, "alice")

	w := doJSON(t, router, http.MethodPut, "/api/v1/rooms/room-1/sync", api.ResolveRequest{
		GroupID:  "ghost",
		Strategy: "last_write_wins",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSyncHandler_PutUnknownStrategy(t *testing.T) {
	router := newTestRouter(t, "alice")

	w := doJSON(t, router, http.MethodPut, "/api/v1/rooms/room-1/sync", api.ResolveRequest{
		GroupID:  "any",
		Strategy: "coin_flip",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncHandler_PutManualWithoutInput(t *testing.T) {
	rooms := room.NewManager(conflict.DefaultConfig(), noopLog(), testLogger())
	h := NewSyncHandler(testLogger(), rooms)

	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			user := req.Header.Get("X-Test-User")
			next.ServeHTTP(w, req.WithContext(WithUserID(req.Context(), user)))
		})
	})
	r.HandleFunc("/api/v1/rooms/{roomID}/sync", h.HandlePost).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/rooms/{roomID}/sync", h.HandlePut).Methods(http.MethodPut)

	push := func(user string, op api.Operation) *httptest.ResponseRecorder {
		data, err := json.Marshal(api.SyncRequest{UserID: user, Operations: []api.Operation{op}})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/rooms/room-1/sync", bytes.NewReader(data))
		req.Header.Set("X-Test-User", user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	require.Equal(t, http.StatusOK, push("alice",
		api.Operation{ID: "op-a", UserID: "alice", Type: "insert", Content: "X", Position: 5, Timestamp: 1000}).Code)

	w := push("bob",
		api.Operation{ID: "op-b", UserID: "bob", Type: "insert", Content: "Y", Position: 6, Timestamp: 1100})
	require.Equal(t, http.StatusOK, w.Code)

	var syncResp api.SyncResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&syncResp))
	require.Len(t, syncResp.Conflicts, 1)

	// manual без ввода — восстановимая ошибка клиента
	data, err := json.Marshal(api.ResolveRequest{
		GroupID:  syncResp.Conflicts[0].ID,
		Strategy: "manual",
	})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/rooms/room-1/sync", bytes.NewReader(data))
	req.Header.Set("X-Test-User", "bob")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
