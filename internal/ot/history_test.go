package ot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/puzzlesync/internal/models"
)

func historyOp(id, user string) models.Operation {
	return models.Operation{
		ID:       id,
		UserID:   user,
		Type:     models.OpInsert,
		Content:  "X",
		Position: 0,
	}
}

func TestVersionedHistory_Append(t *testing.T) {
	h := NewVersionedHistory()

	assert.Equal(t, int64(0), h.Version())

	// Один bump версии на принятую операцию
	assert.Equal(t, int64(1), h.Append(historyOp("a", "alice")))
	assert.Equal(t, int64(2), h.Append(historyOp("b", "bob")))
	assert.Equal(t, int64(2), h.Version())
}

func TestVersionedHistory_AppendDuplicate(t *testing.T) {
	h := NewVersionedHistory()

	v1 := h.Append(historyOp("a", "alice"))
	h.Append(historyOp("b", "bob"))

	// Дубликат возвращает исходную версию и не двигает историю
	assert.Equal(t, v1, h.Append(historyOp("a", "alice")))
	assert.Equal(t, int64(2), h.Version())
	assert.Len(t, h.Active(), 2)
}

func TestVersionedHistory_AppendBatch(t *testing.T) {
	h := NewVersionedHistory()
	h.Append(historyOp("a", "alice"))

	// Батч — один атомарный bump независимо от размера
	v := h.AppendBatch([]models.Operation{
		historyOp("b", "bob"),
		historyOp("c", "carol"),
	})
	assert.Equal(t, int64(2), v)
	assert.Equal(t, int64(2), h.Version())
	assert.Len(t, h.Active(), 3)

	// Пустой батч тоже двигает версию: резолюция произошла
	assert.Equal(t, int64(3), h.AppendBatch(nil))
}

func TestVersionedHistory_MarkSuperseded(t *testing.T) {
	h := NewVersionedHistory()
	h.Append(historyOp("a", "alice"))
	h.Append(historyOp("b", "bob"))

	h.MarkSuperseded([]string{"a"}, "group-1")

	// Вытесненная операция исключается из реконструкции, но остается в журнале
	active := h.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "b", active[0].ID)

	assert.Equal(t, []string{"a"}, h.SupersededIDs())

	entries := h.Since(0)
	require.Len(t, entries, 2)
	assert.Equal(t, "group-1", entries[0].SupersededBy)
	assert.Empty(t, entries[1].SupersededBy)
}

func TestVersionedHistory_Since(t *testing.T) {
	h := NewVersionedHistory()
	h.Append(historyOp("a", "alice"))
	h.Append(historyOp("b", "bob"))
	h.Append(historyOp("c", "carol"))

	entries := h.Since(1)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].Op.ID)
	assert.Equal(t, "c", entries[1].Op.ID)

	assert.Empty(t, h.Since(3))
}

func TestVersionedHistory_Restore(t *testing.T) {
	h := NewVersionedHistory()
	h.Restore([]Entry{
		{Op: historyOp("a", "alice"), Version: 1},
		{Op: historyOp("b", "bob"), Version: 2, SupersededBy: "group-1"},
		{Op: historyOp("c", "carol"), Version: 5},
	})

	assert.Equal(t, int64(5), h.Version())
	assert.True(t, h.Contains("b"))

	active := h.Active()
	require.Len(t, active, 2)
	assert.Equal(t, "a", active[0].ID)
	assert.Equal(t, "c", active[1].ID)
}
