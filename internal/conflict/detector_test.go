package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/puzzlesync/internal/models"
)

func insertOp(id, user string, pos int, ts int64) models.Operation {
	return models.Operation{
		ID:        id,
		UserID:    user,
		Type:      models.OpInsert,
		Content:   "X",
		Position:  pos,
		Timestamp: ts,
	}
}

func TestDetector_GroupsCloseOperations(t *testing.T) {
	d := NewDetector(DefaultConfig())

	// Разные авторы, разброс 100ms, расстояние 3 ячейки
	ops := []models.Operation{
		insertOp("a", "alice", 5, 1000),
		insertOp("b", "bob", 8, 1100),
	}

	groups := d.Detect(ops)
	require.Len(t, groups, 1)

	g := groups[0]
	assert.NotEmpty(t, g.ID)
	assert.Len(t, g.Operations, 2)
	assert.Equal(t, []string{"alice", "bob"}, g.Participants)
	assert.Equal(t, models.Range{Start: 5, End: 9}, g.AffectedRange)
	assert.Equal(t, int64(1100), g.Timestamp)
}

func TestDetector_NoConflictCases(t *testing.T) {
	d := NewDetector(DefaultConfig())

	tests := []struct {
		name string
		ops  []models.Operation
	}{
		{
			name: "distant positions",
			ops: []models.Operation{
				insertOp("a", "alice", 5, 1000),
				insertOp("b", "bob", 55, 1100),
			},
		},
		{
			name: "outside time window",
			ops: []models.Operation{
				insertOp("a", "alice", 5, 1000),
				insertOp("b", "bob", 6, 7000),
			},
		},
		{
			name: "same author",
			ops: []models.Operation{
				insertOp("a", "alice", 5, 1000),
				insertOp("b", "alice", 6, 1100),
			},
		},
		{
			name: "single operation",
			ops: []models.Operation{
				insertOp("a", "alice", 5, 1000),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, d.Detect(tt.ops))
		})
	}
}

func TestDetector_TransitiveGrouping(t *testing.T) {
	d := NewDetector(Config{WindowMS: 5000, Proximity: 5})

	// a-b близки, b-c близки, a-c далеко: все трое в одной группе
	ops := []models.Operation{
		insertOp("a", "alice", 0, 1000),
		insertOp("b", "bob", 5, 1100),
		insertOp("c", "carol", 10, 1200),
	}

	groups := d.Detect(ops)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Operations, 3)
	assert.Equal(t, []string{"alice", "bob", "carol"}, groups[0].Participants)
}

func TestDetector_SeparateGroups(t *testing.T) {
	d := NewDetector(DefaultConfig())

	ops := []models.Operation{
		insertOp("a", "alice", 0, 1000),
		insertOp("b", "bob", 2, 1100),
		insertOp("c", "alice", 100, 2000),
		insertOp("d", "bob", 102, 2100),
	}

	groups := d.Detect(ops)
	require.Len(t, groups, 2)
	assert.Equal(t, int64(1100), groups[0].Timestamp)
	assert.Equal(t, int64(2100), groups[1].Timestamp)
}

func TestDetector_DeterministicUnderPermutation(t *testing.T) {
	d := NewDetector(DefaultConfig())

	ops := []models.Operation{
		insertOp("a", "alice", 5, 1000),
		insertOp("b", "bob", 7, 1200),
		insertOp("c", "carol", 6, 1100),
	}
	reversed := []models.Operation{ops[2], ops[1], ops[0]}

	g1 := d.Detect(ops)
	g2 := d.Detect(reversed)

	require.Len(t, g1, 1)
	require.Len(t, g2, 1)

	// Члены группы в устойчивом порядке (timestamp, userID) независимо от входа
	ids1 := make([]string, 0, len(g1[0].Operations))
	for _, op := range g1[0].Operations {
		ids1 = append(ids1, op.ID)
	}
	ids2 := make([]string, 0, len(g2[0].Operations))
	for _, op := range g2[0].Operations {
		ids2 = append(ids2, op.ID)
	}
	assert.Equal(t, []string{"a", "c", "b"}, ids1)
	assert.Equal(t, ids1, ids2)
	assert.Equal(t, g1[0].Participants, g2[0].Participants)
	assert.Equal(t, g1[0].AffectedRange, g2[0].AffectedRange)
}

func TestDetector_InputNotMutated(t *testing.T) {
	d := NewDetector(DefaultConfig())

	ops := []models.Operation{
		insertOp("b", "bob", 6, 1100),
		insertOp("a", "alice", 5, 1000),
	}

	d.Detect(ops)

	assert.Equal(t, "b", ops[0].ID)
	assert.Equal(t, "a", ops[1].ID)
}
