package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperation_Validate(t *testing.T) {
	tests := []struct {
		name    string
		op      Operation
		wantErr bool
	}{
		{
			name: "valid insert",
			op: Operation{
				ID:       "op-1",
				UserID:   "alice",
				Type:     OpInsert,
				Content:  "A",
				Position: 0,
			},
			wantErr: false,
		},
		{
			name: "valid delete",
			op: Operation{
				ID:       "op-2",
				UserID:   "alice",
				Type:     OpDelete,
				Position: 3,
				Length:   2,
			},
			wantErr: false,
		},
		{
			name: "valid replace",
			op: Operation{
				ID:       "op-3",
				UserID:   "alice",
				Type:     OpReplace,
				Content:  "XY",
				Position: 1,
				Length:   2,
			},
			wantErr: false,
		},
		{
			name: "valid move",
			op: Operation{
				ID:       "op-4",
				UserID:   "alice",
				Type:     OpMove,
				Position: 0,
				Length:   3,
				Target:   7,
			},
			wantErr: false,
		},
		{
			name: "missing id",
			op: Operation{
				UserID:   "alice",
				Type:     OpInsert,
				Content:  "A",
				Position: 0,
			},
			wantErr: true,
		},
		{
			name: "missing user id",
			op: Operation{
				ID:       "op-5",
				Type:     OpInsert,
				Content:  "A",
				Position: 0,
			},
			wantErr: true,
		},
		{
			name: "negative position",
			op: Operation{
				ID:       "op-6",
				UserID:   "alice",
				Type:     OpInsert,
				Content:  "A",
				Position: -1,
			},
			wantErr: true,
		},
		{
			name: "insert without content",
			op: Operation{
				ID:       "op-7",
				UserID:   "alice",
				Type:     OpInsert,
				Position: 0,
			},
			wantErr: true,
		},
		{
			name: "delete without length",
			op: Operation{
				ID:       "op-8",
				UserID:   "alice",
				Type:     OpDelete,
				Position: 0,
			},
			wantErr: true,
		},
		{
			name: "replace without length",
			op: Operation{
				ID:       "op-9",
				UserID:   "alice",
				Type:     OpReplace,
				Content:  "X",
				Position: 0,
			},
			wantErr: true,
		},
		{
			name: "move with negative target",
			op: Operation{
				ID:       "op-10",
				UserID:   "alice",
				Type:     OpMove,
				Position: 0,
				Length:   2,
				Target:   -1,
			},
			wantErr: true,
		},
		{
			name: "unknown type",
			op: Operation{
				ID:       "op-11",
				UserID:   "alice",
				Type:     OpType("rotate"),
				Position: 0,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidOperation)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestOperation_Before(t *testing.T) {
	a := Operation{ID: "a", UserID: "alice", Timestamp: 1000}
	b := Operation{ID: "b", UserID: "bob", Timestamp: 2000}

	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))

	// Равные timestamp упорядочиваются по userID
	c := Operation{ID: "c", UserID: "bob", Timestamp: 1000}
	assert.True(t, a.Before(c))
	assert.False(t, c.Before(a))
}

func TestOperation_InsertLen(t *testing.T) {
	op := Operation{Type: OpInsert, Content: "яблоко"}
	// Каждая руна занимает одну ячейку
	assert.Equal(t, 6, op.InsertLen())

	del := Operation{Type: OpDelete, Length: 3}
	assert.Equal(t, 0, del.InsertLen())
}

func TestOperation_Span(t *testing.T) {
	tests := []struct {
		name      string
		op        Operation
		wantStart int
		wantEnd   int
	}{
		{
			name:      "insert",
			op:        Operation{Type: OpInsert, Content: "AB", Position: 5},
			wantStart: 5,
			wantEnd:   7,
		},
		{
			name:      "delete",
			op:        Operation{Type: OpDelete, Position: 3, Length: 4},
			wantStart: 3,
			wantEnd:   7,
		},
		{
			name:      "move covers source and target",
			op:        Operation{Type: OpMove, Position: 2, Length: 2, Target: 8},
			wantStart: 2,
			wantEnd:   10,
		},
		{
			name:      "move backwards",
			op:        Operation{Type: OpMove, Position: 8, Length: 2, Target: 1},
			wantStart: 1,
			wantEnd:   10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := tt.op.Span()
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestRange_OverlapsAndGap(t *testing.T) {
	a := Range{Start: 0, End: 5}
	b := Range{Start: 3, End: 8}
	c := Range{Start: 10, End: 12}

	assert.True(t, a.Overlaps(b))
	assert.False(t, a.Overlaps(c))
	assert.Equal(t, 0, a.Gap(b))
	assert.Equal(t, 5, a.Gap(c))
	assert.Equal(t, 5, c.Gap(a))

	u := a.Union(c)
	assert.Equal(t, Range{Start: 0, End: 12}, u)
}
