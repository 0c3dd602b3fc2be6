package ot

import (
	"strings"

	"github.com/iudanet/puzzlesync/internal/models"
)

// Grid представляет проекцию пазловой сетки: линейную последовательность
// адресуемых ячеек. Каждая ячейка содержит одну руну содержимого.
// Grid не потокобезопасен: владелец (Engine или Room) сериализует доступ.
type Grid struct {
	cells []string
}

// NewGrid создает пустую сетку
func NewGrid() *Grid {
	return &Grid{}
}

// Len возвращает количество ячеек
func (g *Grid) Len() int {
	return len(g.cells)
}

// Cell возвращает содержимое ячейки по адресу.
// Для адреса вне сетки возвращается пустая строка.
func (g *Grid) Cell(i int) string {
	if i < 0 || i >= len(g.cells) {
		return ""
	}
	return g.cells[i]
}

// Cells возвращает копию всех ячеек
func (g *Grid) Cells() []string {
	out := make([]string, len(g.cells))
	copy(out, g.cells)
	return out
}

// Text возвращает конкатенацию содержимого всех ячеек
func (g *Grid) Text() string {
	var b strings.Builder
	for _, c := range g.cells {
		b.WriteString(c)
	}
	return b.String()
}

// Clone создает глубокую копию сетки
func (g *Grid) Clone() *Grid {
	return &Grid{cells: g.Cells()}
}

// Apply применяет операцию к сетке. Операции с нулевым эффектом
// (пустая вставка, нулевая длина после трансформации, выход за границы)
// являются no-op, а не ошибкой.
func (g *Grid) Apply(op models.Operation) {
	switch op.Type {
	case models.OpInsert:
		g.applyInsert(op)
	case models.OpDelete:
		g.applyDelete(op.Position, op.Length)
	case models.OpReplace:
		g.applyReplace(op)
	case models.OpMove:
		g.applyMove(op)
	}
}

func (g *Grid) applyInsert(op models.Operation) {
	runes := []rune(op.Content)
	if len(runes) == 0 {
		return
	}

	pos := clamp(op.Position, 0, len(g.cells))
	inserted := make([]string, len(runes))
	for i, r := range runes {
		inserted[i] = string(r)
	}

	g.cells = append(g.cells[:pos], append(inserted, g.cells[pos:]...)...)
}

func (g *Grid) applyDelete(pos, length int) {
	if length <= 0 {
		return
	}

	start := clamp(pos, 0, len(g.cells))
	end := clamp(pos+length, start, len(g.cells))
	if start == end {
		// Диапазон уже удален конкурентной операцией
		return
	}

	g.cells = append(g.cells[:start], g.cells[end:]...)
}

func (g *Grid) applyReplace(op models.Operation) {
	if op.Length <= 0 {
		return
	}

	// Replace пишет поверх существующих ячеек и при необходимости
	// расширяет сетку до конца диапазона
	for len(g.cells) < op.Position+op.Length {
		g.cells = append(g.cells, "")
	}

	runes := []rune(op.Content)
	for i := 0; i < op.Length && i < len(runes); i++ {
		g.cells[op.Position+i] = string(runes[i])
	}
}

func (g *Grid) applyMove(op models.Operation) {
	if op.Length <= 0 {
		return
	}

	start := clamp(op.Position, 0, len(g.cells))
	end := clamp(op.Position+op.Length, start, len(g.cells))
	if start == end {
		return
	}

	moved := make([]string, end-start)
	copy(moved, g.cells[start:end])
	g.cells = append(g.cells[:start], g.cells[end:]...)

	target := op.Target
	if target > start {
		target -= len(moved)
	}
	target = clamp(target, 0, len(g.cells))

	g.cells = append(g.cells[:target], append(moved, g.cells[target:]...)...)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
