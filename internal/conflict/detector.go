package conflict

import (
	"sort"

	"github.com/google/uuid"

	"github.com/iudanet/puzzlesync/internal/models"
)

// Config задает пороги обнаружения конфликтов. Значения по умолчанию —
// наблюдаемые рабочие пороги; это настраиваемая конфигурация, не скрытые константы.
type Config struct {
	WindowMS  int64 // максимальный разброс client-timestamp внутри конфликта
	Proximity int   // максимальное расстояние между диапазонами в ячейках
}

// DefaultConfig возвращает пороги по умолчанию: окно 5000ms, близость 10 ячеек
func DefaultConfig() Config {
	return Config{
		WindowMS:  5000,
		Proximity: 10,
	}
}

// Detector группирует пересекающиеся во времени и пространстве операции
// разных авторов в конфликтные группы
type Detector struct {
	cfg Config
}

// NewDetector создает детектор с заданными порогами
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Detect возвращает конфликтные группы для набора операций.
// Пара операций конфликтует, когда авторы различны, разброс timestamp
// меньше окна и диапазоны находятся в пределах Proximity ячеек друг от друга.
// Пересекающиеся пары транзитивно объединяются (union-find).
// Чистая функция: вход не мутируется, результат детерминирован для одного
// и того же набора и порогов (группы и их члены в устойчивом порядке).
func (d *Detector) Detect(ops []models.Operation) []models.ConflictGroup {
	if len(ops) < 2 {
		return nil
	}

	parent := make([]int, len(ops))
	for i := range parent {
		parent[i] = i
	}

	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for i := 0; i < len(ops); i++ {
		for j := i + 1; j < len(ops); j++ {
			if d.conflicting(ops[i], ops[j]) {
				union(i, j)
			}
		}
	}

	members := make(map[int][]models.Operation)
	for i, op := range ops {
		root := find(i)
		members[root] = append(members[root], op.Clone())
	}

	groups := make([]models.ConflictGroup, 0)
	for _, ms := range members {
		if len(ms) < 2 {
			continue
		}
		groups = append(groups, buildGroup(ms))
	}

	// Устойчивый порядок групп независимо от порядка входа
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Timestamp != groups[j].Timestamp {
			return groups[i].Timestamp < groups[j].Timestamp
		}
		return groups[i].AffectedRange.Start < groups[j].AffectedRange.Start
	})

	return groups
}

// conflicting проверяет пару операций по трем условиям конфликта
func (d *Detector) conflicting(a, b models.Operation) bool {
	if a.UserID == b.UserID {
		return false
	}

	dt := a.Timestamp - b.Timestamp
	if dt < 0 {
		dt = -dt
	}
	if dt >= d.cfg.WindowMS {
		return false
	}

	ra := spanOf(a)
	rb := spanOf(b)
	return ra.Gap(rb) <= d.cfg.Proximity
}

// buildGroup собирает группу из набора взаимно конфликтующих операций
func buildGroup(ops []models.Operation) models.ConflictGroup {
	sort.Slice(ops, func(i, j int) bool { return ops[i].Before(ops[j]) })

	affected := spanOf(ops[0])
	var maxTS int64
	seen := make(map[string]struct{})
	participants := make([]string, 0, 2)

	for _, op := range ops {
		affected = affected.Union(spanOf(op))
		if op.Timestamp > maxTS {
			maxTS = op.Timestamp
		}
		if _, ok := seen[op.UserID]; !ok {
			seen[op.UserID] = struct{}{}
			participants = append(participants, op.UserID)
		}
	}
	sort.Strings(participants)

	return models.ConflictGroup{
		ID:            uuid.New().String(),
		Operations:    ops,
		AffectedRange: affected,
		Participants:  participants,
		Timestamp:     maxTS,
	}
}

func spanOf(op models.Operation) models.Range {
	start, end := op.Span()
	return models.Range{Start: start, End: end}
}
