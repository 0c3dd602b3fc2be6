package conflict

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/iudanet/puzzlesync/internal/models"
)

// Ошибки резолвера
var (
	// ErrMissingManualInput возвращается, когда стратегия manual вызвана
	// без резолюции или выбранных операций. Локальная, восстановимая ошибка.
	ErrMissingManualInput = errors.New("manual resolution requires input")

	// ErrUnknownSelection возвращается, когда выбранные операции не входят в группу
	ErrUnknownSelection = errors.New("selected operations not in conflict group")
)

// Strategy представляет стратегию разрешения конфликта.
// Закрытое объединение: каждая стратегия несет только нужные ей поля,
// отсутствие обязательного ввода для manual проверяется на уровне типа вызова.
type Strategy interface {
	Name() string
	sealed()
}

// LastWriteWins оставляет операцию с максимальным (timestamp, userID)
type LastWriteWins struct{}

// Name реализует Strategy
func (LastWriteWins) Name() string { return "last_write_wins" }
func (LastWriteWins) sealed()      {}

// FirstWriteWins оставляет операцию с минимальным (timestamp, userID)
type FirstWriteWins struct{}

// Name реализует Strategy
func (FirstWriteWins) Name() string { return "first_write_wins" }
func (FirstWriteWins) sealed()      {}

// Manual требует человеческий ввод: текст резолюции или подмножество операций
type Manual struct {
	CustomResolution string
	Selected         []string
}

// Name реализует Strategy
func (Manual) Name() string { return "manual" }
func (Manual) sealed()      {}

// AutoMerge принимает операции с попарно непересекающимися диапазонами,
// остаток с пересечениями разрешает по LWW и помечает результат как частичный
type AutoMerge struct{}

// Name реализует Strategy
func (AutoMerge) Name() string { return "auto_merge" }
func (AutoMerge) sealed()      {}

// ParseStrategy строит стратегию из wire-представления
func ParseStrategy(name string, selected []string, custom string) (Strategy, error) {
	switch name {
	case "last_write_wins":
		return LastWriteWins{}, nil
	case "first_write_wins":
		return FirstWriteWins{}, nil
	case "manual":
		return Manual{CustomResolution: custom, Selected: selected}, nil
	case "auto_merge":
		return AutoMerge{}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// Resolver схлопывает конфликтную группу в один результат по выбранной стратегии
type Resolver struct {
	logger *slog.Logger
}

// NewResolver создает резолвер
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// Resolve применяет стратегию к группе. Результат всегда фиксирует стратегию,
// победителей и полный набор вытесненных операций: проигравшие не отбрасываются
// молча, а остаются в журнале для аудита.
func (r *Resolver) Resolve(group models.ConflictGroup, strategy Strategy) (models.ResolutionOutcome, error) {
	switch s := strategy.(type) {
	case LastWriteWins:
		return r.resolveByOrder(group, s.Name(), true), nil
	case FirstWriteWins:
		return r.resolveByOrder(group, s.Name(), false), nil
	case Manual:
		return r.resolveManual(group, s)
	case AutoMerge:
		return r.resolveAutoMerge(group), nil
	}

	return models.ResolutionOutcome{}, fmt.Errorf("unknown strategy %q", strategy.Name())
}

// resolveByOrder выбирает единственного победителя по порядку (timestamp, userID).
// Детерминированно для любого порядка операций во входной группе.
func (r *Resolver) resolveByOrder(group models.ConflictGroup, name string, latest bool) models.ResolutionOutcome {
	winner := group.Operations[0]
	for _, op := range group.Operations[1:] {
		if latest == winner.Before(op) {
			winner = op
		}
	}

	outcome := models.ResolutionOutcome{
		Strategy: name,
		Winners:  []models.Operation{winner.Clone()},
	}
	for _, op := range group.Operations {
		if op.ID != winner.ID {
			outcome.SupersededIDs = append(outcome.SupersededIDs, op.ID)
		}
	}
	sort.Strings(outcome.SupersededIDs)

	r.logger.Debug("conflict resolved by order",
		"group_id", group.ID,
		"strategy", name,
		"winner", winner.ID,
		"superseded", len(outcome.SupersededIDs))

	return outcome
}

// resolveManual применяет человеческую резолюцию: текст или выбранное подмножество
func (r *Resolver) resolveManual(group models.ConflictGroup, s Manual) (models.ResolutionOutcome, error) {
	if s.CustomResolution == "" && len(s.Selected) == 0 {
		return models.ResolutionOutcome{}, ErrMissingManualInput
	}

	outcome := models.ResolutionOutcome{
		Strategy: s.Name(),
		Content:  s.CustomResolution,
	}

	selected := make(map[string]struct{}, len(s.Selected))
	for _, id := range s.Selected {
		if !group.Contains(id) {
			return models.ResolutionOutcome{}, fmt.Errorf("%w: %s", ErrUnknownSelection, id)
		}
		selected[id] = struct{}{}
	}

	for _, op := range group.Operations {
		if _, ok := selected[op.ID]; ok {
			outcome.Winners = append(outcome.Winners, op.Clone())
		} else {
			outcome.SupersededIDs = append(outcome.SupersededIDs, op.ID)
		}
	}
	sort.Strings(outcome.SupersededIDs)

	return outcome, nil
}

// resolveAutoMerge принимает операции с попарно непересекающимися диапазонами.
// Для остатка с пересечениями выполняется откат к LWW, и результат помечается
// Partial, чтобы вызывающий отличал чистое слияние от частичного.
func (r *Resolver) resolveAutoMerge(group models.ConflictGroup) models.ResolutionOutcome {
	ops := make([]models.Operation, len(group.Operations))
	copy(ops, group.Operations)
	sort.Slice(ops, func(i, j int) bool { return ops[i].Before(ops[j]) })

	outcome := models.ResolutionOutcome{Strategy: AutoMerge{}.Name()}

	var merged []models.Operation
	var overlapping []models.Operation

	for _, op := range ops {
		span := spanOf(op)
		disjoint := true
		for _, other := range ops {
			if other.ID == op.ID {
				continue
			}
			if span.Overlaps(spanOf(other)) {
				disjoint = false
				break
			}
		}
		if disjoint {
			merged = append(merged, op.Clone())
		} else {
			overlapping = append(overlapping, op)
		}
	}

	outcome.Winners = merged

	if len(overlapping) > 0 {
		// Остаточное пересечение: LWW среди пересекающихся
		winner := overlapping[0]
		for _, op := range overlapping[1:] {
			if winner.Before(op) {
				winner = op
			}
		}
		outcome.Winners = append(outcome.Winners, winner.Clone())
		outcome.Partial = true

		for _, op := range overlapping {
			if op.ID != winner.ID {
				outcome.SupersededIDs = append(outcome.SupersededIDs, op.ID)
			}
		}
		sort.Strings(outcome.SupersededIDs)

		r.logger.Debug("auto merge fell back to LWW for overlap",
			"group_id", group.ID,
			"merged", len(merged),
			"overlapping", len(overlapping))
	}

	return outcome
}
