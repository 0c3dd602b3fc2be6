package models

// Range представляет полуоткрытый диапазон ячеек [Start, End)
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Overlaps проверяет пересечение двух диапазонов
func (r Range) Overlaps(other Range) bool {
	return r.Start < other.End && other.Start < r.End
}

// Gap возвращает расстояние в ячейках между двумя диапазонами.
// Пересекающиеся диапазоны имеют расстояние 0.
func (r Range) Gap(other Range) int {
	if r.Overlaps(other) {
		return 0
	}
	if r.End <= other.Start {
		return other.Start - r.End
	}
	return r.Start - other.End
}

// Union возвращает минимальный диапазон, покрывающий оба
func (r Range) Union(other Range) Range {
	out := r
	if other.Start < out.Start {
		out.Start = other.Start
	}
	if other.End > out.End {
		out.End = other.End
	}
	return out
}

// ConflictGroup представляет набор взаимно конфликтующих операций разных авторов.
// Производная, неперсистентная структура: создается детектором, уничтожается
// после разрешения конфликта.
type ConflictGroup struct {
	ID            string      `json:"id"`
	Operations    []Operation `json:"operations"`
	AffectedRange Range       `json:"affected_range"`
	Participants  []string    `json:"participants"` // различные userID участников
	Timestamp     int64       `json:"timestamp"`    // максимальный timestamp среди участников
}

// Clone создает глубокую копию группы
func (g ConflictGroup) Clone() ConflictGroup {
	out := g
	out.Operations = make([]Operation, len(g.Operations))
	copy(out.Operations, g.Operations)
	out.Participants = make([]string, len(g.Participants))
	copy(out.Participants, g.Participants)
	return out
}

// Contains проверяет, входит ли операция с данным ID в группу
func (g ConflictGroup) Contains(opID string) bool {
	for _, op := range g.Operations {
		if op.ID == opID {
			return true
		}
	}
	return false
}

// ResolutionOutcome представляет результат разрешения конфликтной группы.
// Вытесненные операции фиксируются явно: они остаются в журнале для аудита,
// но их эффект замещается победителями.
type ResolutionOutcome struct {
	Strategy      string      `json:"strategy"`
	Winners       []Operation `json:"winners"`
	SupersededIDs []string    `json:"superseded_ids"`
	Content       string      `json:"content,omitempty"` // ручная резолюция
	Partial       bool        `json:"partial"`           // auto_merge откатился к LWW на части диапазона
}
