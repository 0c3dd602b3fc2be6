package ot

import "github.com/iudanet/puzzlesync/internal/models"

// Transform переписывает операцию a так, как если бы конкурентная операция b
// уже была применена. Обе операции созданы независимо: ни одна причинно не
// зависит от другой. Свойство сходимости: применение Transform(a,b) после b
// и Transform(b,a) после a дает одинаковую сетку на всех репликах.
//
// Replace и move не сдвигают чужие адреса (replace пишет по месту), поэтому
// против них достаточно переотображения позиций; содержательные пересечения
// replace-диапазонов — зона ответственности детектора конфликтов.
func Transform(a, b models.Operation) models.Operation {
	if a.Same(b) {
		return a
	}

	switch b.Type {
	case models.OpInsert:
		return transformAgainstInsert(a, b)
	case models.OpDelete:
		return transformAgainstDelete(a, b.Position, b.Length)
	case models.OpMove:
		// Move эквивалентен delete источника и insert в назначение
		out := transformAgainstDelete(a, b.Position, b.Length)
		target := b.Target
		if target > b.Position {
			target -= b.Length
		}
		return shiftByInsert(out, target, b.Length)
	}

	// Replace не меняет адресацию
	return a
}

// TransformAgainst последовательно трансформирует op против каждой операции
// из missed в порядке их принятия сервером.
func TransformAgainst(op models.Operation, missed []models.Operation) models.Operation {
	out := op
	for _, m := range missed {
		out = Transform(out, m)
	}
	return out
}

// transformAgainstInsert учитывает вставку n ячеек операцией b
func transformAgainstInsert(a, b models.Operation) models.Operation {
	n := b.InsertLen()
	if n == 0 {
		return a
	}

	out := a
	switch a.Type {
	case models.OpInsert:
		// Две вставки в одну позицию упорядочиваются по (timestamp, userID):
		// более ранняя операция остается левее на всех репликах
		if a.Position > b.Position || (a.Position == b.Position && b.Before(a)) {
			out.Position += n
		}
	case models.OpDelete, models.OpReplace:
		if b.Position <= a.Position {
			out.Position += n
		} else if b.Position < a.Position+a.Length {
			// Вставка внутрь диапазона: диапазон расширяется, чтобы
			// обе стороны сошлись к одному результату
			out.Length += n
		}
	case models.OpMove:
		if b.Position <= a.Position {
			out.Position += n
		}
		if b.Position <= a.Target {
			out.Target += n
		}
	}
	return out
}

// transformAgainstDelete учитывает удаление диапазона [s, s+l)
func transformAgainstDelete(a models.Operation, s, l int) models.Operation {
	if l <= 0 {
		return a
	}
	e := s + l

	out := a
	switch a.Type {
	case models.OpInsert:
		switch {
		case a.Position <= s:
			// До удаленного диапазона: без изменений
		case a.Position >= e:
			out.Position -= l
		default:
			// Вставка строго внутри конкурентно удаленного диапазона
			// поглощается: обе реплики сходятся к состоянию без нее
			out.Content = ""
			out.Position = s
		}
	case models.OpDelete, models.OpReplace:
		out = shrinkRangeByDelete(a, s, e)
	case models.OpMove:
		out = shrinkRangeByDelete(a, s, e)
		out.Target = indexAfterDelete(a.Target, s, l)
	}
	return out
}

// shrinkRangeByDelete сужает диапазонную операцию до выживших ячеек.
// Полностью удаленный диапазон становится no-op (Length 0), не ошибкой.
func shrinkRangeByDelete(a models.Operation, s, e int) models.Operation {
	out := a
	aEnd := a.Position + a.Length

	if e <= a.Position {
		out.Position -= e - s
		return out
	}
	if s >= aEnd {
		return out
	}

	// Есть пересечение: пересчитываем выжившую часть поячеечно
	survived := 0
	var keptRunes []rune
	runes := []rune(a.Content)
	for i := a.Position; i < aEnd; i++ {
		if i >= s && i < e {
			continue
		}
		survived++
		if idx := i - a.Position; a.Type == models.OpReplace && idx < len(runes) {
			keptRunes = append(keptRunes, runes[idx])
		}
	}

	out.Length = survived
	out.Position = indexAfterDelete(a.Position, s, e-s)
	if a.Type == models.OpReplace {
		out.Content = string(keptRunes)
	}
	return out
}

// shiftByInsert переотображает позиции операции с учетом вставки n ячеек в at.
// Используется для insert-части move: tie-break здесь не нужен, сдвигается
// все, что правее точки вставки.
func shiftByInsert(a models.Operation, at, n int) models.Operation {
	out := a
	if at < a.Position {
		out.Position += n
	}
	if a.Type == models.OpMove && at <= a.Target {
		out.Target += n
	}
	return out
}

// indexAfterDelete переотображает индекс ячейки с учетом удаления [s, s+l):
// индексы внутри диапазона схлопываются к его началу
func indexAfterDelete(i, s, l int) int {
	e := s + l
	if i >= e {
		return i - l
	}
	if i > s {
		return s
	}
	return i
}
