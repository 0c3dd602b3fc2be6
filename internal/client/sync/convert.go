package sync

import (
	"github.com/iudanet/puzzlesync/internal/models"
	"github.com/iudanet/puzzlesync/pkg/api"
)

// opToAPI конвертирует операцию модели в wire-формат
func opToAPI(op models.Operation) api.Operation {
	return api.Operation{
		ID:        op.ID,
		UserID:    op.UserID,
		Type:      string(op.Type),
		Content:   op.Content,
		Timestamp: op.Timestamp,
		Position:  op.Position,
		Length:    op.Length,
		Target:    op.Target,
	}
}

// opFromAPI конвертирует операцию из wire-формата в модель
func opFromAPI(op api.Operation) models.Operation {
	return models.Operation{
		ID:        op.ID,
		UserID:    op.UserID,
		Type:      models.OpType(op.Type),
		Content:   op.Content,
		Timestamp: op.Timestamp,
		Position:  op.Position,
		Length:    op.Length,
		Target:    op.Target,
	}
}

func opsToAPI(ops []models.Operation) []api.Operation {
	out := make([]api.Operation, 0, len(ops))
	for _, op := range ops {
		out = append(out, opToAPI(op))
	}
	return out
}

func opsFromAPI(ops []api.Operation) []models.Operation {
	out := make([]models.Operation, 0, len(ops))
	for _, op := range ops {
		out = append(out, opFromAPI(op))
	}
	return out
}

func groupFromAPI(g api.ConflictGroup) models.ConflictGroup {
	return models.ConflictGroup{
		ID:         g.ID,
		Operations: opsFromAPI(g.Operations),
		AffectedRange: models.Range{
			Start: g.RangeStart,
			End:   g.RangeEnd,
		},
		Participants: append([]string(nil), g.Participants...),
		Timestamp:    g.Timestamp,
	}
}

func groupsFromAPI(groups []api.ConflictGroup) []models.ConflictGroup {
	out := make([]models.ConflictGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupFromAPI(g))
	}
	return out
}
