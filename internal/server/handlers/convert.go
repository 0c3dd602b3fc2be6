package handlers

import (
	"github.com/iudanet/puzzlesync/internal/models"
	"github.com/iudanet/puzzlesync/pkg/api"
)

// opFromAPI конвертирует wire-операцию во внутреннюю модель
func opFromAPI(in api.Operation) models.Operation {
	return models.Operation{
		ID:        in.ID,
		UserID:    in.UserID,
		Type:      models.OpType(in.Type),
		Content:   in.Content,
		Timestamp: in.Timestamp,
		Position:  in.Position,
		Length:    in.Length,
		Target:    in.Target,
	}
}

// opToAPI конвертирует внутреннюю модель в wire-формат
func opToAPI(in models.Operation) api.Operation {
	return api.Operation{
		ID:        in.ID,
		UserID:    in.UserID,
		Type:      string(in.Type),
		Content:   in.Content,
		Timestamp: in.Timestamp,
		Position:  in.Position,
		Length:    in.Length,
		Target:    in.Target,
	}
}

func opsToAPI(in []models.Operation) []api.Operation {
	out := make([]api.Operation, 0, len(in))
	for _, op := range in {
		out = append(out, opToAPI(op))
	}
	return out
}

func opsFromAPI(in []api.Operation) []models.Operation {
	out := make([]models.Operation, 0, len(in))
	for _, op := range in {
		out = append(out, opFromAPI(op))
	}
	return out
}

// groupToAPI конвертирует конфликтную группу в wire-формат
func groupToAPI(g models.ConflictGroup) api.ConflictGroup {
	return api.ConflictGroup{
		ID:           g.ID,
		Operations:   opsToAPI(g.Operations),
		Participants: g.Participants,
		RangeStart:   g.AffectedRange.Start,
		RangeEnd:     g.AffectedRange.End,
		Timestamp:    g.Timestamp,
	}
}

func groupsToAPI(in []models.ConflictGroup) []api.ConflictGroup {
	out := make([]api.ConflictGroup, 0, len(in))
	for _, g := range in {
		out = append(out, groupToAPI(g))
	}
	return out
}
