package textapi

import (
	"context"
	"log/slog"
	"strconv"
)

// mergeTasks fans independently-completed task groups back in, producing one
// merged row per document id. Groups whose state is not "succeeded" are
// dropped entirely (a failed task never contributes slots); a group that
// succeeded overall may still carry per-document errors, which flow into the
// matching slot. Slots follow TaskOrder regardless of how many kinds
// survived. If no group succeeded the result is empty, signalling total
// failure to the caller rather than per-row errors.
func mergeTasks(ctx context.Context, tasks *taskResponses, n int) []MergedRow {
	type indexed struct {
		kind   TaskKind
		byID   map[string]documentResult
		errsBy map[string]documentError
	}

	var surviving []indexed
	for _, kind := range TaskOrder {
		group := tasks.group(kind)
		if group == nil {
			continue
		}
		if group.State != "succeeded" {
			slog.WarnContext(ctx, "dropping failed task group", "kind", string(kind), "state", group.State)
			continue
		}
		idx := indexed{
			kind:   kind,
			byID:   make(map[string]documentResult),
			errsBy: make(map[string]documentError),
		}
		if group.Results != nil {
			for _, doc := range group.Results.Documents {
				idx.byID[doc.ID] = doc
			}
			for _, docErr := range group.Results.Errors {
				idx.errsBy[docErr.ID] = docErr
			}
		}
		surviving = append(surviving, idx)
	}

	if len(surviving) == 0 {
		return nil
	}

	merged := make([]MergedRow, n)
	for i := 0; i < n; i++ {
		id := strconv.Itoa(i)
		row := MergedRow{ID: i, Slots: make([]TaskSlot, 0, len(surviving))}
		for _, idx := range surviving {
			slot := TaskSlot{Kind: idx.kind}
			if doc, ok := idx.byID[id]; ok {
				slot.Result = doc.Result
			} else if docErr, ok := idx.errsBy[id]; ok {
				slot.Error = docErr.Error.Message
				if slot.Error == "" {
					slot.Error = docErr.Error.Code
				}
			}
			row.Slots = append(row.Slots, slot)
		}
		merged[i] = row
	}
	return merged
}
