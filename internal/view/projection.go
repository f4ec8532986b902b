package view

import (
	"sort"
	"strings"

	"studiohub/internal/domain"
)

// KanbanColumn is one board bucket. Columns come back in the fixed display
// order planning, in_progress, review, completed; contents keep store order
// (newest first).
type KanbanColumn struct {
	Stage    domain.Stage             `json:"stage"`
	Projects []domain.PipelineProject `json:"projects"`
}

// Kanban groups projects into the four fixed board buckets. Projects in
// other stages (archived) are dropped from the board.
func Kanban(projects []domain.PipelineProject) []KanbanColumn {
	columns := make([]KanbanColumn, len(domain.KanbanStages))
	byStage := make(map[domain.Stage]int, len(domain.KanbanStages))
	for i, stage := range domain.KanbanStages {
		columns[i] = KanbanColumn{Stage: stage, Projects: []domain.PipelineProject{}}
		byStage[stage] = i
	}
	for _, p := range projects {
		if i, ok := byStage[p.Stage]; ok {
			columns[i].Projects = append(columns[i].Projects, p)
		}
	}
	return columns
}

// SortKey selects the list projection's sort column.
type SortKey string

const (
	SortNone     SortKey = ""
	SortTitle    SortKey = "title"
	SortPriority SortKey = "priority"
	SortDueDate  SortKey = "due_date"
	SortProgress SortKey = "progress"
	SortCreated  SortKey = "created"
)

func ValidSortKey(k SortKey) bool {
	switch k {
	case SortNone, SortTitle, SortPriority, SortDueDate, SortProgress, SortCreated:
		return true
	}
	return false
}

// List returns the flat row projection. The sort is stable, so equal keys
// keep their relative (insertion) order; SortNone returns insertion order.
func List(projects []domain.PipelineProject, key SortKey, desc bool) []domain.PipelineProject {
	out := make([]domain.PipelineProject, len(projects))
	copy(out, projects)
	if key == SortNone {
		return out
	}
	less := lessFunc(key)
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

func lessFunc(key SortKey) func(a, b domain.PipelineProject) bool {
	switch key {
	case SortTitle:
		return func(a, b domain.PipelineProject) bool {
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		}
	case SortPriority:
		return func(a, b domain.PipelineProject) bool {
			return domain.PriorityRank(a.Priority) < domain.PriorityRank(b.Priority)
		}
	case SortDueDate:
		return func(a, b domain.PipelineProject) bool {
			return dueBefore(a, b)
		}
	case SortProgress:
		return func(a, b domain.PipelineProject) bool {
			return a.Progress < b.Progress
		}
	case SortCreated:
		return func(a, b domain.PipelineProject) bool {
			return a.Created.Before(b.Created)
		}
	}
	return func(a, b domain.PipelineProject) bool { return false }
}

// dueBefore orders by due date ascending with missing dates last.
func dueBefore(a, b domain.PipelineProject) bool {
	switch {
	case a.DueDate == nil:
		return false
	case b.DueDate == nil:
		return true
	default:
		return a.DueDate.Before(*b.DueDate)
	}
}

// Timeline returns the chronological projection: ascending due date, with
// undated projects last in their original relative order.
func Timeline(projects []domain.PipelineProject) []domain.PipelineProject {
	out := make([]domain.PipelineProject, len(projects))
	copy(out, projects)
	sort.SliceStable(out, func(i, j int) bool {
		return dueBefore(out[i], out[j])
	})
	return out
}
