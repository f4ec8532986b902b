package view

import (
	"time"

	"studiohub/internal/config"
	"studiohub/internal/domain"
)

// Stats are the summary metrics over a (typically filtered) project set.
// AverageCompletionHours and ProductivityScore are presentation heuristics;
// their formulas are driven by config weights, not contracts.
type Stats struct {
	TotalProjects          int     `json:"total_projects"`
	InProgress             int     `json:"in_progress"`
	CompletedThisWeek      int     `json:"completed_this_week"`
	Overdue                int     `json:"overdue"`
	AverageCompletionHours float64 `json:"average_completion_hours"`
	ProductivityScore      float64 `json:"productivity_score"`
}

// Aggregate computes stats at the given evaluation time. Overdue and
// completed-this-week are derived from now, never stored.
func Aggregate(projects []domain.PipelineProject, now time.Time, scoring config.Scoring) Stats {
	st := Stats{TotalProjects: len(projects)}
	weekAgo := now.Add(-7 * 24 * time.Hour)

	var completed int
	var completionSum time.Duration
	var progressSum int
	for _, p := range projects {
		progressSum += p.Progress
		if p.Stage == domain.StageInProgress {
			st.InProgress++
		}
		if p.Stage == domain.StageCompleted {
			completed++
			completionSum += p.LastUpdated.Sub(p.Created)
			if p.LastUpdated.After(weekAgo) {
				st.CompletedThisWeek++
			}
		}
		if p.Overdue(now) {
			st.Overdue++
		}
	}
	if completed > 0 {
		st.AverageCompletionHours = completionSum.Hours() / float64(completed)
	}

	// Heuristic: reward completions and average progress, penalize overdue
	// work; clamp into [0,100] for display as a percentage.
	score := float64(completed)*scoring.CompletionWeight - float64(st.Overdue)*scoring.OverduePenalty
	if len(projects) > 0 {
		score += float64(progressSum) / float64(len(projects)) * scoring.ProgressWeight
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	st.ProductivityScore = score
	return st
}
