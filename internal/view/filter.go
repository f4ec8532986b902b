// Package view holds the pure read-side transformations: compound filters,
// aggregate stats and the three presentation projections. Nothing here
// mutates or caches; callers always pass a fresh snapshot from the store.
package view

import "studiohub/internal/domain"

// Criteria narrows a project set. Each present field is an exact match;
// absent fields impose no constraint; present fields AND together.
type Criteria struct {
	Stage    domain.Stage
	Type     domain.ProjectType
	Priority domain.Priority
	Platform string
}

// Empty reports whether the criteria narrows nothing.
func (c Criteria) Empty() bool {
	return c.Stage == "" && c.Type == "" && c.Priority == "" && c.Platform == ""
}

func (c Criteria) matches(p domain.PipelineProject) bool {
	if c.Stage != "" && p.Stage != c.Stage {
		return false
	}
	if c.Type != "" && p.Type != c.Type {
		return false
	}
	if c.Priority != "" && p.Priority != c.Priority {
		return false
	}
	if c.Platform != "" && p.Platform != c.Platform {
		return false
	}
	return true
}

// Filter returns the subset of projects matching the criteria, preserving
// order. Empty criteria returns a copy of the full set.
func Filter(projects []domain.PipelineProject, c Criteria) []domain.PipelineProject {
	out := make([]domain.PipelineProject, 0, len(projects))
	for _, p := range projects {
		if c.matches(p) {
			out = append(out, p)
		}
	}
	return out
}
