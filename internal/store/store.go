// Package store is the single source of truth for pipeline projects. All
// mutations go through the named commands below; derived views are always
// computed fresh from the store, never cached in presentation state.
package store

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"studiohub/internal/domain"
	"studiohub/internal/kv"
	"studiohub/internal/notify"
)

const projectsKey = "studiohub/projects"

// envelope versions the persisted blob so a format change fails loudly into
// the empty-store fallback instead of silently corrupting.
type envelope struct {
	Schema   int                      `json:"schema"`
	Projects []domain.PipelineProject `json:"projects"`
}

const envelopeSchema = 1

// Store holds the canonical project collection. Mutations apply in call
// order under a single mutex; each successful mutation mirrors the full set
// to the kv layer and may emit a notification.
type Store struct {
	mu       sync.Mutex
	projects []domain.PipelineProject
	kv       *kv.Store
	Events   *notify.Dispatcher
	Now      func() time.Time
}

// New builds a store, rehydrating the persisted project set. Corrupt or
// missing persisted data falls back to an empty store with no user-facing
// error; that path is expected on first run.
func New(ctx context.Context, store *kv.Store, events *notify.Dispatcher) *Store {
	s := &Store{kv: store, Events: events, Now: time.Now}
	if store == nil {
		return s
	}
	data, err := store.Get(ctx, projectsKey)
	if err != nil {
		return s
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Schema != envelopeSchema {
		return s
	}
	s.projects = env.Projects
	return s
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// touch returns the next LastUpdated value. LastUpdated must strictly
// increase across mutations even under a coarse clock.
func touch(now, last time.Time) time.Time {
	if !now.After(last) {
		return last.Add(time.Nanosecond)
	}
	return now
}

func (s *Store) persistLocked(ctx context.Context) error {
	if s.kv == nil {
		return nil
	}
	data, err := json.Marshal(envelope{Schema: envelopeSchema, Projects: s.projects})
	if err != nil {
		return err
	}
	return s.kv.Put(ctx, projectsKey, data)
}

func (s *Store) indexLocked(id string) int {
	for i := range s.projects {
		if s.projects[i].ID == id {
			return i
		}
	}
	return -1
}

// Draft is the construction input for Create.
type Draft struct {
	Title          string
	Description    string
	Type           domain.ProjectType
	Priority       domain.Priority
	Platform       string
	DueDate        *time.Time
	Tags           []string
	EstimatedHours float64
}

func clampProgress(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Create assigns an id, puts the project in planning at zero progress and
// prepends it to the collection, so the default order is newest first.
func (s *Store) Create(ctx context.Context, d Draft) (domain.PipelineProject, error) {
	if strings.TrimSpace(d.Title) == "" {
		return domain.PipelineProject{}, ValidationError{Field: "title", Reason: "required"}
	}
	if d.Type == "" {
		return domain.PipelineProject{}, ValidationError{Field: "type", Reason: "required"}
	}
	if !domain.ValidProjectType(d.Type) {
		return domain.PipelineProject{}, ValidationError{Field: "type", Reason: "unknown type " + string(d.Type)}
	}
	if d.Priority == "" {
		d.Priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(d.Priority) {
		return domain.PipelineProject{}, ValidationError{Field: "priority", Reason: "unknown priority " + string(d.Priority)}
	}
	now := s.now().UTC()
	p := domain.PipelineProject{
		ID:             uuid.New().String(),
		Title:          strings.TrimSpace(d.Title),
		Description:    d.Description,
		Type:           d.Type,
		Stage:          domain.StagePlanning,
		Priority:       d.Priority,
		Platform:       d.Platform,
		Progress:       0,
		DueDate:        d.DueDate,
		Tags:           dedupeTags(d.Tags),
		Created:        now,
		LastUpdated:    now,
		EstimatedHours: d.EstimatedHours,
	}
	s.mu.Lock()
	s.projects = append([]domain.PipelineProject{p}, s.projects...)
	err := s.persistLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return p, err
	}
	if s.Events != nil {
		s.Events.ProjectCreated(ctx, p.Title)
	}
	return p, nil
}

// dedupeTags drops duplicates while preserving insertion order for display.
func dedupeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Get returns a copy of the project with the given id.
func (s *Store) Get(_ context.Context, id string) (domain.PipelineProject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return domain.PipelineProject{}, ErrNotFound
	}
	return s.projects[i], nil
}

// Active returns the default query set: everything not archived, in store
// order (newest first).
func (s *Store) Active(_ context.Context) []domain.PipelineProject {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.PipelineProject, 0, len(s.projects))
	for _, p := range s.projects {
		if p.Active() {
			out = append(out, p)
		}
	}
	return out
}

// All returns every project including archived ones.
func (s *Store) All(_ context.Context) []domain.PipelineProject {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.PipelineProject, len(s.projects))
	copy(out, s.projects)
	return out
}

// UpdateStage moves a project to any stage. There are no forbidden
// transitions: this is a kanban board, not a workflow state machine.
func (s *Store) UpdateStage(ctx context.Context, id string, stage domain.Stage) (domain.PipelineProject, error) {
	if !domain.ValidStage(stage) {
		return domain.PipelineProject{}, ValidationError{Field: "stage", Reason: "unknown stage " + string(stage)}
	}
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.PipelineProject{}, ErrNotFound
	}
	s.projects[i].Stage = stage
	s.projects[i].LastUpdated = touch(s.now().UTC(), s.projects[i].LastUpdated)
	p := s.projects[i]
	err := s.persistLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return p, err
	}
	if s.Events != nil {
		s.Events.ProjectUpdated(ctx, p.Title, p.Stage)
	}
	return p, nil
}

// UpdateProgress clamps the value into [0,100]. Stage is untouched:
// progress and stage drift independently by design.
func (s *Store) UpdateProgress(ctx context.Context, id string, value int) (domain.PipelineProject, error) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.PipelineProject{}, ErrNotFound
	}
	s.projects[i].Progress = clampProgress(value)
	s.projects[i].LastUpdated = touch(s.now().UTC(), s.projects[i].LastUpdated)
	p := s.projects[i]
	err := s.persistLocked(ctx)
	s.mu.Unlock()
	return p, err
}

// Patch carries the fields Edit may merge. ID and Created are present only
// so attempts to change them can be rejected explicitly.
type Patch struct {
	ID             *string
	Created        *time.Time
	Title          *string
	Description    *string
	Type           *domain.ProjectType
	Priority       *domain.Priority
	Platform       *string
	DueDate        *time.Time
	ClearDueDate   bool
	Tags           []string
	EstimatedHours *float64
	ActualHours    *float64
	Comments       *int
}

// Edit merges the provided fields into the project.
func (s *Store) Edit(ctx context.Context, id string, patch Patch) (domain.PipelineProject, error) {
	if patch.ID != nil {
		return domain.PipelineProject{}, ImmutableFieldError{Field: "id"}
	}
	if patch.Created != nil {
		return domain.PipelineProject{}, ImmutableFieldError{Field: "created"}
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return domain.PipelineProject{}, ValidationError{Field: "title", Reason: "cannot be empty"}
	}
	if patch.Type != nil && !domain.ValidProjectType(*patch.Type) {
		return domain.PipelineProject{}, ValidationError{Field: "type", Reason: "unknown type " + string(*patch.Type)}
	}
	if patch.Priority != nil && !domain.ValidPriority(*patch.Priority) {
		return domain.PipelineProject{}, ValidationError{Field: "priority", Reason: "unknown priority " + string(*patch.Priority)}
	}
	if patch.EstimatedHours != nil && *patch.EstimatedHours < 0 {
		return domain.PipelineProject{}, ValidationError{Field: "estimated_hours", Reason: "must be nonnegative"}
	}
	if patch.ActualHours != nil && *patch.ActualHours < 0 {
		return domain.PipelineProject{}, ValidationError{Field: "actual_hours", Reason: "must be nonnegative"}
	}
	if patch.Comments != nil && *patch.Comments < 0 {
		return domain.PipelineProject{}, ValidationError{Field: "comments", Reason: "must be nonnegative"}
	}
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.PipelineProject{}, ErrNotFound
	}
	p := &s.projects[i]
	if patch.Title != nil {
		p.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Type != nil {
		p.Type = *patch.Type
	}
	if patch.Priority != nil {
		p.Priority = *patch.Priority
	}
	if patch.Platform != nil {
		p.Platform = *patch.Platform
	}
	if patch.ClearDueDate {
		p.DueDate = nil
	} else if patch.DueDate != nil {
		due := *patch.DueDate
		p.DueDate = &due
	}
	if patch.Tags != nil {
		p.Tags = dedupeTags(patch.Tags)
	}
	if patch.EstimatedHours != nil {
		p.EstimatedHours = *patch.EstimatedHours
	}
	if patch.ActualHours != nil {
		p.ActualHours = *patch.ActualHours
	}
	if patch.Comments != nil {
		p.Comments = *patch.Comments
	}
	p.LastUpdated = touch(s.now().UTC(), p.LastUpdated)
	out := *p
	err := s.persistLocked(ctx)
	s.mu.Unlock()
	return out, err
}

// Duplicate clones a project into a fresh planning-stage copy: new id, zero
// progress, zero actual hours, fresh timestamps, " (Copy)" title suffix.
// The attachment counter starts at zero because the copy owns no files yet.
func (s *Store) Duplicate(ctx context.Context, id string) (domain.PipelineProject, error) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.PipelineProject{}, ErrNotFound
	}
	src := s.projects[i]
	now := s.now().UTC()
	dup := src
	dup.ID = uuid.New().String()
	dup.Title = src.Title + " (Copy)"
	dup.Stage = domain.StagePlanning
	dup.Progress = 0
	dup.ActualHours = 0
	dup.Attachments = 0
	dup.Created = now
	dup.LastUpdated = now
	dup.Archived = false
	dup.Tags = append([]string(nil), src.Tags...)
	if src.DueDate != nil {
		due := *src.DueDate
		dup.DueDate = &due
	}
	s.projects = append([]domain.PipelineProject{dup}, s.projects...)
	err := s.persistLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return dup, err
	}
	if s.Events != nil {
		s.Events.ProjectCreated(ctx, dup.Title)
	}
	return dup, nil
}

// Archive removes a project from the active set without erasing it — hide,
// don't destroy, so later recovery stays possible.
func (s *Store) Archive(ctx context.Context, id string) (domain.PipelineProject, error) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.PipelineProject{}, ErrNotFound
	}
	s.projects[i].Archived = true
	s.projects[i].LastUpdated = touch(s.now().UTC(), s.projects[i].LastUpdated)
	p := s.projects[i]
	err := s.persistLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return p, err
	}
	if s.Events != nil {
		s.Events.ProjectArchived(ctx, p.Title)
	}
	return p, nil
}

// SetAttachments recomputes a project's attachment counter from the file
// index. The coordinator calls this with the authoritative count; the store
// never applies deltas here.
func (s *Store) SetAttachments(ctx context.Context, id string, count int) (domain.PipelineProject, error) {
	if count < 0 {
		return domain.PipelineProject{}, ValidationError{Field: "attachments", Reason: "must be nonnegative"}
	}
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.PipelineProject{}, ErrNotFound
	}
	s.projects[i].Attachments = count
	s.projects[i].LastUpdated = touch(s.now().UTC(), s.projects[i].LastUpdated)
	p := s.projects[i]
	err := s.persistLocked(ctx)
	s.mu.Unlock()
	return p, err
}
