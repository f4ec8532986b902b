package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"studiohub/internal/domain"
	"studiohub/internal/kv"
	"studiohub/internal/notify"
	"studiohub/internal/store"
)

type testEnv struct {
	Store  *store.Store
	Events *notify.Dispatcher
	KV     *kv.Store
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	kvStore, err := kv.Open(kv.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	t.Cleanup(func() { kvStore.Close() })
	ctx := context.Background()
	events := notify.New(ctx, kvStore)
	events.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	s := store.New(ctx, kvStore, events)
	s.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Store: s, Events: events, KV: kvStore, Ctx: ctx}
}

func mustCreate(t *testing.T, env testEnv, d store.Draft) domain.PipelineProject {
	t.Helper()
	p, err := env.Store.Create(env.Ctx, d)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return p
}

func TestCreateDefaults(t *testing.T) {
	env := newTestEnv(t)
	p := mustCreate(t, env, store.Draft{Title: "  Launch video  ", Type: domain.TypeVideo})
	if p.Title != "Launch video" {
		t.Fatalf("title not trimmed: %q", p.Title)
	}
	if p.Stage != domain.StagePlanning {
		t.Fatalf("new project should start in planning, got %s", p.Stage)
	}
	if p.Progress != 0 {
		t.Fatalf("new project should start at 0 progress, got %d", p.Progress)
	}
	if p.Priority != domain.PriorityMedium {
		t.Fatalf("priority should default to medium, got %s", p.Priority)
	}
	if p.ID == "" || p.Created.IsZero() || p.LastUpdated.IsZero() {
		t.Fatalf("identity fields not populated: %+v", p)
	}
}

func TestCreateNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	mustCreate(t, env, store.Draft{Title: "first", Type: domain.TypeContent})
	second := mustCreate(t, env, store.Draft{Title: "second", Type: domain.TypeContent})
	list := env.Store.Active(env.Ctx)
	if len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct {
		name  string
		draft store.Draft
		field string
	}{
		{"missing title", store.Draft{Type: domain.TypeVideo}, "title"},
		{"blank title", store.Draft{Title: "   ", Type: domain.TypeVideo}, "title"},
		{"missing type", store.Draft{Title: "x"}, "type"},
		{"unknown type", store.Draft{Title: "x", Type: "podcast"}, "type"},
		{"unknown priority", store.Draft{Title: "x", Type: domain.TypeVideo, Priority: "asap"}, "priority"},
	}
	for _, tc := range cases {
		_, err := env.Store.Create(env.Ctx, tc.draft)
		var ve store.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: expected ValidationError, got %v", tc.name, err)
		}
		if ve.Field != tc.field {
			t.Fatalf("%s: expected field %s, got %s", tc.name, tc.field, ve.Field)
		}
	}
}

func TestCreateDedupesTags(t *testing.T) {
	env := newTestEnv(t)
	p := mustCreate(t, env, store.Draft{
		Title: "tagged", Type: domain.TypeVideo,
		Tags: []string{"launch", " launch ", "q3", "", "launch"},
	})
	if len(p.Tags) != 2 || p.Tags[0] != "launch" || p.Tags[1] != "q3" {
		t.Fatalf("tags not deduped in insertion order: %v", p.Tags)
	}
}

func TestStageTransitionsUnrestricted(t *testing.T) {
	env := newTestEnv(t)
	p := mustCreate(t, env, store.Draft{Title: "x", Type: domain.TypeVideo})
	// Any stage may move to any other, including backwards from completed.
	path := []domain.Stage{
		domain.StageCompleted,
		domain.StagePlanning,
		domain.StageReview,
		domain.StageInProgress,
		domain.StageArchived,
		domain.StagePlanning,
	}
	for _, stage := range path {
		got, err := env.Store.UpdateStage(env.Ctx, p.ID, stage)
		if err != nil {
			t.Fatalf("move to %s: %v", stage, err)
		}
		if got.Stage != stage {
			t.Fatalf("expected stage %s, got %s", stage, got.Stage)
		}
	}
	_, err := env.Store.UpdateStage(env.Ctx, p.ID, "shipped")
	var ve store.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for unknown stage, got %v", err)
	}
}

func TestLastUpdatedStrictlyIncreases(t *testing.T) {
	env := newTestEnv(t)
	p := mustCreate(t, env, store.Draft{Title: "x", Type: domain.TypeVideo})
	prev := p.LastUpdated
	// The clock is frozen, so each mutation must still move LastUpdated.
	for _, stage := range []domain.Stage{domain.StageInProgress, domain.StageReview, domain.StageCompleted} {
		got, err := env.Store.UpdateStage(env.Ctx, p.ID, stage)
		if err != nil {
			t.Fatalf("move to %s: %v", stage, err)
		}
		if !got.LastUpdated.After(prev) {
			t.Fatalf("LastUpdated did not increase: %v -> %v", prev, got.LastUpdated)
		}
		prev = got.LastUpdated
	}
}

func TestProgressClamped(t *testing.T) {
	env := newTestEnv(t)
	p := mustCreate(t, env, store.Draft{Title: "x", Type: domain.TypeVideo})
	got, err := env.Store.UpdateProgress(env.Ctx, p.ID, 150)
	if err != nil || got.Progress != 100 {
		t.Fatalf("150 should clamp to 100, got %d (%v)", got.Progress, err)
	}
	got, err = env.Store.UpdateProgress(env.Ctx, p.ID, -5)
	if err != nil || got.Progress != 0 {
		t.Fatalf("-5 should clamp to 0, got %d (%v)", got.Progress, err)
	}
	if got.Stage != domain.StagePlanning {
		t.Fatalf("progress change must not touch stage, got %s", got.Stage)
	}
}

func TestProgressIndependentOfStage(t *testing.T) {
	env := newTestEnv(t)
	p := mustCreate(t, env, store.Draft{Title: "x", Type: domain.TypeVideo})
	if _, err := env.Store.UpdateProgress(env.Ctx, p.ID, 100); err != nil {
		t.Fatal(err)
	}
	got, err := env.Store.Get(env.Ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Stage != domain.StagePlanning {
		t.Fatalf("100%% progress must not complete the project, got stage %s", got.Stage)
	}
	got, err = env.Store.UpdateStage(env.Ctx, p.ID, domain.StageCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if got.Progress != 100 {
		t.Fatalf("stage change must not touch progress, got %d", got.Progress)
	}
}

func TestEditRejectsImmutableFields(t *testing.T) {
	env := newTestEnv(t)
	p := mustCreate(t, env, store.Draft{Title: "x", Type: domain.TypeVideo})
	newID := "forged"
	_, err := env.Store.Edit(env.Ctx, p.ID, store.Patch{ID: &newID})
	var ie store.ImmutableFieldError
	if !errors.As(err, &ie) || ie.Field != "id" {
		t.Fatalf("expected ImmutableFieldError for id, got %v", err)
	}
	created := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = env.Store.Edit(env.Ctx, p.ID, store.Patch{Created: &created})
	if !errors.As(err, &ie) || ie.Field != "created" {
		t.Fatalf("expected ImmutableFieldError for created, got %v", err)
	}
	// Rejection happens before any merge: the record is untouched.
	got, _ := env.Store.Get(env.Ctx, p.ID)
	if got.ID != p.ID || !got.Created.Equal(p.Created) {
		t.Fatalf("record changed despite rejection: %+v", got)
	}
}

func TestEditMergesFields(t *testing.T) {
	env := newTestEnv(t)
	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	p := mustCreate(t, env, store.Draft{Title: "x", Type: domain.TypeVideo, DueDate: &due})
	title := "renamed"
	platform := "youtube"
	hours := 12.5
	got, err := env.Store.Edit(env.Ctx, p.ID, store.Patch{
		Title:          &title,
		Platform:       &platform,
		EstimatedHours: &hours,
		Tags:           []string{"a", "a", "b"},
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got.Title != "renamed" || got.Platform != "youtube" || got.EstimatedHours != 12.5 {
		t.Fatalf("merge wrong: %+v", got)
	}
	if len(got.Tags) != 2 {
		t.Fatalf("tags not deduped: %v", got.Tags)
	}
	if got.DueDate == nil {
		t.Fatalf("untouched due date should survive the edit")
	}
	got, err = env.Store.Edit(env.Ctx, p.ID, store.Patch{ClearDueDate: true})
	if err != nil || got.DueDate != nil {
		t.Fatalf("clear due date failed: %+v (%v)", got, err)
	}
}

func TestEditValidation(t *testing.T) {
	env := newTestEnv(t)
	p := mustCreate(t, env, store.Draft{Title: "x", Type: domain.TypeVideo})
	blank := "  "
	_, err := env.Store.Edit(env.Ctx, p.ID, store.Patch{Title: &blank})
	var ve store.ValidationError
	if !errors.As(err, &ve) || ve.Field != "title" {
		t.Fatalf("expected title ValidationError, got %v", err)
	}
	negative := -1.0
	_, err = env.Store.Edit(env.Ctx, p.ID, store.Patch{ActualHours: &negative})
	if !errors.As(err, &ve) || ve.Field != "actual_hours" {
		t.Fatalf("expected actual_hours ValidationError, got %v", err)
	}
}

func TestDuplicateResetsWorkingState(t *testing.T) {
	env := newTestEnv(t)
	due := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	src := mustCreate(t, env, store.Draft{
		Title: "Pilot", Type: domain.TypeVideo, Priority: domain.PriorityHigh,
		Platform: "youtube", DueDate: &due, Tags: []string{"pilot"},
		EstimatedHours: 8,
	})
	if _, err := env.Store.UpdateStage(env.Ctx, src.ID, domain.StageReview); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Store.UpdateProgress(env.Ctx, src.ID, 70); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Store.SetAttachments(env.Ctx, src.ID, 3); err != nil {
		t.Fatal(err)
	}

	dup, err := env.Store.Duplicate(env.Ctx, src.ID)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if dup.ID == src.ID {
		t.Fatalf("duplicate must get a new id")
	}
	if dup.Title != "Pilot (Copy)" {
		t.Fatalf("expected copy suffix, got %q", dup.Title)
	}
	if dup.Stage != domain.StagePlanning || dup.Progress != 0 || dup.ActualHours != 0 {
		t.Fatalf("working state not reset: %+v", dup)
	}
	if dup.Attachments != 0 {
		t.Fatalf("duplicate must not claim the source's attachments, got %d", dup.Attachments)
	}
	if dup.Priority != domain.PriorityHigh || dup.Platform != "youtube" || dup.EstimatedHours != 8 {
		t.Fatalf("descriptive fields should carry over: %+v", dup)
	}
	if dup.DueDate == nil || !dup.DueDate.Equal(due) {
		t.Fatalf("due date should carry over: %v", dup.DueDate)
	}
	// Tag slice must be a copy, not an alias.
	dup.Tags[0] = "mutated"
	got, _ := env.Store.Get(env.Ctx, src.ID)
	if got.Tags[0] != "pilot" {
		t.Fatalf("duplicate aliases the source tag slice")
	}
	list := env.Store.Active(env.Ctx)
	if list[0].ID != dup.ID {
		t.Fatalf("duplicate should be prepended, got %+v", list[0])
	}
}

func TestArchiveHidesWithoutDestroying(t *testing.T) {
	env := newTestEnv(t)
	p := mustCreate(t, env, store.Draft{Title: "x", Type: domain.TypeVideo})
	if _, err := env.Store.Archive(env.Ctx, p.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if got := env.Store.Active(env.Ctx); len(got) != 0 {
		t.Fatalf("archived project still in active set: %+v", got)
	}
	if got := env.Store.All(env.Ctx); len(got) != 1 || !got[0].Archived {
		t.Fatalf("archived project missing from full set: %+v", got)
	}
	if _, err := env.Store.Get(env.Ctx, p.ID); err != nil {
		t.Fatalf("archived project should remain addressable: %v", err)
	}
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t)
	ops := []func() error{
		func() error { _, err := env.Store.Get(env.Ctx, "nope"); return err },
		func() error { _, err := env.Store.UpdateStage(env.Ctx, "nope", domain.StageReview); return err },
		func() error { _, err := env.Store.UpdateProgress(env.Ctx, "nope", 10); return err },
		func() error { _, err := env.Store.Edit(env.Ctx, "nope", store.Patch{}); return err },
		func() error { _, err := env.Store.Duplicate(env.Ctx, "nope"); return err },
		func() error { _, err := env.Store.Archive(env.Ctx, "nope"); return err },
	}
	for i, op := range ops {
		if err := op(); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("op %d: expected ErrNotFound, got %v", i, err)
		}
	}
}

func TestNotificationsEmitted(t *testing.T) {
	env := newTestEnv(t)
	p := mustCreate(t, env, store.Draft{Title: "Trailer", Type: domain.TypeVideo})
	if _, err := env.Store.UpdateStage(env.Ctx, p.ID, domain.StageCompleted); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Store.Archive(env.Ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	// Progress and edit persist silently.
	if _, err := env.Store.UpdateProgress(env.Ctx, p.ID, 50); err != nil {
		t.Fatal(err)
	}
	items := env.Events.List(env.Ctx)
	if len(items) != 3 {
		t.Fatalf("expected 3 notifications, got %d: %+v", len(items), items)
	}
	if items[0].Title != "Project Archived" {
		t.Fatalf("newest first violated: %+v", items[0])
	}
	if items[1].Title != "Project Completed" || items[1].Category != domain.CategorySuccess {
		t.Fatalf("completion should use the celebratory template: %+v", items[1])
	}
	if items[2].Title != "Project Created" {
		t.Fatalf("expected creation record last: %+v", items[2])
	}
}

func TestRehydrateFromKV(t *testing.T) {
	env := newTestEnv(t)
	a := mustCreate(t, env, store.Draft{Title: "a", Type: domain.TypeVideo})
	b := mustCreate(t, env, store.Draft{Title: "b", Type: domain.TypeContent})
	if _, err := env.Store.UpdateStage(env.Ctx, a.ID, domain.StageReview); err != nil {
		t.Fatal(err)
	}

	reopened := store.New(env.Ctx, env.KV, nil)
	list := reopened.All(env.Ctx)
	if len(list) != 2 {
		t.Fatalf("expected 2 rehydrated projects, got %d", len(list))
	}
	if list[0].ID != b.ID || list[1].ID != a.ID {
		t.Fatalf("order not preserved across restart: %+v", list)
	}
	if list[1].Stage != domain.StageReview {
		t.Fatalf("stage not persisted: %+v", list[1])
	}
}

func TestCorruptPersistedStateFallsBackEmpty(t *testing.T) {
	env := newTestEnv(t)
	mustCreate(t, env, store.Draft{Title: "doomed", Type: domain.TypeVideo})
	if err := env.KV.Put(env.Ctx, "studiohub/projects", []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	reopened := store.New(env.Ctx, env.KV, nil)
	if got := reopened.All(env.Ctx); len(got) != 0 {
		t.Fatalf("corrupt blob should yield an empty store, got %+v", got)
	}
	// The empty store must still accept new work.
	if _, err := reopened.Create(env.Ctx, store.Draft{Title: "fresh", Type: domain.TypeVideo}); err != nil {
		t.Fatalf("create after corrupt rehydrate: %v", err)
	}
}
