package files_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"studiohub/internal/config"
	"studiohub/internal/domain"
	"studiohub/internal/files"
	"studiohub/internal/kv"
	"studiohub/internal/notify"
	"studiohub/internal/session"
	"studiohub/internal/store"
)

// fakeBlob is an in-memory BlobStore with per-op failure switches.
type fakeBlob struct {
	objects  map[string][]byte
	failNext map[string]error
	calls    []string
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{objects: map[string][]byte{}, failNext: map[string]error{}}
}

func (f *fakeBlob) fail(op string) {
	f.failNext[op] = errors.New("connection reset")
}

func (f *fakeBlob) check(op string) error {
	f.calls = append(f.calls, op)
	if err := f.failNext[op]; err != nil {
		delete(f.failNext, op)
		return err
	}
	return nil
}

func (f *fakeBlob) Upload(_ context.Context, scope, key string, r io.Reader, size int64, _ string) (files.BlobRef, error) {
	if err := f.check("upload"); err != nil {
		return files.BlobRef{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return files.BlobRef{}, err
	}
	f.objects[scope+"/"+key] = data
	return files.BlobRef{Key: key, Size: size, URL: "fake://" + scope + "/" + key}, nil
}

func (f *fakeBlob) Download(_ context.Context, scope, key string) (io.ReadCloser, error) {
	if err := f.check("download"); err != nil {
		return nil, err
	}
	data, ok := f.objects[scope+"/"+key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBlob) Delete(_ context.Context, scope, key string) error {
	if err := f.check("delete"); err != nil {
		return err
	}
	delete(f.objects, scope+"/"+key)
	return nil
}

func (f *fakeBlob) List(_ context.Context, scope string) ([]files.BlobRef, error) {
	if err := f.check("list"); err != nil {
		return nil, err
	}
	var out []files.BlobRef
	for k, v := range f.objects {
		if strings.HasPrefix(k, scope+"/") {
			out = append(out, files.BlobRef{Key: strings.TrimPrefix(k, scope+"/"), Size: int64(len(v))})
		}
	}
	return out, nil
}

type testEnv struct {
	Coord    *files.Coordinator
	Blob     *fakeBlob
	Projects *store.Store
	Events   *notify.Dispatcher
	KV       *kv.Store
	Cfg      *config.Config
	Ctx      context.Context
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
	projects := store.New(ctx, kvStore, events)
	projects.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	cfg := config.Default()
	cfg.Plans[domain.PlanFree] = config.Plan{QuotaBytes: 10 << 20}
	blob := newFakeBlob()
	sessions := session.Static{Identity: session.Identity{ActorID: "tester", Plan: domain.PlanFree}}
	coord := files.NewCoordinator(ctx, blob, projects, events, sessions, cfg, kvStore)
	coord.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Coord: coord, Blob: blob, Projects: projects, Events: events, KV: kvStore, Cfg: cfg, Ctx: ctx}
}

func (env testEnv) mustProject(t *testing.T, title string) domain.PipelineProject {
	t.Helper()
	p, err := env.Projects.Create(env.Ctx, store.Draft{Title: title, Type: domain.TypeVideo})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func (env testEnv) mustUpload(t *testing.T, projectID, name string, size int) domain.UploadedFile {
	t.Helper()
	f, err := env.Coord.Upload(env.Ctx, projectID, name, "video/mp4", bytes.NewReader(make([]byte, size)), int64(size))
	if err != nil {
		t.Fatalf("upload %s: %v", name, err)
	}
	return f
}

func lastNotification(t *testing.T, env testEnv) domain.Notification {
	t.Helper()
	items := env.Events.List(env.Ctx)
	if len(items) == 0 {
		t.Fatalf("no notifications recorded")
	}
	return items[0]
}

func TestUploadSuccess(t *testing.T) {
	env := newTestEnv(t)
	p := env.mustProject(t, "Trailer")
	f := env.mustUpload(t, p.ID, "cut.mp4", 1024)

	if f.Name != "cut.mp4" {
		t.Fatalf("display name wrong: %q", f.Name)
	}
	if f.StorageKey == "cut.mp4" || filepath.Ext(f.StorageKey) != ".mp4" {
		t.Fatalf("storage key should be generated but keep the extension: %q", f.StorageKey)
	}
	if got := env.Coord.Usage(env.Ctx, p.ID); got != 1024 {
		t.Fatalf("usage: %d", got)
	}
	updated, _ := env.Projects.Get(env.Ctx, p.ID)
	if updated.Attachments != 1 {
		t.Fatalf("attachment counter not recomputed: %d", updated.Attachments)
	}
	if n := lastNotification(t, env); n.Title != "Upload Complete" {
		t.Fatalf("expected upload notification, got %+v", n)
	}
	if len(env.Blob.objects) != 1 {
		t.Fatalf("blob not stored: %v", env.Blob.objects)
	}
}

func TestUploadRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	p := env.mustProject(t, "Trailer")
	env.Coord.Sessions = session.None{}
	_, err := env.Coord.Upload(env.Ctx, p.ID, "cut.mp4", "video/mp4", bytes.NewReader([]byte("x")), 1)
	if !errors.Is(err, session.ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
	// The auth check must fire before any network attempt.
	if len(env.Blob.calls) != 0 {
		t.Fatalf("blob touched despite missing session: %v", env.Blob.calls)
	}
}

func TestUploadQuotaExceeded(t *testing.T) {
	env := newTestEnv(t)
	p := env.mustProject(t, "Trailer")
	env.mustUpload(t, p.ID, "existing.mp4", 2<<20)
	callsBefore := len(env.Blob.calls)

	_, err := env.Coord.Upload(env.Ctx, p.ID, "big.mp4", "video/mp4", bytes.NewReader(make([]byte, 9<<20)), 9<<20)
	var qe files.QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}
	if qe.Size != 9<<20 || qe.Used != 2<<20 || qe.Limit != 10<<20 {
		t.Fatalf("quota details wrong: %+v", qe)
	}
	// Rejected before transfer: no blob call, no local change.
	if len(env.Blob.calls) != callsBefore {
		t.Fatalf("blob touched despite quota rejection")
	}
	if got := env.Coord.GlobalUsage(env.Ctx); got != 2<<20 {
		t.Fatalf("usage changed on rejected upload: %d", got)
	}
	updated, _ := env.Projects.Get(env.Ctx, p.ID)
	if updated.Attachments != 1 {
		t.Fatalf("counter changed on rejected upload: %d", updated.Attachments)
	}
	if n := lastNotification(t, env); n.Title != "Storage Limit Reached" || n.Category != domain.CategoryWarning {
		t.Fatalf("expected quota warning, got %+v", n)
	}
}

func TestUploadExactlyAtQuotaAllowed(t *testing.T) {
	env := newTestEnv(t)
	p := env.mustProject(t, "Trailer")
	env.mustUpload(t, p.ID, "a.mp4", 4<<20)
	// used + size == limit must pass; only crossing the line fails.
	env.mustUpload(t, p.ID, "b.mp4", 6<<20)
	if got := env.Coord.GlobalUsage(env.Ctx); got != 10<<20 {
		t.Fatalf("usage: %d", got)
	}
}

func TestUploadTransportFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	p := env.mustProject(t, "Trailer")
	env.Blob.fail("upload")

	_, err := env.Coord.Upload(env.Ctx, p.ID, "cut.mp4", "video/mp4", bytes.NewReader([]byte("x")), 1)
	var te files.TransportError
	if !errors.As(err, &te) || te.Op != "upload" {
		t.Fatalf("expected upload TransportError, got %v", err)
	}
	if got := env.Coord.GlobalUsage(env.Ctx); got != 0 {
		t.Fatalf("usage changed on failed upload: %d", got)
	}
	if got := env.Coord.Files(env.Ctx, p.ID); len(got) != 0 {
		t.Fatalf("index gained an entry on failed upload: %+v", got)
	}
	updated, _ := env.Projects.Get(env.Ctx, p.ID)
	if updated.Attachments != 0 {
		t.Fatalf("counter changed on failed upload: %d", updated.Attachments)
	}
	if n := lastNotification(t, env); n.Title != "Upload Failed" || n.Category != domain.CategoryError {
		t.Fatalf("expected failure notification, got %+v", n)
	}
}

func TestUploadValidation(t *testing.T) {
	env := newTestEnv(t)
	p := env.mustProject(t, "Trailer")
	_, err := env.Coord.Upload(env.Ctx, p.ID, "   ", "", bytes.NewReader(nil), 0)
	var ve store.ValidationError
	if !errors.As(err, &ve) || ve.Field != "name" {
		t.Fatalf("expected name ValidationError, got %v", err)
	}
	_, err = env.Coord.Upload(env.Ctx, "missing", "x.mp4", "", bytes.NewReader(nil), 0)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown project, got %v", err)
	}
}

func TestDeleteRecountsFromIndex(t *testing.T) {
	env := newTestEnv(t)
	p := env.mustProject(t, "Trailer")
	a := env.mustUpload(t, p.ID, "a.mp4", 100)
	env.mustUpload(t, p.ID, "b.mp4", 200)

	if err := env.Coord.Delete(env.Ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := env.Coord.Usage(env.Ctx, p.ID); got != 200 {
		t.Fatalf("usage after delete: %d", got)
	}
	updated, _ := env.Projects.Get(env.Ctx, p.ID)
	if updated.Attachments != 1 {
		t.Fatalf("counter after delete: %d", updated.Attachments)
	}
	if n := lastNotification(t, env); n.Title != "File Deleted" {
		t.Fatalf("expected delete notification, got %+v", n)
	}
	if err := env.Coord.Delete(env.Ctx, a.ID); !errors.Is(err, files.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound on double delete, got %v", err)
	}
}

func TestDeleteTransportFailureKeepsIndex(t *testing.T) {
	env := newTestEnv(t)
	p := env.mustProject(t, "Trailer")
	a := env.mustUpload(t, p.ID, "a.mp4", 100)
	env.Blob.fail("delete")

	err := env.Coord.Delete(env.Ctx, a.ID)
	var te files.TransportError
	if !errors.As(err, &te) || te.Op != "delete" {
		t.Fatalf("expected delete TransportError, got %v", err)
	}
	// Blob delete failed, so the local record must survive.
	if got := env.Coord.Files(env.Ctx, p.ID); len(got) != 1 {
		t.Fatalf("index lost the entry on failed delete: %+v", got)
	}
	updated, _ := env.Projects.Get(env.Ctx, p.ID)
	if updated.Attachments != 1 {
		t.Fatalf("counter changed on failed delete: %d", updated.Attachments)
	}
}

func TestRenameChangesDisplayNameOnly(t *testing.T) {
	env := newTestEnv(t)
	p := env.mustProject(t, "Trailer")
	a := env.mustUpload(t, p.ID, "draft.mp4", 100)
	callsBefore := len(env.Blob.calls)

	got, err := env.Coord.Rename(env.Ctx, a.ID, "final.mp4")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if got.Name != "final.mp4" {
		t.Fatalf("name not changed: %+v", got)
	}
	if got.StorageKey != a.StorageKey {
		t.Fatalf("rename must not touch the storage key: %q -> %q", a.StorageKey, got.StorageKey)
	}
	// Local-only: no collaborator round trip.
	if len(env.Blob.calls) != callsBefore {
		t.Fatalf("rename touched the blob store: %v", env.Blob.calls)
	}
	_, err = env.Coord.Rename(env.Ctx, a.ID, "  ")
	var ve store.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for blank name, got %v", err)
	}
}

func TestDownload(t *testing.T) {
	env := newTestEnv(t)
	p := env.mustProject(t, "Trailer")
	a := env.mustUpload(t, p.ID, "a.mp4", 16)

	rc, meta, err := env.Coord.Download(env.Ctx, a.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if len(data) != 16 || meta.ID != a.ID {
		t.Fatalf("download wrong: %d bytes, meta %+v", len(data), meta)
	}

	env.Blob.fail("download")
	_, _, err = env.Coord.Download(env.Ctx, a.ID)
	var te files.TransportError
	if !errors.As(err, &te) || te.Op != "download" {
		t.Fatalf("expected download TransportError, got %v", err)
	}
	if n := lastNotification(t, env); n.Title != "Download Failed" {
		t.Fatalf("expected failure notification, got %+v", n)
	}
}

func TestIndexRehydratesFromKV(t *testing.T) {
	env := newTestEnv(t)
	p := env.mustProject(t, "Trailer")
	a := env.mustUpload(t, p.ID, "a.mp4", 100)

	reopened := files.NewCoordinator(env.Ctx, env.Blob, env.Projects, env.Events,
		session.Static{Identity: session.Identity{ActorID: "tester"}}, env.Cfg, env.KV)
	got := reopened.Files(env.Ctx, p.ID)
	if len(got) != 1 || got[0].ID != a.ID {
		t.Fatalf("index not rehydrated: %+v", got)
	}
	if reopened.GlobalUsage(env.Ctx) != 100 {
		t.Fatalf("usage not recomputed from rehydrated index")
	}
}
