// Package files mediates between project records and the external blob
// storage collaborator. The coordinator is authoritative for the local file
// index only; the blobs themselves belong to the collaborator. Counters and
// usage totals are always recomputed from the index, never delta-patched,
// so partial failures cannot leave them drifting.
package files

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"studiohub/internal/config"
	"studiohub/internal/domain"
	"studiohub/internal/kv"
	"studiohub/internal/notify"
	"studiohub/internal/session"
	"studiohub/internal/store"
)

const indexKey = "studiohub/files/v1"

// Coordinator tracks per-project attachments against plan quotas.
type Coordinator struct {
	mu       sync.Mutex
	index    map[string][]domain.UploadedFile
	blob     BlobStore
	projects *store.Store
	Events   *notify.Dispatcher
	Sessions session.Provider
	cfg      *config.Config
	kv       *kv.Store
	Now      func() time.Time
}

// NewCoordinator builds a coordinator, rehydrating the persisted file index.
// Corrupt or missing index data falls back to empty, silently.
func NewCoordinator(ctx context.Context, blob BlobStore, projects *store.Store, events *notify.Dispatcher, sessions session.Provider, cfg *config.Config, kvStore *kv.Store) *Coordinator {
	c := &Coordinator{
		index:    map[string][]domain.UploadedFile{},
		blob:     blob,
		projects: projects,
		Events:   events,
		Sessions: sessions,
		cfg:      cfg,
		kv:       kvStore,
		Now:      time.Now,
	}
	if kvStore == nil {
		return c
	}
	data, err := kvStore.Get(ctx, indexKey)
	if err != nil {
		return c
	}
	var idx map[string][]domain.UploadedFile
	if err := json.Unmarshal(data, &idx); err != nil {
		return c
	}
	c.index = idx
	return c
}

func (c *Coordinator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Coordinator) persistLocked(ctx context.Context) {
	if c.kv == nil {
		return
	}
	data, err := json.Marshal(c.index)
	if err != nil {
		return
	}
	_ = c.kv.Put(ctx, indexKey, data)
}

// usageLocked recomputes byte totals from the index. scope == "" sums
// across all projects.
func (c *Coordinator) usageLocked(scope string) int64 {
	var total int64
	for projectID, list := range c.index {
		if scope != "" && projectID != scope {
			continue
		}
		for _, f := range list {
			total += f.Size
		}
	}
	return total
}

// Usage returns the byte total attributed to one project.
func (c *Coordinator) Usage(_ context.Context, projectID string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usageLocked(projectID)
}

// GlobalUsage returns the byte total across all projects.
func (c *Coordinator) GlobalUsage(_ context.Context) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usageLocked("")
}

// Files returns the index entries for a project, newest first.
func (c *Coordinator) Files(_ context.Context, projectID string) []domain.UploadedFile {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.UploadedFile, len(c.index[projectID]))
	copy(out, c.index[projectID])
	return out
}

func (c *Coordinator) findLocked(fileID string) (string, int, bool) {
	for projectID, list := range c.index {
		for i, f := range list {
			if f.ID == fileID {
				return projectID, i, true
			}
		}
	}
	return "", 0, false
}

// Get returns one index entry by file id.
func (c *Coordinator) Get(_ context.Context, fileID string) (domain.UploadedFile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	projectID, i, ok := c.findLocked(fileID)
	if !ok {
		return domain.UploadedFile{}, ErrFileNotFound
	}
	return c.index[projectID][i], nil
}

// Upload transfers the bytes to the blob collaborator and records the file
// locally. The quota check happens before any transfer; an unauthenticated
// call fails fast without touching the network. Nothing local changes unless
// the transfer succeeds.
func (c *Coordinator) Upload(ctx context.Context, projectID, name, contentType string, r io.Reader, size int64) (domain.UploadedFile, error) {
	identity, err := c.Sessions.Current(ctx)
	if err != nil {
		return domain.UploadedFile{}, err
	}
	if strings.TrimSpace(name) == "" {
		return domain.UploadedFile{}, store.ValidationError{Field: "name", Reason: "required"}
	}
	if size < 0 {
		return domain.UploadedFile{}, store.ValidationError{Field: "size", Reason: "must be nonnegative"}
	}
	project, err := c.projects.Get(ctx, projectID)
	if err != nil {
		return domain.UploadedFile{}, err
	}

	limit := c.cfg.Quota(identity.Plan)
	c.mu.Lock()
	used := c.usageLocked("")
	c.mu.Unlock()
	if used+size > limit {
		qErr := QuotaExceededError{Size: size, Used: used, Limit: limit}
		if c.Events != nil {
			c.Events.QuotaExceeded(ctx, name, size, used, limit)
		}
		return domain.UploadedFile{}, qErr
	}

	storageKey := uuid.New().String() + filepath.Ext(name)
	ref, err := c.blob.Upload(ctx, projectID, storageKey, r, size, contentType)
	if err != nil {
		tErr := TransportError{Op: "upload", Err: err}
		if c.Events != nil {
			c.Events.UploadFailed(ctx, name, err)
		}
		return domain.UploadedFile{}, tErr
	}

	f := domain.UploadedFile{
		ID:         uuid.New().String(),
		Name:       name,
		StorageKey: ref.Key,
		Size:       ref.Size,
		Type:       contentType,
		ProjectID:  projectID,
		URL:        ref.URL,
		UploadedAt: c.now().UTC(),
	}
	c.mu.Lock()
	c.index[projectID] = append([]domain.UploadedFile{f}, c.index[projectID]...)
	count := len(c.index[projectID])
	c.persistLocked(ctx)
	c.mu.Unlock()

	if _, err := c.projects.SetAttachments(ctx, projectID, count); err != nil {
		return f, err
	}
	if c.Events != nil {
		c.Events.FilesUploaded(ctx, 1, project.Title)
	}
	return f, nil
}

// Delete removes the blob via the collaborator, then drops the index entry
// and recounts from the index. On transport failure the index is untouched,
// so counters stay backed by what the collaborator actually holds.
func (c *Coordinator) Delete(ctx context.Context, fileID string) error {
	if _, err := c.Sessions.Current(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	projectID, i, ok := c.findLocked(fileID)
	if !ok {
		c.mu.Unlock()
		return ErrFileNotFound
	}
	f := c.index[projectID][i]
	c.mu.Unlock()

	if err := c.blob.Delete(ctx, projectID, f.StorageKey); err != nil {
		return TransportError{Op: "delete", Err: err}
	}

	c.mu.Lock()
	// Re-find: the index may have moved under us while the network call ran.
	projectID, i, ok = c.findLocked(fileID)
	if ok {
		c.index[projectID] = append(c.index[projectID][:i], c.index[projectID][i+1:]...)
	}
	count := len(c.index[projectID])
	c.persistLocked(ctx)
	c.mu.Unlock()

	if _, err := c.projects.SetAttachments(ctx, projectID, count); err != nil {
		return err
	}
	if c.Events != nil {
		c.Events.FileDeleted(ctx, f.Name)
	}
	return nil
}

// Rename changes the display name only. The blob keeps its storage name —
// a deliberate product compromise, surfaced by keeping Name and StorageKey
// as distinct fields rather than papering over the divergence.
func (c *Coordinator) Rename(ctx context.Context, fileID, newName string) (domain.UploadedFile, error) {
	if strings.TrimSpace(newName) == "" {
		return domain.UploadedFile{}, store.ValidationError{Field: "name", Reason: "required"}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	projectID, i, ok := c.findLocked(fileID)
	if !ok {
		return domain.UploadedFile{}, ErrFileNotFound
	}
	c.index[projectID][i].Name = strings.TrimSpace(newName)
	f := c.index[projectID][i]
	c.persistLocked(ctx)
	return f, nil
}

// Download streams the blob from the collaborator.
func (c *Coordinator) Download(ctx context.Context, fileID string) (io.ReadCloser, domain.UploadedFile, error) {
	if _, err := c.Sessions.Current(ctx); err != nil {
		return nil, domain.UploadedFile{}, err
	}
	f, err := c.Get(ctx, fileID)
	if err != nil {
		return nil, domain.UploadedFile{}, err
	}
	rc, err := c.blob.Download(ctx, f.ProjectID, f.StorageKey)
	if err != nil {
		if c.Events != nil {
			c.Events.DownloadFailed(ctx, f.Name, err)
		}
		return nil, domain.UploadedFile{}, TransportError{Op: "download", Err: err}
	}
	return rc, f, nil
}
