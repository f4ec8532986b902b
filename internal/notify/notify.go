// Package notify emits user-facing notifications as a side effect of engine
// state transitions. The dispatcher owns the Notification records outright;
// it is invoked by the store and the attachment coordinator and never reads
// from either, keeping the dependency one-way.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"studiohub/internal/domain"
	"studiohub/internal/kv"
)

// Event identifies a state transition worth telling the user about.
type Event string

const (
	EventProjectCreated  Event = "project.created"
	EventProjectUpdated  Event = "project.updated"
	EventProjectArchived Event = "project.archived"
	EventFilesUploaded   Event = "files.uploaded"
	EventFileDeleted     Event = "file.deleted"
	EventUploadFailed    Event = "upload.failed"
	EventDownloadFailed  Event = "download.failed"
)

const notificationsKey = "studiohub/notifications/v1"

var ErrNotFound = errors.New("notification not found")

// Dispatcher owns the notification list. Newest first, no cap — truncation
// for display is the presentation layer's concern.
type Dispatcher struct {
	mu    sync.Mutex
	items []domain.Notification
	kv    *kv.Store
	Now   func() time.Time
}

// New builds a dispatcher, rehydrating previously persisted notifications.
// Corrupt or missing persisted data yields an empty list, silently.
func New(ctx context.Context, store *kv.Store) *Dispatcher {
	d := &Dispatcher{kv: store, Now: time.Now}
	if store == nil {
		return d
	}
	data, err := store.Get(ctx, notificationsKey)
	if err != nil {
		return d
	}
	var items []domain.Notification
	if err := json.Unmarshal(data, &items); err != nil {
		return d
	}
	d.items = items
	return d
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Dispatcher) emit(ctx context.Context, category domain.NotificationCategory, title, message string) domain.Notification {
	n := domain.Notification{
		ID:        uuid.New().String(),
		Category:  category,
		Title:     title,
		Message:   message,
		Timestamp: d.now().UTC(),
	}
	d.mu.Lock()
	d.items = append([]domain.Notification{n}, d.items...)
	d.persistLocked(ctx)
	d.mu.Unlock()
	return n
}

// persistLocked mirrors the list to the kv layer. Notification loss on a
// failed write is tolerable; the engine state itself is persisted elsewhere.
func (d *Dispatcher) persistLocked(ctx context.Context) {
	if d.kv == nil {
		return
	}
	data, err := json.Marshal(d.items)
	if err != nil {
		return
	}
	_ = d.kv.Put(ctx, notificationsKey, data)
}

// ProjectCreated announces a newly created pipeline project.
func (d *Dispatcher) ProjectCreated(ctx context.Context, title string) domain.Notification {
	return d.emit(ctx, domain.CategorySuccess, "Project Created",
		fmt.Sprintf("%q has been added to your pipeline", title))
}

// ProjectUpdated announces a stage move or edit. Completion gets its own
// celebratory template.
func (d *Dispatcher) ProjectUpdated(ctx context.Context, title string, stage domain.Stage) domain.Notification {
	if stage == domain.StageCompleted {
		return d.emit(ctx, domain.CategorySuccess, "Project Completed",
			fmt.Sprintf("%q is done. Nice work!", title))
	}
	return d.emit(ctx, domain.CategoryInfo, "Project Updated",
		fmt.Sprintf("%q moved to %s", title, stage))
}

func (d *Dispatcher) ProjectArchived(ctx context.Context, title string) domain.Notification {
	return d.emit(ctx, domain.CategoryInfo, "Project Archived",
		fmt.Sprintf("%q has been archived", title))
}

func (d *Dispatcher) FilesUploaded(ctx context.Context, count int, projectTitle string) domain.Notification {
	noun := "files"
	if count == 1 {
		noun = "file"
	}
	return d.emit(ctx, domain.CategorySuccess, "Upload Complete",
		fmt.Sprintf("%d %s added to %q", count, noun, projectTitle))
}

func (d *Dispatcher) FileDeleted(ctx context.Context, name string) domain.Notification {
	return d.emit(ctx, domain.CategoryInfo, "File Deleted",
		fmt.Sprintf("%q has been removed", name))
}

func (d *Dispatcher) UploadFailed(ctx context.Context, name string, cause error) domain.Notification {
	return d.emit(ctx, domain.CategoryError, "Upload Failed",
		fmt.Sprintf("could not upload %q: %v", name, cause))
}

func (d *Dispatcher) DownloadFailed(ctx context.Context, name string, cause error) domain.Notification {
	return d.emit(ctx, domain.CategoryError, "Download Failed",
		fmt.Sprintf("could not download %q: %v", name, cause))
}

// QuotaExceeded is a warning variant of UploadFailed carrying the sizes.
func (d *Dispatcher) QuotaExceeded(ctx context.Context, name string, size, used, limit int64) domain.Notification {
	return d.emit(ctx, domain.CategoryWarning, "Storage Limit Reached",
		fmt.Sprintf("%q (%d bytes) does not fit: %d of %d bytes used", name, size, used, limit))
}

// List returns notifications newest-first, excluding archived ones.
func (d *Dispatcher) List(_ context.Context) []domain.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.Notification, 0, len(d.items))
	for _, n := range d.items {
		if !n.Archived {
			out = append(out, n)
		}
	}
	return out
}

// Unread counts unread, unarchived notifications.
func (d *Dispatcher) Unread(_ context.Context) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	count := 0
	for _, n := range d.items {
		if !n.Read && !n.Archived {
			count++
		}
	}
	return count
}

func (d *Dispatcher) mutate(ctx context.Context, id string, fn func(*domain.Notification)) (domain.Notification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.items {
		if d.items[i].ID == id {
			fn(&d.items[i])
			d.persistLocked(ctx)
			return d.items[i], nil
		}
	}
	return domain.Notification{}, ErrNotFound
}

func (d *Dispatcher) MarkRead(ctx context.Context, id string) (domain.Notification, error) {
	return d.mutate(ctx, id, func(n *domain.Notification) { n.Read = true })
}

func (d *Dispatcher) MarkAllRead(ctx context.Context) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	count := 0
	for i := range d.items {
		if !d.items[i].Read {
			d.items[i].Read = true
			count++
		}
	}
	d.persistLocked(ctx)
	return count
}

// TogglePin flips the pinned flag.
func (d *Dispatcher) TogglePin(ctx context.Context, id string) (domain.Notification, error) {
	return d.mutate(ctx, id, func(n *domain.Notification) { n.Pinned = !n.Pinned })
}

// ArchiveNotification hides a notification without destroying it.
func (d *Dispatcher) ArchiveNotification(ctx context.Context, id string) (domain.Notification, error) {
	return d.mutate(ctx, id, func(n *domain.Notification) { n.Archived = true })
}

// DeleteNotification removes a notification outright.
func (d *Dispatcher) DeleteNotification(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.items {
		if d.items[i].ID == id {
			d.items = append(d.items[:i], d.items[i+1:]...)
			d.persistLocked(ctx)
			return nil
		}
	}
	return ErrNotFound
}
