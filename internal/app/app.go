// Package app wires the engine together for the CLI and the HTTP server:
// config, the kv layer, the entity store, the notification dispatcher and
// the attachment coordinator, in dependency order.
package app

import (
	"context"
	"fmt"

	"studiohub/internal/config"
	"studiohub/internal/files"
	"studiohub/internal/kv"
	"studiohub/internal/notify"
	"studiohub/internal/session"
	"studiohub/internal/store"
)

type App struct {
	Config   *config.Config
	KV       *kv.Store
	Events   *notify.Dispatcher
	Projects *store.Store
	Files    *files.Coordinator
	Sessions session.Provider
}

// Options configure Open. Blob and Sessions default to sensible local
// stand-ins so the CLI works without a storage backend configured.
type Options struct {
	Workspace string
	Blob      files.BlobStore
	Sessions  session.Provider
}

// Open loads config, opens the kv layer and rehydrates engine state. The
// store is rehydrated before anything renders; a corrupt blob silently
// yields an empty store (expected on first run).
func Open(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.Load(opts.Workspace)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	kvStore, err := kv.Open(kv.Config{Workspace: opts.Workspace})
	if err != nil {
		return nil, fmt.Errorf("open workspace db: %w", err)
	}

	events := notify.New(ctx, kvStore)
	projects := store.New(ctx, kvStore, events)

	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.None{}
	}
	blob := opts.Blob
	if blob == nil && cfg.Storage.Endpoint != "" {
		m, err := files.NewMinioStore(ctx, cfg.Storage)
		if err != nil {
			kvStore.Close()
			return nil, fmt.Errorf("connect blob storage: %w", err)
		}
		blob = m
	}

	a := &App{
		Config:   cfg,
		KV:       kvStore,
		Events:   events,
		Projects: projects,
		Sessions: sessions,
	}
	if blob != nil {
		a.Files = files.NewCoordinator(ctx, blob, projects, events, sessions, cfg, kvStore)
	}
	return a, nil
}

func (a *App) Close() error {
	if a.KV != nil {
		return a.KV.Close()
	}
	return nil
}
