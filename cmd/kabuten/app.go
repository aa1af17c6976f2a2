package main

import (
	"context"
	"fmt"
	"path/filepath"

	"kabuten/internal/config"
	"kabuten/internal/logging"
	"kabuten/internal/orchestrator"
	"kabuten/internal/perception"
	"kabuten/internal/sector"
	"kabuten/internal/store"
	"kabuten/internal/usage"
)

// newReasoner builds the scheduled reasoning provider. Tests replace it.
var newReasoner = func(ctx context.Context, c *config.Config) (perception.Reasoner, func(), error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	s, err := perception.NewReasoner(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}

// app is the wired desk: roster, store, reasoner and orchestrator with
// persisted threads loaded.
type app struct {
	sectors []config.SectorDef
	store   *store.Store
	orch    *orchestrator.Orchestrator
	usage   *usage.Tracker

	closeReasoner func()
}

func openApp(ctx context.Context) (*app, error) {
	sectors, err := config.LoadSectors(cfg.SectorsFile)
	if err != nil {
		return nil, err
	}
	tracker, err := usage.NewTracker(usagePath())
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return nil, err
	}

	reasoner, closeReasoner, err := newReasoner(ctx, cfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create reasoner: %w", err)
	}

	orch, err := orchestrator.New(sectors, reasoner, sector.OptionsFromConfig(cfg))
	if err != nil {
		closeReasoner()
		st.Close()
		return nil, err
	}

	threads, err := st.LoadAllThreads()
	if err != nil {
		closeReasoner()
		st.Close()
		return nil, err
	}
	orch.LoadAllThreads(threads)

	logging.Boot("Desk ready: %d sectors, %d persisted threads", len(sectors), len(threads))
	return &app{sectors: sectors, store: st, orch: orch, usage: tracker, closeReasoner: closeReasoner}, nil
}

// context tags ctx with the desk's usage tracker.
func (a *app) context(ctx context.Context) context.Context {
	return usage.NewContext(ctx, a.usage)
}

func (a *app) Close() {
	if a.closeReasoner != nil {
		a.closeReasoner()
	}
	if err := a.usage.Save(); err != nil {
		logging.StoreError("Failed to save usage: %v", err)
	}
	if err := a.store.Close(); err != nil {
		logging.StoreError("Failed to close store: %v", err)
	}
}

// persist saves one sector's current thread.
func (a *app) persist(key string) error {
	return a.store.SaveThread(key, a.orch.ExportThread(key))
}

// usagePath keeps token usage next to the database.
func usagePath() string {
	if cfg.Store.DatabasePath == store.MemoryPath {
		return ""
	}
	return filepath.Join(filepath.Dir(cfg.Store.DatabasePath), "usage.json")
}

// openStoreAndRoster is for commands that never call the reasoner.
func openStoreAndRoster() ([]config.SectorDef, *store.Store, error) {
	sectors, err := config.LoadSectors(cfg.SectorsFile)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	return sectors, st, nil
}

func findSector(sectors []config.SectorDef, key string) (config.SectorDef, bool) {
	for _, s := range sectors {
		if s.Key == key {
			return s, true
		}
	}
	return config.SectorDef{}, false
}
