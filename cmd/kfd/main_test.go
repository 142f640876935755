package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/chazu/hearth/manifest"
	"github.com/chazu/hearth/snapstore"
)

func TestStartResumesFromCheckpoint(t *testing.T) {
	ctx := context.Background()
	m := manifest.Default(t.TempDir())
	store, err := snapstore.Open(filepath.Join(m.Dir, "kfun.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	first, err := start(ctx, m, store)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := store.Save(ctx, m.Driver.Version, first); err != nil {
		t.Fatal(err)
	}

	second, err := start(ctx, m, store)
	if err != nil {
		t.Fatalf("start from checkpoint failed: %v", err)
	}
	for _, b := range first.Bindings() {
		d, ok := second.Resolve(b.Index)
		if !ok || d.Marker() != b.Descriptor.Marker() {
			t.Errorf("index %d: resumed %v, want %s", b.Index, d, b.Descriptor.Marker())
		}
	}
}

func TestBuildTable(t *testing.T) {
	tab, err := buildTable(manifest.Default(t.TempDir()))
	if err != nil {
		t.Fatalf("buildTable failed: %v", err)
	}
	if tab.Builtins() != 6 {
		t.Errorf("Builtins() = %d, want 6", tab.Builtins())
	}
	if tab.Retired() != 1 {
		t.Errorf("Retired() = %d, want 1", tab.Retired())
	}
}

func TestCheckpointKeepZero(t *testing.T) {
	ctx := context.Background()
	m := manifest.Default(t.TempDir())
	keep := 0
	m.Snapshot.Keep = &keep
	store, err := snapstore.Open(filepath.Join(m.Dir, "kfun.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	reg, err := start(ctx, m, store)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	checkpoint(ctx, m, store, reg)

	cps, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cps) != 0 {
		t.Errorf("List() returned %d checkpoints with keep = 0, want 0", len(cps))
	}
}
