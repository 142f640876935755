package snapstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-version"

	"github.com/chazu/hearth/kfun"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "snapshots.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func echo(f *kfun.Frame, nargs int) (kfun.Value, error) { return kfun.Nil, nil }

func registry(t *testing.T, names ...string) *kfun.Registry {
	t.Helper()
	b := kfun.NewBuilder(kfun.DefaultLayout(), kfun.StandardBuiltins()...)
	for _, n := range names {
		if err := b.RegisterFunctions([]kfun.ExtFunction{{Name: n, Prototype: "v", Func: echo}}); err != nil {
			t.Fatal(err)
		}
	}
	tab, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	return kfun.NewRegistry(tab)
}

func TestSaveAndLatest(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	first, err := s.Save(ctx, "1.0.0", registry(t, "f"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	second, err := s.Save(ctx, "1.2.0", registry(t, "f", "g"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if first.ID == second.ID {
		t.Error("checkpoint ids should be unique")
	}
	if second.Extensions != 2 {
		t.Errorf("Extensions = %d, want 2", second.Extensions)
	}

	cp, err := s.Latest(ctx, "1.3.0")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if cp.ID != second.ID {
		t.Errorf("Latest() = %s, want %s", cp.ID, second.ID)
	}
	if cp.DriverVersion != "1.2.0" {
		t.Errorf("DriverVersion = %q, want 1.2.0", cp.DriverVersion)
	}
}

func TestLatestSkipsIncompatible(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	old, err := s.Save(ctx, "1.9.0", registry(t, "f"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(ctx, "2.0.0", registry(t, "f")); err != nil {
		t.Fatal(err)
	}

	cp, err := s.Latest(ctx, "1.0.0")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if cp.ID != old.ID {
		t.Errorf("Latest(1.0.0) = %s (driver %s), want %s", cp.ID, cp.DriverVersion, old.ID)
	}

	if _, err := s.Latest(ctx, "3.0.0"); !errors.Is(err, ErrNoCheckpoint) {
		t.Errorf("Latest(3.0.0) error = %v, want ErrNoCheckpoint", err)
	}
	if _, err := s.Latest(ctx, "bogus"); err == nil {
		t.Error("Latest with an invalid version should fail")
	}
}

func TestRestoreFromCheckpoint(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	saved := registry(t, "zeta", "alpha")
	if _, err := s.Save(ctx, "1.0.0", saved); err != nil {
		t.Fatal(err)
	}

	r := registry(t, "alpha", "beta", "zeta")
	if _, err := s.Restore(ctx, "1.0.1", r); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	for _, name := range []string{"zeta", "alpha"} {
		got, _ := r.IndexOf(name)
		want, _ := saved.IndexOf(name)
		if got != want {
			t.Errorf("IndexOf(%s) = %d, want %d", name, got, want)
		}
	}
	if got, _ := r.IndexOf("beta"); got != 130 {
		t.Errorf("IndexOf(beta) = %d, want 130", got)
	}

	unknown := registry(t, "alpha")
	if _, err := s.Restore(ctx, "1.0.1", unknown); !errors.Is(err, kfun.ErrUnknownFunction) {
		t.Errorf("Restore without zeta error = %v, want ErrUnknownFunction", err)
	}
}

func TestListAndPrune(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	r := registry(t, "f")
	var ids []string
	for i := 0; i < 4; i++ {
		cp, err := s.Save(ctx, "1.0.0", r)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, cp.ID)
	}

	cps, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(cps) != 4 || cps[0].ID != ids[3] {
		t.Fatalf("List() returned %d checkpoints, newest %v", len(cps), cps)
	}

	n, err := s.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Prune(2) = %d, want 2", n)
	}
	cps, err = s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cps) != 2 || cps[0].ID != ids[3] || cps[1].ID != ids[2] {
		t.Errorf("after Prune: %d checkpoints", len(cps))
	}

	if _, err := s.Prune(ctx, -1); err == nil {
		t.Error("Prune(-1) should fail")
	}
}

func TestSaveInvalidVersion(t *testing.T) {
	s := openStore(t)
	if _, err := s.Save(context.Background(), "not-a-version", registry(t)); err == nil {
		t.Error("Save with an invalid version should fail")
	}
}

func TestCompatible(t *testing.T) {
	v := version.Must(version.NewVersion("2.3.1"))
	tests := []struct {
		other string
		want  bool
	}{
		{"2.0.0", true},
		{"2.9.9-beta", true},
		{"1.9.0", false},
		{"3.0.0", false},
		{"garbage", false},
	}
	for _, tt := range tests {
		if got := Compatible(v, tt.other); got != tt.want {
			t.Errorf("Compatible(2.3.1, %s) = %v, want %v", tt.other, got, tt.want)
		}
	}
}
