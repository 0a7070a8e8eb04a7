package shellstate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shellbench/shellbench/internal/store"
	"github.com/shellbench/shellbench/internal/types"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.New(context.Background(), store.Config{DBPath: dbPath})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return New(s)
}

func baseState() types.ShellState {
	return types.ShellState{
		Version:   types.ShellStateVersion,
		Cwd:       "/home/user",
		ShellType: types.ShellBash,
		Env:       map[string]string{"PATH": "/usr/bin", "HOME": "/home/user"},
	}
}

func TestStoreStateBaseIsIdempotent(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	h1, err := r.StoreStateBase(ctx, baseState())
	if err != nil {
		t.Fatalf("StoreStateBase: %v", err)
	}
	h2, err := r.StoreStateBase(ctx, baseState())
	if err != nil {
		t.Fatalf("StoreStateBase (second): %v", err)
	}
	if h1 != h2 {
		t.Fatalf("hashes differ for identical state: %s vs %s", h1, h2)
	}
}

func TestGetFullStateAppliesDiffChain(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	baseHash, err := r.StoreStateBase(ctx, baseState())
	if err != nil {
		t.Fatalf("StoreStateBase: %v", err)
	}

	newCwd := "/tmp"
	diff1, err := r.StoreStateDiff(ctx, baseHash, nil, Payload{
		Cwd:    &newCwd,
		EnvSet: map[string]string{"FOO": "bar"},
	})
	if err != nil {
		t.Fatalf("StoreStateDiff 1: %v", err)
	}

	diff2, err := r.StoreStateDiff(ctx, baseHash, []types.DiffHash{diff1}, Payload{
		EnvUnset: []string{"HOME"},
	})
	if err != nil {
		t.Fatalf("StoreStateDiff 2: %v", err)
	}

	ptr := types.StatePtr{BaseHash: baseHash, DiffHashArr: []types.DiffHash{diff1, diff2}}
	state, err := r.GetFullState(ctx, ptr)
	if err != nil {
		t.Fatalf("GetFullState: %v", err)
	}

	if state.Cwd != newCwd {
		t.Fatalf("Cwd = %q, want %q", state.Cwd, newCwd)
	}
	if state.Env["FOO"] != "bar" {
		t.Fatalf("Env[FOO] = %q, want bar", state.Env["FOO"])
	}
	if _, ok := state.Env["HOME"]; ok {
		t.Fatalf("Env[HOME] should have been unset")
	}
	if state.Env["PATH"] != "/usr/bin" {
		t.Fatalf("Env[PATH] lost across diff chain")
	}
}

func TestStoreStateDiffRejectsMissingBase(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	_, err := r.StoreStateDiff(ctx, "nonexistent", nil, Payload{})
	if err != ErrBaseNotFound {
		t.Fatalf("err = %v, want ErrBaseNotFound", err)
	}
}

func TestGetCurStateDiffFromPtrEmptyChain(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	baseHash, err := r.StoreStateBase(ctx, baseState())
	if err != nil {
		t.Fatalf("StoreStateBase: %v", err)
	}

	diff, err := r.GetCurStateDiffFromPtr(ctx, types.StatePtr{BaseHash: baseHash})
	if err != nil {
		t.Fatalf("GetCurStateDiffFromPtr: %v", err)
	}
	if !diff.IsEmpty() {
		t.Fatalf("expected empty diff for empty chain, got %+v", diff)
	}
	if diff.BaseHash != baseHash {
		t.Fatalf("BaseHash = %q, want %q", diff.BaseHash, baseHash)
	}
}
