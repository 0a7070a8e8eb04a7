package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shellbench/shellbench/internal/blockstore"
	"github.com/shellbench/shellbench/internal/store"
	"github.com/shellbench/shellbench/internal/types"
)

func TestCollapseIJsonFilesOnlyTouchesIJsonFiles(t *testing.T) {
	ctx := context.Background()
	s, err := store.New(ctx, store.Config{DBPath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer s.Close()

	bs := blockstore.New(s)
	if err := bs.MakeFile(ctx, "blk1", "events.ijson", types.FileMeta{}, types.FileOpts{IJson: true}); err != nil {
		t.Fatalf("MakeFile events.ijson: %v", err)
	}
	if _, err := bs.AppendData(ctx, "blk1", "events.ijson", []byte(`{"a":1}{"a":2}`)); err != nil {
		t.Fatalf("AppendData events.ijson: %v", err)
	}
	if err := bs.MakeFile(ctx, "blk1", "out.log", types.FileMeta{}, types.FileOpts{}); err != nil {
		t.Fatalf("MakeFile out.log: %v", err)
	}
	if _, err := bs.AppendData(ctx, "blk1", "out.log", []byte("plain output\n")); err != nil {
		t.Fatalf("AppendData out.log: %v", err)
	}

	collapsed, err := collapseIJsonFiles(ctx, bs)
	if err != nil {
		t.Fatalf("collapseIJsonFiles: %v", err)
	}
	if collapsed != 1 {
		t.Fatalf("collapsed = %d, want 1", collapsed)
	}

	// A second pass still succeeds and counts the file again: its IJson
	// option stays set, so it is collapsed once more (the single array
	// value left by the first pass becomes a one-element array).
	collapsed, err = collapseIJsonFiles(ctx, bs)
	if err != nil {
		t.Fatalf("collapseIJsonFiles (second pass): %v", err)
	}
	if collapsed != 1 {
		t.Fatalf("second pass collapsed = %d, want 1 (the IJson file is collapsed again)", collapsed)
	}
}
