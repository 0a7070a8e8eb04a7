package blockstore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shellbench/shellbench/internal/types"
)

func TestCollapseIJsonFlattensFragmentsIntoAnArray(t *testing.T) {
	b := openTestBlockstore(t)
	ctx := context.Background()

	if err := b.MakeFile(ctx, "blk1", "events.ijson", types.FileMeta{}, types.FileOpts{IJson: true}); err != nil {
		t.Fatalf("MakeFile: %v", err)
	}

	frags := []byte(`{"n":1}{"n":2}{"n":3}`)
	if _, err := b.AppendData(ctx, "blk1", "events.ijson", frags); err != nil {
		t.Fatalf("AppendData: %v", err)
	}

	if err := b.CollapseIJson(ctx, "blk1", "events.ijson"); err != nil {
		t.Fatalf("CollapseIJson: %v", err)
	}

	info, err := b.Stat(ctx, "blk1", "events.ijson")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	got := make([]byte, info.Size)
	if _, err := b.ReadAt(ctx, "blk1", "events.ijson", got, 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}

	var values []json.RawMessage
	if err := json.Unmarshal(got, &values); err != nil {
		t.Fatalf("collapsed contents are not a JSON array: %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("len(values) = %d, want 3", len(values))
	}
}

func TestCollapseIJsonIsNoopForNonIJsonFiles(t *testing.T) {
	b := openTestBlockstore(t)
	ctx := context.Background()

	if err := b.MakeFile(ctx, "blk1", "out.log", types.FileMeta{}, types.FileOpts{}); err != nil {
		t.Fatalf("MakeFile: %v", err)
	}
	if _, err := b.AppendData(ctx, "blk1", "out.log", []byte("plain text, not json\n")); err != nil {
		t.Fatalf("AppendData: %v", err)
	}

	if err := b.CollapseIJson(ctx, "blk1", "out.log"); err != nil {
		t.Fatalf("CollapseIJson: %v", err)
	}

	info, err := b.Stat(ctx, "blk1", "out.log")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size != int64(len("plain text, not json\n")) {
		t.Fatalf("non-ijson file was modified: size = %d", info.Size)
	}
}
