package ptyfile

import (
	"bytes"
	"context"
	"testing"

	"github.com/shellbench/shellbench/internal/types"
)

func TestAppendAndReadFullRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()
	screenId, lineId := types.ScreenId("scr1"), types.LineId("line1")

	if err := s.CreateCmdPtyFile(ctx, screenId, lineId, 1024); err != nil {
		t.Fatalf("CreateCmdPtyFile: %v", err)
	}

	if _, err := s.AppendToCmdPtyBlob(ctx, screenId, lineId, []byte("hello "), 0); err != nil {
		t.Fatalf("AppendToCmdPtyBlob 1: %v", err)
	}
	if _, err := s.AppendToCmdPtyBlob(ctx, screenId, lineId, []byte("world"), 6); err != nil {
		t.Fatalf("AppendToCmdPtyBlob 2: %v", err)
	}

	realOff, data, err := s.ReadFullPtyOutFile(ctx, screenId, lineId)
	if err != nil {
		t.Fatalf("ReadFullPtyOutFile: %v", err)
	}
	if realOff != 0 {
		t.Fatalf("realOff = %d, want 0", realOff)
	}
	if !bytes.Equal(data, []byte("hello world")) {
		t.Fatalf("data = %q, want %q", data, "hello world")
	}
}

func TestAppendRejectsStalePos(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()
	screenId, lineId := types.ScreenId("scr1"), types.LineId("line1")

	if err := s.CreateCmdPtyFile(ctx, screenId, lineId, 1024); err != nil {
		t.Fatalf("CreateCmdPtyFile: %v", err)
	}
	if _, err := s.AppendToCmdPtyBlob(ctx, screenId, lineId, []byte("abc"), 0); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if _, err := s.AppendToCmdPtyBlob(ctx, screenId, lineId, []byte("def"), 0); err == nil {
		t.Fatalf("expected error appending at stale pos")
	}
}

func TestCircularWrapKeepsOnlyRecentBytes(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()
	screenId, lineId := types.ScreenId("scr1"), types.LineId("line1")

	if err := s.CreateCmdPtyFile(ctx, screenId, lineId, 8); err != nil {
		t.Fatalf("CreateCmdPtyFile: %v", err)
	}

	pos := int64(0)
	for _, chunk := range []string{"1234", "5678", "90AB"} {
		n, err := s.AppendToCmdPtyBlob(ctx, screenId, lineId, []byte(chunk), pos)
		if err != nil {
			t.Fatalf("append %q: %v", chunk, err)
		}
		if n != pos {
			t.Fatalf("real offset = %d, want %d", n, pos)
		}
		pos += int64(len(chunk))
	}

	realOff, data, err := s.ReadFullPtyOutFile(ctx, screenId, lineId)
	if err != nil {
		t.Fatalf("ReadFullPtyOutFile: %v", err)
	}
	if !bytes.Equal(data, []byte("5678" + "90AB")) {
		t.Fatalf("data = %q, want %q", data, "567890AB")
	}
	if realOff != 4 {
		t.Fatalf("realOff = %d, want 4", realOff)
	}

	stat, err := s.StatCmdPtyFile(ctx, screenId, lineId)
	if err != nil {
		t.Fatalf("StatCmdPtyFile: %v", err)
	}
	if stat.Total != 12 {
		t.Fatalf("Total = %d, want 12", stat.Total)
	}
	if stat.Filled != 8 {
		t.Fatalf("Filled = %d, want 8", stat.Filled)
	}
}

func TestClearCmdPtyFilePreservesMaxSize(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()
	screenId, lineId := types.ScreenId("scr1"), types.LineId("line1")

	if err := s.CreateCmdPtyFile(ctx, screenId, lineId, 16); err != nil {
		t.Fatalf("CreateCmdPtyFile: %v", err)
	}
	if _, err := s.AppendToCmdPtyBlob(ctx, screenId, lineId, []byte("abcdef"), 0); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := s.ClearCmdPtyFile(ctx, screenId, lineId); err != nil {
		t.Fatalf("ClearCmdPtyFile: %v", err)
	}

	stat, err := s.StatCmdPtyFile(ctx, screenId, lineId)
	if err != nil {
		t.Fatalf("StatCmdPtyFile after clear: %v", err)
	}
	if stat.Total != 0 || stat.Filled != 0 {
		t.Fatalf("expected empty ring after clear, got %+v", stat)
	}
	if stat.MaxSize != 16 {
		t.Fatalf("MaxSize = %d, want 16 (preserved)", stat.MaxSize)
	}
}

func TestRemoveCmdPtyFileDeletesAndToleratesMissing(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()
	screenId, lineId := types.ScreenId("scr1"), types.LineId("line1")

	if err := s.CreateCmdPtyFile(ctx, screenId, lineId, 1024); err != nil {
		t.Fatalf("CreateCmdPtyFile: %v", err)
	}
	if err := s.RemoveCmdPtyFile(ctx, screenId, lineId); err != nil {
		t.Fatalf("RemoveCmdPtyFile: %v", err)
	}
	if _, _, err := s.ReadFullPtyOutFile(ctx, screenId, lineId); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound after removal", err)
	}

	// Removing an already-absent file is not an error.
	if err := s.RemoveCmdPtyFile(ctx, screenId, lineId); err != nil {
		t.Fatalf("RemoveCmdPtyFile (already gone): %v", err)
	}
}

func TestRemoveScreenDirDeletesEveryLineAndForgetsMemoisedPath(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()
	screenId := types.ScreenId("scr1")

	if err := s.CreateCmdPtyFile(ctx, screenId, "line1", 1024); err != nil {
		t.Fatalf("CreateCmdPtyFile line1: %v", err)
	}
	if err := s.CreateCmdPtyFile(ctx, screenId, "line2", 1024); err != nil {
		t.Fatalf("CreateCmdPtyFile line2: %v", err)
	}

	if err := s.RemoveScreenDir(screenId); err != nil {
		t.Fatalf("RemoveScreenDir: %v", err)
	}

	if _, _, err := s.ReadFullPtyOutFile(ctx, screenId, "line1"); err != ErrNotFound {
		t.Fatalf("line1 err = %v, want ErrNotFound", err)
	}

	// The directory comes back clean on next use; no stale memoised path.
	if err := s.CreateCmdPtyFile(ctx, screenId, "line1", 1024); err != nil {
		t.Fatalf("CreateCmdPtyFile after RemoveScreenDir: %v", err)
	}
}

func TestOnAppendFiresOnlyForWebSharedScreens(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()
	webShared, private := types.ScreenId("web"), types.ScreenId("priv")

	var notified []types.ScreenId
	s.IsWebShared = func(screenId types.ScreenId) bool { return screenId == webShared }
	s.OnAppend = func(screenId types.ScreenId, lineId types.LineId, realOffset int64, data []byte) {
		notified = append(notified, screenId)
	}

	for _, screenId := range []types.ScreenId{webShared, private} {
		if err := s.CreateCmdPtyFile(ctx, screenId, "line1", 1024); err != nil {
			t.Fatalf("CreateCmdPtyFile %s: %v", screenId, err)
		}
		if _, err := s.AppendToCmdPtyBlob(ctx, screenId, "line1", []byte("hi"), 0); err != nil {
			t.Fatalf("AppendToCmdPtyBlob %s: %v", screenId, err)
		}
	}

	if len(notified) != 1 || notified[0] != webShared {
		t.Fatalf("notified = %v, want exactly one notification for %q", notified, webShared)
	}
}
