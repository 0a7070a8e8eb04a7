package screenstate

import (
	"context"
	"testing"

	"github.com/shellbench/shellbench/internal/types"
)

func TestSetIndicatorIsMonotonicWithinACommand(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	screenId := types.ScreenId("screen1")

	if _, err := s.SetIndicator(ctx, screenId, types.IndicatorOutput); err != nil {
		t.Fatalf("SetIndicator output: %v", err)
	}
	if _, err := s.SetIndicator(ctx, screenId, types.IndicatorSuccess); err != nil {
		t.Fatalf("SetIndicator success: %v", err)
	}
	// Output arriving after success must not downgrade the indicator.
	level, err := s.SetIndicator(ctx, screenId, types.IndicatorOutput)
	if err != nil {
		t.Fatalf("SetIndicator output again: %v", err)
	}
	if level != types.IndicatorSuccess {
		t.Fatalf("level = %v, want success (monotonic)", level)
	}

	if err := s.ResetIndicator(ctx, screenId); err != nil {
		t.Fatalf("ResetIndicator: %v", err)
	}
	flags, err := s.Get(ctx, screenId)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if flags.Indicator != types.IndicatorNone {
		t.Fatalf("Indicator after reset = %v, want none", flags.Indicator)
	}
}

func TestIncrRunningFloorsAtZero(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	screenId := types.ScreenId("screen1")

	if n, err := s.IncrRunning(ctx, screenId, 1); err != nil || n != 1 {
		t.Fatalf("IncrRunning(+1) = %d, %v", n, err)
	}
	if n, err := s.IncrRunning(ctx, screenId, -5); err != nil || n != 0 {
		t.Fatalf("IncrRunning(-5) = %d, %v, want 0", n, err)
	}
}

func TestAppendOpenAIMessageAccumulates(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	screenId := types.ScreenId("screen1")

	if _, err := s.AppendOpenAIMessage(ctx, screenId, types.OpenAIMessage{Role: "user", Content: "hi"}); err != nil {
		t.Fatalf("AppendOpenAIMessage: %v", err)
	}
	msgs, err := s.AppendOpenAIMessage(ctx, screenId, types.OpenAIMessage{Role: "assistant", Content: "hello"})
	if err != nil {
		t.Fatalf("AppendOpenAIMessage 2: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}

	if err := s.ClearOpenAIChat(ctx, screenId); err != nil {
		t.Fatalf("ClearOpenAIChat: %v", err)
	}
	flags, err := s.Get(ctx, screenId)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(flags.OpenAIChat) != 0 {
		t.Fatalf("OpenAIChat after clear = %v, want empty", flags.OpenAIChat)
	}
}

func TestRemoveDropsScreenFlags(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	screenId := types.ScreenId("screen1")

	if _, err := s.IncrRunning(ctx, screenId, 2); err != nil {
		t.Fatalf("IncrRunning: %v", err)
	}
	s.Remove(ctx, screenId)

	flags, err := s.Get(ctx, screenId)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if flags.NumRunning != 0 {
		t.Fatalf("NumRunning after Remove = %d, want 0", flags.NumRunning)
	}
}
