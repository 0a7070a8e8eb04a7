// Package screenstate tracks per-screen flags that do not survive a daemon
// restart: the tab status indicator, the running-command counter, and the
// OpenAI command-info chat scratch. It never touches the relational store.
package screenstate

import (
	"context"

	"github.com/shellbench/shellbench/internal/types"
)

// ScreenFlags is one screen's transient state.
type ScreenFlags struct {
	Indicator  types.IndicatorLevel
	NumRunning int
	OpenAIChat []types.OpenAIMessage
}

// Store is an in-memory (or Redis-backed) holder of ScreenFlags, keyed by
// screen id. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns a screen's current flags, or the zero value if unset.
	Get(ctx context.Context, screenId types.ScreenId) (ScreenFlags, error)

	// SetIndicator sets a screen's status indicator, applying the monotonic
	// rule: within a single running command, output never downgrades
	// success/error back to output. Returns the resulting level.
	SetIndicator(ctx context.Context, screenId types.ScreenId, level types.IndicatorLevel) (types.IndicatorLevel, error)

	// ResetIndicator clears a screen's indicator to none, for when the user
	// scrolls past the line that set it.
	ResetIndicator(ctx context.Context, screenId types.ScreenId) error

	// IncrRunning adjusts a screen's running-command counter by delta
	// (positive on start, negative on done/error/hangup) and returns the new
	// value, floored at 0.
	IncrRunning(ctx context.Context, screenId types.ScreenId, delta int) (int, error)

	// AppendOpenAIMessage appends one message to a screen's AI chat scratch.
	AppendOpenAIMessage(ctx context.Context, screenId types.ScreenId, msg types.OpenAIMessage) ([]types.OpenAIMessage, error)

	// ClearOpenAIChat empties a screen's AI chat scratch.
	ClearOpenAIChat(ctx context.Context, screenId types.ScreenId) error

	// Remove drops all flags for a screen (on screen deletion).
	Remove(ctx context.Context, screenId types.ScreenId)

	// Close releases any resources held by the store.
	Close() error
}

// indicatorRank orders levels for the monotonic SetIndicator rule: a lower
// rank is never allowed to overwrite a higher one within the same command.
var indicatorRank = map[types.IndicatorLevel]int{
	types.IndicatorNone:    0,
	types.IndicatorOutput:  1,
	types.IndicatorSuccess: 2,
	types.IndicatorError:   2,
}

// nextIndicator applies the monotonic rule given the current and requested
// levels.
func nextIndicator(cur, requested types.IndicatorLevel) types.IndicatorLevel {
	if requested == types.IndicatorNone {
		return types.IndicatorNone
	}
	if indicatorRank[requested] < indicatorRank[cur] {
		return cur
	}
	return requested
}
