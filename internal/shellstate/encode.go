// Package shellstate is the content-addressed repository for captured shell
// environments: immutable bases plus chains of diffs against them.
package shellstate

import (
	"encoding/json"

	"github.com/shellbench/shellbench/internal/contenthash"
	"github.com/shellbench/shellbench/internal/types"
)

// EncodeState returns the canonical byte encoding of a ShellState. encoding/json
// sorts map keys, so two states with identical field values always encode
// to identical bytes regardless of map iteration order.
func EncodeState(state types.ShellState) ([]byte, error) {
	return json.Marshal(state)
}

// DecodeState is the inverse of EncodeState.
func DecodeState(data []byte) (types.ShellState, error) {
	var s types.ShellState
	err := json.Unmarshal(data, &s)
	return s, err
}

// ComputeBaseHash returns the content hash for an encoded base. It is a thin
// wrapper so callers never import contenthash directly for this purpose.
func ComputeBaseHash(data []byte) types.BaseHash {
	return types.BaseHash(contenthash.Hash(data))
}

// ComputeDiffHash returns the content hash for an encoded diff. Diffs and
// bases share the same hash space and the same hash function, so identical
// bytes give identical hashes; the two are kept apart only because bases and
// diffs are stored in separate tables.
func ComputeDiffHash(data []byte) types.DiffHash {
	return types.DiffHash(contenthash.Hash(data))
}
