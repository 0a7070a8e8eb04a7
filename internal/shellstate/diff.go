package shellstate

import (
	"encoding/json"

	"github.com/shellbench/shellbench/internal/types"
)

// Payload is the canonical encoding of a StateDiff's Data: a sparse set of
// changes to apply on top of a base (or a prior diff's result) to produce
// the next ShellState in a chain.
type Payload struct {
	Cwd        *string          `json:"cwd,omitempty"`
	ShellType  *types.ShellPref `json:"shelltype,omitempty"`
	EnvSet     map[string]string `json:"envset,omitempty"`
	EnvUnset   []string          `json:"envunset,omitempty"`
	AliasSet   map[string]string `json:"aliasset,omitempty"`
	AliasUnset []string          `json:"aliasunset,omitempty"`
	Funcs      *string           `json:"funcs,omitempty"`
}

// EncodePayload returns the canonical bytes for a diff payload.
func EncodePayload(p Payload) ([]byte, error) {
	return json.Marshal(p)
}

// DecodePayload is the inverse of EncodePayload.
func DecodePayload(data []byte) (Payload, error) {
	var p Payload
	err := json.Unmarshal(data, &p)
	return p, err
}

// ApplyShellStateDiff folds one diff payload into state, returning the
// resulting state. state is not mutated in place; the caller's copy of its
// maps is left untouched.
func ApplyShellStateDiff(state types.ShellState, diffData []byte) (types.ShellState, error) {
	p, err := DecodePayload(diffData)
	if err != nil {
		return state, err
	}

	out := state
	out.Env = cloneMap(state.Env)
	out.Aliases = cloneMap(state.Aliases)

	if p.Cwd != nil {
		out.Cwd = *p.Cwd
	}
	if p.ShellType != nil {
		out.ShellType = *p.ShellType
	}
	if p.Funcs != nil {
		out.Funcs = *p.Funcs
	}
	for k, v := range p.EnvSet {
		out.Env[k] = v
	}
	for _, k := range p.EnvUnset {
		delete(out.Env, k)
	}
	for k, v := range p.AliasSet {
		out.Aliases[k] = v
	}
	for _, k := range p.AliasUnset {
		delete(out.Aliases, k)
	}
	return out, nil
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
