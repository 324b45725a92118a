package recipe

// State is the on-disk, per-option-binding record of a recipe's build
// outcome.
// Invariant: Intact && !Invalidated asserts that the artifacts in the
// recipe's directory are consistent with Hash.
type State struct {
	Intact      bool   `toml:"intact"`
	Invalidated bool   `toml:"invalidated"`
	Timestamp   int64  `toml:"timestamp"`
	Size        int64  `toml:"size"`
	Hash        string `toml:"hash"`
}

// Fresh reports whether the state can be reused without rebuilding, given
// the caller's staleness inputs.
// looseCall suppresses the timestamp comparison entirely (set when the
// dependency edge through which the pipeline reached this recipe is
// loose). ignoreChanges
// suppresses the hash comparison (an operator escape hatch, not used by the
// default pipeline path).
func (s State) Fresh(latest int64, currentHash string, looseCall, ignoreChanges bool) bool {
	if !s.Intact || s.Invalidated {
		return false
	}
	if !looseCall && s.Timestamp < latest {
		return false
	}
	if !ignoreChanges && s.Hash != currentHash {
		return false
	}
	return true
}
