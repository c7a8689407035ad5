package game

// History is the per-game undo stack: full pre-mutation snapshots recorded
// before each committed play. Depth is capped so long games stay bounded;
// the oldest snapshot is evicted first.
type History struct {
	snapshots []*GameState
	maxDepth  int
}

// DefaultHistoryDepth bounds the undo stack when no cap is configured.
const DefaultHistoryDepth = 32

// NewHistory creates a history with the given depth cap. Non-positive depth
// falls back to DefaultHistoryDepth.
func NewHistory(maxDepth int) *History {
	if maxDepth <= 0 {
		maxDepth = DefaultHistoryDepth
	}
	return &History{maxDepth: maxDepth}
}

// Record pushes a snapshot, evicting the oldest entry past the depth cap.
func (h *History) Record(snapshot *GameState) {
	if len(h.snapshots) >= h.maxDepth {
		copy(h.snapshots, h.snapshots[1:])
		h.snapshots = h.snapshots[:len(h.snapshots)-1]
	}
	h.snapshots = append(h.snapshots, snapshot)
}

// Undo pops and returns the most recent snapshot, discarding the mutation
// that followed it. Returns ErrNoHistory when the stack is empty.
func (h *History) Undo() (*GameState, error) {
	if len(h.snapshots) == 0 {
		return nil, ErrNoHistory
	}
	snapshot := h.snapshots[len(h.snapshots)-1]
	h.snapshots = h.snapshots[:len(h.snapshots)-1]
	return snapshot, nil
}

// Peek returns the most recent snapshot without removing it. Callers that
// must not lose the snapshot on a failed commit peek first and pop only once
// the restored state is durably saved.
func (h *History) Peek() (*GameState, error) {
	if len(h.snapshots) == 0 {
		return nil, ErrNoHistory
	}
	return h.snapshots[len(h.snapshots)-1], nil
}

// Clear drops all snapshots. Called on round restarts.
func (h *History) Clear() {
	h.snapshots = h.snapshots[:0]
}

// Size returns the number of recorded snapshots.
func (h *History) Size() int {
	return len(h.snapshots)
}
