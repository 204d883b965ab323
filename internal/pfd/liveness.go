package pfd

import (
	"sync"

	"github.com/distlab/hiconsensus/pkg/consensustypes"
)

// liveness is the confirmed_alive set shared between the heartbeat
// listener (writer-inserts) and the probe loop (writer-removes). Both
// operations are single, exclusively-held set mutations, matching
// spec.md §5's reader-writer-lock model even though neither side ever
// takes the read path — a plain Mutex would do; DESIGN.md records why
// RWMutex is used.
type liveness struct {
	mu    sync.RWMutex
	alive map[consensustypes.PeerId]struct{}
}

func newLiveness() *liveness {
	return &liveness{alive: make(map[consensustypes.PeerId]struct{})}
}

// insert records peer as alive. Called by the heartbeat listener.
func (l *liveness) insert(peer consensustypes.PeerId) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.alive[peer] = struct{}{}
}

// removeReturningPrior removes peer from the alive set and reports whether
// it was present beforehand. Called once per probe cycle by the probe
// loop: the peer must re-prove liveness during the current interval.
func (l *liveness) removeReturningPrior(peer consensustypes.PeerId) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, wasAlive := l.alive[peer]
	delete(l.alive, peer)
	return wasAlive
}
