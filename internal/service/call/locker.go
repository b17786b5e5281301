package call

import (
	"sync"

	"github.com/google/uuid"
)

// keyedLocks serializes mutating operations per call id. Read-modify-write
// against the call store would otherwise lose updates under concurrent
// joins/leaves/ends on the same call.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[uuid.UUID]*lockEntry)}
}

// Lock acquires the mutex for the given call id, creating it on demand
func (k *keyedLocks) Lock(id uuid.UUID) {
	k.mu.Lock()
	entry, ok := k.locks[id]
	if !ok {
		entry = &lockEntry{}
		k.locks[id] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
}

// Unlock releases the mutex and drops the entry once nobody waits on it
func (k *keyedLocks) Unlock(id uuid.UUID) {
	k.mu.Lock()
	entry := k.locks[id]
	entry.refs--
	if entry.refs == 0 {
		delete(k.locks, id)
	}
	k.mu.Unlock()

	entry.mu.Unlock()
}
