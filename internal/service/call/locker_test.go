package call

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestKeyedLocks_MutualExclusion(t *testing.T) {
	locks := newKeyedLocks()
	id := uuid.New()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locks.Lock(id)
			counter++
			locks.Unlock(id)
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestKeyedLocks_IndependentKeys(t *testing.T) {
	locks := newKeyedLocks()
	first := uuid.New()
	second := uuid.New()

	locks.Lock(first)

	// A different key must not block
	done := make(chan struct{})
	go func() {
		locks.Lock(second)
		locks.Unlock(second)
		close(done)
	}()
	<-done

	locks.Unlock(first)
}

func TestKeyedLocks_EntriesReleased(t *testing.T) {
	locks := newKeyedLocks()
	id := uuid.New()

	locks.Lock(id)
	locks.Unlock(id)

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.locks)
}
