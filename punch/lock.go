package punch

import "sync"

// keyedMutex hands out one mutex per user. Entries are reference counted and
// removed when nobody holds or waits for them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[UserID]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(id UserID) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[UserID]*refMutex)
	}
	m, ok := k.locks[id]
	if !ok {
		m = &refMutex{}
		k.locks[id] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
