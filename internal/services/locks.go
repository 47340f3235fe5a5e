package services

import "sync"

// keyedMutex hands out one mutex per auction id so contention is scoped to a
// single auction; admissions on unrelated auctions never block each other.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) get(id string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	lock, ok := k.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[id] = lock
	}
	return lock
}

// forget drops the entry once the auction record is gone. A goroutine still
// holding the old mutex keeps a valid reference; it just stops being shared,
// which is fine because the record no longer exists.
func (k *keyedMutex) forget(id string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.locks, id)
}
