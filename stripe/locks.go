package stripe

import (
	"sync"
)

// LockManager manages per-customer locks so concurrent webhook deliveries
// for the same email are applied one at a time, while different customers
// are processed in parallel.
type LockManager struct {
	locks sync.Map // map[string]*sync.Mutex
}

// NewLockManager creates a new lock manager
func NewLockManager() *LockManager {
	return &LockManager{}
}

// LockEmail acquires the lock for the given email.
// Returns a function that must be called to release the lock.
func (lm *LockManager) LockEmail(email string) func() {
	lockInterface, _ := lm.locks.LoadOrStore(email, &sync.Mutex{})
	lock, ok := lockInterface.(*sync.Mutex)
	if !ok {
		// This should never happen if we only store *sync.Mutex values
		panic("unexpected type in lock manager")
	}
	lock.Lock()
	return func() {
		lock.Unlock()
	}
}

// CleanupLocks removes the locks not currently held.
func (lm *LockManager) CleanupLocks() {
	lm.locks.Range(func(key, value any) bool {
		lock, ok := value.(*sync.Mutex)
		if !ok {
			return true
		}
		// Try to acquire the lock without blocking
		if lock.TryLock() {
			lm.locks.Delete(key)
			lock.Unlock()
		}
		return true
	})
}
