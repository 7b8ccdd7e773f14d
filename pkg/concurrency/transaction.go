package concurrency

import (
	"sync"

	"github.com/google/uuid"
)

// Each client will have at most one transaction running at a given time.
// Therefore, the clientID is a unique identifier for both the Transaction and its Client
type Transaction struct {
	clientId        uuid.UUID
	lockedResources map[Resource]LockType // explicitly held locks; NL is never stored
	mtx             sync.RWMutex
}

// NewTransaction returns a transaction for clientId holding no locks.
func NewTransaction(clientId uuid.UUID) *Transaction {
	return &Transaction{clientId: clientId, lockedResources: make(map[Resource]LockType)}
}

func (t *Transaction) WLock() {
	t.mtx.Lock()
}

func (t *Transaction) WUnlock() {
	t.mtx.Unlock()
}

func (t *Transaction) RLock() {
	t.mtx.RLock()
}

func (t *Transaction) RUnlock() {
	t.mtx.RUnlock()
}

func (t *Transaction) GetClientID() (clientId uuid.UUID) {
	return t.clientId
}

// HeldLock returns the lock held on r, or NL. Callers must hold the read lock.
func (t *Transaction) HeldLock(r Resource) LockType {
	if lt, ok := t.lockedResources[r]; ok {
		return lt
	}
	return NL
}

// HeldLocks returns the held-lock table itself. Callers must hold the read
// lock and must not modify the map.
func (t *Transaction) HeldLocks() map[Resource]LockType {
	return t.lockedResources
}

// GetResources returns a copy of the held-lock table.
func (t *Transaction) GetResources() (resources map[Resource]LockType) {
	t.RLock()
	defer t.RUnlock()
	resources = make(map[Resource]LockType, len(t.lockedResources))
	for r, lt := range t.lockedResources {
		resources[r] = lt
	}
	return resources
}

// apply records steps in the held-lock table. Callers must hold the write lock.
func (t *Transaction) apply(steps []Step) {
	for _, s := range steps {
		if s.IsRelease() {
			delete(t.lockedResources, s.Resource)
		} else {
			t.lockedResources[s.Resource] = s.To
		}
	}
}
