package concurrency

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// TransactionManager keeps the held-lock tables of every running transaction
// and consults the lock-type algebra to decide what each request needs.
// Every client runs 1 transaction at a time, so uuid (clientID) can be used to
// uniquely identify a Transaction.
//
// Requests never wait: a request that conflicts with another transaction's
// lock fails with ErrLockConflict and leaves the held locks untouched.
type TransactionManager struct {
	transactions map[uuid.UUID]*Transaction // Identifies the Transaction for a particular client
	mtx          sync.RWMutex               // Guards transactions and makes each request atomic
}

func NewTransactionManager() *TransactionManager {
	return &TransactionManager{
		transactions: make(map[uuid.UUID]*Transaction),
	}
}

// Get a particular transaction of a client.
func (tm *TransactionManager) GetTransaction(clientId uuid.UUID) (tx *Transaction, found bool) {
	tm.mtx.RLock()
	defer tm.mtx.RUnlock()
	tx, found = tm.transactions[clientId]
	return tx, found
}

// TransactionIDs returns the ids of the running transactions in sorted order.
func (tm *TransactionManager) TransactionIDs() []uuid.UUID {
	tm.mtx.RLock()
	defer tm.mtx.RUnlock()
	ids := make([]uuid.UUID, 0, len(tm.transactions))
	for id := range tm.transactions {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// Begin a transaction for the given client; error if already began.
func (tm *TransactionManager) Begin(clientId uuid.UUID) error {
	tm.mtx.Lock()
	defer tm.mtx.Unlock()
	if _, found := tm.transactions[clientId]; found {
		return errors.Wrapf(ErrTransactionExists, "client %s", clientId)
	}
	tm.transactions[clientId] = NewTransaction(clientId)
	return nil
}

// Commits the given transaction, dropping every lock it holds.
func (tm *TransactionManager) Commit(clientId uuid.UUID) error {
	tm.mtx.Lock()
	defer tm.mtx.Unlock()
	if _, found := tm.transactions[clientId]; !found {
		return errors.Wrapf(ErrNoSuchTransaction, "client %s", clientId)
	}
	delete(tm.transactions, clientId)
	return nil
}

// Plan returns the steps Acquire would apply, without applying them.
func (tm *TransactionManager) Plan(clientId uuid.UUID, r Resource, lType LockType) ([]Step, error) {
	tm.mtx.RLock()
	defer tm.mtx.RUnlock()
	t, found := tm.transactions[clientId]
	if !found {
		return nil, errors.Wrapf(ErrNoSuchTransaction, "client %s", clientId)
	}
	t.RLock()
	defer t.RUnlock()
	return PlanAcquire(t, r, lType)
}

// Acquire makes the client hold a lock on r at least as strong as lType.
// 1) Plan the acquisitions and promotions along r's path.
// 2) Check every acquired or promoted mode against the other transactions.
// 3) Apply the whole plan, or nothing if any step conflicts.
func (tm *TransactionManager) Acquire(clientId uuid.UUID, r Resource, lType LockType) ([]Step, error) {
	tm.mtx.Lock()
	defer tm.mtx.Unlock()
	t, found := tm.transactions[clientId]
	if !found {
		return nil, errors.Wrapf(ErrNoSuchTransaction, "client %s", clientId)
	}
	t.WLock()
	defer t.WUnlock()
	steps, err := PlanAcquire(t, r, lType)
	if err != nil {
		return nil, err
	}
	if err := tm.checkConflicts(t, steps); err != nil {
		return nil, err
	}
	t.apply(steps)
	return steps, nil
}

// Release drops the client's lock on r. Locks below r must be released first.
func (tm *TransactionManager) Release(clientId uuid.UUID, r Resource) error {
	tm.mtx.Lock()
	defer tm.mtx.Unlock()
	t, found := tm.transactions[clientId]
	if !found {
		return errors.Wrapf(ErrNoSuchTransaction, "client %s", clientId)
	}
	t.WLock()
	defer t.WUnlock()
	if err := CheckRelease(t, r); err != nil {
		return err
	}
	delete(t.lockedResources, r)
	return nil
}

// Escalate replaces the client's locks on r and everything below it with a
// single S or X lock on r.
func (tm *TransactionManager) Escalate(clientId uuid.UUID, r Resource) ([]Step, error) {
	tm.mtx.Lock()
	defer tm.mtx.Unlock()
	t, found := tm.transactions[clientId]
	if !found {
		return nil, errors.Wrapf(ErrNoSuchTransaction, "client %s", clientId)
	}
	t.WLock()
	defer t.WUnlock()
	target, released, err := PlanEscalation(t, r)
	if err != nil {
		return nil, err
	}
	var steps []Step
	if held := t.HeldLock(r); held != target {
		steps = append(steps, Step{Resource: r, From: held, To: target})
	}
	for _, d := range released {
		steps = append(steps, Step{Resource: d, From: t.HeldLock(d), To: NL})
	}
	if err := tm.checkConflicts(t, steps); err != nil {
		return nil, err
	}
	t.apply(steps)
	return steps, nil
}

// Conflicts returns the transactions, other than the client's own, holding a
// lock on r that is incompatible with lType.
func (tm *TransactionManager) Conflicts(clientId uuid.UUID, r Resource, lType LockType) ([]uuid.UUID, error) {
	if err := Validate(lType); err != nil {
		return nil, err
	}
	tm.mtx.RLock()
	defer tm.mtx.RUnlock()
	return tm.conflictingTransactions(clientId, r, lType), nil
}

// checkConflicts returns ErrLockConflict if any non-release step conflicts
// with a lock held by another transaction.
func (tm *TransactionManager) checkConflicts(t *Transaction, steps []Step) error {
	for _, s := range steps {
		if s.IsRelease() {
			continue
		}
		if ids := tm.conflictingTransactions(t.clientId, s.Resource, s.To); len(ids) > 0 {
			return errors.Wrapf(ErrLockConflict, "%s on %s conflicts with %v", s.To, s.Resource, ids)
		}
	}
	return nil
}

// Returns the ids of all other transactions whose lock on r is incompatible
// with lType. Callers must hold tm.mtx.
func (tm *TransactionManager) conflictingTransactions(self uuid.UUID, r Resource, lType LockType) []uuid.UUID {
	ids := make([]uuid.UUID, 0)
	for id, t := range tm.transactions {
		if id == self {
			continue
		}
		t.RLock()
		held := t.HeldLock(r)
		t.RUnlock()
		if !Compatible(held, lType) {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)
	return ids
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}
