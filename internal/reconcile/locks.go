package reconcile

import "sync"

// payLocks serializes reconciliation attempts per pay_id within the
// process, so a webhook delivery and a polling status check on the same
// payment never interleave their read-modify-write.
type payLocks struct {
	mu    sync.Mutex
	locks map[string]*payLock
}

type payLock struct {
	mu   sync.Mutex
	refs int
}

func newPayLocks() *payLocks {
	return &payLocks{locks: make(map[string]*payLock)}
}

// acquire blocks until the lock for payID is held and returns the
// release function.
func (p *payLocks) acquire(payID string) func() {
	p.mu.Lock()
	l, ok := p.locks[payID]
	if !ok {
		l = &payLock{}
		p.locks[payID] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, payID)
		}
		p.mu.Unlock()
	}
}
