package election

import (
	"github.com/ethereum/go-ethereum/common"
)

// EventListener receives the changes applied to the election. Events are
// delivered in order, only after the transaction that produced them has
// been committed. Commit is called once per block by the sequencer.
type EventListener interface {
	OnCandidateAdded(c *Candidate)
	OnVote(v *Vote)
	OnElectionEnded(totalVotes uint64)
	OnCredentialMinted(minter, to common.Address, amount uint64)
	OnCredentialAuthorized(owner, spender common.Address, amount uint64)
	Commit(height uint64) error
}

// AddEventListener adds a new event listener.
func (e *Engine) AddEventListener(l EventListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// CleanEventListeners removes all event listeners.
func (e *Engine) CleanEventListeners() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = nil
}

// Commit notifies the listeners that a block has been closed at height.
func (e *Engine) Commit(height uint64) error {
	e.mu.RLock()
	listeners := e.listeners
	e.mu.RUnlock()
	for _, l := range listeners {
		if err := l.Commit(height); err != nil {
			return err
		}
	}
	return nil
}

// event is a queued listener call.
type event func(l EventListener)

func (e *Engine) dispatch(events []event) {
	for _, ev := range events {
		for _, l := range e.listeners {
			ev(l)
		}
	}
}
