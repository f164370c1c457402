// Package election implements the election engine: a candidate roster, one
// vote per credential holder, and an operator controlled lifecycle. Voting
// credentials are kept by the ledger package, whose tables share every write
// transaction with the engine ones so a credential is consumed if and only if
// the vote is recorded.
package election

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.vocdoni.io/tokenvote/db"
	"go.vocdoni.io/tokenvote/db/prefixeddb"
	"go.vocdoni.io/tokenvote/ledger"
	"go.vocdoni.io/tokenvote/log"
	"go.vocdoni.io/tokenvote/types"
)

const voterCacheSize = 10000

var (
	enginePrefix = []byte("e/")
	ledgerPrefix = []byte("l/")
)

// Address is the identity of the engine in the ledger. Voters authorize it to
// consume their credential, and consumed credentials are kept in its custody.
var Address = common.BytesToAddress(crypto.Keccak256([]byte("tokenvote/election-engine")))

// Engine is the election state machine. All mutations go through Update,
// which serializes them; reads only observe committed state.
type Engine struct {
	db         db.Database
	mu         sync.RWMutex
	listeners  []EventListener
	voterCache *lru.Cache[common.Address, VoterRecord]
}

// New returns an Engine persisting its state in database.
func New(database db.Database) (*Engine, error) {
	cache, err := lru.New[common.Address, VoterRecord](voterCacheSize)
	if err != nil {
		return nil, err
	}
	return &Engine{
		db:         database,
		voterCache: cache,
	}, nil
}

// Init sets the election operator and opens the election. The operator also
// becomes the ledger admin and minter.
func (e *Engine) Init(operator common.Address) error {
	return e.Update(func(txn *Txn) error {
		if _, err := getOperator(txn.store); err == nil {
			return ErrAlreadyInitialized
		}
		if err := txn.store.Set(operatorKey, operator.Bytes()); err != nil {
			return err
		}
		if err := setStatus(txn.store, types.StatusOpen); err != nil {
			return err
		}
		if err := txn.ledger.Init(operator); err != nil {
			return err
		}
		log.Infow("election initialized", "operator", operator.Hex())
		return nil
	})
}

// Update runs fn inside a write transaction. If fn returns an error, nothing
// it wrote is persisted. Otherwise the transaction is committed and the
// events produced by fn are delivered to the listeners. Listeners must not
// call back into the engine.
func (e *Engine) Update(fn func(*Txn) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	tx := e.db.WriteTx()
	defer tx.Discard()

	txn := e.newTxn(tx)
	if err := fn(txn); err != nil {
		txnDiscarded.Inc()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cannot commit election state: %w", err)
	}
	txnCommitted.Inc()
	votesCounter.Add(float64(txn.newVotes))
	if txn.candidates > 0 {
		candidatesGauge.Set(float64(txn.candidates))
	}
	for addr, rec := range txn.voters {
		e.voterCache.Add(addr, rec)
	}
	e.dispatch(txn.events)
	return nil
}

// Simulate runs fn like Update, but always discards the writes and events.
// The error returned by fn tells whether it would succeed on the current
// state.
func (e *Engine) Simulate(fn func(*Txn) error) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	tx := e.db.WriteTx()
	defer tx.Discard()
	return fn(e.newTxn(tx))
}

// Read calls fn with a reader over the committed keys stored under prefix,
// as written with Txn.Store.
func (e *Engine) Read(prefix []byte, fn func(db.Reader) error) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fn(prefixeddb.NewPrefixedReader(e.db, prefix))
}

func (e *Engine) view(fn func(rd db.Reader) error) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fn(prefixeddb.NewPrefixedReader(e.db, enginePrefix))
}

func (e *Engine) ledgerView(fn func(l *ledger.View) error) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fn(ledger.NewView(prefixeddb.NewPrefixedReader(e.db, ledgerPrefix)))
}

// Operator returns the election operator.
func (e *Engine) Operator() (common.Address, error) {
	var op common.Address
	err := e.view(func(rd db.Reader) (err error) {
		op, err = getOperator(rd)
		return err
	})
	return op, err
}

// Status returns the lifecycle state of the election.
func (e *Engine) Status() (types.ElectionStatus, error) {
	var status types.ElectionStatus
	err := e.view(func(rd db.Reader) (err error) {
		status, err = getStatus(rd)
		return err
	})
	return status, err
}

// CandidateCount returns the number of registered candidates.
func (e *Engine) CandidateCount() (uint64, error) {
	var count uint64
	err := e.view(func(rd db.Reader) (err error) {
		count, err = getUint64(rd, countKey)
		return err
	})
	return count, err
}

// Candidate returns the candidate with the given id.
func (e *Engine) Candidate(id uint64) (*Candidate, error) {
	var c *Candidate
	err := e.view(func(rd db.Reader) (err error) {
		c, err = getCandidate(rd, id)
		return err
	})
	return c, err
}

// Candidates returns the whole roster ordered by id.
func (e *Engine) Candidates() ([]*Candidate, error) {
	var list []*Candidate
	err := e.view(func(rd db.Reader) (err error) {
		list, err = listCandidates(rd)
		return err
	})
	return list, err
}

// TotalVotes returns the number of votes cast.
func (e *Engine) TotalVotes() (uint64, error) {
	var votes uint64
	err := e.view(func(rd db.Reader) (err error) {
		votes, err = getUint64(rd, votesKey)
		return err
	})
	return votes, err
}

// Voter returns the voter record of addr.
func (e *Engine) Voter(addr common.Address) (VoterRecord, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if rec, ok := e.voterCache.Get(addr); ok {
		return rec, nil
	}
	rec, err := getVoter(prefixeddb.NewPrefixedReader(e.db, enginePrefix), addr)
	if err != nil {
		return rec, err
	}
	e.voterCache.Add(addr, rec)
	return rec, nil
}

// HasVoted reports whether addr has already voted.
func (e *Engine) HasVoted(addr common.Address) (bool, error) {
	rec, err := e.Voter(addr)
	return rec.HasVoted, err
}

// Info returns a summary of the election.
func (e *Engine) Info() (*Info, error) {
	info := &Info{}
	err := e.view(func(rd db.Reader) (err error) {
		if info.Operator, err = getOperator(rd); err != nil {
			return err
		}
		if info.Status, err = getStatus(rd); err != nil {
			return err
		}
		if info.CandidateCount, err = getUint64(rd, countKey); err != nil {
			return err
		}
		info.TotalVotes, err = getUint64(rd, votesKey)
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// Winner returns the candidate with the most votes once the election has
// ended. Ties go to the lowest id.
func (e *Engine) Winner() (*Candidate, error) {
	var winner *Candidate
	err := e.view(func(rd db.Reader) error {
		status, err := getStatus(rd)
		if err != nil {
			return err
		}
		if status != types.StatusEnded {
			return ErrElectionNotEnded
		}
		candidates, err := listCandidates(rd)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return ErrNoCandidates
		}
		winner = candidates[0]
		for _, c := range candidates[1:] {
			if c.VoteCount > winner.VoteCount {
				winner = c
			}
		}
		return nil
	})
	return winner, err
}

// BalanceOf returns the credential balance of addr.
func (e *Engine) BalanceOf(addr common.Address) (uint64, error) {
	var balance uint64
	err := e.ledgerView(func(l *ledger.View) (err error) {
		balance, err = l.BalanceOf(addr)
		return err
	})
	return balance, err
}

// Allowance returns how many credentials spender may consume from owner.
func (e *Engine) Allowance(owner, spender common.Address) (uint64, error) {
	var allowance uint64
	err := e.ledgerView(func(l *ledger.View) (err error) {
		allowance, err = l.Allowance(owner, spender)
		return err
	})
	return allowance, err
}

// IsMinter reports whether addr may mint credentials.
func (e *Engine) IsMinter(addr common.Address) (bool, error) {
	var ok bool
	err := e.ledgerView(func(l *ledger.View) (err error) {
		ok, err = l.IsMinter(addr)
		return err
	})
	return ok, err
}

// TotalSupply returns the number of credentials minted.
func (e *Engine) TotalSupply() (uint64, error) {
	var supply uint64
	err := e.ledgerView(func(l *ledger.View) (err error) {
		supply, err = l.TotalSupply()
		return err
	})
	return supply, err
}

// AddCandidate registers a new candidate, see Txn.AddCandidate.
func (e *Engine) AddCandidate(caller common.Address, name string) (uint64, error) {
	var id uint64
	err := e.Update(func(txn *Txn) (err error) {
		id, err = txn.AddCandidate(caller, name)
		return err
	})
	return id, err
}

// CastVote records a vote, see Txn.CastVote.
func (e *Engine) CastVote(caller common.Address, candidateID uint64) error {
	return e.Update(func(txn *Txn) error {
		return txn.CastVote(caller, candidateID)
	})
}

// EndElection closes the election, see Txn.EndElection.
func (e *Engine) EndElection(caller common.Address) error {
	return e.Update(func(txn *Txn) error {
		return txn.EndElection(caller)
	})
}

// Mint creates voting credentials, see Txn.Mint.
func (e *Engine) Mint(caller, to common.Address, amount uint64) error {
	return e.Update(func(txn *Txn) error {
		return txn.Mint(caller, to, amount)
	})
}

// Authorize sets a credential allowance, see Txn.Authorize.
func (e *Engine) Authorize(owner, spender common.Address, amount uint64) error {
	return e.Update(func(txn *Txn) error {
		return txn.Authorize(owner, spender, amount)
	})
}
