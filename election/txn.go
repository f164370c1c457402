package election

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/tokenvote/db"
	"go.vocdoni.io/tokenvote/db/prefixeddb"
	"go.vocdoni.io/tokenvote/ledger"
	"go.vocdoni.io/tokenvote/log"
	"go.vocdoni.io/tokenvote/types"
)

// Txn is a unit of work over the election and ledger state. Every operation
// checks all its preconditions before writing, so an operation that returns
// an error leaves the transaction untouched.
type Txn struct {
	engine *Engine
	tx     db.WriteTx
	store  db.WriteTx
	ledger *ledger.Ledger
	events []event
	voters map[common.Address]VoterRecord

	newVotes   int
	candidates uint64
}

func (e *Engine) newTxn(tx db.WriteTx) *Txn {
	return &Txn{
		engine: e,
		tx:     tx,
		store:  prefixeddb.NewPrefixedWriteTx(tx, enginePrefix),
		ledger: ledger.New(prefixeddb.NewPrefixedWriteTx(tx, ledgerPrefix)),
		voters: make(map[common.Address]VoterRecord),
	}
}

// Store returns a view of the transaction for the keys under prefix, so
// other components can persist their own tables atomically with the
// election ones. The prefix must not overlap the engine or ledger ones.
func (t *Txn) Store(prefix []byte) db.WriteTx {
	if bytes.HasPrefix(prefix, enginePrefix) || bytes.HasPrefix(prefix, ledgerPrefix) ||
		bytes.HasPrefix(enginePrefix, prefix) || bytes.HasPrefix(ledgerPrefix, prefix) {
		panic(fmt.Sprintf("store prefix %q overlaps election tables", prefix))
	}
	return prefixeddb.NewPrefixedWriteTx(t.tx, prefix)
}

// Ledger returns the credential ledger bound to the transaction.
func (t *Txn) Ledger() *ledger.Ledger {
	return t.ledger
}

func (t *Txn) emit(ev event) {
	t.events = append(t.events, ev)
}

func (t *Txn) checkOperator(caller common.Address) error {
	operator, err := getOperator(t.store)
	if err != nil {
		return err
	}
	if caller != operator {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}
	return nil
}

func (t *Txn) checkOpen() error {
	status, err := getStatus(t.store)
	if err != nil {
		return err
	}
	if status != types.StatusOpen {
		return ErrElectionClosed
	}
	return nil
}

// Status returns the election status as seen by the transaction.
func (t *Txn) Status() (types.ElectionStatus, error) {
	return getStatus(t.store)
}

// Candidate returns the candidate with the given id.
func (t *Txn) Candidate(id uint64) (*Candidate, error) {
	return getCandidate(t.store, id)
}

// CandidateCount returns the number of candidates.
func (t *Txn) CandidateCount() (uint64, error) {
	return getUint64(t.store, countKey)
}

// Voter returns the voter record of addr.
func (t *Txn) Voter(addr common.Address) (VoterRecord, error) {
	return getVoter(t.store, addr)
}

// NormalizeName trims the candidate name and checks its length.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if len(name) > types.MaxCandidateNameLength {
		return "", fmt.Errorf("%w: longer than %d bytes", ErrInvalidName, types.MaxCandidateNameLength)
	}
	if !utf8.ValidString(name) {
		return "", fmt.Errorf("%w: not valid utf-8", ErrInvalidName)
	}
	return name, nil
}

// AddCandidate registers a candidate and returns its id. Only the operator
// may add candidates, and only while the election is open.
func (t *Txn) AddCandidate(caller common.Address, name string) (uint64, error) {
	if err := t.checkOperator(caller); err != nil {
		return 0, err
	}
	if err := t.checkOpen(); err != nil {
		return 0, err
	}
	name, err := NormalizeName(name)
	if err != nil {
		return 0, err
	}
	count, err := getUint64(t.store, countKey)
	if err != nil {
		return 0, err
	}
	c := &Candidate{ID: count + 1, Name: name}
	if err := setCandidate(t.store, c); err != nil {
		return 0, err
	}
	if err := setUint64(t.store, countKey, c.ID); err != nil {
		return 0, err
	}
	log.Debugw("candidate added", "id", c.ID, "name", c.Name)
	t.emit(func(l EventListener) { l.OnCandidateAdded(c) })
	t.candidates = c.ID
	return c.ID, nil
}

// CastVote records a vote of caller for candidateID, consuming one of the
// caller credentials. The caller must have authorized the engine Address
// in the ledger beforehand.
func (t *Txn) CastVote(caller common.Address, candidateID uint64) error {
	if _, err := getOperator(t.store); err != nil {
		return err
	}
	if err := t.checkOpen(); err != nil {
		return err
	}
	balance, err := t.ledger.BalanceOf(caller)
	if err != nil {
		return err
	}
	rec, err := getVoter(t.store, caller)
	if err != nil {
		return err
	}
	// a voter that already voted spent its credential, repeats report the vote
	if balance < types.VoteCost && !rec.HasVoted {
		return ErrNoCredential
	}
	if rec.HasVoted {
		return ErrAlreadyVoted
	}
	c, err := getCandidate(t.store, candidateID)
	if err != nil {
		return err
	}
	allowance, err := t.ledger.Allowance(caller, Address)
	if err != nil {
		return err
	}
	if allowance < types.VoteCost {
		return ErrInsufficientAllowance
	}
	total, err := getUint64(t.store, votesKey)
	if err != nil {
		return err
	}

	if err := t.ledger.Consume(caller, Address, types.VoteCost); err != nil {
		return fmt.Errorf("cannot consume credential: %w", err)
	}
	rec = VoterRecord{HasVoted: true, CandidateID: candidateID}
	if err := setVoter(t.store, caller, rec); err != nil {
		return err
	}
	c.VoteCount++
	if err := setCandidate(t.store, c); err != nil {
		return err
	}
	if err := setUint64(t.store, votesKey, total+1); err != nil {
		return err
	}
	t.voters[caller] = rec
	log.Debugw("vote cast", "voter", caller.Hex(), "candidate", candidateID)
	v := &Vote{Voter: caller, CandidateID: candidateID}
	t.emit(func(l EventListener) { l.OnVote(v) })
	t.newVotes++
	return nil
}

// EndElection closes the election. It is terminal: no more candidates nor
// votes are accepted afterwards.
func (t *Txn) EndElection(caller common.Address) error {
	if err := t.checkOperator(caller); err != nil {
		return err
	}
	status, err := getStatus(t.store)
	if err != nil {
		return err
	}
	if status == types.StatusEnded {
		return ErrAlreadyEnded
	}
	total, err := getUint64(t.store, votesKey)
	if err != nil {
		return err
	}
	if err := setStatus(t.store, types.StatusEnded); err != nil {
		return err
	}
	log.Infow("election ended", "votes", total)
	t.emit(func(l EventListener) { l.OnElectionEnded(total) })
	return nil
}

// Mint creates amount credentials for to. The caller must be a minter.
func (t *Txn) Mint(caller, to common.Address, amount uint64) error {
	if err := t.ledger.Mint(caller, to, amount); err != nil {
		return err
	}
	t.emit(func(l EventListener) { l.OnCredentialMinted(caller, to, amount) })
	return nil
}

// Authorize sets the amount of credentials spender may consume from owner.
func (t *Txn) Authorize(owner, spender common.Address, amount uint64) error {
	if err := t.ledger.Authorize(owner, spender, amount); err != nil {
		return err
	}
	t.emit(func(l EventListener) { l.OnCredentialAuthorized(owner, spender, amount) })
	return nil
}

// GrantMinter gives addr the minter role. The caller must be the ledger
// admin, which is the election operator.
func (t *Txn) GrantMinter(caller, addr common.Address) error {
	return t.ledger.GrantMinter(caller, addr)
}

// RevokeMinter removes the minter role from addr.
func (t *Txn) RevokeMinter(caller, addr common.Address) error {
	return t.ledger.RevokeMinter(caller, addr)
}
