package election

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"
	"go.vocdoni.io/tokenvote/db/metadb"
	"go.vocdoni.io/tokenvote/ledger"
	"go.vocdoni.io/tokenvote/test/testcommon/testutil"
	"go.vocdoni.io/tokenvote/types"
)

func newTestEngine(t *testing.T) (*Engine, common.Address) {
	e, err := New(metadb.NewTest(t))
	qt.Assert(t, err, qt.IsNil)
	rng := testutil.NewRandom(0)
	operator := rng.RandomAddress()
	qt.Assert(t, e.Init(operator), qt.IsNil)
	return e, operator
}

// giveCredential mints one credential to voter and authorizes the engine to
// consume it.
func giveCredential(t *testing.T, e *Engine, operator, voter common.Address) {
	t.Helper()
	qt.Assert(t, e.Mint(operator, voter, 1), qt.IsNil)
	qt.Assert(t, e.Authorize(voter, Address, 1), qt.IsNil)
}

func TestElectionScenario(t *testing.T) {
	e, operator := newTestEngine(t)
	rng := testutil.NewRandom(1)
	voter1, voter2, voter3 := rng.RandomAddress(), rng.RandomAddress(), rng.RandomAddress()

	id, err := e.AddCandidate(operator, "Candidate 1")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, id, qt.Equals, uint64(1))
	id, err = e.AddCandidate(operator, "Candidate 2")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, id, qt.Equals, uint64(2))

	_, err = e.AddCandidate(voter1, "Candidate 3")
	qt.Assert(t, err, qt.ErrorIs, ErrUnauthorized)

	count, err := e.CandidateCount()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, count, qt.Equals, uint64(2))

	giveCredential(t, e, operator, voter1)
	giveCredential(t, e, operator, voter2)

	qt.Assert(t, e.CastVote(voter1, 1), qt.IsNil)
	qt.Assert(t, e.CastVote(voter2, 1), qt.IsNil)

	// no credential
	qt.Assert(t, e.CastVote(voter3, 1), qt.ErrorIs, ErrNoCredential)
	// vote once, the credential is spent but repeats report the vote
	balance, err := e.BalanceOf(voter1)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, balance, qt.Equals, uint64(0))
	qt.Assert(t, e.CastVote(voter1, 1), qt.ErrorIs, ErrAlreadyVoted)
	qt.Assert(t, e.CastVote(voter1, 2), qt.ErrorIs, ErrAlreadyVoted)

	_, err = e.Winner()
	qt.Assert(t, err, qt.ErrorIs, ErrElectionNotEnded)

	beforeEnd := snapshotState(t, e, voter3)
	qt.Assert(t, e.EndElection(voter1), qt.ErrorIs, ErrUnauthorized)
	status, err := e.Status()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, status, qt.Equals, types.StatusOpen)
	qt.Assert(t, snapshotState(t, e, voter3), qt.CmpEquals(cmp.AllowUnexported(stateSnapshot{})), beforeEnd)

	qt.Assert(t, e.EndElection(operator), qt.IsNil)
	qt.Assert(t, e.EndElection(operator), qt.ErrorIs, ErrAlreadyEnded)

	winner, err := e.Winner()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, winner, qt.DeepEquals, &Candidate{ID: 1, Name: "Candidate 1", VoteCount: 2})

	giveCredential(t, e, operator, voter3)
	ended := snapshotState(t, e, voter3)
	qt.Assert(t, e.CastVote(voter3, 1), qt.ErrorIs, ErrElectionClosed)
	_, err = e.AddCandidate(operator, "Late")
	qt.Assert(t, err, qt.ErrorIs, ErrElectionClosed)
	qt.Assert(t, snapshotState(t, e, voter3), qt.CmpEquals(cmp.AllowUnexported(stateSnapshot{})), ended)
	qt.Assert(t, ended.balance, qt.Equals, uint64(1))
	qt.Assert(t, ended.voted, qt.IsFalse)

	info, err := e.Info()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, info, qt.DeepEquals, &Info{
		Status:         types.StatusEnded,
		Operator:       operator,
		CandidateCount: 2,
		TotalVotes:     2,
	})
}

// stateSnapshot holds what an operation that fails must leave untouched.
type stateSnapshot struct {
	candidates []*Candidate
	totalVotes uint64
	balance    uint64
	voted      bool
}

func snapshotState(t *testing.T, e *Engine, voter common.Address) stateSnapshot {
	t.Helper()
	var s stateSnapshot
	var err error
	s.candidates, err = e.Candidates()
	qt.Assert(t, err, qt.IsNil)
	s.totalVotes, err = e.TotalVotes()
	qt.Assert(t, err, qt.IsNil)
	s.balance, err = e.BalanceOf(voter)
	qt.Assert(t, err, qt.IsNil)
	s.voted, err = e.HasVoted(voter)
	qt.Assert(t, err, qt.IsNil)
	return s
}

func TestCastVoteOrder(t *testing.T) {
	e, operator := newTestEngine(t)
	rng := testutil.NewRandom(2)
	voter := rng.RandomAddress()

	// no credential is reported before an unknown candidate
	qt.Assert(t, e.CastVote(voter, 7), qt.ErrorIs, ErrNoCredential)

	qt.Assert(t, e.Mint(operator, voter, 1), qt.IsNil)
	qt.Assert(t, e.CastVote(voter, 7), qt.ErrorIs, ErrNotFound)

	_, err := e.AddCandidate(operator, "A")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, e.CastVote(voter, 0), qt.ErrorIs, ErrNotFound)

	// missing authorization
	qt.Assert(t, e.CastVote(voter, 1), qt.ErrorIs, ErrInsufficientAllowance)
	balance, err := e.BalanceOf(voter)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, balance, qt.Equals, uint64(1))
	voted, err := e.HasVoted(voter)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, voted, qt.IsFalse)

	qt.Assert(t, e.Authorize(voter, Address, 1), qt.IsNil)
	qt.Assert(t, e.CastVote(voter, 1), qt.IsNil)

	// already voted is reported before an unknown candidate
	qt.Assert(t, e.Mint(operator, voter, 1), qt.IsNil)
	qt.Assert(t, e.CastVote(voter, 9), qt.ErrorIs, ErrAlreadyVoted)

	// once ended, closed is reported first
	qt.Assert(t, e.EndElection(operator), qt.IsNil)
	qt.Assert(t, e.CastVote(rng.RandomAddress(), 9), qt.ErrorIs, ErrElectionClosed)
}

func TestNoCredentialLeavesStateUntouched(t *testing.T) {
	e, operator := newTestEngine(t)
	rng := testutil.NewRandom(3)
	voter := rng.RandomAddress()
	_, err := e.AddCandidate(operator, "A")
	qt.Assert(t, err, qt.IsNil)

	before, err := e.Candidates()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, e.CastVote(voter, 1), qt.ErrorIs, ErrNoCredential)
	after, err := e.Candidates()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, after, qt.CmpEquals(), before)

	rec, err := e.Voter(voter)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, rec, qt.Equals, VoterRecord{})
	votes, err := e.TotalVotes()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, votes, qt.Equals, uint64(0))
}

func TestCandidateNames(t *testing.T) {
	e, operator := newTestEngine(t)

	_, err := e.AddCandidate(operator, "   ")
	qt.Assert(t, err, qt.ErrorIs, ErrInvalidName)
	_, err = e.AddCandidate(operator, strings.Repeat("x", types.MaxCandidateNameLength+1))
	qt.Assert(t, err, qt.ErrorIs, ErrInvalidName)
	_, err = e.AddCandidate(operator, "\xff\xfe")
	qt.Assert(t, err, qt.ErrorIs, ErrInvalidName)

	id, err := e.AddCandidate(operator, "  Alice  ")
	qt.Assert(t, err, qt.IsNil)
	// duplicates are allowed
	id2, err := e.AddCandidate(operator, "Alice")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, id2, qt.Equals, id+1)

	c, err := e.Candidate(id)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, c.Name, qt.Equals, "Alice")

	_, err = e.Candidate(id2 + 1)
	qt.Assert(t, err, qt.ErrorIs, ErrNotFound)
}

func TestWinnerTie(t *testing.T) {
	e, operator := newTestEngine(t)
	rng := testutil.NewRandom(4)
	for _, name := range []string{"A", "B", "C"} {
		_, err := e.AddCandidate(operator, name)
		qt.Assert(t, err, qt.IsNil)
	}
	for candidate, votes := range map[uint64]int{1: 5, 2: 3, 3: 5} {
		for i := 0; i < votes; i++ {
			voter := rng.RandomAddress()
			giveCredential(t, e, operator, voter)
			qt.Assert(t, e.CastVote(voter, candidate), qt.IsNil)
		}
	}
	qt.Assert(t, e.EndElection(operator), qt.IsNil)
	winner, err := e.Winner()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, winner.ID, qt.Equals, uint64(1))
	qt.Assert(t, winner.VoteCount, qt.Equals, uint64(5))
}

func TestWinnerNoCandidates(t *testing.T) {
	e, operator := newTestEngine(t)
	qt.Assert(t, e.EndElection(operator), qt.IsNil)
	_, err := e.Winner()
	qt.Assert(t, err, qt.ErrorIs, ErrNoCandidates)
}

func TestNotInitialized(t *testing.T) {
	e, err := New(metadb.NewTest(t))
	qt.Assert(t, err, qt.IsNil)
	rng := testutil.NewRandom(5)
	addr := rng.RandomAddress()
	_, err = e.AddCandidate(addr, "A")
	qt.Assert(t, err, qt.ErrorIs, ErrNotInitialized)
	qt.Assert(t, e.CastVote(addr, 1), qt.ErrorIs, ErrNotInitialized)

	qt.Assert(t, e.Init(addr), qt.IsNil)
	qt.Assert(t, e.Init(addr), qt.ErrorIs, ErrAlreadyInitialized)
	op, err := e.Operator()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, op, qt.Equals, addr)
}

func TestUpdateIsAtomic(t *testing.T) {
	e, operator := newTestEngine(t)
	rng := testutil.NewRandom(6)
	voter := rng.RandomAddress()
	_, err := e.AddCandidate(operator, "A")
	qt.Assert(t, err, qt.IsNil)

	errBoom := errors.New("boom")
	err = e.Update(func(txn *Txn) error {
		if err := txn.Mint(operator, voter, 1); err != nil {
			return err
		}
		if err := txn.Authorize(voter, Address, 1); err != nil {
			return err
		}
		if err := txn.CastVote(voter, 1); err != nil {
			return err
		}
		// seen inside the transaction
		rec, err := txn.Voter(voter)
		qt.Check(t, err, qt.IsNil)
		qt.Check(t, rec.HasVoted, qt.IsTrue)
		return errBoom
	})
	qt.Assert(t, err, qt.ErrorIs, errBoom)

	balance, err := e.BalanceOf(voter)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, balance, qt.Equals, uint64(0))
	voted, err := e.HasVoted(voter)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, voted, qt.IsFalse)
	c, err := e.Candidate(1)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, c.VoteCount, qt.Equals, uint64(0))

	// Simulate never persists
	err = e.Simulate(func(txn *Txn) error {
		return txn.Mint(operator, voter, 1)
	})
	qt.Assert(t, err, qt.IsNil)
	balance, err = e.BalanceOf(voter)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, balance, qt.Equals, uint64(0))
}

func TestConsumedCredentialsInCustody(t *testing.T) {
	e, operator := newTestEngine(t)
	rng := testutil.NewRandom(7)
	_, err := e.AddCandidate(operator, "A")
	qt.Assert(t, err, qt.IsNil)
	voter := rng.RandomAddress()
	qt.Assert(t, e.Mint(operator, voter, 3), qt.IsNil)
	qt.Assert(t, e.Authorize(voter, Address, 3), qt.IsNil)
	qt.Assert(t, e.CastVote(voter, 1), qt.IsNil)

	balance, err := e.BalanceOf(voter)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, balance, qt.Equals, uint64(2))
	custody, err := e.BalanceOf(Address)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, custody, qt.Equals, uint64(1))
	allowance, err := e.Allowance(voter, Address)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, allowance, qt.Equals, uint64(2))
	supply, err := e.TotalSupply()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, supply, qt.Equals, uint64(3))
}

func TestMinterRole(t *testing.T) {
	e, operator := newTestEngine(t)
	rng := testutil.NewRandom(8)
	minter, voter := rng.RandomAddress(), rng.RandomAddress()

	qt.Assert(t, e.Mint(minter, voter, 1), qt.ErrorIs, ledger.ErrUnauthorized)
	qt.Assert(t, e.Update(func(txn *Txn) error { return txn.GrantMinter(operator, minter) }), qt.IsNil)
	ok, err := e.IsMinter(minter)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, ok, qt.IsTrue)
	qt.Assert(t, e.Mint(minter, voter, 1), qt.IsNil)
	qt.Assert(t, e.Update(func(txn *Txn) error { return txn.RevokeMinter(operator, minter) }), qt.IsNil)
	qt.Assert(t, e.Mint(minter, voter, 1), qt.ErrorIs, ledger.ErrUnauthorized)
}

func TestConcurrentVotes(t *testing.T) {
	e, operator := newTestEngine(t)
	rng := testutil.NewRandom(9)
	_, err := e.AddCandidate(operator, "A")
	qt.Assert(t, err, qt.IsNil)
	_, err = e.AddCandidate(operator, "B")
	qt.Assert(t, err, qt.IsNil)

	const voters = 40
	addrs := make([]common.Address, voters)
	for i := range addrs {
		addrs[i] = rng.RandomAddress()
		giveCredential(t, e, operator, addrs[i])
	}

	var wg sync.WaitGroup
	for i, addr := range addrs {
		wg.Add(1)
		go func(i int, addr common.Address) {
			defer wg.Done()
			// every voter tries twice, only one may succeed
			for j := 0; j < 2; j++ {
				err := e.CastVote(addr, uint64(i%2)+1)
				if j == 1 {
					qt.Check(t, err, qt.ErrorIs, ErrAlreadyVoted)
				}
			}
		}(i, addr)
	}
	wg.Wait()

	candidates, err := e.Candidates()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, candidates[0].VoteCount+candidates[1].VoteCount, qt.Equals, uint64(voters))
	custody, err := e.BalanceOf(Address)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, custody, qt.Equals, uint64(voters))
}

// TestInvariants applies a random sequence of operations and checks after
// each one that the vote tallies, the voter records and the ledger agree.
func TestInvariants(t *testing.T) {
	e, operator := newTestEngine(t)
	rng := testutil.NewRandom(10)
	voters := make([]common.Address, 12)
	for i := range voters {
		voters[i] = rng.RandomAddress()
	}

	for step := 0; step < 300; step++ {
		voter := voters[rng.RandomIntn(len(voters))]
		switch rng.RandomIntn(6) {
		case 0:
			_, _ = e.AddCandidate(operator, "candidate")
		case 1:
			_ = e.Mint(operator, voter, uint64(rng.RandomIntn(2)+1))
		case 2:
			_ = e.Authorize(voter, Address, uint64(rng.RandomIntn(3)))
		case 3, 4:
			count, err := e.CandidateCount()
			qt.Assert(t, err, qt.IsNil)
			_ = e.CastVote(voter, uint64(rng.RandomIntn(int(count)+2)))
		case 5:
			if step > 250 {
				_ = e.EndElection(operator)
			}
		}
		checkInvariants(t, e, voters)
	}
}

func checkInvariants(t *testing.T, e *Engine, voters []common.Address) {
	t.Helper()
	candidates, err := e.Candidates()
	qt.Assert(t, err, qt.IsNil)
	count, err := e.CandidateCount()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, uint64(len(candidates)), qt.Equals, count)

	tally := make(map[uint64]uint64)
	var sum uint64
	for i, c := range candidates {
		qt.Assert(t, c.ID, qt.Equals, uint64(i+1))
		sum += c.VoteCount
	}
	var voted uint64
	for _, v := range voters {
		rec, err := e.Voter(v)
		qt.Assert(t, err, qt.IsNil)
		if !rec.HasVoted {
			qt.Assert(t, rec.CandidateID, qt.Equals, uint64(0))
			continue
		}
		voted++
		qt.Assert(t, rec.CandidateID >= 1 && rec.CandidateID <= count, qt.IsTrue)
		tally[rec.CandidateID]++
	}
	total, err := e.TotalVotes()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, sum, qt.Equals, voted)
	qt.Assert(t, total, qt.Equals, voted)
	for _, c := range candidates {
		qt.Assert(t, c.VoteCount, qt.Equals, tally[c.ID], qt.Commentf("candidate %d", c.ID))
	}

	// one credential in custody per vote, supply conserved
	custody, err := e.BalanceOf(Address)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, custody, qt.Equals, voted)
	var held uint64
	for _, v := range voters {
		b, err := e.BalanceOf(v)
		qt.Assert(t, err, qt.IsNil)
		held += b
	}
	supply, err := e.TotalSupply()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, held+custody, qt.Equals, supply)
}

type recorder struct {
	mu      sync.Mutex
	events  []string
	heights []uint64
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recorder) OnCandidateAdded(c *Candidate) { r.add("candidate:" + c.Name) }
func (r *recorder) OnVote(v *Vote)                { r.add("vote") }
func (r *recorder) OnElectionEnded(uint64)        { r.add("ended") }
func (r *recorder) OnCredentialMinted(_, _ common.Address, _ uint64) {
	r.add("minted")
}

func (r *recorder) OnCredentialAuthorized(_, _ common.Address, _ uint64) {
	r.add("authorized")
}

func (r *recorder) Commit(height uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heights = append(r.heights, height)
	return nil
}

func TestEvents(t *testing.T) {
	e, operator := newTestEngine(t)
	rec := &recorder{}
	e.AddEventListener(rec)
	rng := testutil.NewRandom(11)
	voter := rng.RandomAddress()

	_, err := e.AddCandidate(operator, "A")
	qt.Assert(t, err, qt.IsNil)
	giveCredential(t, e, operator, voter)
	qt.Assert(t, e.CastVote(voter, 1), qt.IsNil)
	// failed operations emit nothing
	qt.Assert(t, e.CastVote(voter, 1), qt.ErrorIs, ErrAlreadyVoted)
	qt.Assert(t, e.EndElection(operator), qt.IsNil)
	qt.Assert(t, e.Commit(1), qt.IsNil)

	want := []string{"candidate:A", "minted", "authorized", "vote", "ended"}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Fatalf("unexpected events (-want +got):\n%s", diff)
	}
	qt.Assert(t, rec.heights, qt.DeepEquals, []uint64{1})

	e.CleanEventListeners()
	qt.Assert(t, e.Commit(2), qt.IsNil)
	qt.Assert(t, rec.heights, qt.DeepEquals, []uint64{1})
}
