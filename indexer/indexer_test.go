package indexer

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/tokenvote/db/metadb"
	"go.vocdoni.io/tokenvote/election"
	"go.vocdoni.io/tokenvote/test/testcommon/testutil"
)

func newTestIndexer(t *testing.T) (*Indexer, *election.Engine, common.Address) {
	engine, err := election.New(metadb.NewTest(t))
	qt.Assert(t, err, qt.IsNil)
	rng := testutil.NewRandom(1)
	operator := rng.RandomAddress()
	qt.Assert(t, engine.Init(operator), qt.IsNil)
	idx, err := New(t.TempDir(), engine)
	qt.Assert(t, err, qt.IsNil)
	t.Cleanup(func() { idx.Close() })
	return idx, engine, operator
}

func vote(t *testing.T, e *election.Engine, operator, voter common.Address, candidate uint64) {
	t.Helper()
	qt.Assert(t, e.Mint(operator, voter, 1), qt.IsNil)
	qt.Assert(t, e.Authorize(voter, election.Address, 1), qt.IsNil)
	qt.Assert(t, e.CastVote(voter, candidate), qt.IsNil)
}

func TestIndexVotes(t *testing.T) {
	idx, e, operator := newTestIndexer(t)
	rng := testutil.NewRandom(2)

	_, err := e.AddCandidate(operator, "Candidate 1")
	qt.Assert(t, err, qt.IsNil)
	_, err = e.AddCandidate(operator, "Candidate 2")
	qt.Assert(t, err, qt.IsNil)

	// nothing is visible before the block is committed
	list, err := idx.CandidateList()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, list, qt.HasLen, 0)
	qt.Assert(t, e.Commit(1), qt.IsNil)

	list, err = idx.CandidateList()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, list, qt.DeepEquals, []*CandidateRecord{
		{ID: 1, Name: "Candidate 1", CreatedHeight: 1},
		{ID: 2, Name: "Candidate 2", CreatedHeight: 1},
	})

	var voters []common.Address
	for i := 0; i < 5; i++ {
		voter := rng.RandomAddress()
		voters = append(voters, voter)
		vote(t, e, operator, voter, 1)
	}
	qt.Assert(t, e.Commit(2), qt.IsNil)
	last := rng.RandomAddress()
	vote(t, e, operator, last, 2)
	qt.Assert(t, e.Commit(3), qt.IsNil)

	count, err := idx.CountVotes()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, count, qt.Equals, uint64(6))

	votes, err := idx.CandidateVotes(1, 0, 10)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, votes, qt.HasLen, 5)
	for i, v := range votes {
		qt.Assert(t, v, qt.DeepEquals, &VoteRecord{
			Voter: voters[i], CandidateID: 1, Height: 2, Position: uint32(i),
		})
	}
	votes, err = idx.CandidateVotes(1, 3, 10)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, votes, qt.HasLen, 2)
	qt.Assert(t, votes[0].Voter, qt.Equals, voters[3])

	v, err := idx.VoteByVoter(last)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, v, qt.DeepEquals, &VoteRecord{Voter: last, CandidateID: 2, Height: 3})

	_, err = idx.VoteByVoter(rng.RandomAddress())
	qt.Assert(t, err, qt.ErrorIs, ErrNotFound)

	_, err = idx.EndHeight()
	qt.Assert(t, err, qt.ErrorIs, ErrNotFound)
	qt.Assert(t, e.EndElection(operator), qt.IsNil)
	qt.Assert(t, e.Commit(4), qt.IsNil)
	height, err := idx.EndHeight()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, height, qt.Equals, uint64(4))
}

func TestCredentialHistory(t *testing.T) {
	idx, e, operator := newTestIndexer(t)
	rng := testutil.NewRandom(3)
	voter := rng.RandomAddress()

	qt.Assert(t, e.Mint(operator, voter, 3), qt.IsNil)
	qt.Assert(t, e.Commit(1), qt.IsNil)
	qt.Assert(t, e.Authorize(voter, election.Address, 1), qt.IsNil)
	qt.Assert(t, e.Commit(2), qt.IsNil)

	history, err := idx.CredentialHistory(voter, 10)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, history, qt.DeepEquals, []*CredentialEvent{
		{Kind: KindAuthorize, Owner: voter, Counterparty: election.Address, Amount: 1, Height: 2},
		{Kind: KindMint, Owner: voter, Counterparty: operator, Amount: 3, Height: 1},
	})

	history, err = idx.CredentialHistory(operator, 10)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, history, qt.HasLen, 1)

	history, err = idx.CredentialHistory(voter, 1)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, history, qt.HasLen, 1)
	qt.Assert(t, history[0].Kind, qt.Equals, KindAuthorize)
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()
	engine, err := election.New(metadb.NewTest(t))
	qt.Assert(t, err, qt.IsNil)
	rng := testutil.NewRandom(4)
	operator := rng.RandomAddress()
	qt.Assert(t, engine.Init(operator), qt.IsNil)

	idx, err := New(dir, engine)
	qt.Assert(t, err, qt.IsNil)
	vote(t, engine, operator, operator, mustAdd(t, engine, operator, "A"))
	qt.Assert(t, engine.Commit(1), qt.IsNil)
	qt.Assert(t, idx.Close(), qt.IsNil)

	// migrations are not applied twice and the data is kept
	idx, err = New(dir, nil)
	qt.Assert(t, err, qt.IsNil)
	defer idx.Close()
	count, err := idx.CountVotes()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, count, qt.Equals, uint64(1))
}

func mustAdd(t *testing.T, e *election.Engine, operator common.Address, name string) uint64 {
	id, err := e.AddCandidate(operator, name)
	qt.Assert(t, err, qt.IsNil)
	return id
}
