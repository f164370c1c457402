package election

import (
	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/tokenvote/types"
)

// Candidate is an entry of the election roster. Ids are assigned
// sequentially starting at 1.
type Candidate struct {
	ID        uint64
	Name      string
	VoteCount uint64
}

// VoterRecord tracks whether an address has voted and for whom. The zero
// value is the record of an address that never voted.
type VoterRecord struct {
	HasVoted    bool
	CandidateID uint64
}

// Vote is emitted for every vote cast.
type Vote struct {
	Voter       common.Address
	CandidateID uint64
}

// Info is a summary of the election state.
type Info struct {
	Status         types.ElectionStatus
	Operator       common.Address
	CandidateCount uint64
	TotalVotes     uint64
}
