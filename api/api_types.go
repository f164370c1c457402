package api

import (
	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/tokenvote/indexer"
	"go.vocdoni.io/tokenvote/types"
)

// ChainInfo is the node and chain status.
type ChainInfo struct {
	ChainID        string `json:"chainId"`
	Height         uint64 `json:"height"`
	MempoolSize    int    `json:"mempoolSize"`
	ElectionStatus string `json:"electionStatus"`
	// Health is a number between 0 and 99, as bigger the better, or -1 if
	// it cannot be computed.
	Health int32 `json:"health"`
}

// Transaction is used to submit a signed transaction and reply with its hash.
type Transaction struct {
	Payload []byte         `json:"payload,omitempty"`
	Hash    types.HexBytes `json:"hash,omitempty"`
	Code    *uint32        `json:"code,omitempty"`
}

// TransactionReceipt is the outcome of a delivered transaction.
type TransactionReceipt struct {
	Hash   types.HexBytes `json:"hash"`
	Height uint64         `json:"height"`
	Index  uint32         `json:"index"`
	OK     bool           `json:"ok"`
	Error  string         `json:"error,omitempty"`
}

// Block is a produced block, with the hashes of its transactions.
type Block struct {
	Height    uint64           `json:"height"`
	Timestamp int64            `json:"timestamp"`
	Txs       []types.HexBytes `json:"txs"`
}

// ElectionInfo is the election summary.
type ElectionInfo struct {
	Status         string         `json:"status"`
	Operator       common.Address `json:"operator"`
	CandidateCount uint64         `json:"candidateCount"`
	TotalVotes     uint64         `json:"totalVotes"`
	EndHeight      *uint64        `json:"endHeight,omitempty"`
}

// Candidate is a registered candidate and its tally.
type Candidate struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	VoteCount uint64 `json:"voteCount"`
}

// CandidateList wraps a list of candidates.
type CandidateList struct {
	Candidates []*Candidate `json:"candidates"`
}

// VoteList is a page of votes.
type VoteList struct {
	Votes []*indexer.VoteRecord `json:"votes"`
}

// Voter is the participation record of an address.
type Voter struct {
	Address     common.Address      `json:"address"`
	HasVoted    bool                `json:"hasVoted"`
	CandidateID *uint64             `json:"candidateId,omitempty"`
	Vote        *indexer.VoteRecord `json:"vote,omitempty"`
}

// Credentials is the credential account of an address.
type Credentials struct {
	Address common.Address `json:"address"`
	Balance uint64         `json:"balance"`
	Nonce   uint64         `json:"nonce"`
	Minter  bool           `json:"minter"`
}

// Allowance is the amount a spender may consume from an owner.
type Allowance struct {
	Owner   common.Address `json:"owner"`
	Spender common.Address `json:"spender"`
	Amount  uint64         `json:"amount"`
}

// CredentialHistory is the list of credential events of an address.
type CredentialHistory struct {
	Events []*indexer.CredentialEvent `json:"events"`
}

// LogLevel is used to read and change the node log level.
type LogLevel struct {
	Level string `json:"level"`
}
