package indexer

import (
	"github.com/ethereum/go-ethereum/common"
)

// Credential event kinds.
const (
	KindMint      = "mint"
	KindAuthorize = "authorize"
)

// CandidateRecord is a candidate as indexed, with the height it was added at.
type CandidateRecord struct {
	ID            uint64 `json:"id"`
	Name          string `json:"name"`
	CreatedHeight uint64 `json:"createdHeight"`
}

// VoteRecord is an indexed vote.
type VoteRecord struct {
	Voter       common.Address `json:"voter"`
	CandidateID uint64         `json:"candidateId"`
	Height      uint64         `json:"height"`
	Position    uint32         `json:"position"`
}

// CredentialEvent is a mint or an authorization. For mints Owner is the
// receiver and Counterparty the minter; for authorizations Counterparty is
// the spender.
type CredentialEvent struct {
	Kind         string         `json:"kind"`
	Owner        common.Address `json:"owner"`
	Counterparty common.Address `json:"counterparty"`
	Amount       uint64         `json:"amount"`
	Height       uint64         `json:"height"`
}
