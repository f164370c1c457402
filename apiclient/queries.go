package apiclient

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/tokenvote/api"
	"go.vocdoni.io/tokenvote/types"
)

// ChainInfo returns the chain status.
func (c *HTTPclient) ChainInfo() (*api.ChainInfo, error) {
	info := &api.ChainInfo{}
	return info, c.request(HTTPGET, nil, info, "chain", "info")
}

// TransactionReceipt returns the receipt of a delivered transaction.
func (c *HTTPclient) TransactionReceipt(hash types.HexBytes) (*api.TransactionReceipt, error) {
	r := &api.TransactionReceipt{}
	return r, c.request(HTTPGET, nil, r, "chain", "transactions", hash.String())
}

// Block returns the hashes of the transactions included at height.
func (c *HTTPclient) Block(height uint64) (*api.Block, error) {
	b := &api.Block{}
	return b, c.request(HTTPGET, nil, b, "chain", "blocks", strconv.FormatUint(height, 10))
}

// Election returns the election summary.
func (c *HTTPclient) Election() (*api.ElectionInfo, error) {
	info := &api.ElectionInfo{}
	return info, c.request(HTTPGET, nil, info, "election")
}

// Candidates returns every candidate with its tally.
func (c *HTTPclient) Candidates() ([]*api.Candidate, error) {
	list := &api.CandidateList{}
	if err := c.request(HTTPGET, nil, list, "election", "candidates"); err != nil {
		return nil, err
	}
	return list.Candidates, nil
}

// Candidate returns a candidate by id.
func (c *HTTPclient) Candidate(id uint64) (*api.Candidate, error) {
	cand := &api.Candidate{}
	return cand, c.request(HTTPGET, nil, cand, "election", "candidates", strconv.FormatUint(id, 10))
}

// CandidateVotes returns a page of the votes received by a candidate.
func (c *HTTPclient) CandidateVotes(id uint64, page int) (*api.VoteList, error) {
	list := &api.VoteList{}
	return list, c.request(HTTPGET, nil, list,
		"election", "candidates", strconv.FormatUint(id, 10), "votes", "page", strconv.Itoa(page))
}

// Winner returns the winning candidate of an ended election.
func (c *HTTPclient) Winner() (*api.Candidate, error) {
	cand := &api.Candidate{}
	return cand, c.request(HTTPGET, nil, cand, "election", "winner")
}

// Voter returns the participation record of addr.
func (c *HTTPclient) Voter(addr common.Address) (*api.Voter, error) {
	v := &api.Voter{}
	return v, c.request(HTTPGET, nil, v, "election", "voters", addr.Hex())
}

// Credentials returns the credential account of addr.
func (c *HTTPclient) Credentials(addr common.Address) (*api.Credentials, error) {
	creds := &api.Credentials{}
	return creds, c.request(HTTPGET, nil, creds, "credentials", addr.Hex())
}

// Allowance returns the amount spender may consume from owner.
func (c *HTTPclient) Allowance(owner, spender common.Address) (uint64, error) {
	a := &api.Allowance{}
	if err := c.request(HTTPGET, nil, a, "credentials", owner.Hex(), "allowance", spender.Hex()); err != nil {
		return 0, err
	}
	return a.Amount, nil
}

// CredentialHistory returns the latest credential events of addr.
func (c *HTTPclient) CredentialHistory(addr common.Address) (*api.CredentialHistory, error) {
	h := &api.CredentialHistory{}
	return h, c.request(HTTPGET, nil, h, "credentials", addr.Hex(), "history")
}

// SetLogLevel changes the node log level. It requires the admin token.
func (c *HTTPclient) SetLogLevel(level string) error {
	return c.request(HTTPPOST, &api.LogLevel{Level: level}, nil, "admin", "loglevel")
}
