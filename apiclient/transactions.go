package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/tokenvote/api"
	"go.vocdoni.io/tokenvote/election"
	"go.vocdoni.io/tokenvote/log"
	"go.vocdoni.io/tokenvote/sequencer"
	"go.vocdoni.io/tokenvote/types"
)

const receiptPollInterval = 200 * time.Millisecond

var (
	// ErrNoAccount is returned when a transaction is built without an account.
	ErrNoAccount = errors.New("no account configured for signing transactions")
	// ErrTxFailed is returned when a transaction is delivered but its operation failed.
	ErrTxFailed = errors.New("transaction failed")
)

// SendTx signs tx with the client account and submits it. ChainID and Nonce
// are filled in by the client.
func (c *HTTPclient) SendTx(tx *sequencer.Tx) (types.HexBytes, error) {
	if c.account == nil {
		return nil, ErrNoAccount
	}
	creds, err := c.Credentials(c.account.Address())
	if err != nil {
		return nil, fmt.Errorf("cannot get nonce: %w", err)
	}
	tx.ChainID = c.chainID
	tx.Nonce = creds.Nonce
	payload, err := sequencer.SignTx(tx, c.account)
	if err != nil {
		return nil, err
	}
	resp := &api.Transaction{}
	if err := c.request(HTTPPOST, &api.Transaction{Payload: payload}, resp, "chain", "transactions"); err != nil {
		return nil, err
	}
	log.Debugw("transaction sent", "type", tx.Type.String(), "hash", resp.Hash.String(), "nonce", tx.Nonce)
	return resp.Hash, nil
}

// WaitForReceipt polls the node until the transaction is delivered or ctx
// is done.
func (c *HTTPclient) WaitForReceipt(ctx context.Context, hash types.HexBytes) (*api.TransactionReceipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()
	for {
		r, err := c.TransactionReceipt(hash)
		if err == nil {
			return r, nil
		}
		var apiErr *APIerror
		if !errors.As(err, &apiErr) || apiErr.HTTPstatus != http.StatusNotFound {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transaction %s not delivered: %w", hash, ctx.Err())
		case <-ticker.C:
		}
	}
}

// sendAndWait submits tx and waits for its receipt. A delivered transaction
// whose operation failed returns ErrTxFailed.
func (c *HTTPclient) sendAndWait(ctx context.Context, tx *sequencer.Tx) (*api.TransactionReceipt, error) {
	hash, err := c.SendTx(tx)
	if err != nil {
		return nil, err
	}
	r, err := c.WaitForReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !r.OK {
		return r, fmt.Errorf("%w: %s", ErrTxFailed, r.Error)
	}
	return r, nil
}

// AddCandidate registers a candidate. The account must be the operator.
func (c *HTTPclient) AddCandidate(ctx context.Context, name string) (*api.TransactionReceipt, error) {
	return c.sendAndWait(ctx, &sequencer.Tx{Type: sequencer.TxAddCandidate, Name: name})
}

// CastVote votes for a candidate. The account must have authorized the
// election custody address to consume its credential.
func (c *HTTPclient) CastVote(ctx context.Context, candidateID uint64) (*api.TransactionReceipt, error) {
	return c.sendAndWait(ctx, &sequencer.Tx{Type: sequencer.TxCastVote, CandidateID: candidateID})
}

// Vote authorizes the custody address for the vote cost, if the current
// allowance does not cover it, and votes for a candidate.
func (c *HTTPclient) Vote(ctx context.Context, candidateID uint64) (*api.TransactionReceipt, error) {
	if c.account == nil {
		return nil, ErrNoAccount
	}
	allowance, err := c.Allowance(c.account.Address(), election.Address)
	if err != nil {
		return nil, err
	}
	if allowance < types.VoteCost {
		if _, err := c.Authorize(ctx, election.Address, types.VoteCost); err != nil {
			return nil, fmt.Errorf("cannot authorize vote: %w", err)
		}
	}
	return c.CastVote(ctx, candidateID)
}

// EndElection closes the election. The account must be the operator.
func (c *HTTPclient) EndElection(ctx context.Context) (*api.TransactionReceipt, error) {
	return c.sendAndWait(ctx, &sequencer.Tx{Type: sequencer.TxEndElection})
}

// Mint creates amount credentials for to. The account must be a minter.
func (c *HTTPclient) Mint(ctx context.Context, to common.Address, amount uint64) (*api.TransactionReceipt, error) {
	return c.sendAndWait(ctx, &sequencer.Tx{
		Type: sequencer.TxMintCredential, Address: to.Bytes(), Amount: amount,
	})
}

// Authorize sets the amount of credentials spender may consume from the account.
func (c *HTTPclient) Authorize(ctx context.Context, spender common.Address, amount uint64) (*api.TransactionReceipt, error) {
	return c.sendAndWait(ctx, &sequencer.Tx{
		Type: sequencer.TxAuthorizeCredential, Address: spender.Bytes(), Amount: amount,
	})
}

// GrantMinter gives the minter role to addr. The account must be the ledger admin.
func (c *HTTPclient) GrantMinter(ctx context.Context, addr common.Address) (*api.TransactionReceipt, error) {
	return c.sendAndWait(ctx, &sequencer.Tx{Type: sequencer.TxGrantMinter, Address: addr.Bytes()})
}
