package sequencer

import "errors"

var (
	// ErrInvalidTx is returned for payloads that cannot be decoded or miss
	// required fields.
	ErrInvalidTx = errors.New("invalid transaction")
	// ErrInvalidSignature is returned when the sender cannot be recovered.
	ErrInvalidSignature = errors.New("invalid transaction signature")
	// ErrInvalidChainID is returned for transactions signed for another
	// chain.
	ErrInvalidChainID = errors.New("invalid chain id")
	// ErrInvalidNonce is returned when the transaction nonce does not match
	// the sender account nonce.
	ErrInvalidNonce = errors.New("invalid nonce")
	// ErrMempoolFull is returned when no more transactions can be queued.
	ErrMempoolFull = errors.New("mempool is full")
	// ErrTxKnown is returned for transactions already queued or included.
	ErrTxKnown = errors.New("transaction already known")
	// ErrReceiptNotFound is returned for unknown transaction hashes.
	ErrReceiptNotFound = errors.New("receipt not found")
	// ErrBlockNotFound is returned for heights not produced yet.
	ErrBlockNotFound = errors.New("block not found")
)
