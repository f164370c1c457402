package sequencer

import (
	"fmt"

	"git.sr.ht/~sircmpwn/go-bare"
	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/tokenvote/crypto/ethereum"
)

// TxType identifies the operation carried by a transaction.
type TxType uint8

const (
	TxAddCandidate TxType = iota + 1
	TxCastVote
	TxEndElection
	TxMintCredential
	TxAuthorizeCredential
	TxGrantMinter
	TxRevokeMinter
)

var txTypeNames = map[TxType]string{
	TxAddCandidate:        "ADD_CANDIDATE",
	TxCastVote:            "CAST_VOTE",
	TxEndElection:         "END_ELECTION",
	TxMintCredential:      "MINT_CREDENTIAL",
	TxAuthorizeCredential: "AUTHORIZE_CREDENTIAL",
	TxGrantMinter:         "GRANT_MINTER",
	TxRevokeMinter:        "REVOKE_MINTER",
}

func (t TxType) String() string {
	if s, ok := txTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
}

// Tx is an unsigned transaction. Only the fields relevant to its Type are
// set, the rest keep their zero value.
type Tx struct {
	Type        TxType
	ChainID     string
	Nonce       uint64
	Name        string
	CandidateID uint64
	Address     []byte
	Amount      uint64
}

// Target returns Address as an account address.
func (tx *Tx) Target() common.Address {
	return common.BytesToAddress(tx.Address)
}

// Validate checks the transaction is well formed. Names and candidate ids
// are checked by the engine, after the caller and election state checks.
func (tx *Tx) Validate() error {
	switch tx.Type {
	case TxAddCandidate, TxCastVote, TxEndElection:
	case TxMintCredential, TxAuthorizeCredential, TxGrantMinter, TxRevokeMinter:
		if len(tx.Address) != common.AddressLength {
			return fmt.Errorf("%s: invalid address length %d", tx.Type, len(tx.Address))
		}
		if tx.Type == TxMintCredential && tx.Amount == 0 {
			return fmt.Errorf("%s: missing amount", tx.Type)
		}
	default:
		return fmt.Errorf("unknown tx type %d", tx.Type)
	}
	return nil
}

// Marshal encodes the transaction.
func (tx *Tx) Marshal() ([]byte, error) {
	return bare.Marshal(tx)
}

// Unmarshal decodes a transaction.
func (tx *Tx) Unmarshal(data []byte) error {
	return bare.Unmarshal(data, tx)
}

// SignedTx is a marshaled Tx together with the signature of its sender.
type SignedTx struct {
	Tx        []byte
	Signature []byte
}

// Marshal encodes the signed transaction.
func (stx *SignedTx) Marshal() ([]byte, error) {
	return bare.Marshal(stx)
}

// Unmarshal decodes a signed transaction.
func (stx *SignedTx) Unmarshal(data []byte) error {
	return bare.Unmarshal(data, stx)
}

// SignTx encodes and signs tx, returning the payload ready to be sent.
func SignTx(tx *Tx, signer *ethereum.SignKeys) ([]byte, error) {
	txBytes, err := tx.Marshal()
	if err != nil {
		return nil, err
	}
	signature, err := signer.Sign(txBytes)
	if err != nil {
		return nil, err
	}
	stx := &SignedTx{Tx: txBytes, Signature: signature}
	return stx.Marshal()
}

// DecodeTx decodes a signed transaction payload and recovers its sender.
func DecodeTx(payload []byte) (*Tx, common.Address, error) {
	stx := &SignedTx{}
	if err := stx.Unmarshal(payload); err != nil {
		return nil, common.Address{}, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}
	tx := &Tx{}
	if err := tx.Unmarshal(stx.Tx); err != nil {
		return nil, common.Address{}, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}
	if err := tx.Validate(); err != nil {
		return nil, common.Address{}, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}
	sender, err := ethereum.AddrFromSignature(stx.Tx, stx.Signature)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return tx, sender, nil
}

// TxHash returns the hash identifying a signed transaction payload.
func TxHash(payload []byte) []byte {
	return ethereum.HashRaw(payload)
}
