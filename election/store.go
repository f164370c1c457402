package election

import (
	"encoding/binary"
	"errors"
	"fmt"

	"git.sr.ht/~sircmpwn/go-bare"
	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/tokenvote/db"
	"go.vocdoni.io/tokenvote/types"
)

var (
	candidatePrefix = []byte("c/")
	voterPrefix     = []byte("v/")
	statusKey       = []byte("status")
	countKey        = []byte("count")
	operatorKey     = []byte("operator")
	votesKey        = []byte("votes")
)

func candidateKey(id uint64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte{}, candidatePrefix...), id)
}

func voterKey(addr common.Address) []byte {
	return append(append([]byte{}, voterPrefix...), addr.Bytes()...)
}

func getUint64(rd db.Reader, key []byte) (uint64, error) {
	raw, err := rd.Get(key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("invalid %s value length %d", key, len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}

func setUint64(tx db.WriteTx, key []byte, v uint64) error {
	return tx.Set(key, binary.BigEndian.AppendUint64(nil, v))
}

func getOperator(rd db.Reader) (common.Address, error) {
	raw, err := rd.Get(operatorKey)
	if errors.Is(err, db.ErrKeyNotFound) {
		return common.Address{}, ErrNotInitialized
	}
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(raw), nil
}

func getStatus(rd db.Reader) (types.ElectionStatus, error) {
	raw, err := rd.Get(statusKey)
	if errors.Is(err, db.ErrKeyNotFound) {
		return types.StatusOpen, nil
	}
	if err != nil {
		return 0, err
	}
	if len(raw) != 1 {
		return 0, fmt.Errorf("invalid status value length %d", len(raw))
	}
	return types.ElectionStatus(raw[0]), nil
}

func setStatus(tx db.WriteTx, status types.ElectionStatus) error {
	return tx.Set(statusKey, []byte{byte(status)})
}

func getCandidate(rd db.Reader, id uint64) (*Candidate, error) {
	raw, err := rd.Get(candidateKey(id))
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	c := &Candidate{}
	if err := bare.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("cannot decode candidate %d: %w", id, err)
	}
	return c, nil
}

func setCandidate(tx db.WriteTx, c *Candidate) error {
	raw, err := bare.Marshal(c)
	if err != nil {
		return err
	}
	return tx.Set(candidateKey(c.ID), raw)
}

func listCandidates(rd db.Reader) ([]*Candidate, error) {
	var list []*Candidate
	var decodeErr error
	err := rd.Iterate(candidatePrefix, func(_, value []byte) bool {
		c := &Candidate{}
		if decodeErr = bare.Unmarshal(value, c); decodeErr != nil {
			return false
		}
		list = append(list, c)
		return true
	})
	if err != nil {
		return nil, err
	}
	return list, decodeErr
}

func getVoter(rd db.Reader, addr common.Address) (VoterRecord, error) {
	var rec VoterRecord
	raw, err := rd.Get(voterKey(addr))
	if errors.Is(err, db.ErrKeyNotFound) {
		return rec, nil
	}
	if err != nil {
		return rec, err
	}
	if err := bare.Unmarshal(raw, &rec); err != nil {
		return rec, fmt.Errorf("cannot decode voter %s: %w", addr, err)
	}
	return rec, nil
}

func setVoter(tx db.WriteTx, addr common.Address, rec VoterRecord) error {
	raw, err := bare.Marshal(&rec)
	if err != nil {
		return err
	}
	return tx.Set(voterKey(addr), raw)
}
