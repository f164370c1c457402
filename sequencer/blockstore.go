package sequencer

import (
	"encoding/binary"
	"errors"
	"fmt"

	"git.sr.ht/~sircmpwn/go-bare"
	"go.vocdoni.io/tokenvote/data/compressor"
	"go.vocdoni.io/tokenvote/db"
)

var (
	blockPrefix   = []byte("b/")
	receiptPrefix = []byte("r/")
	heightKey     = []byte("height")
)

// Block is the list of transactions delivered at a given height, in
// delivery order.
type Block struct {
	Height    uint64
	Timestamp int64
	Txs       [][]byte
}

// Receipt is the outcome of a delivered transaction.
type Receipt struct {
	Height uint64
	Index  uint32
	OK     bool
	Error  string
}

func blockKey(height uint64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte{}, blockPrefix...), height)
}

func receiptKey(hash []byte) []byte {
	return append(append([]byte{}, receiptPrefix...), hash...)
}

// blockStore persists blocks, receipts and the chain height.
type blockStore struct {
	db         db.Database
	compressor compressor.Compressor
}

func newBlockStore(database db.Database) *blockStore {
	return &blockStore{db: database, compressor: compressor.NewCompressor()}
}

func (bs *blockStore) height() (uint64, error) {
	raw, err := bs.db.Get(heightKey)
	if errors.Is(err, db.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("invalid height length %d", len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}

// commit stores the block, if it has any transaction, with its receipts and
// moves the height forward.
func (bs *blockStore) commit(block *Block, receipts map[string]*Receipt) error {
	wtx := bs.db.WriteTx()
	defer wtx.Discard()
	if len(block.Txs) > 0 {
		raw, err := bare.Marshal(block)
		if err != nil {
			return err
		}
		if err := wtx.Set(blockKey(block.Height), bs.compressor.CompressBytes(raw)); err != nil {
			return err
		}
	}
	for hash, r := range receipts {
		raw, err := bare.Marshal(r)
		if err != nil {
			return err
		}
		if err := wtx.Set(receiptKey([]byte(hash)), raw); err != nil {
			return err
		}
	}
	if err := wtx.Set(heightKey, binary.BigEndian.AppendUint64(nil, block.Height)); err != nil {
		return err
	}
	return wtx.Commit()
}

func (bs *blockStore) block(height uint64) (*Block, error) {
	raw, err := bs.db.Get(blockKey(height))
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, ErrBlockNotFound
	}
	if err != nil {
		return nil, err
	}
	if raw, err = bs.compressor.DecompressBytes(raw); err != nil {
		return nil, err
	}
	block := &Block{}
	if err := bare.Unmarshal(raw, block); err != nil {
		return nil, fmt.Errorf("cannot decode block %d: %w", height, err)
	}
	return block, nil
}

func (bs *blockStore) receipt(hash []byte) (*Receipt, error) {
	raw, err := bs.db.Get(receiptKey(hash))
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, ErrReceiptNotFound
	}
	if err != nil {
		return nil, err
	}
	r := &Receipt{}
	if err := bare.Unmarshal(raw, r); err != nil {
		return nil, fmt.Errorf("cannot decode receipt %x: %w", hash, err)
	}
	return r, nil
}
