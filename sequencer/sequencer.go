// Package sequencer linearizes every mutation of the election as a signed
// transaction. Transactions are admitted into a mempool after a dry run, and
// delivered in arrival order in blocks produced by a single node.
package sequencer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/enriquebris/goconcurrentqueue"
	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/tokenvote/db"
	"go.vocdoni.io/tokenvote/election"
	"go.vocdoni.io/tokenvote/log"
	"go.vocdoni.io/tokenvote/types"
)

const (
	DefaultTxsPerBlock     = 500
	DefaultBlockTimeTarget = time.Second * 2
	mempoolSize            = 100 << 10
	receiptPollInterval    = 100 * time.Millisecond
)

// noncePrefix keeps the account nonces next to the election tables, so a
// nonce moves in the same transaction as the operation it authorizes.
var noncePrefix = []byte("n/")

// TxResponse is returned on transaction submission.
type TxResponse struct {
	Hash types.HexBytes
	Code uint32
	Log  string
}

type mempoolTx struct {
	payload []byte
	hash    []byte
	tx      *Tx
	sender  common.Address
}

// Sequencer is a single node block producer for the election engine.
type Sequencer struct {
	engine          *election.Engine
	chainID         string
	mempool         *goconcurrentqueue.FixedFIFO
	blocks          *blockStore
	height          atomic.Uint64
	blockTimeTarget time.Duration
	txsPerBlock     int

	pendingMu sync.Mutex
	pending   map[string]struct{}
	produceMu sync.Mutex
}

// New returns a Sequencer delivering transactions to engine and storing
// blocks and receipts in blockStore.
func New(engine *election.Engine, blockStore db.Database, chainID string) (*Sequencer, error) {
	s := &Sequencer{
		engine:          engine,
		chainID:         chainID,
		mempool:         goconcurrentqueue.NewFixedFIFO(mempoolSize),
		blocks:          newBlockStore(blockStore),
		blockTimeTarget: DefaultBlockTimeTarget,
		txsPerBlock:     DefaultTxsPerBlock,
		pending:         make(map[string]struct{}),
	}
	height, err := s.blocks.height()
	if err != nil {
		return nil, fmt.Errorf("cannot load height: %w", err)
	}
	s.height.Store(height)
	return s, nil
}

// SetBlockTimeTarget configures the time window in which blocks will be created.
func (s *Sequencer) SetBlockTimeTarget(targetTime time.Duration) {
	s.blockTimeTarget = targetTime
}

// SetBlockSize configures the maximum number of transactions per block.
func (s *Sequencer) SetBlockSize(txsCount int) {
	s.txsPerBlock = txsCount
}

// ChainID returns the chain identifier transactions must be signed for.
func (s *Sequencer) ChainID() string {
	return s.chainID
}

// Height returns the height of the last produced block.
func (s *Sequencer) Height() uint64 {
	return s.height.Load()
}

// MempoolSize returns the number of transactions waiting to be delivered.
func (s *Sequencer) MempoolSize() int {
	return s.mempool.GetLen()
}

// FundAccount mints amount credentials to addr on behalf of the operator.
// It is meant for genesis funding, before the sequencer starts.
func (s *Sequencer) FundAccount(addr common.Address, amount uint64) error {
	operator, err := s.engine.Operator()
	if err != nil {
		return err
	}
	if err := s.engine.Mint(operator, addr, amount); err != nil {
		return fmt.Errorf("cannot fund %s: %w", addr, err)
	}
	log.Infow("funded account", "address", addr.Hex(), "amount", amount)
	return nil
}

// Nonce returns the nonce the next transaction of addr must carry.
func (s *Sequencer) Nonce(addr common.Address) (uint64, error) {
	var nonce uint64
	err := s.engine.Read(noncePrefix, func(rd db.Reader) (err error) {
		nonce, err = getNonce(rd, addr)
		return err
	})
	return nonce, err
}

func getNonce(rd db.Reader, addr common.Address) (uint64, error) {
	raw, err := rd.Get(addr.Bytes())
	if errors.Is(err, db.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("invalid nonce length %d", len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}

// useNonce checks the transaction nonce against the stored one and moves the
// stored one forward.
func useNonce(txn *election.Txn, addr common.Address, nonce uint64) error {
	store := txn.Store(noncePrefix)
	current, err := getNonce(store, addr)
	if err != nil {
		return err
	}
	if nonce != current {
		return fmt.Errorf("%w: got %d, expected %d", ErrInvalidNonce, nonce, current)
	}
	return store.Set(addr.Bytes(), binary.BigEndian.AppendUint64(nil, current+1))
}

// Receipt returns the receipt of a delivered transaction.
func (s *Sequencer) Receipt(hash []byte) (*Receipt, error) {
	return s.blocks.receipt(hash)
}

// WaitForReceipt blocks until the transaction is delivered or ctx is done.
func (s *Sequencer) WaitForReceipt(ctx context.Context, hash []byte) (*Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()
	for {
		r, err := s.blocks.receipt(hash)
		if !errors.Is(err, ErrReceiptNotFound) {
			return r, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Block returns the block at height. Heights without transactions return an
// empty block.
func (s *Sequencer) Block(height uint64) (*Block, error) {
	if height == 0 || height > s.Height() {
		return nil, ErrBlockNotFound
	}
	block, err := s.blocks.block(height)
	if errors.Is(err, ErrBlockNotFound) {
		return &Block{Height: height}, nil
	}
	return block, err
}

// SendTx checks a signed transaction payload and queues it for delivery.
// Transactions carrying the sender next nonce are dry run against the
// current state; later nonces are queued as they are.
func (s *Sequencer) SendTx(payload []byte) (*TxResponse, error) {
	hash := TxHash(payload)
	resp := &TxResponse{Hash: hash, Code: 1}
	mtx, err := s.checkTx(payload, hash)
	if err != nil {
		log.Debugw("checkTx failed", "hash", fmt.Sprintf("%x", hash), "error", err)
		resp.Log = err.Error()
		return resp, err
	}

	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if _, ok := s.pending[string(hash)]; ok {
		resp.Log = ErrTxKnown.Error()
		return resp, ErrTxKnown
	}
	if err := s.mempool.Enqueue(mtx); err != nil {
		resp.Log = ErrMempoolFull.Error()
		return resp, ErrMempoolFull
	}
	s.pending[string(hash)] = struct{}{}
	mempoolGauge.Set(float64(s.mempool.GetLen()))
	resp.Code = 0
	return resp, nil
}

func (s *Sequencer) checkTx(payload, hash []byte) (*mempoolTx, error) {
	tx, sender, err := DecodeTx(payload)
	if err != nil {
		return nil, err
	}
	if tx.ChainID != s.chainID {
		return nil, fmt.Errorf("%w: %q", ErrInvalidChainID, tx.ChainID)
	}
	if _, err := s.blocks.receipt(hash); err == nil {
		return nil, ErrTxKnown
	}
	err = s.engine.Simulate(func(txn *election.Txn) error {
		current, err := getNonce(txn.Store(noncePrefix), sender)
		if err != nil {
			return err
		}
		if tx.Nonce < current {
			return fmt.Errorf("%w: got %d, expected at least %d", ErrInvalidNonce, tx.Nonce, current)
		}
		if tx.Nonce > current {
			return nil
		}
		return applyTx(txn, sender, tx)
	})
	if err != nil {
		return nil, err
	}
	return &mempoolTx{payload: payload, hash: hash, tx: tx, sender: sender}, nil
}

// applyTx runs the operation carried by tx on behalf of sender.
func applyTx(txn *election.Txn, sender common.Address, tx *Tx) error {
	switch tx.Type {
	case TxAddCandidate:
		_, err := txn.AddCandidate(sender, tx.Name)
		return err
	case TxCastVote:
		return txn.CastVote(sender, tx.CandidateID)
	case TxEndElection:
		return txn.EndElection(sender)
	case TxMintCredential:
		return txn.Mint(sender, tx.Target(), tx.Amount)
	case TxAuthorizeCredential:
		return txn.Authorize(sender, tx.Target(), tx.Amount)
	case TxGrantMinter:
		return txn.GrantMinter(sender, tx.Target())
	case TxRevokeMinter:
		return txn.RevokeMinter(sender, tx.Target())
	default:
		return fmt.Errorf("%w: unknown tx type %d", ErrInvalidTx, tx.Type)
	}
}

// deliverTx applies a transaction to the engine. A transaction whose
// operation fails still uses its nonce, so later transactions of the same
// sender are not blocked.
func (s *Sequencer) deliverTx(mtx *mempoolTx) *Receipt {
	err := s.engine.Update(func(txn *election.Txn) error {
		if err := useNonce(txn, mtx.sender, mtx.tx.Nonce); err != nil {
			return err
		}
		return applyTx(txn, mtx.sender, mtx.tx)
	})
	if err == nil {
		txsDelivered.WithLabelValues(mtx.tx.Type.String(), "ok").Inc()
		return &Receipt{OK: true}
	}
	txsDelivered.WithLabelValues(mtx.tx.Type.String(), "error").Inc()
	log.Debugw("deliver tx failed", "type", mtx.tx.Type.String(),
		"sender", mtx.sender.Hex(), "error", err)
	if !errors.Is(err, ErrInvalidNonce) {
		if nerr := s.engine.Update(func(txn *election.Txn) error {
			return useNonce(txn, mtx.sender, mtx.tx.Nonce)
		}); nerr != nil {
			log.Warnf("cannot use nonce of failed tx %x: %v", mtx.hash, nerr)
		}
	}
	return &Receipt{Error: err.Error()}
}

// ProduceBlock delivers up to the block size pending transactions, stores
// the block with their receipts and notifies the engine listeners.
func (s *Sequencer) ProduceBlock() (*Block, error) {
	s.produceMu.Lock()
	defer s.produceMu.Unlock()

	height := s.height.Load() + 1
	block := &Block{Height: height, Timestamp: time.Now().Unix()}
	receipts := make(map[string]*Receipt)
	for len(block.Txs) < s.txsPerBlock {
		item, err := s.mempool.Dequeue()
		if err != nil {
			// empty queue
			break
		}
		mtx := item.(*mempoolTx)
		r := s.deliverTx(mtx)
		r.Height = height
		r.Index = uint32(len(block.Txs))
		block.Txs = append(block.Txs, mtx.payload)
		receipts[string(mtx.hash)] = r
	}
	if err := s.blocks.commit(block, receipts); err != nil {
		return nil, fmt.Errorf("cannot commit block %d: %w", height, err)
	}
	s.height.Store(height)
	heightGauge.Set(float64(height))
	mempoolGauge.Set(float64(s.mempool.GetLen()))

	s.pendingMu.Lock()
	for hash := range receipts {
		delete(s.pending, hash)
	}
	s.pendingMu.Unlock()

	if len(block.Txs) > 0 {
		log.Infof("stored %d transactions on block %d", len(block.Txs), height)
	}
	if err := s.engine.Commit(height); err != nil {
		return block, fmt.Errorf("cannot commit listeners at height %d: %w", height, err)
	}
	return block, nil
}

// Start produces blocks until ctx is done. It blocks, so it is usually run
// in its own goroutine.
func (s *Sequencer) Start(ctx context.Context) {
	log.Infow("starting block production",
		"chainID", s.chainID, "height", s.Height(), "blockTime", s.blockTimeTarget.String())
	for {
		lastBlockTime := time.Now()
		if _, err := s.ProduceBlock(); err != nil {
			log.Errorf("block production: %v", err)
		}
		select {
		case <-ctx.Done():
			log.Infow("block production stopped", "height", s.Height())
			return
		case <-time.After(s.blockTimeTarget - time.Since(lastBlockTime)):
		}
	}
}
