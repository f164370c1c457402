package goleveldb

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.vocdoni.io/tokenvote/db"
)

// LevelDB implements db.Database on top of goleveldb.
type LevelDB struct {
	db *leveldb.DB
}

// Ensure that LevelDB implements the db.Database interface
var _ db.Database = (*LevelDB)(nil)

// New returns a LevelDB which implements the db.Database interface
func New(opts db.Options) (*LevelDB, error) {
	ldb, err := leveldb.OpenFile(opts.Path, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("could not open leveldb: %w", err)
	}
	return &LevelDB{db: ldb}, nil
}

// NewMemory returns a LevelDB whose data lives only in memory.
func NewMemory() (*LevelDB, error) {
	ldb, err := leveldb.Open(storage.NewMemStorage(), &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("could not open memory leveldb: %w", err)
	}
	return &LevelDB{db: ldb}, nil
}

// Close implements the db.Database.Close interface method.
func (d *LevelDB) Close() error {
	return d.db.Close()
}

// WriteTx implements the db.Database.WriteTx interface method.
func (d *LevelDB) WriteTx() db.WriteTx {
	return &WriteTx{
		db:    d.db,
		batch: new(leveldb.Batch),
	}
}

// Get implements the db.Database.Get interface method.
func (d *LevelDB) Get(key []byte) ([]byte, error) {
	val, err := d.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Iterate implements the db.Database.Iterate interface method.
func (d *LevelDB) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	iter := d.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		if !callback(iter.Key()[len(prefix):], iter.Value()) {
			break
		}
	}
	return iter.Error()
}

// Compact implements the db.Database.Compact interface method.
func (d *LevelDB) Compact() error {
	return d.db.CompactRange(util.Range{})
}

// pending is a write kept in memory until commit. A nil value is a deletion.
type pending struct {
	value []byte
}

// WriteTx implements the interface db.WriteTx for goleveldb. Writes are kept
// both in a leveldb.Batch and in an in-memory overlay, so they can be read
// back before Commit.
type WriteTx struct {
	mu      sync.RWMutex
	batch   *leveldb.Batch
	db      *leveldb.DB
	overlay map[string]pending
}

// check that WriteTx implements the db.WriteTx interface
var _ db.WriteTx = (*WriteTx)(nil)

// Get implements the db.WriteTx.Get interface method.
func (tx *WriteTx) Get(k []byte) ([]byte, error) {
	tx.mu.RLock()
	defer tx.mu.RUnlock()
	if tx.batch == nil {
		return nil, db.ErrTxClosed
	}
	if p, ok := tx.overlay[string(k)]; ok {
		if p.value == nil {
			return nil, db.ErrKeyNotFound
		}
		return bytes.Clone(p.value), nil
	}
	val, err := tx.db.Get(k, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, db.ErrKeyNotFound
	}
	return val, err
}

// Iterate implements the db.WriteTx.Iterate interface method. The overlay is
// merged with the committed data so keys are still visited in order.
func (tx *WriteTx) Iterate(prefix []byte, callback func(k, v []byte) bool) error {
	tx.mu.RLock()
	if tx.batch == nil {
		tx.mu.RUnlock()
		return db.ErrTxClosed
	}
	merged := make(map[string][]byte)
	iter := tx.db.NewIterator(util.BytesPrefix(prefix), nil)
	for iter.Next() {
		merged[string(iter.Key())] = bytes.Clone(iter.Value())
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		tx.mu.RUnlock()
		return err
	}
	for k, p := range tx.overlay {
		if !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		if p.value == nil {
			delete(merged, k)
			continue
		}
		merged[k] = p.value
	}
	tx.mu.RUnlock()

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !callback([]byte(k)[len(prefix):], merged[k]) {
			break
		}
	}
	return nil
}

// Set implements the db.WriteTx.Set interface method.
func (tx *WriteTx) Set(k, v []byte) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.batch == nil {
		return db.ErrTxClosed
	}
	if v == nil {
		v = []byte{}
	}
	tx.batch.Put(k, v)
	tx.overlayStore(k, pending{value: bytes.Clone(v)})
	return nil
}

// Delete implements the db.WriteTx.Delete interface method.
func (tx *WriteTx) Delete(k []byte) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.batch == nil {
		return db.ErrTxClosed
	}
	tx.batch.Delete(k)
	tx.overlayStore(k, pending{})
	return nil
}

func (tx *WriteTx) overlayStore(k []byte, p pending) {
	if tx.overlay == nil {
		tx.overlay = make(map[string]pending)
	}
	tx.overlay[string(k)] = p
}

// Apply implements the db.WriteTx.Apply interface method.
func (tx *WriteTx) Apply(other db.WriteTx) error {
	otherTx, ok := db.UnwrapWriteTx(other).(*WriteTx)
	if !ok {
		return fmt.Errorf("cannot apply %T into a leveldb tx", other)
	}
	otherTx.mu.RLock()
	defer otherTx.mu.RUnlock()
	for k, p := range otherTx.overlay {
		var err error
		if p.value == nil {
			err = tx.Delete([]byte(k))
		} else {
			err = tx.Set([]byte(k), p.value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Commit implements the db.WriteTx.Commit interface method.
func (tx *WriteTx) Commit() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.batch == nil {
		return db.ErrTxClosed
	}
	err := tx.db.Write(tx.batch, nil)
	tx.batch = nil
	tx.overlay = nil
	return err
}

// Discard implements the db.WriteTx.Discard interface method.
func (tx *WriteTx) Discard() {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.batch = nil
	tx.overlay = nil
}
