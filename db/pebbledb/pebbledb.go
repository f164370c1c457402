package pebbledb

import (
	"errors"
	"fmt"
	"os"

	"github.com/cockroachdb/pebble"
	"go.vocdoni.io/tokenvote/db"
)

// WriteTx implements the interface db.WriteTx
type WriteTx struct {
	batch *pebble.Batch
}

// check that WriteTx implements the db.WriteTx interface
var _ db.WriteTx = (*WriteTx)(nil)

func get(reader pebble.Reader, k []byte) ([]byte, error) {
	v, closer, err := reader.Get(k)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	// The returned slice is only valid until closer is closed.
	v2 := make([]byte, len(v))
	copy(v2, v)
	if err := closer.Close(); err != nil {
		return nil, err
	}
	return v2, nil
}

func iterate(reader pebble.Reader, prefix []byte, callback func(k, v []byte) bool) (err error) {
	iter, err := reader.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer func() {
		errC := iter.Close()
		if err != nil {
			return
		}
		err = errC
	}()

	for iter.First(); iter.Valid(); iter.Next() {
		if !callback(iter.Key()[len(prefix):], iter.Value()) {
			break
		}
	}
	return iter.Error()
}

// Get implements the db.WriteTx.Get interface method
func (tx *WriteTx) Get(k []byte) ([]byte, error) {
	if tx.batch == nil {
		return nil, db.ErrTxClosed
	}
	return get(tx.batch, k)
}

// Iterate implements the db.WriteTx.Iterate interface method
func (tx *WriteTx) Iterate(prefix []byte, callback func(k, v []byte) bool) error {
	if tx.batch == nil {
		return db.ErrTxClosed
	}
	return iterate(tx.batch, prefix, callback)
}

// Set implements the db.WriteTx.Set interface method
func (tx *WriteTx) Set(k, v []byte) error {
	return tx.batch.Set(k, v, nil)
}

// Delete implements the db.WriteTx.Delete interface method
func (tx *WriteTx) Delete(k []byte) error {
	return tx.batch.Delete(k, nil)
}

// Apply implements the db.WriteTx.Apply interface method
func (tx *WriteTx) Apply(other db.WriteTx) error {
	otherPebble, ok := db.UnwrapWriteTx(other).(*WriteTx)
	if !ok {
		return fmt.Errorf("cannot apply %T into a pebble tx", other)
	}
	return tx.batch.Apply(otherPebble.batch, nil)
}

// Commit implements the db.WriteTx.Commit interface method
func (tx *WriteTx) Commit() error {
	if tx.batch == nil {
		return db.ErrTxClosed
	}
	err := tx.batch.Commit(nil)
	tx.batch = nil
	return err
}

// Discard implements the db.WriteTx.Discard interface method
func (tx *WriteTx) Discard() {
	if tx.batch == nil {
		// Pebble pools its batches, closing twice would race with
		// whoever reused it.
		return
	}
	_ = tx.batch.Close()
	tx.batch = nil
}

// PebbleDB implements db.Database interface
type PebbleDB struct {
	db *pebble.DB
}

// check that PebbleDB implements the db.Database interface
var _ db.Database = (*PebbleDB)(nil)

// New returns a PebbleDB using the given Options, which implements the
// db.Database interface
func New(opts db.Options) (*PebbleDB, error) {
	if err := os.MkdirAll(opts.Path, os.ModePerm); err != nil {
		return nil, err
	}
	o := &pebble.Options{
		Levels: []pebble.LevelOptions{
			{
				Compression: pebble.SnappyCompression,
			},
		},
	}
	pdb, err := pebble.Open(opts.Path, o)
	if err != nil {
		return nil, fmt.Errorf("could not open pebble: %w", err)
	}
	return &PebbleDB{db: pdb}, nil
}

// Get implements the db.Database.Get interface method
func (d *PebbleDB) Get(k []byte) ([]byte, error) {
	return get(d.db, k)
}

// WriteTx returns a db.WriteTx
func (d *PebbleDB) WriteTx() db.WriteTx {
	return &WriteTx{
		batch: d.db.NewIndexedBatch(),
	}
}

// Close closes the PebbleDB
func (d *PebbleDB) Close() error {
	return d.db.Close()
}

// Iterate implements the db.Database.Iterate interface method
func (d *PebbleDB) Iterate(prefix []byte, callback func(k, v []byte) bool) error {
	return iterate(d.db, prefix, callback)
}

// Compact implements the db.Database.Compact interface method
func (d *PebbleDB) Compact() error {
	iter, err := d.db.NewIter(nil)
	if err != nil {
		return err
	}
	var first, last []byte
	if iter.First() {
		first = append(first, iter.Key()...)
	}
	if iter.Last() {
		last = append(last, iter.Key()...)
	}
	if err := iter.Close(); err != nil {
		return err
	}
	if first == nil {
		return nil
	}
	return d.db.Compact(first, append(last, 0), true)
}

func keyUpperBound(b []byte) []byte {
	end := make([]byte, len(b))
	copy(end, b)
	for i := len(end) - 1; i >= 0; i-- {
		end[i] = end[i] + 1
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil // no upper-bound
}
