package prefixeddb

import (
	"go.vocdoni.io/tokenvote/db"
)

// PrefixedDatabase wraps a db.Database prefixing all keys with `prefix`.
type PrefixedDatabase struct {
	prefix []byte
	db     db.Database
}

// check that PrefixedDatabase implements the db.Database interface
var _ db.Database = (*PrefixedDatabase)(nil)

func prefixSlice(prefix, v []byte) []byte {
	// Copy prefix to ensure we don't reuse the slice's backing array.
	jointPrefix := make([]byte, 0, len(prefix)+len(v))
	jointPrefix = append(jointPrefix, prefix...)
	jointPrefix = append(jointPrefix, v...)
	// Fixed capacity, so later appends never share memory.
	return jointPrefix[:len(jointPrefix):len(jointPrefix)]
}

// NewPrefixedDatabase creates a new PrefixedDatabase. If the db is already a
// PrefixedDatabase, instead of wrapping again, the prefixes are appended to
// avoid unnecessary layers.
func NewPrefixedDatabase(database db.Database, prefix []byte) *PrefixedDatabase {
	if pdb, ok := database.(*PrefixedDatabase); ok {
		return &PrefixedDatabase{prefixSlice(pdb.prefix, prefix), pdb.db}
	}
	return &PrefixedDatabase{prefixSlice(nil, prefix), database}
}

// Close implements the db.Database.Close interface method. Notice that this
// method also closes the wrapped db.Database.
func (d *PrefixedDatabase) Close() error {
	return d.db.Close()
}

// WriteTx returns a db.WriteTx
func (d *PrefixedDatabase) WriteTx() db.WriteTx {
	return NewPrefixedWriteTx(d.db.WriteTx(), d.prefix)
}

// Get implements the db.Database.Get interface method
func (d *PrefixedDatabase) Get(key []byte) ([]byte, error) {
	return d.db.Get(prefixSlice(d.prefix, key))
}

// Iterate implements the db.Database.Iterate interface method
func (d *PrefixedDatabase) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return d.db.Iterate(prefixSlice(d.prefix, prefix), callback)
}

// Compact implements the db.Database.Compact interface method
func (d *PrefixedDatabase) Compact() error {
	return d.db.Compact()
}

// PrefixedReader wraps a db.Reader prefixing all keys with `prefix`.
type PrefixedReader struct {
	prefix []byte
	rd     db.Reader
}

// check that PrefixedReader implements the db.Reader interface
var _ db.Reader = (*PrefixedReader)(nil)

// NewPrefixedReader creates a new db.Reader. If the reader is already a
// PrefixedReader, the prefixes are appended.
func NewPrefixedReader(rd db.Reader, prefix []byte) *PrefixedReader {
	if prd, ok := rd.(*PrefixedReader); ok {
		return &PrefixedReader{prefixSlice(prd.prefix, prefix), prd.rd}
	}
	return &PrefixedReader{prefixSlice(nil, prefix), rd}
}

// Get implements the db.Reader.Get interface method
func (r *PrefixedReader) Get(key []byte) ([]byte, error) {
	return r.rd.Get(prefixSlice(r.prefix, key))
}

// Iterate implements the db.Reader.Iterate interface method
func (r *PrefixedReader) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return r.rd.Iterate(prefixSlice(r.prefix, prefix), callback)
}

// PrefixedWriteTx wraps a WriteTx prefixing all keys with `prefix`.
type PrefixedWriteTx struct {
	prefix []byte
	tx     db.WriteTx
}

// check that PrefixedWriteTx implements the db.WriteTx interface
var _ db.WriteTx = (*PrefixedWriteTx)(nil)

// NewPrefixedWriteTx creates a new db.WriteTx. If the tx is already a
// PrefixedWriteTx, instead of wrapping again, the prefixes are appended to avoid
// unnecessary layers.
func NewPrefixedWriteTx(tx db.WriteTx, prefix []byte) *PrefixedWriteTx {
	if ptx, ok := tx.(*PrefixedWriteTx); ok {
		return &PrefixedWriteTx{prefixSlice(ptx.prefix, prefix), ptx.tx}
	}
	return &PrefixedWriteTx{prefixSlice(nil, prefix), tx}
}

// Unwrap returns the wrapped db.WriteTx
func (t *PrefixedWriteTx) Unwrap() db.WriteTx {
	return t.tx
}

// Get implements the db.WriteTx.Get interface method
func (t *PrefixedWriteTx) Get(key []byte) ([]byte, error) {
	return t.tx.Get(prefixSlice(t.prefix, key))
}

// Iterate implements the db.WriteTx.Iterate interface method
func (t *PrefixedWriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return t.tx.Iterate(prefixSlice(t.prefix, prefix), callback)
}

// Set implements the db.WriteTx.Set interface method
func (t *PrefixedWriteTx) Set(key []byte, value []byte) error {
	return t.tx.Set(prefixSlice(t.prefix, key), value)
}

// Delete implements the db.WriteTx.Delete interface method
func (t *PrefixedWriteTx) Delete(key []byte) error {
	return t.tx.Delete(prefixSlice(t.prefix, key))
}

// Apply implements the db.WriteTx.Apply interface method
func (t *PrefixedWriteTx) Apply(other db.WriteTx) error {
	return t.tx.Apply(other)
}

// Discard implements the db.WriteTx.Discard interface method. Notice that this
// method also discards the wrapped db.WriteTx.
func (t *PrefixedWriteTx) Discard() {
	t.tx.Discard()
}

// Commit implements the db.WriteTx.Commit interface method. Notice that this
// method also commits the wrapped db.WriteTx.
func (t *PrefixedWriteTx) Commit() error {
	return t.tx.Commit()
}
