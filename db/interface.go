package db

import (
	"fmt"
	"io"
)

// Available database backends.
const (
	TypePebble  = "pebble"
	TypeLevelDB = "leveldb"
	// TypeMemory is a goleveldb instance backed by memory storage, mostly
	// useful for tests and ephemeral nodes.
	TypeMemory = "memory"
)

// ErrKeyNotFound is used to indicate that a key does not exist in the db.
var ErrKeyNotFound = fmt.Errorf("key not found")

// ErrTxClosed is returned when a WriteTx is committed after a previous
// Commit or Discard.
var ErrTxClosed = fmt.Errorf("tx already committed or discarded")

// Options defines generic parameters for creating a new Database.
type Options struct {
	Path string
}

// Database wraps all database operations. All methods are safe for concurrent
// use.
type Database interface {
	io.Closer

	Reader

	// WriteTx creates a new write transaction.
	WriteTx() WriteTx

	// Compact compacts the underlying storage.
	Compact() error
}

// Reader contains the read-only database operations.
type Reader interface {
	// Get retrieves the value for the given key. If the key does not
	// exist, returns the error ErrKeyNotFound
	Get(key []byte) ([]byte, error)

	// Iterate calls callback with all key-value pairs in the database whose key
	// starts with prefix. The calls are ordered lexicographically by key, and
	// the keys passed to the callback have the prefix stripped.
	//
	// The iteration is stopped early when the callback function returns false.
	//
	// It is not safe to use the key or value slices after the callback returns.
	// To use the values for longer, make a copy.
	Iterate(prefix []byte, callback func(key, value []byte) bool) error
}

// WriteTx is a batch of writes which can be read back before being committed.
type WriteTx interface {
	Reader

	// Set adds a key-value pair. If the key already exists, its value is
	// updated.
	Set(key []byte, value []byte) error
	// Delete deletes a key and its value.
	Delete(key []byte) error
	// Apply applies the value-passed WriteTx into the given WriteTx,
	// copying the key-values from the original WriteTx into the one from
	// which the method is called.
	Apply(WriteTx) error
	// Commit commits the transaction into the db.
	// Calling Commit more than once, or after Discard, is an error.
	Commit() error
	// Discard releases the transaction's resources as they don't need to be committed.
	// This method can be safely called after any previous Commit or Discard call,
	// for the sake of allowing deferred Discard calls.
	Discard()
}

// UnwrapWriteTx unwraps (if possible) the WriteTx using Unwrap method
func UnwrapWriteTx(tx WriteTx) WriteTx {
	for {
		wtx, ok := tx.(interface{ Unwrap() WriteTx })
		if !ok {
			return tx
		}
		tx = wtx.Unwrap()
	}
}
