package metadb

import (
	"fmt"
	"os"
	"testing"

	"go.vocdoni.io/tokenvote/db"
	"go.vocdoni.io/tokenvote/db/goleveldb"
	"go.vocdoni.io/tokenvote/db/pebbledb"
)

// New opens a database of the given backend type in dir. The memory backend
// ignores dir.
func New(typ, dir string) (db.Database, error) {
	opts := db.Options{Path: dir}
	switch typ {
	case db.TypePebble:
		return pebbledb.New(opts)
	case db.TypeLevelDB:
		return goleveldb.New(opts)
	case db.TypeMemory:
		return goleveldb.NewMemory()
	default:
		return nil, fmt.Errorf("invalid dbType: %q. Available types: %q %q %q",
			typ, db.TypePebble, db.TypeLevelDB, db.TypeMemory)
	}
}

// ForTest returns the backend used by tests, taken from $ELECTIOND_DB_TYPE.
func ForTest() (typ string) {
	if typ = os.Getenv("ELECTIOND_DB_TYPE"); typ != "" {
		return typ
	}
	return db.TypePebble
}

// NewTest opens a temporary database which is closed at the end of the test.
func NewTest(tb testing.TB) db.Database {
	database, err := New(ForTest(), tb.TempDir())
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() { database.Close() })
	return database
}
