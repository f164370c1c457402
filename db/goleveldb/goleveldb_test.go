package goleveldb

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/tokenvote/db"
	"go.vocdoni.io/tokenvote/db/internal/dbtest"
)

func newDB(t *testing.T) db.Database {
	database, err := New(db.Options{Path: t.TempDir()})
	qt.Assert(t, err, qt.IsNil)
	t.Cleanup(func() { database.Close() })
	return database
}

func newMemDB(t *testing.T) db.Database {
	database, err := NewMemory()
	qt.Assert(t, err, qt.IsNil)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestWriteTx(t *testing.T) {
	dbtest.TestWriteTx(t, newDB(t))
	dbtest.TestWriteTx(t, newMemDB(t))
}

func TestIterate(t *testing.T) {
	dbtest.TestIterate(t, newDB(t))
	dbtest.TestIterate(t, newMemDB(t))
}

func TestWriteTxApply(t *testing.T) {
	dbtest.TestWriteTxApply(t, newMemDB(t))
}

func TestDiscard(t *testing.T) {
	dbtest.TestDiscard(t, newMemDB(t))
}

func TestIterateOverlay(t *testing.T) {
	database := newMemDB(t)
	wTx := database.WriteTx()
	qt.Assert(t, wTx.Set([]byte("k1"), []byte("a")), qt.IsNil)
	qt.Assert(t, wTx.Set([]byte("k3"), []byte("c")), qt.IsNil)
	qt.Assert(t, wTx.Commit(), qt.IsNil)

	wTx = database.WriteTx()
	defer wTx.Discard()
	qt.Assert(t, wTx.Set([]byte("k2"), []byte("b")), qt.IsNil)
	qt.Assert(t, wTx.Delete([]byte("k3")), qt.IsNil)

	var keys []string
	err := wTx.Iterate([]byte("k"), func(k, v []byte) bool {
		keys = append(keys, string(k))
		return true
	})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, keys, qt.DeepEquals, []string{"1", "2"})

	_, err = wTx.Get([]byte("k3"))
	qt.Assert(t, err, qt.Equals, db.ErrKeyNotFound)
}
