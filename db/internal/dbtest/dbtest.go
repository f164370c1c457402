package dbtest

import (
	"strconv"
	"testing"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/tokenvote/db"
)

func TestWriteTx(t *testing.T, database db.Database) {
	wTx := database.WriteTx()

	_, err := wTx.Get([]byte("a"))
	qt.Assert(t, err, qt.Equals, db.ErrKeyNotFound)

	err = wTx.Set([]byte("a"), []byte("b"))
	qt.Assert(t, err, qt.IsNil)

	v, err := wTx.Get([]byte("a"))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, v, qt.DeepEquals, []byte("b"))

	// not visible outside the tx until commit
	_, err = database.Get([]byte("a"))
	qt.Assert(t, err, qt.Equals, db.ErrKeyNotFound)

	err = wTx.Commit()
	qt.Assert(t, err, qt.IsNil)

	// Discard after Commit should not give any problem
	wTx.Discard()
	qt.Assert(t, wTx.Commit(), qt.Not(qt.IsNil))

	// get value from a new tx after the previous commit
	wTx = database.WriteTx()
	v, err = wTx.Get([]byte("a"))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, v, qt.DeepEquals, []byte("b"))

	// a WriteTx is also a Reader
	useReader(t, wTx)
	useReader(t, database)

	qt.Assert(t, wTx.Delete([]byte("a")), qt.IsNil)
	_, err = wTx.Get([]byte("a"))
	qt.Assert(t, err, qt.Equals, db.ErrKeyNotFound)
	qt.Assert(t, wTx.Commit(), qt.IsNil)

	_, err = database.Get([]byte("a"))
	qt.Assert(t, err, qt.Equals, db.ErrKeyNotFound)
}

func useReader(t *testing.T, rd db.Reader) {
	v, err := rd.Get([]byte("a"))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, v, qt.DeepEquals, []byte("b"))
}

func TestIterate(t *testing.T, d db.Database) {
	prefix0 := []byte("a")
	prefix0NumKeys := 20
	prefix1 := []byte("b")
	prefix1NumKeys := 30

	wTx := d.WriteTx()
	for i := 0; i < prefix0NumKeys; i++ {
		qt.Assert(t, wTx.Set(append(prefix0, []byte(strconv.Itoa(i))...), []byte(strconv.Itoa(i))), qt.IsNil)
	}
	for i := 0; i < prefix1NumKeys; i++ {
		qt.Assert(t, wTx.Set(append(prefix1, []byte(strconv.Itoa(i))...), []byte(strconv.Itoa(i))), qt.IsNil)
	}
	qt.Assert(t, wTx.Commit(), qt.IsNil)

	noPrefixKeysFound := 0
	err := d.Iterate(nil, func(k, v []byte) bool {
		noPrefixKeysFound++
		return true
	})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, noPrefixKeysFound, qt.Equals, prefix0NumKeys+prefix1NumKeys)

	prefix0KeysFound := 0
	err = d.Iterate(prefix0, func(k, v []byte) bool {
		// keys come without the prefix
		qt.Assert(t, string(k), qt.Equals, string(v))
		prefix0KeysFound++
		return true
	})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, prefix0KeysFound, qt.Equals, prefix0NumKeys)

	prefix1KeysFound := 0
	err = d.Iterate(prefix1, func(k, v []byte) bool {
		prefix1KeysFound++
		return prefix1KeysFound < 5
	})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, prefix1KeysFound, qt.Equals, 5)
}

func TestWriteTxApply(t *testing.T, database db.Database) {
	wTx := database.WriteTx()
	qt.Assert(t, wTx.Set([]byte("a"), []byte("a")), qt.IsNil)
	qt.Assert(t, wTx.Commit(), qt.IsNil)

	parent := database.WriteTx()
	child := database.WriteTx()
	qt.Assert(t, child.Set([]byte("b"), []byte("b")), qt.IsNil)
	qt.Assert(t, parent.Apply(child), qt.IsNil)
	child.Discard()

	v, err := parent.Get([]byte("b"))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, v, qt.DeepEquals, []byte("b"))
	qt.Assert(t, parent.Commit(), qt.IsNil)

	v, err = database.Get([]byte("b"))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, v, qt.DeepEquals, []byte("b"))
}

func TestDiscard(t *testing.T, database db.Database) {
	wTx := database.WriteTx()
	qt.Assert(t, wTx.Set([]byte("x"), []byte("1")), qt.IsNil)
	wTx.Discard()
	wTx.Discard()
	qt.Assert(t, wTx.Commit(), qt.Equals, db.ErrTxClosed)

	_, err := database.Get([]byte("x"))
	qt.Assert(t, err, qt.Equals, db.ErrKeyNotFound)
}
