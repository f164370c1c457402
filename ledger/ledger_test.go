package ledger

import (
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/tokenvote/db"
	"go.vocdoni.io/tokenvote/db/metadb"
	"go.vocdoni.io/tokenvote/test/testcommon/testutil"
)

func newLedger(t *testing.T) (db.Database, *Ledger, common.Address) {
	database := metadb.NewTest(t)
	rng := testutil.NewRandom(1)
	admin := rng.RandomAddress()
	tx := database.WriteTx()
	t.Cleanup(tx.Discard)
	l := New(tx)
	qt.Assert(t, l.Init(admin), qt.IsNil)
	return database, l, admin
}

func TestMint(t *testing.T) {
	_, l, admin := newLedger(t)
	rng := testutil.NewRandom(2)
	voter := rng.RandomAddress()

	qt.Assert(t, l.Mint(admin, voter, 3), qt.IsNil)
	balance, err := l.BalanceOf(voter)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, balance, qt.Equals, uint64(3))

	supply, err := l.TotalSupply()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, supply, qt.Equals, uint64(3))

	// only minters
	err = l.Mint(voter, voter, 1)
	qt.Assert(t, err, qt.ErrorIs, ErrUnauthorized)
	qt.Assert(t, l.Mint(admin, voter, 0), qt.ErrorIs, ErrZeroAmount)

	// overflow leaves balance untouched
	err = l.Mint(admin, voter, math.MaxUint64)
	qt.Assert(t, err, qt.ErrorIs, ErrBalanceOverflow)
	balance, err = l.BalanceOf(voter)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, balance, qt.Equals, uint64(3))
}

func TestMinterRole(t *testing.T) {
	_, l, admin := newLedger(t)
	rng := testutil.NewRandom(3)
	minter, voter := rng.RandomAddress(), rng.RandomAddress()

	qt.Assert(t, l.Init(minter), qt.ErrorIs, ErrAlreadyInitialized)

	qt.Assert(t, l.GrantMinter(voter, minter), qt.ErrorIs, ErrUnauthorized)
	qt.Assert(t, l.GrantMinter(admin, minter), qt.IsNil)
	ok, err := l.IsMinter(minter)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, ok, qt.IsTrue)
	qt.Assert(t, l.Mint(minter, voter, 1), qt.IsNil)

	qt.Assert(t, l.RevokeMinter(minter, minter), qt.ErrorIs, ErrUnauthorized)
	qt.Assert(t, l.RevokeMinter(admin, minter), qt.IsNil)
	qt.Assert(t, l.Mint(minter, voter, 1), qt.ErrorIs, ErrUnauthorized)
}

func TestAuthorizeAndConsume(t *testing.T) {
	_, l, admin := newLedger(t)
	rng := testutil.NewRandom(4)
	owner, spender := rng.RandomAddress(), rng.RandomAddress()

	// no balance
	err := l.Consume(owner, spender, 1)
	qt.Assert(t, err, qt.ErrorIs, ErrInsufficientCredential)

	qt.Assert(t, l.Mint(admin, owner, 2), qt.IsNil)

	// no allowance
	err = l.Consume(owner, spender, 1)
	qt.Assert(t, err, qt.ErrorIs, ErrInsufficientAllowance)

	// authorize overwrites
	qt.Assert(t, l.Authorize(owner, spender, 5), qt.IsNil)
	qt.Assert(t, l.Authorize(owner, spender, 1), qt.IsNil)
	allowance, err := l.Allowance(owner, spender)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, allowance, qt.Equals, uint64(1))

	qt.Assert(t, l.Consume(owner, spender, 0), qt.ErrorIs, ErrZeroAmount)
	qt.Assert(t, l.Consume(owner, spender, 1), qt.IsNil)

	ownerBalance, err := l.BalanceOf(owner)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, ownerBalance, qt.Equals, uint64(1))
	spenderBalance, err := l.BalanceOf(spender)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, spenderBalance, qt.Equals, uint64(1))
	allowance, err = l.Allowance(owner, spender)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, allowance, qt.Equals, uint64(0))

	// allowance spent
	qt.Assert(t, l.Consume(owner, spender, 1), qt.ErrorIs, ErrInsufficientAllowance)

	// consuming never changes the supply
	supply, err := l.TotalSupply()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, supply, qt.Equals, uint64(2))
	balances, err := l.Balances()
	qt.Assert(t, err, qt.IsNil)
	var total uint64
	for _, b := range balances {
		total += b
	}
	qt.Assert(t, total, qt.Equals, supply)
}

func TestCommitVisibility(t *testing.T) {
	database := metadb.NewTest(t)
	rng := testutil.NewRandom(5)
	admin, voter := rng.RandomAddress(), rng.RandomAddress()

	tx := database.WriteTx()
	l := New(tx)
	qt.Assert(t, l.Init(admin), qt.IsNil)
	qt.Assert(t, l.Mint(admin, voter, 1), qt.IsNil)

	// not committed yet
	balance, err := NewView(database).BalanceOf(voter)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, balance, qt.Equals, uint64(0))

	qt.Assert(t, tx.Commit(), qt.IsNil)
	balance, err = NewView(database).BalanceOf(voter)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, balance, qt.Equals, uint64(1))

	// discarded writes are lost
	tx = database.WriteTx()
	qt.Assert(t, New(tx).Mint(admin, voter, 1), qt.IsNil)
	tx.Discard()
	balance, err = NewView(database).BalanceOf(voter)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, balance, qt.Equals, uint64(1))
}

func TestAccountTransfer(t *testing.T) {
	a, b := &Account{Balance: 1}, &Account{Balance: math.MaxUint64}
	qt.Assert(t, a.Transfer(b, 1), qt.ErrorIs, ErrBalanceOverflow)
	qt.Assert(t, a.Transfer(&Account{}, 2), qt.ErrorIs, ErrInsufficientCredential)
	qt.Assert(t, a.Transfer(nil, 1), qt.ErrorMatches, "destination account nil")

	c := &Account{}
	qt.Assert(t, a.Transfer(c, 1), qt.IsNil)
	qt.Assert(t, a.Balance, qt.Equals, uint64(0))
	qt.Assert(t, c.Balance, qt.Equals, uint64(1))

	raw, err := c.Marshal()
	qt.Assert(t, err, qt.IsNil)
	var decoded Account
	qt.Assert(t, decoded.Unmarshal(raw), qt.IsNil)
	qt.Assert(t, decoded, qt.Equals, *c)
}
