// Package ledger implements the fungible voting credential ledger: balances,
// spender allowances and the minter role. It works on top of a db.Reader or a
// db.WriteTx, so its writes can share a transaction with other components.
package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/tokenvote/db"
)

var (
	balancePrefix   = []byte("b/")
	allowancePrefix = []byte("a/")
	minterPrefix    = []byte("m/")
	adminKey        = []byte("admin")
	supplyKey       = []byte("supply")
)

func balanceKey(addr common.Address) []byte {
	return append(append([]byte{}, balancePrefix...), addr.Bytes()...)
}

func allowanceKey(owner, spender common.Address) []byte {
	key := append([]byte{}, allowancePrefix...)
	key = append(key, owner.Bytes()...)
	return append(key, spender.Bytes()...)
}

func minterKey(addr common.Address) []byte {
	return append(append([]byte{}, minterPrefix...), addr.Bytes()...)
}

func encodeUint64(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func decodeUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("invalid uint64 length %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// View is a read-only view of the ledger.
type View struct {
	rd db.Reader
}

// NewView returns a read-only ledger over rd.
func NewView(rd db.Reader) *View {
	return &View{rd: rd}
}

// Account returns the account of addr. Unknown addresses have an empty
// account.
func (v *View) Account(addr common.Address) (*Account, error) {
	var acc Account
	raw, err := v.rd.Get(balanceKey(addr))
	if errors.Is(err, db.ErrKeyNotFound) {
		return &acc, nil
	}
	if err != nil {
		return nil, err
	}
	if err := acc.Unmarshal(raw); err != nil {
		return nil, fmt.Errorf("cannot decode account %s: %w", addr, err)
	}
	return &acc, nil
}

// BalanceOf returns the credential balance of addr.
func (v *View) BalanceOf(addr common.Address) (uint64, error) {
	acc, err := v.Account(addr)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// Allowance returns how many credentials spender may consume from owner.
func (v *View) Allowance(owner, spender common.Address) (uint64, error) {
	return v.getUint64(allowanceKey(owner, spender))
}

// IsMinter reports whether addr holds the minter role.
func (v *View) IsMinter(addr common.Address) (bool, error) {
	_, err := v.rd.Get(minterKey(addr))
	if errors.Is(err, db.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Admin returns the address allowed to manage minters. The zero address is
// returned for an uninitialized ledger.
func (v *View) Admin() (common.Address, error) {
	raw, err := v.rd.Get(adminKey)
	if errors.Is(err, db.ErrKeyNotFound) {
		return common.Address{}, nil
	}
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(raw), nil
}

// TotalSupply returns the number of credentials minted so far.
func (v *View) TotalSupply() (uint64, error) {
	return v.getUint64(supplyKey)
}

// Balances returns every non-empty account balance.
func (v *View) Balances() (map[common.Address]uint64, error) {
	balances := make(map[common.Address]uint64)
	var decodeErr error
	err := v.rd.Iterate(balancePrefix, func(key, value []byte) bool {
		var acc Account
		if decodeErr = acc.Unmarshal(value); decodeErr != nil {
			return false
		}
		if acc.Balance > 0 {
			balances[common.BytesToAddress(key)] = acc.Balance
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return balances, decodeErr
}

func (v *View) getUint64(key []byte) (uint64, error) {
	raw, err := v.rd.Get(key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return decodeUint64(raw)
}

// Ledger is a writable view of the ledger. Writes go to the underlying
// transaction and become visible to others only when it is committed.
type Ledger struct {
	View
	tx db.WriteTx
}

// New returns a Ledger that reads and writes through tx.
func New(tx db.WriteTx) *Ledger {
	return &Ledger{View: View{rd: tx}, tx: tx}
}

// Init sets the ledger admin, which is also granted the minter role.
func (l *Ledger) Init(admin common.Address) error {
	current, err := l.Admin()
	if err != nil {
		return err
	}
	if current != (common.Address{}) {
		return ErrAlreadyInitialized
	}
	if err := l.tx.Set(adminKey, admin.Bytes()); err != nil {
		return err
	}
	return l.tx.Set(minterKey(admin), []byte{1})
}

// Authorize sets the amount spender may consume from owner, replacing any
// previous allowance. A zero amount revokes it.
func (l *Ledger) Authorize(owner, spender common.Address, amount uint64) error {
	if amount == 0 {
		return l.tx.Delete(allowanceKey(owner, spender))
	}
	return l.tx.Set(allowanceKey(owner, spender), encodeUint64(amount))
}

// Consume moves amount credentials from owner to spender, using the
// allowance previously granted by owner.
func (l *Ledger) Consume(owner, spender common.Address, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	from, err := l.Account(owner)
	if err != nil {
		return err
	}
	if from.Balance < amount {
		return ErrInsufficientCredential
	}
	allowance, err := l.Allowance(owner, spender)
	if err != nil {
		return err
	}
	if allowance < amount {
		return ErrInsufficientAllowance
	}
	if owner == spender {
		// balance does not move, only the allowance is spent
		return l.Authorize(owner, spender, allowance-amount)
	}
	to, err := l.Account(spender)
	if err != nil {
		return err
	}
	if err := from.Transfer(to, amount); err != nil {
		return err
	}
	if err := l.setAccount(owner, from); err != nil {
		return err
	}
	if err := l.setAccount(spender, to); err != nil {
		return err
	}
	return l.Authorize(owner, spender, allowance-amount)
}

// Mint creates amount new credentials for to. Only minters may mint.
func (l *Ledger) Mint(caller, to common.Address, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	ok, err := l.IsMinter(caller)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s is not a minter", ErrUnauthorized, caller)
	}
	supply, err := l.TotalSupply()
	if err != nil {
		return err
	}
	if supply+amount < supply {
		return ErrBalanceOverflow
	}
	acc, err := l.Account(to)
	if err != nil {
		return err
	}
	if acc.Balance+amount < acc.Balance {
		return ErrBalanceOverflow
	}
	acc.Balance += amount
	if err := l.setAccount(to, acc); err != nil {
		return err
	}
	return l.tx.Set(supplyKey, encodeUint64(supply+amount))
}

// GrantMinter gives addr the minter role. Only the admin may grant it.
func (l *Ledger) GrantMinter(caller, addr common.Address) error {
	if err := l.checkAdmin(caller); err != nil {
		return err
	}
	return l.tx.Set(minterKey(addr), []byte{1})
}

// RevokeMinter removes the minter role from addr. Only the admin may revoke
// it.
func (l *Ledger) RevokeMinter(caller, addr common.Address) error {
	if err := l.checkAdmin(caller); err != nil {
		return err
	}
	return l.tx.Delete(minterKey(addr))
}

func (l *Ledger) checkAdmin(caller common.Address) error {
	admin, err := l.Admin()
	if err != nil {
		return err
	}
	if admin == (common.Address{}) || admin != caller {
		return fmt.Errorf("%w: %s is not the ledger admin", ErrUnauthorized, caller)
	}
	return nil
}

func (l *Ledger) setAccount(addr common.Address, acc *Account) error {
	if acc.Balance == 0 {
		return l.tx.Delete(balanceKey(addr))
	}
	raw, err := acc.Marshal()
	if err != nil {
		return err
	}
	return l.tx.Set(balanceKey(addr), raw)
}
