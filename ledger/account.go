package ledger

import (
	"fmt"

	"git.sr.ht/~sircmpwn/go-bare"
)

// Account holds the credential balance of an address.
type Account struct {
	Balance uint64
}

// Marshal encodes the Account and returns the serialized bytes.
func (a *Account) Marshal() ([]byte, error) {
	return bare.Marshal(a)
}

// Unmarshal decodes a set of bytes.
func (a *Account) Unmarshal(data []byte) error {
	return bare.Unmarshal(data, a)
}

// Transfer moves amount from the origin Account to the dest Account.
func (a *Account) Transfer(dest *Account, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	if dest == nil {
		return fmt.Errorf("destination account nil")
	}
	if a.Balance < amount {
		return ErrInsufficientCredential
	}
	if dest.Balance+amount < dest.Balance {
		return ErrBalanceOverflow
	}
	dest.Balance += amount
	a.Balance -= amount
	return nil
}
