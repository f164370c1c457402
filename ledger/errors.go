package ledger

import "errors"

var (
	// ErrInsufficientCredential is returned when the owner balance does not
	// cover the requested amount.
	ErrInsufficientCredential = errors.New("insufficient credential balance")
	// ErrInsufficientAllowance is returned when the spender has not been
	// authorized for the requested amount.
	ErrInsufficientAllowance = errors.New("insufficient credential allowance")
	// ErrBalanceOverflow is returned when a balance or the total supply
	// would overflow.
	ErrBalanceOverflow = errors.New("balance overflow")
	// ErrUnauthorized is returned when the caller lacks the role required
	// by the operation.
	ErrUnauthorized = errors.New("caller is not authorized")
	// ErrZeroAmount is returned when moving or minting zero credentials.
	ErrZeroAmount = errors.New("amount must be greater than zero")
	// ErrAlreadyInitialized is returned when setting the admin twice.
	ErrAlreadyInitialized = errors.New("ledger already initialized")
)
