package app

import "errors"

// Engine failure taxonomy. Every failure is a local, recoverable condition
// reported to the caller; none corrupts persisted state. ErrStorageConflict is
// the only condition the engine retries internally before surfacing it.
var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInsufficientFunds  = errors.New("amount exceeds account balance")
	ErrTargetNotFound     = errors.New("target account is inactive or does not exist")
	ErrSameAccount        = errors.New("target account must differ from origin account")
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrStorageConflict    = errors.New("operation kept losing concurrent update races")
	ErrStorageUnavailable = errors.New("ledger storage unavailable")
)
