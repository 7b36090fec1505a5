package domain

import "errors"

var (
	ErrInvalidTransition       = errors.New("invalid transition")
	ErrBetNotOpen              = errors.New("bet not open")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrDuplicateWager          = errors.New("duplicate wager")
	ErrDisputeWindowClosed     = errors.New("dispute window closed")
	ErrAlreadyResolved         = errors.New("already resolved")
	ErrConcurrentModification  = errors.New("concurrent modification")
	ErrNoConsensusReached      = errors.New("no consensus reached")
	ErrVerificationUnavailable = errors.New("verification unavailable")

	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidSelection   = errors.New("invalid selection")
	ErrInvalidBet         = errors.New("invalid bet")
	ErrInvalidLeague      = errors.New("invalid league")
	ErrPowerUpUnavailable = errors.New("power-up unavailable")
	ErrNotWagering        = errors.New("member has no wager on bet")
	ErrAlreadyVoted       = errors.New("already voted")
)
