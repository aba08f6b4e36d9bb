package ledger

import "errors"

var (
	// ErrInsufficientFunds is returned when a delta would drive the balance
	// below zero. It is terminal and never retried.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrVersionConflict is returned by a compare-and-swap update whose
	// expected version is stale. The processor retries it transparently.
	ErrVersionConflict = errors.New("account version conflict")

	// ErrContention is returned when version conflicts exhaust the retry
	// bound. Callers may resubmit later with the same idempotency key.
	ErrContention = errors.New("account contention, retry later")

	// ErrAccountNotFound is returned when the target account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidAmount is returned for a zero delta or one with more than
	// two fractional digits.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidReason is returned for an unknown reason tag.
	ErrInvalidReason = errors.New("invalid reason")

	// ErrIdempotencyKeyRequired is returned when no idempotency key is given.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")

	// ErrIdempotencyKeyTooLong is returned when the key exceeds MaxIdempotencyKeyLength.
	ErrIdempotencyKeyTooLong = errors.New("idempotency key is too long")

	// ErrInvalidCursor is returned when a ledger pagination cursor cannot be parsed.
	ErrInvalidCursor = errors.New("invalid cursor")
)
