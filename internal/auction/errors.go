package auction

import (
	"errors"
	"fmt"
	"time"
)

// NotFoundError reports a missing round, tiebreaker, or bid.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// InvalidStateError reports an operation attempted against an entity whose
// status forbids it (starting a non-draft round, bidding on a resolved
// tiebreaker). The request is rejected with no partial effect.
type InvalidStateError struct {
	Entity string
	ID     int64
	Status string
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %d in status %q: %s", e.Entity, e.ID, e.Status, e.Reason)
}

// StaleBidError reports a raise that lost the race against a concurrent
// higher submission. The client should refresh and re-raise against the new
// ceiling.
type StaleBidError struct {
	TiebreakerID int64
	Attempted    int64
	CurrentBid   int64
}

func (e *StaleBidError) Error() string {
	return fmt.Sprintf("bid %d on tiebreaker %d is not above the current highest bid %d",
		e.Attempted, e.TiebreakerID, e.CurrentBid)
}

// NotAuthorizedError reports a team acting on a tiebreaker it is not an
// active member of.
type NotAuthorizedError struct {
	TeamID       int64
	TiebreakerID int64
	Reason       string
}

func (e *NotAuthorizedError) Error() string {
	return fmt.Sprintf("team %d cannot act on tiebreaker %d: %s", e.TeamID, e.TiebreakerID, e.Reason)
}

// WindowClosedError reports an action arriving after the bidding deadline.
type WindowClosedError struct {
	Entity   string
	ID       int64
	ClosedAt time.Time
}

func (e *WindowClosedError) Error() string {
	return fmt.Sprintf("%s %d closed at %s", e.Entity, e.ID, e.ClosedAt.Format(time.RFC3339))
}

// LedgerNotFoundError means the team season ledger document is missing.
// Fatal; surfaced to an admin rather than retried.
type LedgerNotFoundError struct {
	TeamID   int64
	SeasonID int64
}

func (e *LedgerNotFoundError) Error() string {
	return fmt.Sprintf("season %d ledger for team %d not found", e.SeasonID, e.TeamID)
}

// InsufficientBudgetError means the deduction guard rejected a settlement.
// Bid validation upstream should have prevented this; it is re-checked at
// settlement as a last line of defense and never applied partially.
type InsufficientBudgetError struct {
	TeamID   int64
	Required int64
}

func (e *InsufficientBudgetError) Error() string {
	return fmt.Sprintf("team %d lacks budget for %d", e.TeamID, e.Required)
}

// PartialWriteError means the ledger document was written but the
// transaction log could not be completed. The win is durable; the reconciler
// replays the log side idempotently.
type PartialWriteError struct {
	TransactionID string
	Err           error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("settlement %s applied to ledger but log incomplete: %v", e.TransactionID, e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsInvalidState(err error) bool {
	var e *InvalidStateError
	return errors.As(err, &e)
}

func IsStaleBid(err error) bool {
	var e *StaleBidError
	return errors.As(err, &e)
}

func IsNotAuthorized(err error) bool {
	var e *NotAuthorizedError
	return errors.As(err, &e)
}

func IsWindowClosed(err error) bool {
	var e *WindowClosedError
	return errors.As(err, &e)
}

func IsPartialWrite(err error) bool {
	var e *PartialWriteError
	return errors.As(err, &e)
}

func IsLedgerNotFound(err error) bool {
	var e *LedgerNotFoundError
	return errors.As(err, &e)
}

func IsInsufficientBudget(err error) bool {
	var e *InsufficientBudgetError
	return errors.As(err, &e)
}
