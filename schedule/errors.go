/*
errors.go - Centralized error types for the scheduling core

PURPOSE:
  All error conditions the core can raise, in one place. Every component
  raises synchronously and makes no partial mutation before raising, so
  callers can treat any error as "nothing changed".

ERROR CATEGORIES:
  1. Cycle parameter errors - malformed billing-cycle inputs (non-recoverable
     for that computation; never persist a half-formed due date)
  2. Edit misuse errors - wrong use of the split-update coordinator
     (caller error, surface immediately, no retry)
  3. Validation errors - malformed records handed to the core
  4. Store errors - missing records, raised by store implementations

  Overflowing the calendar row cap is deliberately NOT an error: items beyond
  the cap degrade to aggregate per-day counts (see layout.go).

USAGE:
  if errors.Is(err, schedule.ErrScopeNotPermitted) { ... }

  var cycleErr *schedule.CycleParameterError
  if errors.As(err, &cycleErr) { ... cycleErr.Field ... }
*/
package schedule

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidCycleParameters is returned when billing-cycle inputs cannot
	// produce a valid due date.
	ErrInvalidCycleParameters = errors.New("invalid billing cycle parameters")

	// ErrNotARecurringInstance is returned when an edit targets an event that
	// is not linked to a recurring rule.
	ErrNotARecurringInstance = errors.New("event is not a recurring instance")

	// ErrScopeNotPermitted is returned when a this-and-future edit pivots on
	// a settled instance. History is immutable once cash has moved.
	ErrScopeNotPermitted = errors.New("edit scope not permitted for this instance")

	// ErrInvalidDateRange is returned when a record's end precedes its start.
	ErrInvalidDateRange = errors.New("invalid date range: end before start")

	// ErrInvalidFrequency is returned for an unknown frequency or a yearly
	// rule without a month.
	ErrInvalidFrequency = errors.New("invalid recurrence frequency")

	// ErrInvalidDirection is returned for a direction outside inflow/outflow.
	ErrInvalidDirection = errors.New("invalid cash-flow direction")

	// ErrInvalidStatus is returned for an unknown work item status.
	ErrInvalidStatus = errors.New("invalid work item status")

	// Store-level not-found conditions.
	ErrWorkItemNotFound     = errors.New("work item not found")
	ErrRuleNotFound         = errors.New("recurring rule not found")
	ErrEventNotFound        = errors.New("financial event not found")
	ErrCounterpartyNotFound = errors.New("counterparty not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// CycleParameterError reports which billing-cycle parameter was malformed.
type CycleParameterError struct {
	Field string // "closing_day", "payment_day", "payment_month_offset", "day_of_period"
	Value int
}

func (e *CycleParameterError) Error() string {
	return fmt.Sprintf("invalid cycle parameter %s=%d", e.Field, e.Value)
}

func (e *CycleParameterError) Unwrap() error { return ErrInvalidCycleParameters }

// ScopeError reports why an edit scope was rejected.
type ScopeError struct {
	EventID EventID
	Scope   EditScope
	Reason  string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("scope %s rejected for event %s: %s", e.Scope, e.EventID, e.Reason)
}

func (e *ScopeError) Unwrap() error { return ErrScopeNotPermitted }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidCycleParameters) ||
		errors.Is(err, ErrNotARecurringInstance) ||
		errors.Is(err, ErrScopeNotPermitted) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrInvalidFrequency) ||
		errors.Is(err, ErrInvalidDirection) ||
		errors.Is(err, ErrInvalidStatus)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkItemNotFound) ||
		errors.Is(err, ErrRuleNotFound) ||
		errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrCounterpartyNotFound)
}
