/*
Package schedule is the financial scheduling core.

PURPOSE:
  This package contains the pure computation layer behind the cash-flow
  calendar: laying out overlapping date-ranged work onto a grid, expanding
  repeating obligations into dated instances, propagating "this one" vs.
  "this and all future" edits, and converting completion dates into payment
  due dates under closing-cycle billing.

KEY CONCEPTS IN THIS FILE (types.go):
  - WorkItem:       A date-ranged project shown as a bar on the calendar
  - RecurringRule:  An abstract repeating obligation (rent, retainer, salary)
  - FinancialEvent: A concrete dated instance of money moving
  - Counterparty:   Billing-cycle terms used to derive due dates

DESIGN PRINCIPLES:
  1. Purity: every component here is a synchronous function over plain data.
     No I/O, no clocks, no hidden state. "Today" is always a parameter.
  2. Precision: decimal.Decimal for all money, never float64.
  3. Derived history may diverge: a FinancialEvent produced from a rule can
     be detached and survives later rule edits untouched. The rule is the
     source of truth only for instances that still follow it.
  4. Plans, not mutations: components that change stored state return an
     EditPlan; a store collaborator applies it atomically.

SEE ALSO:
  - settlement.go:  completion date -> due date
  - recurrence.go:  rule -> dated instances
  - extension.go:   materialization horizon maintenance
  - splitupdate.go: single vs. this-and-future edits
  - layout.go:      calendar grid packing
*/
package schedule

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type WorkItemID string
type RuleID string
type EventID string
type CounterpartyID string

// =============================================================================
// ENUMS
// =============================================================================

// Direction says which way cash moves.
type Direction string

const (
	Inflow  Direction = "inflow"
	Outflow Direction = "outflow"
)

func (d Direction) Valid() bool { return d == Inflow || d == Outflow }

// WorkItemStatus is the lifecycle state of a project.
type WorkItemStatus string

const (
	StatusDraft     WorkItemStatus = "draft"
	StatusConfirmed WorkItemStatus = "confirmed"
	StatusCompleted WorkItemStatus = "completed"
)

func (s WorkItemStatus) Valid() bool {
	return s == StatusDraft || s == StatusConfirmed || s == StatusCompleted
}

// Frequency is how often a recurring rule fires.
type Frequency string

const (
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

func (f Frequency) Valid() bool { return f == Monthly || f == Yearly }

// EndOfMonthDay is the sentinel day-of-month meaning "last calendar day of
// the month, regardless of month length". It doubles as the largest valid
// concrete day, which is harmless: day 31 and "end of month" coincide in
// every month that has a day 31, and both clamp identically elsewhere.
const EndOfMonthDay = 31

// =============================================================================
// WORK ITEM - A date-ranged project (read-only input to the layout engine)
// =============================================================================

type WorkItem struct {
	ID        WorkItemID
	Title     string
	Start     Date // inclusive
	End       Date // inclusive; Start <= End
	Color     string
	Status    WorkItemStatus
	Important bool
}

func (w WorkItem) Range() DateRange { return DateRange{Start: w.Start, End: w.End} }

// SpanDays is the inclusive length of the item in days.
func (w WorkItem) SpanDays() int { return DaysBetween(w.Start, w.End) + 1 }

func (w WorkItem) Validate() error {
	if w.Start.IsZero() || w.End.Before(w.Start) {
		return ErrInvalidDateRange
	}
	if !w.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// =============================================================================
// COUNTERPARTY - Billing-cycle terms for due-date derivation
// =============================================================================

// Counterparty carries closing-cycle billing terms: work completed on or
// before ClosingDay is billed in that month's cycle and paid PaymentMonthOffset
// months later on PaymentDay.
type Counterparty struct {
	ID   CounterpartyID
	Name string

	ClosingDay         int // 1..31, 31 = end of month
	PaymentMonthOffset int // whole months from closing month to payment month
	PaymentDay         int // 1..31, 31 = end of month
}

// =============================================================================
// RECURRING RULE - An abstract repeating obligation
// =============================================================================

type RecurringRule struct {
	ID             RuleID
	Title          string
	Memo           string
	BaseAmount     decimal.Decimal
	Direction      Direction
	CounterpartyID CounterpartyID // empty = no counterparty
	Frequency      Frequency
	DayOfPeriod    int        // 1..31; 31 = last day of the period
	MonthOfYear    time.Month // required iff Frequency == Yearly
	Start          Date
	End            *Date // nil = open-ended
	Active         bool
}

func (r RecurringRule) Validate() error {
	if !r.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if r.DayOfPeriod < 1 || r.DayOfPeriod > EndOfMonthDay {
		return &CycleParameterError{Field: "day_of_period", Value: r.DayOfPeriod}
	}
	if r.Frequency == Yearly && (r.MonthOfYear < time.January || r.MonthOfYear > time.December) {
		return ErrInvalidFrequency
	}
	if !r.Direction.Valid() {
		return ErrInvalidDirection
	}
	if r.Start.IsZero() {
		return ErrInvalidDateRange
	}
	if r.End != nil && r.End.Before(r.Start) {
		return ErrInvalidDateRange
	}
	return nil
}

// EffectiveEnd caps a window end at the rule's own end date.
func (r RecurringRule) EffectiveEnd(to Date) Date {
	if r.End != nil && r.End.Before(to) {
		return *r.End
	}
	return to
}

// =============================================================================
// FINANCIAL EVENT - A concrete dated instance of money moving
// =============================================================================

// FinancialEvent is a derived artifact: instances come from rules (or are
// created standalone) and may later diverge from their source.
//
// Invariants:
//   - RuleID set  => InstanceDate set (the canonical occurrence date, the
//     stable key for ordering and "future" comparisons; never recomputed
//     from the due date)
//   - Detached    => no future-scope rule edit touches this event again
//   - Settled     => immutable history; excluded from every bulk edit
type FinancialEvent struct {
	ID             EventID
	Direction      Direction
	Amount         decimal.Decimal
	Memo           string
	AccrualDate    Date // when the obligation arises
	DueDate        Date // when cash moves
	Settled        bool
	RuleID         RuleID // empty = standalone event
	InstanceDate   Date   // zero unless RuleID is set
	Detached       bool
	WorkItemID     WorkItemID
	CounterpartyID CounterpartyID
}

// IsRecurringInstance reports whether the event is linked to a rule.
func (e FinancialEvent) IsRecurringInstance() bool { return e.RuleID != "" }

// DisplayDate is where the event lands on the calendar: due date when known,
// accrual date otherwise.
func (e FinancialEvent) DisplayDate() Date {
	if !e.DueDate.IsZero() {
		return e.DueDate
	}
	return e.AccrualDate
}

// InstanceKey is the de-duplication key for materialized instances.
type InstanceKey struct {
	RuleID       RuleID
	InstanceDate string // day key
}

func (e FinancialEvent) InstanceKey() InstanceKey {
	return InstanceKey{RuleID: e.RuleID, InstanceDate: e.InstanceDate.Key()}
}
