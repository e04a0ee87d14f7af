/*
store.go - The Ledger Store collaborator contract

PURPOSE:
  The core is a pure computation layer; this interface is its only view of
  persistence. A store supplies current state (work items, rules, events,
  counterparties) and executes EditPlans.

ATOMICITY CONTRACT:
  ApplyPlan commits one plan as one all-or-nothing unit. A failing operation
  must leave the store exactly as it was. Implementations must also ensure
  concurrent plans against the same rule do not interleave (per-rule
  serialization or a single writer is sufficient).

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go:  SQL transaction per plan
  - schedule/store/memory.go: snapshot + restore, for tests and dev
*/
package schedule

import "context"

// LedgerStore supplies current state to the core and applies its plans.
type LedgerStore interface {
	// Work items
	SaveWorkItem(ctx context.Context, item WorkItem) error
	GetWorkItem(ctx context.Context, id WorkItemID) (*WorkItem, error)
	ListWorkItems(ctx context.Context) ([]WorkItem, error)
	DeleteWorkItem(ctx context.Context, id WorkItemID) error

	// Counterparties
	SaveCounterparty(ctx context.Context, cp Counterparty) error
	GetCounterparty(ctx context.Context, id CounterpartyID) (*Counterparty, error)
	ListCounterparties(ctx context.Context) ([]Counterparty, error)

	// Recurring rules
	GetRule(ctx context.Context, id RuleID) (*RecurringRule, error)
	ListRules(ctx context.Context) ([]RecurringRule, error)

	// Financial events
	SaveEvent(ctx context.Context, e FinancialEvent) error
	GetEvent(ctx context.Context, id EventID) (*FinancialEvent, error)
	ListEventsByRule(ctx context.Context, id RuleID) ([]FinancialEvent, error)

	// ListEventsInRange returns events whose display date falls in [from, to].
	ListEventsInRange(ctx context.Context, from, to Date) ([]FinancialEvent, error)

	// ApplyPlan executes every operation of the plan atomically.
	ApplyPlan(ctx context.Context, plan EditPlan) error
}
