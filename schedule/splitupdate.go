/*
splitupdate.go - "This one" vs. "this and all future" edits

PURPOSE:
  A recurring rule's materialized instances are derived artifacts that may
  diverge from their source. Editing one instance detaches it: the rule no
  longer owns it and later bulk edits skip it. Editing "this and future"
  rewrites the rule itself and sweeps every still-attached, unsettled instance
  from the pivot forward — already-settled history is never rewritten.

SCOPE RULES:
  singleInstance:
    - only the target changes; it is marked Detached so future-scope edits
      on the rule skip it from then on
  thisAndFuture:
    - the rule is updated with the changed fields (amount, direction,
      counterparty, memo)
    - every instance with InstanceDate >= pivot, Settled == false and
      Detached == false is rewritten in place
    - a settled instance cannot be the pivot (ScopeNotPermitted)

DUE-DATE RECOMPUTATION:
  When the counterparty changes, each affected instance's due date is
  re-derived from that instance's own accrual date via settlement.go.

DELETION:
  Deleting a rule cascades only to its unsettled, still-attached instances.
  Settled and detached instances are preserved as independent financial
  history.

  The coordinator only builds plans; the store applies them atomically.
*/
package schedule

import (
	"sort"

	"github.com/shopspring/decimal"
)

// EditScope selects how far an instance edit reaches.
type EditScope string

const (
	ScopeSingleInstance EditScope = "single_instance"
	ScopeThisAndFuture  EditScope = "this_and_future"
)

func (s EditScope) Valid() bool {
	return s == ScopeSingleInstance || s == ScopeThisAndFuture
}

// EventPatch carries the fields an edit may change. Nil means "leave as is".
// An explicit empty CounterpartyID clears the counterparty.
type EventPatch struct {
	Amount         *decimal.Decimal
	Direction      *Direction
	Memo           *string
	CounterpartyID *CounterpartyID
}

// changesCounterparty reports whether the patch moves the event to a
// different counterparty than it currently has.
func (p EventPatch) changesCounterparty(current CounterpartyID) bool {
	return p.CounterpartyID != nil && *p.CounterpartyID != current
}

// EditInput bundles everything the coordinator needs. Siblings are the
// rule's existing instances (the target may or may not be among them).
// Counterparty supplies billing terms for the patched counterparty and may
// be nil when the patch does not change it or clears it.
type EditInput struct {
	Target       FinancialEvent
	Rule         *RecurringRule
	Siblings     []FinancialEvent
	Patch        EventPatch
	Scope        EditScope
	Counterparty *Counterparty
}

// SplitUpdateCoordinator turns an instance edit into an EditPlan.
type SplitUpdateCoordinator struct{}

// ApplyEdit validates the edit and builds the plan. No partial state: any
// error means nothing changed.
func (c SplitUpdateCoordinator) ApplyEdit(in EditInput) (EditPlan, error) {
	if !in.Target.IsRecurringInstance() {
		return EditPlan{}, ErrNotARecurringInstance
	}
	if !in.Scope.Valid() {
		return EditPlan{}, &ScopeError{EventID: in.Target.ID, Scope: in.Scope, Reason: "unknown scope"}
	}

	switch in.Scope {
	case ScopeSingleInstance:
		return c.planSingle(in)
	default:
		return c.planThisAndFuture(in)
	}
}

func (c SplitUpdateCoordinator) planSingle(in EditInput) (EditPlan, error) {
	updated, err := applyPatch(in.Target, in.Patch, in.Counterparty)
	if err != nil {
		return EditPlan{}, err
	}
	updated.Detached = true

	var plan EditPlan
	plan.UpdateEvent(updated)
	return plan, nil
}

func (c SplitUpdateCoordinator) planThisAndFuture(in EditInput) (EditPlan, error) {
	if in.Target.Settled {
		return EditPlan{}, &ScopeError{
			EventID: in.Target.ID,
			Scope:   in.Scope,
			Reason:  "settled instances cannot pivot a future-scope edit",
		}
	}
	if in.Rule == nil || in.Rule.ID != in.Target.RuleID {
		return EditPlan{}, ErrRuleNotFound
	}

	var plan EditPlan

	rule := *in.Rule
	if in.Patch.Amount != nil {
		rule.BaseAmount = *in.Patch.Amount
	}
	if in.Patch.Direction != nil {
		rule.Direction = *in.Patch.Direction
	}
	if in.Patch.Memo != nil {
		rule.Memo = *in.Patch.Memo
	}
	if in.Patch.CounterpartyID != nil {
		rule.CounterpartyID = *in.Patch.CounterpartyID
	}
	plan.UpdateRule(rule)

	// Sweep attached, unsettled instances from the pivot forward, in
	// instance-date order so the plan reads like the timeline it rewrites.
	affected := make([]FinancialEvent, 0, len(in.Siblings))
	seenTarget := false
	for _, sib := range in.Siblings {
		if sib.RuleID != in.Target.RuleID {
			continue
		}
		if sib.ID == in.Target.ID {
			seenTarget = true
		}
		if sib.Settled || sib.Detached {
			continue
		}
		if sib.InstanceDate.Before(in.Target.InstanceDate) {
			continue
		}
		affected = append(affected, sib)
	}
	if !seenTarget && !in.Target.Settled && !in.Target.Detached {
		affected = append(affected, in.Target)
	}
	sort.Slice(affected, func(i, j int) bool {
		return affected[i].InstanceDate.Before(affected[j].InstanceDate)
	})

	for _, sib := range affected {
		updated, err := applyPatch(sib, in.Patch, in.Counterparty)
		if err != nil {
			return EditPlan{}, err
		}
		plan.UpdateEvent(updated)
	}
	return plan, nil
}

// applyPatch rewrites one event with the patch, re-deriving the due date from
// the event's own accrual date when the counterparty changed.
func applyPatch(e FinancialEvent, patch EventPatch, cp *Counterparty) (FinancialEvent, error) {
	counterpartyChanged := patch.changesCounterparty(e.CounterpartyID)

	if patch.Amount != nil {
		e.Amount = *patch.Amount
	}
	if patch.Direction != nil {
		e.Direction = *patch.Direction
	}
	if patch.Memo != nil {
		e.Memo = *patch.Memo
	}
	if patch.CounterpartyID != nil {
		e.CounterpartyID = *patch.CounterpartyID
	}

	if counterpartyChanged {
		var terms *Counterparty
		if e.CounterpartyID != "" {
			terms = cp
		}
		due, err := DueDateFor(terms, e.AccrualDate)
		if err != nil {
			return FinancialEvent{}, err
		}
		e.DueDate = due
	}
	return e, nil
}

// PlanRuleDeletion removes a rule and cascades deletion to its unsettled,
// still-attached instances only. Settled and detached instances survive as
// independent history.
func PlanRuleDeletion(rule RecurringRule, instances []FinancialEvent) EditPlan {
	var plan EditPlan
	for _, e := range instances {
		if e.RuleID != rule.ID {
			continue
		}
		if e.Settled || e.Detached {
			continue
		}
		plan.DeleteEvent(e.ID)
	}
	plan.DeleteRule(rule.ID)
	return plan
}
