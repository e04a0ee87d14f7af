/*
plan.go - EditPlan: the unit of atomic change

PURPOSE:
  The core never writes anywhere. Components that change stored state
  (split-update, rule deletion, extension materialization) return an EditPlan:
  an ordered list of create/update/delete operations. The store collaborator
  executes one plan as one all-or-nothing transaction — partially applying a
  bulk future-scope edit or partially materializing a rule would leave
  inconsistent derived state.

  There is no cancellation: a plan either fully commits or the caller
  discards it and rebuilds from fresh input.
*/
package schedule

// PlanOpKind is what an operation does.
type PlanOpKind string

const (
	OpCreate PlanOpKind = "create"
	OpUpdate PlanOpKind = "update"
	OpDelete PlanOpKind = "delete"
)

// Collection is the target collection of an operation.
type Collection string

const (
	CollectionRules     Collection = "recurring_rules"
	CollectionEvents    Collection = "financial_events"
	CollectionWorkItems Collection = "work_items"
)

// PlanOp is a single operation. Exactly one payload field is set for
// create/update; delete carries only the ID.
type PlanOp struct {
	Kind       PlanOpKind
	Collection Collection

	Rule     *RecurringRule
	Event    *FinancialEvent
	WorkItem *WorkItem
	ID       string
}

// EditPlan is an ordered list of operations applied as one transaction.
type EditPlan struct {
	Ops []PlanOp
}

func (p EditPlan) IsEmpty() bool { return len(p.Ops) == 0 }

func (p *EditPlan) add(op PlanOp) { p.Ops = append(p.Ops, op) }

// Builders

func (p *EditPlan) CreateEvent(e FinancialEvent) {
	p.add(PlanOp{Kind: OpCreate, Collection: CollectionEvents, Event: &e, ID: string(e.ID)})
}

func (p *EditPlan) UpdateEvent(e FinancialEvent) {
	p.add(PlanOp{Kind: OpUpdate, Collection: CollectionEvents, Event: &e, ID: string(e.ID)})
}

func (p *EditPlan) DeleteEvent(id EventID) {
	p.add(PlanOp{Kind: OpDelete, Collection: CollectionEvents, ID: string(id)})
}

func (p *EditPlan) CreateRule(r RecurringRule) {
	p.add(PlanOp{Kind: OpCreate, Collection: CollectionRules, Rule: &r, ID: string(r.ID)})
}

func (p *EditPlan) UpdateRule(r RecurringRule) {
	p.add(PlanOp{Kind: OpUpdate, Collection: CollectionRules, Rule: &r, ID: string(r.ID)})
}

func (p *EditPlan) DeleteRule(id RuleID) {
	p.add(PlanOp{Kind: OpDelete, Collection: CollectionRules, ID: string(id)})
}

// PlanCreateEvents wraps freshly materialized instances in a plan.
func PlanCreateEvents(events []FinancialEvent) EditPlan {
	var plan EditPlan
	for _, e := range events {
		plan.CreateEvent(e)
	}
	return plan
}
