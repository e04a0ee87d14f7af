// Package store provides LedgerStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/arimaro0217/bizflow-core/schedule"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu             sync.RWMutex
	workItems      map[schedule.WorkItemID]schedule.WorkItem
	counterparties map[schedule.CounterpartyID]schedule.Counterparty
	rules          map[schedule.RuleID]schedule.RecurringRule
	events         map[schedule.EventID]schedule.FinancialEvent
}

func NewMemory() *Memory {
	return &Memory{
		workItems:      make(map[schedule.WorkItemID]schedule.WorkItem),
		counterparties: make(map[schedule.CounterpartyID]schedule.Counterparty),
		rules:          make(map[schedule.RuleID]schedule.RecurringRule),
		events:         make(map[schedule.EventID]schedule.FinancialEvent),
	}
}

// ---------------------------------------------------------------------------
// Work items

func (m *Memory) SaveWorkItem(_ context.Context, item schedule.WorkItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workItems[item.ID] = item
	return nil
}

func (m *Memory) GetWorkItem(_ context.Context, id schedule.WorkItemID) (*schedule.WorkItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.workItems[id]
	if !ok {
		return nil, schedule.ErrWorkItemNotFound
	}
	return &item, nil
}

func (m *Memory) ListWorkItems(_ context.Context) ([]schedule.WorkItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]schedule.WorkItem, 0, len(m.workItems))
	for _, item := range m.workItems {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) DeleteWorkItem(_ context.Context, id schedule.WorkItemID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workItems[id]; !ok {
		return schedule.ErrWorkItemNotFound
	}
	delete(m.workItems, id)
	return nil
}

// ---------------------------------------------------------------------------
// Counterparties

func (m *Memory) SaveCounterparty(_ context.Context, cp schedule.Counterparty) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counterparties[cp.ID] = cp
	return nil
}

func (m *Memory) GetCounterparty(_ context.Context, id schedule.CounterpartyID) (*schedule.Counterparty, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp, ok := m.counterparties[id]
	if !ok {
		return nil, schedule.ErrCounterpartyNotFound
	}
	return &cp, nil
}

func (m *Memory) ListCounterparties(_ context.Context) ([]schedule.Counterparty, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]schedule.Counterparty, 0, len(m.counterparties))
	for _, cp := range m.counterparties {
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---------------------------------------------------------------------------
// Rules

func (m *Memory) GetRule(_ context.Context, id schedule.RuleID) (*schedule.RecurringRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rule, ok := m.rules[id]
	if !ok {
		return nil, schedule.ErrRuleNotFound
	}
	return &rule, nil
}

func (m *Memory) ListRules(_ context.Context) ([]schedule.RecurringRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]schedule.RecurringRule, 0, len(m.rules))
	for _, rule := range m.rules {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---------------------------------------------------------------------------
// Events

func (m *Memory) SaveEvent(_ context.Context, e schedule.FinancialEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[e.ID] = e
	return nil
}

func (m *Memory) GetEvent(_ context.Context, id schedule.EventID) (*schedule.FinancialEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.events[id]
	if !ok {
		return nil, schedule.ErrEventNotFound
	}
	return &e, nil
}

func (m *Memory) ListEventsByRule(_ context.Context, id schedule.RuleID) ([]schedule.FinancialEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []schedule.FinancialEvent
	for _, e := range m.events {
		if e.RuleID == id {
			out = append(out, e)
		}
	}
	sortEvents(out)
	return out, nil
}

func (m *Memory) ListEventsInRange(_ context.Context, from, to schedule.Date) ([]schedule.FinancialEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	window := schedule.DateRange{Start: from, End: to}
	var out []schedule.FinancialEvent
	for _, e := range m.events {
		if window.Contains(e.DisplayDate()) {
			out = append(out, e)
		}
	}
	sortEvents(out)
	return out, nil
}

func sortEvents(events []schedule.FinancialEvent) {
	sort.Slice(events, func(i, j int) bool {
		di, dj := events[i].DisplayDate(), events[j].DisplayDate()
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return events[i].ID < events[j].ID
	})
}

// ---------------------------------------------------------------------------
// Plans

// ApplyPlan executes the plan atomically, simulated with snapshot + restore
// on error.
func (m *Memory) ApplyPlan(_ context.Context, plan schedule.EditPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	for _, op := range plan.Ops {
		if err := m.applyLocked(op); err != nil {
			m.restore(snap)
			return err
		}
	}
	return nil
}

func (m *Memory) applyLocked(op schedule.PlanOp) error {
	switch op.Collection {
	case schedule.CollectionRules:
		switch op.Kind {
		case schedule.OpCreate, schedule.OpUpdate:
			if op.Rule == nil {
				return schedule.ErrRuleNotFound
			}
			m.rules[op.Rule.ID] = *op.Rule
		case schedule.OpDelete:
			if _, ok := m.rules[schedule.RuleID(op.ID)]; !ok {
				return schedule.ErrRuleNotFound
			}
			delete(m.rules, schedule.RuleID(op.ID))
		}

	case schedule.CollectionEvents:
		switch op.Kind {
		case schedule.OpCreate:
			if op.Event == nil {
				return schedule.ErrEventNotFound
			}
			m.events[op.Event.ID] = *op.Event
		case schedule.OpUpdate:
			if op.Event == nil {
				return schedule.ErrEventNotFound
			}
			if _, ok := m.events[op.Event.ID]; !ok {
				return schedule.ErrEventNotFound
			}
			m.events[op.Event.ID] = *op.Event
		case schedule.OpDelete:
			if _, ok := m.events[schedule.EventID(op.ID)]; !ok {
				return schedule.ErrEventNotFound
			}
			delete(m.events, schedule.EventID(op.ID))
		}

	case schedule.CollectionWorkItems:
		switch op.Kind {
		case schedule.OpCreate, schedule.OpUpdate:
			if op.WorkItem == nil {
				return schedule.ErrWorkItemNotFound
			}
			m.workItems[op.WorkItem.ID] = *op.WorkItem
		case schedule.OpDelete:
			if _, ok := m.workItems[schedule.WorkItemID(op.ID)]; !ok {
				return schedule.ErrWorkItemNotFound
			}
			delete(m.workItems, schedule.WorkItemID(op.ID))
		}
	}
	return nil
}

type memorySnapshot struct {
	workItems      map[schedule.WorkItemID]schedule.WorkItem
	counterparties map[schedule.CounterpartyID]schedule.Counterparty
	rules          map[schedule.RuleID]schedule.RecurringRule
	events         map[schedule.EventID]schedule.FinancialEvent
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		workItems:      make(map[schedule.WorkItemID]schedule.WorkItem, len(m.workItems)),
		counterparties: make(map[schedule.CounterpartyID]schedule.Counterparty, len(m.counterparties)),
		rules:          make(map[schedule.RuleID]schedule.RecurringRule, len(m.rules)),
		events:         make(map[schedule.EventID]schedule.FinancialEvent, len(m.events)),
	}
	for k, v := range m.workItems {
		s.workItems[k] = v
	}
	for k, v := range m.counterparties {
		s.counterparties[k] = v
	}
	for k, v := range m.rules {
		s.rules[k] = v
	}
	for k, v := range m.events {
		s.events[k] = v
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.workItems = s.workItems
	m.counterparties = s.counterparties
	m.rules = s.rules
	m.events = s.events
}

var _ schedule.LedgerStore = (*Memory)(nil)
