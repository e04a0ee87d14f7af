/*
recurrence.go - Expanding a repeating rule into dated instances

PURPOSE:
  Turns one RecurringRule into the concrete FinancialEvents whose occurrence
  dates intersect a window. Monthly rules fire once per month on DayOfPeriod;
  yearly rules fire once per year on (MonthOfYear, DayOfPeriod). DayOfPeriod
  clamps to the end of shorter months (31 = always the last day).

  NOTE: this is deliberately NOT RFC 5545 recurrence. An RRULE with
  BYMONTHDAY=31 skips months without a day 31; billing obligations must land
  in every month, clamped. Hence hand-rolled month math instead of an
  rrule library.

INSTANCE IDENTITY:
  Every produced event carries InstanceDate = its canonical occurrence date.
  That pair (RuleID, InstanceDate) is the stable key for ordering, "future"
  comparisons, and de-duplication. It is never recomputed from the due date.
  Event IDs are derived deterministically from that key, so re-expanding the
  same rule over the same window is idempotent by construction.

DUE DATES:
  Inflow rules with a counterparty get a due date from the counterparty's
  closing cycle (settlement.go), computed from each instance's accrual date.
  Everything else dues on accrual.

SEE ALSO:
  - extension.go: computes the missing window and delegates here
*/
package schedule

// RecurrenceExpander materializes rule occurrences inside a window.
//
// Expansion honors only the window and the rule's own start/end bounds. The
// active flag is a forward-growth policy: callers that want an inactive rule
// to stop producing future instances bound the window accordingly (the
// extension pass refuses inactive rules outright).
type RecurrenceExpander struct{}

// Expand returns one FinancialEvent per occurrence of rule intersecting
// window. counterparty supplies billing terms for due dates and may be nil.
// Results are ordered by instance date ascending.
func (RecurrenceExpander) Expand(rule RecurringRule, counterparty *Counterparty, window DateRange) ([]FinancialEvent, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if !window.IsValid() {
		return nil, ErrInvalidDateRange
	}

	from := MaxDate(window.Start, rule.Start)
	to := rule.EffectiveEnd(window.End)
	if to.Before(from) {
		return nil, nil
	}

	var events []FinancialEvent
	for _, occ := range occurrences(rule, from, to) {
		due := occ
		if rule.Direction == Inflow && counterparty != nil {
			d, err := DueDateFor(counterparty, occ)
			if err != nil {
				return nil, err
			}
			due = d
		}

		events = append(events, FinancialEvent{
			ID:             instanceID(rule.ID, occ),
			Direction:      rule.Direction,
			Amount:         rule.BaseAmount,
			Memo:           rule.Memo,
			AccrualDate:    occ,
			DueDate:        due,
			Settled:        false,
			RuleID:         rule.ID,
			InstanceDate:   occ,
			Detached:       false,
			CounterpartyID: rule.CounterpartyID,
		})
	}
	return events, nil
}

// occurrences enumerates the rule's canonical occurrence dates in [from, to].
func occurrences(rule RecurringRule, from, to Date) []Date {
	var out []Date
	switch rule.Frequency {
	case Monthly:
		// Start one month early so a clamped occurrence just before `from`'s
		// month boundary is not missed, then filter by the range.
		year, month := AddMonths(from.Year(), from.Month(), -1)
		for {
			occ := ClampToMonth(year, month, rule.DayOfPeriod)
			if occ.After(to) {
				break
			}
			if occ.AfterOrEqual(from) {
				out = append(out, occ)
			}
			year, month = AddMonths(year, month, 1)
		}

	case Yearly:
		for year := from.Year() - 1; ; year++ {
			occ := ClampToMonth(year, rule.MonthOfYear, rule.DayOfPeriod)
			if occ.After(to) {
				break
			}
			if occ.AfterOrEqual(from) {
				out = append(out, occ)
			}
		}
	}
	return out
}

// instanceID derives a stable event ID from the instance key, making repeated
// expansion safe to merge against existing instances.
func instanceID(rule RuleID, occ Date) EventID {
	return EventID(string(rule) + "@" + occ.Key())
}

// DedupeAgainst drops produced events whose (RuleID, InstanceDate) key is
// already present in existing. Order of produced is preserved.
func DedupeAgainst(existing, produced []FinancialEvent) []FinancialEvent {
	seen := make(map[InstanceKey]bool, len(existing))
	for _, e := range existing {
		if e.IsRecurringInstance() {
			seen[e.InstanceKey()] = true
		}
	}

	var out []FinancialEvent
	for _, e := range produced {
		if seen[e.InstanceKey()] {
			continue
		}
		out = append(out, e)
	}
	return out
}
