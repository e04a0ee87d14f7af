/*
extension.go - Keeping materialized instances ahead of the present

PURPOSE:
  Rules are materialized lazily: only a bounded run of future instances
  exists in the store. This maintenance pass notices when an active rule's
  furthest instance has drifted inside the threshold ("within N months of
  now") and materializes the next contiguous window beyond it — nothing
  already present is regenerated, inactive rules never grow, and a rule
  never extends past its own end date.

  The pass is idempotent and safe to run on every application start: once a
  rule is extended its furthest instance sits beyond the threshold, so the
  next run does nothing.
*/
package schedule

const (
	// DefaultThresholdMonths: extension triggers when the furthest instance
	// is within this many months of now.
	DefaultThresholdMonths = 3

	// DefaultHorizonMonths: how far past now an extension materializes.
	DefaultHorizonMonths = 12
)

// ExtensionScheduler decides whether a rule needs more materialized future
// instances and produces only the missing ones.
type ExtensionScheduler struct {
	// ThresholdMonths triggers extension. Zero means DefaultThresholdMonths.
	ThresholdMonths int

	// HorizonMonths is the materialization target past now. Zero means
	// DefaultHorizonMonths. Must exceed ThresholdMonths to converge.
	HorizonMonths int

	expander RecurrenceExpander
}

func monthsAfter(now Date, months int) Date {
	year, month := AddMonths(now.Year(), now.Month(), months)
	return ClampToMonth(year, month, now.Day())
}

func (s ExtensionScheduler) threshold(now Date) Date {
	months := s.ThresholdMonths
	if months <= 0 {
		months = DefaultThresholdMonths
	}
	return monthsAfter(now, months)
}

func (s ExtensionScheduler) horizon(now Date) Date {
	months := s.HorizonMonths
	if months <= 0 {
		months = DefaultHorizonMonths
	}
	return monthsAfter(now, months)
}

// furthestInstance returns the latest instance date among existing instances
// of the rule, and whether any exist.
func furthestInstance(rule RecurringRule, existing []FinancialEvent) (Date, bool) {
	var furthest Date
	found := false
	for _, e := range existing {
		if e.RuleID != rule.ID {
			continue
		}
		if !found || e.InstanceDate.After(furthest) {
			furthest = e.InstanceDate
			found = true
		}
	}
	return furthest, found
}

// NeedsExtension reports whether the rule's materialization has drifted
// inside the threshold.
func (s ExtensionScheduler) NeedsExtension(rule RecurringRule, existing []FinancialEvent, now Date) bool {
	if !rule.Active {
		return false
	}

	limit := rule.EffectiveEnd(s.threshold(now))
	furthest, found := furthestInstance(rule, existing)
	if !found {
		// Nothing materialized yet: extend unless the rule starts beyond
		// the threshold.
		return !rule.Start.After(limit)
	}
	if rule.End != nil && furthest.AfterOrEqual(*rule.End) {
		// Fully materialized through the rule's own end.
		return false
	}
	return furthest.Before(limit)
}

// Extend produces the missing instances for the next contiguous window,
// from just beyond the furthest existing instance through the horizon,
// de-duplicated against what is already there. Returns nil when no
// extension is needed.
func (s ExtensionScheduler) Extend(rule RecurringRule, counterparty *Counterparty, existing []FinancialEvent, now Date) ([]FinancialEvent, error) {
	if !s.NeedsExtension(rule, existing, now) {
		return nil, nil
	}

	start := rule.Start
	if furthest, found := furthestInstance(rule, existing); found {
		start = furthest.AddDays(1)
	}
	target := rule.EffectiveEnd(s.horizon(now))
	if start.After(target) {
		return nil, nil
	}

	produced, err := s.expander.Expand(rule, counterparty, DateRange{Start: start, End: target})
	if err != nil {
		return nil, err
	}
	return DedupeAgainst(existing, produced), nil
}
