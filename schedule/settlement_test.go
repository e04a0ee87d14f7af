package schedule_test

import (
	"errors"
	"testing"
	"time"

	"github.com/arimaro0217/bizflow-core/schedule"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) schedule.Date {
	return schedule.NewDate(year, month, day)
}

// =============================================================================
// CLOSING-CYCLE DUE DATE TESTS
// =============================================================================

func TestComputeDueDate_OnOrBeforeClosingDay_SameCycle(t *testing.T) {
	// GIVEN: Terms closing on the 20th, paying 1 month later on the 15th
	// WHEN: Work completes Mar 18 (before the closing day)
	// THEN: The March cycle pays Apr 15

	due, err := schedule.ComputeDueDate(date(2025, time.March, 18), 20, 1, 15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !due.Equal(date(2025, time.April, 15)) {
		t.Errorf("expected 2025-04-15, got %s", due)
	}
}

func TestComputeDueDate_AfterClosingDay_RollsToNextCycle(t *testing.T) {
	// GIVEN: Terms closing on the 20th, paying 1 month later on the 15th
	// WHEN: Work completes Mar 25 (after the closing day)
	// THEN: The obligation rolls into the April cycle and pays May 15

	due, err := schedule.ComputeDueDate(date(2025, time.March, 25), 20, 1, 15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !due.Equal(date(2025, time.May, 15)) {
		t.Errorf("expected 2025-05-15, got %s", due)
	}
}

func TestComputeDueDate_CompletionOnClosingDayExactly(t *testing.T) {
	// GIVEN: Terms closing on the 20th
	// WHEN: Work completes exactly on the 20th
	// THEN: It still belongs to that month's cycle (boundary is inclusive)

	due, err := schedule.ComputeDueDate(date(2025, time.March, 20), 20, 1, 15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !due.Equal(date(2025, time.April, 15)) {
		t.Errorf("expected 2025-04-15, got %s", due)
	}
}

func TestComputeDueDate_EndOfMonthClosing_NeverRolls(t *testing.T) {
	// GIVEN: End-of-month closing (sentinel 31)
	// WHEN: Work completes on the last day of a 30-day month
	// THEN: The cycle is that month; nothing rolls forward

	due, err := schedule.ComputeDueDate(date(2025, time.April, 30), schedule.EndOfMonthDay, 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !due.Equal(date(2025, time.May, 10)) {
		t.Errorf("expected 2025-05-10, got %s", due)
	}
}

func TestComputeDueDate_EndOfMonthPayment_ClampsToShortMonth(t *testing.T) {
	// GIVEN: End-of-month closing and end-of-month payment, offset 1
	// WHEN: Work completes Jan 31 of a non-leap year
	// THEN: Payment lands on Feb 28, the last day of the short month

	due, err := schedule.ComputeDueDate(date(2025, time.January, 31), schedule.EndOfMonthDay, 1, schedule.EndOfMonthDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !due.Equal(date(2025, time.February, 28)) {
		t.Errorf("expected 2025-02-28, got %s", due)
	}
}

func TestComputeDueDate_EndOfMonthPayment_LeapFebruary(t *testing.T) {
	// GIVEN: The same end-of-month terms
	// WHEN: Work completes Jan 31 of a leap year
	// THEN: Payment lands on Feb 29

	due, err := schedule.ComputeDueDate(date(2024, time.January, 31), schedule.EndOfMonthDay, 1, schedule.EndOfMonthDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !due.Equal(date(2024, time.February, 29)) {
		t.Errorf("expected 2024-02-29, got %s", due)
	}
}

func TestComputeDueDate_ConcretePaymentDayClamps(t *testing.T) {
	// GIVEN: Payment on day 30 (a concrete day, not the sentinel)
	// WHEN: The payment month is February
	// THEN: Day 30 clamps to Feb 28 rather than overflowing into March

	due, err := schedule.ComputeDueDate(date(2025, time.January, 20), 25, 1, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !due.Equal(date(2025, time.February, 28)) {
		t.Errorf("expected 2025-02-28, got %s", due)
	}
}

func TestComputeDueDate_ZeroOffset_PaysInClosingMonth(t *testing.T) {
	// GIVEN: Offset 0 (payment in the closing month itself)
	// WHEN: Work completes mid-March with end-of-month closing
	// THEN: Payment lands at the end of March

	due, err := schedule.ComputeDueDate(date(2025, time.March, 10), schedule.EndOfMonthDay, 0, schedule.EndOfMonthDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !due.Equal(date(2025, time.March, 31)) {
		t.Errorf("expected 2025-03-31, got %s", due)
	}
}

func TestComputeDueDate_YearBoundary(t *testing.T) {
	// GIVEN: Terms closing on the 20th with a 2-month offset
	// WHEN: Work completes Dec 28 (after the closing day)
	// THEN: The cycle rolls to January and pays in March of the next year

	due, err := schedule.ComputeDueDate(date(2025, time.December, 28), 20, 2, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !due.Equal(date(2026, time.March, 5)) {
		t.Errorf("expected 2026-03-05, got %s", due)
	}
}

// =============================================================================
// PARAMETER VALIDATION
// =============================================================================

func TestComputeDueDate_RejectsMalformedParameters(t *testing.T) {
	// GIVEN: Billing-cycle parameters outside their valid ranges
	// WHEN: Computing a due date with each
	// THEN: Each yields a CycleParameterError naming the offending field

	completion := date(2025, time.June, 15)
	cases := []struct {
		name                     string
		closing, offset, payment int
		field                    string
	}{
		{"closing day zero", 0, 1, 15, "closing_day"},
		{"closing day beyond 31", 32, 1, 15, "closing_day"},
		{"payment day zero", 20, 1, 0, "payment_day"},
		{"payment day beyond 31", 20, 1, 99, "payment_day"},
		{"negative offset", 20, -1, 15, "payment_month_offset"},
		{"offset beyond two years", 20, 25, 15, "payment_month_offset"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := schedule.ComputeDueDate(completion, tc.closing, tc.offset, tc.payment)
			if err == nil {
				t.Fatal("expected an error, got none")
			}
			if !errors.Is(err, schedule.ErrInvalidCycleParameters) {
				t.Errorf("expected ErrInvalidCycleParameters, got %v", err)
			}
			var cycleErr *schedule.CycleParameterError
			if !errors.As(err, &cycleErr) {
				t.Fatalf("expected CycleParameterError, got %T", err)
			}
			if cycleErr.Field != tc.field {
				t.Errorf("expected field %q, got %q", tc.field, cycleErr.Field)
			}
		})
	}
}

func TestDueDateFor_NilCounterparty_DuesOnCompletion(t *testing.T) {
	// GIVEN: No counterparty (no billing terms)
	// WHEN: Deriving a due date
	// THEN: The obligation dues when it accrues

	completion := date(2025, time.July, 7)
	due, err := schedule.DueDateFor(nil, completion)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !due.Equal(completion) {
		t.Errorf("expected %s, got %s", completion, due)
	}
}

func TestDueDateFor_AppliesCounterpartyTerms(t *testing.T) {
	// GIVEN: A counterparty closing end-of-month, paying next month on the 25th
	// WHEN: Work completes Feb 10
	// THEN: Payment lands Mar 25

	cp := &schedule.Counterparty{
		ID:                 "cp-1",
		Name:               "Acme Studio",
		ClosingDay:         schedule.EndOfMonthDay,
		PaymentMonthOffset: 1,
		PaymentDay:         25,
	}
	due, err := schedule.DueDateFor(cp, date(2025, time.February, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !due.Equal(date(2025, time.March, 25)) {
		t.Errorf("expected 2025-03-25, got %s", due)
	}
}
