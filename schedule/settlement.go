/*
settlement.go - Closing-cycle due-date calculation

PURPOSE:
  Converts a work-completion date into a payment due date under closing-cycle
  billing: work completed on or before the counterparty's closing day belongs
  to that month's cycle; later work rolls into the next cycle. The cycle's
  payment lands PaymentMonthOffset whole months after the closing month, on
  PaymentDay.

  Example (close on the 20th, pay 1 month later on the 15th):
    completed Mar 18 -> cycle closes March  -> due Apr 15
    completed Mar 25 -> cycle closes April  -> due May 15

END-OF-MONTH SEMANTICS:
  Day 31 is the end-of-month sentinel on both closingDay and paymentDay:
  "last calendar day of that month, regardless of month length". A concrete
  day larger than the target month clamps to the month's last day
  (paymentDay=30 in February -> Feb 28/29).

  Pure, no side effects, no I/O.
*/
package schedule

// maxPaymentMonthOffset bounds the offset; anything beyond two years is a
// malformed input rather than a plausible billing term.
const maxPaymentMonthOffset = 24

// ComputeDueDate maps a completion date to its payment due date.
//
// Step 1: the cycle closes in completion's month if completion.Day() is on or
// before closingDay (always true for the end-of-month sentinel), otherwise in
// the following month.
// Step 2: add paymentMonthOffset whole months to the closing month.
// Step 3: land on paymentDay, clamped to the end of shorter months.
func ComputeDueDate(completion Date, closingDay, paymentMonthOffset, paymentDay int) (Date, error) {
	if closingDay < 1 || closingDay > EndOfMonthDay {
		return Date{}, &CycleParameterError{Field: "closing_day", Value: closingDay}
	}
	if paymentDay < 1 || paymentDay > EndOfMonthDay {
		return Date{}, &CycleParameterError{Field: "payment_day", Value: paymentDay}
	}
	if paymentMonthOffset < 0 || paymentMonthOffset > maxPaymentMonthOffset {
		return Date{}, &CycleParameterError{Field: "payment_month_offset", Value: paymentMonthOffset}
	}

	year, month := completion.Year(), completion.Month()
	if closingDay != EndOfMonthDay && completion.Day() > closingDay {
		year, month = AddMonths(year, month, 1)
	}

	year, month = AddMonths(year, month, paymentMonthOffset)
	return ClampToMonth(year, month, paymentDay), nil
}

// DueDateFor applies a counterparty's billing terms to a completion date.
// With no counterparty the obligation dues when it accrues.
func DueDateFor(cp *Counterparty, completion Date) (Date, error) {
	if cp == nil {
		return completion, nil
	}
	return ComputeDueDate(completion, cp.ClosingDay, cp.PaymentMonthOffset, cp.PaymentDay)
}
