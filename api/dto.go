/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the domain model from
  the external contract. Dates travel as YYYY-MM-DD strings; amounts as
  decimal strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/arimaro0217/bizflow-core/schedule"
)

// =============================================================================
// WORK ITEMS
// =============================================================================

type WorkItemDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Color     string `json:"color,omitempty"`
	Status    string `json:"status"`
	Important bool   `json:"important,omitempty"`
}

func workItemDTO(item schedule.WorkItem) WorkItemDTO {
	return WorkItemDTO{
		ID:        string(item.ID),
		Title:     item.Title,
		StartDate: item.Start.Key(),
		EndDate:   item.End.Key(),
		Color:     item.Color,
		Status:    string(item.Status),
		Important: item.Important,
	}
}

type SaveWorkItemRequest struct {
	Title     string `json:"title"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Color     string `json:"color"`
	Status    string `json:"status"`
	Important bool   `json:"important"`
}

// =============================================================================
// COUNTERPARTIES
// =============================================================================

type CounterpartyDTO struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	ClosingDay         int    `json:"closing_day"`
	PaymentMonthOffset int    `json:"payment_month_offset"`
	PaymentDay         int    `json:"payment_day"`
}

func counterpartyDTO(cp schedule.Counterparty) CounterpartyDTO {
	return CounterpartyDTO{
		ID:                 string(cp.ID),
		Name:               cp.Name,
		ClosingDay:         cp.ClosingDay,
		PaymentMonthOffset: cp.PaymentMonthOffset,
		PaymentDay:         cp.PaymentDay,
	}
}

type SaveCounterpartyRequest struct {
	Name               string `json:"name"`
	ClosingDay         int    `json:"closing_day"`
	PaymentMonthOffset int    `json:"payment_month_offset"`
	PaymentDay         int    `json:"payment_day"`
}

// =============================================================================
// RECURRING RULES
// =============================================================================

type RuleDTO struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Memo           string `json:"memo,omitempty"`
	BaseAmount     string `json:"base_amount"`
	Direction      string `json:"direction"`
	CounterpartyID string `json:"counterparty_id,omitempty"`
	Frequency      string `json:"frequency"`
	DayOfPeriod    int    `json:"day_of_period"`
	MonthOfYear    int    `json:"month_of_year,omitempty"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date,omitempty"`
	Active         bool   `json:"active"`
}

func ruleDTO(rule schedule.RecurringRule) RuleDTO {
	dto := RuleDTO{
		ID:             string(rule.ID),
		Title:          rule.Title,
		Memo:           rule.Memo,
		BaseAmount:     rule.BaseAmount.String(),
		Direction:      string(rule.Direction),
		CounterpartyID: string(rule.CounterpartyID),
		Frequency:      string(rule.Frequency),
		DayOfPeriod:    rule.DayOfPeriod,
		StartDate:      rule.Start.Key(),
		Active:         rule.Active,
	}
	if rule.Frequency == schedule.Yearly {
		dto.MonthOfYear = int(rule.MonthOfYear)
	}
	if rule.End != nil {
		dto.EndDate = rule.End.Key()
	}
	return dto
}

type CreateRuleRequest struct {
	Title          string `json:"title"`
	Memo           string `json:"memo"`
	BaseAmount     string `json:"base_amount"`
	Direction      string `json:"direction"`
	CounterpartyID string `json:"counterparty_id"`
	Frequency      string `json:"frequency"`
	DayOfPeriod    int    `json:"day_of_period"`
	MonthOfYear    int    `json:"month_of_year"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
}

// =============================================================================
// FINANCIAL EVENTS
// =============================================================================

type EventDTO struct {
	ID             string `json:"id"`
	Direction      string `json:"direction"`
	Amount         string `json:"amount"`
	Memo           string `json:"memo,omitempty"`
	AccrualDate    string `json:"accrual_date"`
	DueDate        string `json:"due_date"`
	Settled        bool   `json:"settled"`
	RuleID         string `json:"recurring_rule_id,omitempty"`
	InstanceDate   string `json:"instance_date,omitempty"`
	Detached       bool   `json:"detached,omitempty"`
	WorkItemID     string `json:"work_item_id,omitempty"`
	CounterpartyID string `json:"counterparty_id,omitempty"`
}

func eventDTO(e schedule.FinancialEvent) EventDTO {
	dto := EventDTO{
		ID:             string(e.ID),
		Direction:      string(e.Direction),
		Amount:         e.Amount.String(),
		Memo:           e.Memo,
		AccrualDate:    e.AccrualDate.Key(),
		DueDate:        e.DueDate.Key(),
		Settled:        e.Settled,
		RuleID:         string(e.RuleID),
		Detached:       e.Detached,
		WorkItemID:     string(e.WorkItemID),
		CounterpartyID: string(e.CounterpartyID),
	}
	if !e.InstanceDate.IsZero() {
		dto.InstanceDate = e.InstanceDate.Key()
	}
	return dto
}

// EditEventRequest applies a scoped edit to a recurring instance. Absent
// fields are left untouched; counterparty_id distinguishes absent from an
// explicit empty string (clear).
type EditEventRequest struct {
	Scope          string  `json:"scope"` // "single_instance" | "this_and_future"
	Amount         *string `json:"amount"`
	Direction      *string `json:"direction"`
	Memo           *string `json:"memo"`
	CounterpartyID *string `json:"counterparty_id"`
}

func (r EditEventRequest) patch() (schedule.EventPatch, error) {
	var patch schedule.EventPatch
	if r.Amount != nil {
		amt, err := decimal.NewFromString(*r.Amount)
		if err != nil {
			return patch, err
		}
		patch.Amount = &amt
	}
	if r.Direction != nil {
		d := schedule.Direction(*r.Direction)
		if !d.Valid() {
			return patch, schedule.ErrInvalidDirection
		}
		patch.Direction = &d
	}
	patch.Memo = r.Memo
	if r.CounterpartyID != nil {
		id := schedule.CounterpartyID(*r.CounterpartyID)
		patch.CounterpartyID = &id
	}
	return patch, nil
}

// =============================================================================
// CALENDAR
// =============================================================================

type CalendarDayDTO struct {
	Date     string `json:"date"`
	InPeriod bool   `json:"in_period"`
	IsToday  bool   `json:"is_today"`
	Inflow   string `json:"inflow"`
	Outflow  string `json:"outflow"`

	Slots    []SlotDTO `json:"slots,omitempty"`
	Overflow int       `json:"overflow,omitempty"`
}

type SlotDTO struct {
	WorkItemID   string `json:"work_item_id"`
	Title        string `json:"title"`
	Color        string `json:"color,omitempty"`
	Row          int    `json:"row"`
	IsRangeStart bool   `json:"is_range_start"`
	IsRangeEnd   bool   `json:"is_range_end"`
}

type CalendarDTO struct {
	Days        []CalendarDayDTO `json:"days"`
	MaxRowIndex int              `json:"max_row_index"`
}

func calendarDTO(layout *schedule.Layout) CalendarDTO {
	out := CalendarDTO{
		Days:        make([]CalendarDayDTO, 0, len(layout.Days)),
		MaxRowIndex: layout.MaxRowIndex,
	}
	for _, day := range layout.Days {
		dto := CalendarDayDTO{
			Date:     day.Key,
			InPeriod: day.InPeriod,
			IsToday:  day.IsToday,
			Inflow:   day.Inflow.String(),
			Outflow:  day.Outflow.String(),
			Overflow: layout.Overflow[day.Key],
		}
		for _, slot := range layout.Slots[day.Key] {
			if slot.IsOverflow {
				// Overflow items surface only as the aggregate count.
				continue
			}
			dto.Slots = append(dto.Slots, SlotDTO{
				WorkItemID:   string(slot.Item.ID),
				Title:        slot.Item.Title,
				Color:        slot.Item.Color,
				Row:          slot.Row,
				IsRangeStart: slot.IsRangeStart,
				IsRangeEnd:   slot.IsRangeEnd,
			})
		}
		out.Days = append(out.Days, dto)
	}
	return out
}

// =============================================================================
// MISC
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type ExtensionResultDTO struct {
	RulesExtended int `json:"rules_extended"`
	EventsCreated int `json:"events_created"`
}
