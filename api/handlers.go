/*
handlers.go - HTTP API handlers for the scheduling core

PURPOSE:
  Exposes the scheduling core via REST. Handles HTTP request/response and
  JSON serialization, delegates all computation to the schedule package, and
  applies every state change through a single atomic EditPlan.

ENDPOINTS:
  Work items:
    GET    /api/workitems              List
    POST   /api/workitems              Create
    PUT    /api/workitems/{id}         Update (status change, date move)
    DELETE /api/workitems/{id}         Delete

  Counterparties:
    GET    /api/counterparties         List
    POST   /api/counterparties         Create

  Rules:
    GET    /api/rules                  List
    POST   /api/rules                  Create + materialize initial horizon
    DELETE /api/rules/{id}             Delete with cascade (unsettled,
                                       attached instances only)

  Events:
    GET    /api/events?from=&to=       List in window
    POST   /api/events/{id}/edit       Scoped edit (single / this-and-future)

  Calendar:
    GET    /api/calendar?year=&month=  Month grid: days, slots, totals

  Maintenance:
    POST   /api/maintenance/extend     Run the extension pass now

ERROR HANDLING:
  - 400: validation errors, scope misuse, malformed cycle parameters
  - 404: missing records
  - 500: store failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - maintenance.go: Periodic extension runner
*/
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arimaro0217/bizflow-core/schedule"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store schedule.LedgerStore

	// HorizonMonths controls how far rules materialize on creation and
	// extension. Zero means schedule.DefaultHorizonMonths.
	HorizonMonths int

	// MaxRows is the calendar row cap. Zero means schedule.DefaultMaxRows.
	MaxRows int

	// WeekStart is the first day of week for month grids.
	WeekStart time.Weekday

	// Now returns the current date; overridable in tests.
	Now func() schedule.Date
}

// NewHandler creates a handler with the given store.
func NewHandler(store schedule.LedgerStore) *Handler {
	return &Handler{
		Store:     store,
		WeekStart: time.Monday,
		Now:       schedule.Today,
	}
}

func (h *Handler) scheduler() schedule.ExtensionScheduler {
	return schedule.ExtensionScheduler{HorizonMonths: h.HorizonMonths}
}

// =============================================================================
// WORK ITEM HANDLERS
// =============================================================================

func (h *Handler) ListWorkItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.ListWorkItems(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list work items", err)
		return
	}
	dtos := make([]WorkItemDTO, len(items))
	for i, item := range items {
		dtos[i] = workItemDTO(item)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateWorkItem(w http.ResponseWriter, r *http.Request) {
	item, ok := h.decodeWorkItem(w, r, schedule.WorkItemID(uuid.NewString()))
	if !ok {
		return
	}
	if err := h.Store.SaveWorkItem(r.Context(), item); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save work item", err)
		return
	}
	writeJSON(w, http.StatusCreated, workItemDTO(item))
}

func (h *Handler) UpdateWorkItem(w http.ResponseWriter, r *http.Request) {
	id := schedule.WorkItemID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetWorkItem(r.Context(), id); err != nil {
		writeStoreError(w, "Work item", err)
		return
	}
	item, ok := h.decodeWorkItem(w, r, id)
	if !ok {
		return
	}
	if err := h.Store.SaveWorkItem(r.Context(), item); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save work item", err)
		return
	}
	writeJSON(w, http.StatusOK, workItemDTO(item))
}

func (h *Handler) DeleteWorkItem(w http.ResponseWriter, r *http.Request) {
	id := schedule.WorkItemID(chi.URLParam(r, "id"))
	if err := h.Store.DeleteWorkItem(r.Context(), id); err != nil {
		writeStoreError(w, "Work item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeWorkItem(w http.ResponseWriter, r *http.Request, id schedule.WorkItemID) (schedule.WorkItem, bool) {
	var req SaveWorkItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return schedule.WorkItem{}, false
	}
	start, err := schedule.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)", err)
		return schedule.WorkItem{}, false
	}
	end, err := schedule.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", err)
		return schedule.WorkItem{}, false
	}
	status := schedule.WorkItemStatus(req.Status)
	if req.Status == "" {
		status = schedule.StatusDraft
	}

	item := schedule.WorkItem{
		ID:        id,
		Title:     req.Title,
		Start:     start,
		End:       end,
		Color:     req.Color,
		Status:    status,
		Important: req.Important,
	}
	if err := item.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid work item", err)
		return schedule.WorkItem{}, false
	}
	return item, true
}

// =============================================================================
// COUNTERPARTY HANDLERS
// =============================================================================

func (h *Handler) ListCounterparties(w http.ResponseWriter, r *http.Request) {
	cps, err := h.Store.ListCounterparties(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list counterparties", err)
		return
	}
	dtos := make([]CounterpartyDTO, len(cps))
	for i, cp := range cps {
		dtos[i] = counterpartyDTO(cp)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateCounterparty(w http.ResponseWriter, r *http.Request) {
	var req SaveCounterpartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	// Reject malformed billing terms up front; computing a due date later
	// must not be the first place they fail.
	if _, err := schedule.ComputeDueDate(h.Now(), req.ClosingDay, req.PaymentMonthOffset, req.PaymentDay); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid billing cycle parameters", err)
		return
	}

	cp := schedule.Counterparty{
		ID:                 schedule.CounterpartyID(uuid.NewString()),
		Name:               req.Name,
		ClosingDay:         req.ClosingDay,
		PaymentMonthOffset: req.PaymentMonthOffset,
		PaymentDay:         req.PaymentDay,
	}
	if err := h.Store.SaveCounterparty(r.Context(), cp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save counterparty", err)
		return
	}
	writeJSON(w, http.StatusCreated, counterpartyDTO(cp))
}

// =============================================================================
// RULE HANDLERS
// =============================================================================

func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Store.ListRules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rules", err)
		return
	}
	dtos := make([]RuleDTO, len(rules))
	for i, rule := range rules {
		dtos[i] = ruleDTO(rule)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRule persists a new rule and materializes its instances from the rule
// start through the horizon, as one atomic plan.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.BaseAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid base_amount", err)
		return
	}
	start, err := schedule.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)", err)
		return
	}

	rule := schedule.RecurringRule{
		ID:             schedule.RuleID(uuid.NewString()),
		Title:          req.Title,
		Memo:           req.Memo,
		BaseAmount:     amount,
		Direction:      schedule.Direction(req.Direction),
		CounterpartyID: schedule.CounterpartyID(req.CounterpartyID),
		Frequency:      schedule.Frequency(req.Frequency),
		DayOfPeriod:    req.DayOfPeriod,
		MonthOfYear:    time.Month(req.MonthOfYear),
		Start:          start,
		Active:         true,
	}
	if req.EndDate != "" {
		end, err := schedule.ParseDate(req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", err)
			return
		}
		rule.End = &end
	}
	if err := rule.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rule", err)
		return
	}

	cp, ok := h.loadCounterparty(w, r, rule.CounterpartyID)
	if !ok {
		return
	}

	events, err := h.scheduler().Extend(rule, cp, nil, h.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to materialize rule", err)
		return
	}

	plan := schedule.EditPlan{}
	plan.CreateRule(rule)
	for _, e := range events {
		plan.CreateEvent(e)
	}
	if err := h.Store.ApplyPlan(r.Context(), plan); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to apply plan", err)
		return
	}

	log.Printf("[Rules] Created %s with %d materialized instances", rule.ID, len(events))
	writeJSON(w, http.StatusCreated, ruleDTO(rule))
}

// DeleteRule removes a rule and cascades only to its unsettled, still-attached
// instances; settled and detached instances survive as independent history.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id := schedule.RuleID(chi.URLParam(r, "id"))

	rule, err := h.Store.GetRule(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Rule", err)
		return
	}
	instances, err := h.Store.ListEventsByRule(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load rule instances", err)
		return
	}

	plan := schedule.PlanRuleDeletion(*rule, instances)
	if err := h.Store.ApplyPlan(r.Context(), plan); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to apply plan", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// EVENT HANDLERS
// =============================================================================

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	from, err := schedule.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from (use YYYY-MM-DD)", err)
		return
	}
	to, err := schedule.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to (use YYYY-MM-DD)", err)
		return
	}

	events, err := h.Store.ListEventsInRange(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events", err)
		return
	}
	dtos := make([]EventDTO, len(events))
	for i, e := range events {
		dtos[i] = eventDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// EditEvent applies a scoped edit to a recurring instance and commits the
// resulting plan atomically.
func (h *Handler) EditEvent(w http.ResponseWriter, r *http.Request) {
	id := schedule.EventID(chi.URLParam(r, "id"))

	var req EditEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid patch values", err)
		return
	}

	target, err := h.Store.GetEvent(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Event", err)
		return
	}

	in := schedule.EditInput{
		Target: *target,
		Patch:  patch,
		Scope:  schedule.EditScope(req.Scope),
	}
	if target.IsRecurringInstance() {
		rule, err := h.Store.GetRule(r.Context(), target.RuleID)
		if err != nil {
			writeStoreError(w, "Rule", err)
			return
		}
		in.Rule = rule

		siblings, err := h.Store.ListEventsByRule(r.Context(), target.RuleID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load rule instances", err)
			return
		}
		in.Siblings = siblings
	}
	if patch.CounterpartyID != nil && *patch.CounterpartyID != "" {
		cp, ok := h.loadCounterparty(w, r, *patch.CounterpartyID)
		if !ok {
			return
		}
		in.Counterparty = cp
	}

	plan, err := schedule.SplitUpdateCoordinator{}.ApplyEdit(in)
	if err != nil {
		writeDomainError(w, "Edit rejected", err)
		return
	}
	if err := h.Store.ApplyPlan(r.Context(), plan); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to apply plan", err)
		return
	}

	updated, err := h.Store.GetEvent(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Event", err)
		return
	}
	writeJSON(w, http.StatusOK, eventDTO(*updated))
}

// =============================================================================
// CALENDAR HANDLER
// =============================================================================

// GetCalendar packs the month grid: work item slots plus per-day totals.
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}

	window := schedule.MonthWindow(year, time.Month(month), h.WeekStart)

	items, err := h.Store.ListWorkItems(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list work items", err)
		return
	}
	events, err := h.Store.ListEventsInRange(r.Context(), window.Start, window.End)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events", err)
		return
	}

	packer := schedule.IntervalPacker{MaxRows: h.MaxRows}
	layout, err := packer.Layout(items, events, window, h.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to pack calendar", err)
		return
	}
	writeJSON(w, http.StatusOK, calendarDTO(layout))
}

// =============================================================================
// MAINTENANCE HANDLER
// =============================================================================

// TriggerExtension runs the extension pass immediately.
func (h *Handler) TriggerExtension(w http.ResponseWriter, r *http.Request) {
	result, err := h.RunExtensionPass(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Extension pass failed", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) loadCounterparty(w http.ResponseWriter, r *http.Request, id schedule.CounterpartyID) (*schedule.Counterparty, bool) {
	if id == "" {
		return nil, true
	}
	cp, err := h.Store.GetCounterparty(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Counterparty", err)
		return nil, false
	}
	return cp, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps core errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, msg string, err error) {
	switch {
	case schedule.IsClientError(err):
		writeError(w, http.StatusBadRequest, msg, err)
	case schedule.IsNotFound(err):
		writeError(w, http.StatusNotFound, msg, err)
	default:
		writeError(w, http.StatusInternalServerError, msg, err)
	}
}

func writeStoreError(w http.ResponseWriter, what string, err error) {
	if schedule.IsNotFound(err) {
		writeError(w, http.StatusNotFound, what+" not found", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "Failed to load "+what, err)
}
