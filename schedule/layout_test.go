package schedule_test

import (
	"testing"
	"time"

	"github.com/arimaro0217/bizflow-core/schedule"
	"github.com/shopspring/decimal"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func item(id string, start, end schedule.Date) schedule.WorkItem {
	return schedule.WorkItem{
		ID:     schedule.WorkItemID(id),
		Title:  id,
		Start:  start,
		End:    end,
		Status: schedule.StatusConfirmed,
	}
}

func marchWindow() schedule.Window {
	return schedule.RangeWindow(date(2025, time.March, 1), date(2025, time.March, 31))
}

func rowOf(t *testing.T, l *schedule.Layout, day string, id schedule.WorkItemID) int {
	t.Helper()
	for _, slot := range l.Slots[day] {
		if slot.Item.ID == id {
			return slot.Row
		}
	}
	t.Fatalf("item %s not placed on %s", id, day)
	return -1
}

// assertNoRowCollisions checks the core packing invariant: on any single day,
// no two non-overflow slots share a row.
func assertNoRowCollisions(t *testing.T, l *schedule.Layout) {
	t.Helper()
	for day, slots := range l.Slots {
		rows := make(map[int]schedule.WorkItemID)
		for _, slot := range slots {
			if slot.IsOverflow {
				continue
			}
			if other, taken := rows[slot.Row]; taken {
				t.Errorf("day %s: items %s and %s share row %d", day, other, slot.Item.ID, slot.Row)
			}
			rows[slot.Row] = slot.Item.ID
		}
	}
}

// =============================================================================
// ROW ASSIGNMENT
// =============================================================================

func TestLayout_OverlappingItemsGetDistinctRows(t *testing.T) {
	// GIVEN: Three mutually overlapping items: A Mar 1-10, B Mar 5-15, C Mar 8-9
	// WHEN: Packing into a March window
	// THEN: Each takes the smallest free row: A=0, B=1, C=2; no day shows two
	//       items on the same row

	items := []schedule.WorkItem{
		item("a", date(2025, time.March, 1), date(2025, time.March, 10)),
		item("b", date(2025, time.March, 5), date(2025, time.March, 15)),
		item("c", date(2025, time.March, 8), date(2025, time.March, 9)),
	}

	l, err := schedule.IntervalPacker{}.Layout(items, nil, marchWindow(), date(2025, time.March, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertNoRowCollisions(t, l)

	if row := rowOf(t, l, "2025-03-08", "a"); row != 0 {
		t.Errorf("expected a on row 0, got %d", row)
	}
	if row := rowOf(t, l, "2025-03-08", "b"); row != 1 {
		t.Errorf("expected b on row 1, got %d", row)
	}
	if row := rowOf(t, l, "2025-03-08", "c"); row != 2 {
		t.Errorf("expected c on row 2, got %d", row)
	}
	if l.MaxRowIndex != 2 {
		t.Errorf("expected max row index 2, got %d", l.MaxRowIndex)
	}
}

func TestLayout_DisjointItemsShareRowZero(t *testing.T) {
	// GIVEN: Two items that never overlap
	// WHEN: Packing
	// THEN: Both sit on row 0; the row count stays minimal

	items := []schedule.WorkItem{
		item("a", date(2025, time.March, 1), date(2025, time.March, 5)),
		item("b", date(2025, time.March, 6), date(2025, time.March, 10)),
	}

	l, err := schedule.IntervalPacker{}.Layout(items, nil, marchWindow(), date(2025, time.March, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row := rowOf(t, l, "2025-03-03", "a"); row != 0 {
		t.Errorf("expected a on row 0, got %d", row)
	}
	if row := rowOf(t, l, "2025-03-08", "b"); row != 0 {
		t.Errorf("expected b to reuse row 0, got %d", row)
	}
	if l.MaxRowIndex != 0 {
		t.Errorf("expected max row index 0, got %d", l.MaxRowIndex)
	}
}

func TestLayout_FreedRowIsReused(t *testing.T) {
	// GIVEN: A long item on row 0, a short overlap on row 1 that ends, then a
	//        later item overlapping only the long one
	// WHEN: Packing
	// THEN: The later item reuses row 1 instead of opening row 2

	items := []schedule.WorkItem{
		item("long", date(2025, time.March, 1), date(2025, time.March, 20)),
		item("early", date(2025, time.March, 2), date(2025, time.March, 4)),
		item("late", date(2025, time.March, 10), date(2025, time.March, 12)),
	}

	l, err := schedule.IntervalPacker{}.Layout(items, nil, marchWindow(), date(2025, time.March, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row := rowOf(t, l, "2025-03-10", "late"); row != 1 {
		t.Errorf("expected late item to reuse row 1, got %d", row)
	}
	if l.MaxRowIndex != 1 {
		t.Errorf("expected max row index 1, got %d", l.MaxRowIndex)
	}
}

func TestLayout_DeterministicAcrossInputOrder(t *testing.T) {
	// GIVEN: The same items in two different input orders
	// WHEN: Packing both
	// THEN: Row assignments are identical — layout depends on dates and IDs,
	//       never on slice order

	a := item("a", date(2025, time.March, 1), date(2025, time.March, 10))
	b := item("b", date(2025, time.March, 5), date(2025, time.March, 15))
	c := item("c", date(2025, time.March, 8), date(2025, time.March, 9))

	l1, err := schedule.IntervalPacker{}.Layout([]schedule.WorkItem{a, b, c}, nil, marchWindow(), date(2025, time.March, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l2, err := schedule.IntervalPacker{}.Layout([]schedule.WorkItem{c, b, a}, nil, marchWindow(), date(2025, time.March, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, id := range []schedule.WorkItemID{"a", "b", "c"} {
		r1 := rowOf(t, l1, "2025-03-08", id)
		r2 := rowOf(t, l2, "2025-03-08", id)
		if r1 != r2 {
			t.Errorf("item %s: row %d vs %d depending on input order", id, r1, r2)
		}
	}
}

// =============================================================================
// OVERFLOW
// =============================================================================

func TestLayout_OverflowBeyondRowCap(t *testing.T) {
	// GIVEN: Four items overlapping on Mar 8-9 under the default cap of 3
	// WHEN: Packing
	// THEN: The fourth degrades to a per-day overflow count with no row; days
	//       it does not touch show no overflow

	items := []schedule.WorkItem{
		item("a", date(2025, time.March, 1), date(2025, time.March, 10)),
		item("b", date(2025, time.March, 5), date(2025, time.March, 15)),
		item("c", date(2025, time.March, 8), date(2025, time.March, 9)),
		item("d", date(2025, time.March, 8), date(2025, time.March, 9)),
	}

	l, err := schedule.IntervalPacker{}.Layout(items, nil, marchWindow(), date(2025, time.March, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertNoRowCollisions(t, l)

	if l.Overflow["2025-03-08"] != 1 {
		t.Errorf("expected 1 overflow on Mar 8, got %d", l.Overflow["2025-03-08"])
	}
	if l.Overflow["2025-03-09"] != 1 {
		t.Errorf("expected 1 overflow on Mar 9, got %d", l.Overflow["2025-03-09"])
	}
	if l.Overflow["2025-03-07"] != 0 {
		t.Errorf("expected no overflow on Mar 7, got %d", l.Overflow["2025-03-07"])
	}

	// The overflowed item is still present in the data model, flagged and
	// ordered after every rowed slot.
	slots := l.Slots["2025-03-08"]
	last := slots[len(slots)-1]
	if !last.IsOverflow || last.Row != -1 || last.Item.ID != "d" {
		t.Errorf("expected d as trailing overflow slot, got %+v", last)
	}
}

func TestLayout_HigherCapAbsorbsOverflow(t *testing.T) {
	// GIVEN: The same four overlapping items with the cap raised to 4
	// WHEN: Packing
	// THEN: Everything fits; no overflow anywhere

	items := []schedule.WorkItem{
		item("a", date(2025, time.March, 1), date(2025, time.March, 10)),
		item("b", date(2025, time.March, 5), date(2025, time.March, 15)),
		item("c", date(2025, time.March, 8), date(2025, time.March, 9)),
		item("d", date(2025, time.March, 8), date(2025, time.March, 9)),
	}

	l, err := schedule.IntervalPacker{MaxRows: 4}.Layout(items, nil, marchWindow(), date(2025, time.March, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(l.Overflow) != 0 {
		t.Errorf("expected no overflow, got %v", l.Overflow)
	}
	if l.MaxRowIndex != 3 {
		t.Errorf("expected max row index 3, got %d", l.MaxRowIndex)
	}
}

// =============================================================================
// CLIPPING AND RANGE CAPS
// =============================================================================

func TestLayout_ItemSpanningWindowEdge_ClippedWithoutCaps(t *testing.T) {
	// GIVEN: An item running Feb 20 through Mar 5, shown in a March window
	// WHEN: Packing
	// THEN: Only the March days get slots, and Mar 1 is not flagged as the
	//       range start — the bar continues past the window edge

	items := []schedule.WorkItem{
		item("span", date(2025, time.February, 20), date(2025, time.March, 5)),
	}

	l, err := schedule.IntervalPacker{}.Layout(items, nil, marchWindow(), date(2025, time.March, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(l.Slots["2025-02-28"]) != 0 {
		t.Error("expected no slots outside the window")
	}

	first := l.Slots["2025-03-01"][0]
	if first.IsRangeStart {
		t.Error("clipped start must not carry the range-start cap")
	}
	last := l.Slots["2025-03-05"][0]
	if !last.IsRangeEnd {
		t.Error("true end inside the window must carry the range-end cap")
	}
}

func TestLayout_ItemWhollyOutsideWindow_Ignored(t *testing.T) {
	// GIVEN: An item entirely in April
	// WHEN: Packing a March window
	// THEN: It contributes nothing

	items := []schedule.WorkItem{
		item("apr", date(2025, time.April, 2), date(2025, time.April, 8)),
	}

	l, err := schedule.IntervalPacker{}.Layout(items, nil, marchWindow(), date(2025, time.March, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(l.Slots) != 0 || l.MaxRowIndex != -1 {
		t.Errorf("expected empty layout, got %d slot days, max row %d", len(l.Slots), l.MaxRowIndex)
	}
}

func TestLayout_InvalidItemSkipped(t *testing.T) {
	// GIVEN: An item whose end precedes its start, next to a valid one
	// WHEN: Packing
	// THEN: The malformed item is skipped; the valid one packs normally

	items := []schedule.WorkItem{
		item("bad", date(2025, time.March, 10), date(2025, time.March, 5)),
		item("good", date(2025, time.March, 1), date(2025, time.March, 3)),
	}

	l, err := schedule.IntervalPacker{}.Layout(items, nil, marchWindow(), date(2025, time.March, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row := rowOf(t, l, "2025-03-02", "good"); row != 0 {
		t.Errorf("expected good on row 0, got %d", row)
	}
	if len(l.Slots["2025-03-10"]) != 0 {
		t.Error("malformed item must not be placed")
	}
}

// =============================================================================
// GRID CELLS AND CASH-FLOW TOTALS
// =============================================================================

func TestLayout_GridCellsMarkPeriodAndToday(t *testing.T) {
	// GIVEN: A month window for March 2025 starting weeks on Monday
	// WHEN: Packing with today = Mar 12
	// THEN: Leading February days are outside the period, March days inside,
	//       and exactly one cell is marked today

	win := schedule.MonthWindow(2025, time.March, time.Monday)
	l, err := schedule.IntervalPacker{}.Layout(nil, nil, win, date(2025, time.March, 12))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	todayCount := 0
	for _, day := range l.Days {
		inMarch := day.Date.Month() == time.March
		if day.InPeriod != inMarch {
			t.Errorf("day %s: InPeriod=%v", day.Key, day.InPeriod)
		}
		if day.IsToday {
			todayCount++
			if day.Key != "2025-03-12" {
				t.Errorf("wrong today cell: %s", day.Key)
			}
		}
	}
	if todayCount != 1 {
		t.Errorf("expected exactly one today cell, got %d", todayCount)
	}
}

func TestLayout_AggregatesTotalsByDisplayDate(t *testing.T) {
	// GIVEN: Two inflows and one outflow, one inflow due outside the window
	// WHEN: Packing
	// THEN: Totals land on each event's display date; the out-of-window
	//       event is excluded

	events := []schedule.FinancialEvent{
		{ID: "e1", Direction: schedule.Inflow, Amount: decimal.NewFromInt(300000),
			AccrualDate: date(2025, time.February, 25), DueDate: date(2025, time.March, 10)},
		{ID: "e2", Direction: schedule.Inflow, Amount: decimal.NewFromInt(150000),
			AccrualDate: date(2025, time.March, 10)},
		{ID: "e3", Direction: schedule.Outflow, Amount: decimal.NewFromInt(50000),
			AccrualDate: date(2025, time.March, 25), DueDate: date(2025, time.March, 25)},
		{ID: "e4", Direction: schedule.Inflow, Amount: decimal.NewFromInt(999999),
			AccrualDate: date(2025, time.March, 28), DueDate: date(2025, time.April, 15)},
	}

	l, err := schedule.IntervalPacker{}.Layout(nil, events, marchWindow(), date(2025, time.March, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var mar10, mar25 schedule.CalendarDay
	for _, day := range l.Days {
		switch day.Key {
		case "2025-03-10":
			mar10 = day
		case "2025-03-25":
			mar25 = day
		}
	}

	// e1 lands on its due date, e2 on its accrual date; both on Mar 10.
	if !mar10.Inflow.Equal(decimal.NewFromInt(450000)) {
		t.Errorf("expected Mar 10 inflow 450000, got %s", mar10.Inflow)
	}
	if !mar25.Outflow.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("expected Mar 25 outflow 50000, got %s", mar25.Outflow)
	}

	// e4 dues in April: nowhere in this window.
	for _, day := range l.Days {
		if day.Inflow.Add(day.Outflow).GreaterThan(decimal.NewFromInt(500000)) {
			t.Errorf("day %s: out-of-window event leaked into totals", day.Key)
		}
	}
}

func TestLayout_RejectsInvalidWindow(t *testing.T) {
	// GIVEN: A window whose end precedes its start
	// WHEN: Packing
	// THEN: ErrInvalidDateRange

	win := schedule.RangeWindow(date(2025, time.March, 31), date(2025, time.March, 1))
	if _, err := (schedule.IntervalPacker{}).Layout(nil, nil, win, date(2025, time.March, 1)); err == nil {
		t.Fatal("expected an error for an inverted window")
	}
}
