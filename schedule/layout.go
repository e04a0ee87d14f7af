/*
layout.go - Packing date-ranged work onto a calendar grid

PURPOSE:
  Assigns a display row to each work item so that no two overlapping items
  share a row on any day, and aggregates per-day cash-flow totals. This is
  greedy interval-graph coloring: deterministic, O(items x days x rows), not
  globally optimal.

ALGORITHM:
  1. Clip each item's [start, end] to the visible window; discard items
     wholly outside it.
  2. Sort by start ascending, then span length descending — longer items
     claim rows first, which reduces total row count.
  3. For each item, take the smallest row index free on every day of its
     clipped span.

OVERFLOW:
  A fixed row cap bounds vertical space. An item that cannot fit is marked
  overflow on every day it touches and occupies no row; it degrades to a
  per-day "+N more" count, never disappears from the data model. This is a
  designed silent degradation, not an error.

PURITY:
  The packer never mutates its inputs and never reads the clock — "today"
  is a parameter.
*/
package schedule

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultMaxRows bounds the vertical space of a calendar cell.
const DefaultMaxRows = 3

// =============================================================================
// OUTPUT TYPES
// =============================================================================

// CalendarDay is one derived grid cell: recomputed per render window, never
// persisted.
type CalendarDay struct {
	Date     Date
	Key      string // canonical day key
	InPeriod bool   // inside the displayed period (vs. adjacent-month filler)
	IsToday  bool

	// Cash-flow totals of events whose display date falls on this day.
	Inflow  decimal.Decimal
	Outflow decimal.Decimal
}

// RenderableSlot places one work item on one day.
//
// Invariant: for a fixed day, no two non-overflow slots share a row.
type RenderableSlot struct {
	Item         WorkItem
	Row          int // -1 for overflow slots
	IsRangeStart bool
	IsRangeEnd   bool
	IsOverflow   bool
}

// Layout is the packed grid for one window.
type Layout struct {
	Days []CalendarDay

	// Slots maps day key -> slots on that day, ordered by row.
	Slots map[string][]RenderableSlot

	// Overflow maps day key -> count of items beyond the row cap ("+N more").
	Overflow map[string]int

	// MaxRowIndex is the highest non-overflow row used anywhere in the
	// window, -1 when no item occupies a row. Callers size the display
	// area from it.
	MaxRowIndex int
}

// =============================================================================
// INTERVAL PACKER
// =============================================================================

// IntervalPacker lays work items out on a calendar grid.
type IntervalPacker struct {
	// MaxRows is the row cap per day. Zero means DefaultMaxRows.
	MaxRows int
}

func (p IntervalPacker) maxRows() int {
	if p.MaxRows <= 0 {
		return DefaultMaxRows
	}
	return p.MaxRows
}

// Layout packs items into the window and aggregates event totals per day.
// Items are read-only input; invalid items (end before start) are skipped.
func (p IntervalPacker) Layout(items []WorkItem, events []FinancialEvent, window Window, today Date) (*Layout, error) {
	if window.Start.IsZero() || window.End.Before(window.Start) {
		return nil, ErrInvalidDateRange
	}

	grid := window.Range()
	numDays := DaysBetween(grid.Start, grid.End) + 1
	dayIndex := func(d Date) int { return DaysBetween(grid.Start, d) }

	out := &Layout{
		Slots:       make(map[string][]RenderableSlot),
		Overflow:    make(map[string]int),
		MaxRowIndex: -1,
	}

	// Grid cells.
	out.Days = make([]CalendarDay, 0, numDays)
	for cur := grid.Start; cur.BeforeOrEqual(grid.End); cur = cur.AddDays(1) {
		out.Days = append(out.Days, CalendarDay{
			Date:     cur,
			Key:      cur.Key(),
			InPeriod: window.Period.Contains(cur),
			IsToday:  cur.Equal(today),
			Inflow:   decimal.Zero,
			Outflow:  decimal.Zero,
		})
	}

	// Clip and sort items.
	type clipped struct {
		item       WorkItem
		start, end Date // clipped to the grid
	}
	var visible []clipped
	for _, item := range items {
		if item.Start.IsZero() || item.End.Before(item.Start) {
			continue
		}
		if item.End.Before(grid.Start) || item.Start.After(grid.End) {
			continue
		}
		visible = append(visible, clipped{
			item:  item,
			start: MaxDate(item.Start, grid.Start),
			end:   MinDate(item.End, grid.End),
		})
	}
	sort.SliceStable(visible, func(i, j int) bool {
		if !visible[i].start.Equal(visible[j].start) {
			return visible[i].start.Before(visible[j].start)
		}
		si, sj := visible[i].item.SpanDays(), visible[j].item.SpanDays()
		if si != sj {
			return si > sj
		}
		return visible[i].item.ID < visible[j].item.ID
	})

	// Greedy row assignment over a day-by-row occupancy grid.
	rowCap := p.maxRows()
	occupied := make([][]bool, numDays)
	for i := range occupied {
		occupied[i] = make([]bool, rowCap)
	}

	for _, c := range visible {
		from, to := dayIndex(c.start), dayIndex(c.end)

		row := -1
		for r := 0; r < rowCap; r++ {
			free := true
			for d := from; d <= to; d++ {
				if occupied[d][r] {
					free = false
					break
				}
			}
			if free {
				row = r
				break
			}
		}

		if row < 0 {
			// Beyond the cap: count per day, occupy nothing.
			for cur := c.start; cur.BeforeOrEqual(c.end); cur = cur.AddDays(1) {
				key := cur.Key()
				out.Overflow[key]++
				out.Slots[key] = append(out.Slots[key], RenderableSlot{
					Item:       c.item,
					Row:        -1,
					IsOverflow: true,
				})
			}
			continue
		}

		for d := from; d <= to; d++ {
			occupied[d][row] = true
		}
		if row > out.MaxRowIndex {
			out.MaxRowIndex = row
		}

		for cur := c.start; cur.BeforeOrEqual(c.end); cur = cur.AddDays(1) {
			key := cur.Key()
			out.Slots[key] = append(out.Slots[key], RenderableSlot{
				Item: c.item,
				Row:  row,
				// Caps come from the item's true bounds so a bar continuing
				// past the window edge renders without end caps.
				IsRangeStart: cur.Equal(c.item.Start),
				IsRangeEnd:   cur.Equal(c.item.End),
			})
		}
	}

	// Keep each day's slots in row order, overflow last.
	for key := range out.Slots {
		slots := out.Slots[key]
		sort.SliceStable(slots, func(i, j int) bool {
			ri, rj := slots[i].Row, slots[j].Row
			if slots[i].IsOverflow {
				ri = rowCap
			}
			if slots[j].IsOverflow {
				rj = rowCap
			}
			return ri < rj
		})
		out.Slots[key] = slots
	}

	// Per-day cash-flow totals: a separate, trivial reduction keyed on the
	// event's display date.
	totals := make(map[string]int, numDays)
	for i, day := range out.Days {
		totals[day.Key] = i
	}
	for _, e := range events {
		idx, ok := totals[e.DisplayDate().Key()]
		if !ok {
			continue
		}
		switch e.Direction {
		case Inflow:
			out.Days[idx].Inflow = out.Days[idx].Inflow.Add(e.Amount)
		case Outflow:
			out.Days[idx].Outflow = out.Days[idx].Outflow.Add(e.Amount)
		}
	}

	return out, nil
}
