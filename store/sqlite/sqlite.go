/*
Package sqlite provides a SQLite-backed implementation of the LedgerStore.

PURPOSE:
  Persists work items, counterparties, recurring rules, and financial events,
  and executes EditPlans. In production the same patterns apply to PostgreSQL;
  only minor SQL dialect differences.

ATOMICITY:
  ApplyPlan runs every operation of a plan inside one SQL transaction. Either
  the whole plan commits or none of it does — the transactional primitive
  referenced by the core's concurrency model. A sync.Mutex serializes plan
  application, so concurrent plans against the same rule cannot interleave.

KEY TABLES:
  work_items:       date-ranged projects
  counterparties:   billing-cycle terms
  recurring_rules:  abstract repeating obligations
  financial_events: dated instances (derived, may diverge from their rule)

INDEXES:
  - idx_events_rule_instance: unique on (rule_id, instance_date) — enforces
    the de-duplication key for materialized instances at the storage level
  - idx_events_display_date:  window queries for the calendar (hot path)

WAL MODE:
  Opened with WAL for better read concurrency and crash recovery.

USAGE:
  store, err := sqlite.New("./data/bizflow.db")
  defer store.Close()

SEE ALSO:
  - schedule/store.go: interface definition
  - schedule/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/arimaro0217/bizflow-core/schedule"
)

// Store implements schedule.LedgerStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex // serializes plan application
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: the store is single-writer anyway, and a ":memory:"
	// database exists per connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schemaSQL := `
	CREATE TABLE IF NOT EXISTS work_items (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		color TEXT,
		status TEXT NOT NULL,
		important INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_work_items_start
		ON work_items(start_date);

	CREATE TABLE IF NOT EXISTS counterparties (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		closing_day INTEGER NOT NULL,
		payment_month_offset INTEGER NOT NULL,
		payment_day INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS recurring_rules (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		memo TEXT,
		base_amount TEXT NOT NULL,
		direction TEXT NOT NULL,
		counterparty_id TEXT,
		frequency TEXT NOT NULL,
		day_of_period INTEGER NOT NULL,
		month_of_year INTEGER,
		start_date TEXT NOT NULL,
		end_date TEXT,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS financial_events (
		id TEXT PRIMARY KEY,
		direction TEXT NOT NULL,
		amount TEXT NOT NULL,
		memo TEXT,
		accrual_date TEXT NOT NULL,
		due_date TEXT NOT NULL,
		settled INTEGER NOT NULL DEFAULT 0,
		rule_id TEXT,
		instance_date TEXT,
		detached INTEGER NOT NULL DEFAULT 0,
		work_item_id TEXT,
		counterparty_id TEXT
	);

	-- The de-duplication key for materialized instances, enforced in storage.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_events_rule_instance
		ON financial_events(rule_id, instance_date)
		WHERE rule_id IS NOT NULL AND rule_id != '';

	-- Window queries for the calendar (hot path).
	CREATE INDEX IF NOT EXISTS idx_events_display_date
		ON financial_events(due_date, accrual_date);

	CREATE INDEX IF NOT EXISTS idx_events_rule
		ON financial_events(rule_id) WHERE rule_id IS NOT NULL AND rule_id != '';
	`

	_, err := s.db.Exec(schemaSQL)
	return err
}

// =============================================================================
// WORK ITEMS
// =============================================================================

func (s *Store) SaveWorkItem(ctx context.Context, item schedule.WorkItem) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO work_items (id, title, start_date, end_date, color, status, important)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			color = excluded.color,
			status = excluded.status,
			important = excluded.important`,
		string(item.ID), item.Title, item.Start.Key(), item.End.Key(),
		item.Color, string(item.Status), boolToInt(item.Important))
	return err
}

func (s *Store) GetWorkItem(ctx context.Context, id schedule.WorkItemID) (*schedule.WorkItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, start_date, end_date, color, status, important
		FROM work_items WHERE id = ?`, string(id))
	item, err := scanWorkItem(row)
	if err == sql.ErrNoRows {
		return nil, schedule.ErrWorkItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Store) ListWorkItems(ctx context.Context) ([]schedule.WorkItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, start_date, end_date, color, status, important
		FROM work_items ORDER BY start_date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.WorkItem
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

func (s *Store) DeleteWorkItem(ctx context.Context, id schedule.WorkItemID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM work_items WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return schedule.ErrWorkItemNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkItem(r rowScanner) (*schedule.WorkItem, error) {
	var (
		id, title, start, end, status string
		color                         sql.NullString
		important                     int
	)
	if err := r.Scan(&id, &title, &start, &end, &color, &status, &important); err != nil {
		return nil, err
	}
	startDate, err := schedule.ParseDate(start)
	if err != nil {
		return nil, err
	}
	endDate, err := schedule.ParseDate(end)
	if err != nil {
		return nil, err
	}
	return &schedule.WorkItem{
		ID:        schedule.WorkItemID(id),
		Title:     title,
		Start:     startDate,
		End:       endDate,
		Color:     color.String,
		Status:    schedule.WorkItemStatus(status),
		Important: important != 0,
	}, nil
}

// =============================================================================
// COUNTERPARTIES
// =============================================================================

func (s *Store) SaveCounterparty(ctx context.Context, cp schedule.Counterparty) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO counterparties (id, name, closing_day, payment_month_offset, payment_day)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			closing_day = excluded.closing_day,
			payment_month_offset = excluded.payment_month_offset,
			payment_day = excluded.payment_day`,
		string(cp.ID), cp.Name, cp.ClosingDay, cp.PaymentMonthOffset, cp.PaymentDay)
	return err
}

func (s *Store) GetCounterparty(ctx context.Context, id schedule.CounterpartyID) (*schedule.Counterparty, error) {
	var cp schedule.Counterparty
	var rawID string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, closing_day, payment_month_offset, payment_day
		FROM counterparties WHERE id = ?`, string(id)).
		Scan(&rawID, &cp.Name, &cp.ClosingDay, &cp.PaymentMonthOffset, &cp.PaymentDay)
	if err == sql.ErrNoRows {
		return nil, schedule.ErrCounterpartyNotFound
	}
	if err != nil {
		return nil, err
	}
	cp.ID = schedule.CounterpartyID(rawID)
	return &cp, nil
}

func (s *Store) ListCounterparties(ctx context.Context) ([]schedule.Counterparty, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, closing_day, payment_month_offset, payment_day
		FROM counterparties ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.Counterparty
	for rows.Next() {
		var cp schedule.Counterparty
		var rawID string
		if err := rows.Scan(&rawID, &cp.Name, &cp.ClosingDay, &cp.PaymentMonthOffset, &cp.PaymentDay); err != nil {
			return nil, err
		}
		cp.ID = schedule.CounterpartyID(rawID)
		out = append(out, cp)
	}
	return out, rows.Err()
}

// =============================================================================
// RECURRING RULES
// =============================================================================

func (s *Store) GetRule(ctx context.Context, id schedule.RuleID) (*schedule.RecurringRule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, memo, base_amount, direction, counterparty_id, frequency,
		       day_of_period, month_of_year, start_date, end_date, active
		FROM recurring_rules WHERE id = ?`, string(id))
	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, schedule.ErrRuleNotFound
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *Store) ListRules(ctx context.Context) ([]schedule.RecurringRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, memo, base_amount, direction, counterparty_id, frequency,
		       day_of_period, month_of_year, start_date, end_date, active
		FROM recurring_rules ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.RecurringRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rule)
	}
	return out, rows.Err()
}

func scanRule(r rowScanner) (*schedule.RecurringRule, error) {
	var (
		id, amount, direction, frequency string
		title                            string
		memo, cpID, endDate              sql.NullString
		monthOfYear                      sql.NullInt64
		dayOfPeriod, active              int
		startDate                        string
	)
	if err := r.Scan(&id, &title, &memo, &amount, &direction, &cpID, &frequency,
		&dayOfPeriod, &monthOfYear, &startDate, &endDate, &active); err != nil {
		return nil, err
	}

	base, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("malformed base_amount for rule %s: %w", id, err)
	}
	start, err := schedule.ParseDate(startDate)
	if err != nil {
		return nil, err
	}

	rule := &schedule.RecurringRule{
		ID:             schedule.RuleID(id),
		Title:          title,
		Memo:           memo.String,
		BaseAmount:     base,
		Direction:      schedule.Direction(direction),
		CounterpartyID: schedule.CounterpartyID(cpID.String),
		Frequency:      schedule.Frequency(frequency),
		DayOfPeriod:    dayOfPeriod,
		Active:         active != 0,
		Start:          start,
	}
	if monthOfYear.Valid {
		rule.MonthOfYear = time.Month(monthOfYear.Int64)
	}
	if endDate.Valid && endDate.String != "" {
		end, err := schedule.ParseDate(endDate.String)
		if err != nil {
			return nil, err
		}
		rule.End = &end
	}
	return rule, nil
}

// =============================================================================
// FINANCIAL EVENTS
// =============================================================================

func (s *Store) SaveEvent(ctx context.Context, e schedule.FinancialEvent) error {
	return saveEvent(ctx, s.db, e)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveEvent(ctx context.Context, db execer, e schedule.FinancialEvent) error {
	instanceDate := ""
	if !e.InstanceDate.IsZero() {
		instanceDate = e.InstanceDate.Key()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO financial_events
			(id, direction, amount, memo, accrual_date, due_date, settled,
			 rule_id, instance_date, detached, work_item_id, counterparty_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			direction = excluded.direction,
			amount = excluded.amount,
			memo = excluded.memo,
			accrual_date = excluded.accrual_date,
			due_date = excluded.due_date,
			settled = excluded.settled,
			rule_id = excluded.rule_id,
			instance_date = excluded.instance_date,
			detached = excluded.detached,
			work_item_id = excluded.work_item_id,
			counterparty_id = excluded.counterparty_id`,
		string(e.ID), string(e.Direction), e.Amount.String(), e.Memo,
		e.AccrualDate.Key(), e.DueDate.Key(), boolToInt(e.Settled),
		string(e.RuleID), instanceDate, boolToInt(e.Detached),
		string(e.WorkItemID), string(e.CounterpartyID))
	return err
}

func (s *Store) GetEvent(ctx context.Context, id schedule.EventID) (*schedule.FinancialEvent, error) {
	row := s.db.QueryRowContext(ctx, selectEvents+` WHERE id = ?`, string(id))
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, schedule.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) ListEventsByRule(ctx context.Context, id schedule.RuleID) ([]schedule.FinancialEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		selectEvents+` WHERE rule_id = ? ORDER BY instance_date, id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

func (s *Store) ListEventsInRange(ctx context.Context, from, to schedule.Date) ([]schedule.FinancialEvent, error) {
	// Display date rule: due date when present, else accrual date. Due dates
	// are always stored, so filtering on due_date matches DisplayDate().
	rows, err := s.db.QueryContext(ctx,
		selectEvents+` WHERE due_date >= ? AND due_date <= ? ORDER BY due_date, id`,
		from.Key(), to.Key())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

const selectEvents = `
	SELECT id, direction, amount, memo, accrual_date, due_date, settled,
	       rule_id, instance_date, detached, work_item_id, counterparty_id
	FROM financial_events`

func collectEvents(rows *sql.Rows) ([]schedule.FinancialEvent, error) {
	var out []schedule.FinancialEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanEvent(r rowScanner) (*schedule.FinancialEvent, error) {
	var (
		id, direction, amount, accrual, due sql.NullString
		memo, ruleID, instance, workItem    sql.NullString
		counterparty                        sql.NullString
		settled, detached                   int
	)
	if err := r.Scan(&id, &direction, &amount, &memo, &accrual, &due, &settled,
		&ruleID, &instance, &detached, &workItem, &counterparty); err != nil {
		return nil, err
	}

	amt, err := decimal.NewFromString(amount.String)
	if err != nil {
		return nil, fmt.Errorf("malformed amount for event %s: %w", id.String, err)
	}
	accrualDate, err := schedule.ParseDate(accrual.String)
	if err != nil {
		return nil, err
	}
	dueDate, err := schedule.ParseDate(due.String)
	if err != nil {
		return nil, err
	}

	e := &schedule.FinancialEvent{
		ID:             schedule.EventID(id.String),
		Direction:      schedule.Direction(direction.String),
		Amount:         amt,
		Memo:           memo.String,
		AccrualDate:    accrualDate,
		DueDate:        dueDate,
		Settled:        settled != 0,
		RuleID:         schedule.RuleID(ruleID.String),
		Detached:       detached != 0,
		WorkItemID:     schedule.WorkItemID(workItem.String),
		CounterpartyID: schedule.CounterpartyID(counterparty.String),
	}
	if instance.Valid && instance.String != "" {
		d, err := schedule.ParseDate(instance.String)
		if err != nil {
			return nil, err
		}
		e.InstanceDate = d
	}
	return e, nil
}

// =============================================================================
// PLAN APPLICATION
// =============================================================================

// ApplyPlan executes every operation of the plan in one SQL transaction.
func (s *Store) ApplyPlan(ctx context.Context, plan schedule.EditPlan) error {
	if plan.IsEmpty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	for _, op := range plan.Ops {
		if err := applyOp(ctx, tx, op); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func applyOp(ctx context.Context, tx *sql.Tx, op schedule.PlanOp) error {
	switch op.Collection {
	case schedule.CollectionEvents:
		switch op.Kind {
		case schedule.OpCreate, schedule.OpUpdate:
			if op.Event == nil {
				return schedule.ErrEventNotFound
			}
			return saveEvent(ctx, tx, *op.Event)
		case schedule.OpDelete:
			return deleteRow(ctx, tx, `DELETE FROM financial_events WHERE id = ?`, op.ID, schedule.ErrEventNotFound)
		}

	case schedule.CollectionRules:
		switch op.Kind {
		case schedule.OpCreate, schedule.OpUpdate:
			if op.Rule == nil {
				return schedule.ErrRuleNotFound
			}
			return saveRule(ctx, tx, *op.Rule)
		case schedule.OpDelete:
			return deleteRow(ctx, tx, `DELETE FROM recurring_rules WHERE id = ?`, op.ID, schedule.ErrRuleNotFound)
		}

	case schedule.CollectionWorkItems:
		switch op.Kind {
		case schedule.OpCreate, schedule.OpUpdate:
			if op.WorkItem == nil {
				return schedule.ErrWorkItemNotFound
			}
			item := *op.WorkItem
			_, err := tx.ExecContext(ctx, `
				INSERT INTO work_items (id, title, start_date, end_date, color, status, important)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					title = excluded.title,
					start_date = excluded.start_date,
					end_date = excluded.end_date,
					color = excluded.color,
					status = excluded.status,
					important = excluded.important`,
				string(item.ID), item.Title, item.Start.Key(), item.End.Key(),
				item.Color, string(item.Status), boolToInt(item.Important))
			return err
		case schedule.OpDelete:
			return deleteRow(ctx, tx, `DELETE FROM work_items WHERE id = ?`, op.ID, schedule.ErrWorkItemNotFound)
		}
	}
	return fmt.Errorf("unknown plan operation %s on %s", op.Kind, op.Collection)
}

func saveRule(ctx context.Context, tx *sql.Tx, rule schedule.RecurringRule) error {
	var monthOfYear sql.NullInt64
	if rule.Frequency == schedule.Yearly {
		monthOfYear = sql.NullInt64{Int64: int64(rule.MonthOfYear), Valid: true}
	}
	var endDate sql.NullString
	if rule.End != nil {
		endDate = sql.NullString{String: rule.End.Key(), Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO recurring_rules
			(id, title, memo, base_amount, direction, counterparty_id, frequency,
			 day_of_period, month_of_year, start_date, end_date, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			memo = excluded.memo,
			base_amount = excluded.base_amount,
			direction = excluded.direction,
			counterparty_id = excluded.counterparty_id,
			frequency = excluded.frequency,
			day_of_period = excluded.day_of_period,
			month_of_year = excluded.month_of_year,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			active = excluded.active`,
		string(rule.ID), rule.Title, rule.Memo, rule.BaseAmount.String(),
		string(rule.Direction), string(rule.CounterpartyID), string(rule.Frequency),
		rule.DayOfPeriod, monthOfYear, rule.Start.Key(), endDate, boolToInt(rule.Active))
	return err
}

func deleteRow(ctx context.Context, tx *sql.Tx, query, id string, notFound error) error {
	res, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ schedule.LedgerStore = (*Store)(nil)
