package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"budgetplanner/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// DSN builds a modernc connection string with the pragmas every connection needs.
func DSN(dbPath string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", dbPath)
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite has a single writer; serializing in the pool avoids SQLITE_BUSY on upgrades.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) UpsertUser(ctx context.Context, u core.User) error {
	now := r.now().UnixNano()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, monthly_budget_cents, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			updated_at = excluded.updated_at`,
		u.ID, u.Name, u.Email, u.MonthlyBudget.Cents, now, now)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, userID string) (core.User, error) {
	var (
		u         core.User
		currentID sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, monthly_budget_cents, current_plan_id
		FROM users WHERE id = ?`, userID).
		Scan(&u.ID, &u.Name, &u.Email, &u.MonthlyBudget.Cents, &currentID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	u.CurrentPlanID = currentID.String
	return u, nil
}

func (r *SQLiteRepository) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (user_id, category, description, amount_cents, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Category, e.Description, e.Amount.Cents, e.Date.UnixNano(), r.now().UnixNano())
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense id: %w", err)
	}
	e.ID = id
	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", id, "user_id", e.UserID, "category", e.Category, "amount_cents", e.Amount.Cents)
	return e, nil
}

// FindExpenses returns expenses in [start, end], newest first.
func (r *SQLiteRepository) FindExpenses(ctx context.Context, userID string, start, end time.Time) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, category, description, amount_cents, occurred_at
		FROM expenses
		WHERE user_id = ? AND occurred_at BETWEEN ? AND ?
		ORDER BY occurred_at DESC, id DESC`,
		userID, start.UnixNano(), end.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e          core.Expense
			occurredAt int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Category, &e.Description, &e.Amount.Cents, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Date = time.Unix(0, occurredAt).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

// AppendPlan adds the plan to the user's history and makes it current in one transaction.
func (r *SQLiteRepository) AppendPlan(ctx context.Context, plan core.BudgetPlan) error {
	payload, err := json.Marshal(planPayload{
		Categories:      plan.Categories,
		Summary:         plan.Summary,
		Recommendations: plan.Recommendations,
	})
	if err != nil {
		return fmt.Errorf("encode plan payload: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := r.now().UnixNano()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING`, plan.UserID, now, now); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO budget_plans (id, user_id, seq, month, total_budget_cents, source, payload, created_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM budget_plans WHERE user_id = ?), ?, ?, ?, ?, ?)`,
		plan.ID, plan.UserID, plan.UserID, plan.Month.String(), plan.TotalBudget.Cents,
		string(plan.Source), string(payload), plan.CreatedAt.UnixNano()); err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET current_plan_id = ?, monthly_budget_cents = ?, updated_at = ?
		WHERE id = ?`, plan.ID, plan.TotalBudget.Cents, now, plan.UserID); err != nil {
		return fmt.Errorf("set current plan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit plan: %w", err)
	}
	return nil
}

const planColumns = `p.id, p.user_id, p.month, p.total_budget_cents, p.source, p.payload, p.created_at`

func (r *SQLiteRepository) CurrentPlan(ctx context.Context, userID string) (*core.BudgetPlan, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+planColumns+`
		FROM users u JOIN budget_plans p ON p.id = u.current_plan_id
		WHERE u.id = ?`, userID)
	plan, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get current plan: %w", err)
	}
	return &plan, nil
}

// PlanHistory returns every plan of the user in insertion order.
func (r *SQLiteRepository) PlanHistory(ctx context.Context, userID string) ([]core.BudgetPlan, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+planColumns+`
		FROM budget_plans p
		WHERE p.user_id = ?
		ORDER BY p.seq ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query plan history: %w", err)
	}
	defer rows.Close()

	history := []core.BudgetPlan{}
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		history = append(history, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plan history: %w", err)
	}
	return history, nil
}

func (r *SQLiteRepository) PlanByID(ctx context.Context, planID string) (core.BudgetPlan, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM budget_plans p WHERE p.id = ?`, planID)
	plan, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetPlan{}, core.ErrPlanNotFound
	}
	if err != nil {
		return core.BudgetPlan{}, fmt.Errorf("get plan: %w", err)
	}
	return plan, nil
}

func (r *SQLiteRepository) UsersWithPlans(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users WHERE current_plan_id IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users with plans: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(s rowScanner) (core.BudgetPlan, error) {
	var (
		p         core.BudgetPlan
		month     string
		source    string
		payload   string
		createdAt int64
	)
	if err := s.Scan(&p.ID, &p.UserID, &month, &p.TotalBudget.Cents, &source, &payload, &createdAt); err != nil {
		return core.BudgetPlan{}, err
	}
	m, err := core.ParseMonth(month)
	if err != nil {
		return core.BudgetPlan{}, fmt.Errorf("plan %s: %w", p.ID, err)
	}
	var body planPayload
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		return core.BudgetPlan{}, fmt.Errorf("decode plan %s payload: %w", p.ID, err)
	}
	p.Month = m
	p.Source = core.PlanSource(source)
	p.CreatedAt = time.Unix(0, createdAt).UTC()
	p.Categories = body.Categories
	p.Summary = body.Summary
	p.Recommendations = body.Recommendations
	return p, nil
}
