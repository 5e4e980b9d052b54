package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"coinpurse/internal/core"

	_ "modernc.org/sqlite"
)

// Dates are stored as RFC3339 UTC strings so SQLite's date() functions can
// compare them lexicographically.
const dateFormat = time.RFC3339

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// The pragma rides on the DSN so every pooled connection enforces
	// foreign keys.
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
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

// --- periods ---

// CreatePeriod inserts a new period and returns it with its assigned ID.
// A second insert with the same date range fails the unique constraint and
// surfaces as core.ErrDuplicatePeriod so the caller can re-resolve.
func (r *SQLiteRepository) CreatePeriod(ctx context.Context, p core.Period) (core.Period, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO periods (name, start_date, end_date) VALUES (?, ?, ?)`,
		p.Name, p.StartDate.UTC().Format(dateFormat), p.EndDate.UTC().Format(dateFormat))
	if err != nil {
		if isUniqueViolation(err) {
			return core.Period{}, core.ErrDuplicatePeriod
		}
		return core.Period{}, fmt.Errorf("insert period: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Period{}, fmt.Errorf("period insert id: %w", err)
	}
	p.ID = id

	slog.InfoContext(ctx, "Period created",
		"period_id", p.ID,
		"period_name", p.Name,
		"start_date", p.StartDate.Format(dateFormat),
		"end_date", p.EndDate.Format(dateFormat))

	return p, nil
}

func (r *SQLiteRepository) GetPeriod(ctx context.Context, id int64) (core.Period, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, start_date, end_date FROM periods WHERE id = ?`, id)
	return scanPeriod(row)
}

// GetPeriodByRange fetches the period with exactly these bounds, if any.
func (r *SQLiteRepository) GetPeriodByRange(ctx context.Context, start, end time.Time) (core.Period, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, start_date, end_date FROM periods WHERE start_date = ? AND end_date = ?`,
		start.UTC().Format(dateFormat), end.UTC().Format(dateFormat))
	return scanPeriod(row)
}

// FindPeriodsForDate returns every period whose range contains the given date,
// comparing at day granularity with both ends inclusive. Results are ordered
// by id so callers can deterministically pick the oldest on overlap.
func (r *SQLiteRepository) FindPeriodsForDate(ctx context.Context, date time.Time) ([]core.Period, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, start_date, end_date FROM periods
		 WHERE date(?) BETWEEN date(start_date) AND date(end_date)
		 ORDER BY id`,
		date.UTC().Format(dateFormat))
	if err != nil {
		return nil, fmt.Errorf("query periods for date: %w", err)
	}
	defer rows.Close()

	return collectPeriods(rows)
}

func (r *SQLiteRepository) ListPeriods(ctx context.Context) ([]core.Period, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, start_date, end_date FROM periods ORDER BY start_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	defer rows.Close()

	return collectPeriods(rows)
}

// --- institutions ---

func (r *SQLiteRepository) CreateInstitution(ctx context.Context, inst core.Institution) (core.Institution, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO institutions (name, is_active) VALUES (?, ?)`,
		inst.Name, boolToInt(inst.IsActive))
	if err != nil {
		return core.Institution{}, fmt.Errorf("insert institution: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Institution{}, fmt.Errorf("institution insert id: %w", err)
	}
	inst.ID = id
	return inst, nil
}

func (r *SQLiteRepository) GetInstitution(ctx context.Context, id int64) (core.Institution, error) {
	var inst core.Institution
	var active int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, is_active FROM institutions WHERE id = ?`, id).
		Scan(&inst.ID, &inst.Name, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Institution{}, core.ErrNotFound
	}
	if err != nil {
		return core.Institution{}, fmt.Errorf("get institution: %w", err)
	}
	inst.IsActive = active != 0
	return inst, nil
}

func (r *SQLiteRepository) ListInstitutions(ctx context.Context) ([]core.Institution, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, is_active FROM institutions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list institutions: %w", err)
	}
	defer rows.Close()

	var institutions []core.Institution
	for rows.Next() {
		var inst core.Institution
		var active int64
		if err := rows.Scan(&inst.ID, &inst.Name, &active); err != nil {
			return nil, fmt.Errorf("scan institution: %w", err)
		}
		inst.IsActive = active != 0
		institutions = append(institutions, inst)
	}
	return institutions, rows.Err()
}

func (r *SQLiteRepository) UpdateInstitution(ctx context.Context, inst core.Institution) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE institutions SET name = ?, is_active = ? WHERE id = ?`,
		inst.Name, boolToInt(inst.IsActive), inst.ID)
	if err != nil {
		return fmt.Errorf("update institution: %w", err)
	}
	return requireRow(res)
}

// --- accounts ---

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (name, institution_id, tax_treatment, is_active) VALUES (?, ?, ?, ?)`,
		a.Name, a.InstitutionID, string(a.TaxTreatment), boolToInt(a.IsActive))
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.Account{}, core.ErrInvalidInstitution
		}
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("account insert id: %w", err)
	}
	a.ID = id
	return a, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, institution_id, tax_treatment, is_active FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, activeOnly bool) ([]core.Account, error) {
	query := `SELECT id, name, institution_id, tax_treatment, is_active FROM accounts`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	return collectAccounts(rows)
}

func (r *SQLiteRepository) ListAccountsByInstitution(ctx context.Context, institutionID int64) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, institution_id, tax_treatment, is_active FROM accounts
		 WHERE institution_id = ? ORDER BY name`, institutionID)
	if err != nil {
		return nil, fmt.Errorf("list accounts by institution: %w", err)
	}
	defer rows.Close()

	return collectAccounts(rows)
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET name = ?, institution_id = ?, tax_treatment = ?, is_active = ? WHERE id = ?`,
		a.Name, a.InstitutionID, string(a.TaxTreatment), boolToInt(a.IsActive), a.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.ErrInvalidInstitution
		}
		return fmt.Errorf("update account: %w", err)
	}
	return requireRow(res)
}

// --- balances ---

// UpsertBalances writes a batch of balances for one period in a single
// transaction. Existing (period, account) rows are overwritten, preserving
// their created_at. Either the whole batch lands or none of it does.
func (r *SQLiteRepository) UpsertBalances(ctx context.Context, periodID int64, entries []core.BalanceEntry) ([]core.Balance, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin upsert tx: %w", err)
	}
	defer tx.Rollback()

	now := r.now().UTC().Format(dateFormat)
	balances := make([]core.Balance, 0, len(entries))

	for _, e := range entries {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO balances (period_id, account_id, amount_cents, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (period_id, account_id) DO UPDATE SET
			     amount_cents = excluded.amount_cents,
			     updated_at = excluded.updated_at`,
			periodID, e.AccountID, e.Amount.Cents, now, now)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, fmt.Errorf("upsert balance for account %d: %w", e.AccountID, core.ErrInvalidAccountID)
			}
			return nil, fmt.Errorf("upsert balance for account %d: %w", e.AccountID, err)
		}

		var b core.Balance
		var createdAt, updatedAt string
		err = tx.QueryRowContext(ctx,
			`SELECT period_id, account_id, amount_cents, created_at, updated_at
			 FROM balances WHERE period_id = ? AND account_id = ?`,
			periodID, e.AccountID).
			Scan(&b.PeriodID, &b.AccountID, &b.Amount.Cents, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("read back balance for account %d: %w", e.AccountID, err)
		}
		if b.CreatedAt, err = time.Parse(dateFormat, createdAt); err != nil {
			return nil, fmt.Errorf("parse balance created_at: %w", err)
		}
		if b.UpdatedAt, err = time.Parse(dateFormat, updatedAt); err != nil {
			return nil, fmt.Errorf("parse balance updated_at: %w", err)
		}
		balances = append(balances, b)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upsert tx: %w", err)
	}

	slog.InfoContext(ctx, "Balances upserted",
		"period_id", periodID,
		"count", len(balances))

	return balances, nil
}

func (r *SQLiteRepository) ListBalancesForPeriod(ctx context.Context, periodID int64) ([]core.Balance, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT period_id, account_id, amount_cents, created_at, updated_at
		 FROM balances WHERE period_id = ? ORDER BY account_id`, periodID)
	if err != nil {
		return nil, fmt.Errorf("list balances for period: %w", err)
	}
	defer rows.Close()

	return collectBalances(rows)
}

func (r *SQLiteRepository) ListBalancesForAccount(ctx context.Context, accountID int64) ([]core.Balance, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.period_id, b.account_id, b.amount_cents, b.created_at, b.updated_at
		 FROM balances b JOIN periods p ON p.id = b.period_id
		 WHERE b.account_id = ? ORDER BY p.start_date DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list balances for account: %w", err)
	}
	defer rows.Close()

	return collectBalances(rows)
}

// LastBalanceEntry returns the most recent balance write across all periods,
// or the zero time when no balances exist.
func (r *SQLiteRepository) LastBalanceEntry(ctx context.Context) (time.Time, error) {
	var last sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(updated_at) FROM balances`).Scan(&last)
	if err != nil {
		return time.Time{}, fmt.Errorf("last balance entry: %w", err)
	}
	if !last.Valid {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateFormat, last.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last balance entry: %w", err)
	}
	return t, nil
}

// --- scan helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPeriod(row rowScanner) (core.Period, error) {
	var p core.Period
	var start, end string
	err := row.Scan(&p.ID, &p.Name, &start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Period{}, core.ErrNotFound
	}
	if err != nil {
		return core.Period{}, fmt.Errorf("scan period: %w", err)
	}
	if p.StartDate, err = time.Parse(dateFormat, start); err != nil {
		return core.Period{}, fmt.Errorf("parse period start_date: %w", err)
	}
	if p.EndDate, err = time.Parse(dateFormat, end); err != nil {
		return core.Period{}, fmt.Errorf("parse period end_date: %w", err)
	}
	return p, nil
}

func collectPeriods(rows *sql.Rows) ([]core.Period, error) {
	var periods []core.Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func scanAccount(row rowScanner) (core.Account, error) {
	var a core.Account
	var treatment string
	var active int64
	err := row.Scan(&a.ID, &a.Name, &a.InstitutionID, &treatment, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("scan account: %w", err)
	}
	a.TaxTreatment = core.TaxTreatment(treatment)
	a.IsActive = active != 0
	return a, nil
}

func collectAccounts(rows *sql.Rows) ([]core.Account, error) {
	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func collectBalances(rows *sql.Rows) ([]core.Balance, error) {
	var balances []core.Balance
	for rows.Next() {
		var b core.Balance
		var createdAt, updatedAt string
		if err := rows.Scan(&b.PeriodID, &b.AccountID, &b.Amount.Cents, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		var err error
		if b.CreatedAt, err = time.Parse(dateFormat, createdAt); err != nil {
			return nil, fmt.Errorf("parse balance created_at: %w", err)
		}
		if b.UpdatedAt, err = time.Parse(dateFormat, updatedAt); err != nil {
			return nil, fmt.Errorf("parse balance updated_at: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
