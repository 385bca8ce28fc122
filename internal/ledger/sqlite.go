package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/crave-grocer/api/internal/enum"
	"github.com/crave-grocer/api/internal/metrics"
)

// ─── Schema ─────────────────────────────────────────────────────────────────

// SQLiteMigrations returns the ledger schema statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func SQLiteMigrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ledger_customers (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			customer_key TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			created_at   TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_orders (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id    TEXT NOT NULL UNIQUE,
			customer_id INTEGER NOT NULL REFERENCES ledger_customers(id),
			total       INTEGER NOT NULL,
			created_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_orders_customer ON ledger_orders(customer_id, seq)`,
		`CREATE TABLE IF NOT EXISTS ledger_order_items (
			order_seq  INTEGER NOT NULL REFERENCES ledger_orders(seq),
			line_no    INTEGER NOT NULL,
			product_id TEXT NOT NULL,
			name       TEXT NOT NULL,
			price      INTEGER NOT NULL,
			quantity   INTEGER NOT NULL CHECK (quantity >= 1),
			item_total INTEGER NOT NULL,
			PRIMARY KEY (order_seq, line_no)
		)`,
	}
}

// ─── Store ──────────────────────────────────────────────────────────────────

// SQLiteStore keeps the ledger in a SQLite database. Appends run in a single
// transaction behind a store-wide mutex.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite ledger: %w", err)
	}
	// One connection keeps pragmas and transactions on the same handle.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA synchronous = FULL`,
		`PRAGMA foreign_keys = ON`,
		`PRAGMA busy_timeout = 5000`,
	}
	for _, stmt := range append(pragmas, SQLiteMigrations()...) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate sqlite ledger: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, customerName string, order Order) (CustomerEntry, error) {
	if err := checkAppendArgs(customerName, order); err != nil {
		return CustomerEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	defer metrics.ObserveAppend(enum.LedgerBackendSQLite, start)

	// Commits are not cancellable once started.
	txCtx := context.WithoutCancel(ctx)

	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		return CustomerEntry{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	key := CustomerKey(customerName)
	var customerID int64
	err = tx.QueryRowContext(txCtx, `SELECT id FROM ledger_customers WHERE customer_key = ?`, key).Scan(&customerID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(txCtx,
			`INSERT INTO ledger_customers (customer_key, display_name, created_at) VALUES (?, ?, ?)`,
			key, DisplayName(customerName), time.Now().UTC().Format(time.RFC3339Nano))
		if err != nil {
			return CustomerEntry{}, fmt.Errorf("create customer: %w", err)
		}
		if customerID, err = res.LastInsertId(); err != nil {
			return CustomerEntry{}, fmt.Errorf("create customer: %w", err)
		}
	case err != nil:
		return CustomerEntry{}, fmt.Errorf("get customer: %w", err)
	}

	var exists int
	err = tx.QueryRowContext(txCtx, `SELECT 1 FROM ledger_orders WHERE order_id = ?`, order.OrderID).Scan(&exists)
	if err == nil {
		return CustomerEntry{}, fmt.Errorf("%w: %s", ErrDuplicateOrderID, order.OrderID)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return CustomerEntry{}, fmt.Errorf("check order id: %w", err)
	}

	res, err := tx.ExecContext(txCtx,
		`INSERT INTO ledger_orders (order_id, customer_id, total, created_at) VALUES (?, ?, ?, ?)`,
		order.OrderID, customerID, order.Total, order.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return CustomerEntry{}, fmt.Errorf("%w: %s", ErrDuplicateOrderID, order.OrderID)
		}
		return CustomerEntry{}, fmt.Errorf("create order: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return CustomerEntry{}, fmt.Errorf("create order: %w", err)
	}

	for i, it := range order.Items {
		_, err := tx.ExecContext(txCtx,
			`INSERT INTO ledger_order_items (order_seq, line_no, product_id, name, price, quantity, item_total)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			seq, i+1, it.ProductID, it.Name, it.Price, it.Quantity, it.ItemTotal)
		if err != nil {
			return CustomerEntry{}, fmt.Errorf("create order item[%d]: %w", i, err)
		}
	}

	entry, _, err := s.readTx(txCtx, tx, key)
	if err != nil {
		return CustomerEntry{}, err
	}

	if err := tx.Commit(); err != nil {
		return CustomerEntry{}, fmt.Errorf("commit tx: %w", err)
	}
	return entry, nil
}

// Read implements Store.
func (s *SQLiteStore) Read(ctx context.Context, customerName string) (CustomerEntry, bool, error) {
	key := CustomerKey(customerName)
	if key == "" {
		return CustomerEntry{}, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return CustomerEntry{}, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	return s.readTx(ctx, tx, key)
}

// All implements Store.
func (s *SQLiteStore) All(ctx context.Context) ([]CustomerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, `SELECT customer_key FROM ledger_customers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("list customers: %w", err)
	}
	rows.Close()

	entries := make([]CustomerEntry, 0, len(keys))
	for _, k := range keys {
		e, _, err := s.readTx(ctx, tx, k)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) readTx(ctx context.Context, tx *sql.Tx, key string) (CustomerEntry, bool, error) {
	var (
		customerID int64
		display    string
	)
	err := tx.QueryRowContext(ctx,
		`SELECT id, display_name FROM ledger_customers WHERE customer_key = ?`, key).Scan(&customerID, &display)
	if errors.Is(err, sql.ErrNoRows) {
		return CustomerEntry{}, false, nil
	}
	if err != nil {
		return CustomerEntry{}, false, fmt.Errorf("get customer: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT o.seq, o.order_id, o.total, o.created_at,
		       i.product_id, i.name, i.price, i.quantity, i.item_total
		FROM ledger_orders o
		JOIN ledger_order_items i ON i.order_seq = o.seq
		WHERE o.customer_id = ?
		ORDER BY o.seq, i.line_no`, customerID)
	if err != nil {
		return CustomerEntry{}, false, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var lines []OrderLine
	for rows.Next() {
		var (
			l         OrderLine
			createdAt string
		)
		if err := rows.Scan(&l.Seq, &l.OrderID, &l.Total, &createdAt,
			&l.Item.ProductID, &l.Item.Name, &l.Item.Price, &l.Item.Quantity, &l.Item.ItemTotal); err != nil {
			return CustomerEntry{}, false, fmt.Errorf("scan order: %w", err)
		}
		if l.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return CustomerEntry{}, false, fmt.Errorf("%w: order %s timestamp: %w", ErrCorruptLedger, l.OrderID, err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return CustomerEntry{}, false, fmt.Errorf("list orders: %w", err)
	}

	return CustomerEntry{Customer: display, Orders: groupLines(lines)}, true, nil
}

func isSQLiteUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
