package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crave-grocer/api/internal/enum"
	"github.com/crave-grocer/api/internal/metrics"
)

// PostgresSchema returns the ledger schema statements for Postgres.
func PostgresSchema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ledger_customers (
			id           BIGSERIAL PRIMARY KEY,
			customer_key TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_orders (
			seq         BIGSERIAL PRIMARY KEY,
			order_id    TEXT NOT NULL,
			customer_id BIGINT NOT NULL REFERENCES ledger_customers(id),
			total       BIGINT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL,
			CONSTRAINT ledger_orders_order_id_key UNIQUE (order_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_orders_customer ON ledger_orders(customer_id, seq)`,
		`CREATE TABLE IF NOT EXISTS ledger_order_items (
			order_seq  BIGINT NOT NULL REFERENCES ledger_orders(seq),
			line_no    INT NOT NULL,
			product_id TEXT NOT NULL,
			name       TEXT NOT NULL,
			price      BIGINT NOT NULL,
			quantity   INT NOT NULL CHECK (quantity >= 1),
			item_total BIGINT NOT NULL,
			PRIMARY KEY (order_seq, line_no)
		)`,
	}
}

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CustomerRow is a ledger_customers row.
type CustomerRow struct {
	ID          int64
	CustomerKey string
	DisplayName string
}

// InsertOrderParams holds the columns of a new ledger_orders row.
type InsertOrderParams struct {
	OrderID    string
	CustomerID int64
	Total      int64
	CreatedAt  time.Time
}

// InsertOrderItemParams holds the columns of a new ledger_order_items row.
type InsertOrderItemParams struct {
	OrderSeq int64
	LineNo   int32
	Item     LineItem
}

// LedgerQueries defines the DB methods needed by PostgresStore.
// Satisfied by *Queries; narrow interface for testability.
type LedgerQueries interface {
	LockCustomer(ctx context.Context, customerKey string) error
	UpsertCustomer(ctx context.Context, customerKey, displayName string) (CustomerRow, error)
	GetCustomer(ctx context.Context, customerKey string) (CustomerRow, error)
	ListCustomers(ctx context.Context) ([]CustomerRow, error)
	InsertOrder(ctx context.Context, arg InsertOrderParams) (int64, error)
	InsertOrderItem(ctx context.Context, arg InsertOrderItemParams) error
	ListOrderLines(ctx context.Context, customerID int64) ([]OrderLine, error)
}

// NewLedgerQueries creates LedgerQueries from a DBTX (pool or tx).
type NewLedgerQueries func(db DBTX) LedgerQueries

// PostgresStore keeps the ledger in Postgres. Each Append runs in its own
// transaction holding a per-customer advisory lock, so writers from any
// number of processes serialize per customer.
type PostgresStore struct {
	pool       TxBeginner
	db         DBTX
	newQueries NewLedgerQueries
	closeFn    func()
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a PostgresStore from its collaborators.
func NewPostgresStore(pool TxBeginner, db DBTX, newQueries NewLedgerQueries) *PostgresStore {
	return &PostgresStore{pool: pool, db: db, newQueries: newQueries, closeFn: func() {}}
}

// OpenPostgres connects to databaseURL and ensures the schema exists.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres ledger: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres ledger: %w", err)
	}
	if err := ApplyPostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	s := NewPostgresStore(pool, pool, func(db DBTX) LedgerQueries { return NewQueries(db) })
	s.closeFn = pool.Close
	return s, nil
}

// ApplyPostgresSchema runs every schema statement in one transaction.
func ApplyPostgresSchema(ctx context.Context, pool TxBeginner) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, stmt := range PostgresSchema() {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply ledger schema: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Append implements Store.
func (s *PostgresStore) Append(ctx context.Context, customerName string, order Order) (CustomerEntry, error) {
	if err := checkAppendArgs(customerName, order); err != nil {
		return CustomerEntry{}, err
	}

	start := time.Now()
	defer metrics.ObserveAppend(enum.LedgerBackendPostgres, start)

	// Commits are not cancellable once started.
	ctx = context.WithoutCancel(ctx)

	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return CustomerEntry{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	q := s.newQueries(tx)
	key := CustomerKey(customerName)

	// --- Serialize writers for this customer ---
	if err := q.LockCustomer(ctx, key); err != nil {
		return CustomerEntry{}, fmt.Errorf("lock customer: %w", err)
	}

	customer, err := q.UpsertCustomer(ctx, key, DisplayName(customerName))
	if err != nil {
		return CustomerEntry{}, fmt.Errorf("upsert customer: %w", err)
	}

	// --- Insert order ---
	seq, err := q.InsertOrder(ctx, InsertOrderParams{
		OrderID:    order.OrderID,
		CustomerID: customer.ID,
		Total:      order.Total,
		CreatedAt:  order.Timestamp.UTC(),
	})
	if err != nil {
		if isOrderIDConflict(err) {
			return CustomerEntry{}, fmt.Errorf("%w: %s", ErrDuplicateOrderID, order.OrderID)
		}
		return CustomerEntry{}, fmt.Errorf("create order: %w", err)
	}

	// --- Insert items ---
	for i, it := range order.Items {
		if err := q.InsertOrderItem(ctx, InsertOrderItemParams{
			OrderSeq: seq,
			LineNo:   int32(i + 1),
			Item:     it,
		}); err != nil {
			return CustomerEntry{}, fmt.Errorf("create order item[%d]: %w", i, err)
		}
	}

	lines, err := q.ListOrderLines(ctx, customer.ID)
	if err != nil {
		return CustomerEntry{}, fmt.Errorf("list orders: %w", err)
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return CustomerEntry{}, fmt.Errorf("commit tx: %w", err)
	}

	return CustomerEntry{Customer: customer.DisplayName, Orders: groupLines(lines)}, nil
}

// Read implements Store.
func (s *PostgresStore) Read(ctx context.Context, customerName string) (CustomerEntry, bool, error) {
	key := CustomerKey(customerName)
	if key == "" {
		return CustomerEntry{}, false, nil
	}

	q := s.newQueries(s.db)
	customer, err := q.GetCustomer(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CustomerEntry{}, false, nil
		}
		return CustomerEntry{}, false, fmt.Errorf("get customer: %w", err)
	}

	lines, err := q.ListOrderLines(ctx, customer.ID)
	if err != nil {
		return CustomerEntry{}, false, fmt.Errorf("list orders: %w", err)
	}
	return CustomerEntry{Customer: customer.DisplayName, Orders: groupLines(lines)}, true, nil
}

// All implements Store.
func (s *PostgresStore) All(ctx context.Context) ([]CustomerEntry, error) {
	q := s.newQueries(s.db)
	customers, err := q.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	entries := make([]CustomerEntry, 0, len(customers))
	for _, c := range customers {
		lines, err := q.ListOrderLines(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("list orders for %q: %w", c.DisplayName, err)
		}
		entries = append(entries, CustomerEntry{Customer: c.DisplayName, Orders: groupLines(lines)})
	}
	return entries, nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.closeFn()
	return nil
}

// isOrderIDConflict checks if the error is a unique constraint violation
// on the order id (pgconn error code 23505).
func isOrderIDConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "ledger_orders_order_id_key"
	}
	return false
}

// ─── Queries ────────────────────────────────────────────────────────────────

// Queries implements LedgerQueries with plain SQL over a DBTX.
type Queries struct {
	db DBTX
}

// NewQueries wraps a pool or transaction.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) LockCustomer(ctx context.Context, customerKey string) error {
	_, err := q.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, customerKey)
	return err
}

// UpsertCustomer returns the existing row untouched when the key is known,
// which keeps the first-seen display name.
func (q *Queries) UpsertCustomer(ctx context.Context, customerKey, displayName string) (CustomerRow, error) {
	var c CustomerRow
	err := q.db.QueryRow(ctx, `
		INSERT INTO ledger_customers (customer_key, display_name)
		VALUES ($1, $2)
		ON CONFLICT (customer_key) DO UPDATE SET customer_key = EXCLUDED.customer_key
		RETURNING id, customer_key, display_name`,
		customerKey, displayName,
	).Scan(&c.ID, &c.CustomerKey, &c.DisplayName)
	return c, err
}

func (q *Queries) GetCustomer(ctx context.Context, customerKey string) (CustomerRow, error) {
	var c CustomerRow
	err := q.db.QueryRow(ctx,
		`SELECT id, customer_key, display_name FROM ledger_customers WHERE customer_key = $1`,
		customerKey,
	).Scan(&c.ID, &c.CustomerKey, &c.DisplayName)
	return c, err
}

func (q *Queries) ListCustomers(ctx context.Context) ([]CustomerRow, error) {
	rows, err := q.db.Query(ctx, `SELECT id, customer_key, display_name FROM ledger_customers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (CustomerRow, error) {
		var c CustomerRow
		err := row.Scan(&c.ID, &c.CustomerKey, &c.DisplayName)
		return c, err
	})
}

func (q *Queries) InsertOrder(ctx context.Context, arg InsertOrderParams) (int64, error) {
	var seq int64
	err := q.db.QueryRow(ctx, `
		INSERT INTO ledger_orders (order_id, customer_id, total, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING seq`,
		arg.OrderID, arg.CustomerID, arg.Total, arg.CreatedAt,
	).Scan(&seq)
	return seq, err
}

func (q *Queries) InsertOrderItem(ctx context.Context, arg InsertOrderItemParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO ledger_order_items (order_seq, line_no, product_id, name, price, quantity, item_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		arg.OrderSeq, arg.LineNo, arg.Item.ProductID, arg.Item.Name, arg.Item.Price, int32(arg.Item.Quantity), arg.Item.ItemTotal,
	)
	return err
}

func (q *Queries) ListOrderLines(ctx context.Context, customerID int64) ([]OrderLine, error) {
	rows, err := q.db.Query(ctx, `
		SELECT o.seq, o.order_id, o.total, o.created_at,
		       i.product_id, i.name, i.price, i.quantity, i.item_total
		FROM ledger_orders o
		JOIN ledger_order_items i ON i.order_seq = o.seq
		WHERE o.customer_id = $1
		ORDER BY o.seq, i.line_no`,
		customerID,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (OrderLine, error) {
		var (
			l   OrderLine
			qty int32
		)
		err := row.Scan(&l.Seq, &l.OrderID, &l.Total, &l.CreatedAt,
			&l.Item.ProductID, &l.Item.Name, &l.Item.Price, &qty, &l.Item.ItemTotal)
		l.Item.Quantity = int(qty)
		return l, err
	})
}
