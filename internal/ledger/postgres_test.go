package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr error
	committed bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr == nil {
		m.committed = true
	}
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return nil }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockQueries is an in-memory LedgerQueries.
type mockQueries struct {
	customers []CustomerRow
	lines     map[int64][]OrderLine
	nextSeq   int64
	locked    []string

	insertOrderErr error
}

func newMockQueries() *mockQueries {
	return &mockQueries{lines: make(map[int64][]OrderLine)}
}

func (m *mockQueries) LockCustomer(ctx context.Context, customerKey string) error {
	m.locked = append(m.locked, customerKey)
	return nil
}

func (m *mockQueries) UpsertCustomer(ctx context.Context, customerKey, displayName string) (CustomerRow, error) {
	for _, c := range m.customers {
		if c.CustomerKey == customerKey {
			return c, nil
		}
	}
	c := CustomerRow{ID: int64(len(m.customers) + 1), CustomerKey: customerKey, DisplayName: displayName}
	m.customers = append(m.customers, c)
	return c, nil
}

func (m *mockQueries) GetCustomer(ctx context.Context, customerKey string) (CustomerRow, error) {
	for _, c := range m.customers {
		if c.CustomerKey == customerKey {
			return c, nil
		}
	}
	return CustomerRow{}, pgx.ErrNoRows
}

func (m *mockQueries) ListCustomers(ctx context.Context) ([]CustomerRow, error) {
	return m.customers, nil
}

func (m *mockQueries) InsertOrder(ctx context.Context, arg InsertOrderParams) (int64, error) {
	if m.insertOrderErr != nil {
		return 0, m.insertOrderErr
	}
	m.nextSeq++
	m.lines[arg.CustomerID] = append(m.lines[arg.CustomerID], OrderLine{
		Seq:       m.nextSeq,
		OrderID:   arg.OrderID,
		Total:     arg.Total,
		CreatedAt: arg.CreatedAt,
	})
	return m.nextSeq, nil
}

func (m *mockQueries) InsertOrderItem(ctx context.Context, arg InsertOrderItemParams) error {
	for cid, ls := range m.lines {
		for i, l := range ls {
			if l.Seq != arg.OrderSeq {
				continue
			}
			if l.Item.ProductID == "" {
				m.lines[cid][i].Item = arg.Item
				return nil
			}
			line := l
			line.Item = arg.Item
			m.lines[cid] = append(m.lines[cid], line)
			return nil
		}
	}
	return errors.New("unknown order seq")
}

func (m *mockQueries) ListOrderLines(ctx context.Context, customerID int64) ([]OrderLine, error) {
	return m.lines[customerID], nil
}

// --- Test helpers ---

func newTestPostgresStore(q *mockQueries) (*PostgresStore, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	return NewPostgresStore(pool, nil, func(db DBTX) LedgerQueries { return q }), tx
}

// =====================
// PostgresStore
// =====================

func TestPostgresStore_AppendCommits(t *testing.T) {
	q := newMockQueries()
	s, tx := newTestPostgresStore(q)

	entry, err := s.Append(context.Background(), "Alice", makeOrder("o1", item("p1", 250, 2), item("p2", 100, 1)))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if !tx.committed {
		t.Error("expected transaction to be committed")
	}
	if len(q.locked) != 1 || q.locked[0] != "alice" {
		t.Errorf("expected advisory lock on alice, got %v", q.locked)
	}
	if entry.Customer != "Alice" || len(entry.Orders) != 1 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if got := entry.Orders[0]; got.Total != 600 || len(got.Items) != 2 {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestPostgresStore_KeepsFirstDisplayName(t *testing.T) {
	q := newMockQueries()
	s, _ := newTestPostgresStore(q)
	ctx := context.Background()

	if _, err := s.Append(ctx, "Alice", makeOrder("o1", item("p1", 1, 1))); err != nil {
		t.Fatalf("Append 1: %v", err)
	}
	entry, err := s.Append(ctx, "aLiCe", makeOrder("o2", item("p1", 1, 1)))
	if err != nil {
		t.Fatalf("Append 2: %v", err)
	}
	if entry.Customer != "Alice" || len(entry.Orders) != 2 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestPostgresStore_DuplicateOrderID(t *testing.T) {
	q := newMockQueries()
	q.insertOrderErr = &pgconn.PgError{Code: "23505", ConstraintName: "ledger_orders_order_id_key"}
	s, tx := newTestPostgresStore(q)

	_, err := s.Append(context.Background(), "Alice", makeOrder("o1", item("p1", 1, 1)))
	if !errors.Is(err, ErrDuplicateOrderID) {
		t.Fatalf("expected ErrDuplicateOrderID, got %v", err)
	}
	if tx.committed {
		t.Error("transaction must not be committed")
	}
}

func TestPostgresStore_OtherUniqueViolationNotDuplicate(t *testing.T) {
	q := newMockQueries()
	q.insertOrderErr = &pgconn.PgError{Code: "23505", ConstraintName: "something_else"}
	s, _ := newTestPostgresStore(q)

	_, err := s.Append(context.Background(), "Alice", makeOrder("o1", item("p1", 1, 1)))
	if err == nil || errors.Is(err, ErrDuplicateOrderID) {
		t.Fatalf("expected a plain error, got %v", err)
	}
}

func TestPostgresStore_CommitError(t *testing.T) {
	q := newMockQueries()
	s, tx := newTestPostgresStore(q)
	tx.commitErr = errors.New("connection reset")

	if _, err := s.Append(context.Background(), "Alice", makeOrder("o1", item("p1", 1, 1))); err == nil {
		t.Fatal("expected commit error")
	}
}

func TestPostgresStore_BeginError(t *testing.T) {
	q := newMockQueries()
	s := NewPostgresStore(&mockTxBeginner{err: errors.New("pool closed")}, nil, func(db DBTX) LedgerQueries { return q })

	if _, err := s.Append(context.Background(), "Alice", makeOrder("o1", item("p1", 1, 1))); err == nil {
		t.Fatal("expected begin error")
	}
	if len(q.locked) != 0 {
		t.Error("no queries should run without a transaction")
	}
}

func TestPostgresStore_InvalidOrderSkipsDatabase(t *testing.T) {
	q := newMockQueries()
	s := NewPostgresStore(&mockTxBeginner{err: errors.New("must not be called")}, nil, func(db DBTX) LedgerQueries { return q })

	if _, err := s.Append(context.Background(), "Alice", makeOrder("o1")); !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder, got %v", err)
	}
}

func TestPostgresStore_ReadMissing(t *testing.T) {
	s, _ := newTestPostgresStore(newMockQueries())

	_, ok, err := s.Read(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false")
	}
}

func TestPostgresStore_All(t *testing.T) {
	q := newMockQueries()
	s, _ := newTestPostgresStore(q)
	ctx := context.Background()

	for i, name := range []string{"Bob", "Alice", "bob"} {
		if _, err := s.Append(ctx, name, makeOrder(string(rune('a'+i)), item("p1", 10, 1))); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 2 || all[0].Customer != "Bob" || len(all[0].Orders) != 2 {
		t.Fatalf("unexpected entries: %+v", all)
	}
}
