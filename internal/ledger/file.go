package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/crave-grocer/api/internal/enum"
	"github.com/crave-grocer/api/internal/metrics"
)

// FileStore keeps the ledger as a single JSON document. Every write replaces
// the file atomically: the new content goes to a temp file in the same
// directory which is synced and renamed over the old one, so a crash leaves
// either the old or the new document, never a partial one.
type FileStore struct {
	mu     sync.Mutex
	path   string
	closed bool

	// rename replaces the ledger with the finished temp file.
	rename func(oldpath, newpath string) error
}

var _ Store = (*FileStore)(nil)

// OpenFile opens the ledger at path, creating its directory if needed. A
// missing file is an empty ledger. An existing file that cannot be parsed
// is reported as ErrCorruptLedger and left untouched.
func OpenFile(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	s := &FileStore{path: path, rename: os.Rename}
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the ledger file location.
func (s *FileStore) Path() string {
	return s.path
}

// Append implements Store. Once the write has started ctx is no longer
// consulted; the commit runs to completion or fails with nothing written.
func (s *FileStore) Append(ctx context.Context, customerName string, order Order) (CustomerEntry, error) {
	if err := checkAppendArgs(customerName, order); err != nil {
		return CustomerEntry{}, err
	}
	if err := ctx.Err(); err != nil {
		return CustomerEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return CustomerEntry{}, ErrClosed
	}

	start := time.Now()
	defer metrics.ObserveAppend(enum.LedgerBackendFile, start)

	entries, err := s.load()
	if err != nil {
		return CustomerEntry{}, err
	}

	key := CustomerKey(customerName)
	idx := -1
	for i, e := range entries {
		for _, o := range e.Orders {
			if o.OrderID == order.OrderID {
				return CustomerEntry{}, fmt.Errorf("%w: %s", ErrDuplicateOrderID, order.OrderID)
			}
		}
		if idx < 0 && CustomerKey(e.Customer) == key {
			idx = i
		}
	}

	order = cloneOrder(order)
	order.Timestamp = order.Timestamp.UTC()
	if idx < 0 {
		entries = append(entries, CustomerEntry{
			Customer: DisplayName(customerName),
			Orders:   []Order{order},
		})
		idx = len(entries) - 1
	} else {
		entries[idx].Orders = append(entries[idx].Orders, order)
	}

	if err := s.write(entries); err != nil {
		return CustomerEntry{}, err
	}
	return cloneEntry(entries[idx]), nil
}

// Read implements Store.
func (s *FileStore) Read(ctx context.Context, customerName string) (CustomerEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return CustomerEntry{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return CustomerEntry{}, false, ErrClosed
	}

	entries, err := s.load()
	if err != nil {
		return CustomerEntry{}, false, err
	}

	key := CustomerKey(customerName)
	if key == "" {
		return CustomerEntry{}, false, nil
	}
	for _, e := range entries {
		if CustomerKey(e.Customer) == key {
			return cloneEntry(e), true, nil
		}
	}
	return CustomerEntry{}, false, nil
}

// All implements Store.
func (s *FileStore) All(ctx context.Context) ([]CustomerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	return s.load()
}

// Close implements Store. Later calls fail with ErrClosed.
func (s *FileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// load reads the whole ledger. Caller must hold s.mu (or be in OpenFile).
func (s *FileStore) load() ([]CustomerEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []CustomerEntry{}, nil
		}
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []CustomerEntry{}, nil
	}

	var entries []CustomerEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptLedger, s.path, err)
	}
	if entries == nil {
		entries = []CustomerEntry{}
	}
	return entries, nil
}

// write atomically replaces the ledger file. Caller must hold s.mu.
func (s *FileStore) write(entries []CustomerEntry) (err error) {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp ledger: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp ledger: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp ledger: %w", err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp ledger: %w", err)
	}
	if err = s.rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}

	// Persist the rename itself. Not every platform supports syncing a
	// directory, so failures here are ignored.
	if d, derr := os.Open(dir); derr == nil {
		d.Sync()
		d.Close()
	}
	return nil
}
