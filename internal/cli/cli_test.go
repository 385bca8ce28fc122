package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/crave-grocer/api/internal/auth"
	"github.com/crave-grocer/api/internal/enum"
	"github.com/crave-grocer/api/internal/ledger"
)

// run executes the root command with args and fresh flag values.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("GROCER_CONFIG", "")

	for _, c := range append([]*cobra.Command{rootCmd}, rootCmd.Commands()...) {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seedLedger(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.json")
	store, err := ledger.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer store.Close()

	order := ledger.Order{
		OrderID:   "ORD-1",
		Items:     []ledger.LineItem{{ProductID: "p1", Name: "Red Mug", Price: 200, Quantity: 2, ItemTotal: 400}},
		Total:     400,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if _, err := store.Append(context.Background(), "John", order); err != nil {
		t.Fatalf("Append: %v", err)
	}

	t.Setenv("LEDGER_BACKEND", enum.LedgerBackendFile)
	t.Setenv("LEDGER_PATH", path)
	return path
}

// =====================
// token
// =====================

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	out, err := run(t, "token", "--agent", "agent-7", "--role", enum.AgentRoleAdmin)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	claims, err := auth.ValidateToken("cli-secret", strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.AgentID != "agent-7" || claims.Role != enum.AgentRoleAdmin {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestTokenCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing agent", []string{"token"}},
		{"unknown role", []string{"token", "--agent", "a", "--role", "OWNER"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

// =====================
// history
// =====================

func TestHistoryCommand(t *testing.T) {
	seedLedger(t)

	out, err := run(t, "history", "JOHN")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "John: 1 orders, 4.00 spent") {
		t.Errorf("missing summary line:\n%s", out)
	}
	if !strings.Contains(out, "ORD-1") {
		t.Errorf("missing order id:\n%s", out)
	}
}

func TestHistoryCommand_UnknownCustomer(t *testing.T) {
	seedLedger(t)

	out, err := run(t, "history", "nobody")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "No orders for nobody") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestHistoryCommand_All(t *testing.T) {
	seedLedger(t)

	out, err := run(t, "history", "--all")
	if err != nil {
		t.Fatalf("history --all: %v", err)
	}
	var entries []ledger.CustomerEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(entries) != 1 || entries[0].Customer != "John" {
		t.Errorf("unexpected ledger: %+v", entries)
	}
}

func TestHistoryCommand_RequiresName(t *testing.T) {
	if _, err := run(t, "history"); err == nil {
		t.Error("expected error without a name or --all")
	}
}
