package economy

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"figurine-bot/storage"
)

func newTestGatekeeper(t *testing.T, gates GateOptions) (*Gatekeeper, *Ledger, *Ledger) {
	t.Helper()
	dir := t.TempDir()
	users := NewLedger(storage.NewFileStore[int64](filepath.Join(dir, "user_counts.json")))
	groups := NewLedger(storage.NewFileStore[int64](filepath.Join(dir, "group_counts.json")))
	return NewGatekeeper(gates, users, groups), users, groups
}

func TestAdmitUnrestricted(t *testing.T) {
	g, users, groups := newTestGatekeeper(t, GateOptions{})

	d := g.Admit("111", "222", 1)
	if !d.Admitted || d.Source != SourceNone {
		t.Errorf("Expected unconditional admit with no source, got %+v", d)
	}
	if d.Receipt != nil {
		t.Error("Expected no receipt when nothing was debited")
	}
	if users.Get("111") != 0 || groups.Get("222") != 0 {
		t.Error("Unrestricted mode must not touch the ledgers")
	}
}

func TestAdmitDebitsUserFirst(t *testing.T) {
	g, users, groups := newTestGatekeeper(t, GateOptions{UserLimit: true, GroupLimit: true})
	users.Credit("111", 3)
	groups.Credit("222", 3)

	d := g.Admit("111", "222", 1)
	if !d.Admitted || d.Source != SourceUser {
		t.Fatalf("Expected admit from user ledger, got %+v", d)
	}
	if users.Get("111") != 2 {
		t.Errorf("User balance = %d, want 2", users.Get("111"))
	}
	if groups.Get("222") != 3 {
		t.Errorf("Group balance = %d, want 3 (untouched)", groups.Get("222"))
	}
}

func TestAdmitFallsBackToGroup(t *testing.T) {
	g, users, groups := newTestGatekeeper(t, GateOptions{UserLimit: true, GroupLimit: true})
	groups.Credit("222", 5)

	d := g.Admit("111", "222", 1)
	if !d.Admitted || d.Source != SourceGroup {
		t.Fatalf("Expected fallback admit from group ledger, got %+v", d)
	}
	if users.Get("111") != 0 {
		t.Errorf("User balance = %d, want 0", users.Get("111"))
	}
	if groups.Get("222") != 4 {
		t.Errorf("Group balance = %d, want 4", groups.Get("222"))
	}
}

// A funded user does not save a request when the group gate is on and
// the group itself is broke.
func TestAdmitGroupVetoBeatsUserBalance(t *testing.T) {
	g, users, groups := newTestGatekeeper(t, GateOptions{UserLimit: true, GroupLimit: true})
	users.Credit("111", 10)

	d := g.Admit("111", "222", 1)
	if d.Admitted {
		t.Fatalf("Expected rejection on group veto, got %+v", d)
	}
	if !strings.Contains(d.Reason, "group") {
		t.Errorf("Expected group-related reason, got %q", d.Reason)
	}
	if users.Get("111") != 10 || groups.Get("222") != 0 {
		t.Error("Rejected request must not touch the ledgers")
	}
}

func TestAdmitRejectsAfterGroupDrained(t *testing.T) {
	g, _, groups := newTestGatekeeper(t, GateOptions{UserLimit: true, GroupLimit: true})
	groups.Credit("222", 1)

	// The broke user rides the group once, then everything is empty.
	if d := g.Admit("111", "222", 1); !d.Admitted || d.Source != SourceGroup {
		t.Fatalf("Setup admit failed: %+v", d)
	}

	d := g.Admit("111", "222", 1)
	if d.Admitted {
		t.Fatalf("Expected rejection, got %+v", d)
	}
	if !strings.Contains(d.Reason, "0") {
		t.Errorf("Expected reason to carry the remaining balance, got %q", d.Reason)
	}
}

func TestAdmitUserGateOnly(t *testing.T) {
	g, users, _ := newTestGatekeeper(t, GateOptions{UserLimit: true})
	users.Credit("111", 1)

	if d := g.Admit("111", "", 1); !d.Admitted || d.Source != SourceUser {
		t.Fatalf("Expected admit from user ledger, got %+v", d)
	}

	d := g.Admit("111", "", 1)
	if d.Admitted {
		t.Fatalf("Expected rejection once the user is broke, got %+v", d)
	}
	if !strings.Contains(d.Reason, "0") {
		t.Errorf("Expected reason to carry the balance, got %q", d.Reason)
	}
}

func TestAdmitGroupGateOnly(t *testing.T) {
	g, users, groups := newTestGatekeeper(t, GateOptions{GroupLimit: true})
	users.Credit("111", 9)
	groups.Credit("222", 1)

	d := g.Admit("111", "222", 1)
	if !d.Admitted || d.Source != SourceGroup {
		t.Fatalf("Expected admit from group ledger, got %+v", d)
	}
	if users.Get("111") != 9 {
		t.Error("User ledger must stay untouched under group-only gating")
	}

	if d := g.Admit("111", "222", 1); d.Admitted {
		t.Errorf("Expected rejection once the group is broke, got %+v", d)
	}
}

func TestAdmitGroupGateWithoutGroup(t *testing.T) {
	g, _, _ := newTestGatekeeper(t, GateOptions{GroupLimit: true})

	// Direct message: group gate is on but there is no group to charge.
	d := g.Admit("111", "", 1)
	if !d.Admitted || d.Source != SourceNone || d.Receipt != nil {
		t.Errorf("Expected free admit for DM under group-only gating, got %+v", d)
	}
}

func TestRefundRestoresPreDebitBalance(t *testing.T) {
	g, users, groups := newTestGatekeeper(t, GateOptions{UserLimit: true, GroupLimit: true})
	users.Credit("111", 5)
	groups.Credit("222", 5)

	d := g.Admit("111", "222", 1)
	if d.Receipt == nil {
		t.Fatal("Expected a receipt for an admitted debit")
	}
	if err := g.Refund(d.Receipt); err != nil {
		t.Fatalf("Refund failed: %v", err)
	}

	if users.Get("111") != 5 || groups.Get("222") != 5 {
		t.Errorf("Balances after refund = %d/%d, want 5/5",
			users.Get("111"), groups.Get("222"))
	}
}

func TestRefundGoesToDebitedLedger(t *testing.T) {
	g, users, groups := newTestGatekeeper(t, GateOptions{UserLimit: true, GroupLimit: true})
	groups.Credit("222", 5)

	d := g.Admit("111", "222", 1) // falls back to the group
	if d.Source != SourceGroup {
		t.Fatalf("Setup expected group fallback, got %+v", d)
	}
	if err := g.Refund(d.Receipt); err != nil {
		t.Fatalf("Refund failed: %v", err)
	}

	if users.Get("111") != 0 {
		t.Errorf("Refund leaked into the user ledger: %d", users.Get("111"))
	}
	if groups.Get("222") != 5 {
		t.Errorf("Group balance after refund = %d, want 5", groups.Get("222"))
	}
}

func TestRefundIsSingleUse(t *testing.T) {
	g, users, _ := newTestGatekeeper(t, GateOptions{UserLimit: true})
	users.Credit("111", 1)

	d := g.Admit("111", "", 1)
	if err := g.Refund(d.Receipt); err != nil {
		t.Fatalf("First refund failed: %v", err)
	}

	err := g.Refund(d.Receipt)
	if !errors.Is(err, ErrReceiptUsed) {
		t.Fatalf("Expected ErrReceiptUsed on double refund, got %v", err)
	}
	if users.Get("111") != 1 {
		t.Errorf("Double refund minted credits: balance = %d, want 1", users.Get("111"))
	}
}

func TestRefundNilReceipt(t *testing.T) {
	g, _, _ := newTestGatekeeper(t, GateOptions{})
	if err := g.Refund(nil); err != nil {
		t.Errorf("Refund of nil receipt should be a no-op, got %v", err)
	}
}

func TestAdminCredit(t *testing.T) {
	g, users, groups := newTestGatekeeper(t, GateOptions{})

	if got := g.AdminCredit("111", 10, false); got != 10 {
		t.Errorf("AdminCredit user returned %d, want 10", got)
	}
	if got := g.AdminCredit("222", 4, true); got != 4 {
		t.Errorf("AdminCredit group returned %d, want 4", got)
	}
	if users.Get("111") != 10 || groups.Get("222") != 4 {
		t.Error("AdminCredit wrote to the wrong ledger")
	}
}
