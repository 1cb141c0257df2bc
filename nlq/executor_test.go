package nlq

import (
	"context"
	"testing"

	"github.com/monoledger/monoledger/analytics"
	"github.com/monoledger/monoledger/ledger"
)

func mccPtr(v int) *int { return &v }

func setupDeps(t *testing.T) (Deps, int64) {
	t.Helper()
	ledgerStore, err := ledger.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	memStore, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	now := int64(2000 * 86400)

	rows := []ledger.Record{
		{ID: "1", Time: now - 86400, AccountID: "acc1", Amount: -15000, Description: "Mcdonalds Kyiv", MCC: mccPtr(5814)},
		{ID: "2", Time: now - 2*86400, AccountID: "acc1", Amount: -5000, Description: "Silpo", MCC: mccPtr(5411)},
		{ID: "3", Time: now - 3*86400, AccountID: "acc1", Amount: 200000, Description: "Salary"},
	}
	if _, err := ledgerStore.AppendMany(1, "acc1", rows); err != nil {
		t.Fatal(err)
	}
	return Deps{Ledger: ledgerStore, Memory: memStore, UserID: 1, AccountIDs: []string{"acc1"}}, now
}

func TestExecute_SpendSumWithMerchantFilter(t *testing.T) {
	deps, now := setupDeps(t)
	intent := Intent{Name: IntentSpendSum, Slots: Slots{Days: 7, MerchantContains: "макдональдс"}}

	resp, err := Execute(context.Background(), deps, intent, now)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Clarification != nil {
		t.Fatalf("unexpected clarification: %+v", resp.Clarification)
	}
	if resp.Text == "" {
		t.Fatal("expected non-empty answer text")
	}
}

func TestExecute_IncomeSum(t *testing.T) {
	deps, now := setupDeps(t)
	intent := Intent{Name: IntentIncomeSum, Slots: Slots{Days: 7}}

	resp, err := Execute(context.Background(), deps, intent, now)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text == "" {
		t.Fatal("expected non-empty answer text")
	}
}

func TestExecute_UnknownRecipientAsksClarification(t *testing.T) {
	deps, now := setupDeps(t)
	intent := Intent{Name: IntentTransferOutSum, Slots: Slots{Days: 7, RecipientAlias: "мама"}}

	resp, err := Execute(context.Background(), deps, intent, now)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Clarification == nil {
		t.Fatal("expected a clarification since no recipient alias is saved yet")
	}
	if resp.Clarification.Kind != ClarificationRecipient {
		t.Errorf("kind = %q, want recipient", resp.Clarification.Kind)
	}
}

func TestHandle_ResolvesPendingRecipientClarification(t *testing.T) {
	deps, now := setupDeps(t)
	if err := deps.Memory.SaveRecipientAlias(deps.UserID, "мама", "ivanova maria"); err != nil {
		t.Fatal(err)
	}

	intent := Intent{Name: IntentTransferOutSum, Slots: Slots{Days: 7, RecipientAlias: "невідомий"}}
	options := []string{"мама"}
	if err := deps.Memory.SetPending(deps.UserID, intent, ClarificationRecipient, options); err != nil {
		t.Fatal(err)
	}

	resp, err := Handle(context.Background(), deps, "мама", now)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Clarification != nil {
		t.Fatalf("expected resolved answer, got clarification: %+v", resp.Clarification)
	}
}

func TestHandle_CancelClearsPending(t *testing.T) {
	deps, now := setupDeps(t)
	intent := Intent{Name: IntentTransferOutSum, Slots: Slots{Days: 7, RecipientAlias: "хтось"}}
	if err := deps.Memory.SetPending(deps.UserID, intent, ClarificationRecipient, []string{"мама"}); err != nil {
		t.Fatal(err)
	}

	resp, err := Handle(context.Background(), deps, "скасувати", now)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Clarification != nil {
		t.Fatal("expected cancellation, not another clarification")
	}

	pending, _, _, err := deps.Memory.PopPending(deps.UserID)
	if err != nil {
		t.Fatal(err)
	}
	if pending != nil {
		t.Fatal("expected pending intent to be cleared after cancel")
	}
}

func TestHandle_LiteralAnswerStoresAliasMapping(t *testing.T) {
	deps, now := setupDeps(t)
	intent := Intent{Name: IntentTransferOutSum, Slots: Slots{Days: 7, RecipientAlias: "дівчині"}}
	if err := deps.Memory.SetPending(deps.UserID, intent, ClarificationRecipient, nil); err != nil {
		t.Fatal(err)
	}

	resp, err := Handle(context.Background(), deps, "Ivanova Maria", now)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Clarification != nil {
		t.Fatalf("expected the literal answer to resolve, got clarification: %+v", resp.Clarification)
	}

	got, ok, err := deps.Memory.ResolveRecipient(deps.UserID, "дівчині")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got != "ivanova maria" {
		t.Errorf("stored alias = %q ok=%v, want ivanova maria/true", got, ok)
	}
}

func TestHandle_NumericAnswerSelectsOption(t *testing.T) {
	deps, now := setupDeps(t)
	intent := Intent{Name: IntentTransferOutSum, Slots: Slots{Days: 7, RecipientAlias: "мама"}}
	options := []string{"ivanova maria", "petrov ivan"}
	if err := deps.Memory.SetPending(deps.UserID, intent, ClarificationRecipient, options); err != nil {
		t.Fatal(err)
	}

	resp, err := Handle(context.Background(), deps, "2", now)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Clarification != nil {
		t.Fatalf("expected option 2 to resolve, got clarification: %+v", resp.Clarification)
	}

	got, ok, err := deps.Memory.ResolveRecipient(deps.UserID, "мама")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got != "petrov ivan" {
		t.Errorf("stored alias = %q ok=%v, want petrov ivan/true", got, ok)
	}
}

func TestRecipientOptions_TopTransferDescriptions(t *testing.T) {
	rows := analytics.ClassifyRows([]ledger.Record{
		{ID: "t1", Time: 1, AccountID: "a", Amount: -50000, Description: "Переказ на картку Ivanova Maria"},
		{ID: "t2", Time: 2, AccountID: "a", Amount: -20000, Description: "Переказ на картку Petrov Ivan"},
		{ID: "t3", Time: 3, AccountID: "a", Amount: -1000, Description: "Mcdonalds"},
	})

	opts := recipientOptions(rows)
	if len(opts) != 2 {
		t.Fatalf("options = %v, want the 2 transfer descriptions", opts)
	}
	if opts[0] != Norm("Переказ на картку Ivanova Maria") {
		t.Errorf("opts[0] = %q, want the largest transfer first", opts[0])
	}
}
