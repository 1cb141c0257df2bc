package nlq

import "testing"

func TestRoute_SpendSumWithMerchantAndDays(t *testing.T) {
	now := int64(1000 * 86400)
	got := Route("Скільки я за останні 15 днів витратив на Макдональдс?", now)

	if got.Name != IntentSpendSum {
		t.Errorf("intent = %s, want spend_sum", got.Name)
	}
	if got.Slots.Days != 15 {
		t.Errorf("days = %d, want 15", got.Slots.Days)
	}
	if got.Slots.MerchantContains == "" || got.Slots.MerchantContains[0] == '?' {
		t.Errorf("merchant_contains = %q, want a trimmed merchant token", got.Slots.MerchantContains)
	}
}

func TestRoute_TransferInCountYesterday(t *testing.T) {
	now := int64(1000 * 86400)
	got := Route("Скільки вчора було вхідних переказів?", now)

	if got.Name != IntentTransferInCount {
		t.Errorf("intent = %s, want transfer_in_count", got.Name)
	}
	if got.Slots.Days != 1 {
		t.Errorf("days = %d, want 1", got.Slots.Days)
	}
	if got.Slots.PeriodLabel != "вчора" {
		t.Errorf("period_label = %q, want вчора", got.Slots.PeriodLabel)
	}
}

func TestClampDays(t *testing.T) {
	if clampDays(0) != 1 {
		t.Errorf("clampDays(0) should clamp to 1")
	}
	if clampDays(100) != 31 {
		t.Errorf("clampDays(100) should clamp to 31")
	}
}

func TestRoute_Unsupported(t *testing.T) {
	got := Route("розкажи анекдот", 0)
	if got.Name != IntentUnsupported {
		t.Errorf("intent = %s, want unsupported", got.Name)
	}
}
