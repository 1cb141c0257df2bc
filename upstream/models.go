package upstream

// Account is a single account entry from client-info. Fields beyond id,
// balance and currency are preserved opaquely — never interpreted by this
// repo, per the wire contract's "must be preserved opaquely or ignored".
type Account struct {
	ID           string   `json:"id"`
	Balance      int64    `json:"balance"`
	CreditLimit  int64    `json:"creditLimit"`
	CurrencyCode int      `json:"currencyCode"`
	CashbackType *string  `json:"cashbackType,omitempty"`
	Type         *string  `json:"type,omitempty"`
	IBAN         *string  `json:"iban,omitempty"`
	MaskedPan    []string `json:"maskedPan,omitempty"`
}

// ClientInfo is the response of GET /personal/client-info.
type ClientInfo struct {
	Name     string    `json:"name"`
	Accounts []Account `json:"accounts"`
}

// StatementItem is one raw statement row. Opaque passthrough fields
// (OperationAmount, CommissionRate, CashbackAmount, Balance, Hold,
// CounterEdrpou, CounterIBAN, OriginalMcc) are decoded but never
// interpreted by the ledger or analytics layers.
type StatementItem struct {
	ID              string  `json:"id"`
	Time            int64   `json:"time"`
	Description     string  `json:"description,omitempty"`
	MCC             *int    `json:"mcc,omitempty"`
	OriginalMCC     *int    `json:"originalMcc,omitempty"`
	Amount          int64   `json:"amount"`
	OperationAmount *int64  `json:"operationAmount,omitempty"`
	CurrencyCode    *int    `json:"currencyCode,omitempty"`
	CommissionRate  *int64  `json:"commissionRate,omitempty"`
	CashbackAmount  *int64  `json:"cashbackAmount,omitempty"`
	Balance         *int64  `json:"balance,omitempty"`
	Hold            *bool   `json:"hold,omitempty"`
	CounterEdrpou   *string `json:"counterEdrpou,omitempty"`
	CounterIBAN     *string `json:"counterIban,omitempty"`
}
