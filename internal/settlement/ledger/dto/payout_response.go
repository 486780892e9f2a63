package dto

type PayoutResponse struct {
	LedgerRef string `json:"ledger_ref"`
	Status    string `json:"status"` // "PAID" | "REJECTED"
}
