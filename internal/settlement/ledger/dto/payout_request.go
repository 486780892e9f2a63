package dto

type PayoutRequest struct {
	EventID     string `json:"event_id"`
	Winner      string `json:"winner"`
	AmountCents int64  `json:"amount_cents"`
	ExternalRef string `json:"external_ref"`
}
