package dto

// PlaceBetRequest é a tentativa de aposta enviada pela camada de integração
// (já com o ator resolvido pela fonte de identidade).
type PlaceBetRequest struct {
	ActorID     string  `json:"actor_id"`
	EventID     string  `json:"event_id"`
	Side        string  `json:"side"` // "home" | "away" | "draw"
	AmountCents int64   `json:"amount_cents"`
	OddValue    float64 `json:"odd_value"`
}

// SettlementReport é enviado pelo settlement-worker depois que o ledger
// pagou os vencedores.
type SettlementReport struct {
	EventID          string `json:"event_id"`
	Winner           string `json:"winner"`
	HomeScore        int    `json:"home_score"`
	AwayScore        int    `json:"away_score"`
	TotalPayoutCents int64  `json:"total_payout_cents"`
}

// UpdateLimitsRequest mescla faixas de quota nas vigentes.
// Campos zerados/omitidos preservam o valor atual.
type UpdateLimitsRequest struct {
	MaxSingleBetCents int64 `json:"max_single_bet_cents"`
	DailyLimitCents   int64 `json:"daily_limit_cents"`
	WeeklyLimitCents  int64 `json:"weekly_limit_cents"`
	MonthlyLimitCents int64 `json:"monthly_limit_cents"`
}
