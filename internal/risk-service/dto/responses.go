package dto

type PlaceBetResponse struct {
	DecisionID string `json:"decision_id,omitempty"`
	Status     string `json:"status"` // "ACCEPTED" | "REJECTED"
	Reason     string `json:"reason"`
}

type DecisionResponse struct {
	DecisionID  string  `json:"decision_id"`
	ActorID     string  `json:"actor_id"`
	EventID     string  `json:"event_id"`
	Side        string  `json:"side"`
	AmountCents int64   `json:"amount_cents"`
	OddValue    float64 `json:"odd_value"`
	Accepted    bool    `json:"accepted"`
	Reason      string  `json:"reason"`
}

type ComplianceReportResponse struct {
	ActorID            string `json:"actor_id"`
	TotalBets          int    `json:"total_bets"`
	DailyVolumeCents   int64  `json:"daily_volume_cents"`
	WeeklyVolumeCents  int64  `json:"weekly_volume_cents"`
	MonthlyVolumeCents int64  `json:"monthly_volume_cents"`
	IsCompliant        bool   `json:"is_compliant"`
}

type AnalyticsResponse struct {
	TotalBets        int64   `json:"total_bets"`
	TotalVolumeCents int64   `json:"total_volume_cents"`
	AvgBetSizeCents  float64 `json:"avg_bet_size_cents"`
	SettlementsCount int64   `json:"settlements_count"`
	TotalPayoutCents int64   `json:"total_payout_cents"`
}

type ExposureResponse struct {
	EventID       string  `json:"event_id"`
	ExposureCents float64 `json:"exposure_cents"`
}
