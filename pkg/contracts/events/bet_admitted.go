package events

type BetAdmitted struct {
	DecisionID  string  `json:"decision_id"`
	ActorID     string  `json:"actor_id"`
	EventID     string  `json:"event_id"`
	Side        string  `json:"side"` // "home" | "away" | "draw"
	AmountCents int64   `json:"amount_cents"`
	OddValue    float64 `json:"odd_value"`
	TsUnixMs    int64   `json:"ts_unix_ms"`
}
