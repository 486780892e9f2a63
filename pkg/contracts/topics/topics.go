package topics

const (
	// Oracle
	OracleSamples = "oracle_samples"

	// Bets
	BetAdmitted = "bet_admitted"

	// Settlements
	EventSettled = "event_settled"

	// DLQs
	SettlementDLQ = "settlement_dlq"
)
