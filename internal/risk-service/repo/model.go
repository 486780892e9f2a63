package repo

import "time"

// Decision é o registro de auditoria de uma decisão de admissão.
// Trilha append-only: decisões nunca são atualizadas nem removidas.
type Decision struct {
	ID          string
	ActorID     string
	EventID     string
	Side        string
	AmountCents int64
	OddValue    float64
	Accepted    bool
	Reason      string
	CreatedAt   time.Time
}

// SettlementRecord é o registro de auditoria de uma liquidação reportada.
type SettlementRecord struct {
	ID          string
	EventID     string
	Winner      string
	PayoutCents int64
	CreatedAt   time.Time
}
