package events

import "time"

// Evento emitido pelo settlement-worker após liquidar um evento esportivo.
type EventSettled struct {
	EventID          string    `json:"eventId"`
	Winner           string    `json:"winner"` // "home" | "away" | "draw"
	HomeScore        int       `json:"homeScore"`
	AwayScore        int       `json:"awayScore"`
	TotalPayoutCents int64     `json:"totalPayoutCents"`
	LedgerRef        string    `json:"ledgerRef,omitempty"`
	Ts               time.Time `json:"ts"`
}
