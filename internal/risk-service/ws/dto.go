package ws

import "github.com/officialnyabuto/solsports/internal/risk/oracle"

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// EventID: obrigatório para subscribe/unsubscribe
type ClientMsg struct {
	Type    string `json:"type"`    // subscribe | unsubscribe | ping
	EventID string `json:"eventId"` // requerido em subscribe/unsubscribe
}

// OutcomeUpdate é o desfecho resolvido enviado aos clientes inscritos.
type OutcomeUpdate = oracle.Outcome
