package oracle

import (
	"errors"
	"time"
)

// ErrNoFeed indica ausência de dado utilizável do oráculo: sem amostra,
// amostra fora de "trading", confiança inválida ou timeout de busca.
// Recuperável após um intervalo; nunca vira palpite de resultado.
var ErrNoFeed = errors.New("no oracle feed")

// StatusTrading é o único status em que uma amostra pode ser usada.
const StatusTrading = "trading"

// Sample é uma leitura transitória de preço/confiança do feed, chaveada por
// evento. Confidence é o desvio de 1 sigma informado pelo oráculo.
type Sample struct {
	EventID     string
	Price       float64
	Confidence  float64
	Status      string
	PublishTime time.Time
}

// Usable diz se a amostra pode alimentar uma resolução.
func (s Sample) Usable() bool {
	return s.Status == StatusTrading && s.Confidence > 0
}

const (
	WinnerHome = "home"
	WinnerAway = "away"
	WinnerDraw = "draw"
)

// Outcome é o desfecho discreto derivado de uma amostra, consumido pelo
// fluxo de liquidação. Confidence é repassada crua para auditoria.
type Outcome struct {
	EventID    string  `json:"eventId"`
	Winner     string  `json:"winner"`
	HomeScore  int     `json:"homeScore"`
	AwayScore  int     `json:"awayScore"`
	Confidence float64 `json:"confidence"`
}
