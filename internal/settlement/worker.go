package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	rdto "github.com/officialnyabuto/solsports/internal/risk-service/dto"
	"github.com/officialnyabuto/solsports/internal/settlement/ledger"
	"github.com/officialnyabuto/solsports/internal/settlement/riskclient"
	skafka "github.com/officialnyabuto/solsports/internal/shared/kafka"
	ev "github.com/officialnyabuto/solsports/pkg/contracts/events"
)

// Worker liquida eventos: acumula as apostas admitidas por evento, e quando
// o oráculo tem desfecho, pede o pagamento ao ledger e reporta a liquidação
// de volta ao risk-service. O worker nunca decide admissão nem resultado —
// só orquestra.
type Worker struct {
	Log    *zap.Logger
	Reader *kafkago.Reader
	Risk   *riskclient.Client
	Ledger *ledger.Client

	SettledWriter *kafkago.Writer
	DLQWriter     *kafkago.Writer

	// Intervalo entre varreduras de eventos pendentes
	ResolveEvery time.Duration

	mu      sync.Mutex
	pending map[string][]ev.BetAdmitted // eventID -> apostas admitidas
	settled map[string]struct{}

	OnConsumed func()       // métricas
	OnSettled  func()       // métricas
	OnError    func(string) // métricas por fase
}

// Run consome apostas admitidas e varre os eventos pendentes em paralelo.
// Retorna quando o contexto é cancelado.
func (w *Worker) Run(ctx context.Context) error {
	if w.pending == nil {
		w.pending = make(map[string][]ev.BetAdmitted)
	}
	if w.settled == nil {
		w.settled = make(map[string]struct{})
	}
	if w.ResolveEvery <= 0 {
		w.ResolveEvery = 5 * time.Second
	}

	go w.settleLoop(ctx)

	for {
		m, err := w.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.Log.Warn("kafka read failed", zap.Error(err))
			if w.OnError != nil {
				w.OnError("read")
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if w.OnConsumed != nil {
			w.OnConsumed()
		}

		var bet ev.BetAdmitted
		if err := json.Unmarshal(m.Value, &bet); err != nil {
			w.Log.Warn("invalid bet_admitted message", zap.Error(err))
			if w.OnError != nil {
				w.OnError("decode")
			}
			continue
		}

		w.mu.Lock()
		if _, done := w.settled[bet.EventID]; !done {
			w.pending[bet.EventID] = append(w.pending[bet.EventID], bet)
		}
		w.mu.Unlock()
	}
}

// settleLoop varre os eventos pendentes a cada tick e tenta liquidar cada um.
func (w *Worker) settleLoop(ctx context.Context) {
	ticker := time.NewTicker(w.ResolveEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, eventID := range w.pendingEvents() {
				if err := w.settleOne(ctx, eventID); err != nil {
					if errors.Is(err, riskclient.ErrOutcomeNotReady) {
						continue // sem feed ainda; tenta no próximo tick
					}
					w.Log.Error("settle event", zap.String("event_id", eventID), zap.Error(err))
				}
			}
		}
	}
}

func (w *Worker) pendingEvents() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.pending))
	for id := range w.pending {
		out = append(out, id)
	}
	return out
}

// settleOne executa o fluxo de liquidação de um evento:
// 1. Busca o desfecho resolvido no risk-service
// 2. Computa o payout do lado vencedor (Σ amount×odd)
// 3. Pede o pagamento ao ledger, com retries; falha persistente vai pra DLQ
// 4. Reporta a liquidação ao risk-service e publica event_settled
func (w *Worker) settleOne(ctx context.Context, eventID string) error {
	out, err := w.Risk.Outcome(ctx, eventID)
	if err != nil {
		return err
	}

	w.mu.Lock()
	bets := w.pending[eventID]
	w.mu.Unlock()

	payout := totalPayoutCents(bets, out.Winner)

	// Pagamento só quando alguém acertou o lado vencedor
	var ledgerRef string
	if payout > 0 {
		const retries = 3
		for i := 0; ; i++ {
			ledgerRef, err = w.Ledger.Payout(ctx, eventID, out.Winner, payout, "settle:"+eventID)
			if err == nil {
				break
			}
			if i >= retries {
				if w.OnError != nil {
					w.OnError("ledger")
				}
				if w.DLQWriter != nil {
					_ = skafka.WriteJSON(ctx, w.DLQWriter, eventID, mustJSON(ev.EventSettled{
						EventID:          eventID,
						Winner:           out.Winner,
						HomeScore:        out.HomeScore,
						AwayScore:        out.AwayScore,
						TotalPayoutCents: payout,
						Ts:               time.Now(),
					}))
				}
				// Estaciona o evento: a entrada na DLQ é única e os ticks
				// seguintes não voltam a martelar o ledger.
				w.park(eventID)
				return err
			}
			time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
		}
	}

	// Reporta a liquidação; o risk-service atualiza analytics e auditoria
	if err := w.Risk.ReportSettlement(ctx, rdto.SettlementReport{
		EventID:          eventID,
		Winner:           out.Winner,
		HomeScore:        out.HomeScore,
		AwayScore:        out.AwayScore,
		TotalPayoutCents: payout,
	}); err != nil {
		if w.OnError != nil {
			w.OnError("report")
		}
		return err
	}

	settledEv := ev.EventSettled{
		EventID:          eventID,
		Winner:           out.Winner,
		HomeScore:        out.HomeScore,
		AwayScore:        out.AwayScore,
		TotalPayoutCents: payout,
		LedgerRef:        ledgerRef,
		Ts:               time.Now(),
	}
	if err := skafka.WriteJSON(ctx, w.SettledWriter, eventID, mustJSON(settledEv)); err != nil {
		w.Log.Warn("publish event_settled", zap.Error(err))
	}

	w.park(eventID)

	if w.OnSettled != nil {
		w.OnSettled()
	}

	w.Log.Info("event settled",
		zap.String("event_id", eventID),
		zap.String("winner", out.Winner),
		zap.Int64("payout_cents", payout),
		zap.Int("bets", len(bets)),
	)
	return nil
}

// park tira o evento da fila de pendências em definitivo, liquidado ou não;
// pendingEvents nunca mais o devolve.
func (w *Worker) park(eventID string) {
	w.mu.Lock()
	w.settled[eventID] = struct{}{}
	delete(w.pending, eventID)
	w.mu.Unlock()
}

// totalPayoutCents soma amount×odd das apostas no lado vencedor.
// Quem apostou no lado errado não recebe nada.
func totalPayoutCents(bets []ev.BetAdmitted, winner string) int64 {
	var total int64
	for _, b := range bets {
		if b.Side == winner {
			total += int64(math.Round(float64(b.AmountCents) * b.OddValue))
		}
	}
	return total
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
