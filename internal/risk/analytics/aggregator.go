package analytics

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// BetEvent é uma aposta admitida, registrada no razão do evento.
type BetEvent struct {
	ActorID     string
	EventID     string
	AmountCents int64
	OddValue    float64
	Ts          time.Time
}

// Settlement é a liquidação de um evento reportada pelo settlement-worker.
type Settlement struct {
	EventID     string
	Winner      string // "home" | "away" | "draw"
	PayoutCents int64
	Ts          time.Time
}

// Profile agrega o comportamento de um ator ao longo da vida da instância.
type Profile struct {
	TotalBets        int64
	TotalVolumeCents int64
}

// Snapshot é a leitura pura do estado agregado da plataforma.
type Snapshot struct {
	TotalBets        int64
	TotalVolumeCents int64
	AvgBetSizeCents  float64
	SettlementsCount int64
	TotalPayoutCents int64
}

// eventLedger é o razão append-only de um evento; exposure acompanha
// Σ(amount×odd) e é recomputada a cada lançamento sob o lock do evento.
type eventLedger struct {
	mu            sync.Mutex
	bets          []BetEvent
	exposureCents float64
}

// Aggregator acumula exposição por evento e estatísticas da plataforma.
// Todas as operações de registro são fire-and-continue: falha de bookkeeping
// interno vira log, nunca erro para quem já teve a aposta admitida.
type Aggregator struct {
	log                 *zap.Logger
	alertThresholdCents float64

	mu      sync.RWMutex // protege mapas e contadores da plataforma
	events  map[string]*eventLedger
	actors  map[string]Profile
	totals  Snapshot

	// Callbacks de métricas, no padrão dos workers de pipeline.
	OnBetRecorded        func()
	OnSettlementRecorded func()
	OnExposureAlert      func(eventID string, exposureCents float64)
}

func New(log *zap.Logger, alertThresholdCents int64) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{
		log:                 log,
		alertThresholdCents: float64(alertThresholdCents),
		events:              make(map[string]*eventLedger),
		actors:              make(map[string]Profile),
	}
}

// RecordBet anexa a aposta ao razão do evento, recomputa a exposição e
// atualiza o perfil do ator. Acima do threshold emite o sinal de alta
// exposição — alerta de observabilidade, não bloqueio.
func (a *Aggregator) RecordBet(bet BetEvent) {
	led := a.ledgerFor(bet.EventID)

	led.mu.Lock()
	led.bets = append(led.bets, bet)

	var exposure float64
	for _, b := range led.bets {
		exposure += float64(b.AmountCents) * b.OddValue
	}
	led.exposureCents = exposure
	led.mu.Unlock()

	a.mu.Lock()
	p := a.actors[bet.ActorID]
	p.TotalBets++
	p.TotalVolumeCents += bet.AmountCents
	a.actors[bet.ActorID] = p

	a.totals.TotalBets++
	a.totals.TotalVolumeCents += bet.AmountCents
	a.mu.Unlock()

	if exposure > a.alertThresholdCents {
		a.log.Warn("high exposure alert",
			zap.String("category", "exposure"),
			zap.String("event_id", bet.EventID),
			zap.Float64("exposure_cents", exposure),
			zap.Float64("threshold_cents", a.alertThresholdCents),
		)
		if a.OnExposureAlert != nil {
			a.OnExposureAlert(bet.EventID, exposure)
		}
	}

	if a.OnBetRecorded != nil {
		a.OnBetRecorded()
	}
}

// RecordSettlement incrementa os contadores monotônicos da plataforma.
func (a *Aggregator) RecordSettlement(s Settlement) {
	a.mu.Lock()
	a.totals.SettlementsCount++
	a.totals.TotalPayoutCents += s.PayoutCents
	a.mu.Unlock()

	a.log.Info("settlement recorded",
		zap.String("event_id", s.EventID),
		zap.String("winner", s.Winner),
		zap.Int64("payout_cents", s.PayoutCents),
	)

	if a.OnSettlementRecorded != nil {
		a.OnSettlementRecorded()
	}
}

// Analytics retorna o agregado corrente. AvgBetSize é 0 com zero apostas.
func (a *Aggregator) Analytics() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snap := a.totals
	if snap.TotalBets > 0 {
		snap.AvgBetSizeCents = float64(snap.TotalVolumeCents) / float64(snap.TotalBets)
	}
	return snap
}

// Exposure retorna a exposição corrente de um evento (0 se desconhecido).
func (a *Aggregator) Exposure(eventID string) float64 {
	a.mu.RLock()
	led := a.events[eventID]
	a.mu.RUnlock()
	if led == nil {
		return 0
	}

	led.mu.Lock()
	defer led.mu.Unlock()
	return led.exposureCents
}

// EventBets retorna uma cópia do razão de apostas do evento; consumido pelo
// settlement-worker para computar o payout do lado vencedor.
func (a *Aggregator) EventBets(eventID string) []BetEvent {
	a.mu.RLock()
	led := a.events[eventID]
	a.mu.RUnlock()
	if led == nil {
		return nil
	}

	led.mu.Lock()
	defer led.mu.Unlock()
	out := make([]BetEvent, len(led.bets))
	copy(out, led.bets)
	return out
}

// Profile retorna o perfil do ator (zero se nunca apostou).
func (a *Aggregator) Profile(actorID string) Profile {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.actors[actorID]
}

// ledgerFor retorna o razão do evento, criando-o no primeiro uso.
func (a *Aggregator) ledgerFor(eventID string) *eventLedger {
	a.mu.RLock()
	led, ok := a.events[eventID]
	a.mu.RUnlock()
	if ok {
		return led
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if led, ok = a.events[eventID]; ok {
		return led
	}
	led = &eventLedger{}
	a.events[eventID] = led
	return led
}
