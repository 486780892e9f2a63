package compliance

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidAmount rejeita valores não positivos antes de qualquer checagem.
var ErrInvalidAmount = errors.New("bet amount must be positive")

// Tier identifica qual faixa de limite barrou a aposta.
type Tier string

const (
	TierSingle  Tier = "single"
	TierDaily   Tier = "daily"
	TierWeekly  Tier = "weekly"
	TierMonthly Tier = "monthly"
)

// Janelas deslizantes de cada faixa.
const (
	dailyWindow   = 24 * time.Hour
	weeklyWindow  = 168 * time.Hour
	monthlyWindow = 720 * time.Hour
)

// QuotaError é a rejeição de política: carrega a faixa violada para que o
// chamador exiba mensagem específica. Não é transitória dentro da janela.
type QuotaError struct {
	Tier       Tier
	LimitCents int64
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota exceeded: %s limit of %d cents", e.Tier, e.LimitCents)
}

// Limits agrupa as quatro faixas, em centavos. Substituída por inteiro em
// atualizações administrativas; campos zerados em SetLimits preservam o atual.
type Limits struct {
	MaxSingleBetCents int64
	DailyLimitCents   int64
	WeeklyLimitCents  int64
	MonthlyLimitCents int64
}

// Report é o relatório de compliance de um ator, somente leitura.
type Report struct {
	TotalBets          int
	DailyVolumeCents   int64
	WeeklyVolumeCents  int64
	MonthlyVolumeCents int64
	IsCompliant        bool
}

// betRecord é um lançamento imutável no histórico do ator.
type betRecord struct {
	amountCents int64
	ts          time.Time
}

// actorActivity é o razão append-only de um ator. O mutex próprio garante que
// a sequência checa-então-anexa seja atômica por ator sem contenção global.
type actorActivity struct {
	mu   sync.Mutex
	bets []betRecord
}

// Enforcer aplica os limites monetários por janela de tempo.
// Cada janela é recomputada do histórico completo a cada chamada: O(n) por
// validação, em troca de exatidão mesmo com timestamps fora de ordem.
type Enforcer struct {
	mu     sync.RWMutex // protege limits e o mapa de atores
	limits Limits
	actors map[string]*actorActivity

	now func() time.Time
}

type Option func(*Enforcer)

// WithClock troca o relógio usado no Report; usado em teste.
func WithClock(now func() time.Time) Option {
	return func(e *Enforcer) { e.now = now }
}

func New(limits Limits, opts ...Option) *Enforcer {
	e := &Enforcer{
		limits: limits,
		actors: make(map[string]*actorActivity),
		now:    time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Validate aplica as checagens em ordem, curto-circuitando na primeira falha:
// aposta única, diária (24h), semanal (168h) e mensal (720h). Só quando todas
// passam o lançamento é anexado ao histórico — nunca existe registro que
// viole uma faixa. A sequência inteira roda sob o lock do ator.
func (e *Enforcer) Validate(actorID string, amountCents int64, ts time.Time) error {
	if amountCents <= 0 {
		return ErrInvalidAmount
	}

	limits := e.Limits()

	if amountCents > limits.MaxSingleBetCents {
		return &QuotaError{Tier: TierSingle, LimitCents: limits.MaxSingleBetCents}
	}

	act := e.activityFor(actorID)

	act.mu.Lock()
	defer act.mu.Unlock()

	if total := sumWindow(act.bets, ts, dailyWindow); total+amountCents > limits.DailyLimitCents {
		return &QuotaError{Tier: TierDaily, LimitCents: limits.DailyLimitCents}
	}
	if total := sumWindow(act.bets, ts, weeklyWindow); total+amountCents > limits.WeeklyLimitCents {
		return &QuotaError{Tier: TierWeekly, LimitCents: limits.WeeklyLimitCents}
	}
	if total := sumWindow(act.bets, ts, monthlyWindow); total+amountCents > limits.MonthlyLimitCents {
		return &QuotaError{Tier: TierMonthly, LimitCents: limits.MonthlyLimitCents}
	}

	act.bets = append(act.bets, betRecord{amountCents: amountCents, ts: ts})
	return nil
}

// Report recomputa as três janelas do ator sem mutar estado.
func (e *Enforcer) Report(actorID string) Report {
	limits := e.Limits()

	e.mu.RLock()
	act := e.actors[actorID]
	e.mu.RUnlock()
	if act == nil {
		return Report{IsCompliant: true}
	}

	act.mu.Lock()
	defer act.mu.Unlock()

	now := e.now()
	daily := sumWindow(act.bets, now, dailyWindow)
	weekly := sumWindow(act.bets, now, weeklyWindow)
	monthly := sumWindow(act.bets, now, monthlyWindow)

	return Report{
		TotalBets:          len(act.bets),
		DailyVolumeCents:   daily,
		WeeklyVolumeCents:  weekly,
		MonthlyVolumeCents: monthly,
		IsCompliant: daily <= limits.DailyLimitCents &&
			weekly <= limits.WeeklyLimitCents &&
			monthly <= limits.MonthlyLimitCents,
	}
}

// SetLimits mescla as faixas informadas nas atuais; campos zerados preservam
// o valor vigente. A troca é atômica e nunca invalida apostas já admitidas.
func (e *Enforcer) SetLimits(patch Limits) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if patch.MaxSingleBetCents > 0 {
		e.limits.MaxSingleBetCents = patch.MaxSingleBetCents
	}
	if patch.DailyLimitCents > 0 {
		e.limits.DailyLimitCents = patch.DailyLimitCents
	}
	if patch.WeeklyLimitCents > 0 {
		e.limits.WeeklyLimitCents = patch.WeeklyLimitCents
	}
	if patch.MonthlyLimitCents > 0 {
		e.limits.MonthlyLimitCents = patch.MonthlyLimitCents
	}
}

// Limits retorna uma cópia das faixas vigentes.
func (e *Enforcer) Limits() Limits {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.limits
}

// activityFor retorna o razão do ator, criando-o no primeiro uso.
func (e *Enforcer) activityFor(actorID string) *actorActivity {
	e.mu.RLock()
	act, ok := e.actors[actorID]
	e.mu.RUnlock()
	if ok {
		return act
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if act, ok = e.actors[actorID]; ok {
		return act
	}
	act = &actorActivity{}
	e.actors[actorID] = act
	return act
}

// sumWindow soma os lançamentos com timestamp dentro da janela que termina
// em ref. Filtro sobre o histórico completo, sem compactação.
func sumWindow(bets []betRecord, ref time.Time, window time.Duration) int64 {
	start := ref.Add(-window)
	var total int64
	for _, b := range bets {
		if !b.ts.Before(start) {
			total += b.amountCents
		}
	}
	return total
}
