package risk

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/officialnyabuto/solsports/internal/risk/analytics"
	"github.com/officialnyabuto/solsports/internal/risk/compliance"
	"github.com/officialnyabuto/solsports/internal/risk/oracle"
	"github.com/officialnyabuto/solsports/internal/risk/ratelimit"
)

// Motivos de decisão expostos ao chamador e à trilha de auditoria.
const (
	ReasonAccepted     = "accepted"
	ReasonRateLimited  = "rate_limited"
	ReasonQuotaSingle  = "quota_single"
	ReasonQuotaDaily   = "quota_daily"
	ReasonQuotaWeekly  = "quota_weekly"
	ReasonQuotaMonthly = "quota_monthly"
	ReasonInvalid      = "invalid_amount"
)

// BetRequest é a tentativa de aposta já com o ator resolvido pela identidade.
type BetRequest struct {
	ActorID     string
	EventID     string
	Side        string // "home" | "away" | "draw"
	AmountCents int64
	OddValue    float64
	Ts          time.Time
}

// Decision é o veredito de admissão. O motor nunca movimenta fundos: com
// Accepted, cabe ao chamador acionar o ledger externo.
type Decision struct {
	Accepted bool
	Reason   string
}

// Engine compõe o pipeline de admissão: rate limiter barato na frente,
// depois as faixas de quota; aceita, registra na exposição e devolve.
type Engine struct {
	log      *zap.Logger
	limiter  *ratelimit.Limiter
	quotas   *compliance.Enforcer
	exposure *analytics.Aggregator
	resolver *oracle.Resolver

	// OnDecision alimenta contadores Prometheus por motivo.
	OnDecision func(reason string)
}

func NewEngine(
	log *zap.Logger,
	limiter *ratelimit.Limiter,
	quotas *compliance.Enforcer,
	exposure *analytics.Aggregator,
	resolver *oracle.Resolver,
) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		log:      log,
		limiter:  limiter,
		quotas:   quotas,
		exposure: exposure,
		resolver: resolver,
	}
}

// SubmitBet decide se a tentativa pode seguir para o ledger.
// Ordem fixa: rate limit (rejeita rajada abusiva antes de tocar em quota),
// depois as quatro faixas de quota com a sequência checa-e-anexa atômica.
// Aceitou, o razão de exposição registra na hora; falha de analytics nunca
// reverte a admissão.
func (e *Engine) SubmitBet(req BetRequest) Decision {
	if err := e.limiter.Allow(req.ActorID, ratelimit.CategoryBetting); err != nil {
		e.log.Warn("bet rate limited",
			zap.String("category", string(ratelimit.CategoryBetting)),
			zap.String("actor_id", req.ActorID),
			zap.Int64("amount_cents", req.AmountCents),
		)
		return e.decided(Decision{Reason: ReasonRateLimited})
	}

	if err := e.quotas.Validate(req.ActorID, req.AmountCents, req.Ts); err != nil {
		return e.decided(Decision{Reason: quotaReason(err)})
	}

	e.exposure.RecordBet(analytics.BetEvent{
		ActorID:     req.ActorID,
		EventID:     req.EventID,
		AmountCents: req.AmountCents,
		OddValue:    req.OddValue,
		Ts:          req.Ts,
	})

	return e.decided(Decision{Accepted: true, Reason: ReasonAccepted})
}

// ResolveEvent repassa ao resolver do oráculo; ErrNoFeed sobe intacto.
func (e *Engine) ResolveEvent(ctx context.Context, eventID string) (oracle.Outcome, error) {
	return e.resolver.Resolve(ctx, eventID)
}

func (e *Engine) decided(d Decision) Decision {
	if e.OnDecision != nil {
		e.OnDecision(d.Reason)
	}
	return d
}

// quotaReason traduz o erro do enforcer no código de motivo da faixa.
func quotaReason(err error) string {
	var qe *compliance.QuotaError
	if errors.As(err, &qe) {
		switch qe.Tier {
		case compliance.TierSingle:
			return ReasonQuotaSingle
		case compliance.TierDaily:
			return ReasonQuotaDaily
		case compliance.TierWeekly:
			return ReasonQuotaWeekly
		case compliance.TierMonthly:
			return ReasonQuotaMonthly
		}
	}
	return ReasonInvalid
}
