package oracle

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
)

// DefaultDrawThreshold é o corte heurístico de empate: abaixo dele o
// preço normalizado não indica vencedor.
const DefaultDrawThreshold = 0.1

// Resolver converte amostras de preço/confiança em desfechos discretos.
// A regra é determinística: mesma amostra, mesmo desfecho.
type Resolver struct {
	store         *Store
	drawThreshold float64
	log           *zap.Logger
}

type ResolverOption func(*Resolver)

// WithDrawThreshold ajusta o corte de empate (parâmetro de configuração,
// não invariante).
func WithDrawThreshold(t float64) ResolverOption {
	return func(r *Resolver) {
		if t > 0 {
			r.drawThreshold = t
		}
	}
}

func NewResolver(store *Store, log *zap.Logger, opts ...ResolverOption) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Resolver{
		store:         store,
		drawThreshold: DefaultDrawThreshold,
		log:           log,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve busca a última amostra do evento e aplica a regra de decisão.
// Sem amostra utilizável (ausente, fora de trading, confiança <= 0 ou
// timeout do feed) retorna ErrNoFeed.
func (r *Resolver) Resolve(ctx context.Context, eventID string) (Outcome, error) {
	sample, ok, err := r.store.Latest(ctx, eventID)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: fetch %s: %v", ErrNoFeed, eventID, err)
	}
	if !ok {
		return Outcome{}, fmt.Errorf("%w: no sample for %s", ErrNoFeed, eventID)
	}
	return r.Evaluate(sample)
}

// Evaluate aplica a regra de decisão a uma amostra já obtida:
// normalized = price/confidence; |normalized| < drawThreshold => empate;
// senão o sinal decide o vencedor. scoreDiff = |round(normalized)|, o
// vencedor marca scoreDiff e o perdedor max(0, scoreDiff-1).
func (r *Resolver) Evaluate(sample Sample) (Outcome, error) {
	if !sample.Usable() {
		return Outcome{}, fmt.Errorf("%w: sample for %s not usable (status=%q confidence=%v)",
			ErrNoFeed, sample.EventID, sample.Status, sample.Confidence)
	}

	normalized := sample.Price / sample.Confidence
	scoreDiff := int(math.Abs(math.Round(normalized)))

	out := Outcome{
		EventID:    sample.EventID,
		Confidence: sample.Confidence,
	}

	switch {
	case math.Abs(normalized) < r.drawThreshold:
		out.Winner = WinnerDraw
		out.HomeScore = scoreDiff
		out.AwayScore = scoreDiff
	case normalized > 0:
		out.Winner = WinnerHome
		out.HomeScore = scoreDiff
		out.AwayScore = maxInt(0, scoreDiff-1)
	default:
		out.Winner = WinnerAway
		out.AwayScore = scoreDiff
		out.HomeScore = maxInt(0, scoreDiff-1)
	}

	return out, nil
}

// Subscribe aplica a mesma regra a cada nova amostra do evento e entrega o
// desfecho ao callback. Amostras não utilizáveis são puladas. O cancel é
// idempotente e, após retornar, nenhum desfecho é mais entregue; como no
// Store, cancelar de dentro do callback exige outra goroutine.
func (r *Resolver) Subscribe(eventID string, fn func(Outcome)) (cancel func()) {
	return r.store.Subscribe(eventID, func(s Sample) {
		out, err := r.Evaluate(s)
		if err != nil {
			r.log.Debug("skipping unusable sample",
				zap.String("event_id", eventID),
				zap.Error(err),
			)
			return
		}
		fn(out)
	})
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
