package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRateLimited indica estouro de limite; condição transitória, o chamador
// pode tentar de novo após o refill.
var ErrRateLimited = errors.New("rate limited")

// Category separa os buckets por tipo de ação.
type Category string

const (
	CategoryBetting    Category = "betting"
	CategoryGeneralAPI Category = "generalApi"
)

// Rule define a capacidade de um bucket: Points fichas recarregadas
// continuamente ao longo de Duration.
type Rule struct {
	Points   float64
	Duration time.Duration
}

// DefaultRules é a política de produção: 5 apostas/min e 100 chamadas/min.
func DefaultRules() map[Category]Rule {
	return map[Category]Rule{
		CategoryBetting:    {Points: 5, Duration: time.Minute},
		CategoryGeneralAPI: {Points: 100, Duration: time.Minute},
	}
}

type bucketKey struct {
	actorID  string
	category Category
}

// bucket guarda o saldo fracionário de fichas e o instante do último refill.
type bucket struct {
	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// Limiter mantém um token bucket por par (ator, categoria).
// Buckets são criados sob demanda no primeiro uso; o refill é contínuo,
// calculado pelo tempo decorrido, então não há goroutine de manutenção.
type Limiter struct {
	rules map[Category]Rule

	mu      sync.RWMutex
	buckets map[bucketKey]*bucket

	now func() time.Time

	// OnExceeded é o sinal estruturado de estouro (observabilidade);
	// nunca bloqueia a decisão.
	OnExceeded func(actorID string, category Category)
}

type Option func(*Limiter)

// WithClock troca o relógio; usado em teste.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(rules map[Category]Rule, opts ...Option) *Limiter {
	if rules == nil {
		rules = DefaultRules()
	}
	l := &Limiter{
		rules:   rules,
		buckets: make(map[bucketKey]*bucket),
		now:     time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Allow consome uma ficha do bucket (ator, categoria).
// Com saldo disponível decrementa e retorna nil; vazio retorna ErrRateLimited
// sem mutar o saldo. Atômico por chave: atores distintos não disputam lock.
func (l *Limiter) Allow(actorID string, category Category) error {
	rule, ok := l.rules[category]
	if !ok {
		return fmt.Errorf("unknown rate limit category %q", category)
	}

	b := l.bucketFor(actorID, category, rule)

	b.mu.Lock()
	defer b.mu.Unlock()

	l.refill(b, rule)

	if b.tokens < 1 {
		if l.OnExceeded != nil {
			l.OnExceeded(actorID, category)
		}
		return ErrRateLimited
	}
	b.tokens--
	return nil
}

// Remaining informa o saldo atual de fichas sem consumir nada.
func (l *Limiter) Remaining(actorID string, category Category) float64 {
	rule, ok := l.rules[category]
	if !ok {
		return 0
	}
	b := l.bucketFor(actorID, category, rule)

	b.mu.Lock()
	defer b.mu.Unlock()
	l.refill(b, rule)
	return b.tokens
}

// refill credita fichas proporcionais ao tempo decorrido, limitado à capacidade.
// Chamar com b.mu já adquirido.
func (l *Limiter) refill(b *bucket, rule Rule) {
	now := l.now()
	elapsed := now.Sub(b.last)
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed.Seconds() * rule.Points / rule.Duration.Seconds()
	if b.tokens > rule.Points {
		b.tokens = rule.Points
	}
	b.last = now
}

// bucketFor retorna o bucket do par, criando-o cheio no primeiro uso.
func (l *Limiter) bucketFor(actorID string, category Category, rule Rule) *bucket {
	key := bucketKey{actorID: actorID, category: category}

	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok = l.buckets[key]; ok {
		return b
	}
	b = &bucket{tokens: rule.Points, last: l.now()}
	l.buckets[key] = b
	return b
}
