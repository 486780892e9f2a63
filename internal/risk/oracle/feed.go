package oracle

import (
	"context"
	"sync"
	"time"
)

// Fallback busca a última amostra fora do processo (cache Redis) quando o
// feed em memória ainda não viu o evento. Deve respeitar o contexto.
type Fallback interface {
	Latest(ctx context.Context, eventID string) (Sample, bool, error)
}

// subscription é um assinante de amostras de um evento. O mutex próprio
// serializa entrega e cancelamento: depois que o cancel retorna, nenhum
// callback roda, mesmo para amostra já em voo.
type subscription struct {
	mu     sync.Mutex
	closed bool
	fn     func(Sample)
}

func (s *subscription) deliver(sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.fn(sample)
}

// Store é o feed de amostras em memória: última amostra por evento mais os
// assinantes de streaming. Alimentado pelo consumer Kafka do risk-service.
type Store struct {
	mu      sync.RWMutex
	latest  map[string]Sample
	subs    map[string]map[int64]*subscription
	nextSub int64

	fallback        Fallback
	fallbackTimeout time.Duration
}

type StoreOption func(*Store)

// WithFallback pluga um cache externo consultado em caso de miss local.
// O timeout limita a busca pra que um oráculo travado não trave a liquidação.
func WithFallback(f Fallback, timeout time.Duration) StoreOption {
	return func(s *Store) {
		s.fallback = f
		s.fallbackTimeout = timeout
	}
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		latest:          make(map[string]Sample),
		subs:            make(map[string]map[int64]*subscription),
		fallbackTimeout: 2 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Publish registra a amostra como a mais recente do evento e entrega uma
// cópia a cada assinante ativo.
func (s *Store) Publish(sample Sample) {
	s.mu.Lock()
	s.latest[sample.EventID] = sample
	subs := make([]*subscription, 0, len(s.subs[sample.EventID]))
	for _, sub := range s.subs[sample.EventID] {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(sample)
	}
}

// Latest retorna a última amostra conhecida do evento. Miss local consulta o
// fallback com timeout; erro ou timeout equivalem a amostra inexistente.
func (s *Store) Latest(ctx context.Context, eventID string) (Sample, bool, error) {
	s.mu.RLock()
	sample, ok := s.latest[eventID]
	s.mu.RUnlock()
	if ok {
		return sample, true, nil
	}

	if s.fallback == nil {
		return Sample{}, false, nil
	}

	fctx, cancel := context.WithTimeout(ctx, s.fallbackTimeout)
	defer cancel()
	return s.fallback.Latest(fctx, eventID)
}

// Subscribe registra fn para receber cada nova amostra do evento.
// O cancel devolvido é idempotente e libera a assinatura do feed; depois que
// ele retorna, nenhum callback roda. Para dar essa garantia o cancel espera a
// entrega em andamento terminar — chamá-lo de dentro do próprio callback
// trava; dispare-o em outra goroutine para cancelar após a primeira amostra.
func (s *Store) Subscribe(eventID string, fn func(Sample)) (cancel func()) {
	sub := &subscription{fn: fn}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	if s.subs[eventID] == nil {
		s.subs[eventID] = make(map[int64]*subscription)
	}
	s.subs[eventID][id] = sub
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			// Fecha antes de remover: bloqueia entregas em voo.
			sub.mu.Lock()
			sub.closed = true
			sub.mu.Unlock()

			s.mu.Lock()
			if m, ok := s.subs[eventID]; ok {
				delete(m, id)
				if len(m) == 0 {
					delete(s.subs, eventID)
				}
			}
			s.mu.Unlock()
		})
	}
}
