package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	rcache "github.com/officialnyabuto/solsports/internal/risk-service/cache"
	"github.com/officialnyabuto/solsports/internal/risk/oracle"
	"github.com/officialnyabuto/solsports/pkg/contracts/events"
)

// Broadcaster publica desfechos resolvidos no canal de broadcast (Redis
// Pub/Sub), de onde o hub WS distribui para os clientes inscritos.
type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Processor consome amostras do oráculo do Kafka, alimenta o feed em memória,
// atualiza o cache Redis e transmite o desfecho corrente de cada evento.
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa.
type Processor struct {
	Log      *zap.Logger
	Reader   *kafka.Reader
	Store    *oracle.Store
	Cache    *rcache.SampleCache
	Resolver *oracle.Resolver

	Broadcast        Broadcaster
	BroadcastChannel string

	OnConsumed func()       // métricas (counter++)
	OnCached   func()       // métricas
	OnResolved func()       // métricas
	OnError    func(string) // métricas por fase
}

// Run inicia o loop principal de consumo e processamento das amostras Kafka
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			if p.OnError != nil {
				p.OnError("read")
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed() // callback de métrica: amostra consumida
		}

		var ev events.OracleSample
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			p.Log.Warn("invalid sample message", zap.Error(err))
			if p.OnError != nil {
				p.OnError("decode")
			}
			continue
		}

		// Alimenta o feed em memória (e os assinantes de streaming)
		p.Store.Publish(rcache.ToSample(ev))

		// Atualiza o cache Redis com a amostra corrente
		if err := p.Cache.SetCurrent(ctx, ev); err != nil {
			p.Log.Warn("redis set failed", zap.Error(err))
			if p.OnError != nil {
				p.OnError("cache")
			}
			// não bloqueia o pipeline se falhar o cache
		} else if p.OnCached != nil {
			p.OnCached() // callback de métrica: cache atualizado
		}

		// Resolve o desfecho corrente e transmite pro canal de broadcast.
		// Amostra não utilizável (halted, confiança zerada) só não transmite.
		out, err := p.Resolver.Evaluate(rcache.ToSample(ev))
		if err != nil {
			p.Log.Debug("sample not resolvable", zap.String("event_id", ev.EventID), zap.Error(err))
			continue
		}
		if p.OnResolved != nil {
			p.OnResolved()
		}

		if p.Broadcast != nil {
			payload, _ := json.Marshal(out)
			if err := p.Broadcast.Publish(ctx, p.BroadcastChannel, payload); err != nil {
				p.Log.Warn("outcome broadcast failed", zap.Error(err))
				if p.OnError != nil {
					p.OnError("broadcast")
				}
			}
		}
	}
}
