package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/officialnyabuto/solsports/internal/risk/oracle"
	"github.com/officialnyabuto/solsports/pkg/contracts/events"
)

// SampleCache guarda a última amostra do oráculo por evento no Redis.
// Serve de fallback para o feed em memória: instâncias recém-subidas do
// risk-service conseguem resolver eventos que nunca viram no Kafka.
type SampleCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewSampleCache(c *redis.Client, ttl time.Duration) *SampleCache {
	return &SampleCache{Client: c, TTL: ttl}
}

// key gera a chave Redis da amostra corrente de um evento
func key(eventID string) string { return "oracle:current:" + eventID }

// SetCurrent armazena a amostra corrente com TTL definido
func (c *SampleCache) SetCurrent(ctx context.Context, e events.OracleSample) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, key(e.EventID), b, c.TTL).Err()
}

// Latest implementa oracle.Fallback: miss vira (false, nil), erro de Redis
// sobe pro chamador decidir (o resolver trata como NoFeed).
func (c *SampleCache) Latest(ctx context.Context, eventID string) (oracle.Sample, bool, error) {
	b, err := c.Client.Get(ctx, key(eventID)).Bytes()
	if err == redis.Nil {
		return oracle.Sample{}, false, nil
	}
	if err != nil {
		return oracle.Sample{}, false, err
	}

	var e events.OracleSample
	if err := json.Unmarshal(b, &e); err != nil {
		return oracle.Sample{}, false, err
	}
	return ToSample(e), true, nil
}

// ToSample converte o contrato de transporte no tipo de domínio.
func ToSample(e events.OracleSample) oracle.Sample {
	return oracle.Sample{
		EventID:     e.EventID,
		Price:       e.Price,
		Confidence:  e.Confidence,
		Status:      e.Status,
		PublishTime: e.PublishTime,
	}
}
