package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/officialnyabuto/solsports/pkg/contracts/events"
)

// KafkaPublisher publica apostas admitidas no tópico bet_admitted.
// O settlement-worker consome esse tópico pra saber o que liquidar.
type KafkaPublisher struct {
	Writer *kafka.Writer
}

func NewKafkaPublisher(w *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{Writer: w}
}

func (p *KafkaPublisher) PublishBetAdmitted(ctx context.Context, e events.BetAdmitted) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	// Chave por evento: mantém as apostas de um mesmo jogo na mesma partição.
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.EventID),
		Value: b,
		Time:  time.Now(),
	})
}
