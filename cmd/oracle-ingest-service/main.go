package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/officialnyabuto/solsports/internal/oracle-ingest/publisher"
	"github.com/officialnyabuto/solsports/internal/oracle-ingest/service"
	"github.com/officialnyabuto/solsports/internal/shared/config"
	"github.com/officialnyabuto/solsports/internal/shared/logger"
	"github.com/officialnyabuto/solsports/internal/shared/metrics"
)

// oracle-ingest-service: conecta no WS do fornecedor de oráculo e despeja
// cada amostra de preço/confiança no tópico Kafka de amostras. Não interpreta
// nada — a resolução de desfecho é do risk-service.
func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pub := publisher.NewKafkaPublisher(strings.Split(cfg.KafkaBrokers, ","), cfg.TopicOracleSamples, log)
	defer pub.Close()

	metrics.StartMetricsServer(cfg.MetricsPort, func(context.Context) error { return nil })
	log.Info("metrics/health", zap.String("addr", ":"+cfg.MetricsPort))

	client := &service.WSClient{
		URL:       cfg.SupplierWSURL,
		Log:       log,
		Publisher: pub,
	}

	log.Info("oracle-ingest-service started", zap.String("supplier_ws", cfg.SupplierWSURL))
	client.Start(ctx)
}
