package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/officialnyabuto/solsports/internal/settlement"
	"github.com/officialnyabuto/solsports/internal/settlement/ledger"
	"github.com/officialnyabuto/solsports/internal/settlement/riskclient"
	"github.com/officialnyabuto/solsports/internal/shared/config"
	"github.com/officialnyabuto/solsports/internal/shared/kafka"
	"github.com/officialnyabuto/solsports/internal/shared/logger"
	"github.com/officialnyabuto/solsports/internal/shared/metrics"
)

var (
	betsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_bets_consumed_total",
		Help: "Apostas admitidas consumidas do Kafka",
	})
	eventsSettled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_events_settled_total",
		Help: "Eventos liquidados com sucesso",
	})
	settleErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_errors_total",
		Help: "Erros de liquidação por fase",
	}, []string{"phase"})
)

// settlement-worker: consome apostas admitidas, espera o oráculo ter desfecho
// e orquestra pagamento (ledger), reporte (risk-service) e publicação do
// event_settled. Falha persistente de pagamento vai pra DLQ.
func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	prometheus.MustRegister(betsConsumed, eventsSettled, settleErrors)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicBetAdmitted, "settlement-worker")
	defer reader.Close()
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicEventSettled)
	defer settledWriter.Close()
	dlqWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicSettlementDLQ)
	defer dlqWriter.Close()

	metrics.StartMetricsServer(cfg.MetricsPort, func(context.Context) error { return nil })
	log.Info("metrics/health", zap.String("addr", ":"+cfg.MetricsPort))

	w := &settlement.Worker{
		Log:           log,
		Reader:        reader,
		Risk:          riskclient.New(cfg.RiskServiceURL),
		Ledger:        ledger.New(cfg.LedgerURL),
		SettledWriter: settledWriter,
		DLQWriter:     dlqWriter,
		ResolveEvery:  5 * time.Second,
		OnConsumed:    func() { betsConsumed.Inc() },
		OnSettled:     func() { eventsSettled.Inc() },
		OnError:       func(phase string) { settleErrors.WithLabelValues(phase).Inc() },
	}

	log.Info("settlement-worker started",
		zap.String("risk_service", cfg.RiskServiceURL),
		zap.String("ledger", cfg.LedgerURL),
	)
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("worker", zap.Error(err))
	}
}
