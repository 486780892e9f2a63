package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/officialnyabuto/solsports/internal/risk"
	rcache "github.com/officialnyabuto/solsports/internal/risk-service/cache"
	"github.com/officialnyabuto/solsports/internal/risk-service/consumer"
	rhttp "github.com/officialnyabuto/solsports/internal/risk-service/http"
	"github.com/officialnyabuto/solsports/internal/risk-service/producer"
	"github.com/officialnyabuto/solsports/internal/risk-service/pubsub"
	"github.com/officialnyabuto/solsports/internal/risk-service/repo"
	"github.com/officialnyabuto/solsports/internal/risk-service/ws"
	"github.com/officialnyabuto/solsports/internal/risk/analytics"
	"github.com/officialnyabuto/solsports/internal/risk/compliance"
	"github.com/officialnyabuto/solsports/internal/risk/oracle"
	"github.com/officialnyabuto/solsports/internal/risk/ratelimit"
	"github.com/officialnyabuto/solsports/internal/shared/cache"
	"github.com/officialnyabuto/solsports/internal/shared/config"
	"github.com/officialnyabuto/solsports/internal/shared/db"
	"github.com/officialnyabuto/solsports/internal/shared/kafka"
	"github.com/officialnyabuto/solsports/internal/shared/logger"
	"github.com/officialnyabuto/solsports/internal/shared/metrics"
)

// Métricas Prometheus do plano de admissão e do pipeline do oráculo
var (
	decisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "risk_decisions_total",
		Help: "Decisões de admissão por motivo",
	}, []string{"reason"})

	rateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "risk_rate_limited_total",
		Help: "Estouros de rate limit por categoria",
	}, []string{"category"})

	exposureAlertsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "risk_exposure_alerts_total",
		Help: "Alertas de alta exposição emitidos",
	})

	samplesConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oracle_samples_consumed_total",
		Help: "Amostras do oráculo consumidas do Kafka",
	})
	samplesCached = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oracle_samples_cached_total",
		Help: "Amostras gravadas no cache Redis",
	})
	outcomesResolved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oracle_outcomes_resolved_total",
		Help: "Desfechos resolvidos a partir de amostras",
	})
	pipelineErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oracle_pipeline_errors_total",
		Help: "Erros do pipeline de amostras por fase",
	}, []string{"phase"})
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	prometheus.MustRegister(
		decisionsTotal, rateLimitedTotal, exposureAlertsTotal,
		samplesConsumed, samplesCached, outcomesResolved, pipelineErrors,
	)

	// Postgres: trilha de auditoria de decisões e liquidações
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	// Redis: cache de amostras + canal de broadcast de desfechos
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka: publica apostas admitidas, consome amostras do oráculo
	admittedWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetAdmitted)
	defer admittedWriter.Close()
	sampleReader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicOracleSamples, "risk-service")
	defer sampleReader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Núcleo de risco
	sampleCache := rcache.NewSampleCache(rdb, 5*time.Minute)
	feed := oracle.NewStore(oracle.WithFallback(sampleCache, 2*time.Second))
	resolver := oracle.NewResolver(feed, log, oracle.WithDrawThreshold(cfg.OracleDrawThreshold))

	limiter := ratelimit.New(ratelimit.DefaultRules())
	limiter.OnExceeded = func(actorID string, category ratelimit.Category) {
		rateLimitedTotal.WithLabelValues(string(category)).Inc()
	}

	quotas := compliance.New(compliance.Limits{
		MaxSingleBetCents: cfg.MaxSingleBetCents,
		DailyLimitCents:   cfg.DailyLimitCents,
		WeeklyLimitCents:  cfg.WeeklyLimitCents,
		MonthlyLimitCents: cfg.MonthlyLimitCents,
	})

	exposure := analytics.New(log, cfg.ExposureAlertCents)
	exposure.OnExposureAlert = func(string, float64) { exposureAlertsTotal.Inc() }

	engine := risk.NewEngine(log, limiter, quotas, exposure, resolver)
	engine.OnDecision = func(reason string) { decisionsTotal.WithLabelValues(reason).Inc() }

	// Pipeline de amostras: Kafka -> feed em memória -> Redis -> broadcast
	proc := &consumer.Processor{
		Log:              log,
		Reader:           sampleReader,
		Store:            feed,
		Cache:            sampleCache,
		Resolver:         resolver,
		Broadcast:        pubsub.NewRedisBroadcaster(rdb),
		BroadcastChannel: cfg.RedisOutcomeChannel,
		OnConsumed:       func() { samplesConsumed.Inc() },
		OnCached:         func() { samplesCached.Inc() },
		OnResolved:       func() { outcomesResolved.Inc() },
		OnError:          func(phase string) { pipelineErrors.WithLabelValues(phase).Inc() },
	}
	go func() {
		if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
			log.Fatal("sample consumer", zap.Error(err))
		}
	}()

	// Hub WS alimentado pelo canal Redis de desfechos
	hub := ws.NewHub(func(r *http.Request) bool { return true })
	ws.StartRedisSubscriber(ctx, log, rdb, cfg.RedisOutcomeChannel, hub)

	// HTTP público
	api := rhttp.NewServer(
		log,
		engine,
		quotas,
		exposure,
		repo.NewPostgres(pg),
		producer.NewKafkaPublisher(admittedWriter),
		hub.HandleWS,
	)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	// metrics/health
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	})
	log.Info("metrics/health", zap.String("addr", ":"+cfg.MetricsPort))

	log.Info("risk-service listening", zap.String("addr", fmt.Sprintf(":%s", cfg.HTTPPort)))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
