package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/officialnyabuto/solsports/internal/risk/oracle"
	ledgerdto "github.com/officialnyabuto/solsports/internal/settlement/ledger/dto"
	"github.com/officialnyabuto/solsports/internal/shared/config"
	"github.com/officialnyabuto/solsports/internal/shared/logger"
	"github.com/officialnyabuto/solsports/pkg/contracts/events"
)

var (
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	// Catálogo fixo de eventos simulados para geração de amostras
	eventCatalog = []string{"MATCH_001", "MATCH_002", "MATCH_003", "MATCH_004"}

	// Métricas Prometheus para monitoramento de conexões e mensagens
	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "oracle_sim_ws_connections",
		Help: "Clientes WebSocket conectados",
	})
	wsSamplesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oracle_sim_samples_sent_total",
		Help: "Total de amostras WS enviadas",
	})
	payoutsServed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oracle_sim_ledger_payouts_total",
		Help: "Pagamentos mock atendidos pelo ledger",
	})
)

// Representa uma conexão de cliente WebSocket
type clientConn struct {
	id   string
	conn *websocket.Conn
}

// Estrutura responsável por gerenciar os clientes conectados via WebSocket
// e realizar broadcast de amostras para todos eles.
type hub struct {
	mu      sync.RWMutex
	clients map[string]*clientConn
	log     *zap.Logger
}

func newHub(log *zap.Logger) *hub {
	return &hub{
		clients: make(map[string]*clientConn),
		log:     log,
	}
}

// Adiciona um novo cliente ao hub e incrementa a métrica de conexões
func (h *hub) add(c *clientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	wsConnections.Inc()
	h.log.Info("ws client connected", zap.String("client_id", c.id))
}

// Remove um cliente do hub e decrementa a métrica de conexões
func (h *hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; ok {
		delete(h.clients, id)
		wsConnections.Dec()
		h.log.Info("ws client disconnected", zap.String("client_id", id))
	}
}

// Envia uma amostra para todos os clientes conectados
func (h *hub) broadcast(v any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	msg, _ := json.Marshal(v)
	for id, c := range h.clients {
		c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Warn("ws write failed", zap.String("client_id", id), zap.Error(err))
			_ = c.conn.Close()
		} else {
			wsSamplesSent.Inc()
		}
	}
}

// Server estrutura principal do serviço (ledger mock)
type server struct {
	log *zap.Logger
}

func newServer(log *zap.Logger) *server { return &server{log: log} }

// Handler de pagamento mock — responde como o ledger real responderia
func (s *server) payoutHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req ledgerdto.PayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.EventID == "" || req.AmountCents <= 0 {
		http.Error(w, "invalid payout", http.StatusBadRequest)
		return
	}

	ok := rand.Intn(100) < 90 // 90% sucesso

	resp := ledgerdto.PayoutResponse{
		Status:    "PAID",
		LedgerRef: "LED-" + safePrefix(req.ExternalRef, 16),
	}
	if !ok {
		resp.Status = "REJECTED"
	}
	payoutsServed.Inc()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// evita panic se o ExternalRef for menor que n caracteres
func safePrefix(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

// gera número aleatório entre min e max
func rnd(min, max float64) float64 {
	return (rand.Float64() * (max - min)) + min
}

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	rand.Seed(time.Now().UnixNano())

	prometheus.MustRegister(wsConnections, wsSamplesSent, payoutsServed)

	h := newHub(log)
	s := newServer(log)

	// Gera e envia amostras simuladas para todos os clientes a cada 2 segundos.
	// De vez em quando emite uma amostra "halted" ou com confiança zerada,
	// para exercitar o caminho de NoFeed do resolvedor.
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		version := 1
		for range ticker.C {
			for _, eventID := range eventCatalog {
				sample := events.OracleSample{
					EventID:     eventID,
					Price:       rnd(-4.0, 4.0),
					Confidence:  rnd(0.5, 1.5),
					Status:      oracle.StatusTrading,
					PublishTime: time.Now().UTC(),
					Source:      cfg.ServiceName,
					Version:     version,
				}
				switch rand.Intn(20) {
				case 0:
					sample.Status = "halted"
				case 1:
					sample.Confidence = 0
				}
				h.broadcast(sample)
			}
			version++
		}
	}()

	// ==== MUX PÚBLICO (HTTP principal): /ws e /ledger/payout
	appMux := http.NewServeMux()

	appMux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("ws upgrade failed", zap.Error(err))
			return
		}
		id := fmt.Sprintf("%d", time.Now().UnixNano())
		c := &clientConn{id: id, conn: conn}
		h.add(c)

		// Goroutine para manter a conexão viva e remover cliente ao desconectar
		go func() {
			defer func() {
				h.remove(id)
				_ = conn.Close()
			}()
			_ = conn.SetReadDeadline(time.Time{})
			for {
				// Lê e descarta mensagens do cliente para manter o socket limpo
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})

	appMux.HandleFunc("/ledger/payout", s.payoutHandler)

	// ==== MUX DE MÉTRICAS (/healthz, /metrics)
	metricsMux := http.NewServeMux()
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsMux.Handle("/metrics", promhttp.Handler())

	// Servidor de métricas em goroutine
	go func() {
		metricsAddr := fmt.Sprintf(":%s", cfg.MetricsPort)
		log.Info("oracle simulator (metrics) running",
			zap.String("addr", metricsAddr),
			zap.String("paths", "/healthz,/metrics"),
		)
		if err := http.ListenAndServe(metricsAddr, metricsMux); err != nil {
			log.Fatal("metrics server error", zap.Error(err))
		}
	}()

	// Servidor público (WS + ledger mock)
	publicAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	log.Info("oracle simulator (public) running",
		zap.String("addr", publicAddr),
		zap.String("paths", "/ws,/ledger/payout"),
	)
	if err := http.ListenAndServe(publicAddr, appMux); err != nil {
		log.Fatal("public server error", zap.Error(err))
	}
}
