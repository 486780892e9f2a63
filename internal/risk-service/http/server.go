package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/officialnyabuto/solsports/internal/risk"
	"github.com/officialnyabuto/solsports/internal/risk-service/dto"
	"github.com/officialnyabuto/solsports/internal/risk-service/repo"
	"github.com/officialnyabuto/solsports/internal/risk/analytics"
	"github.com/officialnyabuto/solsports/internal/risk/compliance"
	"github.com/officialnyabuto/solsports/internal/risk/oracle"
	"github.com/officialnyabuto/solsports/pkg/contracts/events"
)

// AuditStore é a trilha de auditoria; falha aqui vira log, nunca 5xx —
// uma aposta já admitida não é revogada por bookkeeping.
type AuditStore interface {
	InsertDecision(ctx context.Context, d *repo.Decision) (string, error)
	GetDecision(ctx context.Context, id string) (*repo.Decision, error)
	InsertSettlement(ctx context.Context, s *repo.SettlementRecord) (string, error)
}

// Server expõe a API REST do plano de risco
type Server struct {
	log      *zap.Logger
	engine   *risk.Engine
	quotas   *compliance.Enforcer
	exposure *analytics.Aggregator
	audit    AuditStore
	publ     interface {
		PublishBetAdmitted(context.Context, events.BetAdmitted) error
	}
	wsHandler http.HandlerFunc
}

func NewServer(
	log *zap.Logger,
	engine *risk.Engine,
	quotas *compliance.Enforcer,
	exposure *analytics.Aggregator,
	audit AuditStore,
	publ interface {
		PublishBetAdmitted(context.Context, events.BetAdmitted) error
	},
	wsHandler http.HandlerFunc,
) *Server {
	return &Server{
		log:       log,
		engine:    engine,
		quotas:    quotas,
		exposure:  exposure,
		audit:     audit,
		publ:      publ,
		wsHandler: wsHandler,
	}
}

// Router retorna o roteador HTTP com os endpoints REST
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/bets", s.placeBet)                        // admissão de aposta
	r.Get("/v1/decisions/{id}", s.getDecision)            // auditoria de decisão
	r.Get("/v1/events/{id}/outcome", s.getOutcome)        // resolução de desfecho
	r.Get("/v1/events/{id}/exposure", s.getExposure)      // exposição por evento
	r.Get("/v1/compliance/{actorId}", s.complianceReport) // relatório por ator
	r.Get("/v1/analytics", s.getAnalytics)                // agregados da plataforma
	r.Put("/v1/admin/limits", s.updateLimits)             // atualização administrativa
	r.Post("/v1/settlements", s.reportSettlement)         // reporte do worker
	if s.wsHandler != nil {
		r.Get("/ws", s.wsHandler) // streaming de desfechos
	}
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// placeBet roda o pipeline de admissão: rate limiter -> quotas.
// Toda decisão (aceita ou não) entra na trilha de auditoria; só as aceitas
// são publicadas no tópico bet_admitted para o fluxo de liquidação.
func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	if req.ActorID == "" || req.EventID == "" || req.AmountCents <= 0 || req.OddValue <= 0 || !validSide(req.Side) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	decision := s.engine.SubmitBet(risk.BetRequest{
		ActorID:     req.ActorID,
		EventID:     req.EventID,
		Side:        req.Side,
		AmountCents: req.AmountCents,
		OddValue:    req.OddValue,
		Ts:          time.Now(),
	})

	// Trilha de auditoria: falha não bloqueia a decisão já tomada
	decisionID, err := s.audit.InsertDecision(r.Context(), &repo.Decision{
		ActorID:     req.ActorID,
		EventID:     req.EventID,
		Side:        req.Side,
		AmountCents: req.AmountCents,
		OddValue:    req.OddValue,
		Accepted:    decision.Accepted,
		Reason:      decision.Reason,
	})
	if err != nil {
		s.log.Warn("audit insert failed", zap.Error(err))
	}

	if !decision.Accepted {
		writeJSON(w, rejectionStatus(decision.Reason), dto.PlaceBetResponse{
			DecisionID: decisionID,
			Status:     "REJECTED",
			Reason:     decision.Reason,
		})
		return
	}

	_ = s.publ.PublishBetAdmitted(r.Context(), events.BetAdmitted{
		DecisionID:  decisionID,
		ActorID:     req.ActorID,
		EventID:     req.EventID,
		Side:        req.Side,
		AmountCents: req.AmountCents,
		OddValue:    req.OddValue,
	})

	writeJSON(w, http.StatusCreated, dto.PlaceBetResponse{
		DecisionID: decisionID,
		Status:     "ACCEPTED",
		Reason:     decision.Reason,
	})
}

// rejectionStatus mapeia o motivo no código HTTP: 429 pro transitório,
// 422 pra rejeição de política (não adianta repetir dentro da janela).
func rejectionStatus(reason string) int {
	if reason == risk.ReasonRateLimited {
		return http.StatusTooManyRequests
	}
	return http.StatusUnprocessableEntity
}

func validSide(side string) bool {
	return side == oracle.WinnerHome || side == oracle.WinnerAway || side == oracle.WinnerDraw
}

// getDecision retorna o desfecho registrado de uma decisão pelo id
func (s *Server) getDecision(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := s.audit.GetDecision(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, dto.DecisionResponse{
		DecisionID:  d.ID,
		ActorID:     d.ActorID,
		EventID:     d.EventID,
		Side:        d.Side,
		AmountCents: d.AmountCents,
		OddValue:    d.OddValue,
		Accepted:    d.Accepted,
		Reason:      d.Reason,
	})
}

// getOutcome resolve o desfecho corrente do evento via oráculo.
// Sem feed utilizável responde 404 com motivo explícito — nunca chuta.
func (s *Server) getOutcome(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	out, err := s.engine.ResolveEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, oracle.ErrNoFeed) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no feed", "reason": "no_feed"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// getExposure retorna a exposição corrente de um evento
func (s *Server) getExposure(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, dto.ExposureResponse{
		EventID:       id,
		ExposureCents: s.exposure.Exposure(id),
	})
}

// complianceReport recomputa as janelas do ator sem mutar estado
func (s *Server) complianceReport(w http.ResponseWriter, r *http.Request) {
	actorID := chi.URLParam(r, "actorId")
	rep := s.quotas.Report(actorID)
	writeJSON(w, http.StatusOK, dto.ComplianceReportResponse{
		ActorID:            actorID,
		TotalBets:          rep.TotalBets,
		DailyVolumeCents:   rep.DailyVolumeCents,
		WeeklyVolumeCents:  rep.WeeklyVolumeCents,
		MonthlyVolumeCents: rep.MonthlyVolumeCents,
		IsCompliant:        rep.IsCompliant,
	})
}

// getAnalytics retorna o agregado corrente da plataforma
func (s *Server) getAnalytics(w http.ResponseWriter, r *http.Request) {
	snap := s.exposure.Analytics()
	writeJSON(w, http.StatusOK, dto.AnalyticsResponse{
		TotalBets:        snap.TotalBets,
		TotalVolumeCents: snap.TotalVolumeCents,
		AvgBetSizeCents:  snap.AvgBetSizeCents,
		SettlementsCount: snap.SettlementsCount,
		TotalPayoutCents: snap.TotalPayoutCents,
	})
}

// updateLimits mescla as faixas informadas; nunca retroage sobre apostas
// já admitidas.
func (s *Server) updateLimits(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateLimitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}

	s.quotas.SetLimits(compliance.Limits{
		MaxSingleBetCents: req.MaxSingleBetCents,
		DailyLimitCents:   req.DailyLimitCents,
		WeeklyLimitCents:  req.WeeklyLimitCents,
		MonthlyLimitCents: req.MonthlyLimitCents,
	})

	lim := s.quotas.Limits()
	s.log.Info("quota limits updated",
		zap.Int64("max_single_bet_cents", lim.MaxSingleBetCents),
		zap.Int64("daily_limit_cents", lim.DailyLimitCents),
		zap.Int64("weekly_limit_cents", lim.WeeklyLimitCents),
		zap.Int64("monthly_limit_cents", lim.MonthlyLimitCents),
	)
	writeJSON(w, http.StatusOK, lim)
}

// reportSettlement registra a liquidação reportada pelo settlement-worker
func (s *Server) reportSettlement(w http.ResponseWriter, r *http.Request) {
	var req dto.SettlementReport
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	if req.EventID == "" || !validSide(req.Winner) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	s.exposure.RecordSettlement(analytics.Settlement{
		EventID:     req.EventID,
		Winner:      req.Winner,
		PayoutCents: req.TotalPayoutCents,
		Ts:          time.Now(),
	})

	if _, err := s.audit.InsertSettlement(r.Context(), &repo.SettlementRecord{
		EventID:     req.EventID,
		Winner:      req.Winner,
		PayoutCents: req.TotalPayoutCents,
	}); err != nil {
		s.log.Warn("settlement audit insert failed", zap.Error(err))
	}

	w.WriteHeader(http.StatusNoContent)
}
