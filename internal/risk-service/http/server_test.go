package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/officialnyabuto/solsports/internal/risk"
	"github.com/officialnyabuto/solsports/internal/risk-service/dto"
	"github.com/officialnyabuto/solsports/internal/risk-service/repo"
	"github.com/officialnyabuto/solsports/internal/risk/analytics"
	"github.com/officialnyabuto/solsports/internal/risk/compliance"
	"github.com/officialnyabuto/solsports/internal/risk/oracle"
	"github.com/officialnyabuto/solsports/internal/risk/ratelimit"
	"github.com/officialnyabuto/solsports/pkg/contracts/events"
)

// fakeAudit guarda decisões e liquidações em memória
type fakeAudit struct {
	decisions   map[string]*repo.Decision
	settlements []*repo.SettlementRecord
	failInsert  bool
}

func newFakeAudit() *fakeAudit {
	return &fakeAudit{decisions: make(map[string]*repo.Decision)}
}

func (f *fakeAudit) InsertDecision(_ context.Context, d *repo.Decision) (string, error) {
	if f.failInsert {
		return "", errors.New("pg down")
	}
	id := fmt.Sprintf("dec-%d", len(f.decisions)+1)
	d.ID = id
	f.decisions[id] = d
	return id, nil
}

func (f *fakeAudit) GetDecision(_ context.Context, id string) (*repo.Decision, error) {
	d, ok := f.decisions[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return d, nil
}

func (f *fakeAudit) InsertSettlement(_ context.Context, s *repo.SettlementRecord) (string, error) {
	if f.failInsert {
		return "", errors.New("pg down")
	}
	f.settlements = append(f.settlements, s)
	return fmt.Sprintf("set-%d", len(f.settlements)), nil
}

// admittedSpy captura os eventos bet_admitted publicados
type admittedSpy struct {
	events []string
}

func (s *admittedSpy) PublishBetAdmitted(_ context.Context, e events.BetAdmitted) error {
	s.events = append(s.events, e.EventID)
	return nil
}

type testEnv struct {
	srv      *httptest.Server
	audit    *fakeAudit
	store    *oracle.Store
	exposure *analytics.Aggregator
	quotas   *compliance.Enforcer
	admitted *admittedSpy
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := oracle.NewStore()
	quotas := compliance.New(compliance.Limits{
		MaxSingleBetCents: 1_000_000,
		DailyLimitCents:   2_500_000,
		WeeklyLimitCents:  10_000_000,
		MonthlyLimitCents: 25_000_000,
	})
	exposure := analytics.New(zap.NewNop(), 100_000_000)
	engine := risk.NewEngine(
		zap.NewNop(),
		ratelimit.New(ratelimit.DefaultRules()),
		quotas,
		exposure,
		oracle.NewResolver(store, zap.NewNop()),
	)

	audit := newFakeAudit()
	spy := &admittedSpy{}
	s := NewServer(zap.NewNop(), engine, quotas, exposure, audit, spy, nil)

	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, audit: audit, store: store, exposure: exposure, quotas: quotas, admitted: spy}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	res, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return res
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	defer res.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v))
	return v
}

func validBet(actor string, amountCents int64) dto.PlaceBetRequest {
	return dto.PlaceBetRequest{
		ActorID:     actor,
		EventID:     "MATCH_001",
		Side:        "home",
		AmountCents: amountCents,
		OddValue:    2.0,
	}
}

func TestPlaceBetAccepted(t *testing.T) {
	env := newTestEnv(t)

	res := postJSON(t, env.srv.URL+"/v1/bets", validBet("actor-1", 10_000))
	require.Equal(t, http.StatusCreated, res.StatusCode)

	body := decode[dto.PlaceBetResponse](t, res)
	assert.Equal(t, "ACCEPTED", body.Status)
	assert.Equal(t, risk.ReasonAccepted, body.Reason)
	assert.NotEmpty(t, body.DecisionID)

	// Auditoria e publicação no tópico acompanham a aceitação
	assert.Len(t, env.audit.decisions, 1)
	assert.Equal(t, []string{"MATCH_001"}, env.admitted.events)
}

func TestPlaceBetInvalidPayload(t *testing.T) {
	env := newTestEnv(t)

	for _, req := range []dto.PlaceBetRequest{
		{},
		{ActorID: "a", EventID: "e", Side: "middle", AmountCents: 100, OddValue: 2},
		{ActorID: "a", EventID: "e", Side: "home", AmountCents: 0, OddValue: 2},
		{ActorID: "a", EventID: "e", Side: "home", AmountCents: 100, OddValue: 0},
	} {
		res := postJSON(t, env.srv.URL+"/v1/bets", req)
		res.Body.Close()
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	}
}

func TestPlaceBetRateLimitedReturns429(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 5; i++ {
		res := postJSON(t, env.srv.URL+"/v1/bets", validBet("actor-1", 1_000))
		res.Body.Close()
		require.Equal(t, http.StatusCreated, res.StatusCode)
	}

	res := postJSON(t, env.srv.URL+"/v1/bets", validBet("actor-1", 1_000))
	require.Equal(t, http.StatusTooManyRequests, res.StatusCode)

	body := decode[dto.PlaceBetResponse](t, res)
	assert.Equal(t, "REJECTED", body.Status)
	assert.Equal(t, risk.ReasonRateLimited, body.Reason)

	// Rejeitada não vai pro tópico, mas fica na auditoria
	assert.Len(t, env.admitted.events, 5)
	assert.Len(t, env.audit.decisions, 6)
}

func TestPlaceBetQuotaReturns422(t *testing.T) {
	env := newTestEnv(t)

	res := postJSON(t, env.srv.URL+"/v1/bets", validBet("actor-1", 1_000_001))
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)

	body := decode[dto.PlaceBetResponse](t, res)
	assert.Equal(t, risk.ReasonQuotaSingle, body.Reason)
}

func TestPlaceBetSurvivesAuditFailure(t *testing.T) {
	env := newTestEnv(t)
	env.audit.failInsert = true

	// Auditoria fora do ar não derruba a admissão
	res := postJSON(t, env.srv.URL+"/v1/bets", validBet("actor-1", 10_000))
	defer res.Body.Close()
	assert.Equal(t, http.StatusCreated, res.StatusCode)
}

func TestGetDecision(t *testing.T) {
	env := newTestEnv(t)

	res := postJSON(t, env.srv.URL+"/v1/bets", validBet("actor-1", 10_000))
	created := decode[dto.PlaceBetResponse](t, res)

	res2, err := http.Get(env.srv.URL + "/v1/decisions/" + created.DecisionID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res2.StatusCode)

	d := decode[dto.DecisionResponse](t, res2)
	assert.Equal(t, "actor-1", d.ActorID)
	assert.True(t, d.Accepted)

	res3, err := http.Get(env.srv.URL + "/v1/decisions/missing")
	require.NoError(t, err)
	res3.Body.Close()
	assert.Equal(t, http.StatusNotFound, res3.StatusCode)
}

func TestGetOutcome(t *testing.T) {
	env := newTestEnv(t)

	// Sem feed: 404 com motivo explícito
	res, err := http.Get(env.srv.URL + "/v1/events/MATCH_001/outcome")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	body := decode[map[string]string](t, res)
	assert.Equal(t, "no_feed", body["reason"])

	env.store.Publish(oracle.Sample{
		EventID:    "MATCH_001",
		Price:      5,
		Confidence: 2,
		Status:     oracle.StatusTrading,
	})

	res2, err := http.Get(env.srv.URL + "/v1/events/MATCH_001/outcome")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res2.StatusCode)

	out := decode[oracle.Outcome](t, res2)
	assert.Equal(t, oracle.WinnerHome, out.Winner)
	assert.Equal(t, 3, out.HomeScore)
	assert.Equal(t, 2, out.AwayScore)
}

func TestGetExposure(t *testing.T) {
	env := newTestEnv(t)

	res := postJSON(t, env.srv.URL+"/v1/bets", validBet("actor-1", 10_000))
	res.Body.Close()

	res2, err := http.Get(env.srv.URL + "/v1/events/MATCH_001/exposure")
	require.NoError(t, err)
	body := decode[dto.ExposureResponse](t, res2)
	assert.InDelta(t, 20_000, body.ExposureCents, 1e-9)
}

func TestComplianceReport(t *testing.T) {
	env := newTestEnv(t)

	res := postJSON(t, env.srv.URL+"/v1/bets", validBet("actor-1", 10_000))
	res.Body.Close()

	res2, err := http.Get(env.srv.URL + "/v1/compliance/actor-1")
	require.NoError(t, err)
	rep := decode[dto.ComplianceReportResponse](t, res2)
	assert.Equal(t, 1, rep.TotalBets)
	assert.Equal(t, int64(10_000), rep.DailyVolumeCents)
	assert.True(t, rep.IsCompliant)
}

func TestAnalyticsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	res := postJSON(t, env.srv.URL+"/v1/bets", validBet("actor-1", 10_000))
	res.Body.Close()
	res = postJSON(t, env.srv.URL+"/v1/bets", validBet("actor-2", 30_000))
	res.Body.Close()

	res2, err := http.Get(env.srv.URL + "/v1/analytics")
	require.NoError(t, err)
	snap := decode[dto.AnalyticsResponse](t, res2)
	assert.Equal(t, int64(2), snap.TotalBets)
	assert.InDelta(t, 20_000, snap.AvgBetSizeCents, 1e-9)
}

func TestUpdateLimits(t *testing.T) {
	env := newTestEnv(t)

	b, _ := json.Marshal(dto.UpdateLimitsRequest{DailyLimitCents: 5_000_000})
	req, _ := http.NewRequest(http.MethodPut, env.srv.URL+"/v1/admin/limits", bytes.NewReader(b))
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()

	lim := env.quotas.Limits()
	assert.Equal(t, int64(5_000_000), lim.DailyLimitCents)
	// Campos omitidos preservam o vigente
	assert.Equal(t, int64(1_000_000), lim.MaxSingleBetCents)
}

func TestReportSettlement(t *testing.T) {
	env := newTestEnv(t)

	res := postJSON(t, env.srv.URL+"/v1/settlements", dto.SettlementReport{
		EventID:          "MATCH_001",
		Winner:           "home",
		HomeScore:        3,
		AwayScore:        2,
		TotalPayoutCents: 25_000,
	})
	res.Body.Close()
	require.Equal(t, http.StatusNoContent, res.StatusCode)

	require.Len(t, env.audit.settlements, 1)
	assert.Equal(t, int64(25_000), env.audit.settlements[0].PayoutCents)

	res2, err := http.Get(env.srv.URL + "/v1/analytics")
	require.NoError(t, err)
	snap := decode[dto.AnalyticsResponse](t, res2)
	assert.Equal(t, int64(1), snap.SettlementsCount)
	assert.Equal(t, int64(25_000), snap.TotalPayoutCents)
}

func TestReportSettlementInvalid(t *testing.T) {
	env := newTestEnv(t)

	res := postJSON(t, env.srv.URL+"/v1/settlements", dto.SettlementReport{Winner: "home"})
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}
