package analytics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func bet(actor, event string, amountCents int64, odd float64) BetEvent {
	return BetEvent{
		ActorID:     actor,
		EventID:     event,
		AmountCents: amountCents,
		OddValue:    odd,
		Ts:          time.Now(),
	}
}

func TestExposurePerEvent(t *testing.T) {
	a := New(zap.NewNop(), 100_000_000)

	a.RecordBet(bet("actor-1", "MATCH_001", 10_000, 2.5))
	a.RecordBet(bet("actor-2", "MATCH_001", 20_000, 1.8))
	a.RecordBet(bet("actor-1", "MATCH_002", 5_000, 3.0))

	// Σ(amount×odd) por evento; eventos não se misturam
	assert.InDelta(t, 10_000*2.5+20_000*1.8, a.Exposure("MATCH_001"), 1e-9)
	assert.InDelta(t, 5_000*3.0, a.Exposure("MATCH_002"), 1e-9)
	assert.Zero(t, a.Exposure("MATCH_999"))
}

func TestHighExposureAlert(t *testing.T) {
	a := New(zap.NewNop(), 100_000)

	var mu sync.Mutex
	var alerts []string
	a.OnExposureAlert = func(eventID string, exposureCents float64) {
		mu.Lock()
		alerts = append(alerts, eventID)
		mu.Unlock()
	}

	// 50_000×1.5 = 75_000: abaixo do threshold, sem alerta
	a.RecordBet(bet("actor-1", "MATCH_001", 50_000, 1.5))
	assert.Empty(t, alerts)

	// +30_000×2.0 = 135_000: cruza o threshold
	a.RecordBet(bet("actor-2", "MATCH_001", 30_000, 2.0))
	assert.Equal(t, []string{"MATCH_001"}, alerts)

	// Segue alertando enquanto estiver acima — alerta, não trava
	a.RecordBet(bet("actor-1", "MATCH_001", 1_000, 1.1))
	assert.Len(t, alerts, 2)
}

func TestAnalyticsSnapshot(t *testing.T) {
	a := New(zap.NewNop(), 100_000_000)

	// Sem apostas: média zero, nunca divide por zero
	snap := a.Analytics()
	assert.Zero(t, snap.TotalBets)
	assert.Zero(t, snap.AvgBetSizeCents)

	a.RecordBet(bet("actor-1", "MATCH_001", 10_000, 2.0))
	a.RecordBet(bet("actor-2", "MATCH_001", 30_000, 1.5))

	snap = a.Analytics()
	assert.Equal(t, int64(2), snap.TotalBets)
	assert.Equal(t, int64(40_000), snap.TotalVolumeCents)
	assert.InDelta(t, 20_000, snap.AvgBetSizeCents, 1e-9)
}

func TestRecordSettlement(t *testing.T) {
	a := New(zap.NewNop(), 100_000_000)

	recorded := 0
	a.OnSettlementRecorded = func() { recorded++ }

	a.RecordSettlement(Settlement{EventID: "MATCH_001", Winner: "home", PayoutCents: 25_000, Ts: time.Now()})
	a.RecordSettlement(Settlement{EventID: "MATCH_002", Winner: "draw", PayoutCents: 0, Ts: time.Now()})

	snap := a.Analytics()
	assert.Equal(t, int64(2), snap.SettlementsCount)
	assert.Equal(t, int64(25_000), snap.TotalPayoutCents)
	assert.Equal(t, 2, recorded)
}

func TestActorProfile(t *testing.T) {
	a := New(zap.NewNop(), 100_000_000)

	a.RecordBet(bet("actor-1", "MATCH_001", 10_000, 2.0))
	a.RecordBet(bet("actor-1", "MATCH_002", 15_000, 1.5))

	p := a.Profile("actor-1")
	assert.Equal(t, int64(2), p.TotalBets)
	assert.Equal(t, int64(25_000), p.TotalVolumeCents)

	// Ator desconhecido: perfil zero
	assert.Zero(t, a.Profile("ghost"))
}

func TestEventBetsReturnsCopy(t *testing.T) {
	a := New(zap.NewNop(), 100_000_000)

	a.RecordBet(bet("actor-1", "MATCH_001", 10_000, 2.0))

	bets := a.EventBets("MATCH_001")
	assert.Len(t, bets, 1)

	// Mutar a cópia não afeta o razão interno
	bets[0].AmountCents = 999
	assert.Equal(t, int64(10_000), a.EventBets("MATCH_001")[0].AmountCents)

	assert.Nil(t, a.EventBets("MATCH_999"))
}

func TestConcurrentRecordBet(t *testing.T) {
	a := New(zap.NewNop(), 100_000_000)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.RecordBet(bet("actor-1", "MATCH_001", 1_000, 2.0))
		}()
	}
	wg.Wait()

	assert.InDelta(t, 100*1_000*2.0, a.Exposure("MATCH_001"), 1e-9)
	snap := a.Analytics()
	assert.Equal(t, int64(100), snap.TotalBets)
	assert.Equal(t, int64(100_000), snap.TotalVolumeCents)
}
