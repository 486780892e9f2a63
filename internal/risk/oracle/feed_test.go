package oracle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestReturnsMostRecent(t *testing.T) {
	s := NewStore()

	_, ok, err := s.Latest(context.Background(), "MATCH_001")
	require.NoError(t, err)
	assert.False(t, ok)

	s.Publish(tradingSample("MATCH_001", 1, 1))
	s.Publish(tradingSample("MATCH_001", 2, 1))

	sample, ok, err := s.Latest(context.Background(), "MATCH_001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2.0, sample.Price)
}

// fallbackStub simula o cache Redis de amostras
type fallbackStub struct {
	sample Sample
	found  bool
	err    error
	calls  int
}

func (f *fallbackStub) Latest(ctx context.Context, eventID string) (Sample, bool, error) {
	f.calls++
	return f.sample, f.found, f.err
}

func TestLatestFallsBackOnMiss(t *testing.T) {
	fb := &fallbackStub{sample: tradingSample("MATCH_001", 3, 1), found: true}
	s := NewStore(WithFallback(fb, time.Second))

	sample, ok, err := s.Latest(context.Background(), "MATCH_001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3.0, sample.Price)
	assert.Equal(t, 1, fb.calls)

	// Hit local não consulta o fallback
	s.Publish(tradingSample("MATCH_001", 4, 1))
	_, _, err = s.Latest(context.Background(), "MATCH_001")
	require.NoError(t, err)
	assert.Equal(t, 1, fb.calls)
}

func TestLatestPropagatesFallbackError(t *testing.T) {
	fb := &fallbackStub{err: errors.New("redis down")}
	s := NewStore(WithFallback(fb, time.Second))

	_, ok, err := s.Latest(context.Background(), "MATCH_001")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestSubscribeDeliversNewSamples(t *testing.T) {
	s := NewStore()

	var mu sync.Mutex
	var got []float64
	cancel := s.Subscribe("MATCH_001", func(sample Sample) {
		mu.Lock()
		got = append(got, sample.Price)
		mu.Unlock()
	})
	defer cancel()

	s.Publish(tradingSample("MATCH_001", 1, 1))
	s.Publish(tradingSample("MATCH_002", 99, 1)) // outro evento, não entrega
	s.Publish(tradingSample("MATCH_001", 2, 1))

	assert.Equal(t, []float64{1, 2}, got)
}

func TestCancelStopsDelivery(t *testing.T) {
	s := NewStore()

	calls := 0
	cancel := s.Subscribe("MATCH_001", func(Sample) { calls++ })

	s.Publish(tradingSample("MATCH_001", 1, 1))
	cancel()
	s.Publish(tradingSample("MATCH_001", 2, 1))

	assert.Equal(t, 1, calls)
}

func TestCancelIsIdempotent(t *testing.T) {
	s := NewStore()

	cancel := s.Subscribe("MATCH_001", func(Sample) {})
	cancel()
	assert.NotPanics(t, func() {
		cancel()
		cancel()
	})
}

func TestCancelAfterFirstSampleFromGoroutine(t *testing.T) {
	s := NewStore()

	// Padrão assina-até-a-primeira: o callback dispara o cancel em outra
	// goroutine, como o doc do Subscribe pede
	var mu sync.Mutex
	calls := 0
	done := make(chan struct{})
	var cancel func()
	cancel = s.Subscribe("MATCH_001", func(Sample) {
		mu.Lock()
		calls++
		mu.Unlock()
		go func() {
			cancel()
			close(done)
		}()
	})

	s.Publish(tradingSample("MATCH_001", 1, 1))
	<-done
	s.Publish(tradingSample("MATCH_001", 2, 1))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestMultipleSubscribersAreIndependent(t *testing.T) {
	s := NewStore()

	a, b := 0, 0
	cancelA := s.Subscribe("MATCH_001", func(Sample) { a++ })
	cancelB := s.Subscribe("MATCH_001", func(Sample) { b++ })
	defer cancelB()

	s.Publish(tradingSample("MATCH_001", 1, 1))
	cancelA()
	s.Publish(tradingSample("MATCH_001", 2, 1))

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestConcurrentPublishAndCancel(t *testing.T) {
	s := NewStore()

	// Cancelamentos concorrentes com publicações não podem corromper o feed
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		cancel := s.Subscribe("MATCH_001", func(Sample) {})
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Publish(tradingSample("MATCH_001", 1, 1))
		}()
		go func() {
			defer wg.Done()
			cancel()
		}()
	}
	wg.Wait()

	sample, ok, err := s.Latest(context.Background(), "MATCH_001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1.0, sample.Price)
}
