package authkeep

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newMetricsEngine(t *testing.T) (*Engine, func()) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	engine, err := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithUserProvider(newMockUserProvider()).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return engine, func() {
		engine.Close()
		mr.Close()
	}
}

func TestMetricsCountEngineOutcomes(t *testing.T) {
	engine, done := newMetricsEngine(t)
	defer done()

	res := registerUser(t, engine, "alice@example.com", "correct-horse")

	if _, err := engine.Login(context.Background(), "alice@example.com", "wrong-password"); err == nil {
		t.Fatal("expected login failure")
	}
	if _, err := engine.Login(context.Background(), "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := engine.Refresh(context.Background(), res.Tokens.RefreshToken); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if _, err := engine.Refresh(context.Background(), res.Tokens.RefreshToken); err == nil {
		t.Fatal("expected reuse to fail")
	}
	if _, err := engine.Authenticate(context.Background(), res.Tokens.AccessToken); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	snap := engine.MetricsSnapshot()
	expect := map[MetricID]uint64{
		MetricRegisterSuccess:      1,
		MetricLoginSuccess:         1,
		MetricLoginFailure:         1,
		MetricRefreshSuccess:       1,
		MetricRefreshFailure:       1,
		MetricRefreshReuseDetected: 1,
		MetricAuthenticateSuccess:  1,
		MetricSessionCreated:       2,
	}
	for id, want := range expect {
		if got := snap.Counters[id]; got != want {
			t.Fatalf("counter %d: expected %d, got %d", id, want, got)
		}
	}
}

func TestMetricsEvictionCounter(t *testing.T) {
	engine, done := newMetricsEngine(t)
	defer done()

	registerUser(t, engine, "alice@example.com", "correct-horse")
	for i := 0; i < 5; i++ {
		if _, err := engine.Login(context.Background(), "alice@example.com", "correct-horse"); err != nil {
			t.Fatalf("login %d failed: %v", i, err)
		}
	}

	snap := engine.MetricsSnapshot()
	if got := snap.Counters[MetricSessionEvicted]; got != 1 {
		t.Fatalf("expected 1 eviction at cap 5 with 6 sessions, got %d", got)
	}
}

func TestMetricsLatencyHistogram(t *testing.T) {
	engine, done := newMetricsEngine(t)
	defer done()

	res := registerUser(t, engine, "alice@example.com", "correct-horse")
	for i := 0; i < 10; i++ {
		if _, err := engine.Authenticate(context.Background(), res.Tokens.AccessToken); err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
	}

	snap := engine.MetricsSnapshot()
	buckets := snap.Histograms[MetricAuthenticateLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}

	var total uint64
	for _, b := range buckets {
		total += b
	}
	if total != 10 {
		t.Fatalf("expected 10 samples, got %d", total)
	}
}

func TestMetricsDisabledSnapshotIsEmpty(t *testing.T) {
	engine, _, done := newTestEngine(t, testConfig(), newMockUserProvider())
	defer done()

	registerUser(t, engine, "alice@example.com", "correct-horse")

	snap := engine.MetricsSnapshot()
	for id, v := range snap.Counters {
		if v != 0 {
			t.Fatalf("expected zero counters with metrics disabled, counter %d = %d", id, v)
		}
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 8
	const perGoroutine = 1000

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				m.Inc(MetricLoginSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricLoginSuccess); got != goroutines*perGoroutine {
		t.Fatalf("expected %d, got %d", goroutines*perGoroutine, got)
	}
}

func TestBucketIndex(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want int
	}{
		{time.Millisecond, 0},
		{7 * time.Millisecond, 1},
		{20 * time.Millisecond, 2},
		{40 * time.Millisecond, 3},
		{80 * time.Millisecond, 4},
		{200 * time.Millisecond, 5},
		{400 * time.Millisecond, 6},
		{time.Second, 7},
	}
	for _, c := range cases {
		if got := bucketIndex(c.d); got != c.want {
			t.Fatalf("bucketIndex(%v): expected %d, got %d", c.d, c.want, got)
		}
	}
}
