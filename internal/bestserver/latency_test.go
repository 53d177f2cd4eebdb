package bestserver

import (
	"strings"
	"testing"
	"time"
)

var (
	svrA = &defaultServer{name: "a"}
	svrB = &defaultServer{name: "b"}
	svrC = &defaultServer{name: "c"}
	svrD = &defaultServer{name: "d"}
)

func TestLatencyConstruction(t *testing.T) {
	m, err := NewLatency(LatencyConfig{ReassessCount: 5, ResetFailedAfter: time.Second * 5},
		[]Server{svrA, svrB, svrC})
	if err != nil {
		t.Fatal("unexpected error constructing latency manager:", err)
	}
	if best, _ := m.Best(); best == nil {
		t.Error("Best() returned nil with a non-empty server list")
	}

	if _, err := NewLatency(LatencyConfig{}, []Server{}); err == nil {
		t.Error("expected an error constructing with zero servers")
	} else if !strings.Contains(err.Error(), "No server") {
		t.Error("expected a 'no servers' error, got", err)
	}
}

func TestLatencyConstructionRejectsBadConfig(t *testing.T) {
	cases := []struct {
		cfg       LatencyConfig
		errorText string
	}{
		{LatencyConfig{ReassessCount: -1}, "ReassessCount"},
		{LatencyConfig{ReassessAfter: -1}, "ReassessAfter"},
		{LatencyConfig{WeightForLatest: -1}, "WeightForLatest"},
		{LatencyConfig{ResetFailedAfter: -1}, "ResetFailedAfter"},
		{LatencyConfig{SampleOthersEvery: -1}, "SampleOthersEvery"},
	}
	for _, tc := range cases {
		m, err := NewLatency(tc.cfg, ServersFromNames([]string{"solo"}))
		if m != nil {
			t.Errorf("%+v: expected construction to fail", tc.cfg)
		}
		if err == nil {
			t.Errorf("%+v: expected an error", tc.cfg)

			continue
		}
		if !strings.Contains(err.Error(), tc.errorText) {
			t.Errorf("%+v: expected %q in error, got %v", tc.cfg, tc.errorText, err)
		}
	}
}

func TestLatencyConstructionKeepsOverrides(t *testing.T) {
	m, err := NewLatency(LatencyConfig{
		ReassessCount:    4,
		ReassessAfter:    time.Second * 2,
		WeightForLatest:  3,
		ResetFailedAfter: time.Second * 5,
	}, []Server{svrA})
	if err != nil {
		t.Fatal("unexpected error constructing latency manager:", err)
	}
	if m.ReassessCount != 4 || m.ReassessAfter != time.Second*2 ||
		m.WeightForLatest != 3 || m.ResetFailedAfter != time.Second*5 {
		t.Error("a non-zero config field was overwritten by a default:", m.LatencyConfig)
	}
}

func TestLatencyResultRejectsUnknownServer(t *testing.T) {
	m, err := NewLatency(LatencyConfig{}, []Server{svrA, svrB, svrC})
	if err != nil {
		t.Fatal("unexpected error constructing latency manager:", err)
	}
	for ix, s := range []Server{svrA, svrB, svrC} {
		if !m.Result(s, false, time.Now(), 0) {
			t.Error("Result() did not recognize configured server #", ix)
		}
	}
	if m.Result(svrD, false, time.Now(), 0) {
		t.Error("Result() accepted a server that was never configured")
	}
}

func TestLatencySoleServerShortCircuits(t *testing.T) {
	m, err := NewLatency(LatencyConfig{}, []Server{svrA})
	if err != nil {
		t.Fatal("unexpected error constructing latency manager:", err)
	}
	for ix := 0; ix < DefaultLatencyConfig.ReassessCount+2; ix++ {
		best, _ := m.Best()
		m.Result(best, true, time.Now(), 0)
	}
	if m.lastReason != reasonSoleServer {
		t.Error("expected reasonSoleServer, got", m.lastReason)
	}
}

func TestLatencyTwoServersPicksNextCandidate(t *testing.T) {
	m, err := NewLatency(LatencyConfig{}, []Server{svrA, svrB})
	if err != nil {
		t.Fatal("unexpected error constructing latency manager:", err)
	}
	for ix := 0; ix < DefaultLatencyConfig.ReassessCount+2; ix++ {
		best, _ := m.Best()
		m.Result(best, true, time.Now(), 0)
	}
	if m.lastReason != reasonNextCandidate {
		t.Error("expected reasonNextCandidate, got", m.lastReason)
	}
}

// TestLatencySamplesEveryServer checks that over enough calls, every configured server gets offered
// as Best() at least once so its latency can be measured - with SampleOthersEvery at its default of
// 20, 100 calls yield about five samples in all, which the round-robin sample cursor spreads across
// the four servers.
func TestLatencySamplesEveryServer(t *testing.T) {
	m, err := NewLatency(LatencyConfig{}, []Server{svrA, svrB, svrC, svrD})
	if err != nil {
		t.Fatal("unexpected error constructing latency manager:", err)
	}

	var now time.Time
	seen := map[Server]int{svrA: 0, svrB: 0, svrC: 0, svrD: 0}
	for ix := 0; ix <= 100; ix++ {
		s, _ := m.Best()
		seen[s]++
		m.Result(s, true, now, time.Millisecond)
	}

	for s, count := range seen {
		if count < 1 {
			t.Error("server", s, "was never offered as a sample")
		}
	}
}

func TestLatencyReassessesAfterCount(t *testing.T) {
	m, err := NewLatency(LatencyConfig{ReassessCount: 5}, []Server{svrA, svrB, svrC})
	if err != nil {
		t.Fatal("unexpected error constructing latency manager:", err)
	}

	var now time.Time
	reassessed := false
	for ix := 0; ix < 6; ix++ {
		best, _ := m.Best()
		m.Result(best, true, now, time.Millisecond)
		if m.samplesSinceReassess == 0 {
			reassessed = true
		}
	}
	if !reassessed {
		t.Error("Result() never triggered a reassessment within ReassessCount calls")
	}
}

func TestLatencyReassessesAfterDuration(t *testing.T) {
	m, err := NewLatency(LatencyConfig{ReassessAfter: time.Second}, []Server{svrA, svrB, svrC})
	if err != nil {
		t.Fatal("unexpected error constructing latency manager:", err)
	}

	var now time.Time
	reassessed := false
	for ix := 0; ix < 6; ix++ {
		now = now.Add(time.Second)
		best, _ := m.Best()
		m.Result(best, true, now, time.Millisecond)
		if m.samplesSinceReassess == 0 {
			reassessed = true
		}
	}
	if !reassessed {
		t.Error("Result() never triggered a reassessment within ReassessAfter")
	}
}

// TestLatencyFailureCyclesThroughServers checks that repeatedly failing the current best walks
// through every configured server, then cycles forever once all of them are marked failed.
func TestLatencyFailureCyclesThroughServers(t *testing.T) {
	m, err := NewLatency(LatencyConfig{}, []Server{svrA, svrB, svrC})
	if err != nil {
		t.Fatal("unexpected error constructing latency manager:", err)
	}
	now := time.Unix(1, 0)

	s, _ := m.Best()
	m.Result(s, false, now, 0)
	if s, _ = m.Best(); s != svrB {
		t.Error("expected svrB to become best after svrA failed, got", s)
	}
	m.Result(s, false, now, 0)
	if s, _ = m.Best(); s != svrC {
		t.Error("expected svrC to become best after svrB failed, got", s)
	}
	m.Result(s, false, now, 0)
	if s, _ = m.Best(); s != svrA {
		t.Error("expected to wrap back to svrA once all servers failed, got", s)
	}

	for ix := 0; ix < 20; ix++ {
		m.Result(s, false, now, 0)
		next, _ := m.Best()
		if next == s {
			t.Fatal("all-failed servers should still cycle on every call, stuck on", s)
		}
		s = next
	}
}

func TestLatencyFirstFailureAdvancesToSecond(t *testing.T) {
	m, err := NewLatency(LatencyConfig{}, []Server{svrA, svrB, svrC, svrD})
	if err != nil {
		t.Fatal("unexpected error constructing latency manager:", err)
	}

	best, _ := m.Best()
	m.Result(best, false, time.Now(), 0)
	if s, _ := m.Best(); s != svrB {
		t.Error("expected svrB after svrA's failure, got", s)
	}
}

func TestLatencyPrefersLowestLatency(t *testing.T) {
	m, err := NewLatency(LatencyConfig{}, []Server{svrA, svrB, svrC, svrD})
	if err != nil {
		t.Fatal("unexpected error constructing latency manager:", err)
	}
	now := time.Unix(1, 0)
	m.Result(svrA, true, now, time.Millisecond*20)
	m.Result(svrB, true, now, time.Millisecond*90)
	m.Result(svrC, true, now, time.Millisecond*70)
	m.Result(svrD, true, now, time.Millisecond*80)
	m.Result(svrA, false, now, time.Millisecond*20) // Knock out svrA as best, forcing a reassessment

	if s, _ := m.Best(); s != svrC {
		t.Error("expected the fastest remaining server (svrC), got", s)
	}
}

func TestLatencyWeightedAverageConverges(t *testing.T) {
	m, err := NewLatency(LatencyConfig{}, []Server{svrA, svrB, svrC, svrD})
	if err != nil {
		t.Fatal("unexpected error constructing latency manager:", err)
	}

	now := time.Unix(1, 0)
	for ix := 50; ix < 100; ix++ {
		m.Result(svrB, true, now, time.Duration(ix))
	}

	ix := m.serverToIndex[svrB]
	avg := m.health[ix].weightedAverage
	if avg <= 50 || avg >= 100 {
		t.Error("expected the weighted average to settle between 50 and 100, got", avg)
	}
}

func TestLatencyHealthTracksReports(t *testing.T) {
	m, err := NewLatency(LatencyConfig{}, []Server{svrA, svrB, svrC})
	if err != nil {
		t.Fatal("unexpected error constructing latency manager:", err)
	}

	m.Result(svrA, true, time.Now(), time.Second)
	ix := m.serverToIndex[svrA]
	h := m.health[ix]
	if h.lastStatusTime.IsZero() || h.lastStatusWasFailure || h.weightedAverage == 0 {
		t.Error("expected a recorded time, success and average for svrA, got", h)
	}
}

func TestLatencyServersReturnsConfiguredList(t *testing.T) {
	m, err := NewLatency(LatencyConfig{}, []Server{svrA, svrB, svrC})
	if err != nil {
		t.Fatal("unexpected error constructing latency manager:", err)
	}

	servers := m.Servers()
	if len(servers) != 3 || servers[0] != svrA || servers[1] != svrB || servers[2] != svrC {
		t.Error("Servers() did not return the configured list in order:", servers)
	}
}

func TestLatencyImplementsManager(t *testing.T) {
	m, err := NewLatency(LatencyConfig{}, []Server{svrA, svrB, svrC})
	if err != nil {
		t.Fatal("unexpected error constructing latency manager:", err)
	}
	var iface Manager = m
	_ = iface
}

func TestLatencyRehabilitatesFailedServer(t *testing.T) {
	now := time.Now()
	m, err := NewLatency(LatencyConfig{}, []Server{svrA, svrB})
	if err != nil {
		t.Fatal("unexpected error constructing latency manager:", err)
	}

	best, _ := m.Best()
	if best != svrA {
		t.Fatal("expected svrA to start out as best, got", best)
	}
	m.Result(best, false, now, 0)
	if ix := m.serverToIndex[svrA]; !m.health[ix].lastStatusWasFailure {
		t.Fatal("expected svrA to be marked failed")
	}

	now = now.Add(m.ResetFailedAfter + time.Second)
	best, _ = m.Best()
	m.Result(best, false, now, 0) // Forces another reassessment, which should rehabilitate svrA
	if ix := m.serverToIndex[svrA]; m.health[ix].lastStatusWasFailure {
		t.Error("expected svrA's failure to be cleared after ResetFailedAfter elapsed")
	}
}

func TestLatencyPrefersProvenServerOverUnknown(t *testing.T) {
	now := time.Now()
	m, err := NewLatency(LatencyConfig{}, []Server{svrA, svrB, svrC})
	if err != nil {
		t.Fatal("unexpected error constructing latency manager:", err)
	}

	m.Result(svrC, true, now, time.Second) // svrC now has real latency data
	m.Result(svrA, false, now, 0)          // Forces a reassessment

	best, _ := m.Best()
	if best != svrC {
		t.Error("expected svrC (proven) to beat svrB (unproven), got", best)
	}
	if m.lastReason != reasonSecondCandidate {
		t.Error("expected reasonSecondCandidate, got", m.lastReason)
	}
}
