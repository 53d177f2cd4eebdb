package bestserver

import (
	"fmt"
	"time"
)

// LatencyConfig tunes the latency-ranking algorithm: how often it re-evaluates which server is
// "best", how it rehabilitates servers that have failed, and how much weight a fresh sample carries
// against the running average.
type LatencyConfig struct {
	ReassessAfter     time.Duration // Force a reassessment once this much time has passed
	ReassessCount     int           // Force a reassessment after this many Result() calls
	ResetFailedAfter  time.Duration // Clear a server's failure state after this long
	SampleOthersEvery int           // Offer a non-best server once every SampleOthersEvery calls
	WeightForLatest   int           // Percent weight given to the newest sample (0-100)
}

// DefaultLatencyConfig is applied field-by-field wherever a caller-supplied LatencyConfig leaves a
// field at its zero value.
var DefaultLatencyConfig = LatencyConfig{
	ReassessCount:     1061,
	ReassessAfter:     time.Second * 61,
	WeightForLatest:   67,
	ResetFailedAfter:  time.Minute * 3,
	SampleOthersEvery: 20,
}

// selectionReason records why reassessment landed on a particular server; tests assert on it to
// pin down which branch of pickNewBest fired.
type selectionReason int

const (
	reasonNone             selectionReason = iota
	reasonSoleServer                       // Only one server is configured
	reasonNextCandidate                    // First server in list order with no disqualifying failure
	reasonSecondCandidate                  // A later server with real latency data replaced an unproven candidate
	reasonLowestLatency                    // A server beat the candidate's weighted average
	reasonAllDegraded                      // Every server looked bad; just advance to the next one
)

// serverHealth is the rolling health record latencyManager keeps per server.
type serverHealth struct {
	lastStatusTime       time.Time
	lastStatusWasFailure bool
	weightedAverage      time.Duration
}

// latencyManager implements Manager by tracking a weighted-average latency per server and
// periodically sampling servers other than the incumbent so their latency doesn't go stale.
type latencyManager struct {
	LatencyConfig
	baseManager

	health []serverHealth

	samplesSinceReassess int             // Result() calls since the last reassessment
	sampleStride         int             // Counts up to SampleOthersEvery
	sampleCursor         int             // Round-robins across servers while sampling
	committedBest        int             // bestIndex as of the last reassessment, ignoring samples
	reassessAt           time.Time       // Next time a reassessment is forced regardless of count
	lastReason           selectionReason // Why committedBest was last chosen
}

// NewLatency builds a Manager that ranks servers by weighted-average latency, applying
// DefaultLatencyConfig to any zero-valued field of config.
func NewLatency(config LatencyConfig, servers []Server) (*latencyManager, error) {
	m := &latencyManager{}
	if err := m.baseManager.init(LatencyAlgorithm, servers); err != nil {
		return nil, err
	}

	m.LatencyConfig = config

	if m.ReassessAfter < 0 {
		return nil, fmt.Errorf("ReassessAfter is  negative: %d", m.ReassessAfter)
	}
	if m.ReassessCount < 0 {
		return nil, fmt.Errorf("ReassessCount is negative: %d", m.ReassessCount)
	}
	if m.WeightForLatest < 0 || m.WeightForLatest > 100 {
		return nil, fmt.Errorf("WeightForLatest is not in range 0-100: %d", m.WeightForLatest)
	}
	if m.ResetFailedAfter < 0 {
		return nil, fmt.Errorf("ResetFailedAfter is negative: %d", m.ResetFailedAfter)
	}
	if m.SampleOthersEvery < 0 {
		return nil, fmt.Errorf("SampleOthersEvery is negative: %d", m.SampleOthersEvery)
	}

	if m.ReassessAfter == 0 {
		m.ReassessAfter = DefaultLatencyConfig.ReassessAfter
	}
	if m.ReassessCount == 0 {
		m.ReassessCount = DefaultLatencyConfig.ReassessCount
	}
	if m.WeightForLatest == 0 {
		m.WeightForLatest = DefaultLatencyConfig.WeightForLatest
	}
	if m.ResetFailedAfter == 0 {
		m.ResetFailedAfter = DefaultLatencyConfig.ResetFailedAfter
	}
	if m.SampleOthersEvery == 0 {
		m.SampleOthersEvery = DefaultLatencyConfig.SampleOthersEvery
	}

	m.health = make([]serverHealth, m.serverCount)

	return m, nil
}

// Result folds one outcome into server's weighted-average latency and, if server is the current
// best, decides whether it's time to reassess.
func (m *latencyManager) Result(server Server, success bool, now time.Time, latency time.Duration) bool {
	m.lock()
	defer m.unlock()

	ix, found := m.serverToIndex[server]
	if !found {
		return false
	}

	h := &m.health[ix]
	h.lastStatusWasFailure = !success
	h.lastStatusTime = now
	if success { // A failed call may just be a timeout, so only successes update latency
		if h.weightedAverage == 0 {
			h.weightedAverage = latency
		} else {
			current := latency * time.Duration(m.WeightForLatest)
			historic := h.weightedAverage * time.Duration(100-m.WeightForLatest)
			h.weightedAverage = (current + historic) / 100
		}
	}

	m.recordAndMaybeReassess(now, ix, success)

	return true
}

// recordAndMaybeReassess updates the counters that drive reassessment and sampling. A reassessment
// only triggers off reports about the current best server - a report about some other server means
// the caller is working from a stale Best() result.
//
// Independently of reassessment, this periodically swaps the reported best for one of the other
// servers so their latency gets sampled over time. The swap is best-effort: whether a given caller
// actually observes the sample server depends on the interleaving of Best() and Result() calls, but
// over many calls the intended sample rate is still achieved.
func (m *latencyManager) recordAndMaybeReassess(now time.Time, ix int, success bool) {
	m.samplesSinceReassess++
	if ix == m.bestIndex {
		if !success || m.samplesSinceReassess >= m.ReassessCount || now.After(m.reassessAt) {
			m.pickNewBest(now)
			m.committedBest = m.bestIndex
			m.samplesSinceReassess = 0
		}
	}

	m.sampleStride++
	if m.sampleStride < m.SampleOthersEvery {
		m.bestIndex = m.committedBest // Not sampling this round, so report the real best

		return
	}

	m.sampleCursor = (m.sampleCursor + 1) % m.serverCount
	if !m.health[m.sampleCursor].lastStatusWasFailure {
		m.bestIndex = m.sampleCursor
		m.sampleStride = 0 // Only reset once a usable sample is offered
	}
}

// pickNewBest scans every server for the lowest weighted-average latency, rehabilitating any server
// that has been marked failed for longer than ResetFailedAfter along the way.
func (m *latencyManager) pickNewBest(now time.Time) {
	m.lastReason = reasonNone
	if m.serverCount == 1 {
		m.lastReason = reasonSoleServer

		return
	}

	candidate := -1
	for ix := 0; ix < m.serverCount; ix++ {
		h := &m.health[ix]
		switch {
		case h.lastStatusWasFailure:
			if h.lastStatusTime.Add(m.ResetFailedAfter).Before(now) {
				*h = serverHealth{}
			}

		case candidate == -1:
			m.lastReason = reasonNextCandidate
			candidate = ix
			h = &m.health[candidate]

		case h.weightedAverage == 0: // No latency data yet, ignore

		case m.health[candidate].weightedAverage == 0:
			m.lastReason = reasonSecondCandidate
			candidate = ix
			h = &m.health[candidate]

		case h.weightedAverage < m.health[candidate].weightedAverage:
			m.lastReason = reasonLowestLatency
			candidate = ix
			h = &m.health[candidate]
		}
	}

	if candidate == -1 { // Nobody looked good, just cycle to the next server
		candidate = (m.bestIndex + 1) % m.serverCount
		m.lastReason = reasonAllDegraded
	}

	m.bestIndex = candidate
	m.reassessAt = now.Add(m.ReassessAfter)
}
