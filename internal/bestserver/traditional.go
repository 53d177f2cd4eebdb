package bestserver

import (
	"time"
)

// TraditionalConfig holds the tunables for the linear-failover algorithm. It has no fields today,
// but exists so a future knob doesn't require an API-breaking signature change.
type TraditionalConfig struct {
}

// roundRobinManager implements Manager the way res_send(3) picks a resolver: stick with the current
// server until it reports a failure, then move to the next one in the list, wrapping at the end.
type roundRobinManager struct {
	TraditionalConfig
	baseManager
}

// NewTraditional builds a Manager that fails over linearly through servers on each reported failure.
func NewTraditional(config TraditionalConfig, servers []Server) (*roundRobinManager, error) {
	m := &roundRobinManager{TraditionalConfig: config}
	if err := m.baseManager.init(TraditionalAlgorithm, servers); err != nil {
		return nil, err
	}

	return m, nil
}

// Result advances to the next server, wrapping around, only when the current best is reported as
// failed. Reports about a non-best server, or successful reports, never move the cursor.
func (m *roundRobinManager) Result(server Server, success bool, now time.Time, latency time.Duration) bool {
	m.lock()
	defer m.unlock()

	ix, found := m.serverToIndex[server]
	if !found {
		return false
	}

	if success {
		return true
	}

	if ix == m.bestIndex {
		m.bestIndex = (m.bestIndex + 1) % m.serverCount
	}

	return true
}
