package bestserver

import (
	"errors"
	"sync"
)

type algorithm string

const (
	LatencyAlgorithm     algorithm = "latency"     // Pick the fastest most reliable server
	TraditionalAlgorithm           = "traditional" // Pick until fails - just as res_send() does
)

// baseManager carries the bookkeeping common to every Manager implementation: the server list, the
// index of whichever one currently counts as "best", and the lock that guards both. Concrete
// algorithms embed baseManager and only need to write their own Result, relying on baseManager for
// Algorithm, Best, Servers and Len.
type baseManager struct {
	algType       algorithm    // Set by init
	mu            sync.RWMutex // Guards every field below, plus anything an embedder adds
	servers       []Server
	serverCount   int            // Cache of len(servers)
	serverToIndex map[Server]int // Converts Server back to array index
	bestIndex     int            // Index of current 'best' server
}

func (b *baseManager) lock() {
	b.mu.Lock()
}

func (b *baseManager) unlock() {
	b.mu.Unlock()
}

func (b *baseManager) rlock() {
	b.mu.RLock()
}

func (b *baseManager) runlock() {
	b.mu.RUnlock()
}

// init validates and records the server list; it's called once from each algorithm's constructor.
func (b *baseManager) init(algType algorithm, servers []Server) error {
	if len(servers) == 0 {
		return errors.New("bestserver:No servers in list")
	}
	b.algType = algType
	b.servers = servers
	b.serverCount = len(b.servers)

	b.serverToIndex = make(map[Server]int)
	for ix, s := range b.servers {
		if _, ok := b.serverToIndex[s]; ok {
			return errors.New("bestserver.New: Duplicate Server in list: " + s.Name())
		}
		b.serverToIndex[s] = ix
	}

	return nil
}

func (b *baseManager) Algorithm() string {
	return string(b.algType)
}

func (b *baseManager) Best() (Server, int) {
	b.rlock()
	defer b.runlock()

	return b.servers[b.bestIndex], b.bestIndex
}

func (b *baseManager) Servers() []Server {
	servers := make([]Server, len(b.servers))
	copy(servers, b.servers)

	return servers
}

func (b *baseManager) Len() int {
	return len(b.servers)
}

// defaultServer is the internal struct used to hold the server names provided to
// ServersFromNames().
type defaultServer struct {
	name string
}

// Name returns the name of the server returned by Best()
func (t *defaultServer) Name() string {
	return t.name
}

// ServersFromNames is a helper function to construct a Server list for a string list. The order of
// the returned list is the same as that of the supplied names.
func ServersFromNames(names []string) []Server {
	servers := make([]Server, 0, len(names))
	for _, n := range names {
		servers = append(servers, &defaultServer{name: n})
	}

	return servers
}
