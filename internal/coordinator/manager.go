package coordinator

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Manager hands out the Watch for a session token, creating it on first
// join and tearing it down when the last participant leaves.
type Manager struct {
	mu      sync.RWMutex
	watches map[string]*Watch
}

func NewManager() *Manager {
	return &Manager{watches: make(map[string]*Watch)}
}

func (m *Manager) GetOrCreate(token string) *Watch {
	m.mu.RLock()
	w, ok := m.watches[token]
	m.mu.RUnlock()
	if ok {
		return w
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok = m.watches[token]; !ok {
		w = NewWatch(token)
		m.watches[token] = w
		log.Info().Str("module", "coordinator.manager").Str("token", token).Msg("watch created")
	}
	return w
}

func (m *Manager) Get(token string) (*Watch, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.watches[token]
	return w, ok
}

// Reap drops the watch if it has no members left.
func (m *Manager) Reap(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.watches[token]; ok && w.MemberCount() == 0 {
		delete(m.watches, token)
		log.Info().Str("module", "coordinator.manager").Str("token", token).Msg("watch reaped")
	}
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.watches)
}
