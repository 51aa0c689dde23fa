package coordinator

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/DrRago/YTSync-Plugin/internal/domain"
)

type binding struct {
	token  string
	cancel context.CancelFunc
}

// Registry tracks live connections so the controller can cancel one by
// socketId (backpressure kicks, shutdown).
type Registry struct {
	mu       sync.RWMutex
	bindings map[domain.SocketID]*binding
}

func NewRegistry() *Registry {
	return &Registry{bindings: make(map[domain.SocketID]*binding)}
}

func (r *Registry) Bind(sid domain.SocketID, token string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[sid] = &binding{token: token, cancel: cancel}
	log.Info().Str("module", "coordinator.registry").Str("sid", string(sid)).Str("token", token).Msg("bound connection")
}

func (r *Registry) Unbind(sid domain.SocketID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bindings, sid)
}

// Cancel tears down the connection's context. The read pump's cleanup path
// does the membership bookkeeping.
func (r *Registry) Cancel(sid domain.SocketID) bool {
	r.mu.RLock()
	b, ok := r.bindings[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if b.cancel != nil {
		b.cancel()
	}
	log.Info().Str("module", "coordinator.registry").Str("sid", string(sid)).Msg("canceled connection")
	return true
}
