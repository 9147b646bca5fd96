package session

import "sync"

// Registry maps identities to sessions. It is the single in-process
// authority on whether a connect attempt is needed: concurrent callers
// asking for the same identity converge on the same *Session instead of
// racing to create duplicates.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the session for id, creating a Disconnected one if
// none exists yet.
func (r *Registry) GetOrCreate(id Identity, controlDir string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := id.Key()
	if sess, ok := r.sessions[key]; ok {
		return sess
	}

	sess := &Session{
		Identity:    id,
		ControlPath: id.ControlPath(controlDir),
		State:       Disconnected,
	}
	r.sessions[key] = sess
	return sess
}

// Get returns the session for id, or nil.
func (r *Registry) Get(id Identity) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id.Key()]
}

// Remove drops the session for id from the registry.
func (r *Registry) Remove(id Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id.Key())
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
