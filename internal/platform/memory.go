package platform

import "sync"

// Memory is an in-memory Backend used by tests and dry runs.
type Memory struct {
	mu     sync.Mutex
	system map[string]string
	user   map[string]string
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		system: make(map[string]string),
		user:   make(map[string]string),
	}
}

// Seed preloads a variable into the given scope.
func (m *Memory) Seed(name, value string, scope Scope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scopeMap(scope)[name] = value
}

func (m *Memory) LoadSystem() (map[string]string, error) {
	return m.snapshot(ScopeSystem), nil
}

func (m *Memory) LoadUser() (map[string]string, error) {
	return m.snapshot(ScopeUser), nil
}

func (m *Memory) SetPersistent(name, value string, scope Scope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scopeMap(scope)[name] = value
	return nil
}

func (m *Memory) DeletePersistent(name string, scope Scope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scopeMap(scope), name)
	return nil
}

// Get reads back a persisted value for assertions.
func (m *Memory) Get(name string, scope Scope) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.scopeMap(scope)[name]
	return v, ok
}

func (m *Memory) scopeMap(scope Scope) map[string]string {
	if scope == ScopeSystem {
		return m.system
	}
	return m.user
}

func (m *Memory) snapshot(scope Scope) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.scopeMap(scope)
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
