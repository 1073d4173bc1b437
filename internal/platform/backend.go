// Package platform abstracts the OS-specific persistent environment store.
//
// On Windows the backend reads and writes the user and machine registry
// hives. On Unix families there is no portable persistent store, so the
// backend only prints shell-syntax suggestions; mutation stays at the
// process level.
package platform

// Scope selects the persistence target for a write.
type Scope int

const (
	ScopeUser Scope = iota
	ScopeSystem
)

func (s Scope) String() string {
	if s == ScopeSystem {
		return "system"
	}
	return "user"
}

// Backend reads and writes the platform's persistent environment.
type Backend interface {
	// LoadSystem returns machine-scope persistent variables.
	LoadSystem() (map[string]string, error)
	// LoadUser returns user-scope persistent variables.
	LoadUser() (map[string]string, error)
	// SetPersistent writes a variable to the given scope.
	SetPersistent(name, value string, scope Scope) error
	// DeletePersistent removes a variable from the given scope.
	DeletePersistent(name string, scope Scope) error
}
