// Package profile implements named environment overlays with optional
// single-parent inheritance, persisted as one JSON document.
package profile

import "time"

// Var is one profile entry. OverrideSystem is informational metadata;
// applying an enabled entry always performs a persistent set.
type Var struct {
	Value          string `json:"value"`
	Enabled        bool   `json:"enabled"`
	OverrideSystem bool   `json:"override_system"`
}

// Profile is a named overlay of environment variables.
type Profile struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Variables   map[string]Var    `json:"variables"`
	Parent      string            `json:"parent,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// New creates an empty profile.
func New(name, description string) *Profile {
	now := time.Now()
	return &Profile{
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
		Variables:   make(map[string]Var),
	}
}

// AddVar adds or replaces an enabled entry and bumps UpdatedAt.
func (p *Profile) AddVar(name, value string) {
	if p.Variables == nil {
		p.Variables = make(map[string]Var)
	}
	p.Variables[name] = Var{Value: value, Enabled: true}
	p.UpdatedAt = time.Now()
}

// RemoveVar removes an entry, reporting whether it existed. UpdatedAt
// is bumped only on an actual removal.
func (p *Profile) RemoveVar(name string) bool {
	if _, ok := p.Variables[name]; !ok {
		return false
	}
	delete(p.Variables, name)
	p.UpdatedAt = time.Now()
	return true
}

// ActiveVars returns the enabled entries as a plain name→value map.
func (p *Profile) ActiveVars() map[string]string {
	out := make(map[string]string, len(p.Variables))
	for name, v := range p.Variables {
		if v.Enabled {
			out[name] = v.Value
		}
	}
	return out
}
