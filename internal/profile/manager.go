package profile

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mikeleppane/envx-sub000/internal/apperr"
	"github.com/mikeleppane/envx-sub000/internal/storage"
)

const profilesFile = "profiles.json"

// Setter is the subset of the variable store Apply writes through.
type Setter interface {
	Set(name, value string, persistent bool) error
}

// document is the persisted shape of the profile store.
type document struct {
	Active   string              `json:"active,omitempty"`
	Profiles map[string]*Profile `json:"profiles"`
}

// Manager owns the profiles.json document.
type Manager struct {
	dir *storage.Dir
	doc document
}

// NewManager loads the profile document from dir, starting empty when
// the file does not exist yet.
func NewManager(dir *storage.Dir) (*Manager, error) {
	m := &Manager{
		dir: dir,
		doc: document{Profiles: make(map[string]*Profile)},
	}
	if !dir.Exists(profilesFile) {
		return m, nil
	}
	data, err := dir.Read(profilesFile)
	if err != nil {
		return nil, fmt.Errorf("profile: load: %w", err)
	}
	if err := json.Unmarshal(data, &m.doc); err != nil {
		return nil, fmt.Errorf("%w: profiles.json: %v", apperr.ErrParse, err)
	}
	if m.doc.Profiles == nil {
		m.doc.Profiles = make(map[string]*Profile)
	}
	return m, nil
}

func (m *Manager) save() error {
	data, err := json.MarshalIndent(m.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("profile: encode: %w", err)
	}
	if err := m.dir.Write(profilesFile, data); err != nil {
		return fmt.Errorf("profile: save: %w", err)
	}
	return nil
}

// Create adds a new empty profile. The name must be unused.
func (m *Manager) Create(name, description string) (*Profile, error) {
	if _, exists := m.doc.Profiles[name]; exists {
		return nil, fmt.Errorf("%w: profile %q", apperr.ErrAlreadyExists, name)
	}
	p := New(name, description)
	m.doc.Profiles[name] = p
	if err := m.save(); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns a profile by name.
func (m *Manager) Get(name string) (*Profile, bool) {
	p, ok := m.doc.Profiles[name]
	return p, ok
}

// List returns all profiles sorted by name.
func (m *Manager) List() []*Profile {
	out := make([]*Profile, 0, len(m.doc.Profiles))
	for _, p := range m.doc.Profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Active returns the name of the active profile, empty when none.
func (m *Manager) Active() string {
	return m.doc.Active
}

// Delete removes a profile. The active pointer is cleared when it
// pointed at the removed profile.
func (m *Manager) Delete(name string) error {
	if _, ok := m.doc.Profiles[name]; !ok {
		return fmt.Errorf("%w: profile %q", apperr.ErrNotFound, name)
	}
	delete(m.doc.Profiles, name)
	if m.doc.Active == name {
		m.doc.Active = ""
	}
	return m.save()
}

// Switch marks a profile as active.
func (m *Manager) Switch(name string) error {
	if _, ok := m.doc.Profiles[name]; !ok {
		return fmt.Errorf("%w: profile %q", apperr.ErrNotFound, name)
	}
	m.doc.Active = name
	return m.save()
}

// Apply writes a profile's enabled entries through the store,
// ancestors first so the profile itself overrides collisions. A cycle
// anywhere along the parent chain fails before any write.
func (m *Manager) Apply(name string, store Setter) error {
	chain, err := m.parentChain(name)
	if err != nil {
		return err
	}
	for _, p := range chain {
		for varName, v := range p.Variables {
			if !v.Enabled {
				continue
			}
			if err := store.Set(varName, v.Value, true); err != nil {
				return fmt.Errorf("profile: apply %s: %w", p.Name, err)
			}
		}
	}
	return nil
}

// parentChain returns the profiles to apply, root ancestor first.
func (m *Manager) parentChain(name string) ([]*Profile, error) {
	visited := make(map[string]bool)
	var chain []*Profile
	for current := name; current != ""; {
		if visited[current] {
			return nil, fmt.Errorf("%w: via %q", apperr.ErrCyclicProfile, current)
		}
		visited[current] = true
		p, ok := m.doc.Profiles[current]
		if !ok {
			return nil, fmt.Errorf("%w: profile %q", apperr.ErrNotFound, current)
		}
		chain = append([]*Profile{p}, chain...)
		current = p.Parent
	}
	return chain, nil
}

// Export returns one profile as pretty-printed JSON.
func (m *Manager) Export(name string) ([]byte, error) {
	p, ok := m.doc.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: profile %q", apperr.ErrNotFound, name)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("profile: export: %w", err)
	}
	return data, nil
}

// Import installs a profile from exported JSON under the supplied name,
// overriding the document's own name field. An empty name keeps the
// document's name. Existing names are rejected unless overwrite is set.
func (m *Manager) Import(name string, data []byte, overwrite bool) error {
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("%w: profile import: %v", apperr.ErrParse, err)
	}
	if name == "" {
		name = p.Name
	}
	if name == "" {
		return fmt.Errorf("%w: imported profile has no name", apperr.ErrValidation)
	}
	if _, exists := m.doc.Profiles[name]; exists && !overwrite {
		return fmt.Errorf("%w: profile %q", apperr.ErrAlreadyExists, name)
	}
	p.Name = name
	if p.Variables == nil {
		p.Variables = make(map[string]Var)
	}
	m.doc.Profiles[name] = &p
	return m.save()
}

// Save persists in-place edits made through Get.
func (m *Manager) Save() error {
	return m.save()
}
