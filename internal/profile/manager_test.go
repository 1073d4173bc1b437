package profile

import (
	"errors"
	"testing"

	"github.com/mikeleppane/envx-sub000/internal/apperr"
	"github.com/mikeleppane/envx-sub000/internal/storage"
)

// fakeSetter records applied variables in order.
type fakeSetter struct {
	values map[string]string
	order  []string
}

func newFakeSetter() *fakeSetter {
	return &fakeSetter{values: make(map[string]string)}
}

func (f *fakeSetter) Set(name, value string, _ bool) error {
	f.values[name] = value
	f.order = append(f.order, name)
	return nil
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestCreateAndGet(t *testing.T) {
	m := newTestManager(t)
	p, err := m.Create("dev", "development settings")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "dev" || p.Description != "development settings" {
		t.Errorf("profile = %+v", p)
	}
	if _, ok := m.Get("dev"); !ok {
		t.Error("Get(dev) not found after create")
	}
}

func TestCreateDuplicateFails(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Create("dev", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Create("dev", ""); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("Create = %v, want ErrAlreadyExists", err)
	}
}

func TestDeleteClearsActivePointer(t *testing.T) {
	m := newTestManager(t)
	_, _ = m.Create("dev", "")
	if err := m.Switch("dev"); err != nil {
		t.Fatal(err)
	}
	if err := m.Delete("dev"); err != nil {
		t.Fatal(err)
	}
	if m.Active() != "" {
		t.Errorf("active = %q, want empty", m.Active())
	}
}

func TestSwitchMissingProfile(t *testing.T) {
	m := newTestManager(t)
	if err := m.Switch("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Switch = %v, want ErrNotFound", err)
	}
}

func TestApplyParentFirstChildOverrides(t *testing.T) {
	m := newTestManager(t)
	dev, _ := m.Create("dev", "")
	dev.AddVar("X", "v1")
	web, _ := m.Create("web", "")
	web.Parent = "dev"
	web.AddVar("Y", "v2")
	web.AddVar("X", "v3")
	if err := m.Save(); err != nil {
		t.Fatal(err)
	}

	s := newFakeSetter()
	if err := m.Apply("web", s); err != nil {
		t.Fatal(err)
	}
	if s.values["X"] != "v3" {
		t.Errorf("X = %q, want child override v3", s.values["X"])
	}
	if s.values["Y"] != "v2" {
		t.Errorf("Y = %q, want v2", s.values["Y"])
	}
}

func TestApplySkipsDisabledEntries(t *testing.T) {
	m := newTestManager(t)
	p, _ := m.Create("dev", "")
	p.AddVar("ON", "1")
	p.Variables["OFF"] = Var{Value: "0", Enabled: false}

	s := newFakeSetter()
	if err := m.Apply("dev", s); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.values["OFF"]; ok {
		t.Error("disabled entry was applied")
	}
	if s.values["ON"] != "1" {
		t.Error("enabled entry was not applied")
	}
}

func TestApplyDetectsParentCycle(t *testing.T) {
	m := newTestManager(t)
	a, _ := m.Create("a", "")
	b, _ := m.Create("b", "")
	a.Parent = "b"
	b.Parent = "a"

	s := newFakeSetter()
	if err := m.Apply("a", s); !errors.Is(err, apperr.ErrCyclicProfile) {
		t.Errorf("Apply = %v, want ErrCyclicProfile", err)
	}
	if len(s.order) != 0 {
		t.Errorf("cycle must fail before any write, got %v", s.order)
	}
}

func TestApplySelfCycle(t *testing.T) {
	m := newTestManager(t)
	p, _ := m.Create("solo", "")
	p.Parent = "solo"

	if err := m.Apply("solo", newFakeSetter()); !errors.Is(err, apperr.ErrCyclicProfile) {
		t.Errorf("Apply = %v, want ErrCyclicProfile", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	m := newTestManager(t)
	p, _ := m.Create("dev", "desc")
	p.AddVar("A", "1")
	if err := m.Save(); err != nil {
		t.Fatal(err)
	}

	data, err := m.Export("dev")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Import("copy", data, false); err != nil {
		t.Fatal(err)
	}
	got, ok := m.Get("copy")
	if !ok {
		t.Fatal("imported profile missing")
	}
	if got.Name != "copy" {
		t.Errorf("name = %q, want supplied name to override", got.Name)
	}
	if got.Variables["A"].Value != "1" {
		t.Errorf("A = %+v", got.Variables["A"])
	}
}

func TestImportWithoutOverwriteFails(t *testing.T) {
	m := newTestManager(t)
	_, _ = m.Create("dev", "")
	data, _ := m.Export("dev")
	if err := m.Import("dev", data, false); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("Import = %v, want ErrAlreadyExists", err)
	}
	if err := m.Import("dev", data, true); err != nil {
		t.Errorf("Import with overwrite = %v", err)
	}
}

func TestPersistenceAcrossManagers(t *testing.T) {
	dir, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	m1, _ := NewManager(dir)
	p, _ := m1.Create("dev", "")
	p.AddVar("A", "1")
	_ = m1.Save()
	_ = m1.Switch("dev")

	m2, err := NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m2.Active() != "dev" {
		t.Errorf("active = %q, want dev", m2.Active())
	}
	got, ok := m2.Get("dev")
	if !ok || got.Variables["A"].Value != "1" {
		t.Errorf("reloaded profile = %+v", got)
	}
}

func TestActiveVarsFiltersDisabled(t *testing.T) {
	p := New("x", "")
	p.AddVar("A", "1")
	p.Variables["B"] = Var{Value: "2", Enabled: false}

	got := p.ActiveVars()
	if len(got) != 1 || got["A"] != "1" {
		t.Errorf("ActiveVars = %v", got)
	}
}
