//go:build !windows

package platform

import (
	"fmt"
	"io"
	"os"
)

// shellBackend is the Unix backend. It cannot mutate a parent shell's
// environment, so persistent writes print the shell line the user needs
// to add to their rc file instead.
type shellBackend struct {
	out io.Writer
}

// New returns the backend for the current platform.
func New() Backend {
	return &shellBackend{out: os.Stdout}
}

// NewShell returns a Unix backend writing its suggestions to out.
func NewShell(out io.Writer) Backend {
	return &shellBackend{out: out}
}

func (b *shellBackend) LoadSystem() (map[string]string, error) {
	return map[string]string{}, nil
}

func (b *shellBackend) LoadUser() (map[string]string, error) {
	return map[string]string{}, nil
}

func (b *shellBackend) SetPersistent(name, value string, _ Scope) error {
	fmt.Fprintf(b.out, "To make this change permanent, add to your shell profile:\n")
	fmt.Fprintf(b.out, "  export %s=%q\n", name, value)
	return nil
}

func (b *shellBackend) DeletePersistent(name string, _ Scope) error {
	fmt.Fprintf(b.out, "To remove this variable permanently, add to your shell profile:\n")
	fmt.Fprintf(b.out, "  unset %s\n", name)
	return nil
}
