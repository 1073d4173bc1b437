//go:build windows

package platform

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows/registry"
)

const (
	userEnvKey   = `Environment`
	systemEnvKey = `System\CurrentControlSet\Control\Session Manager\Environment`
)

// registryBackend persists variables in the Windows registry.
type registryBackend struct{}

// New returns the backend for the current platform.
func New() Backend {
	return registryBackend{}
}

func (registryBackend) LoadSystem() (map[string]string, error) {
	return readEnvKey(registry.LOCAL_MACHINE, systemEnvKey)
}

func (registryBackend) LoadUser() (map[string]string, error) {
	return readEnvKey(registry.CURRENT_USER, userEnvKey)
}

func (registryBackend) SetPersistent(name, value string, scope Scope) error {
	root, path := keyFor(scope)
	k, err := registry.OpenKey(root, path, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("platform: open %s env key: %w", scope, err)
	}
	defer k.Close()
	if err := k.SetStringValue(name, value); err != nil {
		return fmt.Errorf("platform: set %s: %w", name, err)
	}
	broadcastSettingChange()
	return nil
}

func (registryBackend) DeletePersistent(name string, scope Scope) error {
	root, path := keyFor(scope)
	k, err := registry.OpenKey(root, path, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("platform: open %s env key: %w", scope, err)
	}
	defer k.Close()
	if err := k.DeleteValue(name); err != nil {
		return fmt.Errorf("platform: delete %s: %w", name, err)
	}
	broadcastSettingChange()
	return nil
}

func keyFor(scope Scope) (registry.Key, string) {
	if scope == ScopeSystem {
		return registry.LOCAL_MACHINE, systemEnvKey
	}
	return registry.CURRENT_USER, userEnvKey
}

func readEnvKey(root registry.Key, path string) (map[string]string, error) {
	k, err := registry.OpenKey(root, path, registry.QUERY_VALUE)
	if err != nil {
		return nil, fmt.Errorf("platform: open env key: %w", err)
	}
	defer k.Close()

	names, err := k.ReadValueNames(0)
	if err != nil {
		return nil, fmt.Errorf("platform: read value names: %w", err)
	}
	out := make(map[string]string, len(names))
	for _, n := range names {
		// REG_SZ and REG_EXPAND_SZ both come back as strings; other
		// value kinds are skipped.
		v, _, err := k.GetStringValue(n)
		if err != nil {
			continue
		}
		out[n] = v
	}
	return out, nil
}

// broadcastSettingChange tells running applications the environment
// changed. Best effort; failures are ignored.
func broadcastSettingChange() {
	const (
		hwndBroadcast   = uintptr(0xFFFF)
		wmSettingChange = 0x001A
		smtoAbortIfHung = 0x0002
	)
	user32 := syscall.NewLazyDLL("user32.dll")
	proc := user32.NewProc("SendMessageTimeoutW")
	env, err := syscall.UTF16PtrFromString("Environment")
	if err != nil {
		return
	}
	var result uintptr
	_, _, _ = proc.Call(hwndBroadcast, wmSettingChange, 0,
		uintptr(unsafe.Pointer(env)), smtoAbortIfHung, 5000,
		uintptr(unsafe.Pointer(&result)))
}
