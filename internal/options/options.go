// Package options implements OptionsManager: a namespaced key/value
// store the core consults for cli_args (never_prompt/force_confirm/
// skip_confirm) and hosts may use for their own runtime toggles.
package options

import (
	"fmt"
	"sync"
)

// Manager is a namespaced key/value store, safe for concurrent use
// (ActionGroup children may read it from multiple goroutines).
type Manager struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]any
}

// New builds an empty Manager.
func New() *Manager {
	return &Manager{namespaces: map[string]map[string]any{}}
}

// Get returns the value stored under (namespace, name), or fallback if
// unset.
func (m *Manager) Get(namespace, name string, fallback any) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ns, ok := m.namespaces[namespace]
	if !ok {
		return fallback
	}
	v, ok := ns[name]
	if !ok {
		return fallback
	}
	return v
}

// Set stores value under (namespace, name).
func (m *Manager) Set(namespace, name string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.namespaces[namespace]
	if !ok {
		ns = map[string]any{}
		m.namespaces[namespace] = ns
	}
	ns[name] = value
}

// Has reports whether (namespace, name) has ever been set.
func (m *Manager) Has(namespace, name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ns, ok := m.namespaces[namespace]
	if !ok {
		return false
	}
	_, ok = ns[name]
	return ok
}

// Toggle flips a boolean option and returns its new value. It errors if
// the current value is set and not a bool.
func (m *Manager) Toggle(namespace, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.namespaces[namespace]
	if !ok {
		ns = map[string]any{}
		m.namespaces[namespace] = ns
	}
	cur, ok := ns[name]
	if !ok {
		ns[name] = true
		return true, nil
	}
	b, ok := cur.(bool)
	if !ok {
		return false, fmt.Errorf("cannot toggle non-boolean option %q in namespace %q", name, namespace)
	}
	ns[name] = !b
	return !b, nil
}

// GetValueGetter returns a closure over (namespace, name) that reads
// its current value on each call, so callers don't need to thread the
// manager and key through every call site.
func (m *Manager) GetValueGetter(namespace, name string) func() any {
	return func() any { return m.Get(namespace, name, nil) }
}

// GetToggleFunction returns a closure that toggles (namespace, name)
// when called.
func (m *Manager) GetToggleFunction(namespace, name string) func() (bool, error) {
	return func() (bool, error) { return m.Toggle(namespace, name) }
}

// Namespace returns a copy of everything stored under namespace.
func (m *Manager) Namespace(namespace string) map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.namespaces[namespace]
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// cli_args namespace keys the core itself consults.
const (
	NamespaceCLIArgs = "cli_args"
	KeyNeverPrompt   = "never_prompt"
	KeyForceConfirm  = "force_confirm"
	KeySkipConfirm   = "skip_confirm"
)

// ShouldPromptUser resolves whether a confirmation prompt should be
// shown, honoring force_confirm and skip_confirm/never_prompt overrides
// from the cli_args namespace (never_prompt/skip_confirm win over a
// plain confirm=true unless force_confirm is also set).
func ShouldPromptUser(confirm bool, m *Manager) bool {
	if m == nil {
		return confirm
	}
	force, _ := m.Get(NamespaceCLIArgs, KeyForceConfirm, false).(bool)
	if force {
		return true
	}
	never, _ := m.Get(NamespaceCLIArgs, KeyNeverPrompt, false).(bool)
	skip, _ := m.Get(NamespaceCLIArgs, KeySkipConfirm, false).(bool)
	if never || skip {
		return false
	}
	return confirm
}
