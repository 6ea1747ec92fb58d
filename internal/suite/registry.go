package suite

import (
	"fmt"
	"sort"
	"sync"
)

// registry holds the named suites known to the binary. Suites register at
// package init time and the run command looks them up by name.
var registry = struct {
	mu     sync.RWMutex
	suites map[string][]Scenario
}{suites: make(map[string][]Scenario)}

// Register adds scenarios under a suite name. Registering the same name twice
// appends, so a suite can be assembled from several files.
func Register(name string, scenarios ...Scenario) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.suites[name] = append(registry.suites[name], scenarios...)
}

// Lookup returns the scenarios of a named suite. An empty name returns every
// registered scenario across all suites.
func Lookup(name string) ([]Scenario, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	if name == "" {
		var all []Scenario
		for _, n := range sortedNames() {
			all = append(all, registry.suites[n]...)
		}
		return all, nil
	}
	scenarios, ok := registry.suites[name]
	if !ok {
		return nil, fmt.Errorf("unknown suite %q (registered: %v)", name, sortedNames())
	}
	return scenarios, nil
}

// Names lists the registered suite names in order.
func Names() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return sortedNames()
}

// sortedNames expects the registry lock to be held.
func sortedNames() []string {
	names := make([]string, 0, len(registry.suites))
	for n := range registry.suites {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
