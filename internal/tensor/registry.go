package tensor

import (
	"maps"
	"slices"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	backendsMu sync.Mutex
	factories  = make(map[string]func() (Backend, error))
	backends   = make(map[string]Backend)
)

// RegisterBackend makes a backend factory available by name. Backends
// register themselves from init; registering a name twice panics.
func RegisterBackend(name string, f func() (Backend, error)) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if _, ok := factories[name]; ok {
		panic("backend: backend already registered: " + name)
	}
	factories[name] = f
}

// BackendNames lists registered backends in sorted order.
func BackendNames() []string {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	return slices.Sorted(maps.Keys(factories))
}

// GetBackend returns the backend instance for name, creating it on first use.
func GetBackend(name string) (Backend, error) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if b, ok := backends[name]; ok {
		return b, nil
	}
	f, ok := factories[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownBackend, "%q (registered: %v)", name, slices.Sorted(maps.Keys(factories)))
	}
	b, err := f()
	if err != nil {
		return nil, errors.WithMessagef(err, "initialize backend %q", name)
	}
	klog.V(2).Infof("initialized backend %s with %d device(s)", name, b.DeviceCount())
	backends[name] = b
	return b, nil
}

// GetDevice resolves a device ID through the registry.
func GetDevice(id DeviceID) (Device, error) {
	b, err := GetBackend(id.Backend)
	if err != nil {
		return nil, err
	}
	return b.Device(id.Index)
}
