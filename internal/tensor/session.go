package tensor

import (
	"sync"

	"github.com/gomlx/exceptions"

	"github.com/YoshimuraKazumasa/chainer/internal/envconfig"
)

var (
	sessionMu sync.Mutex
	current   Device
)

// UseDevice makes d the default device until the returned function is called,
// which restores the previous default:
//
//	defer tensor.UseDevice(dev)()
func UseDevice(d Device) func() {
	sessionMu.Lock()
	prev := current
	current = d
	sessionMu.Unlock()
	return func() {
		sessionMu.Lock()
		current = prev
		sessionMu.Unlock()
	}
}

// DefaultDevice returns the device set by UseDevice, falling back to
// XCHAINER_DEFAULT_DEVICE. It panics if that device cannot be resolved.
func DefaultDevice() Device {
	sessionMu.Lock()
	d := current
	sessionMu.Unlock()
	if d != nil {
		return d
	}
	id, err := ParseDeviceID(envconfig.DefaultDevice)
	if err != nil {
		exceptions.Panicf("default device %q: %v", envconfig.DefaultDevice, err)
	}
	d, err = GetDevice(id)
	if err != nil {
		exceptions.Panicf("default device %s: %v", id, err)
	}
	return d
}
