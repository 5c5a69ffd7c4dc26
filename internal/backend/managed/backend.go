// Package managed implements an accelerator-style backend whose devices
// hand out unified (managed) memory. Managed buffers are addressable from
// the host and from their owning device only; device-only buffers can be
// allocated explicitly and are rejected wherever direct addressing is
// required. Kernels execute on the host over the managed memory.
package managed

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/YoshimuraKazumasa/chainer/internal/backend/native"
	"github.com/YoshimuraKazumasa/chainer/internal/envconfig"
	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

// Name is the registry name of the backend.
const Name = "managed"

func init() {
	tensor.RegisterBackend(Name, func() (tensor.Backend, error) {
		return New(envconfig.ManagedDevices)
	})
}

// Backend owns a fixed set of managed devices.
type Backend struct {
	devices []*Device
}

// New creates a backend with count devices.
func New(count int) (*Backend, error) {
	if count < 1 {
		return nil, errors.Wrapf(tensor.ErrDeviceIndex, "%s backend needs at least one device, got %d", Name, count)
	}
	b := &Backend{devices: make([]*Device, count)}
	for i := range b.devices {
		d := &Device{
			id:      tensor.DeviceID{Backend: Name, Index: i},
			uuid:    uuid.NewString(),
			backend: b,
		}
		d.Kernels = native.NewKernels(d)
		b.devices[i] = d
	}
	return b, nil
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return Name
}

// DeviceCount returns the number of devices.
func (b *Backend) DeviceCount() int {
	return len(b.devices)
}

// Device returns the device at index.
func (b *Backend) Device(index int) (tensor.Device, error) {
	if index < 0 || index >= len(b.devices) {
		return nil, errors.Wrapf(tensor.ErrDeviceIndex, "%s has %d device(s), got index %d", Name, len(b.devices), index)
	}
	return b.devices[index], nil
}

// MemoryStats summarizes the live allocations of a device.
type MemoryStats struct {
	InUse     uint64 // bytes currently allocated
	Peak      uint64 // highest InUse observed
	Buffers   int    // live buffers
	Allocated int    // buffers allocated since creation
}

// Device is one managed device.
type Device struct {
	native.Kernels

	id      tensor.DeviceID
	uuid    string
	backend *Backend

	mu    sync.Mutex
	stats MemoryStats
}

// ID returns "managed:<index>".
func (d *Device) ID() tensor.DeviceID {
	return d.id
}

// UUID returns the identifier assigned to the device at creation.
func (d *Device) UUID() string {
	return d.uuid
}

// Backend returns the owning backend.
func (d *Device) Backend() tensor.Backend {
	return d.backend
}

// Allocate returns zeroed managed memory owned by d.
func (d *Device) Allocate(byteSize int) (*tensor.Buffer, error) {
	return d.allocate(byteSize, tensor.ManagedMemory)
}

// AllocateDeviceMemory returns zeroed memory that only d may address.
func (d *Device) AllocateDeviceMemory(byteSize int) (*tensor.Buffer, error) {
	return d.allocate(byteSize, tensor.DeviceMemory)
}

func (d *Device) allocate(byteSize int, kind tensor.MemoryKind) (*tensor.Buffer, error) {
	if byteSize < 0 {
		return nil, errors.Wrapf(tensor.ErrInternal, "negative allocation of %d bytes", byteSize)
	}
	d.mu.Lock()
	d.stats.InUse += uint64(byteSize)
	d.stats.Peak = max(d.stats.Peak, d.stats.InUse)
	d.stats.Buffers++
	d.stats.Allocated++
	d.mu.Unlock()

	klog.V(5).Infof("%s: allocate %d bytes of %s memory", d.id, byteSize, kind)
	return tensor.NewBuffer(make([]byte, byteSize), tensor.BufferAttributes{Device: d.id, Kind: kind}, d.free), nil
}

func (d *Device) free(buf *tensor.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats.InUse -= uint64(buf.Len())
	d.stats.Buffers--
}

// FromHostMemory copies host bytes into managed memory.
func (d *Device) FromHostMemory(src []byte) (*tensor.Buffer, error) {
	buf, err := d.Allocate(len(src))
	if err != nil {
		return nil, err
	}
	copy(buf.Bytes(), src)
	return buf, nil
}

// MakeDataFromForeignPointer adopts buf without copying. Only managed
// memory owned by d qualifies: host memory, device-only memory and memory
// of other devices fail with ErrDeviceMismatch.
func (d *Device) MakeDataFromForeignPointer(buf *tensor.Buffer) (*tensor.Buffer, error) {
	attrs := buf.Attributes()
	switch {
	case attrs.Kind == tensor.HostMemory:
		return nil, errors.Wrapf(tensor.ErrDeviceMismatch, "%s: cannot adopt host memory", d.id)
	case attrs.Kind != tensor.ManagedMemory:
		return nil, errors.Wrapf(tensor.ErrDeviceMismatch, "%s: cannot adopt non-managed %s memory of %s", d.id, attrs.Kind, attrs.Device)
	case attrs.Device != d.id:
		return nil, errors.Wrapf(tensor.ErrDeviceMismatch, "%s: buffer belongs to %s", d.id, attrs.Device)
	}
	return buf.Retain(), nil
}

// PointerAttributes reports the owner and kind of buf.
func (d *Device) PointerAttributes(buf *tensor.Buffer) tensor.BufferAttributes {
	return buf.Attributes()
}

// MemoryStats returns a snapshot of the device's allocation counters.
func (d *Device) MemoryStats() MemoryStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Synchronize waits for outstanding work. Kernels run to completion on the
// calling goroutine, so only the allocator lock needs to be drained.
func (d *Device) Synchronize() {
	d.mu.Lock()
	defer d.mu.Unlock()
	klog.V(5).Infof("synchronize %s (%d live buffers)", d.id, d.stats.Buffers)
}
