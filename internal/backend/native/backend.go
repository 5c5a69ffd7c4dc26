// Package native implements the host backend: a single device whose memory
// is ordinary process memory and whose kernels run on the CPU.
package native

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

// Name is the registry name of the backend.
const Name = "native"

func init() {
	tensor.RegisterBackend(Name, func() (tensor.Backend, error) {
		return New(), nil
	})
}

// Backend is the native backend. It exposes exactly one device.
type Backend struct {
	device *Device
}

// New creates a native backend.
func New() *Backend {
	b := &Backend{}
	b.device = &Device{id: tensor.DeviceID{Backend: Name}, backend: b}
	b.device.Kernels = NewKernels(b.device)
	return b
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return Name
}

// DeviceCount returns 1.
func (b *Backend) DeviceCount() int {
	return 1
}

// Device returns the device at index, which must be 0.
func (b *Backend) Device(index int) (tensor.Device, error) {
	if index != 0 {
		return nil, errors.Wrapf(tensor.ErrDeviceIndex, "%s has 1 device, got index %d", Name, index)
	}
	return b.device, nil
}

// Device is the native CPU device.
type Device struct {
	Kernels

	id      tensor.DeviceID
	backend *Backend
}

// ID returns "native:0".
func (d *Device) ID() tensor.DeviceID {
	return d.id
}

// Backend returns the owning backend.
func (d *Device) Backend() tensor.Backend {
	return d.backend
}

// Allocate returns zeroed host memory tagged with this device.
func (d *Device) Allocate(byteSize int) (*tensor.Buffer, error) {
	if byteSize < 0 {
		return nil, errors.Wrapf(tensor.ErrInternal, "negative allocation of %d bytes", byteSize)
	}
	return tensor.NewBuffer(make([]byte, byteSize), tensor.BufferAttributes{Device: d.id, Kind: tensor.HostMemory}, nil), nil
}

// FromHostMemory copies src into a new buffer.
func (d *Device) FromHostMemory(src []byte) (*tensor.Buffer, error) {
	buf, err := d.Allocate(len(src))
	if err != nil {
		return nil, err
	}
	copy(buf.Bytes(), src)
	return buf, nil
}

// MakeDataFromForeignPointer adopts any host-addressable buffer, including
// managed memory of other devices. Device-only memory is rejected.
func (d *Device) MakeDataFromForeignPointer(buf *tensor.Buffer) (*tensor.Buffer, error) {
	attrs := buf.Attributes()
	if attrs.Kind == tensor.DeviceMemory {
		return nil, errors.Wrapf(tensor.ErrDeviceMismatch,
			"%s cannot address device memory of %s", d.id, attrs.Device)
	}
	return buf.Retain(), nil
}

// Synchronize is a no-op: native kernels complete before returning.
func (d *Device) Synchronize() {
	klog.V(5).Infof("synchronize %s", d.id)
}
