package tensor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DeviceID names a device as "<backend>:<index>".
type DeviceID struct {
	Backend string
	Index   int
}

func (id DeviceID) String() string {
	return fmt.Sprintf("%s:%d", id.Backend, id.Index)
}

// ParseDeviceID parses "native", "native:0" or "managed:1".
func ParseDeviceID(s string) (DeviceID, error) {
	s = strings.TrimSpace(s)
	name, idx, found := strings.Cut(s, ":")
	if name == "" {
		return DeviceID{}, errors.Wrapf(ErrUnknownBackend, "empty backend name in %q", s)
	}
	id := DeviceID{Backend: name}
	if found {
		i, err := strconv.Atoi(idx)
		if err != nil || i < 0 {
			return DeviceID{}, errors.Wrapf(ErrDeviceIndex, "invalid device index in %q", s)
		}
		id.Index = i
	}
	return id, nil
}

// Kernels are the numerical primitives a device executes. Inputs may be
// strided; outputs are freshly allocated contiguous tensors on the device
// unless an explicit out is given. Kernels panic with a wrapped
// ErrShapeMismatch, ErrDtype or ErrDeviceMismatch on invalid arguments.
type Kernels interface {
	// Element-wise binary operations with NumPy broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Element-wise unary operations.
	Neg(x *RawTensor) *RawTensor
	Exp(x *RawTensor) *RawTensor
	Log(x *RawTensor) *RawTensor
	Tanh(x *RawTensor) *RawTensor
	MulScalar(x *RawTensor, s float64) *RawTensor
	AddScalar(x *RawTensor, s float64) *RawTensor

	// Sum reduces every element into a scalar.
	Sum(x *RawTensor) *RawTensor
	// SumTo reduces broadcast dimensions so the result has shape.
	SumTo(x *RawTensor, shape Shape) *RawTensor
	// BroadcastTo materializes x expanded to shape.
	BroadcastTo(x *RawTensor, shape Shape) *RawTensor
	// Transpose permutes axes. With no axes the order is reversed.
	Transpose(x *RawTensor, axes ...int) *RawTensor
	// Dot computes the matrix product of 2-D a and b into out, which may be strided.
	Dot(a, b, out *RawTensor)
}

// Device owns memory and executes kernels.
type Device interface {
	Kernels

	ID() DeviceID
	Backend() Backend

	// Allocate returns zeroed storage owned by the device.
	Allocate(byteSize int) (*Buffer, error)
	// FromHostMemory copies host bytes into storage owned by the device.
	FromHostMemory(src []byte) (*Buffer, error)
	// MakeDataFromForeignPointer adopts storage allocated elsewhere without
	// copying. It fails with ErrDeviceMismatch when this device cannot
	// address the memory directly.
	MakeDataFromForeignPointer(buf *Buffer) (*Buffer, error)
	// Synchronize waits for pending work on the device.
	Synchronize()
}

// Backend is a named family of devices.
type Backend interface {
	Name() string
	DeviceCount() int
	Device(index int) (Device, error)
}

// CheckDevicesCompatible fails with ErrDeviceMismatch unless every tensor
// lives on the same device.
func CheckDevicesCompatible(tensors ...*RawTensor) error {
	if len(tensors) == 0 {
		return nil
	}
	first := tensors[0].Device()
	for i, t := range tensors[1:] {
		if t.Device() != first {
			return errors.Wrapf(ErrDeviceMismatch, "tensor %d is on %s, tensor 0 is on %s",
				i+1, t.Device().ID(), first.ID())
		}
	}
	return nil
}
