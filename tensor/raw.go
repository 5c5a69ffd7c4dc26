// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

// RawTensor is a strided view into device memory.
//
// RawTensor provides:
//   - Shape and type information via Shape(), DType(), Device()
//   - Element access via At(i), SetAt(i, v), ElementBytes(i)
//   - Typed slices of contiguous data via AsFloat32(), AsFloat64(), etc.
//   - Deep copies via Copy() and shared views via Clone()
//
// Example:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, nil)
//	raw.Fill(1)
//	view := raw.Clone() // Shares buffer via reference counting
type RawTensor = tensor.RawTensor

// Buffer is reference-counted device storage.
type Buffer = tensor.Buffer

// BufferAttributes describe the owner and kind of a Buffer.
type BufferAttributes = tensor.BufferAttributes

// MemoryKind tells where a Buffer lives.
type MemoryKind = tensor.MemoryKind

// Memory kinds.
const (
	HostMemory    = tensor.HostMemory
	ManagedMemory = tensor.ManagedMemory
	DeviceMemory  = tensor.DeviceMemory
)

// Shape represents tensor dimensions.
type Shape = tensor.Shape

// DataType identifies the element type.
type DataType = tensor.DataType

// Element types.
const (
	Bool     = tensor.Bool
	Int8     = tensor.Int8
	Int32    = tensor.Int32
	Int64    = tensor.Int64
	Uint8    = tensor.Uint8
	Float16  = tensor.Float16
	Bfloat16 = tensor.Bfloat16
	Float32  = tensor.Float32
	Float64  = tensor.Float64
)

// Errors reported by tensors and devices.
var (
	ErrShapeMismatch  = tensor.ErrShapeMismatch
	ErrDtype          = tensor.ErrDtype
	ErrDeviceMismatch = tensor.ErrDeviceMismatch
	ErrInternal       = tensor.ErrInternal
	ErrUnknownBackend = tensor.ErrUnknownBackend
	ErrDeviceIndex    = tensor.ErrDeviceIndex
)

// NewRaw allocates a zeroed tensor on device, or on the default device if nil.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// FromFloat64 creates a tensor holding values converted to dtype.
func FromFloat64(values []float64, shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.FromFloat64(values, shape, dtype, device)
}

// ParseDataType returns the DataType named name ("float32", "bfloat16", ...).
func ParseDataType(name string) (DataType, error) {
	return tensor.ParseDataType(name)
}

// BroadcastShapes returns the shape a and b broadcast to.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	return tensor.BroadcastShapes(a, b)
}
