package tensor

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/d4l3k/go-bfloat16"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// RawTensor is the low-level array representation: a view of shape, strides
// and offset into a reference-counted Buffer owned by a Device.
// Strides and offset are measured in elements.
type RawTensor struct {
	buffer *Buffer
	shape  Shape
	stride []int
	dtype  DataType
	device Device
	offset int
}

// NewRaw allocates a zero-filled contiguous tensor on device.
// A nil device selects DefaultDevice.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrapf(ErrShapeMismatch, "invalid shape: %v", err)
	}
	if device == nil {
		device = DefaultDevice()
	}
	buf, err := device.Allocate(shape.NumElements() * dtype.Size())
	if err != nil {
		return nil, err
	}
	return &RawTensor{
		buffer: buf,
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
	}, nil
}

// MustNewRaw is NewRaw for kernels, which panic on failure.
func MustNewRaw(shape Shape, dtype DataType, device Device) *RawTensor {
	r, err := NewRaw(shape, dtype, device)
	if err != nil {
		panic(err)
	}
	return r
}

// NewRawStrided creates a view over an existing buffer. The buffer gains a
// reference; every element reachable through strides must lie in bounds.
func NewRawStrided(buf *Buffer, shape Shape, strides []int, offset int, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrapf(ErrShapeMismatch, "invalid shape: %v", err)
	}
	if len(strides) != len(shape) {
		return nil, errors.Wrapf(ErrShapeMismatch, "%d strides for shape %s", len(strides), shape)
	}
	lo, hi := offset, offset
	for i, d := range shape {
		span := (d - 1) * strides[i]
		if span < 0 {
			lo += span
		} else {
			hi += span
		}
	}
	if lo < 0 || (hi+1)*dtype.Size() > buf.Len() {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"view %s strides %v offset %d exceeds buffer of %d bytes", shape, strides, offset, buf.Len())
	}
	if device == nil {
		device = DefaultDevice()
	}
	buf.Retain()
	return &RawTensor{
		buffer: buf,
		shape:  shape.Clone(),
		stride: append([]int(nil), strides...),
		dtype:  dtype,
		device: device,
		offset: offset,
	}, nil
}

// FromBytes copies contiguous host bytes onto device.
func FromBytes(data []byte, shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if want := shape.NumElements() * dtype.Size(); len(data) != want {
		return nil, errors.Wrapf(ErrShapeMismatch, "%d bytes for %s %s, want %d", len(data), dtype, shape, want)
	}
	if device == nil {
		device = DefaultDevice()
	}
	buf, err := device.FromHostMemory(data)
	if err != nil {
		return nil, err
	}
	return &RawTensor{
		buffer: buf,
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
	}, nil
}

// FromFloat64 creates a tensor of dtype from values given in row-major order.
func FromFloat64(values []float64, shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if len(values) != shape.NumElements() {
		return nil, errors.Wrapf(ErrShapeMismatch, "%d values for shape %s", len(values), shape)
	}
	r, err := NewRaw(shape, dtype, device)
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		r.SetAt(i, v)
	}
	return r, nil
}

// Buffer returns the backing storage.
func (r *RawTensor) Buffer() *Buffer {
	return r.buffer
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's strides in elements.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// Offset returns the element offset of the first element.
func (r *RawTensor) Offset() int {
	return r.offset
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the device owning the buffer.
func (r *RawTensor) Device() Device {
	return r.device
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the logical size in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// IsContiguous reports whether elements are laid out densely in row-major order.
func (r *RawTensor) IsContiguous() bool {
	return isContiguous(r.shape, r.stride)
}

// Indexer returns the logical-to-physical index mapping of r.
func (r *RawTensor) Indexer() Indexer {
	return NewIndexer(r.shape, r.stride, r.offset)
}

// Data returns the bytes of a contiguous tensor.
// Panics if the tensor is not contiguous.
func (r *RawTensor) Data() []byte {
	if !r.IsContiguous() {
		panic(errors.Wrap(ErrInternal, "Data on non-contiguous tensor"))
	}
	start := r.offset * r.dtype.Size()
	return r.buffer.Bytes()[start : start+r.ByteSize()]
}

func (r *RawTensor) elementPointer(i int) unsafe.Pointer {
	if i < 0 || i >= r.NumElements() {
		panic(fmt.Sprintf("index %d out of range for shape %s", i, r.shape))
	}
	off := r.Indexer().Offset(i) * r.dtype.Size()
	return unsafe.Pointer(&r.buffer.Bytes()[off])
}

// ElementBytes returns a copy of the stored bits of logical element i.
func (r *RawTensor) ElementBytes(i int) []byte {
	size := r.dtype.Size()
	//nolint:gosec // bounds checked by elementPointer
	src := unsafe.Slice((*byte)(r.elementPointer(i)), size)
	out := make([]byte, size)
	copy(out, src)
	return out
}

// SetElementBytes overwrites the stored bits of logical element i.
func (r *RawTensor) SetElementBytes(i int, b []byte) {
	//nolint:gosec // bounds checked by elementPointer
	dst := unsafe.Slice((*byte)(r.elementPointer(i)), r.dtype.Size())
	copy(dst, b)
}

// At returns logical element i converted to float64.
func (r *RawTensor) At(i int) float64 {
	p := r.elementPointer(i)
	switch r.dtype {
	case Bool:
		if *(*bool)(p) {
			return 1
		}
		return 0
	case Int8:
		return float64(*(*int8)(p))
	case Int32:
		return float64(*(*int32)(p))
	case Int64:
		return float64(*(*int64)(p))
	case Uint8:
		return float64(*(*uint8)(p))
	case Float16:
		return float64(float16.Frombits(*(*uint16)(p)).Float32())
	case Bfloat16:
		return float64(bfloat16.ToFloat32(*(*bfloat16.BF16)(p)))
	case Float32:
		return float64(*(*float32)(p))
	case Float64:
		return *(*float64)(p)
	default:
		panic(errors.Wrapf(ErrDtype, "unsupported dtype %s", r.dtype))
	}
}

// SetAt stores v, rounded to the tensor's dtype, at logical element i.
func (r *RawTensor) SetAt(i int, v float64) {
	p := r.elementPointer(i)
	switch r.dtype {
	case Bool:
		*(*bool)(p) = v != 0
	case Int8:
		*(*int8)(p) = int8(v)
	case Int32:
		*(*int32)(p) = int32(v)
	case Int64:
		*(*int64)(p) = int64(v)
	case Uint8:
		*(*uint8)(p) = uint8(v)
	case Float16:
		*(*uint16)(p) = float16.Fromfloat32(float32(v)).Bits()
	case Bfloat16:
		*(*bfloat16.BF16)(p) = bfloat16.FromFloat32(float32(v))
	case Float32:
		*(*float32)(p) = float32(v)
	case Float64:
		*(*float64)(p) = v
	default:
		panic(errors.Wrapf(ErrDtype, "unsupported dtype %s", r.dtype))
	}
}

// Fill sets every element to v.
func (r *RawTensor) Fill(v float64) {
	n := r.NumElements()
	for i := 0; i < n; i++ {
		r.SetAt(i, v)
	}
}

// ToFloat64 returns the elements in row-major order.
func (r *RawTensor) ToFloat64() []float64 {
	out := make([]float64, r.NumElements())
	for i := range out {
		out[i] = r.At(i)
	}
	return out
}

// Copy returns a deep, contiguous copy of r on the same device.
func (r *RawTensor) Copy() *RawTensor {
	out := MustNewRaw(r.shape, r.dtype, r.device)
	if err := CopyInto(out, r); err != nil {
		panic(err)
	}
	return out
}

// AsContiguous returns r itself when contiguous, a contiguous copy otherwise.
func (r *RawTensor) AsContiguous() *RawTensor {
	if r.IsContiguous() {
		return r
	}
	return r.Copy()
}

// CopyInto copies src element-wise into dst, which may be strided.
// Both must have the same shape and dtype.
func CopyInto(dst, src *RawTensor) error {
	if !dst.shape.Equal(src.shape) {
		return errors.Wrapf(ErrShapeMismatch, "copy %s into %s", src.shape, dst.shape)
	}
	if dst.dtype != src.dtype {
		return errors.Wrapf(ErrDtype, "copy %s into %s", src.dtype, dst.dtype)
	}
	if dst.IsContiguous() && src.IsContiguous() {
		copy(dst.Data(), src.Data())
		return nil
	}
	size := src.dtype.Size()
	dIx, sIx := dst.Indexer(), src.Indexer()
	db, sb := dst.buffer.Bytes(), src.buffer.Bytes()
	n := src.NumElements()
	for i := 0; i < n; i++ {
		d, s := dIx.Offset(i)*size, sIx.Offset(i)*size
		copy(db[d:d+size], sb[s:s+size])
	}
	return nil
}

// Clone creates a shallow copy of the RawTensor sharing the same buffer.
func (r *RawTensor) Clone() *RawTensor {
	r.buffer.Retain()
	return &RawTensor{
		buffer: r.buffer,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
		device: r.device,
		offset: r.offset,
	}
}

// Release drops this view's reference on the buffer.
func (r *RawTensor) Release() {
	r.buffer.Release()
}

// IsUnique returns true if this tensor is the only reference to the buffer.
func (r *RawTensor) IsUnique() bool {
	return r.buffer.RefCount() == 1
}

// String renders dtype, shape, device and up to 16 values.
func (r *RawTensor) String() string {
	const maxShown = 16
	var sb strings.Builder
	fmt.Fprintf(&sb, "array(%s, %s, device=%s, [", r.dtype, r.shape, r.device.ID())
	n := r.NumElements()
	for i := 0; i < min(n, maxShown); i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%g", r.At(i))
	}
	if n > maxShown {
		sb.WriteString(", ...")
	}
	sb.WriteString("])")
	return sb.String()
}

func asSlice[T any](r *RawTensor, dtype DataType) []T {
	if r.dtype != dtype {
		panic(fmt.Sprintf("tensor dtype is %s, not %s", r.dtype, dtype))
	}
	data := r.Data()
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by Data()
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), r.NumElements())
}

// AsFloat32 interprets a contiguous Float32 tensor as []float32.
func (r *RawTensor) AsFloat32() []float32 { return asSlice[float32](r, Float32) }

// AsFloat64 interprets a contiguous Float64 tensor as []float64.
func (r *RawTensor) AsFloat64() []float64 { return asSlice[float64](r, Float64) }

// AsFloat16 interprets a contiguous Float16 tensor as []float16.Float16.
func (r *RawTensor) AsFloat16() []float16.Float16 { return asSlice[float16.Float16](r, Float16) }

// AsBfloat16 interprets a contiguous Bfloat16 tensor as []bfloat16.BF16.
func (r *RawTensor) AsBfloat16() []bfloat16.BF16 { return asSlice[bfloat16.BF16](r, Bfloat16) }

// AsInt32 interprets a contiguous Int32 tensor as []int32.
func (r *RawTensor) AsInt32() []int32 { return asSlice[int32](r, Int32) }

// AsInt64 interprets a contiguous Int64 tensor as []int64.
func (r *RawTensor) AsInt64() []int64 { return asSlice[int64](r, Int64) }
