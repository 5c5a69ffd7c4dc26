// Package arraytest builds arrays and compares them in tests.
package arraytest

import (
	"math"
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Register the backends tests may ask for.
	_ "github.com/YoshimuraKazumasa/chainer/internal/backend/managed"
	_ "github.com/YoshimuraKazumasa/chainer/internal/backend/native"
	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

// Builder describes an array to create.
type Builder struct {
	shape   tensor.Shape
	dtype   tensor.DataType
	device  tensor.Device
	data    []float64
	padding []int
}

// BuildArray starts a float32 array of the given shape on the default device.
func BuildArray(shape tensor.Shape) *Builder {
	return &Builder{shape: shape.Clone(), dtype: tensor.Float32}
}

// WithDtype sets the element type.
func (b *Builder) WithDtype(dtype tensor.DataType) *Builder {
	b.dtype = dtype
	return b
}

// WithDevice sets the device. nil means the default device.
func (b *Builder) WithDevice(d tensor.Device) *Builder {
	b.device = d
	return b
}

// WithData sets the values in row-major order.
func (b *Builder) WithData(values ...float64) *Builder {
	b.data = append([]float64(nil), values...)
	return b
}

// WithLinearData fills the array with start, start+step, ...
func (b *Builder) WithLinearData(start, step float64) *Builder {
	b.data = make([]float64, b.shape.NumElements())
	for i := range b.data {
		b.data[i] = start + float64(i)*step
	}
	return b
}

// WithPadding makes the array a view into a larger buffer with pad extra
// elements after each dimension. A single value applies to every dimension.
func (b *Builder) WithPadding(pad ...int) *Builder {
	if len(pad) == 1 && len(b.shape) > 1 {
		p := pad[0]
		pad = make([]int, len(b.shape))
		for i := range pad {
			pad[i] = p
		}
	}
	b.padding = pad
	return b
}

// Build creates the array. It panics on invalid descriptions.
func (b *Builder) Build() *tensor.RawTensor {
	device := b.device
	if device == nil {
		device = tensor.DefaultDevice()
	}
	var r *tensor.RawTensor
	if len(b.padding) == 0 {
		r = must.M1(tensor.NewRaw(b.shape, b.dtype, device))
	} else {
		padded := b.shape.Clone()
		for i := range padded {
			padded[i] += b.padding[i]
		}
		base := must.M1(tensor.NewRaw(padded, b.dtype, device))
		r = must.M1(tensor.NewRawStrided(base.Buffer(), b.shape, base.Strides(), 0, b.dtype, device))
		base.Release()
	}
	for i, v := range b.data {
		r.SetAt(i, v)
	}
	return r
}

// RequireDevice resolves id ("native:0", "managed:1") or skips the test if
// the device is not available.
func RequireDevice(t testing.TB, id string) tensor.Device {
	t.Helper()
	devID, err := tensor.ParseDeviceID(id)
	require.NoError(t, err)
	backend, err := tensor.GetBackend(devID.Backend)
	if err != nil {
		t.Skipf("backend %s unavailable: %v", devID.Backend, err)
	}
	if devID.Index >= backend.DeviceCount() {
		t.Skipf("%s requires %d device(s), have %d", id, devID.Index+1, backend.DeviceCount())
	}
	return must.M1(backend.Device(devID.Index))
}

// ExpectEqual asserts that got has the shape, dtype and exact values of want.
func ExpectEqual(t testing.TB, want, got *tensor.RawTensor) {
	t.Helper()
	require.Equal(t, want.Shape().String(), got.Shape().String(), "shape")
	require.Equal(t, want.DType(), got.DType(), "dtype")
	assert.Equal(t, want.ToFloat64(), got.ToFloat64())
}

// ExpectAllClose asserts |got-want| <= atol + rtol*|want| element-wise.
// NaNs compare equal to NaNs.
func ExpectAllClose(t testing.TB, want, got *tensor.RawTensor, atol, rtol float64) {
	t.Helper()
	require.Equal(t, want.Shape().String(), got.Shape().String(), "shape")
	w, g := want.ToFloat64(), got.ToFloat64()
	for i := range w {
		if math.IsNaN(w[i]) && math.IsNaN(g[i]) {
			continue
		}
		if math.Abs(g[i]-w[i]) > atol+rtol*math.Abs(w[i]) {
			t.Errorf("element %d: got %g, want %g (atol %g, rtol %g)", i, g[i], w[i], atol, rtol)
		}
	}
}
