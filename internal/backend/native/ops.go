package native

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"github.com/YoshimuraKazumasa/chainer/internal/parallel"
	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

// Kernels implements tensor.Kernels on the CPU. Results are allocated on
// the device passed to NewKernels, so other host-visible backends embed it.
type Kernels struct {
	dev tensor.Device
	cfg parallel.Config
}

// NewKernels binds the CPU kernels to dev.
func NewKernels(dev tensor.Device) Kernels {
	return Kernels{dev: dev, cfg: parallel.DefaultConfig()}
}

type number interface {
	constraints.Integer | constraints.Float
}

// binaryOp holds the typed instantiations of one element-wise operation.
// Types without an instantiation are computed through f64.
type binaryOp struct {
	name string
	f32  func(x, y float32) float32
	f64  func(x, y float64) float64
	i32  func(x, y int32) int32
	i64  func(x, y int64) int64
}

func add[T number](x, y T) T { return x + y }
func sub[T number](x, y T) T { return x - y }
func mul[T number](x, y T) T { return x * y }
func div[T number](x, y T) T { return x / y }

var (
	addOp = binaryOp{"add", add[float32], add[float64], add[int32], add[int64]}
	subOp = binaryOp{"sub", sub[float32], sub[float64], sub[int32], sub[int64]}
	mulOp = binaryOp{"mul", mul[float32], mul[float64], mul[int32], mul[int64]}
	divOp = binaryOp{"div", div[float32], div[float64], div[int32], div[int64]}
)

// Add performs element-wise addition with NumPy-style broadcasting.
func (k Kernels) Add(a, b *tensor.RawTensor) *tensor.RawTensor { return k.binary(addOp, a, b) }

// Sub performs element-wise subtraction with broadcasting.
func (k Kernels) Sub(a, b *tensor.RawTensor) *tensor.RawTensor { return k.binary(subOp, a, b) }

// Mul performs element-wise multiplication with broadcasting.
func (k Kernels) Mul(a, b *tensor.RawTensor) *tensor.RawTensor { return k.binary(mulOp, a, b) }

// Div performs element-wise division with broadcasting.
func (k Kernels) Div(a, b *tensor.RawTensor) *tensor.RawTensor { return k.binary(divOp, a, b) }

func (k Kernels) binary(op binaryOp, a, b *tensor.RawTensor) *tensor.RawTensor {
	k.checkDevice(op.name, a, b)
	if a.DType() != b.DType() {
		panic(errors.Wrapf(tensor.ErrDtype, "%s: dtype mismatch %s vs %s", op.name, a.DType(), b.DType()))
	}
	outShape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(errors.WithMessage(err, op.name))
	}
	result := tensor.MustNewRaw(outShape, a.DType(), k.dev)

	a, b = a.AsContiguous(), b.AsContiguous()
	aIx := tensor.NewIndexer(outShape, tensor.BroadcastStrides(a.Shape(), outShape), 0)
	bIx := tensor.NewIndexer(outShape, tensor.BroadcastStrides(b.Shape(), outShape), 0)

	switch a.DType() {
	case tensor.Float32:
		binaryLoop(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), aIx, bIx, op.f32, k.cfg)
	case tensor.Float64:
		binaryLoop(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), aIx, bIx, op.f64, k.cfg)
	case tensor.Int32:
		binaryLoop(result.AsInt32(), a.AsInt32(), b.AsInt32(), aIx, bIx, op.i32, k.cfg)
	case tensor.Int64:
		binaryLoop(result.AsInt64(), a.AsInt64(), b.AsInt64(), aIx, bIx, op.i64, k.cfg)
	default:
		n := outShape.NumElements()
		for i := 0; i < n; i++ {
			result.SetAt(i, op.f64(a.At(aIx.Offset(i)), b.At(bIx.Offset(i))))
		}
	}
	return result
}

func binaryLoop[T number](dst, a, b []T, aIx, bIx tensor.Indexer, f func(x, y T) T, cfg parallel.Config) {
	parallel.For(len(dst), func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = f(a[aIx.Offset(i)], b[bIx.Offset(i)])
		}
	}, cfg)
}

// unaryOp holds a float operation. Integer inputs are only accepted when
// integral is set.
type unaryOp struct {
	name     string
	f64      func(x float64) float64
	integral bool
}

// Neg computes -x.
func (k Kernels) Neg(x *tensor.RawTensor) *tensor.RawTensor {
	return k.unary(unaryOp{name: "neg", f64: func(v float64) float64 { return -v }, integral: true}, x)
}

// Exp computes element-wise exponential.
func (k Kernels) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return k.unary(unaryOp{name: "exp", f64: math.Exp}, x)
}

// Log computes element-wise natural logarithm. Non-positive inputs give NaN or -Inf.
func (k Kernels) Log(x *tensor.RawTensor) *tensor.RawTensor {
	return k.unary(unaryOp{name: "log", f64: math.Log}, x)
}

// Tanh computes element-wise hyperbolic tangent.
func (k Kernels) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	return k.unary(unaryOp{name: "tanh", f64: math.Tanh}, x)
}

// MulScalar computes x * s.
func (k Kernels) MulScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	return k.unary(unaryOp{name: "mul_scalar", f64: func(v float64) float64 { return v * s }, integral: true}, x)
}

// AddScalar computes x + s.
func (k Kernels) AddScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	return k.unary(unaryOp{name: "add_scalar", f64: func(v float64) float64 { return v + s }, integral: true}, x)
}

func (k Kernels) unary(op unaryOp, x *tensor.RawTensor) *tensor.RawTensor {
	k.checkDevice(op.name, x)
	if !op.integral && !x.DType().IsFloat() {
		panic(errors.Wrapf(tensor.ErrDtype, "%s: unsupported dtype %s (floating types only)", op.name, x.DType()))
	}
	result := tensor.MustNewRaw(x.Shape(), x.DType(), k.dev)
	x = x.AsContiguous()

	switch x.DType() {
	case tensor.Float32:
		src, dst := x.AsFloat32(), result.AsFloat32()
		parallel.For(len(dst), func(start, end int) {
			for i := start; i < end; i++ {
				dst[i] = float32(op.f64(float64(src[i])))
			}
		}, k.cfg)
	case tensor.Float64:
		src, dst := x.AsFloat64(), result.AsFloat64()
		parallel.For(len(dst), func(start, end int) {
			for i := start; i < end; i++ {
				dst[i] = op.f64(src[i])
			}
		}, k.cfg)
	default:
		n := x.NumElements()
		for i := 0; i < n; i++ {
			result.SetAt(i, op.f64(x.At(i)))
		}
	}
	return result
}

// checkDevice panics unless every tensor lives on the kernels' device.
func (k Kernels) checkDevice(op string, ts ...*tensor.RawTensor) {
	for i, t := range ts {
		if t.Device() != k.dev {
			panic(errors.Wrapf(tensor.ErrDeviceMismatch, "%s: operand %d is on %s, kernel runs on %s",
				op, i, t.Device().ID(), k.dev.ID()))
		}
	}
}
