package native

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

// Dot computes the matrix product (M, K) @ (K, N) into out of shape (M, N).
// out may be a strided view, e.g. a window into a padded buffer; elements
// outside the view are left untouched.
func (k Kernels) Dot(a, b, out *tensor.RawTensor) {
	k.checkDevice("dot", a, b, out)
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(errors.Wrapf(tensor.ErrShapeMismatch, "dot: only 2D tensors supported, got %dD and %dD", len(aShape), len(bShape)))
	}
	m, kk := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]
	if kk != kAlt {
		panic(errors.Wrapf(tensor.ErrShapeMismatch, "dot: shape mismatch %s @ %s", aShape, bShape))
	}
	if !out.Shape().Equal(tensor.Shape{m, n}) {
		panic(errors.Wrapf(tensor.ErrShapeMismatch, "dot: out has shape %s, want (%d, %d)", out.Shape(), m, n))
	}
	if a.DType() != b.DType() || a.DType() != out.DType() {
		panic(errors.Wrapf(tensor.ErrDtype, "dot: dtypes %s, %s into %s", a.DType(), b.DType(), out.DType()))
	}

	a, b = a.AsContiguous(), b.AsContiguous()
	result := tensor.MustNewRaw(out.Shape(), out.DType(), k.dev)
	defer result.Release()

	switch a.DType() {
	case tensor.Float32:
		blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
			blas32.General{Rows: m, Cols: kk, Stride: kk, Data: a.AsFloat32()},
			blas32.General{Rows: kk, Cols: n, Stride: n, Data: b.AsFloat32()},
			0, blas32.General{Rows: m, Cols: n, Stride: n, Data: result.AsFloat32()})
	case tensor.Float64:
		blas64.Gemm(blas.NoTrans, blas.NoTrans, 1,
			blas64.General{Rows: m, Cols: kk, Stride: kk, Data: a.AsFloat64()},
			blas64.General{Rows: kk, Cols: n, Stride: n, Data: b.AsFloat64()},
			0, blas64.General{Rows: m, Cols: n, Stride: n, Data: result.AsFloat64()})
	default:
		// Reduced precision and integer types accumulate in float64.
		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				var sum float64
				for p := 0; p < kk; p++ {
					sum += a.At(i*kk+p) * b.At(p*n+j)
				}
				result.SetAt(i*n+j, sum)
			}
		}
	}

	if err := tensor.CopyInto(out, result); err != nil {
		panic(errors.WithMessage(err, "dot"))
	}
}
