package ops

import (
	"github.com/pkg/errors"

	"github.com/YoshimuraKazumasa/chainer/internal/autodiff"
	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

// Dot returns the matrix product of 2-D a (M, K) and b (K, N).
//
// Backward pass:
//   - grad_a = outputGrad @ b^T
//   - grad_b = a^T @ outputGrad
func Dot(a, b *autodiff.Array) *autodiff.Array {
	if len(a.Shape()) != 2 || len(b.Shape()) != 2 {
		panic(errors.Wrapf(tensor.ErrShapeMismatch, "dot: only 2D arrays supported, got %s and %s", a.Shape(), b.Shape()))
	}
	out := tensor.MustNewRaw(tensor.Shape{a.Shape()[0], b.Shape()[1]}, a.DType(), a.Device())
	a.Device().Dot(a.Raw(), b.Raw(), out)
	return record("dot", out, []*autodiff.Array{a, b},
		func(gout *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array {
			return Dot(gout, Transpose(b))
		},
		func(gout *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array {
			return Dot(Transpose(a), gout)
		})
}
