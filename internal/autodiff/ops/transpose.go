package ops

import "github.com/YoshimuraKazumasa/chainer/internal/autodiff"

// Transpose permutes the axes of x; with no axes their order is reversed.
// The gradient is transposed back by the inverse permutation.
func Transpose(x *autodiff.Array, axes ...int) *autodiff.Array {
	inv := inversePermutation(axes, len(x.Shape()))
	return record("transpose", x.Device().Transpose(x.Raw(), axes...), []*autodiff.Array{x},
		func(gout *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array {
			return Transpose(gout, inv...)
		})
}
