package ops

import "github.com/YoshimuraKazumasa/chainer/internal/autodiff"

// Add returns a + b with broadcasting.
//
// Backward pass: grad_a = outputGrad, grad_b = outputGrad, each summed
// over the dimensions its input was broadcast along.
func Add(a, b *autodiff.Array) *autodiff.Array {
	return record("add", a.Device().Add(a.Raw(), b.Raw()), []*autodiff.Array{a, b},
		func(gout *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array {
			return reduceBroadcast(gout, a.Shape())
		},
		func(gout *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array {
			return reduceBroadcast(gout, b.Shape())
		})
}

// AddScalar returns x + s.
func AddScalar(x *autodiff.Array, s float64) *autodiff.Array {
	return record("add_scalar", x.Device().AddScalar(x.Raw(), s), []*autodiff.Array{x},
		func(gout *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array {
			return gout
		})
}
