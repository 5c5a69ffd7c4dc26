package ops

import "github.com/YoshimuraKazumasa/chainer/internal/autodiff"

// Tanh returns the hyperbolic tangent of x. grad_x = outputGrad * (1 - tanh²(x)).
func Tanh(x *autodiff.Array) *autodiff.Array {
	var out *autodiff.Array
	out = record("tanh", x.Device().Tanh(x.Raw()), []*autodiff.Array{x},
		func(gout *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array {
			return Mul(gout, AddScalar(Neg(Mul(out, out)), 1))
		})
	return out
}
