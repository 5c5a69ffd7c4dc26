package ops

import "github.com/YoshimuraKazumasa/chainer/internal/autodiff"

// Exp returns e^x. grad_x = outputGrad * e^x.
func Exp(x *autodiff.Array) *autodiff.Array {
	var out *autodiff.Array
	out = record("exp", x.Device().Exp(x.Raw()), []*autodiff.Array{x},
		func(gout *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array {
			return Mul(gout, out)
		})
	return out
}
