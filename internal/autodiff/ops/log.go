package ops

import "github.com/YoshimuraKazumasa/chainer/internal/autodiff"

// Log returns the natural logarithm of x. grad_x = outputGrad / x.
func Log(x *autodiff.Array) *autodiff.Array {
	return record("log", x.Device().Log(x.Raw()), []*autodiff.Array{x},
		func(gout *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array {
			return Div(gout, x)
		})
}
