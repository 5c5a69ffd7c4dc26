package ops

import "github.com/YoshimuraKazumasa/chainer/internal/autodiff"

// Div returns a / b with broadcasting.
//
// Backward pass:
//   - grad_a = outputGrad / b
//   - grad_b = -outputGrad * a / b²
func Div(a, b *autodiff.Array) *autodiff.Array {
	return record("div", a.Device().Div(a.Raw(), b.Raw()), []*autodiff.Array{a, b},
		func(gout *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array {
			return reduceBroadcast(Div(gout, b), a.Shape())
		},
		func(gout *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array {
			return reduceBroadcast(Neg(Div(Mul(gout, a), Mul(b, b))), b.Shape())
		})
}
