package ops

import "github.com/YoshimuraKazumasa/chainer/internal/autodiff"

// Mul returns a * b with broadcasting.
//
// Backward pass:
//   - d(a*b)/da = b, so grad_a = outputGrad * b
//   - d(a*b)/db = a, so grad_b = outputGrad * a
func Mul(a, b *autodiff.Array) *autodiff.Array {
	return record("mul", a.Device().Mul(a.Raw(), b.Raw()), []*autodiff.Array{a, b},
		func(gout *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array {
			return reduceBroadcast(Mul(gout, b), a.Shape())
		},
		func(gout *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array {
			return reduceBroadcast(Mul(gout, a), b.Shape())
		})
}

// MulScalar returns x * s.
func MulScalar(x *autodiff.Array, s float64) *autodiff.Array {
	return record("mul_scalar", x.Device().MulScalar(x.Raw(), s), []*autodiff.Array{x},
		func(gout *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array {
			return MulScalar(gout, s)
		})
}

// Square returns x * x. grad_x = 2 * x * outputGrad.
func Square(x *autodiff.Array) *autodiff.Array {
	return record("square", x.Device().Mul(x.Raw(), x.Raw()), []*autodiff.Array{x},
		func(gout *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array {
			return Mul(gout, MulScalar(x, 2))
		})
}
