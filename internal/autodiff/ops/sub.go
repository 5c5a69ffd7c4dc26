package ops

import "github.com/YoshimuraKazumasa/chainer/internal/autodiff"

// Sub returns a - b with broadcasting.
func Sub(a, b *autodiff.Array) *autodiff.Array {
	return record("sub", a.Device().Sub(a.Raw(), b.Raw()), []*autodiff.Array{a, b},
		func(gout *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array {
			return reduceBroadcast(gout, a.Shape())
		},
		func(gout *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array {
			return reduceBroadcast(Neg(gout), b.Shape())
		})
}

// Neg returns -x.
func Neg(x *autodiff.Array) *autodiff.Array {
	return record("neg", x.Device().Neg(x.Raw()), []*autodiff.Array{x},
		func(gout *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array {
			return Neg(gout)
		})
}
