package ops

import (
	"github.com/YoshimuraKazumasa/chainer/internal/autodiff"
	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

// Sum reduces every element of x into a scalar.
// The gradient broadcasts outputGrad back to the shape of x.
func Sum(x *autodiff.Array) *autodiff.Array {
	return record("sum", x.Device().Sum(x.Raw()), []*autodiff.Array{x},
		func(gout *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array {
			return BroadcastTo(gout, x.Shape())
		})
}

// SumTo sums x over broadcast dimensions so the result has shape.
func SumTo(x *autodiff.Array, shape tensor.Shape) *autodiff.Array {
	return record("sum_to", x.Device().SumTo(x.Raw(), shape), []*autodiff.Array{x},
		func(gout *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array {
			return BroadcastTo(gout, x.Shape())
		})
}

// BroadcastTo expands x to shape. The result is a read-only view.
func BroadcastTo(x *autodiff.Array, shape tensor.Shape) *autodiff.Array {
	return record("broadcast_to", x.Device().BroadcastTo(x.Raw(), shape), []*autodiff.Array{x},
		func(gout *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array {
			return reduceBroadcast(gout, x.Shape())
		})
}
