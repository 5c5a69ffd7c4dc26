package ops

import (
	"github.com/YoshimuraKazumasa/chainer/internal/autodiff"
	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

// reduceBroadcast reduces a gradient to the shape of the input it flows to.
// This is necessary when broadcasting was used in the forward pass.
//
// Example:
//
//	Forward: a[3,1] + b[3,4] -> c[3,4]  (a was broadcast along dim 1)
//	Backward: grad_c[3,4] -> grad_a[3,1] (sum along dim 1)
func reduceBroadcast(grad *autodiff.Array, target tensor.Shape) *autodiff.Array {
	if grad.Shape().Equal(target) {
		return grad
	}
	return SumTo(grad, target)
}

// inversePermutation returns the axes that undo a transpose by axes.
func inversePermutation(axes []int, ndim int) []int {
	if len(axes) == 0 {
		return nil // reversing twice is the identity
	}
	inv := make([]int, ndim)
	for i, ax := range axes {
		if ax < 0 {
			ax += ndim
		}
		inv[ax] = i
	}
	return inv
}
