package native

import (
	"github.com/pkg/errors"

	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

// BroadcastTo returns a view of x expanded to shape. Broadcast dimensions
// have stride 0, so the view must not be written to.
func (k Kernels) BroadcastTo(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	k.checkDevice("broadcast_to", x)
	if err := checkBroadcastable(x.Shape(), shape); err != nil {
		panic(errors.WithMessage(err, "broadcast_to"))
	}

	strides := make([]int, len(shape))
	pad := len(shape) - len(x.Shape())
	for i := range shape {
		in := i - pad
		if in < 0 || x.Shape()[in] == 1 {
			continue
		}
		strides[i] = x.Strides()[in]
	}
	view, err := tensor.NewRawStrided(x.Buffer(), shape, strides, x.Offset(), x.DType(), k.dev)
	if err != nil {
		panic(errors.WithMessage(err, "broadcast_to"))
	}
	return view
}

// Transpose returns a view of x with axes permuted. With no axes the order is reversed.
func (k Kernels) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	k.checkDevice("transpose", x)
	ndim := len(x.Shape())
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(errors.Wrapf(tensor.ErrShapeMismatch, "transpose: %d axes for %d-D tensor", len(axes), ndim))
	}

	seen := make([]bool, ndim)
	shape := make(tensor.Shape, ndim)
	strides := make([]int, ndim)
	for i, ax := range axes {
		if ax < 0 {
			ax += ndim
		}
		if ax < 0 || ax >= ndim || seen[ax] {
			panic(errors.Wrapf(tensor.ErrShapeMismatch, "transpose: invalid permutation %v", axes))
		}
		seen[ax] = true
		shape[i] = x.Shape()[ax]
		strides[i] = x.Strides()[ax]
	}
	view, err := tensor.NewRawStrided(x.Buffer(), shape, strides, x.Offset(), x.DType(), k.dev)
	if err != nil {
		panic(errors.WithMessage(err, "transpose"))
	}
	return view
}
