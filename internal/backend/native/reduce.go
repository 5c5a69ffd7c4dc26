package native

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

// Sum reduces all elements into a scalar of the same dtype.
// Accumulation happens in float64.
func (k Kernels) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	k.checkDevice("sum", x)
	result := tensor.MustNewRaw(tensor.Shape{}, x.DType(), k.dev)
	x = x.AsContiguous()

	var total float64
	switch x.DType() {
	case tensor.Float64:
		total = floats.Sum(x.AsFloat64())
	case tensor.Float32:
		for _, v := range x.AsFloat32() {
			total += float64(v)
		}
	default:
		total = floats.Sum(x.ToFloat64())
	}
	result.SetAt(0, total)
	return result
}

// SumTo sums x over the dimensions that broadcasting shape to x.Shape()
// would expand, so the result has exactly shape.
func (k Kernels) SumTo(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	k.checkDevice("sum_to", x)
	if err := checkBroadcastable(shape, x.Shape()); err != nil {
		panic(errors.WithMessage(err, "sum_to"))
	}
	if shape.Equal(x.Shape()) {
		return x.Copy()
	}

	acc := make([]float64, shape.NumElements())
	ix := tensor.NewIndexer(x.Shape(), tensor.BroadcastStrides(shape, x.Shape()), 0)
	src := x.AsContiguous()
	n := src.NumElements()
	switch src.DType() {
	case tensor.Float32:
		data := src.AsFloat32()
		for i := 0; i < n; i++ {
			acc[ix.Offset(i)] += float64(data[i])
		}
	case tensor.Float64:
		data := src.AsFloat64()
		for i := 0; i < n; i++ {
			acc[ix.Offset(i)] += data[i]
		}
	default:
		for i := 0; i < n; i++ {
			acc[ix.Offset(i)] += src.At(i)
		}
	}

	result := tensor.MustNewRaw(shape, x.DType(), k.dev)
	for i, v := range acc {
		result.SetAt(i, v)
	}
	return result
}

// checkBroadcastable fails unless from broadcasts to exactly to.
func checkBroadcastable(from, to tensor.Shape) error {
	out, _, err := tensor.BroadcastShapes(from, to)
	if err != nil {
		return err
	}
	if !out.Equal(to) {
		return errors.Wrapf(tensor.ErrShapeMismatch, "cannot broadcast %s to %s", from, to)
	}
	return nil
}
