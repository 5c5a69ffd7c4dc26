// Package ops defines the differentiable operations on autodiff arrays.
//
// Each operation computes its result with the kernels of the inputs' device
// and registers an op node whose backward closures are written with the
// operations of this package, so gradients are differentiable again under
// autodiff.WithDoubleBackprop.
//
// Supported operations:
//   - Add, Sub, Mul, Div: element-wise with broadcasting
//   - Neg, MulScalar, AddScalar, Square: element-wise
//   - Exp, Log, Tanh: element-wise transcendental functions
//   - Sum, SumTo, BroadcastTo: reductions and their adjoint
//   - Transpose, Dot: matrix operations (d(A@B)/dA = grad@B^T, d(A@B)/dB = A^T@grad)
package ops

import (
	"github.com/YoshimuraKazumasa/chainer/internal/autodiff"
	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

// record wraps raw as the output of the operation and registers its backward closures.
func record(name string, raw *tensor.RawTensor, inputs []*autodiff.Array, backward ...autodiff.BackwardFunc) *autodiff.Array {
	out := autodiff.New(raw)
	autodiff.SetUpOpNodes(name, inputs, out, backward)
	return out
}
