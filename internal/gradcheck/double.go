package gradcheck

import (
	"github.com/pkg/errors"

	"github.com/YoshimuraKazumasa/chainer/internal/autodiff"
	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

// CheckDoubleBackward checks the gradients of the gradients of fn.
//
// It runs CheckBackward on h(X, gY) = d<gY, fn(X)>/dX, computed on graphID
// with double backprop, using gradGradInputs as the upstream gradients of
// h. eps holds the steps for the inputs followed by the steps for
// gradOutputs. The caller's arrays are not modified: h works on copies that
// require gradient on graphID.
func CheckDoubleBackward(fn Forward, inputs, gradOutputs, gradGradInputs, eps []*autodiff.Array,
	atol, rtol float64, graphID autodiff.GraphID, opts ...Option) error {
	n := len(inputs)
	if len(eps) != n+len(gradOutputs) {
		return errors.Wrapf(tensor.ErrShapeMismatch, "%d eps arrays for %d inputs and %d output gradients",
			len(eps), n, len(gradOutputs))
	}
	if len(gradGradInputs) != n {
		return errors.Wrapf(tensor.ErrShapeMismatch, "%d second order gradients for %d inputs", len(gradGradInputs), n)
	}

	args := make([]*autodiff.Array, 0, n+len(gradOutputs))
	for _, a := range append(append([]*autodiff.Array(nil), inputs...), gradOutputs...) {
		if !a.DType().IsFloat() {
			return errors.Wrapf(tensor.ErrDtype, "array of dtype %s cannot be differentiated", a.DType())
		}
		args = append(args, a.Copy().RequireGrad(graphID))
	}
	defer func() {
		for _, a := range args {
			a.Raw().Release()
		}
	}()

	c := &checker{
		fn:              firstOrderGrad(fn, n, graphID),
		atol:            atol,
		rtol:            rtol,
		graphID:         graphID,
		opts:            newOptions(opts),
		recordNumerical: true,
	}
	return c.run(args, gradGradInputs, eps)
}

// firstOrderGrad returns h(X, gY) = d<gY, fn(X)>/dX for args = X ++ gY. The
// result stays on the tape of graphID, so it can be differentiated again.
func firstOrderGrad(fn Forward, n int, graphID autodiff.GraphID) Forward {
	return func(args []*autodiff.Array) []*autodiff.Array {
		for _, a := range args {
			a.RequireGrad(graphID)
		}
		xs, gys := args[:n], args[n:]
		grads, err := autodiff.Grad(fn(xs), xs, gys, graphID, autodiff.WithDoubleBackprop())
		if err != nil {
			panic(errors.WithMessage(err, "first order backward"))
		}
		for i, g := range grads {
			if g == nil {
				// x does not reach any output: its gradient is identically zero.
				grads[i] = autodiff.New(tensor.MustNewRaw(xs[i].Shape(), xs[i].DType(), xs[i].Device()))
			}
		}
		return grads
	}
}
