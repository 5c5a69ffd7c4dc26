package autodiff

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

type backwardOptions struct {
	doubleBackprop bool
	retainGrad     bool
	stopAtInputs   bool
}

// BackwardOption configures Backward and Grad.
type BackwardOption func(*backwardOptions)

// WithDoubleBackprop keeps recording op nodes while backward closures run,
// so the computed gradients can be differentiated again.
func WithDoubleBackprop() BackwardOption {
	return func(o *backwardOptions) { o.doubleBackprop = true }
}

// WithRetainGrad also stores gradients on intermediate arrays.
func WithRetainGrad() BackwardOption {
	return func(o *backwardOptions) { o.retainGrad = true }
}

// WithStopAtInputs makes Grad treat its inputs as leaves: traversal does
// not continue into the operations that produced them. Backward ignores it.
func WithStopAtInputs() BackwardOption {
	return func(o *backwardOptions) { o.stopAtInputs = true }
}

func newBackwardOptions(opts []BackwardOption) backwardOptions {
	var o backwardOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Backward back-propagates from outputs on graphID and accumulates the
// result into Grad(graphID) of every leaf that requires gradient. The seed
// of each output is its own Grad(graphID), or ones when unset.
func Backward(outputs []*Array, graphID GraphID, opts ...BackwardOption) error {
	o := newBackwardOptions(opts)
	seeds := make([]*Array, len(outputs))
	isOutput := make(map[*Array]bool, len(outputs))
	for i, out := range outputs {
		seeds[i] = out.Grad(graphID)
		isOutput[out] = true
	}

	grads, err := runBackward(outputs, seeds, graphID, o, nil)
	if err != nil {
		return err
	}

	for arr, g := range grads {
		n := arr.node(graphID)
		if n == nil || (n.creator != nil && !o.retainGrad) {
			continue
		}
		if n.grad != nil && !isOutput[arr] {
			if err := Catch(func() { g = accumulateGrad(n.grad, g) }); err != nil {
				return errors.WithMessagef(err, "accumulate gradient on %s", graphID)
			}
		}
		n.grad = g
	}
	return nil
}

// Grad returns the gradients of outputs with respect to inputs on graphID
// without modifying Grad of any array. seeds may be nil or hold nil
// entries, which stand for ones. Inputs not reached get a nil gradient.
func Grad(outputs, inputs, seeds []*Array, graphID GraphID, opts ...BackwardOption) ([]*Array, error) {
	if seeds == nil {
		seeds = make([]*Array, len(outputs))
	}
	if len(seeds) != len(outputs) {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "%d seeds for %d outputs", len(seeds), len(outputs))
	}
	o := newBackwardOptions(opts)
	var stop map[*Array]bool
	if o.stopAtInputs {
		stop = make(map[*Array]bool, len(inputs))
		for _, in := range inputs {
			stop[in] = true
		}
	}
	grads, err := runBackward(outputs, seeds, graphID, o, stop)
	if err != nil {
		return nil, err
	}
	result := make([]*Array, len(inputs))
	for i, in := range inputs {
		result[i] = grads[in]
	}
	klog.V(3).Infof("grad on %s: %d outputs, %d inputs", graphID, len(outputs), len(inputs))
	return result, nil
}

// onesLike returns a constant array of ones shaped like a.
func onesLike(a *Array) *Array {
	raw := tensor.MustNewRaw(a.Shape(), a.DType(), a.Device())
	raw.Fill(1)
	return New(raw)
}

func identityGrad(gout *Array, _ []GraphID) *Array { return gout }

// accumulateGrad returns a+b, recorded on the tape when recording is enabled.
func accumulateGrad(a, b *Array) *Array {
	out := New(a.Device().Add(a.raw, b.raw))
	SetUpOpNodes("accumulate_grad", []*Array{a, b}, out, []BackwardFunc{identityGrad, identityGrad})
	return out
}
