package gradcheck

import (
	"math"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/YoshimuraKazumasa/chainer/internal/autodiff"
	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

type options struct {
	absoluteFallback float64
}

// Option configures CheckBackward and CheckDoubleBackward.
type Option func(*options)

// WithAbsoluteFallback compares the elements whose numerical gradient is
// smaller than threshold in magnitude with an absolute tolerance of
// threshold, when that is looser than atol + rtol*|numerical|.
func WithAbsoluteFallback(threshold float64) Option {
	return func(o *options) { o.absoluteFallback = threshold }
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// tolerance returns the largest |analytical - numerical| accepted for numerical.
func (o options) tolerance(numerical, atol, rtol float64) float64 {
	tol := atol + rtol*math.Abs(numerical)
	if math.Abs(numerical) < o.absoluteFallback {
		tol = max(tol, o.absoluteFallback)
	}
	return tol
}

// CheckBackward compares the gradients that the backward closures recorded
// by fn produce on graphID with central-difference estimates.
//
// Gradients are checked for the inputs that require gradient on graphID,
// against the upstream gradients gradOutputs; eps holds the finite
// difference steps, shaped like inputs. Elements must satisfy
// |analytical - numerical| <= atol + rtol*|numerical|, otherwise a
// *GradientCheckError is returned. When no input requires gradient on
// graphID, fn runs once and the check succeeds.
//
// An input that requires gradient but receives none from backward is
// compared as if its gradient were zero; the error then says so.
//
// Accumulated gradients of the inputs on graphID are replaced by the
// analytical ones; their values are left untouched. Inputs are treated as
// leaves, so no gradient reaches the arrays they were computed from.
func CheckBackward(fn Forward, inputs, gradOutputs, eps []*autodiff.Array, atol, rtol float64,
	graphID autodiff.GraphID, opts ...Option) error {
	c := &checker{fn: fn, atol: atol, rtol: rtol, graphID: graphID, opts: newOptions(opts)}
	return c.run(inputs, gradOutputs, eps)
}

type checker struct {
	fn         Forward
	atol, rtol float64
	graphID    autodiff.GraphID
	opts       options

	// recordNumerical lets numerical replays record op nodes, which
	// forward functions that differentiate internally depend on.
	recordNumerical bool
}

func (c *checker) run(inputs, gradOutputs, eps []*autodiff.Array) error {
	if c.atol < 0 || c.rtol < 0 || math.IsNaN(c.atol) || math.IsNaN(c.rtol) {
		return errors.Errorf("tolerances must be nonnegative, got atol=%g rtol=%g", c.atol, c.rtol)
	}
	if err := validate(inputs, gradOutputs, eps); err != nil {
		return err
	}
	if len(inputs) > 0 {
		defer tensor.UseDevice(inputs[0].Device())()
	}

	required := make([]bool, len(inputs))
	anyRequired := false
	for i, x := range inputs {
		if x.IsGradRequired(c.graphID) {
			required[i] = true
			anyRequired = true
			x.ClearGrad(c.graphID)
		}
	}

	var outputs []*autodiff.Array
	if err := autodiff.Catch(func() { outputs = c.fn(inputs) }); err != nil {
		return errors.WithMessage(err, "forward")
	}
	if !anyRequired {
		klog.V(1).Infof("gradient check on %s skipped: no input requires gradient", c.graphID)
		return nil
	}
	if err := checkOutputs(outputs, gradOutputs); err != nil {
		return err
	}

	analytical, err := c.analytical(inputs, outputs, gradOutputs, required)
	if err != nil {
		return err
	}

	numerical, err := numericalGradient(c.numericalForward(), inputs, gradOutputs, eps, required)
	if err != nil {
		return err
	}
	defer func() {
		for _, g := range numerical {
			g.Raw().Release()
		}
	}()

	for i := range inputs {
		if !required[i] {
			continue
		}
		if err := c.compare(i, analytical[i], numerical[i]); err != nil {
			klog.V(1).Infof("gradient check on %s failed: %v", c.graphID, err)
			return err
		}
	}
	klog.V(1).Infof("gradient check on %s passed for %d inputs", c.graphID, len(inputs))
	return nil
}

// analytical back-propagates gradOutputs on the checked graph down to the
// inputs, which are treated as leaves even when an earlier operation
// produced them. Only the gradients of the required inputs are stored.
func (c *checker) analytical(inputs, outputs, gradOutputs []*autodiff.Array, required []bool) ([]*autodiff.Array, error) {
	grads, err := autodiff.Grad(outputs, inputs, gradOutputs, c.graphID, autodiff.WithStopAtInputs())
	if err != nil {
		return nil, errors.WithMessage(err, "backward")
	}
	for i, x := range inputs {
		if !required[i] {
			grads[i] = nil
			continue
		}
		if grads[i] == nil {
			klog.V(1).Infof("input %d requires gradient on %s but backward produced none; comparing as zeros", i, c.graphID)
			continue
		}
		if err := x.SetGrad(grads[i], c.graphID); err != nil {
			return nil, errors.WithMessagef(err, "input %d", i)
		}
	}
	return grads, nil
}

func (c *checker) numericalForward() Forward {
	if c.recordNumerical {
		return c.fn
	}
	return func(inputs []*autodiff.Array) []*autodiff.Array {
		defer autodiff.NoBackprop()()
		return c.fn(inputs)
	}
}

func (c *checker) compare(i int, analytical, numerical *autodiff.Array) error {
	n := numerical.Raw().ToFloat64()
	a := make([]float64, len(n))
	if analytical != nil {
		a = analytical.Raw().ToFloat64()
	}
	for k := range n {
		tol := c.opts.tolerance(n[k], c.atol, c.rtol)
		if !(math.Abs(a[k]-n[k]) <= tol) {
			return &GradientCheckError{
				InputIndex:  i,
				ScalarIndex: k,
				Analytical:  a[k],
				Numerical:   n[k],
				Tolerance:   tol,
				Missing:     analytical == nil,
			}
		}
	}
	return nil
}
