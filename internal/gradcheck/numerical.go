package gradcheck

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/floats"
	"k8s.io/klog/v2"

	"github.com/YoshimuraKazumasa/chainer/internal/autodiff"
	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

// Forward maps input arrays to output arrays. It must be deterministic.
type Forward func(inputs []*autodiff.Array) []*autodiff.Array

// NumericalGradient estimates, for every input x_i, the gradient of
// sum_j <gradOutputs[j], fn(inputs)[j]> with respect to x_i by central
// differences. eps[i] holds the step used for each element of inputs[i];
// a zero step yields a zero gradient element.
//
// fn is evaluated on copies of the inputs, so inputs are never written.
func NumericalGradient(fn Forward, inputs, gradOutputs, eps []*autodiff.Array) ([]*autodiff.Array, error) {
	return numericalGradient(fn, inputs, gradOutputs, eps, nil)
}

// numericalGradient estimates the gradients of the inputs selected by
// required, or of all inputs when required is nil. The others get zeros
// without fn being evaluated for them.
func numericalGradient(fn Forward, inputs, gradOutputs, eps []*autodiff.Array, required []bool) ([]*autodiff.Array, error) {
	if err := validate(inputs, gradOutputs, eps); err != nil {
		return nil, err
	}
	if len(inputs) > 0 {
		defer tensor.UseDevice(inputs[0].Device())()
	}

	est := &estimator{fn: fn, gradOutputs: gradOutputs, gy: make([][]float64, len(gradOutputs))}
	for j, gy := range gradOutputs {
		est.gy[j] = gy.Raw().ToFloat64()
	}

	working := make([]*autodiff.Array, len(inputs))
	for i, x := range inputs {
		working[i] = x.Copy()
	}
	defer func() {
		for _, w := range working {
			w.Raw().Release()
		}
	}()

	grads := make([]*autodiff.Array, 0, len(inputs))
	for i, x := range inputs {
		if required != nil && !required[i] {
			raw, err := tensor.NewRaw(x.Shape(), x.DType(), x.Device())
			if err != nil {
				for _, done := range grads {
					done.Raw().Release()
				}
				return nil, err
			}
			grads = append(grads, autodiff.New(raw))
			continue
		}
		g, err := est.inputGrad(working, i, eps[i])
		if err != nil {
			for _, done := range grads {
				done.Raw().Release()
			}
			return nil, errors.WithMessagef(err, "numerical gradient of input %d", i)
		}
		klog.V(2).Infof("numerical gradient of input %d %s: %d forward calls so far", i, x.Shape(), est.calls)
		grads = append(grads, g)
	}
	return grads, nil
}

// estimator replays fn on perturbed working copies.
type estimator struct {
	fn          Forward
	gradOutputs []*autodiff.Array
	gy          [][]float64

	// Shapes of the first evaluation; every replay must reproduce them.
	shapes []tensor.Shape
	calls  int
}

func (est *estimator) inputGrad(working []*autodiff.Array, i int, eps *autodiff.Array) (*autodiff.Array, error) {
	x := working[i].Raw()
	raw, err := tensor.NewRaw(x.Shape(), x.DType(), x.Device())
	if err != nil {
		return nil, err
	}
	p := newPerturber(x)
	for k, e := range eps.Raw().ToFloat64() {
		if e == 0 {
			raw.SetAt(k, 0)
			continue
		}
		s, err := est.centralDifference(working, p, k, e)
		if err != nil {
			raw.Release()
			return nil, errors.WithMessagef(err, "element %d", k)
		}
		raw.SetAt(k, s)
	}
	return autodiff.New(raw), nil
}

func (est *estimator) centralDifference(working []*autodiff.Array, p perturber, k int, e float64) (float64, error) {
	plus, err := est.evalShifted(working, p, k, e)
	if err != nil {
		return 0, err
	}
	minus, err := est.evalShifted(working, p, k, -e)
	if err != nil {
		return 0, err
	}
	var s float64
	for j := range plus {
		diff := make([]float64, len(plus[j]))
		floats.SubTo(diff, plus[j], minus[j])
		s += floats.Dot(est.gy[j], diff)
	}
	return s / (2 * e), nil
}

// evalShifted evaluates fn with element k shifted by delta. The element is
// restored before returning, whatever fn does.
func (est *estimator) evalShifted(working []*autodiff.Array, p perturber, k int, delta float64) ([][]float64, error) {
	p.shift(k, delta)
	defer p.restore(k)
	return est.eval(working)
}

func (est *estimator) eval(working []*autodiff.Array) ([][]float64, error) {
	var outputs []*autodiff.Array
	if err := autodiff.Catch(func() { outputs = est.fn(working) }); err != nil {
		return nil, errors.WithMessage(err, "forward")
	}
	est.calls++

	if est.shapes == nil {
		if err := checkOutputs(outputs, est.gradOutputs); err != nil {
			return nil, err
		}
		est.shapes = make([]tensor.Shape, len(outputs))
		for j, y := range outputs {
			est.shapes[j] = y.Shape().Clone()
		}
	} else {
		if len(outputs) != len(est.shapes) {
			return nil, errors.Wrapf(ErrNondeterministicForward, "call %d returned %d outputs, first call returned %d",
				est.calls, len(outputs), len(est.shapes))
		}
		for j, y := range outputs {
			if !y.Shape().Equal(est.shapes[j]) {
				return nil, errors.Wrapf(ErrNondeterministicForward, "call %d returned output %d of shape %s, first call returned %s",
					est.calls, j, y.Shape(), est.shapes[j])
			}
		}
	}

	values := make([][]float64, len(outputs))
	for j, y := range outputs {
		values[j] = y.Raw().ToFloat64()
	}
	return values, nil
}

// perturber shifts one element of a contiguous working copy and puts back
// its exact previous bits.
type perturber interface {
	shift(k int, delta float64)
	restore(k int)
}

func newPerturber(raw *tensor.RawTensor) perturber {
	switch raw.DType() {
	case tensor.Float32:
		return &typedPerturber[float32]{data: raw.AsFloat32()}
	case tensor.Float64:
		return &typedPerturber[float64]{data: raw.AsFloat64()}
	default:
		return &bitsPerturber{raw: raw}
	}
}

// typedPerturber adds the step in the element type itself.
type typedPerturber[T constraints.Float] struct {
	data  []T
	saved T
}

func (p *typedPerturber[T]) shift(k int, delta float64) {
	p.saved = p.data[k]
	p.data[k] = p.saved + T(delta)
}

func (p *typedPerturber[T]) restore(k int) {
	p.data[k] = p.saved
}

// bitsPerturber serves the half-precision types, which have no Go arithmetic.
type bitsPerturber struct {
	raw   *tensor.RawTensor
	saved []byte
}

func (p *bitsPerturber) shift(k int, delta float64) {
	p.saved = p.raw.ElementBytes(k)
	p.raw.SetAt(k, p.raw.At(k)+delta)
}

func (p *bitsPerturber) restore(k int) {
	p.raw.SetElementBytes(k, p.saved)
}

// validate checks everything that does not require running fn.
func validate(inputs, gradOutputs, eps []*autodiff.Array) error {
	if len(eps) != len(inputs) {
		return errors.Wrapf(tensor.ErrShapeMismatch, "%d eps arrays for %d inputs", len(eps), len(inputs))
	}
	raws := make([]*tensor.RawTensor, 0, len(inputs)+len(eps)+len(gradOutputs))
	for i, x := range inputs {
		if !eps[i].Shape().Equal(x.Shape()) {
			return errors.Wrapf(tensor.ErrShapeMismatch, "eps %d has shape %s, input has shape %s", i, eps[i].Shape(), x.Shape())
		}
		if err := tensor.CheckFloat(x.Raw(), eps[i].Raw()); err != nil {
			return errors.WithMessagef(err, "input %d and its eps", i)
		}
		raws = append(raws, x.Raw(), eps[i].Raw())
	}
	for j, gy := range gradOutputs {
		if err := tensor.CheckFloat(gy.Raw()); err != nil {
			return errors.WithMessagef(err, "output gradient %d", j)
		}
		raws = append(raws, gy.Raw())
	}
	return tensor.CheckDevicesCompatible(raws...)
}

// checkOutputs matches the outputs of fn against their upstream gradients.
func checkOutputs(outputs, gradOutputs []*autodiff.Array) error {
	if len(outputs) != len(gradOutputs) {
		return errors.Wrapf(tensor.ErrShapeMismatch, "forward returned %d outputs for %d output gradients",
			len(outputs), len(gradOutputs))
	}
	for j, y := range outputs {
		if !gradOutputs[j].Shape().Equal(y.Shape()) {
			return errors.Wrapf(tensor.ErrShapeMismatch, "output gradient %d has shape %s, output has shape %s",
				j, gradOutputs[j].Shape(), y.Shape())
		}
	}
	return nil
}

