package suite

import (
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/YoshimuraKazumasa/chainer/internal/autodiff"
	"github.com/YoshimuraKazumasa/chainer/internal/gradcheck"
	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

// Result is the outcome of one case.
type Result struct {
	Name     string
	Passed   bool
	Skipped  bool
	Err      error // error returned by the check, if any
	Duration time.Duration
}

// Run executes the cases of s one after the other.
func Run(s *Suite) []Result {
	results := make([]Result, 0, len(s.Cases))
	for _, c := range s.Cases {
		r := RunCase(c)
		switch {
		case r.Skipped:
			klog.V(1).Infof("case %s skipped: %v", r.Name, r.Err)
		case r.Passed:
			klog.V(1).Infof("case %s passed in %s", r.Name, r.Duration)
		default:
			klog.V(1).Infof("case %s failed: %v", r.Name, r.Err)
		}
		results = append(results, r)
	}
	return results
}

// RunCase executes a single case. A case expecting failure passes only when
// the check reports a gradient mismatch; any other error fails it.
func RunCase(c Case) Result {
	r := Result{Name: c.Name}
	device, err := resolveDevice(c.Device)
	if err != nil {
		r.Skipped = true
		r.Err = err
		return r
	}
	defer tensor.UseDevice(device)()

	start := time.Now()
	r.Err = check(c, device)
	r.Duration = time.Since(start)
	if c.Expect == ExpectFail {
		r.Passed = errors.Is(r.Err, gradcheck.ErrGradientCheck)
	} else {
		r.Passed = r.Err == nil
	}
	return r
}

func resolveDevice(name string) (tensor.Device, error) {
	if name == "" {
		return tensor.DefaultDevice(), nil
	}
	id, err := tensor.ParseDeviceID(name)
	if err != nil {
		return nil, err
	}
	return tensor.GetDevice(id)
}

func check(c Case, device tensor.Device) error {
	fn, ok := Lookup(c.Function)
	if !ok {
		return errors.Errorf("unknown function %q", c.Function)
	}
	dtype, err := tensor.ParseDataType(c.DType)
	if err != nil {
		return err
	}
	build := func(what string, specs []ArraySpec) ([]*autodiff.Array, error) {
		arrays := make([]*autodiff.Array, len(specs))
		for i, spec := range specs {
			raw, err := c.build(spec, dtype, device)
			if err != nil {
				return nil, errors.WithMessagef(err, "%s %d", what, i)
			}
			arrays[i] = autodiff.New(raw)
		}
		return arrays, nil
	}

	inputs, err := build("input", c.Inputs)
	if err != nil {
		return err
	}
	gradOutputs, err := build("grad_output", c.GradOutputs)
	if err != nil {
		return err
	}
	eps, err := build("eps", c.Eps)
	if err != nil {
		return err
	}
	graph := autodiff.GraphID(c.Graph)

	if c.Double {
		gradGradInputs, err := build("grad_grad_input", c.GradGradInputs)
		if err != nil {
			return err
		}
		return gradcheck.CheckDoubleBackward(fn, inputs, gradOutputs, gradGradInputs, eps, c.Atol, c.Rtol, graph)
	}
	if c.requiresGrad() {
		for _, x := range inputs {
			x.RequireGrad(graph)
		}
	}
	return gradcheck.CheckBackward(fn, inputs, gradOutputs, eps, c.Atol, c.Rtol, graph)
}
