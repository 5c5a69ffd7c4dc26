// Package suite runs gradient checks described in YAML files.
//
// A suite file lists cases:
//
//	cases:
//	  - name: square
//	    function: square
//	    dtype: float32
//	    shape: [1, 3]
//	    inputs: [[1, 2, 1]]
//	    grad_outputs: [[0, -2, 1]]
//	    eps: [[1e-3]]
//	    atol: 1e-5
//	    rtol: 1e-4
//	    graph: graph_1
//
// An array is either a list of values, which takes the case shape, or a
// mapping with shape and data. A single value fills the whole array.
// Functions are looked up in the registry (see Register).
package suite

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/YoshimuraKazumasa/chainer/internal/autodiff"
	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

// Expectation is the outcome a case asserts.
type Expectation string

const (
	// ExpectPass asserts that the check succeeds.
	ExpectPass Expectation = "pass"
	// ExpectFail asserts that the check reports a gradient mismatch.
	ExpectFail Expectation = "fail"
)

// ArraySpec describes the shape and values of one array.
type ArraySpec struct {
	Shape []int     `yaml:"shape"`
	Data  []float64 `yaml:"data"`
}

// UnmarshalYAML accepts a plain list of values as well as a mapping.
func (a *ArraySpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		a.Shape = nil
		return node.Decode(&a.Data)
	}
	type plain ArraySpec
	if err := node.Decode((*plain)(a)); err != nil {
		return err
	}
	// shape: [] is a scalar, not a missing shape.
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "shape" && a.Shape == nil {
			a.Shape = []int{}
		}
	}
	return nil
}

// Case is one gradient check.
type Case struct {
	Name           string      `yaml:"name"`
	Function       string      `yaml:"function"`
	DType          string      `yaml:"dtype"`
	Device         string      `yaml:"device"`
	Shape          []int       `yaml:"shape"`
	Inputs         []ArraySpec `yaml:"inputs"`
	GradOutputs    []ArraySpec `yaml:"grad_outputs"`
	GradGradInputs []ArraySpec `yaml:"grad_grad_inputs"`
	Eps            []ArraySpec `yaml:"eps"`
	Atol           float64     `yaml:"atol"`
	Rtol           float64     `yaml:"rtol"`
	Graph          string      `yaml:"graph"`
	Double         bool        `yaml:"double"`
	RequiresGrad   *bool       `yaml:"requires_grad"`
	Expect         Expectation `yaml:"expect"`
}

// Suite is the content of a suite file.
type Suite struct {
	Cases []Case `yaml:"cases"`
}

// Load reads and parses a suite file.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read suite %s", path)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "suite %s", path)
	}
	return s, nil
}

// Parse decodes a suite, fills in defaults and validates every case.
func Parse(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "parse suite")
	}
	seen := make(map[string]bool, len(s.Cases))
	for i := range s.Cases {
		c := &s.Cases[i]
		if err := c.Validate(); err != nil {
			return nil, errors.WithMessagef(err, "case %d (%s)", i, c.Name)
		}
		if seen[c.Name] {
			return nil, errors.Errorf("case %d: duplicate name %q", i, c.Name)
		}
		seen[c.Name] = true
	}
	return &s, nil
}

// Validate fills in the defaults of c and checks it is runnable.
func (c *Case) Validate() error {
	if c.Name == "" {
		return errors.New("missing name")
	}
	if _, ok := Lookup(c.Function); !ok {
		return errors.Errorf("unknown function %q", c.Function)
	}
	if c.DType == "" {
		c.DType = tensor.Float32.String()
	}
	if _, err := tensor.ParseDataType(c.DType); err != nil {
		return err
	}
	if c.Device != "" {
		if _, err := tensor.ParseDeviceID(c.Device); err != nil {
			return err
		}
	}
	if c.Graph == "" {
		c.Graph = string(autodiff.DefaultGraphID)
	}
	switch c.Expect {
	case "":
		c.Expect = ExpectPass
	case ExpectPass, ExpectFail:
	default:
		return errors.Errorf("expect must be %q or %q, got %q", ExpectPass, ExpectFail, c.Expect)
	}
	if c.Double && c.RequiresGrad != nil && !*c.RequiresGrad {
		return errors.New("double backward checks always require gradient")
	}
	if len(c.Inputs) == 0 {
		return errors.New("no inputs")
	}
	wantEps := len(c.Inputs)
	if c.Double {
		wantEps += len(c.GradOutputs)
		if len(c.GradGradInputs) != len(c.Inputs) {
			return errors.Errorf("%d grad_grad_inputs for %d inputs", len(c.GradGradInputs), len(c.Inputs))
		}
	}
	if len(c.Eps) != wantEps {
		return errors.Errorf("%d eps arrays, want %d", len(c.Eps), wantEps)
	}
	return nil
}

// requiresGrad defaults to true.
func (c *Case) requiresGrad() bool {
	return c.RequiresGrad == nil || *c.RequiresGrad
}

// build creates the array described by a, defaulting to the case shape.
func (c *Case) build(a ArraySpec, dtype tensor.DataType, device tensor.Device) (*tensor.RawTensor, error) {
	shape := tensor.Shape(a.Shape)
	if a.Shape == nil {
		shape = tensor.Shape(c.Shape)
	}
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrap(tensor.ErrShapeMismatch, err.Error())
	}
	n := shape.NumElements()
	values := a.Data
	switch len(values) {
	case n:
	case 1:
		values = make([]float64, n)
		for i := range values {
			values[i] = a.Data[0]
		}
	default:
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "%d values for shape %s", len(values), shape)
	}
	return tensor.FromFloat64(values, shape.Clone(), dtype, device)
}
