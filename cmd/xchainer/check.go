package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/YoshimuraKazumasa/chainer/internal/gradcheck/suite"
	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check FUNCTION",
		Short: "Check the gradients of one function",
		Long: `Check the gradients of one function.

Arrays are given as comma separated values in row-major order and take the
shape given by --shape. A single value fills the whole array. Without
--grad-output, the upstream gradient is a single array of ones.`,
		Example: `  xchainer check square --shape 1,3 --input 1,2,1 --grad-output 0,-2,1
  xchainer check mul --dtype float64 --shape 2 --input 1,2 --input 3,4 --double`,
		Args: cobra.ExactArgs(1),
		RunE: checkHandler,
	}

	cmd.Flags().String("shape", "", "Shape of the arrays, e.g. 2,3")
	cmd.Flags().String("dtype", tensor.Float32.String(), "Element type")
	cmd.Flags().String("device", "", "Device to run on (default XCHAINER_DEFAULT_DEVICE)")
	cmd.Flags().StringArray("input", nil, "Input values (repeat for each input)")
	cmd.Flags().StringArray("grad-output", nil, "Upstream gradient values (repeat for each output)")
	cmd.Flags().StringArray("grad-grad-input", nil, "Second order upstream gradient values (repeat for each input)")
	cmd.Flags().Float64("eps", 1e-3, "Finite difference step")
	cmd.Flags().Float64("atol", 1e-5, "Absolute tolerance")
	cmd.Flags().Float64("rtol", 1e-4, "Relative tolerance")
	cmd.Flags().String("graph", "", "Graph to differentiate on (default \"default\")")
	cmd.Flags().Bool("double", false, "Check second order gradients")
	cmd.Flags().Bool("no-grad", false, "Do not require gradient on the inputs")
	cmd.Flags().Bool("expect-fail", false, "Succeed only if the gradients disagree")

	return cmd
}

func checkHandler(cmd *cobra.Command, args []string) error {
	c, err := caseFromFlags(cmd, args[0])
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	r := suite.RunCase(*c)
	switch {
	case r.Skipped:
		return errors.WithMessage(r.Err, "device unavailable")
	case !r.Passed && r.Err == nil:
		return errors.Errorf("%s: gradients agree but were expected to differ", c.Name)
	case !r.Passed:
		return r.Err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ok    %s    %s\n", c.Name, r.Duration)
	return nil
}

func caseFromFlags(cmd *cobra.Command, function string) (*suite.Case, error) {
	flags := cmd.Flags()
	c := &suite.Case{Name: function, Function: function}

	shape, err := flags.GetString("shape")
	if err != nil {
		return nil, err
	}
	s, err := tensor.ParseShape(shape)
	if err != nil {
		return nil, err
	}
	c.Shape = s

	if c.DType, err = flags.GetString("dtype"); err != nil {
		return nil, err
	}
	if c.Device, err = flags.GetString("device"); err != nil {
		return nil, err
	}
	if c.Graph, err = flags.GetString("graph"); err != nil {
		return nil, err
	}
	if c.Atol, err = flags.GetFloat64("atol"); err != nil {
		return nil, err
	}
	if c.Rtol, err = flags.GetFloat64("rtol"); err != nil {
		return nil, err
	}
	if c.Double, err = flags.GetBool("double"); err != nil {
		return nil, err
	}
	noGrad, err := flags.GetBool("no-grad")
	if err != nil {
		return nil, err
	}
	if noGrad {
		c.RequiresGrad = &[]bool{false}[0]
	}
	expectFail, err := flags.GetBool("expect-fail")
	if err != nil {
		return nil, err
	}
	if expectFail {
		c.Expect = suite.ExpectFail
	}

	for _, a := range []struct {
		flag string
		dst  *[]suite.ArraySpec
	}{
		{"input", &c.Inputs},
		{"grad-output", &c.GradOutputs},
		{"grad-grad-input", &c.GradGradInputs},
	} {
		values, err := flags.GetStringArray(a.flag)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			data, err := parseValues(v)
			if err != nil {
				return nil, errors.WithMessagef(err, "--%s", a.flag)
			}
			*a.dst = append(*a.dst, suite.ArraySpec{Data: data})
		}
	}
	if len(c.GradOutputs) == 0 {
		c.GradOutputs = []suite.ArraySpec{{Data: []float64{1}}}
	}

	eps, err := flags.GetFloat64("eps")
	if err != nil {
		return nil, err
	}
	n := len(c.Inputs)
	if c.Double {
		n += len(c.GradOutputs)
	}
	for range n {
		c.Eps = append(c.Eps, suite.ArraySpec{Data: []float64{eps}})
	}
	return c, nil
}

// parseValues parses "1,2.5,-3".
func parseValues(text string) ([]float64, error) {
	fields := strings.Split(text, ",")
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid value %q", f)
		}
		values[i] = v
	}
	return values, nil
}
