package ops_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshimuraKazumasa/chainer/internal/arraytest"
	"github.com/YoshimuraKazumasa/chainer/internal/autodiff"
	"github.com/YoshimuraKazumasa/chainer/internal/autodiff/ops"
	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

// param returns a float64 array requiring gradient on the default graph.
func param(shape tensor.Shape, values ...float64) *autodiff.Array {
	raw := arraytest.BuildArray(shape).WithDtype(tensor.Float64).WithData(values...).Build()
	return autodiff.New(raw).RequireGrad()
}

// constant returns a float64 array attached to no graph.
func constant(shape tensor.Shape, values ...float64) *autodiff.Array {
	return autodiff.New(arraytest.BuildArray(shape).WithDtype(tensor.Float64).WithData(values...).Build())
}

// gradients of out, seeded with ones, with respect to inputs.
func gradients(t *testing.T, out *autodiff.Array, inputs ...*autodiff.Array) [][]float64 {
	t.Helper()
	gs, err := autodiff.Grad([]*autodiff.Array{out}, inputs, nil, autodiff.DefaultGraphID)
	require.NoError(t, err)
	values := make([][]float64, len(gs))
	for i, g := range gs {
		require.NotNil(t, g, "gradient %d", i)
		assert.Equal(t, inputs[i].Shape().String(), g.Shape().String())
		values[i] = g.Raw().ToFloat64()
	}
	return values
}

func TestAdd_Backward(t *testing.T) {
	a := param(tensor.Shape{3}, 1, 2, 3)
	b := param(tensor.Shape{3}, 4, 5, 6)
	y := ops.Add(a, b)
	assert.Equal(t, []float64{5, 7, 9}, y.Raw().ToFloat64())

	g := gradients(t, y, a, b)
	assert.Equal(t, []float64{1, 1, 1}, g[0])
	assert.Equal(t, []float64{1, 1, 1}, g[1])
}

func TestAdd_BroadcastBackward(t *testing.T) {
	a := param(tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	b := param(tensor.Shape{3}, 10, 20, 30)
	c := param(tensor.Shape{2, 1}, 100, 200)
	y := ops.Add(ops.Add(a, b), c)

	g := gradients(t, y, a, b, c)
	assert.Equal(t, []float64{1, 1, 1, 1, 1, 1}, g[0])
	assert.Equal(t, []float64{2, 2, 2}, g[1])
	assert.Equal(t, []float64{3, 3}, g[2])
}

func TestSub_Backward(t *testing.T) {
	a := param(tensor.Shape{2}, 5, 7)
	b := param(tensor.Shape{2}, 1, 2)
	g := gradients(t, ops.Sub(a, b), a, b)
	assert.Equal(t, []float64{1, 1}, g[0])
	assert.Equal(t, []float64{-1, -1}, g[1])
}

func TestMul_Backward(t *testing.T) {
	a := param(tensor.Shape{3}, 2, 3, 4)
	b := param(tensor.Shape{3}, 5, 6, 7)
	g := gradients(t, ops.Mul(a, b), a, b)
	assert.Equal(t, []float64{5, 6, 7}, g[0])
	assert.Equal(t, []float64{2, 3, 4}, g[1])
}

func TestMul_SameInputTwice(t *testing.T) {
	x := param(tensor.Shape{1, 3}, 1, 2, 1)
	g := gradients(t, ops.Mul(x, x), x)
	assert.Equal(t, []float64{2, 4, 2}, g[0])
}

func TestDiv_Backward(t *testing.T) {
	a := param(tensor.Shape{2}, 6, 8)
	b := param(tensor.Shape{2}, 2, 4)
	g := gradients(t, ops.Div(a, b), a, b)
	assert.Equal(t, []float64{0.5, 0.25}, g[0])
	assert.Equal(t, []float64{-1.5, -0.5}, g[1])
}

func TestScalarOps_Backward(t *testing.T) {
	x := param(tensor.Shape{2}, 1, -2)
	y := ops.AddScalar(ops.MulScalar(ops.Neg(x), 3), 1)
	assert.Equal(t, []float64{-2, 7}, y.Raw().ToFloat64())
	assert.Equal(t, []float64{-3, -3}, gradients(t, y, x)[0])

	sq := ops.Square(x)
	assert.Equal(t, []float64{1, 4}, sq.Raw().ToFloat64())
	assert.Equal(t, []float64{2, -4}, gradients(t, sq, x)[0])
}

func TestConstantInputs_NotRecorded(t *testing.T) {
	a := constant(tensor.Shape{2}, 1, 2)
	b := constant(tensor.Shape{2}, 3, 4)
	y := ops.Mul(a, b)
	assert.False(t, y.IsGradRequired(autodiff.DefaultGraphID))
	assert.Nil(t, y.Creator(autodiff.DefaultGraphID))
	assert.Empty(t, y.GraphIDs())
}
