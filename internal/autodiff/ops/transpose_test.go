package ops_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/YoshimuraKazumasa/chainer/internal/autodiff/ops"
	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

func TestTranspose_Backward(t *testing.T) {
	x := param(tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	w := constant(tensor.Shape{3, 2}, 1, 2, 3, 4, 5, 6)
	y := ops.Mul(ops.Transpose(x), w)
	assert.Equal(t, []float64{1, 8, 6, 20, 15, 36}, y.Raw().ToFloat64())

	// grad_x = w^T
	assert.Equal(t, []float64{1, 3, 5, 2, 4, 6}, gradients(t, y, x)[0])
}

func TestTranspose_Axes(t *testing.T) {
	x := param(tensor.Shape{1, 2, 3}, 1, 2, 3, 4, 5, 6)
	y := ops.Transpose(x, 2, 0, 1)
	assert.Equal(t, "(3, 1, 2)", y.Shape().String())
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, y.Raw().ToFloat64())
	assert.Equal(t, []float64{1, 1, 1, 1, 1, 1}, gradients(t, y, x)[0])
}

func TestDot_Backward(t *testing.T) {
	a := param(tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	b := param(tensor.Shape{3, 2}, 1, 2, -1, -3, 2, 4)
	y := ops.Dot(a, b)
	assert.Equal(t, []float64{5, 8, 11, 17}, y.Raw().ToFloat64())

	g := gradients(t, y, a, b)
	// ones(2,2) @ b^T: row sums of b
	assert.Equal(t, []float64{3, -4, 6, 3, -4, 6}, g[0])
	// a^T @ ones(2,2): column sums of a
	assert.Equal(t, []float64{5, 5, 7, 7, 9, 9}, g[1])

	assert.Panics(t, func() { ops.Dot(a, a) })
}
