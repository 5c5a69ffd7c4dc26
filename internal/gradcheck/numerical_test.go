package gradcheck_test

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshimuraKazumasa/chainer/internal/arraytest"
	"github.com/YoshimuraKazumasa/chainer/internal/autodiff"
	"github.com/YoshimuraKazumasa/chainer/internal/autodiff/ops"
	"github.com/YoshimuraKazumasa/chainer/internal/gradcheck"
	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

func TestNumericalGradient_Square(t *testing.T) {
	shape := tensor.Shape{2, 2}
	x := array64(shape, 1, -2, 0.5, 3)
	gy := array64(shape, 1, 2, -1, 0.5)
	eps := array64(shape, 1e-3, 1e-3, 1e-3, 1e-3)

	grads, err := gradcheck.NumericalGradient(square, arrays(x), arrays(gy), arrays(eps))
	require.NoError(t, err)
	require.Len(t, grads, 1)
	// 2 * x * gy
	want := arraytest.BuildArray(shape).WithDtype(tensor.Float64).WithData(2, -8, -1, 3).Build()
	arraytest.ExpectAllClose(t, want, grads[0].Raw(), 1e-9, 1e-9)
	assert.Equal(t, tensor.Float64, grads[0].DType())
}

func TestNumericalGradient_ZeroEpsilon(t *testing.T) {
	shape := tensor.Shape{3}
	calls := 0
	grads, err := gradcheck.NumericalGradient(countCalls(square, &calls), arrays(array64(shape, 1, 2, 3)),
		arrays(array64(shape, 1, 1, 1)), arrays(array64(shape, 0, 1e-3, 0)))
	require.NoError(t, err)
	got := grads[0].Raw().ToFloat64()
	assert.Equal(t, 0.0, got[0])
	assert.InDelta(t, 4.0, got[1], 1e-9)
	assert.Equal(t, 0.0, got[2])
	assert.Equal(t, 2, calls)
}

func TestNumericalGradient_Linearity(t *testing.T) {
	fn := func(in []*autodiff.Array) []*autodiff.Array {
		return arrays(ops.Tanh(ops.Mul(in[0], in[1])), ops.Exp(in[0]))
	}
	shape := tensor.Shape{2, 3}
	build := func(start, step float64) *autodiff.Array {
		return autodiff.New(arraytest.BuildArray(shape).WithDtype(tensor.Float64).WithLinearData(start, step).Build())
	}
	inputs := arrays(build(-0.6, 0.25), build(0.4, -0.15))
	eps := arrays(build(1e-4, 0), build(1e-4, 0))
	gy1 := arrays(build(1, -0.3), build(0.5, 0.1))
	gy2 := arrays(build(-2, 0.7), build(0.2, 0.2))

	const alpha, beta = 2.0, -3.0
	combined := make([]*autodiff.Array, len(gy1))
	for j := range gy1 {
		combined[j] = ops.Add(ops.MulScalar(gy1[j], alpha), ops.MulScalar(gy2[j], beta))
	}

	g1, err := gradcheck.NumericalGradient(fn, inputs, gy1, eps)
	require.NoError(t, err)
	g2, err := gradcheck.NumericalGradient(fn, inputs, gy2, eps)
	require.NoError(t, err)
	g, err := gradcheck.NumericalGradient(fn, inputs, combined, eps)
	require.NoError(t, err)

	for i := range inputs {
		want := ops.Add(ops.MulScalar(g1[i], alpha), ops.MulScalar(g2[i], beta))
		arraytest.ExpectAllClose(t, want.Raw(), g[i].Raw(), 1e-9, 1e-9)
	}
}

func TestNumericalGradient_RestoresInputs(t *testing.T) {
	snapshot := func(a *autodiff.Array) [][]byte {
		out := make([][]byte, a.Raw().NumElements())
		for i := range out {
			out[i] = a.Raw().ElementBytes(i)
		}
		return out
	}
	assertUnchanged := func(t *testing.T, want [][]byte, a *autodiff.Array) {
		t.Helper()
		for i, b := range snapshot(a) {
			if !bytes.Equal(want[i], b) {
				t.Errorf("element %d changed: %v -> %v", i, want[i], b)
			}
		}
	}

	shape := tensor.Shape{2, 3}
	for _, dtype := range []tensor.DataType{tensor.Float16, tensor.Bfloat16, tensor.Float32, tensor.Float64} {
		t.Run(dtype.String(), func(t *testing.T) {
			build := func(start, step float64) *autodiff.Array {
				return autodiff.New(arraytest.BuildArray(shape).WithDtype(dtype).WithLinearData(start, step).Build())
			}
			x := autodiff.New(arraytest.BuildArray(shape).WithDtype(dtype).WithPadding(1).WithLinearData(0.1, 0.3).Build())
			before := snapshot(x)

			t.Run("Success", func(t *testing.T) {
				_, err := gradcheck.NumericalGradient(square, arrays(x), arrays(build(1, 0)), arrays(build(0.125, 0)))
				require.NoError(t, err)
				assertUnchanged(t, before, x)
			})

			t.Run("ForwardPanics", func(t *testing.T) {
				calls := 0
				fn := func(in []*autodiff.Array) []*autodiff.Array {
					calls++
					if calls == 4 {
						panic(errors.New("boom"))
					}
					return square(in)
				}
				_, err := gradcheck.NumericalGradient(fn, arrays(x), arrays(build(1, 0)), arrays(build(0.125, 0)))
				require.Error(t, err)
				assert.Contains(t, err.Error(), "boom")
				assertUnchanged(t, before, x)
			})
		})
	}
}

func TestNumericalGradient_HalfPrecision(t *testing.T) {
	// Steps and values are chosen so every intermediate is exact in 8 mantissa bits.
	for _, dtype := range []tensor.DataType{tensor.Float16, tensor.Bfloat16} {
		t.Run(dtype.String(), func(t *testing.T) {
			build := func(values ...float64) *autodiff.Array {
				return autodiff.New(arraytest.BuildArray(tensor.Shape{2}).WithDtype(dtype).WithData(values...).Build())
			}
			grads, err := gradcheck.NumericalGradient(square, arrays(build(0.5, 1)), arrays(build(1, 1)), arrays(build(0.125, 0.125)))
			require.NoError(t, err)
			assert.Equal(t, dtype, grads[0].DType())
			assert.Equal(t, []float64{1, 2}, grads[0].Raw().ToFloat64())
		})
	}
}

func TestNumericalGradient_Errors(t *testing.T) {
	shape := tensor.Shape{2}
	x := array64(shape, 1, 2)
	gy := array64(shape, 1, 1)
	eps := array64(shape, 1e-3, 1e-3)

	t.Run("EpsCount", func(t *testing.T) {
		_, err := gradcheck.NumericalGradient(square, arrays(x), arrays(gy), nil)
		assert.True(t, errors.Is(err, tensor.ErrShapeMismatch), "got %v", err)
	})

	t.Run("OutputCount", func(t *testing.T) {
		_, err := gradcheck.NumericalGradient(square, arrays(x), arrays(gy, gy), arrays(eps))
		assert.True(t, errors.Is(err, tensor.ErrShapeMismatch), "got %v", err)
	})

	t.Run("IntegerUpstream", func(t *testing.T) {
		gyInt := autodiff.New(arraytest.BuildArray(shape).WithDtype(tensor.Int64).WithData(1, 1).Build())
		_, err := gradcheck.NumericalGradient(square, arrays(x), arrays(gyInt), arrays(eps))
		assert.True(t, errors.Is(err, tensor.ErrDtype), "got %v", err)
	})

	t.Run("NondeterministicOutputCount", func(t *testing.T) {
		calls := 0
		fn := func(in []*autodiff.Array) []*autodiff.Array {
			calls++
			if calls > 1 {
				return arrays(ops.Square(in[0]), ops.Square(in[0]))
			}
			return square(in)
		}
		_, err := gradcheck.NumericalGradient(fn, arrays(x), arrays(gy), arrays(eps))
		assert.True(t, errors.Is(err, gradcheck.ErrNondeterministicForward), "got %v", err)
	})

	t.Run("NondeterministicOutputShape", func(t *testing.T) {
		calls := 0
		fn := func(in []*autodiff.Array) []*autodiff.Array {
			calls++
			if calls > 2 {
				return arrays(ops.Sum(in[0]))
			}
			return square(in)
		}
		_, err := gradcheck.NumericalGradient(fn, arrays(x), arrays(gy), arrays(eps))
		assert.True(t, errors.Is(err, gradcheck.ErrNondeterministicForward), "got %v", err)
	})
}

func TestNumericalGradient_DoesNotRecord(t *testing.T) {
	shape := tensor.Shape{2}
	x := array64(shape, 1, 2).RequireGrad()
	var seen []*autodiff.Array
	fn := func(in []*autodiff.Array) []*autodiff.Array {
		seen = append(seen, in[0])
		return square(in)
	}
	_, err := gradcheck.NumericalGradient(fn, arrays(x), arrays(array64(shape, 1, 1)), arrays(array64(shape, 1e-3, 1e-3)))
	require.NoError(t, err)
	require.NotEmpty(t, seen)
	for _, in := range seen {
		assert.NotSame(t, x, in)
		assert.Empty(t, in.GraphIDs())
	}
	assert.Nil(t, x.Grad(autodiff.DefaultGraphID))
}
