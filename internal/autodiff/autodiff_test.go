package autodiff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshimuraKazumasa/chainer/internal/arraytest"
	"github.com/YoshimuraKazumasa/chainer/internal/autodiff"
	"github.com/YoshimuraKazumasa/chainer/internal/autodiff/ops"
	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

func newArray(shape tensor.Shape, values ...float64) *autodiff.Array {
	return autodiff.New(arraytest.BuildArray(shape).WithDtype(tensor.Float64).WithData(values...).Build())
}

func backward(t *testing.T, out *autodiff.Array, id autodiff.GraphID, opts ...autodiff.BackwardOption) {
	t.Helper()
	require.NoError(t, autodiff.Backward([]*autodiff.Array{out}, id, opts...))
}

func TestGraphID(t *testing.T) {
	a, b := autodiff.NewGraphID(), autodiff.NewGraphID()
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, autodiff.DefaultGraphID, a)
}

func TestRequireGrad(t *testing.T) {
	x := newArray(tensor.Shape{2}, 1, 2)
	assert.False(t, x.IsGradRequired(autodiff.DefaultGraphID))

	x.RequireGrad()
	assert.True(t, x.IsGradRequired(autodiff.DefaultGraphID))

	x.RequireGrad("graph_1", "graph_2")
	assert.Equal(t, []autodiff.GraphID{"default", "graph_1", "graph_2"}, x.GraphIDs())

	ints := autodiff.New(arraytest.BuildArray(tensor.Shape{2}).WithDtype(tensor.Int32).Build())
	assert.Panics(t, func() { ints.RequireGrad() })
}

func TestBackward_ChainRule(t *testing.T) {
	// y = (x + 2) * 3, dy/dx = 3
	x := newArray(tensor.Shape{1}, 5).RequireGrad()
	two := newArray(tensor.Shape{1}, 2)
	y := ops.MulScalar(ops.Add(x, two), 3)
	assert.Equal(t, 21.0, y.At(0))

	backward(t, y, autodiff.DefaultGraphID)
	require.NotNil(t, x.Grad(autodiff.DefaultGraphID))
	assert.Equal(t, 3.0, x.Grad(autodiff.DefaultGraphID).At(0))
	assert.Nil(t, two.Grad(autodiff.DefaultGraphID), "constants receive no gradient")
}

func TestBackward_Seed(t *testing.T) {
	x := newArray(tensor.Shape{1, 3}, 1, 2, 1).RequireGrad("graph_1")
	y := ops.Mul(x, x)
	require.NoError(t, y.SetGrad(newArray(tensor.Shape{1, 3}, 0, -2, 1), "graph_1"))

	backward(t, y, "graph_1")
	assert.Equal(t, []float64{0, -8, 2}, x.Grad("graph_1").Raw().ToFloat64())
}

func TestBackward_GradientAccumulation(t *testing.T) {
	x := newArray(tensor.Shape{2}, 1, 2).RequireGrad()

	backward(t, ops.MulScalar(x, 2), autodiff.DefaultGraphID)
	backward(t, ops.MulScalar(x, 3), autodiff.DefaultGraphID)
	assert.Equal(t, []float64{5, 5}, x.Grad(autodiff.DefaultGraphID).Raw().ToFloat64())

	x.ClearGrad(autodiff.DefaultGraphID)
	assert.Nil(t, x.Grad(autodiff.DefaultGraphID))
}

func TestBackward_DiamondGraph(t *testing.T) {
	// z = a*b + a with a = x + 1, b = 2x: dz/dx = b + 2a + 1 = 4x + 3
	x := newArray(tensor.Shape{1}, 3).RequireGrad()
	a := ops.AddScalar(x, 1)
	b := ops.MulScalar(x, 2)
	z := ops.Add(ops.Mul(a, b), a)

	backward(t, z, autodiff.DefaultGraphID)
	assert.Equal(t, 15.0, x.Grad(autodiff.DefaultGraphID).At(0))
	assert.Nil(t, a.Grad(autodiff.DefaultGraphID), "intermediate gradients are not retained by default")
}

func TestBackward_RetainGrad(t *testing.T) {
	x := newArray(tensor.Shape{1}, 3).RequireGrad()
	a := ops.MulScalar(x, 2)
	y := ops.Square(a)

	backward(t, y, autodiff.DefaultGraphID, autodiff.WithRetainGrad())
	assert.Equal(t, 12.0, a.Grad(autodiff.DefaultGraphID).At(0))
	assert.Equal(t, 24.0, x.Grad(autodiff.DefaultGraphID).At(0))
}

func TestMultiGraph_Independent(t *testing.T) {
	x := newArray(tensor.Shape{2}, 1, 2).RequireGrad("graph_A")
	w := newArray(tensor.Shape{2}, 3, 4).RequireGrad("graph_B")
	y := ops.Mul(x, w)

	assert.True(t, y.IsGradRequired("graph_A"))
	assert.True(t, y.IsGradRequired("graph_B"))
	assert.Equal(t, "mul", y.Creator("graph_A").Name())
	assert.NotSame(t, y.Creator("graph_A"), y.Creator("graph_B"))

	backward(t, y, "graph_B")
	assert.Nil(t, x.Grad("graph_A"), "backward on graph_B must not touch graph_A")
	assert.Equal(t, []float64{1, 2}, w.Grad("graph_B").Raw().ToFloat64())

	backward(t, y, "graph_A")
	assert.Equal(t, []float64{3, 4}, x.Grad("graph_A").Raw().ToFloat64())
	assert.Nil(t, w.Grad("graph_A"))
}

func TestBackward_UnknownGraph(t *testing.T) {
	x := newArray(tensor.Shape{2}, 1, 2).RequireGrad("graph_A")
	y := ops.Square(x)
	backward(t, y, "graph_B")
	assert.Nil(t, x.Grad("graph_A"))
	assert.Nil(t, x.Grad("graph_B"))
}

func TestNoBackprop(t *testing.T) {
	x := newArray(tensor.Shape{2}, 1, 2).RequireGrad("graph_A", "graph_B")

	func() {
		defer autodiff.NoBackprop()()
		y := ops.Square(x)
		assert.False(t, y.IsGradRequired("graph_A"))
		assert.False(t, y.IsGradRequired("graph_B"))
	}()

	func() {
		defer autodiff.NoBackprop("graph_A")()
		assert.False(t, autodiff.IsBackpropRequired("graph_A"))
		assert.True(t, autodiff.IsBackpropRequired("graph_B"))
		y := ops.Square(x)
		assert.False(t, y.IsGradRequired("graph_A"))
		assert.True(t, y.IsGradRequired("graph_B"))
	}()

	assert.True(t, autodiff.IsBackpropRequired("graph_A"))
	y := ops.Square(x)
	assert.True(t, y.IsGradRequired("graph_A"))
}

func TestNoBackprop_Nested(t *testing.T) {
	restoreOuter := autodiff.NoBackprop("graph_A")
	restoreInner := autodiff.NoBackprop()
	assert.False(t, autodiff.IsBackpropRequired("graph_B"))
	restoreInner()
	assert.True(t, autodiff.IsBackpropRequired("graph_B"))
	assert.False(t, autodiff.IsBackpropRequired("graph_A"))
	restoreOuter()
	assert.True(t, autodiff.IsBackpropRequired("graph_A"))
}

func TestAsConstant(t *testing.T) {
	x := newArray(tensor.Shape{2}, 1, 2).RequireGrad()
	c := x.AsConstant()
	assert.False(t, c.IsGradRequired(autodiff.DefaultGraphID))

	c.SetAt(0, 10)
	assert.Equal(t, 10.0, x.At(0), "AsConstant shares storage")

	cp := x.Copy()
	cp.SetAt(1, 20)
	assert.Equal(t, 2.0, x.At(1), "Copy does not share storage")
	assert.Empty(t, cp.GraphIDs())
}

func TestSetGrad_Validation(t *testing.T) {
	x := newArray(tensor.Shape{2}, 1, 2)
	assert.ErrorIs(t, x.SetGrad(newArray(tensor.Shape{3}, 1, 2, 3), autodiff.DefaultGraphID), tensor.ErrShapeMismatch)

	f32 := autodiff.New(arraytest.BuildArray(tensor.Shape{2}).Build())
	assert.ErrorIs(t, x.SetGrad(f32, autodiff.DefaultGraphID), tensor.ErrDtype)
}

func TestSetUpOpNodes_NilBackward(t *testing.T) {
	x := newArray(tensor.Shape{2}, 1, 2).RequireGrad()
	w := newArray(tensor.Shape{2}, 3, 4).RequireGrad()
	y := autodiff.New(x.Device().Add(x.Raw(), w.Raw()))
	autodiff.SetUpOpNodes("add_x_only", []*autodiff.Array{x, w}, y, []autodiff.BackwardFunc{
		func(gout *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array { return gout },
		nil,
	})

	backward(t, y, autodiff.DefaultGraphID)
	assert.Equal(t, []float64{1, 1}, x.Grad(autodiff.DefaultGraphID).Raw().ToFloat64())
	assert.Nil(t, w.Grad(autodiff.DefaultGraphID))
}

func TestBackward_Errors(t *testing.T) {
	t.Run("WrongShape", func(t *testing.T) {
		x := newArray(tensor.Shape{2}, 1, 2).RequireGrad()
		y := autodiff.New(x.Raw().Copy())
		autodiff.SetUpOpNodes("bad_shape", []*autodiff.Array{x}, y, []autodiff.BackwardFunc{
			func(*autodiff.Array, []autodiff.GraphID) *autodiff.Array { return newArray(tensor.Shape{3}, 1, 2, 3) },
		})
		err := autodiff.Backward([]*autodiff.Array{y}, autodiff.DefaultGraphID)
		assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
		assert.Contains(t, err.Error(), "bad_shape")
	})

	t.Run("Panic", func(t *testing.T) {
		x := newArray(tensor.Shape{2}, 1, 2).RequireGrad()
		y := autodiff.New(x.Raw().Copy())
		autodiff.SetUpOpNodes("explodes", []*autodiff.Array{x}, y, []autodiff.BackwardFunc{
			func(*autodiff.Array, []autodiff.GraphID) *autodiff.Array { panic("boom") },
		})
		err := autodiff.Backward([]*autodiff.Array{y}, autodiff.DefaultGraphID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("SeedShape", func(t *testing.T) {
		x := newArray(tensor.Shape{2}, 1, 2).RequireGrad()
		y := ops.Square(x)
		_, err := autodiff.Grad([]*autodiff.Array{y}, []*autodiff.Array{x},
			[]*autodiff.Array{newArray(tensor.Shape{1}, 1)}, autodiff.DefaultGraphID)
		assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
	})
}

func TestBackward_GraphIDsPassedToClosure(t *testing.T) {
	x := newArray(tensor.Shape{1}, 1).RequireGrad("graph_1")
	y := autodiff.New(x.Raw().Copy())
	var seen []autodiff.GraphID
	autodiff.SetUpOpNodes("identity", []*autodiff.Array{x}, y, []autodiff.BackwardFunc{
		func(gout *autodiff.Array, ids []autodiff.GraphID) *autodiff.Array {
			seen = ids
			return gout
		},
	})
	backward(t, y, "graph_1")
	assert.Equal(t, []autodiff.GraphID{"graph_1"}, seen)
}

func TestGrad_DoesNotTouchInputs(t *testing.T) {
	x := newArray(tensor.Shape{2}, 1, 2).RequireGrad()
	y := ops.Square(x)
	gs, err := autodiff.Grad([]*autodiff.Array{y}, []*autodiff.Array{x}, nil, autodiff.DefaultGraphID)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4}, gs[0].Raw().ToFloat64())
	assert.Nil(t, x.Grad(autodiff.DefaultGraphID))
	assert.False(t, gs[0].IsGradRequired(autodiff.DefaultGraphID), "gradients are constants without double backprop")
}

func TestGrad_StopAtInputs(t *testing.T) {
	calls := 0
	leaf := newArray(tensor.Shape{3}, 1, 2, 3).RequireGrad()
	x := autodiff.New(leaf.Raw().Copy())
	autodiff.SetUpOpNodes("counted_identity", []*autodiff.Array{leaf}, x, []autodiff.BackwardFunc{
		func(gout *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array {
			calls++
			return gout
		},
	})
	y := ops.Square(x)

	gs, err := autodiff.Grad([]*autodiff.Array{y}, []*autodiff.Array{x}, nil, autodiff.DefaultGraphID, autodiff.WithStopAtInputs())
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 6}, gs[0].Raw().ToFloat64())
	assert.Equal(t, 0, calls, "creator of a stop input must not run")

	gs, err = autodiff.Grad([]*autodiff.Array{y}, []*autodiff.Array{x, leaf}, nil, autodiff.DefaultGraphID)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 6}, gs[1].Raw().ToFloat64())
	assert.Equal(t, 1, calls)
	assert.Nil(t, leaf.Grad(autodiff.DefaultGraphID))
}

func TestGrad_RepeatedOutput(t *testing.T) {
	x := newArray(tensor.Shape{3}, 1, 2, 3).RequireGrad()
	y := ops.Square(x)
	seeds := []*autodiff.Array{newArray(tensor.Shape{3}, 1, 0, 0), newArray(tensor.Shape{3}, 0, 1, 0)}
	gs, err := autodiff.Grad([]*autodiff.Array{y, y}, []*autodiff.Array{x}, seeds, autodiff.DefaultGraphID)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 0}, gs[0].Raw().ToFloat64())
}

func TestCatch(t *testing.T) {
	assert.NoError(t, autodiff.Catch(func() {}))

	err := autodiff.Catch(func() { panic(tensor.ErrShapeMismatch) })
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	err = autodiff.Catch(func() { panic("boom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
