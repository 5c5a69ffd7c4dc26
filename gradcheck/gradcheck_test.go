// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package gradcheck_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshimuraKazumasa/chainer/autodiff"
	_ "github.com/YoshimuraKazumasa/chainer/backend/native"
	"github.com/YoshimuraKazumasa/chainer/gradcheck"
	"github.com/YoshimuraKazumasa/chainer/tensor"
)

func array(t *testing.T, values []float64, shape tensor.Shape) *autodiff.Array {
	t.Helper()
	raw, err := tensor.FromFloat64(values, shape, tensor.Float64, nil)
	require.NoError(t, err)
	return autodiff.New(raw)
}

func filled(t *testing.T, v float64, shape tensor.Shape) *autodiff.Array {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float64, nil)
	require.NoError(t, err)
	raw.Fill(v)
	return autodiff.New(raw)
}

func TestCheckBackward(t *testing.T) {
	cube := func(in []*autodiff.Array) []*autodiff.Array {
		return []*autodiff.Array{autodiff.Mul(autodiff.Square(in[0]), in[0])}
	}
	x := array(t, []float64{-1, 0.5, 2}, tensor.Shape{3}).RequireGrad(autodiff.DefaultGraphID)
	gy := array(t, []float64{1, -2, 0.5}, tensor.Shape{3})
	eps := filled(t, 1e-4, tensor.Shape{3})

	err := gradcheck.CheckBackward(cube, []*autodiff.Array{x}, []*autodiff.Array{gy}, []*autodiff.Array{eps},
		1e-6, 1e-5, autodiff.DefaultGraphID)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{3, -1.5, 6}, x.Grad(autodiff.DefaultGraphID).Raw().ToFloat64(), 1e-12)
}

func TestCheckBackward_Failure(t *testing.T) {
	// Backward of exp claimed to be the identity.
	wrong := func(in []*autodiff.Array) []*autodiff.Array {
		x := in[0]
		y := autodiff.New(autodiff.Exp(x.AsConstant()).Raw())
		autodiff.SetUpOpNodes("wrong_exp", []*autodiff.Array{x}, y, []autodiff.BackwardFunc{
			func(gy *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array { return gy },
		})
		return []*autodiff.Array{y}
	}
	x := array(t, []float64{1, 2}, tensor.Shape{2}).RequireGrad(autodiff.DefaultGraphID)
	gy := array(t, []float64{1, 1}, tensor.Shape{2})
	eps := filled(t, 1e-4, tensor.Shape{2})

	err := gradcheck.CheckBackward(wrong, []*autodiff.Array{x}, []*autodiff.Array{gy}, []*autodiff.Array{eps},
		1e-6, 1e-5, autodiff.DefaultGraphID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gradcheck.ErrGradientCheck))

	var gcErr *gradcheck.GradientCheckError
	require.True(t, errors.As(err, &gcErr))
	assert.Equal(t, 0, gcErr.InputIndex)
	assert.Equal(t, 0, gcErr.ScalarIndex)
	assert.InDelta(t, 2.718281828, gcErr.Numerical, 1e-6)
}

func TestCheckDoubleBackward(t *testing.T) {
	tanh := func(in []*autodiff.Array) []*autodiff.Array {
		return []*autodiff.Array{autodiff.Tanh(in[0])}
	}
	x := array(t, []float64{-0.5, 0.25, 1}, tensor.Shape{3})
	gy := array(t, []float64{1, 0.5, -1}, tensor.Shape{3})
	ggx := array(t, []float64{0.3, -0.2, 1}, tensor.Shape{3})
	eps := []*autodiff.Array{
		filled(t, 1e-4, tensor.Shape{3}),
		filled(t, 1e-4, tensor.Shape{3}),
	}

	err := gradcheck.CheckDoubleBackward(tanh, []*autodiff.Array{x}, []*autodiff.Array{gy}, []*autodiff.Array{ggx},
		eps, 1e-6, 1e-5, autodiff.NewGraphID())
	assert.NoError(t, err)
}

func TestNumericalGradient(t *testing.T) {
	square := func(in []*autodiff.Array) []*autodiff.Array {
		return []*autodiff.Array{autodiff.Square(in[0])}
	}
	x := array(t, []float64{1, -2}, tensor.Shape{2})
	gy := array(t, []float64{1, 1}, tensor.Shape{2})
	eps := filled(t, 1e-3, tensor.Shape{2})

	grads, err := gradcheck.NumericalGradient(square, []*autodiff.Array{x}, []*autodiff.Array{gy}, []*autodiff.Array{eps})
	require.NoError(t, err)
	require.Len(t, grads, 1)
	assert.InDeltaSlice(t, []float64{2, -4}, grads[0].Raw().ToFloat64(), 1e-9)
	assert.Equal(t, []float64{1, -2}, x.Raw().ToFloat64())
}
