// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package autodiff

import (
	"github.com/YoshimuraKazumasa/chainer/internal/autodiff/ops"
	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

// Differentiable routines. Binary routines broadcast their operands.

func Add(a, b *Array) *Array { return ops.Add(a, b) }
func Sub(a, b *Array) *Array { return ops.Sub(a, b) }
func Mul(a, b *Array) *Array { return ops.Mul(a, b) }
func Div(a, b *Array) *Array { return ops.Div(a, b) }

func AddScalar(x *Array, s float64) *Array { return ops.AddScalar(x, s) }
func MulScalar(x *Array, s float64) *Array { return ops.MulScalar(x, s) }

func Neg(x *Array) *Array    { return ops.Neg(x) }
func Square(x *Array) *Array { return ops.Square(x) }
func Exp(x *Array) *Array    { return ops.Exp(x) }
func Log(x *Array) *Array    { return ops.Log(x) }
func Tanh(x *Array) *Array   { return ops.Tanh(x) }

// Dot multiplies two matrices.
func Dot(a, b *Array) *Array { return ops.Dot(a, b) }

// Transpose permutes the axes of x, reversing them when axes is empty.
func Transpose(x *Array, axes ...int) *Array { return ops.Transpose(x, axes...) }

// Sum reduces x to a scalar.
func Sum(x *Array) *Array { return ops.Sum(x) }

// SumTo sums x down to shape, undoing a broadcast.
func SumTo(x *Array, shape tensor.Shape) *Array { return ops.SumTo(x, shape) }

// BroadcastTo broadcasts x to shape.
func BroadcastTo(x *Array, shape tensor.Shape) *Array { return ops.BroadcastTo(x, shape) }
