// Package gradcheck verifies backward rules against finite differences.
//
// NumericalGradient estimates vector-Jacobian products of a forward
// function by central differences. CheckBackward runs the backward closures
// recorded by the forward function on one graph and compares their result
// element-wise with the estimate, using |a-n| <= atol + rtol*|n|.
// CheckDoubleBackward applies CheckBackward to the first order gradient
// itself, so the backward closures must be written with differentiable
// operations.
//
// Example:
//
//	square := func(in []*autodiff.Array) []*autodiff.Array {
//		return []*autodiff.Array{ops.Mul(in[0], in[0])}
//	}
//	x.RequireGrad("g")
//	err := gradcheck.CheckBackward(square, []*autodiff.Array{x}, []*autodiff.Array{gy},
//		[]*autodiff.Array{eps}, 1e-5, 1e-4, "g")
//
// Inputs are never written: numerical replays run on copies, and the copies
// are released on every return path, including panics of the forward
// function, which are returned as errors.
package gradcheck
