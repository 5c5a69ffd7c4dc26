package suite

import (
	"fmt"
	"sort"
	"sync"

	"github.com/YoshimuraKazumasa/chainer/internal/autodiff"
	"github.com/YoshimuraKazumasa/chainer/internal/autodiff/ops"
	"github.com/YoshimuraKazumasa/chainer/internal/gradcheck"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]gradcheck.Forward{}
)

// Register makes fn available to suite cases under name. It panics if the
// name is taken.
func Register(name string, fn gradcheck.Forward) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("suite: function %q registered twice", name))
	}
	registry[name] = fn
}

// Lookup returns the function registered under name.
func Lookup(name string) (gradcheck.Forward, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := registry[name]
	return fn, ok
}

// Functions lists the registered function names, sorted.
func Functions() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func unary(op func(*autodiff.Array) *autodiff.Array) gradcheck.Forward {
	return func(in []*autodiff.Array) []*autodiff.Array {
		return []*autodiff.Array{op(in[0])}
	}
}

func binary(op func(a, b *autodiff.Array) *autodiff.Array) gradcheck.Forward {
	return func(in []*autodiff.Array) []*autodiff.Array {
		return []*autodiff.Array{op(in[0], in[1])}
	}
}

// IncorrectUnary copies its input but registers gout*gout as its gradient.
// Checks of it are expected to fail.
func IncorrectUnary(in []*autodiff.Array) []*autodiff.Array {
	x := in[0]
	out := autodiff.New(x.Raw().Copy())
	autodiff.SetUpOpNodes("incorrect_unary", []*autodiff.Array{x}, out, []autodiff.BackwardFunc{
		func(gout *autodiff.Array, _ []autodiff.GraphID) *autodiff.Array {
			return ops.Mul(gout, gout)
		},
	})
	return []*autodiff.Array{out}
}

func init() {
	Register("square", unary(func(x *autodiff.Array) *autodiff.Array { return ops.Mul(x, x) }))
	Register("neg", unary(ops.Neg))
	Register("exp", unary(ops.Exp))
	Register("log", unary(ops.Log))
	Register("tanh", unary(ops.Tanh))
	Register("sum", unary(ops.Sum))
	Register("transpose", unary(func(x *autodiff.Array) *autodiff.Array { return ops.Transpose(x) }))
	Register("add", binary(ops.Add))
	Register("sub", binary(ops.Sub))
	Register("mul", binary(ops.Mul))
	Register("div", binary(ops.Div))
	Register("dot", binary(ops.Dot))
	Register("incorrect_unary", IncorrectUnary)
}
