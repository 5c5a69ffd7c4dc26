package autodiff

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

// arrayNode is the attachment of an array to one graph.
type arrayNode struct {
	requiresGrad bool
	grad         *Array
	creator      *OpNode // nil for leaves
}

// Array is a tensor value with optional autograd attachments, one per graph.
type Array struct {
	raw   *tensor.RawTensor
	nodes map[GraphID]*arrayNode
}

// New wraps raw without any graph attachment.
func New(raw *tensor.RawTensor) *Array {
	return &Array{raw: raw}
}

// Raw returns the underlying tensor.
func (a *Array) Raw() *tensor.RawTensor { return a.raw }

// Shape returns the array's shape.
func (a *Array) Shape() tensor.Shape { return a.raw.Shape() }

// DType returns the array's data type.
func (a *Array) DType() tensor.DataType { return a.raw.DType() }

// Device returns the device owning the array's storage.
func (a *Array) Device() tensor.Device { return a.raw.Device() }

// At returns logical element i as float64.
func (a *Array) At(i int) float64 { return a.raw.At(i) }

// SetAt stores v at logical element i.
func (a *Array) SetAt(i int, v float64) { a.raw.SetAt(i, v) }

// String renders the array values.
func (a *Array) String() string { return a.raw.String() }

func (a *Array) node(id GraphID) *arrayNode {
	if a.nodes == nil {
		return nil
	}
	return a.nodes[id]
}

func (a *Array) ensureNode(id GraphID) *arrayNode {
	if a.nodes == nil {
		a.nodes = make(map[GraphID]*arrayNode)
	}
	n, ok := a.nodes[id]
	if !ok {
		n = &arrayNode{}
		a.nodes[id] = n
	}
	return n
}

// RequireGrad marks a as requiring gradient on the given graphs (the default
// graph if none is given) and returns a. Only floating arrays can require
// gradient; other dtypes panic with ErrDtype.
func (a *Array) RequireGrad(ids ...GraphID) *Array {
	if !a.DType().IsFloat() {
		panic(errors.Wrapf(tensor.ErrDtype, "array of dtype %s cannot require gradient", a.DType()))
	}
	for _, id := range graphsOrDefault(ids) {
		a.ensureNode(id).requiresGrad = true
	}
	return a
}

// IsGradRequired reports whether a requires gradient on id, either because
// it was marked with RequireGrad or because it was computed from such arrays.
func (a *Array) IsGradRequired(id GraphID) bool {
	n := a.node(id)
	return n != nil && n.requiresGrad
}

// Creator returns the op node that produced a on id, or nil for leaves.
func (a *Array) Creator(id GraphID) *OpNode {
	if n := a.node(id); n != nil {
		return n.creator
	}
	return nil
}

// GraphIDs lists, sorted, the graphs a is attached to.
func (a *Array) GraphIDs() []GraphID {
	ids := make([]GraphID, 0, len(a.nodes))
	for id := range a.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Grad returns the gradient accumulated on id, or nil.
func (a *Array) Grad(id GraphID) *Array {
	if n := a.node(id); n != nil {
		return n.grad
	}
	return nil
}

// SetGrad sets the gradient on id. A nil grad clears it.
func (a *Array) SetGrad(grad *Array, id GraphID) error {
	if grad != nil {
		if !grad.Shape().Equal(a.Shape()) {
			return errors.Wrapf(tensor.ErrShapeMismatch, "gradient of shape %s for array of shape %s", grad.Shape(), a.Shape())
		}
		if grad.DType() != a.DType() {
			return errors.Wrapf(tensor.ErrDtype, "gradient of dtype %s for array of dtype %s", grad.DType(), a.DType())
		}
	}
	a.ensureNode(id).grad = grad
	return nil
}

// ClearGrad drops the gradient accumulated on id.
func (a *Array) ClearGrad(id GraphID) {
	if n := a.node(id); n != nil {
		n.grad = nil
	}
}

// Copy returns a deep copy of the values, detached from every graph.
func (a *Array) Copy() *Array {
	return New(a.raw.Copy())
}

// AsConstant returns an array sharing a's storage but detached from every graph.
func (a *Array) AsConstant() *Array {
	return New(a.raw.Clone())
}
