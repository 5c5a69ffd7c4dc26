package autodiff

import (
	"github.com/emirpasic/gods/queues/priorityqueue"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

// byRankDescending orders op nodes so that the highest rank is dequeued first.
func byRankDescending(a, b interface{}) int {
	return b.(*OpNode).rank - a.(*OpNode).rank
}

// runBackward propagates seeds from outputs through the op nodes of graphID
// and returns the gradient of every array reached. Arrays in stop receive
// their gradient but are not traversed past.
//
// Unless double backprop is requested, recording is disabled while backward
// closures run, so gradients are plain constants.
func runBackward(outputs, seeds []*Array, graphID GraphID, o backwardOptions, stop map[*Array]bool) (map[*Array]*Array, error) {
	if !o.doubleBackprop {
		defer NoBackprop()()
	}

	grads := make(map[*Array]*Array)
	queue := priorityqueue.NewWith(byRankDescending)
	queued := make(map[*OpNode]bool)
	enqueue := func(arr *Array) {
		if stop[arr] {
			return
		}
		if c := arr.Creator(graphID); c != nil && !queued[c] {
			queued[c] = true
			queue.Enqueue(c)
		}
	}

	for i, out := range outputs {
		if !out.IsGradRequired(graphID) {
			continue
		}
		seed := seeds[i]
		if seed == nil {
			if err := Catch(func() { seed = onesLike(out) }); err != nil {
				return nil, errors.WithMessagef(err, "seed output %d", i)
			}
		}
		if !seed.Shape().Equal(out.Shape()) {
			return nil, errors.Wrapf(tensor.ErrShapeMismatch, "seed %d has shape %s, output has shape %s", i, seed.Shape(), out.Shape())
		}
		if seed.DType() != out.DType() {
			return nil, errors.Wrapf(tensor.ErrDtype, "seed %d has dtype %s, output has dtype %s", i, seed.DType(), out.DType())
		}
		if err := accumulateInto(grads, out, seed); err != nil {
			return nil, err
		}
		enqueue(out)
	}

	for !queue.Empty() {
		v, _ := queue.Dequeue()
		node := v.(*OpNode)
		gout := grads[node.output]
		if gout == nil {
			continue
		}
		klog.V(3).Infof("backward %s on %s (rank %d)", node.name, graphID, node.rank)
		if err := computeInputGrads(node, gout, grads); err != nil {
			return nil, err
		}
		for _, in := range node.inputs {
			enqueue(in)
		}
	}
	return grads, nil
}

// computeInputGrads runs the backward closures of node for the inputs that
// require gradient on its graph.
func computeInputGrads(node *OpNode, gout *Array, grads map[*Array]*Array) error {
	graphIDs := []GraphID{node.graphID}
	for i, in := range node.inputs {
		fn := node.backwardFuncs[i]
		if fn == nil || !in.IsGradRequired(node.graphID) {
			continue
		}
		var gin *Array
		if err := Catch(func() { gin = fn(gout, graphIDs) }); err != nil {
			return errors.WithMessagef(err, "backward of %s for input %d", node.name, i)
		}
		if gin == nil {
			continue
		}
		if !gin.Shape().Equal(in.Shape()) {
			return errors.Wrapf(tensor.ErrShapeMismatch, "backward of %s returned gradient of shape %s for input %d of shape %s",
				node.name, gin.Shape(), i, in.Shape())
		}
		if gin.DType() != in.DType() {
			return errors.Wrapf(tensor.ErrDtype, "backward of %s returned gradient of dtype %s for input %d of dtype %s",
				node.name, gin.DType(), i, in.DType())
		}
		if err := accumulateInto(grads, in, gin); err != nil {
			return errors.WithMessagef(err, "backward of %s", node.name)
		}
	}
	return nil
}

func accumulateInto(grads map[*Array]*Array, arr, g *Array) error {
	prev, ok := grads[arr]
	if !ok {
		grads[arr] = g
		return nil
	}
	return Catch(func() { grads[arr] = accumulateGrad(prev, g) })
}

// Catch runs fn and converts a panic into an error. Forward functions and
// backward closures are user code and run through it.
func Catch(fn func()) error {
	switch e := exceptions.Try(fn).(type) {
	case nil:
		return nil
	case error:
		return e
	default:
		return errors.Errorf("%v", e)
	}
}
