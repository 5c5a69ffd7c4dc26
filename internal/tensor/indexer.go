package tensor

// Indexer maps a row-major logical index to an element offset inside a
// strided buffer.
type Indexer struct {
	shape   Shape
	strides []int
	offset  int
	contig  bool
}

// NewIndexer builds an indexer for the given layout. Strides and offset are
// in elements.
func NewIndexer(shape Shape, strides []int, offset int) Indexer {
	return Indexer{
		shape:   shape,
		strides: strides,
		offset:  offset,
		contig:  isContiguous(shape, strides),
	}
}

// Offset returns the element offset of logical index i.
func (ix Indexer) Offset(i int) int {
	if ix.contig {
		return ix.offset + i
	}
	off := ix.offset
	for d := len(ix.shape) - 1; d >= 0; d-- {
		dim := ix.shape[d]
		off += (i % dim) * ix.strides[d]
		i /= dim
	}
	return off
}

// Size returns the number of logical elements.
func (ix Indexer) Size() int {
	return ix.shape.NumElements()
}

func isContiguous(shape Shape, strides []int) bool {
	expected := 1
	for d := len(shape) - 1; d >= 0; d-- {
		if shape[d] != 1 && strides[d] != expected {
			return false
		}
		expected *= shape[d]
	}
	return true
}
