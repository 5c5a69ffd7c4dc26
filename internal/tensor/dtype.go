// Package tensor provides the dense array storage, dtype tags and device
// abstraction shared by every backend and by the autodiff engine.
package tensor

import (
	"strings"

	"github.com/d4l3k/go-bfloat16"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// DType is a constraint for supported tensor element types.
// It uses Go generics to ensure compile-time type safety.
type DType interface {
	~float32 | ~float64 | ~int8 | ~int32 | ~int64 | ~uint8 | ~bool | float16.Float16 | bfloat16.BF16
}

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types for tensors.
const (
	Bool DataType = iota
	Int8
	Int32
	Int64
	Uint8
	Float16
	Bfloat16
	Float32
	Float64
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Bool, Int8, Uint8:
		return 1
	case Float16, Bfloat16:
		return 2
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Bool:
		return "bool"
	case Int8:
		return "int8"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Float16:
		return "float16"
	case Bfloat16:
		return "bfloat16"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "unknown"
	}
}

// IsFloat reports whether values of the type can be differentiated.
func (dt DataType) IsFloat() bool {
	switch dt {
	case Float16, Bfloat16, Float32, Float64:
		return true
	default:
		return false
	}
}

// ParseDataType parses the name returned by DataType.String.
func ParseDataType(name string) (DataType, error) {
	for dt := Bool; dt <= Float64; dt++ {
		if strings.EqualFold(dt.String(), name) {
			return dt, nil
		}
	}
	return 0, errors.Wrapf(ErrDtype, "unknown dtype %q", name)
}

// DataTypeOf returns the DataType matching the Go type T.
func DataTypeOf[T DType]() DataType {
	var dummy T
	switch any(dummy).(type) {
	case bool:
		return Bool
	case int8:
		return Int8
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case float16.Float16:
		return Float16
	case bfloat16.BF16:
		return Bfloat16
	case float32:
		return Float32
	case float64:
		return Float64
	default:
		panic("unsupported type")
	}
}

// CheckFloat fails with ErrDtype unless every tensor has the same floating dtype.
func CheckFloat(tensors ...*RawTensor) error {
	if len(tensors) == 0 {
		return nil
	}
	dtype := tensors[0].DType()
	for i, t := range tensors {
		if !t.DType().IsFloat() {
			return errors.Wrapf(ErrDtype, "tensor %d has non-floating dtype %s", i, t.DType())
		}
		if t.DType() != dtype {
			return errors.Wrapf(ErrDtype, "tensor %d has dtype %s, expected %s", i, t.DType(), dtype)
		}
	}
	return nil
}
