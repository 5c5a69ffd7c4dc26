package tensor

import "github.com/pkg/errors"

// Errors shared by devices, kernels and the autodiff engine.
var (
	ErrShapeMismatch  = errors.New("shape mismatch")
	ErrDtype          = errors.New("dtype error")
	ErrDeviceMismatch = errors.New("device mismatch")
	ErrInternal       = errors.New("internal error")
	ErrUnknownBackend = errors.New("unknown backend")
	ErrDeviceIndex    = errors.New("device index out of range")
)
