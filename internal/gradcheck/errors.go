package gradcheck

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

var (
	// ErrGradientCheck is matched by every analytical/numerical disagreement.
	ErrGradientCheck = errors.New("gradient check failed")
	// ErrNondeterministicForward is returned when replays of the forward
	// function disagree on the number or shapes of their outputs.
	ErrNondeterministicForward = errors.New("nondeterministic forward function")
)

// GradientCheckError reports the first element whose analytical gradient
// is outside the tolerance of the numerical one.
type GradientCheckError struct {
	InputIndex  int
	ScalarIndex int
	Analytical  float64
	Numerical   float64
	Tolerance   float64
	// Missing is set when backward produced no gradient for the input.
	Missing     bool
}

func (e *GradientCheckError) Error() string {
	if e.Missing {
		return fmt.Sprintf("gradient check failed: input %d has no gradient from backward, numerical gradient at element %d is %g (tolerance %g)",
			e.InputIndex, e.ScalarIndex, e.Numerical, e.Tolerance)
	}
	return fmt.Sprintf("gradient check failed: input %d, element %d: analytical %g, numerical %g, |diff| %g > tolerance %g",
		e.InputIndex, e.ScalarIndex, e.Analytical, e.Numerical, math.Abs(e.Analytical-e.Numerical), e.Tolerance)
}

// Is makes errors.Is(err, ErrGradientCheck) true.
func (e *GradientCheckError) Is(target error) bool {
	return target == ErrGradientCheck
}
