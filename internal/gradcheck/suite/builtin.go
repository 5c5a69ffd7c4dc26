package suite

import (
	_ "embed"

	"github.com/janpfeifer/must"
)

//go:embed builtin.yaml
var builtinSuite []byte

// Builtin returns the checks of every built-in operation.
func Builtin() *Suite {
	return must.M1(Parse(builtinSuite))
}
