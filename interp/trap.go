package interp

import "github.com/sile/nowasm/wasm"

// throw raises a trap by panicking; VM.exec recovers it and turns it
// back into a plain error at the Invoke boundary.
func throw(err error) {
	panic(wasm.NewTrap(err))
}
