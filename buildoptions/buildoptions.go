// Package buildoptions centralizes compile-time tunables for the
// interpreter that would otherwise be scattered magic numbers.
package buildoptions

const (
	// IsDebugMode, when true, makes the interpreter print one line per
	// dispatched opcode to stderr. Never enable in embedded builds.
	IsDebugMode = false

	// CallStackHeightLimit bounds the depth of the frame stack; exceeding
	// it traps with ErrStackOverflow instead of growing forever.
	CallStackHeightLimit = 2000

	// MaxPages is the implementation cap on linear memory growth,
	// independent of any module-declared max: 65536 pages == 4 GiB.
	MaxPages = 65536
)
