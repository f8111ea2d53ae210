package wasm

// Containers lets an embedder substitute two pieces of storage used
// while instantiating: the sequence that stages an Instance's
// module-defined functions, and each function's pc-to-BlockInfo table.
// Tables, memories, globals and the decoded Module always use plain Go
// slices.
//
// The zero value of Containers uses an ordinary Go slice and map, which is
// correct for all normal embeddings; implementing Sequence/Mapping
// only matters for the no-allocator or fixed-arena case described in
// the module's design notes.
type Containers struct {
	// NewFuncSeq, when set, stages an Instance's module-defined functions
	// before they are copied into Instance.Funcs. Left nil, they are
	// appended to Instance.Funcs directly.
	NewFuncSeq func(cap int) Sequence[*FunctionInstance]

	// NewBlockMap, when set, is used instead of a plain Go map to back a
	// FunctionInstance's pc-to-BlockInfo lookup table (instantiate.go's
	// per-function AnalyzeBlocks result). Left nil, a plain map is used
	// via NewBlockMap (the package-level constructor, not this field).
	NewBlockMap func(cap int) Mapping[BlockInfo]
}

// Sequence is an ordered, appendable collection of T, the capability a
// container provider must implement to replace []T.
type Sequence[T any] interface {
	Len() int
	At(i int) T
	Append(v T)
}

// Mapping is a small-integer-keyed collection of T, the capability a
// container provider must implement to replace map[uint32]T-shaped
// state such as a function's pc-to-BlockInfo table (see NewMappingBlockMap).
type Mapping[T any] interface {
	Get(key uint32) (T, bool)
	Set(key uint32, v T)
}

// sliceSequence is the default Sequence backed by a Go slice.
type sliceSequence[T any] struct{ s []T }

// NewSliceSequence returns a Sequence backed by a plain Go slice
// pre-allocated to cap. Instantiation does not call it when an embedder
// leaves NewFuncSeq nil (functions are then appended to a slice
// directly); it is exported so a custom provider can fall back to it for
// the spaces it does not want to special-case.
func NewSliceSequence[T any](cap int) Sequence[T] {
	return &sliceSequence[T]{s: make([]T, 0, cap)}
}

func (q *sliceSequence[T]) Len() int   { return len(q.s) }
func (q *sliceSequence[T]) At(i int) T { return q.s[i] }
func (q *sliceSequence[T]) Append(v T) { q.s = append(q.s, v) }

// mappingBlockMap adapts a Mapping[BlockInfo] (the substitutable
// small-integer-keyed container capability) to the narrower BlockMap a
// FunctionInstance actually needs.
type mappingBlockMap struct{ m Mapping[BlockInfo] }

func (b mappingBlockMap) Get(pc int) BlockInfo {
	v, _ := b.m.Get(uint32(pc))
	return v
}

// NewMappingBlockMap wraps a Mapping[BlockInfo] as a BlockMap, letting
// instantiate.go back a function's block table with a
// Containers.NewBlockMap-supplied Mapping instead of the default plain
// map NewBlockMap wraps.
func NewMappingBlockMap(m Mapping[BlockInfo]) BlockMap { return mappingBlockMap{m: m} }
