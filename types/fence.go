package types

// Fence is an opaque synchronization handle, conceptually a Linux sync_file
// file descriptor. A zero-value Fence is never produced by the sync layer;
// use InvalidFence for "no fence".
type Fence int64

// InvalidFence represents the absence of a fence, e.g. a release fence
// slot after a frame dropped with CommitBusy (spec.md §4.4, §7).
const InvalidFence Fence = -1

// Valid reports whether f refers to a real fence.
func (f Fence) Valid() bool { return f >= 0 }
