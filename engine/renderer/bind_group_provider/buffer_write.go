package bind_group_provider

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// Fits reports whether the write is 4-byte aligned, as WebGPU queue writes require, and lies
// inside a buffer of the given size.
//
// Parameters:
//   - size: the destination buffer size in bytes
//
// Returns:
//   - bool: true if the write can be issued
func (w BufferWrite) Fits(size uint64) bool {
	n := uint64(len(w.Data))
	return w.Offset%4 == 0 && n%4 == 0 && w.Offset+n <= size
}
