// Package image rebuilds a flat memory image from the address-annotated
// listing produced by the assembler.
package image

// Chunk is one run of emitted bytes at an address.
type Chunk struct {
	Address uint32
	Bytes   []byte
}

// End returns the address just past the chunk.
func (c Chunk) End() uint64 {
	return uint64(c.Address) + uint64(len(c.Bytes))
}

// Assemble concatenates chunks in the order given, zero-filling forward gaps
// between them. The cursor starts at the first chunk's address, so the image
// begins with that chunk's first byte. A chunk at or behind the cursor is
// appended without gap filling; overlaps are not corrected. After every chunk
// the cursor moves to the chunk's end address.
func Assemble(chunks []Chunk) []byte {
	if len(chunks) == 0 {
		return []byte{}
	}
	size := 0
	for _, c := range chunks {
		size += len(c.Bytes)
	}
	out := make([]byte, 0, size)

	cursor := uint64(chunks[0].Address)
	for _, c := range chunks {
		if addr := uint64(c.Address); addr > cursor {
			out = append(out, make([]byte, addr-cursor)...)
		}
		out = append(out, c.Bytes...)
		cursor = c.End()
	}
	return out
}
