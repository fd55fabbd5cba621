package bulk

// Buffer is a fixed-capacity byte region accumulating serialized write
// fragments between flushes. It tracks the boundary of every appended
// entry for bulk framing and is logically emptied by Reset rather than
// reallocated.
type Buffer struct {
	data       []byte
	length     int
	entrySizes []int
}

func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		data: make([]byte, capacity),
	}
}

func (b *Buffer) Capacity() int {
	return len(b.data)
}

// Available returns the remaining byte capacity before the next flush.
func (b *Buffer) Available() int {
	return len(b.data) - b.length
}

func (b *Buffer) Length() int {
	return b.length
}

// Entries returns the number of fragments appended since the last Reset.
func (b *Buffer) Entries() int {
	return len(b.entrySizes)
}

// EntrySizes returns the byte length of each buffered fragment, in append
// order. The slice is only valid until the next Append or Reset.
func (b *Buffer) EntrySizes() []int {
	return b.entrySizes
}

// Append copies one fragment into the buffer. Callers flush before
// appending a fragment larger than Available; a fragment exceeding the
// whole capacity grows the region once so a single record can never be
// dropped.
func (b *Buffer) Append(fragment []byte) {
	if need := b.length + len(fragment); need > len(b.data) {
		grown := make([]byte, need)
		copy(grown, b.data[:b.length])
		b.data = grown
	}

	copy(b.data[b.length:], fragment)
	b.length += len(fragment)
	b.entrySizes = append(b.entrySizes, len(fragment))
}

// Bytes returns the buffered region; valid until the next Append or Reset.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.length]
}

// Reset empties the buffer without releasing its backing array.
func (b *Buffer) Reset() {
	b.length = 0
	b.entrySizes = b.entrySizes[:0]
}
