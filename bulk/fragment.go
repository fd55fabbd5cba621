package bulk

import "io"

// Fragment is a reusable scratch region holding the wire form of exactly
// one write operation. Encoders write into it; the session copies it into
// the batch buffer and resets it for the next record.
type Fragment struct {
	buf []byte
}

var _ io.Writer = (*Fragment)(nil)

func (f *Fragment) Write(p []byte) (int, error) {
	f.buf = append(f.buf, p...)
	return len(p), nil
}

func (f *Fragment) WriteString(s string) {
	f.buf = append(f.buf, s...)
}

func (f *Fragment) Len() int {
	return len(f.buf)
}

// Bytes is valid until the next Write or Reset.
func (f *Fragment) Bytes() []byte {
	return f.buf
}

func (f *Fragment) Reset() {
	f.buf = f.buf[:0]
}

// FragmentEncoder turns a domain record into one bulk-request fragment.
// Implementations live with the host-framework serialization layer.
type FragmentEncoder interface {
	EncodeFragment(record interface{}, out *Fragment) error
}
