package scroll

import "io"

// Record is one decoded document: its identifier and its body, shaped by
// whatever PageDecoder produced it.
type Record struct {
	ID  string
	Doc interface{}
}

// Page is one decoded scroll response page. ScrollID carries the cursor
// for the next continuation; servers may re-issue a new token per page.
type Page struct {
	ScrollID string
	Records  []Record
}

// PageDecoder parses one raw scroll response stream into a Page.
// Implementations live with the host-framework serialization layer and
// typically apply the index mapping carried by the read split.
type PageDecoder interface {
	DecodePage(r io.Reader) (*Page, error)
}
