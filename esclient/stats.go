package esclient

// Stats is a snapshot of session/transport counters. Values are plain
// copies; a snapshot handed out never changes after the fact.
type Stats struct {
	BytesWritten int64
	DocsWritten  int64
	BulkWrites   int64
	// BulkTimeNanos is the cumulative wall time spent in bulk requests.
	BulkTimeNanos int64

	BytesRead int64
	DocsRead  int64
	// ScrollReads counts scroll pages fetched (open + continuations).
	ScrollReads     int64
	ScrollTimeNanos int64
}

// Aggregate folds another snapshot into this one.
func (s *Stats) Aggregate(o Stats) {
	s.BytesWritten += o.BytesWritten
	s.DocsWritten += o.DocsWritten
	s.BulkWrites += o.BulkWrites
	s.BulkTimeNanos += o.BulkTimeNanos

	s.BytesRead += o.BytesRead
	s.DocsRead += o.DocsRead
	s.ScrollReads += o.ScrollReads
	s.ScrollTimeNanos += o.ScrollTimeNanos
}
