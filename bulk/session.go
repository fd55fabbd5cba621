package bulk

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/sjoerdmulder/elasticsearch-hadoop/esclient"
	"github.com/sjoerdmulder/elasticsearch-hadoop/pkg/metrics"
)

// DefaultBufferSize is the batch buffer capacity when none is configured.
const DefaultBufferSize = 1 * 1024 * 1024

type SessionOptions struct {
	// Transport must already be pinned to the node the session writes to.
	// The session takes ownership and releases it at Close.
	Transport esclient.Transport
	Resource  esclient.Resource
	// Encoder serializes records for WriteRecord; sessions fed only
	// through WriteRaw may leave it nil.
	Encoder FragmentEncoder
	Logger  *zap.Logger

	// BufferSizeBytes is the batch buffer capacity; DefaultBufferSize
	// when zero.
	BufferSizeBytes int
	// FlushEntries flushes after this many buffered entries when > 0.
	FlushEntries int
	// RefreshAfterWrite issues a refresh against the write resource at
	// close time if at least one flush succeeded.
	RefreshAfterWrite bool
}

// Session accumulates write fragments into a fixed-capacity buffer and
// flushes them as bulk requests to the node it is pinned to. A Session is
// owned by a single task; none of its methods may be called concurrently.
type Session struct {
	transport esclient.Transport
	resource  esclient.Resource
	encoder   FragmentEncoder
	logger    *zap.Logger
	id        string

	bufferSize        int
	flushEntries      int
	refreshAfterWrite bool

	buf              *Buffer
	scratch          Fragment
	writeInitialized bool
	hadWriteErrors   bool
	executedFlush    bool
	closed           bool

	stats esclient.Stats
}

func NewSession(opts SessionOptions) (*Session, error) {
	if opts.Transport == nil {
		return nil, errors.New("no transport given")
	}
	if opts.Resource.Index == "" {
		return nil, errors.New("no write resource given")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bufferSize := opts.BufferSizeBytes
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	return &Session{
		transport:         opts.Transport,
		resource:          opts.Resource,
		encoder:           opts.Encoder,
		logger:            logger,
		id:                uuid.NewString(),
		bufferSize:        bufferSize,
		flushEntries:      opts.FlushEntries,
		refreshAfterWrite: opts.RefreshAfterWrite,
	}, nil
}

// lazyInitWriting postpones buffer allocation until the first write so a
// session opened for topology work only never allocates a batch buffer.
func (s *Session) lazyInitWriting() {
	if s.writeInitialized {
		return
	}
	s.writeInitialized = true
	s.buf = NewBuffer(s.bufferSize)
}

// WriteRecord serializes one record and appends it to the batch buffer,
// flushing as capacity or the entry threshold demands.
func (s *Session) WriteRecord(ctx context.Context, record interface{}) error {
	if record == nil {
		return ErrNilRecord
	}
	if s.encoder == nil {
		return ErrNoEncoder
	}

	s.lazyInitWriting()

	s.scratch.Reset()
	if err := s.encoder.EncodeFragment(record, &s.scratch); err != nil {
		return errors.Wrap(err, "failed to encode record")
	}

	return s.write(ctx, s.scratch.Bytes())
}

// WriteRaw appends a pre-serialized fragment, bypassing the encoder.
func (s *Session) WriteRaw(ctx context.Context, payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptyPayload
	}

	s.lazyInitWriting()
	return s.write(ctx, payload)
}

func (s *Session) write(ctx context.Context, fragment []byte) error {
	// check space first
	if len(fragment) > s.buf.Available() {
		if err := s.Flush(ctx); err != nil {
			return err
		}
	}

	s.buf.Append(fragment)

	if s.flushEntries > 0 && s.buf.Entries() >= s.flushEntries {
		return s.Flush(ctx)
	}
	return nil
}

// Flush sends the buffered fragments as one bulk request. A failed flush
// taints the session: the error propagates and close-time flushing of any
// remaining data is abandoned.
func (s *Session) Flush(ctx context.Context) error {
	if s.buf == nil || s.buf.Length() == 0 {
		return nil
	}

	bytes := s.buf.Length()
	entries := s.buf.Entries()
	s.logger.Debug("sending batch",
		zap.String("session", s.id),
		zap.Int("bytes", bytes),
		zap.Int("entries", entries))

	start := time.Now()
	if err := s.transport.Bulk(ctx, s.resource, s.buf.Bytes()); err != nil {
		s.hadWriteErrors = true
		metrics.GetConnectorMetrics().BulkFlushErrors.Inc()
		return errors.Wrapf(err, "bulk request to %s failed", s.resource)
	}
	elapsed := time.Since(start)

	s.stats.BytesWritten += int64(bytes)
	s.stats.DocsWritten += int64(entries)
	s.stats.BulkWrites++
	s.stats.BulkTimeNanos += elapsed.Nanoseconds()

	m := metrics.GetConnectorMetrics()
	m.BulkFlushes.Inc()
	m.BulkBytesWritten.Add(float64(bytes))
	m.BulkDocsWritten.Add(float64(entries))

	s.buf.Reset()
	s.executedFlush = true
	return nil
}

// Close flushes any remaining data (unless the session is tainted, in
// which case the leftover batch is discarded to avoid resubmitting
// possibly-applied records), optionally refreshes the index, and releases
// the transport after folding its counters into the session stats.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error

	if s.buf != nil && s.buf.Length() > 0 {
		if !s.hadWriteErrors {
			firstErr = s.Flush(ctx)
		} else {
			s.logger.Debug("dirty close; ignoring last existing write batch",
				zap.String("session", s.id),
				zap.Int("bytes", s.buf.Length()))
			s.buf.Reset()
		}
	}

	if firstErr == nil && s.refreshAfterWrite && s.executedFlush {
		if err := s.transport.Refresh(ctx, s.resource); err != nil {
			firstErr = errors.Wrapf(err, "failed to refresh %s", s.resource)
		} else {
			s.logger.Debug("refreshed index", zap.String("resource", s.resource.String()))
		}
	}

	if err := s.transport.Close(); err != nil && firstErr == nil {
		firstErr = errors.Wrap(err, "failed to close transport")
	}
	s.stats.Aggregate(s.transport.Stats())
	s.transport = nil

	return firstErr
}

// Stats returns a snapshot of the session counters, including the live
// transport counters while the session is still open.
func (s *Session) Stats() esclient.Stats {
	snapshot := s.stats
	if s.transport != nil {
		snapshot.Aggregate(s.transport.Stats())
	}
	return snapshot
}
