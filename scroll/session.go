package scroll

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/sjoerdmulder/elasticsearch-hadoop/esclient"
	"github.com/sjoerdmulder/elasticsearch-hadoop/pkg/metrics"
)

var ErrExhausted = errors.New("scroll is exhausted")

type sessionState int

const (
	stateOpen sessionState = iota
	stateExhausted
	stateClosed
)

type SessionOptions struct {
	// Transport must already be pinned to the node holding the target
	// shard. The session takes ownership and releases it at Close.
	Transport esclient.Transport
	Resource  esclient.Resource
	Decoder   PageDecoder
	Logger    *zap.Logger
}

// Session drives one server-side cursor over a shard, yielding records
// page by page until the server reports no further results. Owned by a
// single task; methods must not be called concurrently.
type Session struct {
	transport esclient.Transport
	resource  esclient.Resource
	decoder   PageDecoder
	logger    *zap.Logger
	id        string

	state    sessionState
	scrollID string
	total    int64

	records []Record
	pos     int
	read    int64

	stats esclient.Stats
}

// Open issues the initial scroll-opening request and returns a live
// session holding the server-issued cursor.
func Open(ctx context.Context, opts SessionOptions, query string, pageSize int) (*Session, error) {
	if opts.Transport == nil {
		return nil, errors.New("no transport given")
	}
	if opts.Decoder == nil {
		return nil, errors.New("no page decoder given")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	res, err := opts.Transport.ScanOpen(ctx, opts.Resource, query, pageSize, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open scroll against %s", opts.Resource)
	}

	s := &Session{
		transport: opts.Transport,
		resource:  opts.Resource,
		decoder:   opts.Decoder,
		logger:    logger,
		id:        uuid.NewString(),
		scrollID:  res.ScrollID,
		total:     res.TotalSize,
	}

	s.logger.Debug("opened scroll",
		zap.String("session", s.id),
		zap.String("resource", s.resource.String()),
		zap.Int64("total", s.total))
	return s, nil
}

// HasNext reports whether another record is available, lazily fetching
// the next page when the current one is consumed. A continuation failure
// is fatal to the session and is returned here (or from Next).
func (s *Session) HasNext(ctx context.Context) (bool, error) {
	if s.state != stateOpen {
		return false, nil
	}
	if s.pos < len(s.records) {
		return true, nil
	}

	start := time.Now()
	stream, err := s.transport.ScrollContinue(ctx, s.scrollID)
	if err != nil {
		return false, errors.Wrap(err, "failed to continue scroll")
	}

	page, err := s.decoder.DecodePage(stream)
	_ = stream.Close()
	if err != nil {
		return false, errors.Wrap(err, "failed to decode scroll page")
	}
	elapsed := time.Since(start)

	if page.ScrollID != "" {
		s.scrollID = page.ScrollID
	}

	s.stats.ScrollReads++
	s.stats.ScrollTimeNanos += elapsed.Nanoseconds()
	s.stats.DocsRead += int64(len(page.Records))

	m := metrics.GetConnectorMetrics()
	m.ScrollPages.Inc()
	m.ScrollDocs.Add(float64(len(page.Records)))

	if len(page.Records) == 0 {
		s.logger.Debug("scroll exhausted",
			zap.String("session", s.id),
			zap.Int64("read", s.read))
		s.state = stateExhausted
		return false, nil
	}

	s.records = page.Records
	s.pos = 0
	return true, nil
}

// Next returns the next record; ErrExhausted once no results remain.
func (s *Session) Next(ctx context.Context) (Record, error) {
	ok, err := s.HasNext(ctx)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		return Record{}, ErrExhausted
	}

	rec := s.records[s.pos]
	s.pos++
	s.read++
	return rec, nil
}

// Size is the total result size the server reported at open time. It is
// a progress estimate only; termination is driven by HasNext.
func (s *Session) Size() int64 {
	return s.total
}

// Read returns how many records have been consumed so far.
func (s *Session) Read() int64 {
	return s.read
}

// Close releases the server-side cursor and the transport, folding the
// transport counters into the session stats. Safe to call from any
// state; a second call is a no-op.
func (s *Session) Close(ctx context.Context) error {
	if s.state == stateClosed {
		return nil
	}
	s.state = stateClosed

	var firstErr error

	if s.scrollID != "" {
		if err := s.transport.ScrollClose(ctx, s.scrollID); err != nil {
			// the cursor expires server-side anyway
			s.logger.Warn("failed to release scroll cursor", zap.Error(err))
		}
	}

	if err := s.transport.Close(); err != nil {
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
