package scroll

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/sjoerdmulder/elasticsearch-hadoop/esclient"
	"github.com/sjoerdmulder/elasticsearch-hadoop/splits"
)

// RecordAdapter adapts decoded records into the host framework's
// key/value types. Implementations are injected rather than subclassed;
// Set* return the instance to use so immutable key/value types work too.
type RecordAdapter interface {
	CreateKey() interface{}
	CreateValue() interface{}
	SetKey(key interface{}, id string) interface{}
	SetValue(value interface{}, doc interface{}) interface{}
}

type ReaderOptions struct {
	// Split is the pre-resolved shard/node state this reader works on.
	Split splits.ShardSplit
	// Transport must already be pinned to the split's node.
	Transport esclient.Transport
	Resource  esclient.Resource
	Decoder   PageDecoder
	Adapter   RecordAdapter
	Logger    *zap.Logger

	Query    string
	PageSize int
}

// Reader drives a scroll Session over one read split and exposes the
// records through a framework-shaped key/value surface with progress
// tracking.
type Reader struct {
	opts   ReaderOptions
	logger *zap.Logger

	session *Session
	key     interface{}
	value   interface{}
	read    int64
}

func NewReader(opts ReaderOptions) (*Reader, error) {
	if opts.Transport == nil {
		return nil, errors.New("no transport given")
	}
	if opts.Adapter == nil {
		return nil, errors.New("no record adapter given")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(opts.Split.Mapping) == 0 {
		// the index may legitimately be empty or missing; decode
		// best-effort rather than failing the task
		logger.Warn("no mapping found for split - either no index exists or the split state has been corrupted",
			zap.String("split", opts.Split.String()))
	}

	return &Reader{
		opts:   opts,
		logger: logger,
	}, nil
}

// Next advances to the next record, opening the scroll on first use.
// It reports false once the split is exhausted.
func (r *Reader) Next(ctx context.Context) (bool, error) {
	if r.session == nil {
		session, err := Open(ctx, SessionOptions{
			Transport: r.opts.Transport,
			Resource:  r.opts.Resource,
			Decoder:   r.opts.Decoder,
			Logger:    r.logger,
		}, r.opts.Query, r.opts.PageSize)
		if err != nil {
			return false, err
		}
		r.session = session
	}

	ok, err := r.session.HasNext(ctx)
	if err != nil || !ok {
		return false, err
	}

	rec, err := r.session.Next(ctx)
	if err != nil {
		return false, err
	}

	r.key = r.opts.Adapter.SetKey(r.opts.Adapter.CreateKey(), rec.ID)
	r.value = r.opts.Adapter.SetValue(r.opts.Adapter.CreateValue(), rec.Doc)
	r.read++
	return true, nil
}

func (r *Reader) Key() interface{} {
	return r.key
}

func (r *Reader) Value() interface{} {
	return r.value
}

// Pos returns how many records have been read so far.
func (r *Reader) Pos() int64 {
	return r.read
}

// Progress reports the approximate fraction consumed of the total the
// server estimated at open time.
func (r *Reader) Progress() float32 {
	if r.session == nil || r.session.Size() == 0 {
		return 0
	}
	return float32(r.read) / float32(r.session.Size())
}

func (r *Reader) Close(ctx context.Context) error {
	if r.session == nil {
		// scroll never opened; release the transport directly
		if r.opts.Transport != nil {
			err := r.opts.Transport.Close()
			r.opts.Transport = nil
			return err
		}
		return nil
	}
	return r.session.Close(ctx)
}

// Stats exposes the underlying session counters for close-time reporting.
func (r *Reader) Stats() esclient.Stats {
	if r.session == nil {
		return esclient.Stats{}
	}
	return r.session.Stats()
}
