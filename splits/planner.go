package splits

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/sjoerdmulder/elasticsearch-hadoop/esclient"
	"github.com/sjoerdmulder/elasticsearch-hadoop/estopology"
)

// ErrIndexMissing is returned when the read index does not exist and
// missing-as-empty is disabled.
var ErrIndexMissing = errors.New("read index missing")

type PlannerOptions struct {
	Transport esclient.Transport
	Resolver  *estopology.Resolver
	Logger    *zap.Logger

	// IndexReadMissingAsEmpty treats a missing read index as an empty
	// result set (zero splits) instead of failing.
	IndexReadMissingAsEmpty bool

	// Settings is an opaque configuration blob embedded into every split
	// so reader tasks reconstruct an identical session.
	Settings []byte
}

// Planner resolves a read resource into per-shard splits, once, before
// tasks are distributed.
type Planner struct {
	transport      esclient.Transport
	resolver       *estopology.Resolver
	logger         *zap.Logger
	missingAsEmpty bool
	settings       []byte
}

func NewPlanner(opts PlannerOptions) (*Planner, error) {
	if opts.Transport == nil {
		return nil, errors.New("no transport given")
	}
	if opts.Resolver == nil {
		return nil, errors.New("no resolver given")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Planner{
		transport:      opts.Transport,
		resolver:       opts.Resolver,
		logger:         logger,
		missingAsEmpty: opts.IndexReadMissingAsEmpty,
		settings:       opts.Settings,
	}, nil
}

// Plan resolves the read targets and produces one split per shard, each
// carrying the index mapping fetched once here.
func (p *Planner) Plan(ctx context.Context, res esclient.Resource) ([]ShardSplit, error) {
	exists, err := p.indexExists(ctx, res)
	if err != nil {
		return nil, err
	}

	if !exists {
		if !p.missingAsEmpty {
			return nil, errors.Wrapf(ErrIndexMissing, "index %q", res.Index)
		}
		p.logger.Info("index missing - treating it as empty",
			zap.String("resource", res.String()))
		return nil, nil
	}

	targets, err := p.resolver.ReadTargets(ctx, res.Index)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, nil
	}

	mapping, err := p.fetchMapping(ctx, res)
	if err != nil {
		return nil, err
	}

	result := make([]ShardSplit, 0, len(targets))
	for shard, node := range targets {
		result = append(result, ShardSplit{
			NodeIP:   node.IPAddress,
			HTTPPort: node.HTTPPort,
			NodeID:   node.ID,
			NodeName: node.Name,
			ShardID:  shard.ID,
			Mapping:  mapping,
			Settings: p.settings,
		})
	}
	slices.SortFunc(result, func(a, b ShardSplit) int {
		return a.ShardID - b.ShardID
	})

	p.logger.Info("created shard splits",
		zap.String("resource", res.String()),
		zap.Int("count", len(result)))
	return result, nil
}

// indexExists double-checks a failed cheap existence probe by asking for
// the mapping: a pattern or alias is a valid read target even when no
// index of that literal name exists.
func (p *Planner) indexExists(ctx context.Context, res esclient.Resource) (bool, error) {
	exists, err := p.transport.Exists(ctx, res.IndexAndType())
	if err != nil {
		return false, errors.Wrapf(err, "failed to check existence of %s", res)
	}
	if exists {
		return true, nil
	}

	mapping, err := p.transport.GetMapping(ctx, res)
	if err != nil {
		// an invalid request here just confirms the index is missing
		p.logger.Debug("mapping probe failed", zap.Error(err))
		return false, nil
	}
	return len(mapping) > 0, nil
}

func (p *Planner) fetchMapping(ctx context.Context, res esclient.Resource) ([]byte, error) {
	doc, err := p.transport.GetMapping(ctx, res)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch mapping for %s", res)
	}
	if len(doc) == 0 {
		return nil, nil
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize mapping")
	}

	p.logger.Info("discovered mapping",
		zap.String("resource", res.String()),
		zap.Int("bytes", len(data)))
	return data, nil
}
