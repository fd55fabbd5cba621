package shardplan

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/sjoerdmulder/elasticsearch-hadoop/esclient"
	"github.com/sjoerdmulder/elasticsearch-hadoop/estopology"
)

// NoTaskOrdinal marks a task whose ordinal could not be determined;
// planning falls back to a random bucket so load still spreads.
const NoTaskOrdinal = -1

// defaultHealthTimeout bounds the post-create wait for the index to
// become writable.
const defaultHealthTimeout = 10 * time.Second

// Assignment pins one write task to its target. Shard is nil when the
// resource is a pattern: the destination index is data dependent, so only
// a node is chosen and server-side routing places each record.
type Assignment struct {
	Shard *estopology.Shard
	Node  estopology.Node
}

type PlannerOptions struct {
	Transport esclient.Transport
	Resolver  *estopology.Resolver
	Logger    *zap.Logger

	// Rand drives the fallback bucket and pattern-case node choice.
	// Inject a seeded source in tests; defaults to a time-seeded one
	// private to this planner.
	Rand *rand.Rand

	HealthTimeout time.Duration
}

// Planner assigns write tasks to primary shards (single-index resources)
// or to nodes (pattern resources).
type Planner struct {
	transport     esclient.Transport
	resolver      *estopology.Resolver
	logger        *zap.Logger
	rand          *rand.Rand
	healthTimeout time.Duration
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

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	healthTimeout := opts.HealthTimeout
	if healthTimeout <= 0 {
		healthTimeout = defaultHealthTimeout
	}

	return &Planner{
		transport:     opts.Transport,
		resolver:      opts.Resolver,
		logger:        logger,
		rand:          rng,
		healthTimeout: healthTimeout,
	}, nil
}

// PlanWrite resolves the write target for the given task ordinal. Pass
// NoTaskOrdinal when the host framework cannot supply one.
func (p *Planner) PlanWrite(ctx context.Context, res esclient.Resource, taskOrdinal int) (Assignment, error) {
	if res.IsPattern() {
		return p.planPattern(ctx, res)
	}
	return p.planSingleIndex(ctx, res, taskOrdinal)
}

func (p *Planner) planSingleIndex(ctx context.Context, res esclient.Resource, taskOrdinal int) (Assignment, error) {
	p.logger.Debug("resource resolves as a single index", zap.String("resource", res.String()))

	created, err := p.transport.Touch(ctx, res.Index)
	if err != nil {
		return Assignment{}, errors.Wrapf(err, "failed to create index %q", res.Index)
	}
	if created {
		healthy, err := p.transport.Health(ctx, res.Index, esclient.HealthYellow, p.healthTimeout)
		if err != nil {
			return Assignment{}, errors.Wrapf(err, "health check for %q failed", res.Index)
		}
		if !healthy {
			p.logger.Warn("timed out waiting for index to reach yellow health",
				zap.String("index", res.Index))
		}
	}

	targets, err := p.resolver.WritePrimaries(ctx, res.Index)
	if err != nil {
		return Assignment{}, err
	}
	if len(targets) == 0 {
		return Assignment{}, errors.Errorf(
			"cannot determine write shards for %q; likely its format is incorrect (maybe it contains illegal characters?)", res.Index)
	}

	// strict, reproducible order before bucketing
	shards := make([]estopology.Shard, 0, len(targets))
	for shard := range targets {
		shards = append(shards, shard)
	}
	slices.SortFunc(shards, estopology.CompareShards)

	if taskOrdinal < 0 {
		p.logger.Warn("cannot determine task ordinal - redirecting writes in a random fashion")
		taskOrdinal = p.rand.Intn(len(shards)) + 1
	}

	bucket := taskOrdinal % len(shards)
	chosen := shards[bucket]
	node := targets[chosen]

	p.logger.Debug("task assigned to primary shard",
		zap.Int("ordinal", taskOrdinal),
		zap.String("shard", chosen.String()),
		zap.String("node", node.String()))

	return Assignment{Shard: &chosen, Node: node}, nil
}

// planPattern picks one node uniformly at random: shard-level pinning is
// impossible when the destination index is decided per record.
func (p *Planner) planPattern(ctx context.Context, res esclient.Resource) (Assignment, error) {
	p.logger.Debug("resource resolves as an index pattern", zap.String("resource", res.String()))

	records, err := p.transport.Nodes(ctx)
	if err != nil {
		return Assignment{}, errors.Wrap(err, "failed to fetch node registry")
	}
	if len(records) == 0 {
		return Assignment{}, errors.New("no nodes available for pattern write")
	}

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	id := ids[p.rand.Intn(len(ids))]
	node := estopology.NodeFromRecord(id, records[id])

	p.logger.Debug("task assigned to node", zap.String("node", node.String()))
	return Assignment{Node: node}, nil
}

// EnsureMapping pushes a declared mapping for the write resource. A nil
// mapping is a no-op.
func (p *Planner) EnsureMapping(ctx context.Context, res esclient.Resource, mapping []byte) error {
	if len(mapping) == 0 {
		return nil
	}
	if err := p.transport.PutMapping(ctx, res, mapping); err != nil {
		return errors.Wrapf(err, "failed to put mapping for %s", res)
	}
	return nil
}
