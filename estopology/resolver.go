package estopology

import (
	"context"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/sjoerdmulder/elasticsearch-hadoop/esclient"
	"github.com/sjoerdmulder/elasticsearch-hadoop/pkg/metrics"
)

// resolveAttempts bounds how many snapshots are fetched before a stale
// cluster is declared unstable.
const resolveAttempts = 3

type ResolverOptions struct {
	Transport esclient.Transport
	Logger    *zap.Logger

	// NewBackOff produces the pacing between stale attempts. The default
	// retries immediately; shard state is eventually consistent and a
	// short bounded retry absorbs transient visibility gaps. Callers
	// wanting a delay inject their own policy; the attempt bound is
	// applied on top of it either way.
	NewBackOff func() backoff.BackOff
}

// Resolver maps the shards of an index to the nodes backing them, based
// on freshly fetched topology snapshots.
type Resolver struct {
	transport  esclient.Transport
	logger     *zap.Logger
	newBackOff func() backoff.BackOff
}

func NewResolver(opts ResolverOptions) (*Resolver, error) {
	if opts.Transport == nil {
		return nil, errors.New("no transport given")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	newBackOff := opts.NewBackOff
	if newBackOff == nil {
		newBackOff = func() backoff.BackOff {
			return backoff.NewConstantBackOff(0)
		}
	}

	return &Resolver{
		transport:  opts.Transport,
		logger:     logger,
		newBackOff: newBackOff,
	}, nil
}

// ReadTargets maps each shard group to the node backing its first started
// copy, regardless of the copy's role.
func (r *Resolver) ReadTargets(ctx context.Context, index string) (map[Shard]Node, error) {
	return r.resolve(ctx, index, r.readTargetsOnce)
}

// WritePrimaries maps each shard group to the node backing its primary
// copy. Unlike the read side, the copy's state is not checked, but the
// node id must resolve in the registry.
func (r *Resolver) WritePrimaries(ctx context.Context, index string) (map[Shard]Node, error) {
	return r.resolve(ctx, index, r.writePrimariesOnce)
}

func (r *Resolver) resolve(
	ctx context.Context,
	index string,
	once func(ctx context.Context, index string) (map[Shard]Node, error),
) (map[Shard]Node, error) {
	var targets map[Shard]Node

	attempt := func() error {
		m, err := once(ctx, index)
		if err != nil {
			// transport failures are fatal; only staleness is retried
			return backoff.Permanent(err)
		}
		if m == nil {
			metrics.GetConnectorMetrics().StaleResolutions.Inc()
			return errStaleSnapshot
		}

		targets = m
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), resolveAttempts-1), ctx)
	if err := backoff.Retry(attempt, b); err != nil {
		if errors.Is(err, errStaleSnapshot) {
			return nil, errors.Wrapf(ErrUnstableCluster, "resolving shards for %q", index)
		}
		return nil, err
	}

	return targets, nil
}

func (r *Resolver) fetchSnapshot(ctx context.Context, index string) (*Snapshot, error) {
	groupRecords, err := r.transport.TargetShards(ctx, index)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch shard layout for %q", index)
	}

	nodeRecords, err := r.transport.Nodes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch node registry")
	}

	snapshot := &Snapshot{
		Groups: make([][]Shard, 0, len(groupRecords)),
		Nodes:  make(map[string]Node, len(nodeRecords)),
	}
	for id, rec := range nodeRecords {
		snapshot.Nodes[id] = NodeFromRecord(id, rec)
	}
	for _, group := range groupRecords {
		shards := make([]Shard, 0, len(group))
		for _, rec := range group {
			shards = append(shards, shardFromRecord(index, rec))
		}
		snapshot.Groups = append(snapshot.Groups, shards)
	}

	return snapshot, nil
}

// readTargetsOnce returns nil (stale) when any group has no started copy
// on a registry-resolvable node.
func (r *Resolver) readTargetsOnce(ctx context.Context, index string) (map[Shard]Node, error) {
	snapshot, err := r.fetchSnapshot(ctx, index)
	if err != nil {
		return nil, err
	}

	return r.selectTargets(snapshot, func(s Shard) bool {
		return s.State == ShardStarted
	})
}

// writePrimariesOnce returns nil (stale) when any group has no primary
// copy on a registry-resolvable node.
func (r *Resolver) writePrimariesOnce(ctx context.Context, index string) (map[Shard]Node, error) {
	snapshot, err := r.fetchSnapshot(ctx, index)
	if err != nil {
		return nil, err
	}

	return r.selectTargets(snapshot, func(s Shard) bool {
		return s.Primary
	})
}

func (r *Resolver) selectTargets(snapshot *Snapshot, accept func(Shard) bool) (map[Shard]Node, error) {
	targets := make(map[Shard]Node, len(snapshot.Groups))

	for _, group := range snapshot.Groups {
		resolved := false
		for _, shard := range group {
			if !accept(shard) {
				continue
			}

			node, ok := snapshot.Nodes[shard.NodeID]
			if !ok {
				// mapping/HTTP disabled on the node, or the registry does
				// not agree with the shard layout yet
				r.logger.Warn("cannot find node backing shard (is HTTP enabled on it?)",
					zap.String("node_id", shard.NodeID),
					zap.String("shard", shard.String()))
				return nil, nil
			}

			targets[shard] = node
			resolved = true
			break
		}

		if !resolved {
			r.logger.Warn("shard group has no acceptable copy",
				zap.Int("copies", len(group)))
			return nil, nil
		}
	}

	return targets, nil
}
