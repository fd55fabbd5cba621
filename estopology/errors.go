package estopology

import "errors"

var (
	// ErrUnstableCluster means repeated topology snapshots could not map
	// every shard to a live node. It is fatal; callers must not retry it.
	ErrUnstableCluster = errors.New("cluster state volatile; cannot find node backing shards - please check whether your cluster is stable")

	// errStaleSnapshot marks a single resolution attempt whose snapshot
	// was internally inconsistent; the resolver retries it.
	errStaleSnapshot = errors.New("topology snapshot is stale")
)
