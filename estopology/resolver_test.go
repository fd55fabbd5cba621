package estopology

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sjoerdmulder/elasticsearch-hadoop/esclient"
	"github.com/sjoerdmulder/elasticsearch-hadoop/testutils"
)

func threeNodeRegistry() map[string]esclient.NodeRecord {
	return map[string]esclient.NodeRecord{
		"n1": {Name: "node-one", IPAddress: "10.0.0.1", HTTPPort: 9200},
		"n2": {Name: "node-two", IPAddress: "10.0.0.2", HTTPPort: 9200},
		"n3": {Name: "node-three", IPAddress: "10.0.0.3", HTTPPort: 9200},
	}
}

func newTestResolver(t *testing.T, cluster *testutils.FakeCluster) *Resolver {
	t.Helper()

	resolver, err := NewResolver(ResolverOptions{Transport: cluster})
	require.NoError(t, err)
	return resolver
}

func TestReadTargetsPicksFirstStartedCopy(t *testing.T) {
	cluster := &testutils.FakeCluster{
		NodeRegistry: threeNodeRegistry(),
		Layouts: [][][]esclient.ShardRecord{{
			{
				{Shard: 0, Primary: true, State: "RELOCATING", Node: "n1"},
				{Shard: 0, Primary: false, State: "STARTED", Node: "n2"},
			},
			{
				{Shard: 1, Primary: false, State: "STARTED", Node: "n3"},
				{Shard: 1, Primary: true, State: "STARTED", Node: "n1"},
			},
		}},
	}

	targets, err := newTestResolver(t, cluster).ReadTargets(context.Background(), "radio")
	require.NoError(t, err)
	require.Len(t, targets, 2)

	// reads accept any role, first started copy in listed order wins
	require.Equal(t, "node-two", targets[Shard{Index: "radio", ID: 0, State: ShardStarted, NodeID: "n2"}].Name)
	require.Equal(t, "node-three", targets[Shard{Index: "radio", ID: 1, State: ShardStarted, NodeID: "n3"}].Name)
}

func TestWritePrimariesIgnoresState(t *testing.T) {
	cluster := &testutils.FakeCluster{
		NodeRegistry: threeNodeRegistry(),
		Layouts: [][][]esclient.ShardRecord{{
			{
				{Shard: 0, Primary: false, State: "STARTED", Node: "n2"},
				{Shard: 0, Primary: true, State: "INITIALIZING", Node: "n1"},
			},
		}},
	}

	targets, err := newTestResolver(t, cluster).WritePrimaries(context.Background(), "radio")
	require.NoError(t, err)
	require.Len(t, targets, 1)

	for shard, node := range targets {
		require.True(t, shard.Primary)
		require.Equal(t, ShardInitializing, shard.State)
		require.Equal(t, "node-one", node.Name)
	}
}

func TestResolveRetriesExactlyThreeTimes(t *testing.T) {
	// node id n9 never resolves, so every snapshot is stale
	cluster := &testutils.FakeCluster{
		NodeRegistry: threeNodeRegistry(),
		Layouts: [][][]esclient.ShardRecord{{
			{{Shard: 0, Primary: true, State: "STARTED", Node: "n9"}},
		}},
	}

	_, err := newTestResolver(t, cluster).WritePrimaries(context.Background(), "radio")
	require.ErrorIs(t, err, ErrUnstableCluster)
	require.Equal(t, 3, cluster.TargetShardsCalls)
	require.Equal(t, 3, cluster.NodesCalls)
}

func TestResolveRecoversFromStaleSnapshot(t *testing.T) {
	stale := [][]esclient.ShardRecord{
		{{Shard: 0, Primary: true, State: "STARTED", Node: "gone"}},
	}
	fresh := [][]esclient.ShardRecord{
		{{Shard: 0, Primary: true, State: "STARTED", Node: "n1"}},
	}
	cluster := &testutils.FakeCluster{
		NodeRegistry: threeNodeRegistry(),
		Layouts:      [][][]esclient.ShardRecord{stale, fresh},
	}

	targets, err := newTestResolver(t, cluster).WritePrimaries(context.Background(), "radio")
	require.NoError(t, err)
	require.Len(t, targets, 1)
	require.Equal(t, 2, cluster.TargetShardsCalls)
}

func TestReadTargetsGroupWithoutStartedCopyIsStale(t *testing.T) {
	cluster := &testutils.FakeCluster{
		NodeRegistry: threeNodeRegistry(),
		Layouts: [][][]esclient.ShardRecord{{
			{{Shard: 0, Primary: true, State: "STARTED", Node: "n1"}},
			{{Shard: 1, Primary: true, State: "INITIALIZING", Node: "n2"}},
		}},
	}

	_, err := newTestResolver(t, cluster).ReadTargets(context.Background(), "radio")
	require.ErrorIs(t, err, ErrUnstableCluster)
}

func TestReadTargetsEmptyIndex(t *testing.T) {
	cluster := &testutils.FakeCluster{NodeRegistry: threeNodeRegistry()}

	targets, err := newTestResolver(t, cluster).ReadTargets(context.Background(), "radio")
	require.NoError(t, err)
	require.Empty(t, targets)
	require.Equal(t, 1, cluster.TargetShardsCalls)
}

func TestParseShardState(t *testing.T) {
	require.Equal(t, ShardStarted, ParseShardState("STARTED"))
	require.Equal(t, ShardStarted, ParseShardState("started"))
	require.Equal(t, ShardRelocating, ParseShardState("RELOCATING"))
	require.Equal(t, ShardUnknown, ParseShardState("bogus"))
}

func TestCompareShards(t *testing.T) {
	a := Shard{Index: "alpha", ID: 2}
	b := Shard{Index: "alpha", ID: 10}
	c := Shard{Index: "beta", ID: 0}

	require.Negative(t, CompareShards(a, b))
	require.Negative(t, CompareShards(b, c))
	require.Positive(t, CompareShards(c, a))
	require.Zero(t, CompareShards(a, a))
}
