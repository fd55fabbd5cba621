package shardplan

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sjoerdmulder/elasticsearch-hadoop/esclient"
	"github.com/sjoerdmulder/elasticsearch-hadoop/estopology"
	"github.com/sjoerdmulder/elasticsearch-hadoop/testutils"
)

func threePrimaryCluster() *testutils.FakeCluster {
	return &testutils.FakeCluster{
		NodeRegistry: map[string]esclient.NodeRecord{
			"n1": {Name: "node-one", IPAddress: "10.0.0.1", HTTPPort: 9200},
			"n2": {Name: "node-two", IPAddress: "10.0.0.2", HTTPPort: 9200},
			"n3": {Name: "node-three", IPAddress: "10.0.0.3", HTTPPort: 9200},
		},
		Layouts: [][][]esclient.ShardRecord{{
			{{Shard: 0, Primary: true, State: "STARTED", Node: "n1"}},
			{{Shard: 1, Primary: true, State: "STARTED", Node: "n2"}},
			{{Shard: 2, Primary: true, State: "STARTED", Node: "n3"}},
		}},
		HealthOK: true,
	}
}

func newTestPlanner(t *testing.T, cluster *testutils.FakeCluster, seed int64) *Planner {
	t.Helper()

	resolver, err := estopology.NewResolver(estopology.ResolverOptions{Transport: cluster})
	require.NoError(t, err)

	planner, err := NewPlanner(PlannerOptions{
		Transport: cluster,
		Resolver:  resolver,
		Rand:      rand.New(rand.NewSource(seed)),
	})
	require.NoError(t, err)
	return planner
}

func TestPlanWriteBucketsByOrdinal(t *testing.T) {
	ctx := context.Background()
	cluster := threePrimaryCluster()
	planner := newTestPlanner(t, cluster, 1)

	// ordinal 4 against 3 shards: bucket 4 mod 3 = 1 -> shard 1 on n2
	assignment, err := planner.PlanWrite(ctx, esclient.Resource{Index: "radio"}, 4)
	require.NoError(t, err)
	require.NotNil(t, assignment.Shard)
	require.Equal(t, 1, assignment.Shard.ID)
	require.Equal(t, "node-two", assignment.Node.Name)
}

func TestPlanWriteIsDeterministic(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		planner := newTestPlanner(t, threePrimaryCluster(), int64(i))
		assignment, err := planner.PlanWrite(ctx, esclient.Resource{Index: "radio"}, 7)
		require.NoError(t, err)
		require.Equal(t, 1, assignment.Shard.ID) // 7 mod 3
	}
}

func TestPlanWriteUnknownOrdinalFallsBackToRandom(t *testing.T) {
	ctx := context.Background()
	cluster := threePrimaryCluster()
	planner := newTestPlanner(t, cluster, 42)

	assignment, err := planner.PlanWrite(ctx, esclient.Resource{Index: "radio"}, NoTaskOrdinal)
	require.NoError(t, err)
	require.NotNil(t, assignment.Shard)

	// same seed, same choice
	again := newTestPlanner(t, threePrimaryCluster(), 42)
	repeat, err := again.PlanWrite(ctx, esclient.Resource{Index: "radio"}, NoTaskOrdinal)
	require.NoError(t, err)
	require.Equal(t, assignment.Shard.ID, repeat.Shard.ID)
}

func TestPlanWriteEnsuresIndex(t *testing.T) {
	ctx := context.Background()
	cluster := threePrimaryCluster()
	cluster.TouchCreated = true
	cluster.HealthOK = false // times out; planning continues with a warning
	planner := newTestPlanner(t, cluster, 1)

	_, err := planner.PlanWrite(ctx, esclient.Resource{Index: "radio"}, 0)
	require.NoError(t, err)
	require.Equal(t, 1, cluster.TouchCalls)
	require.Equal(t, 1, cluster.HealthCalls)
}

func TestPlanWriteExistingIndexSkipsHealthWait(t *testing.T) {
	ctx := context.Background()
	cluster := threePrimaryCluster()
	cluster.TouchCreated = false
	planner := newTestPlanner(t, cluster, 1)

	_, err := planner.PlanWrite(ctx, esclient.Resource{Index: "radio"}, 0)
	require.NoError(t, err)
	require.Equal(t, 1, cluster.TouchCalls)
	require.Equal(t, 0, cluster.HealthCalls)
}

func TestPlanWriteNoShards(t *testing.T) {
	ctx := context.Background()
	cluster := &testutils.FakeCluster{
		NodeRegistry: map[string]esclient.NodeRecord{},
	}
	planner := newTestPlanner(t, cluster, 1)

	_, err := planner.PlanWrite(ctx, esclient.Resource{Index: "bad[name"}, 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot determine write shards")
}

func TestPlanWritePatternPicksNode(t *testing.T) {
	ctx := context.Background()
	cluster := threePrimaryCluster()
	planner := newTestPlanner(t, cluster, 7)

	assignment, err := planner.PlanWrite(ctx, esclient.Resource{Index: "logs-{date}"}, 3)
	require.NoError(t, err)
	require.Nil(t, assignment.Shard)
	require.NotEmpty(t, assignment.Node.ID)
	// shard layout is never consulted for patterns
	require.Equal(t, 0, cluster.TargetShardsCalls)
	require.Equal(t, 0, cluster.TouchCalls)

	// same seed picks the same node
	again := newTestPlanner(t, threePrimaryCluster(), 7)
	repeat, err := again.PlanWrite(ctx, esclient.Resource{Index: "logs-{date}"}, 3)
	require.NoError(t, err)
	require.Equal(t, assignment.Node.ID, repeat.Node.ID)
}

func TestEnsureMapping(t *testing.T) {
	ctx := context.Background()
	cluster := threePrimaryCluster()
	planner := newTestPlanner(t, cluster, 1)

	require.NoError(t, planner.EnsureMapping(ctx, esclient.Resource{Index: "radio", Type: "artists"}, nil))
	require.Empty(t, cluster.PutMappings)

	mapping := []byte(`{"artists":{"properties":{}}}`)
	require.NoError(t, planner.EnsureMapping(ctx, esclient.Resource{Index: "radio", Type: "artists"}, mapping))
	require.Equal(t, [][]byte{mapping}, cluster.PutMappings)
}
