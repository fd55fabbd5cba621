package estopology

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sjoerdmulder/elasticsearch-hadoop/esclient"
)

// ShardState is the lifecycle state of one shard copy.
type ShardState int

const (
	ShardUnknown ShardState = iota
	ShardUnassigned
	ShardInitializing
	ShardStarted
	ShardRelocating
)

func ParseShardState(raw string) ShardState {
	switch strings.ToUpper(raw) {
	case "UNASSIGNED":
		return ShardUnassigned
	case "INITIALIZING":
		return ShardInitializing
	case "STARTED":
		return ShardStarted
	case "RELOCATING":
		return ShardRelocating
	}
	return ShardUnknown
}

func (s ShardState) String() string {
	switch s {
	case ShardUnassigned:
		return "UNASSIGNED"
	case ShardInitializing:
		return "INITIALIZING"
	case ShardStarted:
		return "STARTED"
	case ShardRelocating:
		return "RELOCATING"
	}
	return "UNKNOWN"
}

// Shard is one copy of an index partition as seen in a topology snapshot.
// Values are immutable; a new snapshot produces new Shard values.
type Shard struct {
	Index   string
	ID      int
	Primary bool
	State   ShardState
	NodeID  string
}

func shardFromRecord(index string, rec esclient.ShardRecord) Shard {
	if rec.Index != "" {
		index = rec.Index
	}
	return Shard{
		Index:   index,
		ID:      rec.Shard,
		Primary: rec.Primary,
		State:   ParseShardState(rec.State),
		NodeID:  rec.Node,
	}
}

// CompareShards orders shards by (index name, shard id) so that repeated
// resolutions of the same snapshot produce an identical ordering.
func CompareShards(a, b Shard) int {
	if c := strings.Compare(a.Index, b.Index); c != 0 {
		return c
	}
	return a.ID - b.ID
}

func (s Shard) String() string {
	return fmt.Sprintf("[%s][%d] node=%s state=%s primary=%t", s.Index, s.ID, s.NodeID, s.State, s.Primary)
}

// Node is a cluster member resolved from the node registry.
type Node struct {
	ID        string
	Name      string
	IPAddress string
	HTTPPort  int
}

// NodeFromRecord lifts a wire-level registry entry into a Node.
func NodeFromRecord(id string, rec esclient.NodeRecord) Node {
	return Node{
		ID:        id,
		Name:      rec.Name,
		IPAddress: rec.IPAddress,
		HTTPPort:  rec.HTTPPort,
	}
}

// HTTPAddress returns the `ip:port` address used to pin a transport to
// this node.
func (n Node) HTTPAddress() string {
	return n.IPAddress + ":" + strconv.Itoa(n.HTTPPort)
}

func (n Node) String() string {
	return fmt.Sprintf("[%s/%s|%s]", n.ID, n.Name, n.HTTPAddress())
}

// Snapshot is a point-in-time view of an index's shard groups plus the
// node registry backing them. Snapshots are never cached; every
// resolution attempt fetches a fresh one.
type Snapshot struct {
	Groups [][]Shard
	Nodes  map[string]Node
}
