package esclient

import (
	"context"
	"io"
	"time"
)

// ShardRecord is the wire-level description of one shard copy as reported
// by the cluster's shard layout endpoint.
type ShardRecord struct {
	Index   string
	Shard   int
	Primary bool
	State   string
	Node    string
}

// NodeRecord is the wire-level description of a cluster member from the
// node registry. Nodes without an HTTP address are not listed.
type NodeRecord struct {
	Name      string
	IPAddress string
	HTTPPort  int
}

// HealthLevel is a minimum cluster health to wait for.
type HealthLevel int

const (
	HealthRed HealthLevel = iota
	HealthYellow
	HealthGreen
)

func (h HealthLevel) String() string {
	switch h {
	case HealthRed:
		return "red"
	case HealthYellow:
		return "yellow"
	case HealthGreen:
		return "green"
	}
	return "unknown"
}

// ScanResult is the outcome of opening a scan-type scroll: the server
// issued cursor and the reported total result size.
type ScanResult struct {
	ScrollID  string
	TotalSize int64
}

// Transport issues requests against a single logical cluster endpoint set.
// Implementations handle connection pooling, wire encoding and request
// timeouts; all methods block until the cluster responds or fails.
//
// A Transport is owned by exactly one session and must not be shared.
type Transport interface {
	// Bulk sends accumulated write fragments as a single bulk request.
	Bulk(ctx context.Context, res Resource, body []byte) error

	// ScanOpen opens a scan-type scroll for the given query and page size.
	ScanOpen(ctx context.Context, res Resource, query string, pageSize int, body []byte) (ScanResult, error)
	// ScrollContinue fetches the next page for a live cursor as a raw
	// response stream; the caller decodes and closes it.
	ScrollContinue(ctx context.Context, scrollID string) (io.ReadCloser, error)
	// ScrollClose releases a server-side cursor.
	ScrollClose(ctx context.Context, scrollID string) error

	// TargetShards returns the shard layout of an index, one group per
	// logical shard containing all of its copies.
	TargetShards(ctx context.Context, index string) ([][]ShardRecord, error)
	// Nodes returns the node registry keyed by node id.
	Nodes(ctx context.Context) (map[string]NodeRecord, error)

	GetMapping(ctx context.Context, res Resource) (map[string]interface{}, error)
	PutMapping(ctx context.Context, res Resource, body []byte) error
	// Exists reports whether the given index (or index/type) exists.
	Exists(ctx context.Context, target string) (bool, error)
	// Touch creates the index if missing; reports whether it was created.
	Touch(ctx context.Context, index string) (bool, error)
	Refresh(ctx context.Context, res Resource) error
	// Health waits up to timeout for the index to reach min health.
	Health(ctx context.Context, index string, min HealthLevel, timeout time.Duration) (bool, error)

	// Stats returns a snapshot of the transport's accumulated counters.
	Stats() Stats
	Close() error
}
