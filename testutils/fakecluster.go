package testutils

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/sjoerdmulder/elasticsearch-hadoop/esclient"
)

// FakeCluster is an in-memory Transport with a scriptable shard layout,
// node registry and scroll feed, plus call counters for assertions. The
// zero value behaves as an empty, healthy cluster.
type FakeCluster struct {
	// Layouts are consumed one per TargetShards call; the last one
	// repeats once the script runs out.
	Layouts      [][][]esclient.ShardRecord
	NodeRegistry map[string]esclient.NodeRecord

	BulkErrs  []error // consumed per Bulk call; nil entries succeed
	BulkBodies [][]byte

	ScanResult esclient.ScanResult
	// ScrollPages are raw page payloads handed out per continuation.
	ScrollPages   [][]byte
	ScrollErrs    []error
	ScrollClosed  []string
	ScanOpenCalls int

	ExistsByTarget map[string]bool
	MappingDoc     map[string]interface{}
	GetMappingErr  error
	PutMappings    [][]byte

	TouchCreated bool
	HealthOK     bool

	TransportStats esclient.Stats

	TargetShardsCalls int
	NodesCalls        int
	BulkCalls         int
	ScrollCalls       int
	RefreshCalls      int
	TouchCalls        int
	HealthCalls       int
	CloseCalls        int
}

var _ esclient.Transport = (*FakeCluster)(nil)

func (c *FakeCluster) Bulk(ctx context.Context, res esclient.Resource, body []byte) error {
	c.BulkCalls++
	c.BulkBodies = append(c.BulkBodies, append([]byte(nil), body...))

	if len(c.BulkErrs) > 0 {
		err := c.BulkErrs[0]
		c.BulkErrs = c.BulkErrs[1:]
		return err
	}
	return nil
}

func (c *FakeCluster) ScanOpen(ctx context.Context, res esclient.Resource, query string, pageSize int, body []byte) (esclient.ScanResult, error) {
	c.ScanOpenCalls++
	return c.ScanResult, nil
}

func (c *FakeCluster) ScrollContinue(ctx context.Context, scrollID string) (io.ReadCloser, error) {
	idx := c.ScrollCalls
	c.ScrollCalls++

	if idx < len(c.ScrollErrs) && c.ScrollErrs[idx] != nil {
		return nil, c.ScrollErrs[idx]
	}

	var page []byte
	if idx < len(c.ScrollPages) {
		page = c.ScrollPages[idx]
	}
	return io.NopCloser(bytes.NewReader(page)), nil
}

func (c *FakeCluster) ScrollClose(ctx context.Context, scrollID string) error {
	c.ScrollClosed = append(c.ScrollClosed, scrollID)
	return nil
}

func (c *FakeCluster) TargetShards(ctx context.Context, index string) ([][]esclient.ShardRecord, error) {
	idx := c.TargetShardsCalls
	c.TargetShardsCalls++

	if len(c.Layouts) == 0 {
		return nil, nil
	}
	if idx >= len(c.Layouts) {
		idx = len(c.Layouts) - 1
	}
	return c.Layouts[idx], nil
}

func (c *FakeCluster) Nodes(ctx context.Context) (map[string]esclient.NodeRecord, error) {
	c.NodesCalls++
	if c.NodeRegistry == nil {
		return map[string]esclient.NodeRecord{}, nil
	}
	return c.NodeRegistry, nil
}

func (c *FakeCluster) GetMapping(ctx context.Context, res esclient.Resource) (map[string]interface{}, error) {
	if c.GetMappingErr != nil {
		return nil, c.GetMappingErr
	}
	return c.MappingDoc, nil
}

func (c *FakeCluster) PutMapping(ctx context.Context, res esclient.Resource, body []byte) error {
	c.PutMappings = append(c.PutMappings, append([]byte(nil), body...))
	return nil
}

func (c *FakeCluster) Exists(ctx context.Context, target string) (bool, error) {
	if c.ExistsByTarget == nil {
		return true, nil
	}
	return c.ExistsByTarget[target], nil
}

func (c *FakeCluster) Touch(ctx context.Context, index string) (bool, error) {
	c.TouchCalls++
	return c.TouchCreated, nil
}

func (c *FakeCluster) Refresh(ctx context.Context, res esclient.Resource) error {
	c.RefreshCalls++
	return nil
}

func (c *FakeCluster) Health(ctx context.Context, index string, min esclient.HealthLevel, timeout time.Duration) (bool, error) {
	c.HealthCalls++
	return c.HealthOK, nil
}

func (c *FakeCluster) Stats() esclient.Stats {
	return c.TransportStats
}

func (c *FakeCluster) Close() error {
	c.CloseCalls++
	return nil
}
