package splits

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// ShardSplit is the persisted per-task read state: everything a parallel
// reader needs to reconstruct an identical session against its shard
// without re-resolving topology. Mapping and Settings are opaque blobs
// (base64 inside the JSON encoding) and may exceed 64KB.
type ShardSplit struct {
	NodeIP   string `json:"node_ip"`
	HTTPPort int    `json:"http_port"`
	NodeID   string `json:"node_id"`
	NodeName string `json:"node_name"`
	ShardID  int    `json:"shard"`

	Mapping  []byte `json:"mapping,omitempty"`
	Settings []byte `json:"settings,omitempty"`
}

// Encode serializes the split for the host framework to carry across the
// task boundary.
func (s ShardSplit) Encode() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode shard split")
	}
	return data, nil
}

// Decode reconstructs a split from its serialized form. A split without a
// mapping is valid; the reader degrades to schema-less decoding.
func Decode(data []byte) (ShardSplit, error) {
	var s ShardSplit
	if err := json.Unmarshal(data, &s); err != nil {
		return ShardSplit{}, errors.Wrap(err, "failed to decode shard split")
	}
	return s, nil
}

func (s ShardSplit) String() string {
	return fmt.Sprintf("split [node=[%s/%s|%s:%d],shard=%d]",
		s.NodeID, s.NodeName, s.NodeIP, s.HTTPPort, s.ShardID)
}
