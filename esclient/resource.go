package esclient

import (
	"strings"

	"github.com/pkg/errors"
)

// Resource identifies a read or write target as `index` or `index/type`,
// optionally carrying a URI query picked up from configuration. Read and
// write resources are independent; a session holds whichever it needs.
type Resource struct {
	Index string
	Type  string
	Query string
}

// ParseResource parses a raw `index[/type][?query]` location string.
func ParseResource(raw string) (Resource, error) {
	raw = strings.TrimSpace(strings.Trim(raw, "/"))
	if raw == "" {
		return Resource{}, errors.New("no resource (index[/type]) specified")
	}

	var res Resource
	if idx := strings.Index(raw, "?"); idx >= 0 {
		res.Query = raw[idx+1:]
		raw = raw[:idx]
	}

	parts := strings.Split(raw, "/")
	switch len(parts) {
	case 1:
		res.Index = parts[0]
	case 2:
		res.Index = parts[0]
		res.Type = parts[1]
	default:
		return Resource{}, errors.Errorf("invalid resource %q; expected index[/type]", raw)
	}

	if res.Index == "" {
		return Resource{}, errors.Errorf("invalid resource %q; no index name", raw)
	}

	return res, nil
}

// IsPattern reports whether the index name is data dependent (a `{field}`
// extraction pattern) or matches multiple indices (wildcard / list). Such
// resources cannot be pinned to a single shard ahead of time.
func (r Resource) IsPattern() bool {
	return strings.ContainsAny(r.Index, "{*,")
}

// IndexAndType returns the `index/type` path of the resource, or just the
// index when no type is set.
func (r Resource) IndexAndType() string {
	if r.Type == "" {
		return r.Index
	}
	return r.Index + "/" + r.Type
}

func (r Resource) String() string {
	return r.IndexAndType()
}
