package plugins

import (
	"sort"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/lsx/pkg/observability"
	"github.com/platinummonkey/lsx/pkg/pluginproto"
)

const (
	DefaultFieldCacheSize = 4096
	DefaultFieldCacheTTL  = 30 * time.Second
)

// fieldKey identifies one formatted field. The file's size and mtime plus
// its custom fields are part of the key so edits invalidate naturally.
type fieldKey struct {
	plugin   string
	version  string
	path     string
	view     string
	modified int64
	size     uint64
	fields   string
}

func newFieldKey(ab activeBinding, entry pluginproto.DecoratedEntry, view string) fieldKey {
	return fieldKey{
		plugin:   ab.name,
		version:  ab.descriptor.Version,
		path:     entry.Path,
		view:     view,
		modified: entry.Metadata.Modified,
		size:     entry.Metadata.Size,
		fields:   flattenFields(entry.CustomFields),
	}
}

func flattenFields(fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte(0)
		sb.WriteString(fields[k])
		sb.WriteByte(0)
	}
	return sb.String()
}

type cachedField struct {
	value string
	ok    bool
}

// FieldCache memoizes FormatField results across listing passes, for
// example when a watch loop re-renders the same directory.
type FieldCache struct {
	cache   *lru.LRU[fieldKey, cachedField]
	metrics *observability.Metrics
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewFieldCache creates a cache bounded by size entries, each living ttl.
// Non-positive arguments select the defaults.
func NewFieldCache(size int, ttl time.Duration, metrics *observability.Metrics) *FieldCache {
	if size <= 0 {
		size = DefaultFieldCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultFieldCacheTTL
	}
	return &FieldCache{
		cache:   lru.NewLRU[fieldKey, cachedField](size, nil, ttl),
		metrics: metrics,
	}
}

func (c *FieldCache) get(key fieldKey) (cachedField, bool) {
	v, ok := c.cache.Get(key)
	if ok {
		c.hits.Add(1)
		c.metrics.RecordCacheHit()
	} else {
		c.misses.Add(1)
		c.metrics.RecordCacheMiss()
	}
	return v, ok
}

func (c *FieldCache) add(key fieldKey, v cachedField) {
	c.cache.Add(key, v)
}

// Len returns the number of cached fields.
func (c *FieldCache) Len() int { return c.cache.Len() }

// Stats returns hit and miss counts.
func (c *FieldCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Purge drops every cached field.
func (c *FieldCache) Purge() { c.cache.Purge() }
