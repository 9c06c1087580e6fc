package geotrie

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ShardKey derives the fixed-length, [a-z0-9_]-only cache/fetch key spec.md
// §4.7 describes: normalize the query, take its first prefixLen normalized
// code points, map anything outside [a-z0-9] to '_', and right-pad with '_'
// to exactly prefixLen. ShardKey reports ok=false when the normalized query
// is empty, since there is then no prefix to key a shard by.
func ShardKey(query string, prefixLen int) (key string, ok bool) {
	n := normalize(query)
	if n == "" {
		return "", false
	}
	runes := []rune(n)
	if len(runes) > prefixLen {
		runes = runes[:prefixLen]
	}

	var b strings.Builder
	b.Grow(prefixLen)
	for _, r := range runes {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	for b.Len() < prefixLen {
		b.WriteByte('_')
	}
	return b.String(), true
}

// ShardManager owns the shard cache, the in-flight fetch dedupe, and the
// default Fetcher/Gunzipper collaborators (spec.md §4.7). It is safe for
// concurrent use: the cache is protected by a mutex, per spec.md §5's
// requirement that C7 mutations be serialized behind a single lock when the
// host language has real parallelism (Go does).
type ShardManager struct {
	mu    sync.RWMutex
	cache map[string]*Shard

	group singleflight.Group

	fetcher   Fetcher
	gunzipper Gunzipper

	shardRoot, shardBase, shardSuffix string

	metrics Collector
	logger  *log.Logger
}

// NewShardManager builds a ShardManager. fetcher and gunzipper default to
// the HTTP and gzip collaborators if nil; metrics defaults to a no-op
// Collector; logger defaults to log.Default(), matching the teacher's
// convention of logging failures rather than swallowing them silently.
func NewShardManager(shardRoot, shardBase, shardSuffix string, fetcher Fetcher, gunzipper Gunzipper, metrics Collector, logger *log.Logger) *ShardManager {
	if fetcher == nil {
		fetcher = NewHTTPFetcher(10 * time.Second)
	}
	if gunzipper == nil {
		gunzipper = NewGzipGunzipper()
	}
	if metrics == nil {
		metrics = NoopCollector{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ShardManager{
		cache:       make(map[string]*Shard),
		fetcher:     fetcher,
		gunzipper:   gunzipper,
		shardRoot:   shardRoot,
		shardBase:   shardBase,
		shardSuffix: shardSuffix,
		metrics:     metrics,
		logger:      logger,
	}
}

// shardURL builds "{shardRoot}/{shardBase}.shard_{key}{shardSuffix}" per
// spec.md §4.7.
func (m *ShardManager) shardURL(key string) string {
	return fmt.Sprintf("%s/%s.shard_%s%s", m.shardRoot, m.shardBase, key, m.shardSuffix)
}

// Get returns the Shard for key, either from cache or by fetching and
// decoding it. loaded reports whether this call triggered a new fetch
// (false on a cache hit, true whether or not the fetch was shared with a
// concurrent caller for the same key via singleflight — spec.md §4.8's
// Result.loaded is defined purely in terms of cache-hit vs not).
//
// ShardNotFound, UnsupportedVersion, and BadFormat failures are never
// written to the cache (spec.md §7): a transient or malformed shard at one
// keystroke must not poison subsequent lookups of the same key.
func (m *ShardManager) Get(ctx context.Context, key string) (shard *Shard, loaded bool, err error) {
	m.mu.RLock()
	if s, ok := m.cache[key]; ok {
		m.mu.RUnlock()
		m.metrics.CacheHit()
		return s, false, nil
	}
	m.mu.RUnlock()

	m.metrics.CacheMiss()

	v, err, _ := m.group.Do(key, func() (any, error) {
		start := time.Now()
		s, ferr := m.fetchAndDecode(ctx, key)
		m.metrics.FetchDuration(time.Since(start), ferr == nil)
		if ferr != nil {
			return nil, ferr
		}

		m.mu.Lock()
		m.cache[key] = s
		m.mu.Unlock()
		return s, nil
	})
	if err != nil {
		m.logFailure(key, err)
		return nil, true, err
	}
	return v.(*Shard), true, nil
}

func (m *ShardManager) fetchAndDecode(ctx context.Context, key string) (*Shard, error) {
	url := m.shardURL(key)
	buf, err := m.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	shard, err := Decode(buf, m.gunzipper)
	if err != nil {
		m.metrics.DecodeFailure()
		return nil, err
	}
	return shard, nil
}

// logFailure logs a shard-acquire failure for diagnostics, per spec.md §7's
// instruction that implementations "should additionally log the underlying
// cause" even though the facade maps every such failure to status=missing.
func (m *ShardManager) logFailure(key string, err error) {
	m.logger.Printf("geotrie: shard %q unavailable: %v", key, err)
}

// CachedKeys returns the shard keys currently resident in the cache, used by
// the facade's "did you mean" suggestion (SPEC_FULL.md §4) and by tests.
func (m *ShardManager) CachedKeys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.cache))
	for k := range m.cache {
		keys = append(keys, k)
	}
	return keys
}
