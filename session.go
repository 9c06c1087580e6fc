package geotrie

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Status discriminates the tagged Result spec.md §4.8 describes.
type Status string

const (
	StatusEmpty   Status = "empty"
	StatusShort   Status = "short"
	StatusStale   Status = "stale"
	StatusMissing Status = "missing"
	StatusReady   Status = "ready"
)

// LookupResult is the facade's tagged return value. Which fields are
// populated depends on Status, per the table in spec.md §4.8.
type LookupResult struct {
	Status Status

	MinLength int // empty, short

	ShardKey string // stale, missing, ready

	Loaded         bool     // ready: true iff this call triggered a new shard fetch
	LocationsCount int      // ready
	Results        []Result // ready

	// DidYouMean is an advisory suggestion (SPEC_FULL.md §4): the cached
	// shard key nearest (by Levenshtein distance) to the one that came up
	// missing. It never changes Status and is empty when no better
	// suggestion exists.
	DidYouMean string
}

// String renders a LookupResult for CLI/debug use (SPEC_FULL.md §4:
// population bucket surfaced in ranking display). Not part of the status
// contract; purely a convenience formatter.
func (r LookupResult) String() string {
	switch r.Status {
	case StatusReady:
		var b strings.Builder
		fmt.Fprintf(&b, "%d result(s) in shard %q (%d locations total)\n", len(r.Results), r.ShardKey, r.LocationsCount)
		for _, res := range r.Results {
			if res.PopulationBucket > 0 {
				fmt.Fprintf(&b, "  %s — %s (pop~10^%d)\n", res.Display, res.PlaceLabel, res.PopulationBucket)
			} else {
				fmt.Fprintf(&b, "  %s — %s\n", res.Display, res.PlaceLabel)
			}
		}
		return b.String()
	case StatusMissing:
		if r.DidYouMean != "" {
			return fmt.Sprintf("no shard for %q; did you mean %q?", r.ShardKey, r.DidYouMean)
		}
		return fmt.Sprintf("no shard for %q", r.ShardKey)
	default:
		return string(r.Status)
	}
}

// Config holds Session's tunables, set via functional Options the way the
// teacher's GeobedConfig/Option pair does.
type Config struct {
	MaxResults     int
	ShardPrefixLen int
	ShardBase      string
	ShardSuffix    string
	ShardRoot      string
	AllowedKinds   KindSet

	Fetcher   Fetcher
	Gunzipper Gunzipper
	Metrics   Collector
	Logger    *log.Logger
}

// Option configures a Session, following the teacher's WithDataDir/
// WithCacheDir functional-option pattern.
type Option func(*Config)

func WithMaxResults(n int) Option           { return func(c *Config) { c.MaxResults = n } }
func WithShardPrefixLen(n int) Option       { return func(c *Config) { c.ShardPrefixLen = n } }
func WithShardBase(base string) Option      { return func(c *Config) { c.ShardBase = base } }
func WithShardSuffix(suffix string) Option  { return func(c *Config) { c.ShardSuffix = suffix } }
func WithShardRoot(root string) Option      { return func(c *Config) { c.ShardRoot = root } }
func WithAllowedKinds(kinds ...Kind) Option {
	return func(c *Config) { c.AllowedKinds = NewKindSet(kinds...) }
}
func WithFetcher(f Fetcher) Option     { return func(c *Config) { c.Fetcher = f } }
func WithGunzipper(g Gunzipper) Option { return func(c *Config) { c.Gunzipper = g } }
func WithMetrics(m Collector) Option   { return func(c *Config) { c.Metrics = m } }
func WithLogger(l *log.Logger) Option  { return func(c *Config) { c.Logger = l } }

func defaultConfig() *Config {
	return &Config{
		MaxResults:     80,
		ShardPrefixLen: 3,
		ShardBase:      "street_trie",
		ShardSuffix:    ".packed.gz",
		ShardRoot:      "",
		AllowedKinds:   AnyKind,
	}
}

// Session is the lookup facade of spec.md §4.8: a single entry point,
// Lookup, that owns the shard manager and a monotonic lookupID used to
// detect and discard stale results (spec.md §5). There is no package-level
// state (spec.md §9, "Global/module state" design note): every Session is
// independent.
type Session struct {
	manager        *ShardManager
	maxResults     int
	shardPrefixLen int
	allowedKinds   KindSet
	metrics        Collector

	lookupID atomic.Uint64
}

// New builds a Session. ShardRoot must be set via WithShardRoot; every other
// option defaults per spec.md §6.
func New(opts ...Option) (*Session, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.ShardRoot == "" {
		return nil, fmt.Errorf("geotrie: WithShardRoot is required")
	}
	if cfg.ShardPrefixLen <= 0 {
		return nil, fmt.Errorf("geotrie: ShardPrefixLen must be positive")
	}

	return &Session{
		manager:        NewShardManager(cfg.ShardRoot, cfg.ShardBase, cfg.ShardSuffix, cfg.Fetcher, cfg.Gunzipper, cfg.Metrics, cfg.Logger),
		maxResults:     cfg.MaxResults,
		shardPrefixLen: cfg.ShardPrefixLen,
		allowedKinds:   cfg.AllowedKinds,
		metrics:        orNoop(cfg.Metrics),
	}, nil
}

func orNoop(c Collector) Collector {
	if c == nil {
		return NoopCollector{}
	}
	return c
}

// SetAllowedKinds updates the kind filter applied to future lookups, per
// spec.md §6's setAllowedKinds(iterable|none) method. Passing no kinds
// resets the filter to AnyKind.
func (s *Session) SetAllowedKinds(kinds ...Kind) {
	s.allowedKinds = NewKindSet(kinds...)
}

// parseQuery splits a lookup query on its first comma into a street query
// and an optional city filter, both trimmed, per spec.md §4.8.
func parseQuery(query string) (street, city string) {
	before, after, found := strings.Cut(query, ",")
	if !found {
		return strings.TrimSpace(query), ""
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}

// Lookup is the single entry point of spec.md §4.8. It is safe to call
// concurrently (e.g. once per keystroke): lookupID makes a call whose shard
// fetch resolves after a later call started return StatusStale instead of
// overwriting the newer call's view of the world (spec.md §5, P7).
func (s *Session) Lookup(ctx context.Context, query string) LookupResult {
	myID := s.lookupID.Add(1)

	street, city := parseQuery(query)
	normalizedStreet := normalize(street)

	if normalizedStreet == "" {
		return s.finish(LookupResult{Status: StatusEmpty, MinLength: s.shardPrefixLen})
	}
	if utf8.RuneCountInString(normalizedStreet) < s.shardPrefixLen {
		return s.finish(LookupResult{Status: StatusShort, MinLength: s.shardPrefixLen})
	}

	key, ok := ShardKey(street, s.shardPrefixLen)
	if !ok {
		// normalizedStreet is non-empty, so ShardKey cannot fail; defensive only.
		return s.finish(LookupResult{Status: StatusEmpty, MinLength: s.shardPrefixLen})
	}

	shard, loaded, err := s.manager.Get(ctx, key)

	// Staleness check: re-read the counter after the suspension point. If a
	// later Lookup call has started, this call's result is discarded.
	if s.lookupID.Load() != myID {
		return s.finish(LookupResult{Status: StatusStale, ShardKey: key})
	}

	if err != nil {
		return s.finish(LookupResult{
			Status:     StatusMissing,
			ShardKey:   key,
			DidYouMean: s.didYouMean(key),
		})
	}

	matches := Match(shard, street, city, s.allowedKinds, s.maxResults)
	results := Rank(shard, matches, normalize(street))
	if len(results) > s.maxResults {
		results = results[:s.maxResults]
	}

	return s.finish(LookupResult{
		Status:         StatusReady,
		ShardKey:       key,
		Loaded:         loaded,
		LocationsCount: shard.LocationsCount,
		Results:        results,
	})
}

func (s *Session) finish(r LookupResult) LookupResult {
	s.metrics.LookupServed(string(r.Status), len(r.Results))
	return r
}

// didYouMean suggests the cached shard key nearest to key by Levenshtein
// distance, the facade-level counterpart to the matcher's fuzzy city filter
// (SPEC_FULL.md §4). key itself is never suggested; any other cached key
// qualifies whatever its distance, so it returns "" only when the cache holds
// no key other than key.
func (s *Session) didYouMean(key string) string {
	best := ""
	bestDist := -1
	for _, candidate := range s.manager.CachedKeys() {
		if candidate == key {
			continue
		}
		d := levenshtein.ComputeDistance(key, candidate)
		if bestDist == -1 || d < bestDist {
			bestDist = d
			best = candidate
		}
	}
	return best
}
