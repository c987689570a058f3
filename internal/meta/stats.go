package meta

import (
	"encoding/json"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/compresr/mcp-gateway/internal/monitoring"
	"github.com/compresr/mcp-gateway/internal/ranker"
	"github.com/compresr/mcp-gateway/internal/registry"
)

// Stats is the get_stats snapshot.
type Stats struct {
	Invocations  uint64               `json:"invocations"`
	CacheHits    int64                `json:"cache_hits"`
	CacheMisses  int64                `json:"cache_misses"`
	CacheHitRate float64              `json:"cache_hit_rate"`
	TokensSaved  int                  `json:"tokens_saved"`
	TopTools     []ranker.UsageCount  `json:"top_tools"`
}

// encoding is the tiktoken-go BPE encoding used to estimate token
// counts; cl100k_base matches the encoding most MCP clients' host
// models use, so the estimate is conservative rather than exact.
var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

func tokenEncoding() *tiktoken.Tiktoken {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})
	return encoding
}

// StatsCollector assembles get_stats snapshots from the dispatcher's
// bookkeeping and the registry's known tool descriptors.
type StatsCollector struct {
	dispatcher *Dispatcher
	registry   *registry.Registry
	ranker     *ranker.Ranker
	metrics    *monitoring.MetricsCollector
}

// NewStatsCollector constructs a StatsCollector over the running
// gateway's shared state.
func NewStatsCollector(d *Dispatcher, reg *registry.Registry, rk *ranker.Ranker, mc *monitoring.MetricsCollector) *StatsCollector {
	return &StatsCollector{dispatcher: d, registry: reg, ranker: rk, metrics: mc}
}

// Snapshot computes the current get_stats result.
func (s *StatsCollector) Snapshot() Stats {
	m := s.metrics.Stats()
	hits, misses := m["cache_hits"], m["cache_misses"]

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Invocations:  s.dispatcher.Invocations(),
		CacheHits:    hits,
		CacheMisses:  misses,
		CacheHitRate: hitRate,
		TokensSaved:  s.estimateTokensSaved(),
		TopTools:     s.ranker.TopUsage(10),
	}
}

// estimateTokensSaved sums the token count of every known tool
// descriptor's JSON representation - the context cost a client would
// pay if every schema were loaded up front instead of discovered
// on-demand through search_tools.
func (s *StatsCollector) estimateTokensSaved() int {
	enc := tokenEncoding()
	if enc == nil {
		return 0
	}

	total := 0
	for _, b := range s.registry.All() {
		tools, ok := b.CachedTools()
		if !ok {
			continue
		}
		for _, t := range tools {
			blob, err := json.Marshal(t)
			if err != nil {
				continue
			}
			total += len(enc.Encode(string(blob), nil, nil))
		}
	}
	return total
}
