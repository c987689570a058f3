// Package ranker scores tool matches against a search query by text
// relevance plus usage frequency, and persists usage counts across
// restarts.
package ranker

import (
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/compresr/mcp-gateway/internal/persist"
)

// Tool is the minimal shape the ranker needs from a registry tool
// descriptor: enough to match and score without importing the
// registry package (avoiding a dependency cycle - registry depends on
// nothing here).
type Tool struct {
	Server      string
	Name        string
	Description string
}

// Match is one scored search result.
type Match struct {
	Tool          Tool
	Score         float64
	viaSynonym    bool
}

// Ranker scores and ranks tools against search queries, tracking
// per-(server,tool) usage counts that boost future rankings.
type Ranker struct {
	mu    sync.Mutex
	usage map[string]int64

	statePath string
}

// New constructs a Ranker whose usage counts persist to
// <stateDir>/usage.json.
func New(stateDir string) *Ranker {
	return &Ranker{
		usage:     make(map[string]int64),
		statePath: filepath.Join(stateDir, "usage.json"),
	}
}

// Load reads persisted usage counts, merging them into any in-memory
// state (useful for tests that seed counts before Load).
func (r *Ranker) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var loaded map[string]int64
	if err := persist.LoadJSON(r.statePath, &loaded); err != nil {
		return err
	}
	for k, v := range loaded {
		r.usage[k] += v
	}
	return nil
}

// Save persists the current usage counts atomically.
func (r *Ranker) Save() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return persist.SaveJSON(r.statePath, r.usage)
}

// RecordUsage increments the invocation count for (server, tool).
func (r *Ranker) RecordUsage(server, tool string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usage[usageKey(server, tool)]++
}

func usageKey(server, tool string) string { return server + ":" + tool }

// UsageCount is one (server, tool) pair's invocation count, used for
// get_stats' top_tools.
type UsageCount struct {
	Server string `json:"server"`
	Tool   string `json:"tool"`
	Count  int64  `json:"count"`
}

// TopUsage returns the n most-invoked tools, descending by count.
func (r *Ranker) TopUsage(n int) []UsageCount {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]UsageCount, 0, len(r.usage))
	for k, count := range r.usage {
		server, tool, ok := splitUsageKey(k)
		if !ok {
			continue
		}
		out = append(out, UsageCount{Server: server, Tool: tool, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Server+out[i].Tool < out[j].Server+out[j].Tool
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func splitUsageKey(k string) (server, tool string, ok bool) {
	idx := strings.Index(k, ":")
	if idx < 0 {
		return "", "", false
	}
	return k[:idx], k[idx+1:], true
}

// Search ranks tools against query, returning up to limit matches
// ordered by final score descending.
func (r *Ranker) Search(tools []Tool, query string, limit int, includeSchema bool) []Match {
	if limit <= 0 {
		limit = 10
	}
	words := strings.Fields(strings.ToLower(query))

	var matches []Match
	for _, t := range tools {
		score, viaSynonym, ok := r.scoreTool(t, words, includeSchema)
		if !ok {
			continue
		}
		matches = append(matches, Match{Tool: t, Score: discountIfSynonym(score, viaSynonym), viaSynonym: viaSynonym})
	}

	r.mu.Lock()
	for i := range matches {
		usage := r.usage[usageKey(matches[i].Tool.Server, matches[i].Tool.Name)]
		matches[i].Score *= 1 + math.Log2(float64(usage)+1)*0.15
	}
	r.mu.Unlock()

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		li, lj := len(matches[i].Tool.Name)+len(matches[i].Tool.Description), len(matches[j].Tool.Name)+len(matches[j].Tool.Description)
		if li != lj {
			return li < lj
		}
		return matches[i].Tool.Name < matches[j].Tool.Name
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// scoreTool applies the score-tier table to one tool against the
// query words, returning (score, viaSynonym, matched).
func (r *Ranker) scoreTool(t Tool, words []string, includeSchema bool) (float64, bool, bool) {
	name := strings.ToLower(t.Name)
	desc := strings.ToLower(t.Description)
	keywords := extractTagWords(desc, "[keywords:")
	schemaFields := extractTagWords(desc, "[schema:")

	if len(words) == 0 {
		return 0, false, false
	}

	viaSynonym := false
	nameHits, descHits, keywordHits, schemaHits := 0, 0, 0, 0
	for _, w := range words {
		candidates := expand(w)
		matchedThis := false
		for _, c := range candidates {
			if c != w {
				if strings.Contains(name, c) || strings.Contains(desc, c) || containsAny(keywords, c) {
					viaSynonym = true
				}
			}
			if strings.Contains(name, c) {
				nameHits++
				matchedThis = true
			}
			if strings.Contains(desc, c) {
				descHits++
				matchedThis = true
			}
			if containsAny(keywords, c) {
				keywordHits++
				matchedThis = true
			}
			if includeSchema && containsAny(schemaFields, c) {
				schemaHits++
				matchedThis = true
			}
			if matchedThis {
				break
			}
		}
	}

	n := len(words)
	full := len(words) > 0

	switch {
	case nameHits == n && full:
		return 15, viaSynonym, true
	case nameHits+descHits >= n && descHits > 0 && full:
		return float64(10 + 2*n), viaSynonym, true
	case n == 1 && name == words[0]:
		return 10, viaSynonym, true
	case keywordHits == n && full:
		return float64(6 + 2*n), viaSynonym, true
	case schemaHits == n && full && includeSchema:
		return float64(4 + 2*n), false, true
	case nameHits > 0 || descHits > 0 || keywordHits > 0:
		m := nameHits
		if descHits > m {
			m = descHits
		}
		if keywordHits > m {
			m = keywordHits
		}
		return float64(3 + 2*m), viaSynonym, true
	case includeSchema && schemaHits > 0:
		return 6, false, true
	case n == 1 && strings.Contains(name, words[0]):
		return 5, viaSynonym, true
	case n == 1 && strings.Contains(desc, words[0]):
		return 2, viaSynonym, true
	default:
		return 0, false, false
	}
}

// discountIfSynonym applies the 0.8 synonym-match discount Search uses
// for every match that only hit via synonym expansion, not a direct
// term match.
func discountIfSynonym(score float64, viaSynonym bool) float64 {
	if viaSynonym {
		return score * 0.8
	}
	return score
}

// Suggest returns up to limit tool names to offer a client whose
// search_tools query matched nothing, preferring the most-used tools
// so a dead-end query still points somewhere useful.
func (r *Ranker) Suggest(tools []Tool, limit int) []string {
	if limit <= 0 {
		limit = 5
	}
	type candidate struct {
		name  string
		usage int64
	}
	r.mu.Lock()
	cands := make([]candidate, len(tools))
	for i, t := range tools {
		cands[i] = candidate{name: t.Name, usage: r.usage[usageKey(t.Server, t.Name)]}
	}
	r.mu.Unlock()

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].usage != cands[j].usage {
			return cands[i].usage > cands[j].usage
		}
		return cands[i].name < cands[j].name
	})

	seen := make(map[string]bool)
	var out []string
	for _, c := range cands {
		if seen[c.name] {
			continue
		}
		seen[c.name] = true
		out = append(out, c.name)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func containsAny(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.Contains(h, needle) {
			return true
		}
	}
	return false
}

// extractTagWords pulls the space/comma-separated words out of a
// "[tag: a, b, c]" suffix in desc, or nil if absent.
func extractTagWords(desc, tagPrefix string) []string {
	idx := strings.Index(desc, tagPrefix)
	if idx < 0 {
		return nil
	}
	rest := desc[idx+len(tagPrefix):]
	end := strings.Index(rest, "]")
	if end < 0 {
		return nil
	}
	body := rest[:end]
	parts := strings.FieldsFunc(body, func(r rune) bool { return r == ',' || r == ' ' })
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
