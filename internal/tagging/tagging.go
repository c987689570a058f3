// Package tagging enriches raw tool descriptions before they reach
// the ranker: differential descriptions disambiguate same-family
// tools from the same server, and auto-tagging appends a
// "[keywords: ...]" suffix the ranker's keyword tier matches against.
package tagging

import (
	"regexp"
	"sort"
	"strings"
)

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "this": true,
	"that": true, "from": true, "into": true, "your": true, "you": true,
	"are": true, "can": true, "will": true, "use": true, "used": true,
	"using": true, "via": true, "all": true, "any": true, "its": true,
	"tool": true, "allows": true, "returns": true, "provides": true,
}

var wordPattern = regexp.MustCompile(`[A-Za-z]+`)

// Tool is the minimal shape tagging operates on.
type Tool struct {
	Server      string
	Name        string
	Description string
}

// ApplyAutoTags appends a "[keywords: ...]" suffix to every tool's
// description, built from up to 7 distinct, non-stopword tokens of
// length >= 3 found in the name and description, sorted by descending
// length. Already-tagged descriptions are left untouched (idempotent).
func ApplyAutoTags(tools []Tool) []Tool {
	out := make([]Tool, len(tools))
	for i, t := range tools {
		out[i] = t
		if strings.Contains(t.Description, "[keywords:") {
			continue
		}
		keywords := extractKeywords(t.Name + " " + t.Description)
		if len(keywords) == 0 {
			continue
		}
		out[i].Description = t.Description + " [keywords: " + strings.Join(keywords, ", ") + "]"
	}
	return out
}

func extractKeywords(text string) []string {
	seen := make(map[string]bool)
	var words []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if len(w) < 3 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	sort.SliceStable(words, func(i, j int) bool { return len(words[i]) > len(words[j]) })
	if len(words) > 7 {
		words = words[:7]
	}
	return words
}

// ApplyDifferentialDescriptions groups tools by (server, family) -
// family being the name's leading snake_case segment, up to the first
// underscore (see familyPrefix) - and, for families with more than one
// member, strips words common to every member's description so each
// tool's description highlights only what distinguishes it.
func ApplyDifferentialDescriptions(tools []Tool) []Tool {
	families := make(map[string][]int)
	for i, t := range tools {
		key := t.Server + ":" + familyPrefix(t.Name)
		families[key] = append(families[key], i)
	}

	out := make([]Tool, len(tools))
	copy(out, tools)

	for _, idxs := range families {
		if len(idxs) < 2 {
			continue
		}
		shared := sharedWords(idxs, tools)
		if len(shared) == 0 {
			continue
		}
		for _, i := range idxs {
			out[i].Description = removeWords(tools[i].Description, shared)
		}
	}
	return out
}

// familyPrefix returns the leading snake_case segment of a tool name,
// e.g. "github_create_issue" -> "github".
func familyPrefix(name string) string {
	if idx := strings.Index(name, "_"); idx > 0 {
		return name[:idx]
	}
	return name
}

func sharedWords(idxs []int, tools []Tool) map[string]bool {
	var sets []map[string]bool
	for _, i := range idxs {
		set := make(map[string]bool)
		for _, w := range wordPattern.FindAllString(strings.ToLower(tools[i].Description), -1) {
			set[w] = true
		}
		sets = append(sets, set)
	}
	if len(sets) == 0 {
		return nil
	}
	shared := make(map[string]bool)
	for w := range sets[0] {
		inAll := true
		for _, s := range sets[1:] {
			if !s[w] {
				inAll = false
				break
			}
		}
		if inAll && !stopwords[w] {
			shared[w] = true
		}
	}
	return shared
}

func removeWords(desc string, shared map[string]bool) string {
	fields := strings.Fields(desc)
	var kept []string
	for _, f := range fields {
		bare := strings.ToLower(wordPattern.FindString(f))
		if bare != "" && shared[bare] {
			continue
		}
		kept = append(kept, f)
	}
	result := strings.Join(kept, " ")
	if result == "" {
		return desc
	}
	return result
}
