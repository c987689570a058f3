// Closed synonym mapping used to expand query words before matching.
// Matches made only via a synonym (not the literal word) are tagged
// for the 0.8 score discount applied in ranker.go.
package ranker

var synonyms = map[string][]string{
	"web":     {"search", "google", "brave"},
	"search":  {"web", "google", "brave", "find"},
	"weather": {"forecast", "temperature", "climate"},
	"file":    {"document", "doc", "fs"},
	"email":   {"mail", "smtp", "inbox"},
	"db":      {"database", "sql", "storage"},
	"image":   {"photo", "picture", "img"},
	"code":    {"source", "repo", "git"},
	"chat":    {"message", "conversation", "talk"},
	"time":    {"clock", "date", "schedule"},
}

// expand returns word plus every synonym registered for it.
func expand(word string) []string {
	out := []string{word}
	if syns, ok := synonyms[word]; ok {
		out = append(out, syns...)
	}
	return out
}
