// Package index provides archive search behind one interface with two
// interchangeable strategies: a query against the trigger-maintained FTS
// table colocated with the store, and a hand-rolled in-memory inverted index
// with bounded LRU caches.
package index

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/matheus3301/chatvault/internal/model"
)

// Index is the search strategy contract consumed by the archive engine.
type Index interface {
	// Add indexes a freshly archived chat.
	Add(ctx context.Context, chat *model.ArchivedChat) error
	// Remove drops an archive from the index.
	Remove(ctx context.Context, archiveID string) error
	// Search returns matched messages for a query, candidate-filtered by the
	// contact and date fields of f. Message-type post-filtering is the
	// caller's job.
	Search(ctx context.Context, query string, f *model.SearchFilter, limit int) ([]model.SearchMatch, error)
}

// StrategyFTS and StrategyMemory name the two index strategies in config.
const (
	StrategyFTS    = "fts"
	StrategyMemory = "memory"
)

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

// Normalize lowercases s and strips non-word characters, producing the
// indexable searchable-text projection of message content.
func Normalize(s string) string {
	return strings.Join(strings.Fields(nonWord.ReplaceAllString(strings.ToLower(s), " ")), " ")
}

// Tokenize splits normalized text into index tokens, discarding tokens of
// length two or less.
func Tokenize(s string) []string {
	var out []string
	for _, tok := range strings.Fields(Normalize(s)) {
		if len(tok) > 2 {
			out = append(out, tok)
		}
	}
	return out
}

// Score ranks a matched message against a query: exact substring matches of
// the full query weigh most, then per-word prefix and containment matches,
// boosted by recency, starred state and elevated priority.
func Score(msg *model.ArchivedMessage, query string, words []string, now time.Time) int {
	text := msg.SearchableText
	if text == "" {
		text = Normalize(msg.Content)
	}
	score := 0
	if q := Normalize(query); q != "" && strings.Contains(text, q) {
		score += 10
	}
	contentWords := strings.Fields(text)
	for _, w := range words {
		best := 0
		for _, cw := range contentWords {
			if strings.HasPrefix(cw, w) {
				best = 5
				break
			}
			if best < 2 && strings.Contains(cw, w) {
				best = 2
			}
		}
		score += best
	}
	age := now.Sub(time.UnixMilli(msg.OriginalTimestamp))
	if age < 30*24*time.Hour {
		score++
	}
	if age < 7*24*time.Hour {
		score += 2
	}
	if msg.Starred {
		score += 3
	}
	if msg.Priority > model.PriorityNormal {
		score++
	}
	return score
}
