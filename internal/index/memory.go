package index

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/matheus3301/chatvault/internal/model"
)

// Default cache caps for the hand-rolled strategy.
const (
	DefaultArchiveCacheSize = 50
	DefaultSearchCacheSize  = 20
)

// Loader resolves archives for scoring and rebuilds. The store satisfies it.
type Loader interface {
	Archive(ctx context.Context, archiveID string) (*model.ArchivedChat, []string, error)
	ArchiveIDs(ctx context.Context) ([]string, error)
}

// Memory is the hand-rolled inverted index: word, contact and year-month
// maps from token to archive-id sets, with bounded LRU caches in front of
// archive loads and search results. All map read-modify-write cycles happen
// under the mutex.
type Memory struct {
	mu       sync.RWMutex
	words    map[string]map[string]struct{}
	contacts map[string]map[string]struct{}
	months   map[string]map[string]struct{}

	archives *lru.Cache[string, *model.ArchivedChat]
	results  *lru.Cache[string, []model.SearchMatch]

	loader Loader
}

// NewMemory creates the in-memory strategy. Cache sizes at or below zero use
// the defaults.
func NewMemory(loader Loader, archiveCacheSize, searchCacheSize int) (*Memory, error) {
	if archiveCacheSize <= 0 {
		archiveCacheSize = DefaultArchiveCacheSize
	}
	if searchCacheSize <= 0 {
		searchCacheSize = DefaultSearchCacheSize
	}
	archives, err := lru.New[string, *model.ArchivedChat](archiveCacheSize)
	if err != nil {
		return nil, fmt.Errorf("archive cache: %w", err)
	}
	results, err := lru.New[string, []model.SearchMatch](searchCacheSize)
	if err != nil {
		return nil, fmt.Errorf("search cache: %w", err)
	}
	return &Memory{
		words:    make(map[string]map[string]struct{}),
		contacts: make(map[string]map[string]struct{}),
		months:   make(map[string]map[string]struct{}),
		archives: archives,
		results:  results,
		loader:   loader,
	}, nil
}

// Rebuild repopulates the index from the vault. Called once on startup; the
// FTS strategy has no equivalent because its index is durable.
func (m *Memory) Rebuild(ctx context.Context) error {
	ids, err := m.loader.ArchiveIDs(ctx)
	if err != nil {
		return fmt.Errorf("list archives: %w", err)
	}
	for _, id := range ids {
		chat, _, err := m.loader.Archive(ctx, id)
		if err != nil {
			return fmt.Errorf("load archive %s: %w", id, err)
		}
		if chat == nil {
			continue
		}
		if err := m.Add(ctx, chat); err != nil {
			return err
		}
	}
	return nil
}

// Add indexes an archived chat and caches it.
func (m *Memory) Add(ctx context.Context, chat *model.ArchivedChat) error {
	m.mu.Lock()
	for i := range chat.Messages {
		msg := &chat.Messages[i]
		for _, tok := range Tokenize(msg.SearchableText + " " + msg.Content) {
			addToSet(m.words, tok, chat.ArchiveID)
		}
		addToSet(m.months, monthKey(msg.OriginalTimestamp), chat.ArchiveID)
	}
	if chat.ContactName != "" {
		addToSet(m.contacts, strings.ToLower(chat.ContactName), chat.ArchiveID)
	}
	m.mu.Unlock()

	m.archives.Add(chat.ArchiveID, chat)
	// Writes invalidate cached results wholesale, never patched in place.
	m.results.Purge()
	return nil
}

// Remove drops an archive from every index map and both caches.
func (m *Memory) Remove(ctx context.Context, archiveID string) error {
	m.mu.Lock()
	for _, idx := range []map[string]map[string]struct{}{m.words, m.contacts, m.months} {
		for key, set := range idx {
			delete(set, archiveID)
			if len(set) == 0 {
				delete(idx, key)
			}
		}
	}
	m.mu.Unlock()

	m.archives.Remove(archiveID)
	m.results.Purge()
	return nil
}

// Search intersects per-token candidate sets (AND semantics), narrows them
// by contact and date, then scores the matching messages of each candidate.
func (m *Memory) Search(ctx context.Context, query string, f *model.SearchFilter, limit int) ([]model.SearchMatch, error) {
	words := Tokenize(query)
	if len(words) == 0 {
		return nil, nil
	}

	key := cacheKey(query, f)
	if cached, ok := m.results.Get(key); ok {
		return cached, nil
	}

	candidates := m.candidates(words, f)
	if len(candidates) == 0 {
		return nil, nil
	}

	now := time.Now()
	var matches []model.SearchMatch
	for _, id := range candidates {
		chat, err := m.archive(ctx, id)
		if err != nil {
			return nil, err
		}
		if chat == nil {
			continue
		}
		for i := range chat.Messages {
			msg := &chat.Messages[i]
			if !messageMatches(msg, words) {
				continue
			}
			// Month candidates are coarse; enforce the exact bounds here.
			if f != nil && f.After > 0 && msg.OriginalTimestamp < f.After {
				continue
			}
			if f != nil && f.Before > 0 && msg.OriginalTimestamp > f.Before {
				continue
			}
			matches = append(matches, model.SearchMatch{
				ArchiveID: id,
				Message:   *msg,
				Score:     Score(msg, query, words, now),
			})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Message.OriginalTimestamp > matches[j].Message.OriginalTimestamp
	})

	m.results.Add(key, matches)
	return matches, nil
}

// candidates computes the AND-intersection of per-token archive-id sets,
// further intersected with the contact and date indices when filtered.
func (m *Memory) candidates(words []string, f *model.SearchFilter) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result map[string]struct{}
	for _, w := range words {
		set := m.words[w]
		if len(set) == 0 {
			return nil
		}
		result = intersect(result, set)
		if len(result) == 0 {
			return nil
		}
	}
	if f != nil && f.ContactName != "" {
		contactSet := make(map[string]struct{})
		needle := strings.ToLower(f.ContactName)
		for name, set := range m.contacts {
			if strings.Contains(name, needle) {
				for id := range set {
					contactSet[id] = struct{}{}
				}
			}
		}
		result = intersect(result, contactSet)
	}
	if f != nil && (f.After > 0 || f.Before > 0) {
		dateSet := make(map[string]struct{})
		for _, month := range monthsInRange(f.After, f.Before) {
			for id := range m.months[month] {
				dateSet[id] = struct{}{}
			}
		}
		result = intersect(result, dateSet)
	}

	out := make([]string, 0, len(result))
	for id := range result {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// archive loads through the bounded LRU cache.
func (m *Memory) archive(ctx context.Context, id string) (*model.ArchivedChat, error) {
	if chat, ok := m.archives.Get(id); ok {
		return chat, nil
	}
	chat, _, err := m.loader.Archive(ctx, id)
	if err != nil {
		return nil, err
	}
	if chat != nil {
		m.archives.Add(id, chat)
	}
	return chat, nil
}

// messageMatches requires every query word to appear in the message text.
func messageMatches(msg *model.ArchivedMessage, words []string) bool {
	text := msg.SearchableText
	if text == "" {
		text = Normalize(msg.Content)
	}
	for _, w := range words {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}

func addToSet(idx map[string]map[string]struct{}, key, id string) {
	if key == "" {
		return
	}
	set, ok := idx[key]
	if !ok {
		set = make(map[string]struct{})
		idx[key] = set
	}
	set[id] = struct{}{}
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	if a == nil {
		out := make(map[string]struct{}, len(b))
		for id := range b {
			out[id] = struct{}{}
		}
		return out
	}
	out := make(map[string]struct{})
	for id := range a {
		if _, ok := b[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

func monthKey(ts int64) string {
	return time.UnixMilli(ts).UTC().Format("2006-01")
}

// monthsInRange enumerates year-month keys between the bounds. Open bounds
// default to a ten-year window around now.
func monthsInRange(after, before int64) []string {
	start := time.Now().UTC().AddDate(-10, 0, 0)
	end := time.Now().UTC()
	if after > 0 {
		start = time.UnixMilli(after).UTC()
	}
	if before > 0 {
		end = time.UnixMilli(before).UTC()
	}
	start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)

	var months []string
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 1, 0) {
		months = append(months, cur.Format("2006-01"))
	}
	return months
}

func cacheKey(query string, f *model.SearchFilter) string {
	if f == nil {
		return query
	}
	return fmt.Sprintf("%s|%s|%d|%d", query, strings.ToLower(f.ContactName), f.After, f.Before)
}
