package index

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/matheus3301/chatvault/internal/model"
)

// fakeLoader serves archives from a map and counts loads.
type fakeLoader struct {
	archives map[string]*model.ArchivedChat
	loads    int
}

func (l *fakeLoader) Archive(_ context.Context, id string) (*model.ArchivedChat, []string, error) {
	l.loads++
	return l.archives[id], nil, nil
}

func (l *fakeLoader) ArchiveIDs(_ context.Context) ([]string, error) {
	var ids []string
	for id := range l.archives {
		ids = append(ids, id)
	}
	return ids, nil
}

func testChat(id, contact string, texts ...string) *model.ArchivedChat {
	now := time.Now().UnixMilli()
	chat := &model.ArchivedChat{
		ArchiveID:   id,
		ContactName: contact,
		ArchivedAt:  now,
	}
	for i, text := range texts {
		chat.Messages = append(chat.Messages, model.ArchivedMessage{
			ID:                fmt.Sprintf("%s-m%d", id, i),
			ArchiveID:         id,
			Content:           text,
			SearchableText:    Normalize(text),
			OriginalTimestamp: now - int64(i)*1000,
		})
	}
	return chat
}

func testMemory(t *testing.T, chats ...*model.ArchivedChat) (*Memory, *fakeLoader) {
	t.Helper()
	loader := &fakeLoader{archives: make(map[string]*model.ArchivedChat)}
	m, err := NewMemory(loader, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range chats {
		loader.archives[c.ArchiveID] = c
		if err := m.Add(context.Background(), c); err != nil {
			t.Fatal(err)
		}
	}
	return m, loader
}

func TestMemorySearchSingleArchive(t *testing.T) {
	m, _ := testMemory(t,
		testChat("a1", "Alice", "let's meet at the harbor"),
		testChat("a2", "Bob", "totally unrelated content"),
	)

	matches, err := m.Search(context.Background(), "harbor", nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].ArchiveID != "a1" {
		t.Errorf("archive = %q, want a1", matches[0].ArchiveID)
	}
	if matches[0].Score <= 0 {
		t.Errorf("score = %d, want > 0", matches[0].Score)
	}
}

func TestMemorySearchAndSemantics(t *testing.T) {
	m, _ := testMemory(t,
		testChat("a1", "Alice", "project deadline moved"),
		testChat("a2", "Bob", "project kickoff today"),
	)

	// Both words must match the same archive.
	matches, err := m.Search(context.Background(), "project deadline", nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].ArchiveID != "a1" {
		t.Errorf("matches = %v, want only a1", matches)
	}
}

func TestMemorySearchNoResults(t *testing.T) {
	m, _ := testMemory(t, testChat("a1", "Alice", "hello there"))

	matches, err := m.Search(context.Background(), "xyzzy", nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("got %d matches, want 0", len(matches))
	}
}

func TestMemorySearchContactFilter(t *testing.T) {
	m, _ := testMemory(t,
		testChat("a1", "Alice", "lunch tomorrow"),
		testChat("a2", "Bob", "lunch tomorrow"),
	)

	matches, err := m.Search(context.Background(), "lunch", &model.SearchFilter{ContactName: "ali"}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].ArchiveID != "a1" {
		t.Errorf("matches = %v, want only a1", matches)
	}
}

func TestMemorySearchDateFilter(t *testing.T) {
	m, _ := testMemory(t, testChat("a1", "Alice", "old news item"))

	// A window in the distant past excludes the fresh message.
	past := time.Now().AddDate(-5, 0, 0).UnixMilli()
	matches, err := m.Search(context.Background(), "news", &model.SearchFilter{Before: past}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("got %d matches, want 0 outside date window", len(matches))
	}

	matches, err = m.Search(context.Background(), "news", &model.SearchFilter{After: past}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Errorf("got %d matches, want 1 inside date window", len(matches))
	}
}

func TestMemoryRemove(t *testing.T) {
	m, _ := testMemory(t, testChat("a1", "Alice", "disappearing act"))

	if err := m.Remove(context.Background(), "a1"); err != nil {
		t.Fatal(err)
	}
	matches, err := m.Search(context.Background(), "disappearing", nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("got %d matches after remove, want 0", len(matches))
	}
}

func TestMemorySearchResultCache(t *testing.T) {
	m, loader := testMemory(t, testChat("a1", "Alice", "cached query text"))

	if _, err := m.Search(context.Background(), "cached", nil, 10); err != nil {
		t.Fatal(err)
	}
	loads := loader.loads
	if _, err := m.Search(context.Background(), "cached", nil, 10); err != nil {
		t.Fatal(err)
	}
	if loader.loads != loads {
		t.Error("second identical search should be served from cache")
	}

	// A write clears the result cache conservatively: a new archive with the
	// same token must show up in the next identical search.
	if err := m.Add(context.Background(), testChat("a2", "Bob", "also cached here")); err != nil {
		t.Fatal(err)
	}
	matches, err := m.Search(context.Background(), "cached", nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	ids := make(map[string]bool)
	for _, match := range matches {
		ids[match.ArchiveID] = true
	}
	if !ids["a1"] || !ids["a2"] {
		t.Errorf("post-write search matched %v, want both archives", ids)
	}
}

func TestMemoryRebuild(t *testing.T) {
	loader := &fakeLoader{archives: map[string]*model.ArchivedChat{
		"a1": testChat("a1", "Alice", "rebuild me please"),
	}}
	m, err := NewMemory(loader, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	matches, err := m.Search(context.Background(), "rebuild", nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Errorf("got %d matches after rebuild, want 1", len(matches))
	}
}

func TestMemoryArchiveCacheBounded(t *testing.T) {
	loader := &fakeLoader{archives: make(map[string]*model.ArchivedChat)}
	m, err := NewMemory(loader, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("a%d", i)
		c := testChat(id, "Contact", "shared token content")
		loader.archives[id] = c
		if err := m.Add(context.Background(), c); err != nil {
			t.Fatal(err)
		}
	}
	if m.archives.Len() > 2 {
		t.Errorf("archive cache len = %d, want <= 2", m.archives.Len())
	}
}
