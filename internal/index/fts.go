package index

import (
	"context"

	"github.com/matheus3301/chatvault/internal/model"
)

// Searcher is the store-side FTS query surface.
type Searcher interface {
	SearchMessages(ctx context.Context, query string, f *model.SearchFilter, limit int) ([]model.SearchMatch, error)
}

// FTS delegates search to the full-text index maintained by the storage
// engine. Insert and delete triggers keep the index consistent with the
// message rows, so Add and Remove have nothing to do; that removes a whole
// class of out-of-sync-index bugs.
type FTS struct {
	db Searcher
}

// NewFTS creates the engine-backed strategy.
func NewFTS(db Searcher) *FTS {
	return &FTS{db: db}
}

// Add is a no-op: the insert trigger already indexed the rows.
func (s *FTS) Add(ctx context.Context, chat *model.ArchivedChat) error {
	return nil
}

// Remove is a no-op: the delete trigger already dropped the rows.
func (s *FTS) Remove(ctx context.Context, archiveID string) error {
	return nil
}

// Search runs one MATCH query, most recent first.
func (s *FTS) Search(ctx context.Context, query string, f *model.SearchFilter, limit int) ([]model.SearchMatch, error) {
	return s.db.SearchMessages(ctx, query, f, limit)
}
