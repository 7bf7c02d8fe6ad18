package store

import (
	"context"
	"strings"

	"github.com/matheus3301/chatvault/internal/model"
)

// SearchMessages performs a full-text search over archived message text using
// the trigger-maintained FTS index. Results come back most recent first,
// capped at twice the requested limit to leave room for post-filtering.
func (db *DB) SearchMessages(ctx context.Context, query string, f *model.SearchFilter, limit int) ([]model.SearchMatch, error) {
	if limit <= 0 {
		limit = 50
	}
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}

	q := `
		SELECT ` + prefixColumns("m", messageColumns) + `
		FROM archive_messages_fts f
		JOIN archive_messages m ON m.id = f.rowid
		JOIN archives a ON a.archive_id = m.archive_id
		WHERE archive_messages_fts MATCH ?`
	args := []any{match}
	if f != nil {
		if f.ContactName != "" {
			q += ` AND a.contact_name LIKE ?`
			args = append(args, "%"+f.ContactName+"%")
		}
		if f.After > 0 {
			q += ` AND m.original_timestamp >= ?`
			args = append(args, f.After)
		}
		if f.Before > 0 {
			q += ` AND m.original_timestamp <= ?`
			args = append(args, f.Before)
		}
	}
	q += ` ORDER BY m.original_timestamp DESC LIMIT ?`
	args = append(args, 2*limit)

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var matches []model.SearchMatch
	for rows.Next() {
		row, err := scanMessageRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		// Per-field read degradations are acceptable in search results; the
		// searchable text that matched is always present.
		msg, _ := db.mapper.MessageFromRow(row)
		matches = append(matches, model.SearchMatch{ArchiveID: row.ArchiveID, Message: *msg})
	}
	return matches, rows.Err()
}

// ftsQuery builds a safe FTS5 MATCH expression: each token is quoted and the
// tokens combine with implicit AND.
func ftsQuery(query string) string {
	var tokens []string
	for _, tok := range strings.Fields(query) {
		tok = strings.ReplaceAll(tok, `"`, "")
		if tok == "" {
			continue
		}
		tokens = append(tokens, `"`+tok+`"`)
	}
	return strings.Join(tokens, " ")
}

// prefixColumns qualifies a comma-separated column list with a table alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
