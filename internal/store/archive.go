package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/matheus3301/chatvault/internal/model"
)

// InsertArchive persists an archived chat and all its messages and removes
// the corresponding live rows, all in one transaction. Either everything
// commits or nothing is visible.
func (db *DB) InsertArchive(ctx context.Context, chat *model.ArchivedChat) error {
	chatRow, err := db.mapper.ChatToRow(chat)
	if err != nil {
		return fmt.Errorf("map archive %s: %w", chat.ArchiveID, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO archives (archive_id, original_chat_id, contact_name, contact_public_key,
			archived_at, last_message_time, message_count, archive_reason, estimated_size,
			is_compressed, compression_ratio, metadata_json, compression_info_json, custom_data_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		chatRow.ArchiveID, chatRow.OriginalChatID, chatRow.ContactName, chatRow.ContactPublicKey,
		chatRow.ArchivedAt, chatRow.LastMessageTime, chatRow.MessageCount, chatRow.ArchiveReason,
		chatRow.EstimatedSize, chatRow.IsCompressed, chatRow.CompressionRatio,
		chatRow.MetadataJSON, chatRow.CompressionInfoJSON, chatRow.CustomDataJSON); err != nil {
		return fmt.Errorf("insert archive %s: %w", chat.ArchiveID, err)
	}

	for i := range chat.Messages {
		row, err := db.mapper.MessageToRow(&chat.Messages[i])
		if err != nil {
			return fmt.Errorf("map message %s: %w", chat.Messages[i].ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO archive_messages (archive_id, original_message_id, chat_id, content,
				timestamp, is_from_me, status, reply_to_message_id, thread_id, is_starred,
				is_forwarded, priority, edited_at, original_content, has_media, media_type,
				archived_at, original_timestamp, metadata_json, delivery_receipt_json,
				read_receipt_json, reactions_json, attachments_json, encryption_info_json,
				archive_metadata_json, preserved_state_json, searchable_text)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.ArchiveID, row.OriginalMessageID, row.ChatID, row.Content,
			row.Timestamp, row.IsFromMe, row.Status, row.ReplyToMessageID, row.ThreadID, row.IsStarred,
			row.IsForwarded, row.Priority, row.EditedAt, row.OriginalContent, row.HasMedia, row.MediaType,
			row.ArchivedAt, row.OriginalTimestamp, row.MetadataJSON, row.DeliveryReceiptJSON,
			row.ReadReceiptJSON, row.ReactionsJSON, row.AttachmentsJSON, row.EncryptionInfoJSON,
			row.ArchiveMetadataJSON, row.PreservedStateJSON, row.SearchableText); err != nil {
			return fmt.Errorf("insert message %s: %w", row.OriginalMessageID, err)
		}
	}

	// Remove the live rows inside the same transaction: the move is atomic.
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?`, chat.OriginalChatID); err != nil {
		return fmt.Errorf("delete live messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, chat.OriginalChatID); err != nil {
		return fmt.Errorf("delete live chat: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive %s: %w", chat.ArchiveID, err)
	}
	return nil
}

const chatColumns = `archive_id, original_chat_id, contact_name, contact_public_key,
	archived_at, last_message_time, message_count, archive_reason, estimated_size,
	is_compressed, compression_ratio, metadata_json, compression_info_json, custom_data_json`

func scanChatRow(scan func(...any) error) (*ChatRow, error) {
	var r ChatRow
	err := scan(&r.ArchiveID, &r.OriginalChatID, &r.ContactName, &r.ContactPublicKey,
		&r.ArchivedAt, &r.LastMessageTime, &r.MessageCount, &r.ArchiveReason, &r.EstimatedSize,
		&r.IsCompressed, &r.CompressionRatio, &r.MetadataJSON, &r.CompressionInfoJSON, &r.CustomDataJSON)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Archive loads an archived chat with its full message history, or nil when
// the id is unknown. The warnings list reports per-field read degradations.
func (db *DB) Archive(ctx context.Context, archiveID string) (*model.ArchivedChat, []string, error) {
	row, err := scanChatRow(db.QueryRowContext(ctx,
		`SELECT `+chatColumns+` FROM archives WHERE archive_id = ?`, archiveID).Scan)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	chat, warnings := db.mapper.ChatFromRow(row)
	msgs, msgWarnings, err := db.ArchiveMessages(ctx, archiveID)
	if err != nil {
		return nil, nil, err
	}
	chat.Messages = msgs
	return chat, append(warnings, msgWarnings...), nil
}

const messageColumns = `id, archive_id, original_message_id, chat_id, content,
	timestamp, is_from_me, status, reply_to_message_id, thread_id, is_starred,
	is_forwarded, priority, edited_at, original_content, has_media, media_type,
	archived_at, original_timestamp, metadata_json, delivery_receipt_json,
	read_receipt_json, reactions_json, attachments_json, encryption_info_json,
	archive_metadata_json, preserved_state_json, searchable_text`

func scanMessageRow(scan func(...any) error) (*MessageRow, error) {
	var r MessageRow
	err := scan(&r.RowID, &r.ArchiveID, &r.OriginalMessageID, &r.ChatID, &r.Content,
		&r.Timestamp, &r.IsFromMe, &r.Status, &r.ReplyToMessageID, &r.ThreadID, &r.IsStarred,
		&r.IsForwarded, &r.Priority, &r.EditedAt, &r.OriginalContent, &r.HasMedia, &r.MediaType,
		&r.ArchivedAt, &r.OriginalTimestamp, &r.MetadataJSON, &r.DeliveryReceiptJSON,
		&r.ReadReceiptJSON, &r.ReactionsJSON, &r.AttachmentsJSON, &r.EncryptionInfoJSON,
		&r.ArchiveMetadataJSON, &r.PreservedStateJSON, &r.SearchableText)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ArchiveMessages returns the messages of an archive in original timestamp
// order.
func (db *DB) ArchiveMessages(ctx context.Context, archiveID string) ([]model.ArchivedMessage, []string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM archive_messages WHERE archive_id = ? ORDER BY original_timestamp ASC`,
		archiveID)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []model.ArchivedMessage
	var warnings []string
	for rows.Next() {
		row, err := scanMessageRow(rows.Scan)
		if err != nil {
			return nil, nil, err
		}
		msg, w := db.mapper.MessageFromRow(row)
		warnings = append(warnings, w...)
		msgs = append(msgs, *msg)
	}
	return msgs, warnings, rows.Err()
}

// DeleteArchive permanently removes an archive with all its messages and
// index entries. Returns false when the id is unknown.
func (db *DB) DeleteArchive(ctx context.Context, archiveID string) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Delete children explicitly so the FTS maintenance trigger fires for
	// every message row; the FK cascade remains as a schema-level backstop.
	if _, err := tx.ExecContext(ctx, `DELETE FROM archive_messages WHERE archive_id = ?`, archiveID); err != nil {
		return false, fmt.Errorf("delete archive messages: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM archives WHERE archive_id = ?`, archiveID)
	if err != nil {
		return false, fmt.Errorf("delete archive: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete: %w", err)
	}
	return n > 0, nil
}

func summaryFromRow(db *DB, r *ChatRow) model.ArchivedChatSummary {
	s := model.ArchivedChatSummary{
		ArchiveID:       r.ArchiveID,
		OriginalChatID:  r.OriginalChatID,
		ContactName:     r.ContactName,
		ArchivedAt:      r.ArchivedAt,
		LastMessageTime: r.LastMessageTime,
		MessageCount:    r.MessageCount,
		EstimatedSize:   r.EstimatedSize,
		IsCompressed:    r.IsCompressed,
	}
	var meta model.ArchiveMetadata
	// Unreadable metadata degrades to an empty reason and tags.
	if err := db.mapper.openJSON(r.MetadataJSON, &meta); err == nil {
		s.Reason = meta.Reason
		s.Tags = meta.Tags
	}
	return s
}

// Summaries lists archives most recent first, optionally filtered by contact
// name and archive date bounds.
func (db *DB) Summaries(ctx context.Context, f *model.ListFilter, limit, offset int) ([]model.ArchivedChatSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + chatColumns + ` FROM archives WHERE 1=1`
	var args []any
	if f != nil {
		if f.ContactName != "" {
			q += ` AND contact_name LIKE ?`
			args = append(args, "%"+f.ContactName+"%")
		}
		if f.After > 0 {
			q += ` AND archived_at >= ?`
			args = append(args, f.After)
		}
		if f.Before > 0 {
			q += ` AND archived_at <= ?`
			args = append(args, f.Before)
		}
	}
	q += ` ORDER BY archived_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.ArchivedChatSummary
	for rows.Next() {
		r, err := scanChatRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, summaryFromRow(db, r))
	}
	return out, rows.Err()
}

// SummariesByID resolves summaries for a set of archive ids, most recent
// first. Unknown ids are skipped.
func (db *DB) SummariesByID(ctx context.Context, ids []string) ([]model.ArchivedChatSummary, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+chatColumns+` FROM archives WHERE archive_id IN (`+placeholders+`) ORDER BY archived_at DESC`,
		args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.ArchivedChatSummary
	for rows.Next() {
		r, err := scanChatRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, summaryFromRow(db, r))
	}
	return out, rows.Err()
}

// ArchiveIDs returns every archive id, used to rebuild the in-memory search
// index on startup.
func (db *DB) ArchiveIDs(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT archive_id FROM archives ORDER BY archived_at ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Totals computes whole-vault aggregate counters.
func (db *DB) Totals(ctx context.Context) (model.ArchiveTotals, error) {
	var t model.ArchiveTotals
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(message_count), 0),
			COALESCE(SUM(estimated_size), 0),
			COALESCE(SUM(is_compressed), 0),
			COALESCE(AVG(CASE WHEN is_compressed = 1 THEN compression_ratio END), 0)
		FROM archives`).
		Scan(&t.Archives, &t.Messages, &t.SizeBytes, &t.CompressedArchives, &t.AvgCompression)
	return t, err
}

// MonthBreakdown counts archives per year-month of the archival time.
func (db *DB) MonthBreakdown(ctx context.Context) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT strftime('%Y-%m', archived_at / 1000, 'unixepoch'), COUNT(*)
		FROM archives GROUP BY 1`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanBreakdown(rows)
}

// ContactBreakdown counts archives per contact name.
func (db *DB) ContactBreakdown(ctx context.Context) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT contact_name, COUNT(*) FROM archives GROUP BY contact_name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanBreakdown(rows)
}

func scanBreakdown(rows *sql.Rows) (map[string]int, error) {
	out := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		out[key] = count
	}
	return out, rows.Err()
}
