package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/matheus3301/chatvault/internal/model"
)

// SaveChat inserts or updates a live chat record.
func (db *DB) SaveChat(ctx context.Context, c *model.Chat) error {
	now := time.Now().UnixMilli()
	_, err := db.ExecContext(ctx, `
		INSERT INTO chats (id, contact_name, contact_public_key, unread_count, last_message_at, is_online, has_unsent, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			contact_name = excluded.contact_name,
			contact_public_key = excluded.contact_public_key,
			unread_count = excluded.unread_count,
			last_message_at = excluded.last_message_at,
			is_online = excluded.is_online,
			has_unsent = excluded.has_unsent,
			updated_at = excluded.updated_at`,
		c.ID, c.ContactName, c.ContactPublicKey, c.UnreadCount, c.LastMessageAt, c.IsOnline, c.HasUnsent, now)
	return err
}

// Chat returns a single live chat by id, or nil when absent.
func (db *DB) Chat(ctx context.Context, id string) (*model.Chat, error) {
	var c model.Chat
	err := db.QueryRowContext(ctx, `
		SELECT id, contact_name, contact_public_key, unread_count, last_message_at, is_online, has_unsent
		FROM chats WHERE id = ?`, id).
		Scan(&c.ID, &c.ContactName, &c.ContactPublicKey, &c.UnreadCount, &c.LastMessageAt, &c.IsOnline, &c.HasUnsent)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Chats returns live chats sorted by last message timestamp descending.
func (db *DB) Chats(ctx context.Context) ([]model.Chat, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, contact_name, contact_public_key, unread_count, last_message_at, is_online, has_unsent
		FROM chats
		ORDER BY last_message_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chats []model.Chat
	for rows.Next() {
		var c model.Chat
		if err := rows.Scan(&c.ID, &c.ContactName, &c.ContactPublicKey, &c.UnreadCount, &c.LastMessageAt, &c.IsOnline, &c.HasUnsent); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// DeleteChat removes a live chat row. Its messages are removed separately by
// ClearMessages or by the archive transaction.
func (db *DB) DeleteChat(ctx context.Context, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, id)
	return err
}
