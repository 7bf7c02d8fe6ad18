package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matheus3301/chatvault/internal/model"
)

// SaveMessage inserts or updates a live message (idempotent on id).
func (db *DB) SaveMessage(ctx context.Context, msg *model.Message) error {
	now := time.Now().UnixMilli()
	reactions, attachments, delivery, read, encInfo, err := encodeMessageBlobs(msg)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO messages (id, chat_id, content, timestamp, is_from_me, status,
			reply_to_message_id, thread_id, is_starred, is_forwarded, priority, edited_at,
			original_content, has_media, media_type,
			reactions_json, attachments_json, delivery_receipt_json, read_receipt_json, encryption_info_json,
			created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			status = excluded.status,
			is_starred = excluded.is_starred,
			edited_at = excluded.edited_at,
			original_content = excluded.original_content,
			reactions_json = excluded.reactions_json,
			delivery_receipt_json = excluded.delivery_receipt_json,
			read_receipt_json = excluded.read_receipt_json`,
		msg.ID, msg.ChatID, msg.Content, msg.Timestamp, msg.FromMe, msg.Status,
		msg.ReplyToID, msg.ThreadID, msg.Starred, msg.Forwarded, msg.Priority, msg.EditedAt,
		msg.OriginalContent, msg.HasMedia, msg.MediaType,
		reactions, attachments, delivery, read, encInfo,
		now)
	return err
}

// Messages returns all live messages for a chat in ascending timestamp order.
func (db *DB) Messages(ctx context.Context, chatID string) ([]model.Message, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, chat_id, content, timestamp, is_from_me, status,
			reply_to_message_id, thread_id, is_starred, is_forwarded, priority, edited_at,
			original_content, has_media, media_type,
			reactions_json, attachments_json, delivery_receipt_json, read_receipt_json, encryption_info_json
		FROM messages
		WHERE chat_id = ?
		ORDER BY timestamp ASC`, chatID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		var reactions, attachments, delivery, read, encInfo string
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Content, &m.Timestamp, &m.FromMe, &m.Status,
			&m.ReplyToID, &m.ThreadID, &m.Starred, &m.Forwarded, &m.Priority, &m.EditedAt,
			&m.OriginalContent, &m.HasMedia, &m.MediaType,
			&reactions, &attachments, &delivery, &read, &encInfo); err != nil {
			return nil, err
		}
		if err := decodeMessageBlobs(&m, reactions, attachments, delivery, read, encInfo); err != nil {
			return nil, fmt.Errorf("decode message %s: %w", m.ID, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// ClearMessages removes all live messages for a chat.
func (db *DB) ClearMessages(ctx context.Context, chatID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?`, chatID)
	return err
}

func encodeMessageBlobs(msg *model.Message) (reactions, attachments, delivery, read, encInfo string, err error) {
	marshal := func(v any) (string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	if len(msg.Reactions) > 0 {
		if reactions, err = marshal(msg.Reactions); err != nil {
			return
		}
	}
	if len(msg.Attachments) > 0 {
		if attachments, err = marshal(msg.Attachments); err != nil {
			return
		}
	}
	if msg.DeliveryReceipt != nil {
		if delivery, err = marshal(msg.DeliveryReceipt); err != nil {
			return
		}
	}
	if msg.ReadReceipt != nil {
		if read, err = marshal(msg.ReadReceipt); err != nil {
			return
		}
	}
	if len(msg.EncryptionInfo) > 0 {
		encInfo, err = marshal(msg.EncryptionInfo)
	}
	return
}

func decodeMessageBlobs(m *model.Message, reactions, attachments, delivery, read, encInfo string) error {
	if reactions != "" {
		if err := json.Unmarshal([]byte(reactions), &m.Reactions); err != nil {
			return err
		}
	}
	if attachments != "" {
		if err := json.Unmarshal([]byte(attachments), &m.Attachments); err != nil {
			return err
		}
	}
	if delivery != "" {
		m.DeliveryReceipt = &model.Receipt{}
		if err := json.Unmarshal([]byte(delivery), m.DeliveryReceipt); err != nil {
			return err
		}
	}
	if read != "" {
		m.ReadReceipt = &model.Receipt{}
		if err := json.Unmarshal([]byte(read), m.ReadReceipt); err != nil {
			return err
		}
	}
	if encInfo != "" {
		if err := json.Unmarshal([]byte(encInfo), &m.EncryptionInfo); err != nil {
			return err
		}
	}
	return nil
}
