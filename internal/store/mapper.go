package store

import (
	"encoding/json"
	"fmt"

	"github.com/matheus3301/chatvault/internal/codec"
	"github.com/matheus3301/chatvault/internal/model"
	"github.com/matheus3301/chatvault/internal/seal"
)

// Mapper converts archive entities to and from storage rows. Writes apply
// JSON encoding, threshold compression and field encryption; reads probe the
// markers in reverse order, so rows written by earlier generations (plain
// text, uncompressed) load without special handling.
type Mapper struct {
	cipher *seal.Cipher
	cfg    codec.Config
}

// NewMapper creates a Mapper around the given field cipher and codec tuning.
func NewMapper(cipher *seal.Cipher, cfg codec.Config) *Mapper {
	return &Mapper{cipher: cipher, cfg: cfg}
}

// ChatToRow maps an ArchivedChat to its persisted row. Message rows are
// produced separately by MessageToRow.
func (m *Mapper) ChatToRow(c *model.ArchivedChat) (*ChatRow, error) {
	reason, err := m.sealText(c.Metadata.Reason)
	if err != nil {
		return nil, fmt.Errorf("seal reason: %w", err)
	}
	meta, err := m.sealJSON(c.Metadata)
	if err != nil {
		return nil, fmt.Errorf("seal metadata: %w", err)
	}
	var custom string
	if len(c.CustomData) > 0 {
		custom, err = m.sealJSON(c.CustomData)
		if err != nil {
			return nil, fmt.Errorf("seal custom data: %w", err)
		}
	}
	var compInfo string
	var ratio float64
	if c.CompressionInfo != nil {
		b, err := json.Marshal(c.CompressionInfo)
		if err != nil {
			return nil, fmt.Errorf("encode compression info: %w", err)
		}
		compInfo = string(b)
		ratio = c.CompressionInfo.Ratio
	}
	return &ChatRow{
		ArchiveID:           c.ArchiveID,
		OriginalChatID:      c.OriginalChatID,
		ContactName:         c.ContactName,
		ContactPublicKey:    c.ContactPublicKey,
		ArchivedAt:          c.ArchivedAt,
		LastMessageTime:     c.LastMessageTime,
		MessageCount:        c.MessageCount,
		ArchiveReason:       reason,
		EstimatedSize:       c.EstimatedSize,
		IsCompressed:        c.IsCompressed,
		CompressionRatio:    ratio,
		MetadataJSON:        meta,
		CompressionInfoJSON: compInfo,
		CustomDataJSON:      custom,
	}, nil
}

// ChatFromRow maps a persisted row back to an ArchivedChat. Fields that fail
// to open are left zero and reported as warnings rather than aborting the
// whole read.
func (m *Mapper) ChatFromRow(r *ChatRow) (*model.ArchivedChat, []string) {
	var warnings []string
	c := &model.ArchivedChat{
		ArchiveID:        r.ArchiveID,
		OriginalChatID:   r.OriginalChatID,
		ContactName:      r.ContactName,
		ContactPublicKey: r.ContactPublicKey,
		ArchivedAt:       r.ArchivedAt,
		LastMessageTime:  r.LastMessageTime,
		MessageCount:     r.MessageCount,
		EstimatedSize:    r.EstimatedSize,
		IsCompressed:     r.IsCompressed,
	}
	if err := m.openJSON(r.MetadataJSON, &c.Metadata); err != nil {
		warnings = append(warnings, fmt.Sprintf("archive %s: metadata unreadable: %v", r.ArchiveID, err))
	}
	if c.Metadata.Reason == "" && r.ArchiveReason != "" {
		reason, err := m.openText(r.ArchiveReason)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("archive %s: reason unreadable: %v", r.ArchiveID, err))
		} else {
			c.Metadata.Reason = reason
		}
	}
	if r.CompressionInfoJSON != "" {
		var info model.CompressionInfo
		if err := json.Unmarshal([]byte(r.CompressionInfoJSON), &info); err != nil {
			warnings = append(warnings, fmt.Sprintf("archive %s: compression info unreadable: %v", r.ArchiveID, err))
		} else {
			c.CompressionInfo = &info
		}
	}
	if r.CustomDataJSON != "" {
		if err := m.openJSON(r.CustomDataJSON, &c.CustomData); err != nil {
			warnings = append(warnings, fmt.Sprintf("archive %s: custom data unreadable: %v", r.ArchiveID, err))
		}
	}
	return c, warnings
}

// MessageToRow maps an ArchivedMessage to its persisted row.
func (m *Mapper) MessageToRow(msg *model.ArchivedMessage) (*MessageRow, error) {
	content, err := m.sealText(msg.Content)
	if err != nil {
		return nil, fmt.Errorf("seal content: %w", err)
	}
	original, err := m.sealText(msg.OriginalContent)
	if err != nil {
		return nil, fmt.Errorf("seal original content: %w", err)
	}
	row := &MessageRow{
		ArchiveID:         msg.ArchiveID,
		OriginalMessageID: msg.ID,
		ChatID:            msg.ChatID,
		Content:           content,
		Timestamp:         msg.Timestamp,
		IsFromMe:          msg.FromMe,
		Status:            msg.Status,
		ReplyToMessageID:  msg.ReplyToID,
		ThreadID:          msg.ThreadID,
		IsStarred:         msg.Starred,
		IsForwarded:       msg.Forwarded,
		Priority:          msg.Priority,
		EditedAt:          msg.EditedAt,
		OriginalContent:   original,
		HasMedia:          msg.HasMedia,
		MediaType:         msg.MediaType,
		ArchivedAt:        msg.ArchivedAt,
		OriginalTimestamp: msg.OriginalTimestamp,
		SearchableText:    msg.SearchableText,
	}
	if row.MetadataJSON, err = m.sealJSON(msg.ArchiveMeta); err != nil {
		return nil, fmt.Errorf("seal metadata: %w", err)
	}
	// ArchiveMeta is stored twice historically: metadata_json carries the
	// generic bag, archive_metadata_json the archive-specific one.
	row.ArchiveMetadataJSON = row.MetadataJSON
	if msg.DeliveryReceipt != nil {
		if row.DeliveryReceiptJSON, err = m.sealJSON(msg.DeliveryReceipt); err != nil {
			return nil, fmt.Errorf("seal delivery receipt: %w", err)
		}
	}
	if msg.ReadReceipt != nil {
		if row.ReadReceiptJSON, err = m.sealJSON(msg.ReadReceipt); err != nil {
			return nil, fmt.Errorf("seal read receipt: %w", err)
		}
	}
	if len(msg.Reactions) > 0 {
		if row.ReactionsJSON, err = m.sealJSON(msg.Reactions); err != nil {
			return nil, fmt.Errorf("seal reactions: %w", err)
		}
	}
	if len(msg.Attachments) > 0 {
		if row.AttachmentsJSON, err = m.sealJSON(msg.Attachments); err != nil {
			return nil, fmt.Errorf("seal attachments: %w", err)
		}
	}
	if len(msg.EncryptionInfo) > 0 {
		b, err := json.Marshal(msg.EncryptionInfo)
		if err != nil {
			return nil, fmt.Errorf("encode encryption info: %w", err)
		}
		row.EncryptionInfoJSON = string(b)
	}
	if len(msg.PreservedState) > 0 {
		if row.PreservedStateJSON, err = m.sealJSON(msg.PreservedState); err != nil {
			return nil, fmt.Errorf("seal preserved state: %w", err)
		}
	}
	return row, nil
}

// MessageFromRow maps a persisted row back to an ArchivedMessage. Unreadable
// fields degrade to zero values with a warning each.
func (m *Mapper) MessageFromRow(r *MessageRow) (*model.ArchivedMessage, []string) {
	var warnings []string
	warn := func(field string, err error) {
		warnings = append(warnings, fmt.Sprintf("message %s: %s unreadable: %v", r.OriginalMessageID, field, err))
	}

	msg := &model.ArchivedMessage{
		ID:                r.OriginalMessageID,
		ArchiveID:         r.ArchiveID,
		ChatID:            r.ChatID,
		Timestamp:         r.Timestamp,
		FromMe:            r.IsFromMe,
		Status:            r.Status,
		ReplyToID:         r.ReplyToMessageID,
		ThreadID:          r.ThreadID,
		Starred:           r.IsStarred,
		Forwarded:         r.IsForwarded,
		Priority:          r.Priority,
		EditedAt:          r.EditedAt,
		HasMedia:          r.HasMedia,
		MediaType:         r.MediaType,
		ArchivedAt:        r.ArchivedAt,
		OriginalTimestamp: r.OriginalTimestamp,
		SearchableText:    r.SearchableText,
	}
	var err error
	if msg.Content, err = m.openText(r.Content); err != nil {
		warn("content", err)
		msg.Content = ""
	}
	if msg.OriginalContent, err = m.openText(r.OriginalContent); err != nil {
		warn("original content", err)
		msg.OriginalContent = ""
	}
	if err = m.openJSON(r.ArchiveMetadataJSON, &msg.ArchiveMeta); err != nil {
		warn("archive metadata", err)
	}
	if r.DeliveryReceiptJSON != "" {
		var rc model.Receipt
		if err = m.openJSON(r.DeliveryReceiptJSON, &rc); err != nil {
			warn("delivery receipt", err)
		} else {
			msg.DeliveryReceipt = &rc
		}
	}
	if r.ReadReceiptJSON != "" {
		var rc model.Receipt
		if err = m.openJSON(r.ReadReceiptJSON, &rc); err != nil {
			warn("read receipt", err)
		} else {
			msg.ReadReceipt = &rc
		}
	}
	if r.ReactionsJSON != "" {
		if err = m.openJSON(r.ReactionsJSON, &msg.Reactions); err != nil {
			warn("reactions", err)
		}
	}
	if r.AttachmentsJSON != "" {
		if err = m.openJSON(r.AttachmentsJSON, &msg.Attachments); err != nil {
			warn("attachments", err)
		}
	}
	if r.EncryptionInfoJSON != "" {
		if err = json.Unmarshal([]byte(r.EncryptionInfoJSON), &msg.EncryptionInfo); err != nil {
			warn("encryption info", err)
		}
	}
	if r.PreservedStateJSON != "" {
		if err = m.openJSON(r.PreservedStateJSON, &msg.PreservedState); err != nil {
			warn("preserved state", err)
		}
	}
	return msg, warnings
}

// sealText encrypts a plain text field. Empty values stay empty.
func (m *Mapper) sealText(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	return m.cipher.EncryptField(s)
}

// openText decrypts a text field, passing unmarked legacy values through.
func (m *Mapper) openText(s string) (string, error) {
	return m.cipher.DecryptField(s)
}

// sealJSON marshals v, compresses the blob when beneficial and encrypts the
// result. Applied to every JSON column except encryption_info.
func (m *Mapper) sealJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return m.cipher.EncryptField(codec.EncodeString(string(b), m.cfg))
}

// openJSON reverses sealJSON, probing for the encryption and compression
// markers so legacy plain rows decode too.
func (m *Mapper) openJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	plain, err := m.cipher.DecryptField(s)
	if err != nil {
		return err
	}
	decoded, err := codec.DecodeString(plain)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(decoded), v)
}
