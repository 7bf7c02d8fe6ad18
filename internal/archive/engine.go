// Package archive implements the chat archival engine: it moves
// conversations out of the live store into a compressed, encrypted-at-rest,
// searchable vault, and can restore or permanently purge them later.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matheus3301/chatvault/internal/bus"
	"github.com/matheus3301/chatvault/internal/codec"
	"github.com/matheus3301/chatvault/internal/index"
	"github.com/matheus3301/chatvault/internal/model"
)

// archiveVersion is stamped into every archive's metadata.
const archiveVersion = 1

// largeArchiveMessages is the message count above which archiving warns that
// indexing may take longer.
const largeArchiveMessages = 500

// LiveStore is the live chat/message collaborator the engine consumes.
type LiveStore interface {
	Chat(ctx context.Context, id string) (*model.Chat, error)
	SaveChat(ctx context.Context, c *model.Chat) error
	Messages(ctx context.Context, chatID string) ([]model.Message, error)
	SaveMessage(ctx context.Context, msg *model.Message) error
	ClearMessages(ctx context.Context, chatID string) error
}

// Vault is the archive persistence collaborator the engine consumes.
type Vault interface {
	InsertArchive(ctx context.Context, chat *model.ArchivedChat) error
	Archive(ctx context.Context, archiveID string) (*model.ArchivedChat, []string, error)
	Summaries(ctx context.Context, f *model.ListFilter, limit, offset int) ([]model.ArchivedChatSummary, error)
	SummariesByID(ctx context.Context, ids []string) ([]model.ArchivedChatSummary, error)
	DeleteArchive(ctx context.Context, archiveID string) (bool, error)
	Totals(ctx context.Context) (model.ArchiveTotals, error)
	MonthBreakdown(ctx context.Context) (map[string]int, error)
	ContactBreakdown(ctx context.Context) (map[string]int, error)
}

// Engine is the archival orchestrator. Operations on distinct archive ids
// may run concurrently; serializing operations on the same id is the
// caller's responsibility.
type Engine struct {
	live  LiveStore
	vault Vault
	idx   index.Index
	bus   *bus.Bus
	log   *zap.Logger
	cfg   codec.Config
	stats *recorder

	mu          sync.Mutex
	initialized bool
}

// NewEngine wires the orchestrator. The composition root constructs exactly
// one Engine and hands it to consumers.
func NewEngine(live LiveStore, vault Vault, idx index.Index, b *bus.Bus, cfg codec.Config, log *zap.Logger) *Engine {
	return &Engine{
		live:  live,
		vault: vault,
		idx:   idx,
		bus:   b,
		log:   log,
		cfg:   cfg,
		stats: newRecorder(),
	}
}

type rebuildable interface {
	Rebuild(ctx context.Context) error
}

// Initialize prepares the engine for use. Calling it twice has the same
// observable effect as calling it once.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		return nil
	}
	// The in-memory strategy loses its index across restarts and rebuilds
	// from the vault; the FTS strategy is durable and needs nothing.
	if r, ok := e.idx.(rebuildable); ok {
		if err := r.Rebuild(ctx); err != nil {
			return fmt.Errorf("rebuild search index: %w", err)
		}
	}
	e.initialized = true
	e.log.Info("archive engine initialized")
	return nil
}

// ArchiveOptions tunes a single ArchiveChat call.
type ArchiveOptions struct {
	Reason     string
	Tags       []string
	CustomData map[string]string
	// CompressLargeArchives enables whole-archive compression above the
	// configured threshold. Zero-value options enable it.
	CompressLargeArchives bool
}

// DefaultArchiveOptions returns the standard archive tuning.
func DefaultArchiveOptions() *ArchiveOptions {
	return &ArchiveOptions{CompressLargeArchives: true}
}

// ArchiveChat moves a live conversation into the vault. The chat metadata
// row, every message row and the removal of the live rows commit in one
// transaction; on any persistence failure nothing is visible.
func (e *Engine) ArchiveChat(ctx context.Context, chatID string, opts *ArchiveOptions) *OperationResult {
	const op = "archive"
	start := time.Now()
	if opts == nil {
		opts = DefaultArchiveOptions()
	}

	res := e.archiveChat(ctx, op, start, chatID, opts)
	e.stats.Record(op, res.Elapsed, res.Success)
	return res
}

func (e *Engine) archiveChat(ctx context.Context, op string, start time.Time, chatID string, opts *ArchiveOptions) *OperationResult {
	chat, err := e.live.Chat(ctx, chatID)
	if err != nil {
		e.log.Error("load chat failed", zap.String("chat", chatID), zap.Error(err))
		return failure(op, CodeStorageError, start, "load chat %q: %v", chatID, err)
	}
	if chat == nil {
		return failure(op, CodeNotFound, start, "chat %q not found", chatID)
	}
	msgs, err := e.live.Messages(ctx, chatID)
	if err != nil {
		e.log.Error("load messages failed", zap.String("chat", chatID), zap.Error(err))
		return failure(op, CodeStorageError, start, "load messages for %q: %v", chatID, err)
	}
	if len(msgs) == 0 {
		return failure(op, CodeEmptySource, start, "chat %q has no messages to archive", chatID)
	}

	now := time.Now().UnixMilli()
	arch := buildArchive(chat, msgs, now, opts)

	var warnings []string
	payload, err := json.Marshal(arch.Messages)
	if err != nil {
		return failure(op, CodeStorageError, start, "encode messages: %v", err)
	}
	arch.EstimatedSize = int64(len(payload))

	if opts.CompressLargeArchives && len(payload) > e.threshold() {
		if comp, ok := codec.Compress(payload, e.cfg); ok {
			arch.IsCompressed = true
			arch.CompressionInfo = &model.CompressionInfo{
				Algorithm:      comp.Algorithm,
				OriginalSize:   int64(comp.OriginalSize),
				CompressedSize: int64(comp.CompressedSize),
				Ratio:          comp.Ratio,
				CompressedAt:   now,
			}
			if arch.CustomData == nil {
				arch.CustomData = make(map[string]string)
			}
			arch.CustomData[model.CustomDataMessagesKey] = codec.EncodeBytes(comp.Data)
			warnings = append(warnings, "archive was compressed")
		} else {
			warnings = append(warnings, "compression skipped: not beneficial")
		}
	}
	if len(msgs) > largeArchiveMessages {
		warnings = append(warnings, "large archive: indexing may take longer")
	}

	if err := e.vault.InsertArchive(ctx, arch); err != nil {
		e.log.Error("archive transaction failed",
			zap.String("chat", chatID), zap.String("archive", arch.ArchiveID), zap.Error(err))
		return failure(op, CodeStorageError, start, "persist archive: %v", err)
	}
	// The transaction already removed the live rows; this catches stragglers
	// written after the snapshot was read.
	if err := e.live.ClearMessages(ctx, chatID); err != nil {
		warnings = append(warnings, fmt.Sprintf("clear live messages: %v", err))
	}
	if err := e.idx.Add(ctx, arch); err != nil {
		warnings = append(warnings, fmt.Sprintf("search indexing failed: %v", err))
	}

	e.publish(bus.KindChatArchived, arch.ArchiveID, chatID, len(arch.Messages))
	e.log.Info("chat archived",
		zap.String("chat", chatID),
		zap.String("archive", arch.ArchiveID),
		zap.Int("messages", len(arch.Messages)),
		zap.Bool("compressed", arch.IsCompressed))

	res := success(op, start, warnings)
	res.ArchiveID = arch.ArchiveID
	res.ChatID = chatID
	res.MessagesArchived = len(arch.Messages)
	return res
}

func buildArchive(chat *model.Chat, msgs []model.Message, now int64, opts *ArchiveOptions) *model.ArchivedChat {
	archiveID := fmt.Sprintf("arc_%s_%d", chat.ID, now)
	arch := &model.ArchivedChat{
		ArchiveID:        archiveID,
		OriginalChatID:   chat.ID,
		ContactName:      chat.ContactName,
		ContactPublicKey: chat.ContactPublicKey,
		ArchivedAt:       now,
		MessageCount:     len(msgs),
		Metadata: model.ArchiveMetadata{
			Version:             archiveVersion,
			Reason:              opts.Reason,
			OriginalUnreadCount: chat.UnreadCount,
			WasOnline:           chat.IsOnline,
			HadUnsentMessages:   chat.HasUnsent,
			Tags:                opts.Tags,
			HasSearchIndex:      true,
		},
	}
	if len(opts.CustomData) > 0 {
		arch.CustomData = make(map[string]string, len(opts.CustomData))
		for k, v := range opts.CustomData {
			arch.CustomData[k] = v
		}
	}
	for i := range msgs {
		m := &msgs[i]
		if m.Timestamp > arch.LastMessageTime {
			arch.LastMessageTime = m.Timestamp
		}
		arch.Messages = append(arch.Messages, model.ArchivedMessage{
			ID:                m.ID,
			ArchiveID:         archiveID,
			ChatID:            m.ChatID,
			Content:           m.Content,
			Timestamp:         m.Timestamp,
			FromMe:            m.FromMe,
			Status:            m.Status,
			ReplyToID:         m.ReplyToID,
			ThreadID:          m.ThreadID,
			Starred:           m.Starred,
			Forwarded:         m.Forwarded,
			Priority:          m.Priority,
			EditedAt:          m.EditedAt,
			OriginalContent:   m.OriginalContent,
			HasMedia:          m.HasMedia,
			MediaType:         m.MediaType,
			Reactions:         m.Reactions,
			Attachments:       m.Attachments,
			DeliveryReceipt:   m.DeliveryReceipt,
			ReadReceipt:       m.ReadReceipt,
			EncryptionInfo:    m.EncryptionInfo,
			ArchivedAt:        now,
			OriginalTimestamp: m.Timestamp,
			ArchiveMeta: model.MessageArchiveMeta{
				ArchiveVersion:    archiveVersion,
				PreservationLevel: "full",
				IndexingStatus:    "indexed",
				OriginalSize:      int64(len(m.Content)),
			},
			SearchableText: index.Normalize(m.Content),
		})
	}
	return arch
}

// RestoreOptions tunes a single RestoreChat call.
type RestoreOptions struct {
	// TargetChatID overrides the destination chat id; empty restores to the
	// original id.
	TargetChatID string
	// OverwriteExisting allows restoring into a chat that already exists.
	OverwriteExisting bool
}

// RestoreChat replays an archive's messages into the live store and, when at
// least one message restores, consumes the archive. Individual message
// failures become warnings; the operation fails only when zero messages
// restore. The per-message loop is deliberately not transactional.
func (e *Engine) RestoreChat(ctx context.Context, archiveID string, opts *RestoreOptions) *OperationResult {
	const op = "restore"
	start := time.Now()
	if opts == nil {
		opts = &RestoreOptions{}
	}

	res := e.restoreChat(ctx, op, start, archiveID, opts)
	e.stats.Record(op, res.Elapsed, res.Success)
	return res
}

func (e *Engine) restoreChat(ctx context.Context, op string, start time.Time, archiveID string, opts *RestoreOptions) *OperationResult {
	arch, readWarnings, err := e.vault.Archive(ctx, archiveID)
	if err != nil {
		e.log.Error("load archive failed", zap.String("archive", archiveID), zap.Error(err))
		return failure(op, CodeStorageError, start, "load archive %q: %v", archiveID, err)
	}
	if arch == nil {
		return failure(op, CodeNotFound, start, "archive %q not found", archiveID)
	}
	warnings := readWarnings

	msgs := arch.Messages
	if len(msgs) == 0 {
		// Message rows are gone or unreadable; fall back to the compressed
		// payload carried in custom data.
		recovered, err := recoverMessages(arch)
		if err != nil {
			return failure(op, CodeStorageError, start, "archive %q has no readable messages: %v", archiveID, err)
		}
		msgs = recovered
		warnings = append(warnings, "messages recovered from compressed payload")
	}

	targetID := opts.TargetChatID
	if targetID == "" {
		targetID = arch.OriginalChatID
	}
	existing, err := e.live.Chat(ctx, targetID)
	if err != nil {
		return failure(op, CodeStorageError, start, "check target chat: %v", err)
	}
	if existing != nil && !opts.OverwriteExisting {
		// Restore into a fresh chat instead of clobbering the live one.
		targetID = "restored-" + uuid.NewString()
		warnings = append(warnings, fmt.Sprintf("target chat existed; restored to %q", targetID))
	}

	chat := &model.Chat{
		ID:               targetID,
		ContactName:      arch.ContactName,
		ContactPublicKey: arch.ContactPublicKey,
		LastMessageAt:    arch.LastMessageTime,
	}
	if err := e.live.SaveChat(ctx, chat); err != nil {
		return failure(op, CodeStorageError, start, "create target chat: %v", err)
	}

	restored := 0
	for i := range msgs {
		m := toLiveMessage(&msgs[i], targetID)
		if err := e.live.SaveMessage(ctx, m); err != nil {
			warnings = append(warnings, fmt.Sprintf("message %s not restored: %v", m.ID, err))
			continue
		}
		restored++
	}
	if restored == 0 {
		e.log.Error("restore produced no messages", zap.String("archive", archiveID))
		return failure(op, CodeRestoreFailed, start, "no messages restored from %q", archiveID)
	}
	if restored < len(msgs) {
		warnings = append(warnings, fmt.Sprintf("restored %d/%d messages", restored, len(msgs)))
	}

	// Restoration is one-shot: a successful restore consumes the archive.
	if _, err := e.vault.DeleteArchive(ctx, archiveID); err != nil {
		warnings = append(warnings, fmt.Sprintf("archive not removed after restore: %v", err))
	} else if err := e.idx.Remove(ctx, archiveID); err != nil {
		warnings = append(warnings, fmt.Sprintf("index entry not removed: %v", err))
	}

	e.publish(bus.KindChatRestored, archiveID, targetID, restored)
	e.log.Info("chat restored",
		zap.String("archive", archiveID),
		zap.String("chat", targetID),
		zap.Int("restored", restored),
		zap.Int("total", len(msgs)))

	res := success(op, start, warnings)
	res.ArchiveID = archiveID
	res.ChatID = targetID
	res.MessagesRestored = restored
	return res
}

// recoverMessages decodes the whole-archive compressed blob from custom data.
func recoverMessages(arch *model.ArchivedChat) ([]model.ArchivedMessage, error) {
	blob, ok := arch.CustomData[model.CustomDataMessagesKey]
	if !ok {
		return nil, fmt.Errorf("no compressed payload present")
	}
	decoded, err := codec.DecodeString(blob)
	if err != nil {
		return nil, err
	}
	var msgs []model.ArchivedMessage
	if err := json.Unmarshal([]byte(decoded), &msgs); err != nil {
		return nil, fmt.Errorf("decode recovered messages: %w", err)
	}
	return msgs, nil
}

func toLiveMessage(am *model.ArchivedMessage, chatID string) *model.Message {
	return &model.Message{
		ID:              am.ID,
		ChatID:          chatID,
		Content:         am.Content,
		Timestamp:       am.OriginalTimestamp,
		FromMe:          am.FromMe,
		Status:          am.Status,
		ReplyToID:       am.ReplyToID,
		ThreadID:        am.ThreadID,
		Starred:         am.Starred,
		Forwarded:       am.Forwarded,
		Priority:        am.Priority,
		EditedAt:        am.EditedAt,
		OriginalContent: am.OriginalContent,
		HasMedia:        am.HasMedia,
		MediaType:       am.MediaType,
		Reactions:       am.Reactions,
		Attachments:     am.Attachments,
		DeliveryReceipt: am.DeliveryReceipt,
		ReadReceipt:     am.ReadReceipt,
		EncryptionInfo:  am.EncryptionInfo,
	}
}

// SearchArchives queries the search index and resolves owning chat
// summaries. An empty or whitespace query returns an empty result.
func (e *Engine) SearchArchives(ctx context.Context, query string, f *model.SearchFilter, limit int) (*model.SearchResult, error) {
	const op = "search"
	start := time.Now()
	if limit <= 0 {
		limit = 50
	}
	result := &model.SearchResult{Query: query}

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return result, nil
	}

	matches, err := e.idx.Search(ctx, trimmed, f, limit)
	if err != nil {
		e.stats.Record(op, time.Since(start), false)
		return nil, fmt.Errorf("search %q: %w", trimmed, err)
	}

	filtered := matches[:0:0]
	for _, m := range matches {
		if matchesTypeFilter(&m.Message, f) {
			filtered = append(filtered, m)
		}
	}
	result.HasMore = len(filtered) > limit
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	result.Matches = filtered

	var ids []string
	seen := make(map[string]struct{})
	for _, m := range filtered {
		if _, ok := seen[m.ArchiveID]; !ok {
			seen[m.ArchiveID] = struct{}{}
			ids = append(ids, m.ArchiveID)
		}
	}
	if result.Chats, err = e.vault.SummariesByID(ctx, ids); err != nil {
		e.stats.Record(op, time.Since(start), false)
		return nil, fmt.Errorf("resolve summaries: %w", err)
	}

	e.stats.Record(op, time.Since(start), true)
	return result, nil
}

// matchesTypeFilter applies the message-type criteria as a post-filter.
func matchesTypeFilter(msg *model.ArchivedMessage, f *model.SearchFilter) bool {
	if f == nil {
		return true
	}
	if f.FromMe != nil && msg.FromMe != *f.FromMe {
		return false
	}
	if f.HasAttachments != nil && (len(msg.Attachments) > 0) != *f.HasAttachments {
		return false
	}
	if f.StarredOnly && !msg.Starred {
		return false
	}
	if f.EditedOnly && msg.EditedAt == 0 {
		return false
	}
	return true
}

// PermanentlyDeleteArchive removes an archive with all its messages and
// index entries. Irreversible.
func (e *Engine) PermanentlyDeleteArchive(ctx context.Context, archiveID string) *OperationResult {
	const op = "delete"
	start := time.Now()

	found, err := e.vault.DeleteArchive(ctx, archiveID)
	if err != nil {
		e.log.Error("delete archive failed", zap.String("archive", archiveID), zap.Error(err))
		res := failure(op, CodeStorageError, start, "delete archive %q: %v", archiveID, err)
		e.stats.Record(op, res.Elapsed, false)
		return res
	}
	if !found {
		res := failure(op, CodeNotFound, start, "archive %q not found", archiveID)
		e.stats.Record(op, res.Elapsed, false)
		return res
	}

	var warnings []string
	if err := e.idx.Remove(ctx, archiveID); err != nil {
		warnings = append(warnings, fmt.Sprintf("index entry not removed: %v", err))
	}

	e.publish(bus.KindArchiveDeleted, archiveID, "", 0)
	e.log.Info("archive deleted", zap.String("archive", archiveID))

	res := success(op, start, warnings)
	res.ArchiveID = archiveID
	e.stats.Record(op, res.Elapsed, true)
	return res
}

// GetArchivedChat loads a full archive with decrypted messages, or nil when
// the id is unknown. Per-field read degradations are logged, not fatal.
func (e *Engine) GetArchivedChat(ctx context.Context, archiveID string) (*model.ArchivedChat, error) {
	arch, warnings, err := e.vault.Archive(ctx, archiveID)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		e.log.Warn("archive read degraded", zap.String("archive", archiveID), zap.String("detail", w))
	}
	return arch, nil
}

// GetArchivedChats lists archive summaries, most recent first.
func (e *Engine) GetArchivedChats(ctx context.Context, f *model.ListFilter, limit, offset int) ([]model.ArchivedChatSummary, error) {
	return e.vault.Summaries(ctx, f, limit, offset)
}

// GetArchiveStatistics aggregates vault totals, per-month and per-contact
// breakdowns, and rolling operation timings.
func (e *Engine) GetArchiveStatistics(ctx context.Context) (*model.Statistics, error) {
	totals, err := e.vault.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("totals: %w", err)
	}
	perMonth, err := e.vault.MonthBreakdown(ctx)
	if err != nil {
		return nil, fmt.Errorf("month breakdown: %w", err)
	}
	perContact, err := e.vault.ContactBreakdown(ctx)
	if err != nil {
		return nil, fmt.Errorf("contact breakdown: %w", err)
	}
	return &model.Statistics{
		Totals:     totals,
		PerMonth:   perMonth,
		PerContact: perContact,
		Operations: e.stats.Snapshot(),
	}, nil
}

func (e *Engine) publish(kind, archiveID, chatID string, messages int) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(bus.Event{
		Kind:      kind,
		Timestamp: time.Now(),
		Payload:   bus.ArchivePayload{ArchiveID: archiveID, ChatID: chatID, Messages: messages},
	})
}

func (e *Engine) threshold() int {
	if e.cfg.Threshold > 0 {
		return e.cfg.Threshold
	}
	return codec.DefaultThreshold
}
