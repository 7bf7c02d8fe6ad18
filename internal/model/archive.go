package model

// CustomDataMessagesKey is the reserved customData key carrying the
// compressed serialized message list when whole-archive compression applies.
const CustomDataMessagesKey = "__compressed_messages"

// ArchivedChat is a durable snapshot of a conversation. Once persisted it is
// immutable apart from the compression fields set at creation time.
type ArchivedChat struct {
	ArchiveID        string
	OriginalChatID   string
	ContactName      string
	ContactPublicKey string
	ArchivedAt       int64
	LastMessageTime  int64
	MessageCount     int
	EstimatedSize    int64
	IsCompressed     bool
	CompressionInfo  *CompressionInfo
	Metadata         ArchiveMetadata
	CustomData       map[string]string
	Messages         []ArchivedMessage
}

// CompressionInfo describes the whole-archive compression applied to a chat.
type CompressionInfo struct {
	Algorithm      string  `json:"algorithm"`
	OriginalSize   int64   `json:"original_size"`
	CompressedSize int64   `json:"compressed_size"`
	Ratio          float64 `json:"ratio"`
	CompressedAt   int64   `json:"compressed_at"`
}

// ArchiveMetadata carries the chat-level archival context.
type ArchiveMetadata struct {
	Version             int      `json:"version"`
	Reason              string   `json:"reason,omitempty"`
	OriginalUnreadCount int      `json:"original_unread_count"`
	WasOnline           bool     `json:"was_online"`
	HadUnsentMessages   bool     `json:"had_unsent_messages"`
	Tags                []string `json:"tags,omitempty"`
	HasSearchIndex      bool     `json:"has_search_index"`
}

// ArchivedMessage is a message inside an archive. The original message id is
// preserved as the identity; ArchiveID is a back-reference to the owning chat.
type ArchivedMessage struct {
	ID                string
	ArchiveID         string
	ChatID            string
	Content           string
	Timestamp         int64
	FromMe            bool
	Status            string
	ReplyToID         string
	ThreadID          string
	Starred           bool
	Forwarded         bool
	Priority          int
	EditedAt          int64
	OriginalContent   string
	HasMedia          bool
	MediaType         string
	Reactions         []Reaction
	Attachments       []Attachment
	DeliveryReceipt   *Receipt
	ReadReceipt       *Receipt
	EncryptionInfo    map[string]string
	ArchivedAt        int64
	OriginalTimestamp int64
	ArchiveMeta       MessageArchiveMeta
	// SearchableText is the plaintext, indexable projection of Content. It is
	// deliberately stored unencrypted so it can be indexed and queried.
	SearchableText string
	PreservedState map[string]string
}

// MessageArchiveMeta carries per-message archival bookkeeping.
type MessageArchiveMeta struct {
	ArchiveVersion     int    `json:"archive_version"`
	PreservationLevel  string `json:"preservation_level,omitempty"`
	IndexingStatus     string `json:"indexing_status,omitempty"`
	CompressionApplied bool   `json:"compression_applied"`
	OriginalSize       int64  `json:"original_size"`
}

// ArchivedChatSummary is the listing projection of an archive, cheap enough
// to resolve for search results and pagination.
type ArchivedChatSummary struct {
	ArchiveID       string
	OriginalChatID  string
	ContactName     string
	ArchivedAt      int64
	LastMessageTime int64
	MessageCount    int
	EstimatedSize   int64
	IsCompressed    bool
	Reason          string
	Tags            []string
}

// ListFilter narrows archive listings.
type ListFilter struct {
	ContactName string
	After       int64
	Before      int64
}

// SearchFilter narrows archive searches. Contact and date bounds participate
// in candidate selection; the message-type fields are applied as post-filters.
type SearchFilter struct {
	ContactName    string
	After          int64
	Before         int64
	FromMe         *bool
	HasAttachments *bool
	StarredOnly    bool
	EditedOnly     bool
}

// SearchMatch pairs a matched message with its owning archive and score.
type SearchMatch struct {
	ArchiveID string
	Message   ArchivedMessage
	Score     int
}

// SearchResult is the outcome of an archive search.
type SearchResult struct {
	Query   string
	Matches []SearchMatch
	Chats   []ArchivedChatSummary
	HasMore bool
}

// ArchiveTotals are the whole-vault aggregate counters.
type ArchiveTotals struct {
	Archives           int
	Messages           int64
	SizeBytes          int64
	CompressedArchives int
	AvgCompression     float64
}

// Statistics is the read-side aggregation returned by GetArchiveStatistics.
type Statistics struct {
	Totals     ArchiveTotals
	PerMonth   map[string]int
	PerContact map[string]int
	Operations map[string]OpStats
}

// OpStats summarizes recorded durations for one operation kind.
type OpStats struct {
	Count    int64
	Failures int64
	Avg      float64 // milliseconds
	Max      float64 // milliseconds
}
