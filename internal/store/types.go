package store

// ChatRow is the persisted form of an archived chat, one row per archive.
// Text blobs marked encrypted are sealed by the Mapper before they get here.
type ChatRow struct {
	ArchiveID           string
	OriginalChatID      string
	ContactName         string
	ContactPublicKey    string
	ArchivedAt          int64
	LastMessageTime     int64
	MessageCount        int
	ArchiveReason       string // encrypted
	EstimatedSize       int64
	IsCompressed        bool
	CompressionRatio    float64
	MetadataJSON        string // encrypted
	CompressionInfoJSON string
	CustomDataJSON      string // encrypted
}

// MessageRow is the persisted form of an archived message, foreign-keyed to
// its archive. RowID is assigned by the database on insert.
type MessageRow struct {
	RowID               int64
	ArchiveID           string
	OriginalMessageID   string
	ChatID              string
	Content             string // encrypted
	Timestamp           int64
	IsFromMe            bool
	Status              string
	ReplyToMessageID    string
	ThreadID            string
	IsStarred           bool
	IsForwarded         bool
	Priority            int
	EditedAt            int64
	OriginalContent     string // encrypted
	HasMedia            bool
	MediaType           string
	ArchivedAt          int64
	OriginalTimestamp   int64
	MetadataJSON        string // encrypted
	DeliveryReceiptJSON string // encrypted
	ReadReceiptJSON     string // encrypted
	ReactionsJSON       string // encrypted
	AttachmentsJSON     string // encrypted
	EncryptionInfoJSON  string // not encrypted
	ArchiveMetadataJSON string // encrypted
	PreservedStateJSON  string // encrypted
	SearchableText      string // plaintext, indexed
}
