// Package model holds the domain entities shared by the live store, the
// archive vault and the search index.
package model

// Chat represents a conversation in the live store.
type Chat struct {
	ID               string
	ContactName      string
	ContactPublicKey string
	UnreadCount      int
	LastMessageAt    int64
	IsOnline         bool
	HasUnsent        bool
}

// Message represents a message in the live store. Timestamps are epoch millis.
type Message struct {
	ID              string
	ChatID          string
	Content         string
	Timestamp       int64
	FromMe          bool
	Status          string
	ReplyToID       string
	ThreadID        string
	Starred         bool
	Forwarded       bool
	Priority        int
	EditedAt        int64
	OriginalContent string
	HasMedia        bool
	MediaType       string
	Reactions       []Reaction
	Attachments     []Attachment
	DeliveryReceipt *Receipt
	ReadReceipt     *Receipt
	EncryptionInfo  map[string]string
}

// Reaction is a single emoji reaction on a message.
type Reaction struct {
	Emoji     string `json:"emoji"`
	SenderID  string `json:"sender_id"`
	Timestamp int64  `json:"timestamp"`
}

// Attachment describes a media attachment referenced by a message.
type Attachment struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	URL      string `json:"url,omitempty"`
}

// Receipt records a delivery or read acknowledgement.
type Receipt struct {
	By string `json:"by"`
	At int64  `json:"at"`
}

// PriorityNormal is the default message priority; higher values rank above it.
const PriorityNormal = 0
