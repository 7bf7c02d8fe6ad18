package bus

import "time"

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Archive lifecycle event kinds. Subscribers filter with the "archive."
// namespace prefix.
const (
	KindChatArchived   = "archive.chat.archived"
	KindChatRestored   = "archive.chat.restored"
	KindArchiveDeleted = "archive.chat.deleted"
)

// ArchivePayload accompanies the archive lifecycle events.
type ArchivePayload struct {
	ArchiveID string
	ChatID    string
	Messages  int
}
