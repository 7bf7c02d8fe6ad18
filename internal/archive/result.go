package archive

import (
	"fmt"
	"time"
)

// Code classifies the outcome of a mutating archive operation.
type Code string

const (
	CodeOK Code = "ok"
	// CodeNotFound means the chat or archive id is unknown.
	CodeNotFound Code = "not_found"
	// CodeEmptySource means the chat has no messages to archive.
	CodeEmptySource Code = "empty_source"
	// CodeStorageError covers transaction and I/O failures.
	CodeStorageError Code = "storage_error"
	// CodeRestoreFailed means zero messages could be restored.
	CodeRestoreFailed Code = "restore_failed"
)

// OperationResult is the uniform outcome of archive, restore and delete
// operations. Expected domain conditions come back as a failure result, not
// an error; warnings report non-fatal degradations alongside success.
type OperationResult struct {
	Success          bool
	Op               string
	Code             Code
	Message          string
	ArchiveID        string
	ChatID           string
	MessagesArchived int
	MessagesRestored int
	Warnings         []string
	Elapsed          time.Duration
}

func failure(op string, code Code, start time.Time, format string, args ...any) *OperationResult {
	return &OperationResult{
		Op:      op,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Elapsed: time.Since(start),
	}
}

func success(op string, start time.Time, warnings []string) *OperationResult {
	return &OperationResult{
		Success:  true,
		Op:       op,
		Code:     CodeOK,
		Warnings: warnings,
		Elapsed:  time.Since(start),
	}
}
