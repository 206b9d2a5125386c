// Package storage provides durable key-value persistence for the bot's
// records. Writes are atomic (replace-on-success) and corrupt documents
// are quarantined rather than crashing startup.
package storage

import "encoding/json"

// RecordStore is the durable persistence collaborator. Keys identify
// whole JSON documents.
type RecordStore interface {
	// ReadRecord returns the stored document for key, or ok=false when
	// absent. A corrupt document is treated as absent.
	ReadRecord(key string) (raw json.RawMessage, ok bool, err error)

	// WriteRecord replaces the document for key. The previous content
	// must survive any failure mid-write.
	WriteRecord(key string, value any) error
}
