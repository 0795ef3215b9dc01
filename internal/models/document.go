// Package models defines the data carried through ingestion and query.
package models

// Document is one ingestion payload. It lives only for the duration of a
// single ingestion call and is never persisted.
type Document struct {
	Content   []byte `json:"-"`
	MediaType string `json:"media_type"`
	// Source is an optional caller-supplied name (usually the upload filename).
	Source string `json:"source,omitempty"`
	// Text is filled in by extraction.
	Text string `json:"-"`
}

// Chunk is a contiguous slice of a document's extracted text, identified by
// its position within that document.
type Chunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// IngestResult is returned by a successful ingestion.
type IngestResult struct {
	Message     string `json:"message"`
	Analysis    string `json:"analysis"`
	IngestionID string `json:"ingestion_id"`
	Chunks      int    `json:"chunks"`
}
