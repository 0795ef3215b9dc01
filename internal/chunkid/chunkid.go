// Package chunkid derives collision-resistant chunk vector IDs.
package chunkid

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/google/uuid"
)

const prefix = "chunk:"

// NewIngestionID returns a fresh random identifier for one ingestion call.
func NewIngestionID() string {
	return uuid.New().String()
}

// New returns the ID for the chunk at index within the given ingestion.
// The same (ingestionID, index) pair always yields the same ID; distinct
// ingestions never share IDs because ingestion IDs are random UUIDs.
func New(ingestionID string, index int) string {
	h := sha256.New()
	h.Write([]byte(ingestionID))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(index)))
	return prefix + hex.EncodeToString(h.Sum(nil)[:16])
}
