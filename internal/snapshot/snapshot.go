// Package snapshot captures immutable point-in-time copies of the
// variable store, one JSON file per snapshot.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mikeleppane/envx-sub000/internal/envstore"
)

// Snapshot is a named capture of the whole store. Variables are copies;
// mutating the store later does not affect an existing snapshot.
type Snapshot struct {
	ID          string                        `json:"id"`
	Name        string                        `json:"name"`
	Description string                        `json:"description,omitempty"`
	CreatedAt   time.Time                     `json:"created_at"`
	Variables   map[string]*envstore.Variable `json:"variables"`
	Metadata    map[string]string             `json:"metadata,omitempty"`
}

// New captures vars into a fresh snapshot with a generated id and an
// integrity checksum in the metadata.
func New(name, description string, vars []*envstore.Variable) *Snapshot {
	captured := make(map[string]*envstore.Variable, len(vars))
	for _, v := range vars {
		captured[v.Name] = v.Clone()
	}
	s := &Snapshot{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now(),
		Variables:   captured,
		Metadata:    make(map[string]string),
	}
	s.Metadata["checksum"] = s.payloadChecksum()
	return s
}

// payloadChecksum hashes the canonical JSON encoding of the captured
// variables. Map keys are sorted by the encoder, so the digest is
// stable.
func (s *Snapshot) payloadChecksum() string {
	data, err := json.Marshal(s.Variables)
	if err != nil {
		return ""
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// VerifyChecksum reports whether the stored digest still matches the
// payload. Snapshots without a recorded digest pass.
func (s *Snapshot) VerifyChecksum() bool {
	want, ok := s.Metadata["checksum"]
	if !ok || want == "" {
		return true
	}
	return s.payloadChecksum() == want
}
