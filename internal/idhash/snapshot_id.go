// Package idhash computes deterministic record identifiers.
package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputeSnapshotID computes a deterministic snapshot_id.
// Formula: base58(SHA256(token_id|captured_at)).
// The same token observed at the same capture time always hashes to the same
// ID, so a re-run of a persist pass cannot double-insert.
func ComputeSnapshotID(tokenID string, capturedAt int64) string {
	data := fmt.Sprintf("%s|%d", tokenID, capturedAt)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
