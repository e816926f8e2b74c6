package ingest

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// IDStrategy derives the durable document identifier from a source name
// and, when available, the raw bytes. Injected into the pipeline so the
// derivation rule exists exactly once.
type IDStrategy func(sourceName string, data []byte) string

// HashID is the default strategy: the filename stem plus the first 8 hex
// characters of sha256 over the bytes. When only a name is available
// (delete paths, listings) the digest falls back to md5 over the name
// itself, so the id is still deterministic.
func HashID(sourceName string, data []byte) string {
	stem := strings.TrimSuffix(filepath.Base(sourceName), filepath.Ext(sourceName))
	if len(data) > 0 {
		sum := sha256.Sum256(data)
		return stem + "_" + hex.EncodeToString(sum[:])[:8]
	}
	sum := md5.Sum([]byte(sourceName))
	return stem + "_" + hex.EncodeToString(sum[:])[:8]
}
