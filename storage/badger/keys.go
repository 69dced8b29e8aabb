package badger

import (
	"encoding/binary"

	"github.com/poiesic/planforge/core"
)

// Key layout. Entries live under a versioned prefix so a corpus refresh
// can load a full new version and repoint "current" atomically.
const (
	knowledgeEntryPrefix = "knwent"
	knowledgeVersionKey  = "knwcur"
)

// makeVersionPrefix generates the key prefix for one collection version.
// Format: prefix:version
func makeVersionPrefix(version uint64) []byte {
	prefix := knowledgeEntryPrefix + ":"
	buf := make([]byte, len(prefix)+9)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], version)
	buf[offset+8] = ':'
	return buf
}

// makeEntryKey generates a key for an entry within a collection version.
// Format: prefix:version:id
func makeEntryKey(version uint64, id core.ID) []byte {
	prefix := makeVersionPrefix(version)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}
