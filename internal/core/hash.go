package core

import (
	"encoding/json"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// IndexKey returns the content hash identifying idx inside its table. Two
// indexes with the same normalized definition share a key.
func IndexKey(idx *Index) string {
	// Struct field order makes the encoding canonical.
	b, err := json.Marshal(idx)
	if err != nil {
		return ""
	}
	return strconv.FormatUint(xxhash.Sum64(b), 16)
}
