package lock

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// GenerateETag produces a content validator for HTTP cache validation:
// md5 over the canonical JSON of the data plus the version suffix. JSON
// object keys marshal in sorted order, which makes the encoding canonical
// for document maps. This is a cache validator, not a security token.
func GenerateETag(data any, version int) (string, error) {
	canonical, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode etag payload: %w", err)
	}
	sum := md5.Sum(append(canonical, []byte(fmt.Sprintf(":v%d", version))...))
	return hex.EncodeToString(sum[:]), nil
}
