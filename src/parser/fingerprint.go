package parser

import (
	"fmt"

	"github.com/OneOfOne/xxhash"
)

// Fingerprint returns a stable content hash, used as the change marker for
// documents that arrive without an upstream blob sha.
func Fingerprint(content string) string {
	return fmt.Sprintf("xx:%016x", xxhash.ChecksumString64(content))
}
