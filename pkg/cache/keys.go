package cache

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// prefixed namespaces key as "<prefix>:<key>"; an empty prefix leaves it as is.
func prefixed(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}

// fileName maps a key to a flat file name. Collisions are detected by the
// key stored inside the file.
func fileName(key string) string {
	return strconv.FormatUint(xxhash.Sum64String(key), 16) + ".bin"
}
