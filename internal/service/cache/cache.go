package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"DiffPlot/internal/domain/models"
)

// encodeEntry serializes an entry for a byte store. gob keeps NaN cells and
// time locations intact.
func encodeEntry(e models.CacheEntry) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeEntry(b []byte) (models.CacheEntry, error) {
	var e models.CacheEntry
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&e); err != nil {
		return models.CacheEntry{}, fmt.Errorf("decode cache entry: %w", err)
	}
	return e, nil
}
