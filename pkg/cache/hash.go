package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Hash returns the hex SHA-256 of data. Applied to the canonical problem
// encoding (io.MarshalProblem) it identifies a problem across runs and
// machines.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashKey builds "<kind>:<hash>" from the JSON encoding of parts.
// encoding/json sorts map keys, so equal options always give equal keys.
func hashKey(kind string, parts ...any) string {
	data, err := json.Marshal(parts)
	if err != nil {
		// Unencodable parts get a key no other input can produce.
		return kind + ":invalid:" + err.Error()
	}
	return kind + ":" + Hash(data)
}
