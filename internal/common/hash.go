package common

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint returns the hex SHA-256 of v's JSON encoding. Map keys are encoded in
// sorted order, so equal values always share a fingerprint.
func Fingerprint(v any) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
