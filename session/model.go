package session

import (
	"encoding/json"
	"errors"
)

// Entry is one live session record. TokenHash is the base64 raw-URL digest of
// the refresh token; the token itself is never stored. Timestamps are unix
// seconds. Field keys are single letters to keep list payloads small.
type Entry struct {
	TokenHash  string `json:"h"`
	DeviceInfo string `json:"d"`
	CreatedAt  int64  `json:"c"`
	LastUsedAt int64  `json:"u"`
}

// ErrEntryCorrupt is returned when a stored list element cannot be decoded.
var ErrEntryCorrupt = errors.New("session entry corrupt")

// Encode serializes an entry for list storage.
func Encode(e Entry) ([]byte, error) {
	if e.TokenHash == "" {
		return nil, errors.New("entry token hash required")
	}
	return json.Marshal(e)
}

// Decode parses a stored list element.
func Decode(data []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, errors.Join(ErrEntryCorrupt, err)
	}
	if e.TokenHash == "" {
		return Entry{}, ErrEntryCorrupt
	}
	return e, nil
}
