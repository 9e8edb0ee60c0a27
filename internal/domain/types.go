package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Thought is a single record served by the thoughts API
type Thought struct {
	ID        ID     `json:"id"`
	Thought   string `json:"thought"`
	Input     string `json:"input"`
	Timestamp string `json:"timestamp"`
}

// ID is an opaque record identifier. The API may send it as a JSON number
// or a JSON string; both forms decode to the same value.
type ID string

// UnmarshalJSON accepts numbers and strings
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes numeric IDs as numbers and everything else as strings
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// String returns the canonical text of the ID
func (id ID) String() string {
	return string(id)
}
