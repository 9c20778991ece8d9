package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DefaultSubjectID is used when a client does not identify itself.
const DefaultSubjectID = "0"

// SubjectID identifies the user a token is issued to. Clients send it either as
// a JSON number or a string.
type SubjectID string

// UnmarshalJSON accepts 42, "42" and null.
func (s *SubjectID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = SubjectID(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("subject id must be a string or number: %w", err)
	}
	*s = SubjectID(n.String())
	return nil
}

// OrDefault returns the subject id or DefaultSubjectID when empty.
func (s SubjectID) OrDefault() string {
	if s == "" {
		return DefaultSubjectID
	}
	return string(s)
}
