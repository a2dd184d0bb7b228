package catalog

import (
	"encoding/base64"
	"encoding/json"
)

// pageCursor is the opaque continuation token handed to clients. It encodes
// the active sort field and direction plus the last-seen sort value and
// document id, so a stale or mismatched cursor can be detected and ignored.
type pageCursor struct {
	Field string `json:"k"`
	Dir   string `json:"d"` // "asc" or "desc"
	Value any    `json:"v"`
	ID    string `json:"id"`
}

func encodeCursor(c pageCursor) string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// decodeCursor parses a client-held cursor. Any malformed token returns nil;
// callers treat that as "first page", never as an error.
func decodeCursor(raw string) *pageCursor {
	if raw == "" {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var c pageCursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil
	}
	if c.Field == "" || c.ID == "" || c.Value == nil {
		return nil
	}
	if c.Dir != "asc" && c.Dir != "desc" {
		return nil
	}
	return &c
}

// matches reports whether the cursor was issued for the given sort.
func (c *pageCursor) matches(field, dir string) bool {
	return c != nil && c.Field == field && c.Dir == dir
}
