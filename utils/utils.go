package utils

import (
	rndm "math/rand"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
)

// --- Random String and ID Generators ---

var letterRunes = []rune("abcdefghijklmnopqrstuvwxyz0123456789_ABCDEFGHIJKLMNOPQRSTUVWXYZ")

// GenerateID creates a random alphanumeric id of length n.
func GenerateID(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letterRunes[rndm.Intn(len(letterRunes))]
	}
	return string(b)
}

// --- Query helpers ---

// ClampLimit parses a limit query value into [1, max], using def when the
// value is missing or unparsable.
func ClampLimit(raw string, def, max int) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || raw == "" {
		return def
	}
	if limit < 1 {
		return 1
	}
	if limit > max {
		return max
	}
	return limit
}

// ParsePagination returns skip/limit for offset-paged admin listings.
func ParsePagination(r *http.Request, defLimit, maxLimit int) (int64, int64) {
	q := r.URL.Query()
	limit := ClampLimit(q.Get("limit"), defLimit, maxLimit)
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	return int64(page-1) * int64(limit), int64(limit)
}

// --- Validation ---

// ValidEmail reports whether s parses as a single RFC 5322 address.
func ValidEmail(s string) bool {
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// SplitCSV takes a comma-separated string and returns cleaned unique values.
func SplitCSV(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	var out []string
	seen := make(map[string]bool)
	for _, p := range parts {
		v := strings.TrimSpace(p)
		if v == "" || seen[v] {
			continue
		}
		out = append(out, v)
		seen[v] = true
	}
	return out
}

// Contains reports whether slice holds value.
func Contains(slice []string, value string) bool {
	for _, v := range slice {
		if v == value {
			return true
		}
	}
	return false
}
