package catalog

import (
	"encoding/base64"
	"testing"
)

func TestCursorRoundTrip(t *testing.T) {
	token := encodeCursor(pageCursor{Field: "price", Dir: "desc", Value: 129.0, ID: "p-42"})
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	got := decodeCursor(token)
	if got == nil {
		t.Fatal("expected cursor to decode")
	}
	if got.Field != "price" || got.Dir != "desc" || got.ID != "p-42" {
		t.Fatalf("unexpected cursor: %+v", got)
	}
	if v, ok := got.Value.(float64); !ok || v != 129.0 {
		t.Fatalf("unexpected value: %v", got.Value)
	}
}

func TestDecodeCursorMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"not base64":    "!!!not-base64!!!",
		"not json":      base64.StdEncoding.EncodeToString([]byte("hello")),
		"missing id":    base64.StdEncoding.EncodeToString([]byte(`{"k":"price","d":"asc","v":1}`)),
		"missing value": base64.StdEncoding.EncodeToString([]byte(`{"k":"price","d":"asc","id":"x"}`)),
		"bad direction": base64.StdEncoding.EncodeToString([]byte(`{"k":"price","d":"up","v":1,"id":"x"}`)),
	}
	for name, raw := range cases {
		if got := decodeCursor(raw); got != nil {
			t.Errorf("%s: expected nil, got %+v", name, got)
		}
	}
}

func TestCursorMatches(t *testing.T) {
	token := encodeCursor(pageCursor{Field: "price", Dir: "asc", Value: 10.0, ID: "p-1"})
	cur := decodeCursor(token)

	if !cur.matches("price", "asc") {
		t.Error("expected cursor to match the sort it was issued for")
	}
	if cur.matches("price", "desc") {
		t.Error("direction change must invalidate the cursor")
	}
	if cur.matches("createdAt", "asc") {
		t.Error("field change must invalidate the cursor")
	}

	var nilCur *pageCursor
	if nilCur.matches("price", "asc") {
		t.Error("nil cursor must never match")
	}
}
