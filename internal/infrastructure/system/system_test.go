package system

import (
	"encoding/base64"
	"testing"
)

func TestTokenGeneratorIssuesDistinctURLSafeTokens(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		token, err := TokenGenerator{}.NewToken()
		if err != nil {
			t.Fatalf("NewToken() error = %v", err)
		}
		raw, err := base64.RawURLEncoding.DecodeString(token)
		if err != nil || len(raw) != 32 {
			t.Fatalf("token %q is not 32 url-safe bytes: %v", token, err)
		}
		if seen[token] {
			t.Fatalf("duplicate token %q", token)
		}
		seen[token] = true
	}
}

func TestClockIsUTC(t *testing.T) {
	if loc := (Clock{}).Now().Location(); loc.String() != "UTC" {
		t.Fatalf("expected UTC, got %s", loc)
	}
}
