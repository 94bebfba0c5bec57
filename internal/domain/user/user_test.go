package user

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNormalizeEmail(t *testing.T) {
	tests := map[string]string{
		"alice@x.com":        "alice@x.com",
		"  Alice@X.com ":     "alice@x.com",
		"\tBOB@EXAMPLE.ORG\n": "bob@example.org",
	}

	for in, want := range tests {
		if got := NormalizeEmail(in); got != want {
			t.Fatalf("NormalizeEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUser_JSONNeverContainsHash(t *testing.T) {
	u := User{
		ID:           "u1",
		Name:         "Alice",
		Email:        "alice@x.com",
		PasswordHash: "$2a$10$secret",
		CreatedAt:    time.Now().UTC(),
	}

	b, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if strings.Contains(string(b), "secret") || strings.Contains(string(b), "password") {
		t.Fatalf("hash leaked into json: %s", b)
	}

	if u.WithoutPassword().PasswordHash != "" {
		t.Fatalf("WithoutPassword kept the hash")
	}
}
