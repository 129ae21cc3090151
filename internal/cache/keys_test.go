package cache

import (
	"errors"
	"strings"
	"testing"
)

func TestPlainKeysFileName(t *testing.T) {
	testCases := []struct {
		name      string
		key       string
		shouldErr bool
	}{
		{"simple", "alpha", false},
		{"dotted", "v1.2.3", false},
		{"hidden", ".profile", false},
		{"empty", "", true},
		{"dot", ".", true},
		{"dotdot", "..", true},
		{"traversal", "../etc/passwd", true},
		{"nested", "a/b", true},
		{"nul", "a\x00b", true},
		{"temp prefix", ".cache-123", true},
		{"too long", strings.Repeat("k", 256), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			name, err := PlainKeys{}.FileName(tc.key)
			if tc.shouldErr {
				if !errors.Is(err, ErrInvalidKey) {
					t.Fatalf("expected ErrInvalidKey for %q, got %v", tc.key, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for %q: %v", tc.key, err)
			}
			if name != tc.key {
				t.Fatalf("expected file name %q, got %q", tc.key, name)
			}
		})
	}
}

func TestHashedKeysFileName(t *testing.T) {
	a, err := HashedKeys{}.FileName("../anything/at all")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a) != 16 {
		t.Fatalf("expected 16 hex digits, got %q", a)
	}
	if strings.ContainsAny(a, "/.") {
		t.Fatalf("hashed name must be a plain component: %q", a)
	}

	b, _ := HashedKeys{}.FileName("../anything/at all")
	if a != b {
		t.Fatalf("hashing must be deterministic: %q vs %q", a, b)
	}
	c, _ := HashedKeys{}.FileName("other")
	if a == c {
		t.Fatalf("distinct keys should map to distinct names")
	}
}
