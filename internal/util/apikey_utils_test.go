package util

import (
	"strings"
	"testing"

	"github.com/faultdesk/incident-service-api/internal/domain/apikey"
)

func TestGenerateAPIKey(t *testing.T) {
	fullKey, prefix, keyHash, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(fullKey, "fd_"+prefix+"_") {
		t.Fatalf("key %q does not embed its prefix %q", fullKey, prefix)
	}
	if len(prefix) != apikey.APIKeyPrefixLength {
		t.Fatalf("unexpected prefix length: %d", len(prefix))
	}
	if keyHash != HashAPIKey(fullKey) {
		t.Fatal("stored hash must match the hash of the full key")
	}
}

func TestGenerateAPIKey_Unique(t *testing.T) {
	first, _, _, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _, _, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		t.Fatal("two generated keys must differ")
	}
}

func TestHashAPIKey_Deterministic(t *testing.T) {
	if HashAPIKey("fd_abc_def") != HashAPIKey("fd_abc_def") {
		t.Fatal("hash must be deterministic")
	}
	if HashAPIKey("fd_abc_def") == HashAPIKey("fd_abc_xyz") {
		t.Fatal("different keys must hash differently")
	}
}
