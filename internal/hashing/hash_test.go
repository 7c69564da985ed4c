package hashing_test

import (
	"testing"

	"github.com/proof-collab/proof-sync/internal/hashing"
)

func TestHashIsDeterministic(t *testing.T) {
	data := []byte(`{"content":"Socrates is mortal"}`)

	first := hashing.HashString(data)
	second := hashing.HashString(data)
	if first != second {
		t.Errorf("Hash not deterministic: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("Expected 64 hex characters, got %d", len(first))
	}
}

func TestVerify(t *testing.T) {
	data := []byte("payload")
	checksum := hashing.HashString(data)

	if !hashing.Verify(data, checksum) {
		t.Error("Verify rejected a valid checksum")
	}
	if hashing.Verify([]byte("tampered"), checksum) {
		t.Error("Verify accepted a tampered payload")
	}
}
