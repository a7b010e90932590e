package password

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashVerifyRoundtrip(t *testing.T) {
	h, err := NewHasher(Config{Cost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}

	hash, err := h.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if strings.Contains(hash, "correct horse") {
		t.Fatal("hash must not embed the plaintext")
	}

	ok, err := h.Verify("correct horse battery", hash)
	if err != nil || !ok {
		t.Fatalf("Verify should accept the original password: %v, %v", ok, err)
	}

	ok, err = h.Verify("wrong password!", hash)
	if err != nil {
		t.Fatalf("mismatch must not be an error: %v", err)
	}
	if ok {
		t.Fatal("Verify must reject a wrong password")
	}
}

func TestHashRejectsShortPasswords(t *testing.T) {
	h, err := NewHasher(Config{Cost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	if _, err := h.Hash("short"); err == nil {
		t.Fatal("expected minimum-length rejection")
	}
}

func TestVerifyMalformedHashIsAnError(t *testing.T) {
	h, err := NewHasher(Config{})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	if _, err := h.Verify("whatever पासवर्ड", "not-a-bcrypt-hash"); err == nil {
		t.Fatal("malformed stored hash must surface an error")
	}
}

func TestNewHasherRejectsBadCost(t *testing.T) {
	if _, err := NewHasher(Config{Cost: 1}); err == nil {
		t.Fatal("expected cost validation error")
	}
	if _, err := NewHasher(Config{Cost: 99}); err == nil {
		t.Fatal("expected cost validation error")
	}
}
