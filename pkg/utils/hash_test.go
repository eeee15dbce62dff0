package utils

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatalf("hash equals plaintext")
	}
	if !CheckPassword("s3cret-pass", hash) {
		t.Fatalf("correct password rejected")
	}
	if CheckPassword("wrong-pass", hash) {
		t.Fatalf("wrong password accepted")
	}
}

func TestRandomSecret(t *testing.T) {
	a := RandomSecret(16)
	b := RandomSecret(16)
	if len(a) != 32 {
		t.Fatalf("len = %d, want 32 hex chars", len(a))
	}
	if a == b {
		t.Fatalf("two secrets collided")
	}
}
