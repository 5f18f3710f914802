package security

import (
	"strings"
	"testing"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.Contains(hash, ":") {
		t.Fatalf("hash %q missing salt separator", hash)
	}

	ok, err := VerifyPassword("correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Fatalf("correct password rejected")
	}

	ok, err = VerifyPassword("wrong password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if ok {
		t.Fatalf("wrong password accepted")
	}
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	first, err := HashPassword("same password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	second, err := HashPassword("same password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if first == second {
		t.Fatalf("two hashes of the same password are identical")
	}
}

func TestVerifyPasswordMalformed(t *testing.T) {
	if ok, err := VerifyPassword("anything", "no-separator"); err == nil || ok {
		t.Fatalf("malformed hash: ok=%v err=%v", ok, err)
	}
	if ok, _ := VerifyPassword("", "salt:hash"); ok {
		t.Fatalf("empty password accepted")
	}
}

func TestGenerateNumericCode(t *testing.T) {
	code, err := GenerateNumericCode(CodeLength)
	if err != nil {
		t.Fatalf("GenerateNumericCode: %v", err)
	}
	if !IsWellFormedCode(code) {
		t.Fatalf("generated code %q is not well formed", code)
	}

	if _, err := GenerateNumericCode(0); err == nil {
		t.Fatalf("expected error for zero length")
	}
}

func TestIsWellFormedCode(t *testing.T) {
	for _, bad := range []string{"", "12345", "1234567", "12345a", "abcdef"} {
		if IsWellFormedCode(bad) {
			t.Errorf("IsWellFormedCode(%q) = true", bad)
		}
	}
	if !IsWellFormedCode("042319") {
		t.Errorf("IsWellFormedCode(042319) = false")
	}
}
