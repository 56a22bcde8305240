package cryptoutil

import (
	"strings"
	"testing"
)

func TestHashPasswordAndVerify(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("hash %q does not look like a PHC argon2id string", hash)
	}

	ok, err := VerifyPassword("correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Fatal("VerifyPassword: correct password did not verify")
	}

	ok, err = VerifyPassword("wrong password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword (mismatch): %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword: wrong password verified")
	}
}

func TestHashPasswordRandomSalt(t *testing.T) {
	h1, err := HashPassword("same-input")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := HashPassword("same-input")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h1 == h2 {
		t.Fatal("two hashes of the same password must differ (random salt)")
	}
}

func TestVerifyPasswordMalformed(t *testing.T) {
	tests := []string{
		"",
		"not-a-phc-string",
		"$bcrypt$10$abc$def",
		"$argon2id$v=x$m=1,t=1,p=1$c2FsdA$aGFzaA",
	}
	for _, phc := range tests {
		if _, err := VerifyPassword("anything", phc); err != ErrInvalidHashFormat {
			t.Errorf("VerifyPassword(%q) error = %v, want ErrInvalidHashFormat", phc, err)
		}
	}
}

func TestSHA256Hex(t *testing.T) {
	h1 := SHA256Hex("test-key-123")
	h2 := SHA256Hex("test-key-123")
	if h1 != h2 {
		t.Fatalf("same input produced different hashes: %q vs %q", h1, h2)
	}
	if len(h1) != 64 {
		t.Fatalf("hash length = %d, want 64", len(h1))
	}
	if h1 == SHA256Hex("different-key") {
		t.Fatal("different inputs produced the same hash")
	}
}

func TestHMACSHA256Hex(t *testing.T) {
	sig1 := HMACSHA256Hex("secret", `{"a":1}`)
	sig2 := HMACSHA256Hex("secret", `{"a":1}`)
	if sig1 != sig2 {
		t.Fatal("same secret+message produced different signatures")
	}
	if len(sig1) != 64 {
		t.Fatalf("signature length = %d, want 64", len(sig1))
	}
	if HMACSHA256Hex("other-secret", `{"a":1}`) == sig1 {
		t.Fatal("different secrets produced the same signature")
	}
}

func TestGenerateToken(t *testing.T) {
	tok, err := GenerateToken("pm_", 32)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if !strings.HasPrefix(tok, "pm_") {
		t.Fatalf("token %q missing prefix", tok)
	}
	if strings.ContainsAny(tok[3:], "+/=") {
		t.Fatalf("token %q is not URL-safe/unpadded base64", tok)
	}

	tok2, err := GenerateToken("pm_", 32)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if tok == tok2 {
		t.Fatal("two generated tokens must differ")
	}
}

func TestGenerateTokenMinimumEntropy(t *testing.T) {
	tok, err := GenerateToken("dt_", 4)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	// 32 bytes floors to a base64 string of at least 43 chars, plus prefix.
	if len(tok) < len("dt_")+43 {
		t.Fatalf("token %q shorter than expected minimum entropy floor", tok)
	}
}

func TestGenerateInviteCode(t *testing.T) {
	code, err := GenerateInviteCode()
	if err != nil {
		t.Fatalf("GenerateInviteCode: %v", err)
	}
	if len(code) != 11 {
		t.Fatalf("code %q length = %d, want 11", code, len(code))
	}
	if code[3] != '-' || code[7] != '-' {
		t.Fatalf("code %q missing dash separators at positions 3 and 7", code)
	}
	for i, c := range code {
		if i == 3 || i == 7 {
			continue
		}
		if !strings.ContainsRune(inviteCodeAlphabet, c) {
			t.Fatalf("code %q contains disallowed character %q", code, c)
		}
	}

	code2, err := GenerateInviteCode()
	if err != nil {
		t.Fatalf("GenerateInviteCode: %v", err)
	}
	if code == code2 {
		t.Fatal("two generated invite codes must differ")
	}
}

func TestSecureCompare(t *testing.T) {
	if !SecureCompare("abc", "abc") {
		t.Error("SecureCompare(abc, abc) = false, want true")
	}
	if SecureCompare("abc", "abd") {
		t.Error("SecureCompare(abc, abd) = true, want false")
	}
	if SecureCompare("abc", "abcd") {
		t.Error("SecureCompare(abc, abcd) = true, want false")
	}
}
