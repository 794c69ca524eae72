package otp

import (
	"strings"
	"testing"
	"time"
)

// cheap parameters keep the suite fast; the encoding is identical
var testParams = Params{Memory: 64, Time: 1, Threads: 1, KeyLen: 32}

func TestGenerate_codeShapeAndExpiry(t *testing.T) {
	g := NewGenerator(testParams, 0)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	code, err := g.Generate(now)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(code.Plain) != 6 {
		t.Errorf("code should have 6 digits, got %q", code.Plain)
	}
	for _, r := range code.Plain {
		if r < '0' || r > '9' {
			t.Fatalf("code should be decimal, got %q", code.Plain)
		}
	}
	if !code.ExpiresAt.Equal(now.Add(5 * time.Minute)) {
		t.Errorf("expiry should be now+5m, got %v", code.ExpiresAt)
	}
	if strings.Contains(code.Hash, code.Plain) {
		t.Error("hash must not embed the plaintext code")
	}
	if !strings.HasPrefix(code.Hash, "$argon2id$v=19$") {
		t.Errorf("unexpected hash encoding %q", code.Hash)
	}
}

func TestGenerate_keepsLeadingZeros(t *testing.T) {
	g := NewGenerator(testParams, time.Minute)
	for i := 0; i < 200; i++ {
		code, err := g.Generate(time.Now())
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code.Plain) != 6 {
			t.Fatalf("code %q lost its zero padding", code.Plain)
		}
	}
}

func TestVerify(t *testing.T) {
	g := NewGenerator(testParams, 0)
	code, err := g.Generate(time.Now())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if !Verify(code.Plain, code.Hash) {
		t.Error("correct code should verify")
	}
	wrong := "000000"
	if code.Plain == wrong {
		wrong = "000001"
	}
	if Verify(wrong, code.Hash) {
		t.Error("wrong code should not verify")
	}
	if Verify(code.Plain, "") {
		t.Error("empty hash should never verify")
	}
	if Verify(code.Plain, "$argon2id$v=19$m=64,t=1,p=1$!!$!!") {
		t.Error("malformed hash should never verify")
	}
}

func TestHash_isSalted(t *testing.T) {
	g := NewGenerator(testParams, 0)
	h1, err := g.Hash("123456")
	if err != nil {
		t.Fatal(err)
	}
	h2, err := g.Hash("123456")
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Error("same code should hash differently under different salts")
	}
	if !Verify("123456", h1) || !Verify("123456", h2) {
		t.Error("both salted hashes should verify")
	}
}

func TestExpired(t *testing.T) {
	exp := time.Date(2025, 3, 1, 10, 5, 0, 0, time.UTC)
	if Expired(exp, exp.Add(-time.Second)) {
		t.Error("code should be valid before expiry")
	}
	if !Expired(exp, exp) {
		t.Error("code should be expired at the expiry instant")
	}
	if !Expired(exp, exp.Add(time.Second)) {
		t.Error("code should be expired after expiry")
	}
}
