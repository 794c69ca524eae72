// Package otp issues and verifies the one-time codes that gate item collection.
// Only an argon2id hash of a code is ever persisted.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
)

const (
	codeLength = 6
	codeSpace  = 1_000_000

	// DefaultTTL is how long an issued code stays valid
	DefaultTTL = 5 * time.Minute
	// MaxAttempts is the number of wrong guesses after which a code is invalidated
	MaxAttempts = 5

	saltLength = 16
)

// Params are the argon2id cost parameters
type Params struct {
	Memory  uint32 // KiB
	Time    uint32
	Threads uint8
	KeyLen  uint32
}

// DefaultParams follow the OWASP argon2id baseline (19 MiB, 2 passes)
var DefaultParams = Params{Memory: 19 * 1024, Time: 2, Threads: 1, KeyLen: 32}

// Code is a freshly drawn OTP. Plain must be delivered and then dropped.
type Code struct {
	Plain     string
	Hash      string
	ExpiresAt time.Time
}

// Generator draws codes and hashes them
type Generator struct {
	params Params
	ttl    time.Duration
}

// NewGenerator creates a generator; zero ttl falls back to DefaultTTL
func NewGenerator(params Params, ttl time.Duration) *Generator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Generator{params: params, ttl: ttl}
}

// Generate draws a uniformly random 6-digit code, hashes it and sets its expiry to now + TTL.
func (g *Generator) Generate(now time.Time) (Code, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpace))
	if err != nil {
		return Code{}, fmt.Errorf("draw otp: %w", err)
	}
	plain := fmt.Sprintf("%0*d", codeLength, n.Int64())

	hash, err := g.Hash(plain)
	if err != nil {
		return Code{}, err
	}
	return Code{Plain: plain, Hash: hash, ExpiresAt: now.Add(g.ttl)}, nil
}

// Hash returns the PHC-encoded argon2id hash of code with a random salt
func (g *Generator) Hash(code string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("otp salt: %w", err)
	}
	p := g.params
	key := argon2.IDKey([]byte(code), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether candidate matches the encoded hash.
// The comparison runs in constant time; a malformed hash never matches.
func Verify(candidate, encoded string) bool {
	p, salt, want, err := decode(encoded)
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(candidate), salt, p.Time, p.Memory, p.Threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

// Expired reports whether an OTP with the given expiry is no longer usable at now
func Expired(expiresAt, now time.Time) bool {
	return !now.Before(expiresAt)
}

func decode(encoded string) (Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return Params{}, nil, nil, fmt.Errorf("unsupported hash format")
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return Params{}, nil, nil, fmt.Errorf("unsupported argon2 version")
	}
	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return Params{}, nil, nil, fmt.Errorf("parse params: %w", err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, fmt.Errorf("decode salt: %w", err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return Params{}, nil, nil, fmt.Errorf("decode key")
	}
	return p, salt, key, nil
}
