package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"marketplace-settlement/config"

	"golang.org/x/crypto/argon2"
)

const (
	defaultArgonIterations = 1
	defaultArgonMemoryKB   = 64 * 1024
	defaultArgonThreads    = 4
	argon2KeyLen           = 32
	argon2SaltLen          = 16
)

var errMalformedHash = errors.New("malformed argon2id hash")

// Argon2HashService implements ports.HashService with Argon2id. The cost
// parameters are written into every hash, so changing them only affects new
// PINs.
type Argon2HashService struct {
	iterations uint32
	memoryKB   uint32
	threads    uint8
}

// NewArgon2HashService builds a hasher from the wallet config. Zero values
// fall back to m=65536,t=1,p=4.
func NewArgon2HashService(cfg config.WalletConfig) *Argon2HashService {
	s := &Argon2HashService{
		iterations: cfg.ArgonIterations,
		memoryKB:   cfg.ArgonMemoryKB,
		threads:    cfg.ArgonThreads,
	}
	if s.iterations == 0 {
		s.iterations = defaultArgonIterations
	}
	if s.memoryKB == 0 {
		s.memoryKB = defaultArgonMemoryKB
	}
	if s.threads == 0 {
		s.threads = defaultArgonThreads
	}
	return s
}

// Hash returns $argon2id$v=19$m=<kb>,t=<iter>,p=<threads>$<salt>$<key>.
func (s *Argon2HashService) Hash(secret string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(secret), salt, s.iterations, s.memoryKB, s.threads, argon2KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		s.memoryKB, s.iterations, s.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the key with the parameters stored in encodedHash and
// compares in constant time.
func (s *Argon2HashService) Verify(secret string, encodedHash string) (bool, error) {
	p, err := decodeArgon2Hash(encodedHash)
	if err != nil {
		return false, err
	}

	other := argon2.IDKey([]byte(secret), p.salt, p.iterations, p.memoryKB, p.threads, uint32(len(p.key)))

	return subtle.ConstantTimeCompare(p.key, other) == 1, nil
}

type argon2Hash struct {
	memoryKB   uint32
	iterations uint32
	threads    uint8
	salt       []byte
	key        []byte
}

func decodeArgon2Hash(encoded string) (*argon2Hash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: expected 6 segments, got %d", errMalformedHash, len(parts))
	}
	if parts[1] != "argon2id" {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", errMalformedHash, parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, fmt.Errorf("%w: version: %w", errMalformedHash, err)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("%w: version %d", errMalformedHash, version)
	}

	h := &argon2Hash{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.memoryKB, &h.iterations, &h.threads); err != nil {
		return nil, fmt.Errorf("%w: params: %w", errMalformedHash, err)
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, fmt.Errorf("%w: salt: %w", errMalformedHash, err)
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, fmt.Errorf("%w: key: %w", errMalformedHash, err)
	}
	if len(h.key) == 0 {
		return nil, fmt.Errorf("%w: empty key", errMalformedHash)
	}

	return h, nil
}
