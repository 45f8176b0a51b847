package sessionstore

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"hash"

	"github.com/goliatone/go-errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultSaltStrength is the number of random bytes behind a salt
	DefaultSaltStrength = 400
	// DefaultHashIterations is the PBKDF2 iteration count
	DefaultHashIterations = 4096
	// DefaultHashKeyLength is the derived key length in bytes
	DefaultHashKeyLength = 512
	// DefaultHashDigest is the PBKDF2 digest
	DefaultHashDigest = "sha256"
)

// GenerateSalt returns a base64 salt backed by crypto/rand. Strength is the
// number of random bytes; values below 1 use DefaultSaltStrength.
func GenerateSalt(strength int) (string, error) {
	if strength < 1 {
		strength = DefaultSaltStrength
	}

	buf := make([]byte, strength)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate salt").
			WithCode(errors.CodeInternal)
	}

	return base64.StdEncoding.EncodeToString(buf), nil
}

// Hasher derives password credentials with PBKDF2. The zero value is not
// usable; build one with NewHasher.
type Hasher struct {
	Iterations int
	KeyLength  int
	Digest     string
}

type HasherOption func(*Hasher)

func NewHasher(opts ...HasherOption) *Hasher {
	h := &Hasher{
		Iterations: DefaultHashIterations,
		KeyLength:  DefaultHashKeyLength,
		Digest:     DefaultHashDigest,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	return h
}

// WithHasherConfig pulls iteration count, key length, and digest from config
func WithHasherConfig(cfg Config) HasherOption {
	return func(h *Hasher) {
		if cfg == nil {
			return
		}
		if cfg.GetHashIterations() > 0 {
			h.Iterations = cfg.GetHashIterations()
		}
		if cfg.GetHashKeyLength() > 0 {
			h.KeyLength = cfg.GetHashKeyLength()
		}
		if cfg.GetHashDigest() != "" {
			h.Digest = cfg.GetHashDigest()
		}
	}
}

// HashPassword derives a hex-encoded credential from a plaintext password and
// a per-user salt. An empty password skips hashing entirely so the record is
// stored without a usable credential.
func (h *Hasher) HashPassword(password, salt string) string {
	if password == "" {
		return ""
	}

	key := pbkdf2.Key([]byte(password), []byte(salt), h.Iterations, h.KeyLength, h.digest())
	return hex.EncodeToString(key)
}

func (h *Hasher) digest() func() hash.Hash {
	switch h.Digest {
	case "sha1":
		return sha1.New
	case "sha512":
		return sha512.New
	default:
		return sha256.New
	}
}
