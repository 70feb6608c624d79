package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Algorithm names a password hashing scheme.
type Algorithm string

const (
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmArgon2id Algorithm = "argon2id"
)

// Defaults for the hashing parameters.
const (
	DefaultBcryptCost       = 12
	DefaultArgon2Iterations = 2
	DefaultArgon2MemoryKiB  = 19 * 1024

	argon2Parallelism = 1
	argon2KeyLength   = 32
	argon2SaltLength  = 16

	// Upper bounds accepted when parsing a stored argon2id digest.
	argon2MaxMemoryKiB  = 1 << 20
	argon2MaxIterations = 16
)

var (
	ErrMismatch         = errors.New("cryptox: secret does not match digest")
	ErrMalformedDigest  = errors.New("cryptox: malformed digest")
	ErrUnknownAlgorithm = errors.New("cryptox: unknown hash algorithm")
)

// HasherConfig selects the algorithm and cost used for new digests.
// Verification always follows whatever is embedded in the stored digest.
type HasherConfig struct {
	Algorithm        Algorithm
	BcryptCost       int
	Argon2Iterations uint32
	Argon2MemoryKiB  uint32
	Pepper           string // appended to every secret before hashing
}

// Hasher produces salted one-way digests of passwords and refresh token
// secrets. It is immutable after construction and safe for concurrent use.
type Hasher struct {
	cfg HasherConfig

	dummyOnce sync.Once
	dummy     string
}

// NewHasher validates cfg and fills in defaults.
func NewHasher(cfg HasherConfig) (*Hasher, error) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgorithmBcrypt
	}

	switch cfg.Algorithm {
	case AlgorithmBcrypt:
		if cfg.BcryptCost == 0 {
			cfg.BcryptCost = DefaultBcryptCost
		}
		if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("cryptox: bcrypt cost %d outside [%d, %d]", cfg.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
		}
	case AlgorithmArgon2id:
		if cfg.Argon2Iterations == 0 {
			cfg.Argon2Iterations = DefaultArgon2Iterations
		}
		if cfg.Argon2MemoryKiB == 0 {
			cfg.Argon2MemoryKiB = DefaultArgon2MemoryKiB
		}
		if cfg.Argon2Iterations > argon2MaxIterations || cfg.Argon2MemoryKiB > argon2MaxMemoryKiB {
			return nil, fmt.Errorf("cryptox: argon2id parameters t=%d m=%d too large", cfg.Argon2Iterations, cfg.Argon2MemoryKiB)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, cfg.Algorithm)
	}

	return &Hasher{cfg: cfg}, nil
}

// Algorithm reports the scheme used for new digests.
func (h *Hasher) Algorithm() Algorithm { return h.cfg.Algorithm }

// Hash returns a digest of secret with a fresh random salt.
func (h *Hasher) Hash(secret string) (string, error) {
	switch h.cfg.Algorithm {
	case AlgorithmArgon2id:
		return h.hashArgon2id(secret)
	default:
		return h.hashBcrypt(secret)
	}
}

// Verify reports whether secret matches digest. Malformed or unknown
// digests are a mismatch.
func (h *Hasher) Verify(secret, digest string) bool {
	return h.Compare(secret, digest) == nil
}

// Compare is Verify with the reason for a mismatch.
func (h *Hasher) Compare(secret, digest string) error {
	switch {
	case strings.HasPrefix(digest, "$argon2id$"):
		return h.compareArgon2id(secret, digest)
	case strings.HasPrefix(digest, "$2a$"),
		strings.HasPrefix(digest, "$2b$"),
		strings.HasPrefix(digest, "$2y$"):
		return h.compareBcrypt(secret, digest)
	case digest == "":
		return ErrMalformedDigest
	default:
		return ErrUnknownAlgorithm
	}
}

// VerifyDummy burns the same work as a real verification. Callers use it
// when there is no stored digest to check, so a miss costs the same as a
// wrong secret.
func (h *Hasher) VerifyDummy(secret string) {
	h.dummyOnce.Do(func() {
		d, err := h.Hash(MustGenerateToken(TokenSize256))
		if err == nil {
			h.dummy = d
		}
	})
	_ = h.Verify(secret, h.dummy)
}

// bcrypt reads at most 72 bytes, so the peppered secret is reduced to a
// fixed-size fingerprint first.
func (h *Hasher) bcryptInput(secret string) []byte {
	return []byte(FingerprintToken(secret + h.cfg.Pepper))
}

func (h *Hasher) hashBcrypt(secret string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(h.bcryptInput(secret), h.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("cryptox: bcrypt: %w", err)
	}
	return string(digest), nil
}

func (h *Hasher) compareBcrypt(secret, digest string) error {
	err := bcrypt.CompareHashAndPassword([]byte(digest), h.bcryptInput(secret))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrMismatch
	default:
		return fmt.Errorf("%w: %v", ErrMalformedDigest, err)
	}
}

func (h *Hasher) hashArgon2id(secret string) (string, error) {
	salt := make([]byte, argon2SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := argon2.IDKey(
		[]byte(secret+h.cfg.Pepper),
		salt,
		h.cfg.Argon2Iterations,
		h.cfg.Argon2MemoryKiB,
		argon2Parallelism,
		argon2KeyLength,
	)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.cfg.Argon2MemoryKiB,
		h.cfg.Argon2Iterations,
		argon2Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// compareArgon2id parses $argon2id$v=19$m=X,t=Y,p=Z$salt$hash.
func (h *Hasher) compareArgon2id(secret, digest string) error {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return ErrMalformedDigest
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return fmt.Errorf("%w: wrong version", ErrMalformedDigest)
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("%w: parameters: %v", ErrMalformedDigest, err)
	}
	if mem == 0 || iters == 0 || par == 0 || mem > argon2MaxMemoryKiB || iters > argon2MaxIterations {
		return fmt.Errorf("%w: parameters out of range", ErrMalformedDigest)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return fmt.Errorf("%w: salt", ErrMalformedDigest)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 || len(expected) > 64 {
		return fmt.Errorf("%w: key", ErrMalformedDigest)
	}

	computed := argon2.IDKey(
		[]byte(secret+h.cfg.Pepper),
		salt,
		iters,
		mem,
		par,
		uint32(len(expected)), // #nosec G115 - bounded above
	)

	if subtle.ConstantTimeCompare(computed, expected) != 1 {
		return ErrMismatch
	}
	return nil
}
