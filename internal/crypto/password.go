// Package crypto provides one-way password hashing with argon2id.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters, encoded into each digest so they can evolve
// without invalidating stored hashes.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// ErrMalformedDigest reports a stored digest that cannot be parsed. It is
// distinct from a password mismatch: callers must treat it as an internal
// error, not as "wrong password".
var ErrMalformedDigest = errors.New("malformed password digest")

// Hashing is memory-hard on purpose; hashSlots bounds how many run at
// once so a burst of logins cannot starve unrelated requests.
var hashSlots = make(chan struct{}, runtime.GOMAXPROCS(0))

// HashPassword derives an argon2id digest with a fresh random salt, so
// two identical passwords never produce the same digest. The result is a
// PHC-formatted string.
func HashPassword(password string) (string, error) {
	hashSlots <- struct{}{}
	defer func() { <-hashSlots }()

	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword checks a plaintext password against a stored digest.
// A wrong password returns (false, nil); a digest that cannot be parsed
// returns an error wrapping ErrMalformedDigest.
func VerifyPassword(password, digest string) (bool, error) {
	memory, timeCost, threads, salt, key, err := decodeDigest(digest)
	if err != nil {
		return false, err
	}

	hashSlots <- struct{}{}
	defer func() { <-hashSlots }()

	candidate := argon2.IDKey([]byte(password), salt, timeCost, memory, threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(candidate, key) == 1, nil
}

func decodeDigest(digest string) (memory, timeCost uint32, threads uint8, salt, key []byte, err error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return 0, 0, 0, nil, nil, ErrMalformedDigest
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return 0, 0, 0, nil, nil, ErrMalformedDigest
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &threads); err != nil {
		return 0, 0, 0, nil, nil, ErrMalformedDigest
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: bad salt encoding", ErrMalformedDigest)
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: bad key encoding", ErrMalformedDigest)
	}
	if len(key) == 0 {
		return 0, 0, 0, nil, nil, ErrMalformedDigest
	}
	return memory, timeCost, threads, salt, key, nil
}
