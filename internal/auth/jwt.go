// Package auth signs and verifies the two token kinds the API issues:
// login tokens carrying the principal's identity and role, and exam
// tokens carrying the question-id snapshot of a qualification session.
//
// Both kinds are HS256 JWTs derived from one configured secret. The
// secret is scoped per token kind so a login token can never pass the
// exam verifier or vice versa, without changing the claim shapes on the
// wire.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the single error surfaced to callers of the parse
// functions. The wrapped cause (bad signature, expired, malformed) stays
// available for server-side logging via errors.Unwrap but is never
// exposed to clients.
var ErrInvalidToken = errors.New("invalid token")

// Scope labels for key derivation.
const (
	ScopeLogin = "login"
	ScopeExam  = "exam"
)

// ScopedSecret derives a signing key for one token kind from the shared
// configured secret.
func ScopedSecret(secret, scope string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(scope))
	return mac.Sum(nil)
}

type LoginClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the numeric user id stored in the subject claim.
func (c *LoginClaims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: non-numeric subject", ErrInvalidToken)
	}
	return id, nil
}

type ExamClaims struct {
	QuestionIDs []int64 `json:"qids"`
	jwt.RegisteredClaims
}

// NewLoginToken signs a login token for the given user. The expiry is
// always issuance time plus ttl.
func NewLoginToken(key []byte, userID int64, role string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := LoginClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// NewExamToken signs an exam token pinning the assigned question ids.
func NewExamToken(key []byte, questionIDs []int64, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := ExamClaims{
		QuestionIDs: questionIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// ParseLoginToken verifies a login token. Any failure (signature,
// expiry, malformed payload) collapses into ErrInvalidToken.
func ParseLoginToken(key []byte, tokenString string) (*LoginClaims, error) {
	claims := &LoginClaims{}
	if err := parse(key, tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseExamToken verifies an exam token. Same collapsing behavior as
// ParseLoginToken.
func ParseExamToken(key []byte, tokenString string) (*ExamClaims, error) {
	claims := &ExamClaims{}
	if err := parse(key, tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func parse(key []byte, tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
