// Package auth provides token issuance/verification and password hashing
// helpers. Tokens are stateless HS256 JWTs; validity is a pure function of
// the signing secret and the token itself, so no server-side token state is
// kept anywhere.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type values carried in the "type" claim. Verification requires the
// claim to match the expected use so a refresh token can never be replayed
// as an access token or vice versa.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// ErrInvalidToken is the single failure returned for every verification
// problem: bad signature, wrong token type, expiry, malformed claims. The
// message is deliberately undifferentiated so callers cannot distinguish
// "expired" from "tampered".
var ErrInvalidToken = errors.New("could not validate credentials")

// Token is a signed JWT string together with its expiry.
type Token struct {
	Value string    // the serialized JWT
	Exp   time.Time // UTC expiration time
}

// Claims is the decoded payload of a verified token.
type Claims struct {
	Subject   string    // "sub": the username
	TokenType string    // "type": access or refresh
	ExpiresAt time.Time // "exp"
}

// NewAccessToken builds and signs a short-lived HS256 access token for the
// given username. The JWT carries sub, type, exp and iat claims.
func NewAccessToken(secret, username string, ttl time.Duration) (Token, error) {
	return newToken(secret, username, TypeAccess, ttl)
}

// NewRefreshToken builds and signs a long-lived HS256 refresh token for the
// given username. Refresh tokens are structurally identical to access
// tokens except for the type claim and TTL.
func NewRefreshToken(secret, username string, ttl time.Duration) (Token, error) {
	return newToken(secret, username, TypeRefresh, ttl)
}

func newToken(secret, username, tokenType string, ttl time.Duration) (Token, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  username,
		"type": tokenType,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, Exp: exp}, nil
}

// VerifyToken parses and validates a raw JWT against the secret and the
// expected token type. It returns the decoded claims or ErrInvalidToken.
// The jwt library already rejects expired tokens during Parse; the type and
// subject checks happen here.
func VerifyToken(secret, raw, expectedType string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject any signing method other than HMAC before touching the key.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	sub, _ := mc["sub"].(string)
	typ, _ := mc["type"].(string)
	if sub == "" || typ != expectedType {
		return Claims{}, ErrInvalidToken
	}
	var exp time.Time
	if v, ok := mc["exp"].(float64); ok {
		exp = time.Unix(int64(v), 0).UTC()
	}
	return Claims{Subject: sub, TokenType: typ, ExpiresAt: exp}, nil
}
