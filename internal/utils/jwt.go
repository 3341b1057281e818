package utils // package utils provides helpers for token issuing, verification and hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type markers embedded in every JWT this service issues.  An access
// token can never be replayed as a refresh token or vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// SignedToken is a serialized HS256 JWT together with its expiry.
type SignedToken struct {
	Token string
	Exp   time.Time
}

// TokenClaims is the decoded payload of a verified token.
type TokenClaims struct {
	UserID uint64
	Email  string
	Role   string
	Type   string
}

// NewAccessToken signs a short-lived access JWT.  The claims carry the
// user id, email and role so the authorization gate can be checked without
// an extra lookup, plus the "access" type marker and standard exp/iat.
func NewAccessToken(secret string, userID uint64, email, role string, ttlMin int) (SignedToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"role":    role,
		"type":    TokenTypeAccess,
		"exp":     exp.Unix(),
		"iat":     time.Now().UTC().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken signs a long-lived refresh JWT carrying only the user id
// and the "refresh" type marker.  The raw string goes back to the client;
// the server keeps HashToken(raw) alongside the expiry so a stolen
// database row cannot be replayed as a token.
func NewRefreshToken(secret string, userID uint64, ttlDays int) (SignedToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour)
	claims := jwt.MapClaims{
		"user_id": userID,
		"type":    TokenTypeRefresh,
		"exp":     exp.Unix(),
		"iat":     time.Now().UTC().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// VerifyToken parses and validates a token.  It returns nil on bad
// signature, wrong signing method, malformed payload or expiry; callers
// treat nil as "not authenticated" and never see the underlying reason.
func VerifyToken(secret, raw string) *TokenClaims {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return nil
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}

	out := &TokenClaims{}
	// Numeric JSON values decode as float64.
	if v, ok := claims["user_id"].(float64); ok {
		out.UserID = uint64(v)
	}
	if v, ok := claims["email"].(string); ok {
		out.Email = v
	}
	if v, ok := claims["role"].(string); ok {
		out.Role = v
	}
	if v, ok := claims["type"].(string); ok {
		out.Type = v
	}
	if out.UserID == 0 || out.Type == "" {
		return nil
	}
	return out
}

// HashToken returns the SHA-256 hex digest of a raw token.  Only this
// digest is persisted for refresh tokens.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
