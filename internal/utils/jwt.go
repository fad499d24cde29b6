package utils // package utils provides helpers for token creation and verification

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// Parse-failure reasons recorded by the authentication middleware and turned
// into user-facing messages by the enforcement middleware.  The names mirror
// the error names the website and mini-program frontends already match on,
// so they are part of the wire contract and must not be renamed.
const (
	ReasonNoToken       = "NoToken"            // no credential supplied at all
	ReasonInvalidFormat = "InvalidTokenFormat" // not a three-segment JWT
	ReasonExpired       = "TokenExpiredError"  // signature fine, past expiry
	ReasonInvalid       = "JsonWebTokenError"  // bad signature, wrong secret, malformed
	ReasonInvalidToken  = "InvalidToken"       // structurally valid but unusable payload
	ReasonParseError    = "ParseError"         // unexpected failure inside the parse phase
	ReasonForbidden     = "Forbidden"          // admin subject could not be resolved to an admin account
)

// BusinessClaims is the payload of a business-namespace (lpwx) token.  The
// role travels inside the token and is trusted as-is; these tokens are issued
// to mini-program users after WeChat login.  UserID 0 is a real identity: it
// is the long-lived website pseudo-user that may read the public case list.
type BusinessClaims struct {
	UserID uint64
	Role   string
}

// AdminClaims is the payload of an admin-namespace (dc) token.  It carries
// only the subject id; the role is deliberately absent and is re-read from
// the users table on every request so a demotion takes effect without
// re-issuing tokens.
type AdminClaims struct {
	UserID uint64
}

// SignBusinessToken builds and signs an HS256 JWT for a mini-program user.
func SignBusinessToken(secret string, userID uint64, role string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"userId": userID,
		"role":   role,
		"exp":    now.Add(ttl).Unix(),
		"iat":    now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// SignAdminToken builds and signs an admin token in the short claim form:
// only "u" is stored.  Verification also accepts the older canonical
// "userId" field, see VerifyAdminToken.
func SignAdminToken(secret string, userID uint64, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"u":   userID,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// errMissingSubject marks a verified token whose payload carries no subject.
var errMissingSubject = errors.New("token payload missing userId/u")

// VerifyBusinessToken verifies a token against the business secret and
// returns its claims.  A token signed with any other secret fails closed.
func VerifyBusinessToken(secret, token string) (BusinessClaims, error) {
	claims, err := verifyHS256(secret, token)
	if err != nil {
		return BusinessClaims{}, err
	}
	id, ok := claimUint64(claims["userId"])
	if !ok {
		return BusinessClaims{}, errMissingSubject
	}
	role, _ := claims["role"].(string)
	return BusinessClaims{UserID: id, Role: role}, nil
}

// VerifyAdminToken verifies a token against the admin secret and extracts the
// subject id.  Both claim spellings are supported: the canonical "userId" and
// the legacy one-letter "u".  The canonical field wins when both are present,
// and an id of 0 is a legitimate subject, not absence.
func VerifyAdminToken(secret, token string) (AdminClaims, error) {
	claims, err := verifyHS256(secret, token)
	if err != nil {
		return AdminClaims{}, err
	}
	if id, ok := claimUint64(claims["userId"]); ok {
		return AdminClaims{UserID: id}, nil
	}
	if id, ok := claimUint64(claims["u"]); ok {
		return AdminClaims{UserID: id}, nil
	}
	return AdminClaims{}, errMissingSubject
}

// verifyHS256 parses and validates a token, enforcing the HMAC signing
// method so a crafted token cannot downgrade the algorithm.
func verifyHS256(secret, token string) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// claimUint64 reads a numeric claim value.  JSON numbers decode as float64;
// values written by this codec may still be uint64 before a round-trip.
// The ok result distinguishes "present, value 0" from "absent".
func claimUint64(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case uint64:
		return n, true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	}
	return 0, false
}

// TokenErrorReason maps a verification error to the named reason recorded in
// the request auth state.  Expiry is reported distinctly so the client can
// prompt a re-login instead of showing a generic failure.
func TokenErrorReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, errMissingSubject):
		return ReasonInvalidToken
	default:
		return ReasonInvalid
	}
}
