package auth

import (
	"errors"
	"strings"

	"github.com/geocoder89/habithub/internal/apperr"
)

var (
	ErrMissingToken   = apperr.New(apperr.KindUnauthorized, "missing_token", "Access token not provided")
	ErrMalformedToken = apperr.New(apperr.KindUnauthorized, "malformed_token", "Use the format: Bearer <token>")
	ErrTokenExpired   = apperr.New(apperr.KindUnauthorized, "token_expired", "Access token expired, please log in again")
	ErrInvalidToken   = apperr.New(apperr.KindForbidden, "invalid_token", "Access token is invalid")
	ErrForbidden      = apperr.New(apperr.KindForbidden, "forbidden", "You do not have permission to access this resource")
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrMalformedToken
	}

	return parts[1], nil
}

// Authenticate resolves an Authorization header into verified claims.
func Authenticate(v TokenVerifier, header string) (*Claims, error) {
	raw, err := ParseBearer(header)
	if err != nil {
		return nil, err
	}

	claims, err := v.Verify(raw)
	if err != nil {
		if errors.Is(err, ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// CheckOwnership fails closed unless caller owns the resource. Callers must
// look the resource up first so a missing id reports not found.
func CheckOwnership(ownerID, callerID string) error {
	if ownerID == "" || callerID == "" || ownerID != callerID {
		return ErrForbidden
	}
	return nil
}
