package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultTTL = time.Hour

	// MinSecretLength is the shortest signing secret considered safe.
	MinSecretLength = 32
)

var (
	ErrExpired    = errors.New("token expired")
	ErrMalformed  = errors.New("token malformed")
	ErrWeakSecret = errors.New("jwt secret shorter than 32 characters")
)

// Claims is the identity carried by an access token.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CheckSecret reports a secret that is too short to sign tokens safely.
func CheckSecret(secret string) error {
	if len(secret) < MinSecretLength {
		return ErrWeakSecret
	}
	return nil
}

// Issue signs an HS256 token for the given subject.
func (m *Manager) Issue(userID, email string) (string, error) {
	now := m.now()

	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			Subject:   userID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks signature and expiry. It returns ErrExpired once now has
// reached exp and ErrMalformed for anything else that fails to validate.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256
		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformed
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid {
		return nil, ErrMalformed
	}

	if claims.UserID == "" || claims.UserID != claims.Subject {
		return nil, ErrMalformed
	}

	return claims, nil
}
