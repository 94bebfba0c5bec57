package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/habithub/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier struct {
	claims *Claims
	err    error
	got    string
}

func (f *fakeVerifier) Verify(token string) (*Claims, error) {
	f.got = token
	return f.claims, f.err
}

func TestParseBearer(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{name: "ok", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "lowercase_scheme", header: "bearer abc", want: "abc"},
		{name: "missing", header: "", wantErr: ErrMissingToken},
		{name: "blank", header: "   ", wantErr: ErrMissingToken},
		{name: "scheme_only", header: "Bearer", wantErr: ErrMalformedToken},
		{name: "scheme_and_space", header: "Bearer ", wantErr: ErrMalformedToken},
		{name: "wrong_scheme", header: "Basic abc", wantErr: ErrMalformedToken},
		{name: "no_scheme", header: "abc.def.ghi", wantErr: ErrMalformedToken},
		{name: "extra_parts", header: "Bearer a b", wantErr: ErrMalformedToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBearer(tt.header)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthenticate_MapsVerifierErrors(t *testing.T) {
	tests := []struct {
		name     string
		verr     error
		wantErr  error
		wantKind apperr.Kind
	}{
		{name: "expired", verr: ErrExpired, wantErr: ErrTokenExpired, wantKind: apperr.KindUnauthorized},
		{name: "malformed", verr: ErrMalformed, wantErr: ErrInvalidToken, wantKind: apperr.KindForbidden},
		{name: "unknown", verr: errors.New("boom"), wantErr: ErrInvalidToken, wantKind: apperr.KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Authenticate(&fakeVerifier{err: tt.verr}, "Bearer tok")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantKind, apperr.KindOf(err))
		})
	}
}

func TestAuthenticate_Success(t *testing.T) {
	v := &fakeVerifier{claims: &Claims{UserID: "u1", Email: "u1@x.com"}}

	claims, err := Authenticate(v, "Bearer tok-123")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", v.got)
	assert.Equal(t, "u1", claims.UserID)
}

func TestAuthenticate_WithRealManager(t *testing.T) {
	m := NewManager(testSecret, time.Hour)

	tok, err := m.Issue("u1", "u1@x.com")
	require.NoError(t, err)

	claims, err := Authenticate(m, "Bearer "+tok)
	require.NoError(t, err)
	assert.Equal(t, "u1@x.com", claims.Email)

	_, err = Authenticate(m, "Bearer "+tok+"garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCheckOwnership(t *testing.T) {
	assert.NoError(t, CheckOwnership("u1", "u1"))
	assert.ErrorIs(t, CheckOwnership("u1", "u2"), ErrForbidden)
	assert.ErrorIs(t, CheckOwnership("", ""), ErrForbidden)
	assert.ErrorIs(t, CheckOwnership("u1", ""), ErrForbidden)
}
