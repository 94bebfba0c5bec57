package middlewares

import (
	"github.com/geocoder89/habithub/internal/actorctx"
	"github.com/geocoder89/habithub/internal/auth"
	"github.com/geocoder89/habithub/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type AuthMiddleware struct {
	jwt auth.TokenVerifier
}

func NewAuthMiddleware(jwt auth.TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// RequireAuth admits a request only with a valid bearer token. Missing,
// malformed and expired tokens get 401; a token that fails verification
// gets 403.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := auth.Authenticate(m.jwt, c.GetHeader("Authorization"))
		if err != nil {
			handlers.RespondAppError(c, err)
			c.Abort()
			return
		}

		// Stash useful bits of identity on the context
		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxEmail, claims.Email)

		rc := actorctx.WithUserID(c.Request.Context(), claims.UserID)
		rc = actorctx.WithEmail(rc, claims.Email)
		c.Request = c.Request.WithContext(rc)

		c.Next()
	}
}

// Optional helpers so handlers don’t need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
