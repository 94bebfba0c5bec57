package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/habithub/internal/actorctx"
	"github.com/geocoder89/habithub/internal/apperr"
	"github.com/geocoder89/habithub/internal/config"
	"github.com/geocoder89/habithub/internal/services"
	"github.com/gin-gonic/gin"
)

const authTimeout = 3 * time.Second

var errInvalidCredentials = apperr.New(apperr.KindUnauthorized, "invalid_credentials", "Invalid email or password")

type Authenticator interface {
	Register(ctx context.Context, in services.RegisterInput) (services.RegisterResult, error)
	Login(ctx context.Context, email, password string) (services.LoginResult, error)
}

type AuthHandler struct {
	auth Authenticator
	now  func() time.Time
}

func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{
		auth: auth,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	res, err := h.auth.Register(cctx, services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})

	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"id":        res.User.ID,
		"name":      res.User.Name,
		"email":     res.User.Email,
		"createdAt": res.User.CreatedAt,
		"message":   res.Message,
	})
}

// Login never reveals whether the email or the password was wrong.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	res, err := h.auth.Login(cctx, req.Email, req.Password)

	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) || errors.Is(err, services.ErrInvalidPassword) {
			RespondAppError(ctx, errInvalidCredentials)
			return
		}
		RespondAppError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"token":   res.Token,
		"user":    res.User,
		"message": res.Message,
	})
}

func (h *AuthHandler) Protected(ctx *gin.Context) {
	h.whoami(ctx, "Access granted")
}

func (h *AuthHandler) Profile(ctx *gin.Context) {
	h.whoami(ctx, "User profile")
}

func (h *AuthHandler) whoami(ctx *gin.Context, message string) {
	reqCtx := ctx.Request.Context()

	userID, ok := actorctx.UserIDFrom(reqCtx)
	if !ok {
		RespondAppError(ctx, services.ErrUnauthenticated)
		return
	}
	email, _ := actorctx.EmailFrom(reqCtx)

	ctx.JSON(http.StatusOK, gin.H{
		"message": message,
		"user": gin.H{
			"id":    userID,
			"email": email,
		},
		"timestamp": h.now(),
	})
}

var _ Authenticator = (*services.AuthService)(nil)
