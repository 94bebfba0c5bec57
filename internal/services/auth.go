// Package services holds the transport-agnostic core: registration and login
// (AuthService) and owner-scoped habit CRUD (HabitService).
package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/geocoder89/habithub/internal/apperr"
	"github.com/geocoder89/habithub/internal/domain/user"
	"github.com/geocoder89/habithub/internal/security"
	"github.com/go-playground/validator/v10"
)

var (
	ErrEmailAlreadyExists = apperr.New(apperr.KindConflict, "email_taken", "Email is already in use")
	ErrUserNotFound       = apperr.New(apperr.KindUnauthorized, "user_not_found", "User not found")
	ErrInvalidPassword    = apperr.New(apperr.KindUnauthorized, "invalid_password", "Invalid password")
)

const (
	MsgUserCreated  = "User created successfully"
	MsgLoginSuccess = "Login successful"
)

// UserDirectory owns user identity. Implementations normalize emails and
// report user.ErrEmailTaken when their uniqueness guarantee rejects a create.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (user.User, error)
	FindByEmailWithPassword(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, name, email, passwordHash string) (user.User, error)
}

type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Verify(ctx context.Context, plain, hash string) bool
}

type TokenIssuer interface {
	Issue(userID, email string) (string, error)
}

// AuthRecorder receives register/login outcomes for metrics.
type AuthRecorder interface {
	ObserveAuth(op, result string)
}

type AuthService struct {
	users    UserDirectory
	hasher   PasswordHasher
	tokens   TokenIssuer
	validate *validator.Validate
	log      *slog.Logger
	metrics  AuthRecorder
}

func NewAuthService(users UserDirectory, hasher PasswordHasher, tokens TokenIssuer, log *slog.Logger) *AuthService {
	if log == nil {
		log = slog.Default()
	}

	return &AuthService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		validate: validator.New(),
		log:      log,
	}
}

func (s *AuthService) WithMetrics(m AuthRecorder) *AuthService {
	s.metrics = m
	return s
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type RegisterResult struct {
	User    user.Public
	Message string
}

type LoginResult struct {
	Token   string
	User    user.Public
	Message string
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	res, err := s.register(ctx, in)
	s.record("register", err)
	return res, err
}

func (s *AuthService) register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	name := strings.TrimSpace(in.Name)
	email := user.NormalizeEmail(in.Email)

	if name == "" || email == "" || in.Password == "" {
		return RegisterResult{}, apperr.Validation("Name, email and password are required")
	}

	if n := utf8.RuneCountInString(name); n < user.NameMinLen {
		return RegisterResult{}, apperr.Validation("Name must be at least 3 characters")
	} else if n > user.NameMaxLen {
		return RegisterResult{}, apperr.Validation("Name must be at most 50 characters")
	}

	if len(in.Password) < user.PasswordMinLen {
		return RegisterResult{}, apperr.Validation("Password must be at least 6 characters")
	}

	if len(in.Password) > security.MaxPasswordBytes {
		return RegisterResult{}, apperr.Validation("Password must be at most 72 bytes")
	}

	if err := s.validate.Var(email, "email"); err != nil {
		return RegisterResult{}, apperr.Validation("Email must be a valid email address")
	}

	// best-effort pre-check; the directory's uniqueness guarantee is authoritative
	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return RegisterResult{}, ErrEmailAlreadyExists
	case !errors.Is(err, user.ErrNotFound):
		s.log.ErrorContext(ctx, "register lookup failed", "err", err)
		return RegisterResult{}, apperr.Internal("Could not create user", err)
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		s.log.ErrorContext(ctx, "password hash failed", "err", err)
		return RegisterResult{}, apperr.Internal("Could not create user", err)
	}

	u, err := s.users.Create(ctx, name, email, hash)
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return RegisterResult{}, ErrEmailAlreadyExists
		}
		s.log.ErrorContext(ctx, "create user failed", "err", err)
		return RegisterResult{}, apperr.Internal("Could not create user", err)
	}

	s.log.InfoContext(ctx, "user registered", "user_id", u.ID)

	return RegisterResult{User: u.Public(), Message: MsgUserCreated}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	res, err := s.login(ctx, email, password)
	s.record("login", err)
	return res, err
}

func (s *AuthService) login(ctx context.Context, email, password string) (LoginResult, error) {
	email = user.NormalizeEmail(email)

	if email == "" || password == "" {
		return LoginResult{}, apperr.Validation("Email and password are required")
	}

	u, err := s.users.FindByEmailWithPassword(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return LoginResult{}, ErrUserNotFound
		}
		s.log.ErrorContext(ctx, "login lookup failed", "err", err)
		return LoginResult{}, apperr.Internal("Could not log in", err)
	}

	if !s.hasher.Verify(ctx, password, u.PasswordHash) {
		return LoginResult{}, ErrInvalidPassword
	}

	token, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		s.log.ErrorContext(ctx, "issue token failed", "err", err)
		return LoginResult{}, apperr.Internal("Could not generate access token", err)
	}

	return LoginResult{Token: token, User: u.Public(), Message: MsgLoginSuccess}, nil
}

func (s *AuthService) record(op string, err error) {
	if s.metrics == nil {
		return
	}

	result := "ok"
	if err != nil {
		if e, ok := apperr.As(err); ok {
			result = e.Code
		} else {
			result = apperr.CodeInternal
		}
	}
	s.metrics.ObserveAuth(op, result)
}
