package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/habithub/internal/domain/user"
	"github.com/geocoder89/habithub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const usersEmailConstraint = "users_email_uniq"

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// FindByEmail never selects the password hash.
func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (u user.User, err error) {
	err = r.observe("users.find_by_email", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, name, email, created_at, updated_at
			 FROM users
			 WHERE email = $1`,
			user.NormalizeEmail(email),
		).Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) FindByEmailWithPassword(ctx context.Context, email string) (u user.User, err error) {
	err = r.observe("users.find_by_email_with_password", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, name, email, password_hash, created_at, updated_at
			 FROM users
			 WHERE email = $1`,
			user.NormalizeEmail(email),
		).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

// Create relies on users_email_uniq to settle concurrent registrations.
func (r *UsersRepo) Create(ctx context.Context, name, email, passwordHash string) (user.User, error) {
	now := time.Now().UTC()
	u := user.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        user.NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.observe("users.create", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
		)
		return e
	})

	if err != nil {
		if isUniqueViolation(err, usersEmailConstraint) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return u.WithoutPassword(), nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" &&
		(constraint == "" || pgErr.ConstraintName == constraint)
}
