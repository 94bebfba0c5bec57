package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/habithub/internal/domain/habit"
	"github.com/geocoder89/habithub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const habitColumns = `id, user_id, name, description, frequency, is_active, created_at, updated_at`

type HabitsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewHabitsRepo(pool *pgxpool.Pool, prom *observability.Prom) *HabitsRepo {
	return &HabitsRepo{pool: pool, prom: prom}
}

func (r *HabitsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanHabit(row pgx.Row) (h habit.Habit, err error) {
	var freq string
	err = row.Scan(&h.ID, &h.UserID, &h.Name, &h.Description, &freq, &h.IsActive, &h.CreatedAt, &h.UpdatedAt)
	h.Frequency = habit.Frequency(freq)
	return
}

func (r *HabitsRepo) Create(ctx context.Context, h habit.Habit) (habit.Habit, error) {
	err := r.observe("habits.create", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO habits (`+habitColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			h.ID, h.UserID, h.Name, h.Description, string(h.Frequency), h.IsActive, h.CreatedAt, h.UpdatedAt,
		)
		return e
	})

	if err != nil {
		return habit.Habit{}, err
	}
	return h, nil
}

func (r *HabitsRepo) GetByID(ctx context.Context, id string) (h habit.Habit, err error) {
	err = r.observe("habits.get_by_id", func() error {
		h, err = scanHabit(r.pool.QueryRow(ctx,
			`SELECT `+habitColumns+` FROM habits WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return habit.Habit{}, habit.ErrNotFound
		}
		return habit.Habit{}, err
	}
	return h, nil
}

// List builds the WHERE clause from the optional filters; the owner is
// always constrained.
func (r *HabitsRepo) List(ctx context.Context, ownerID string, filter habit.ListFilter) (habits []habit.Habit, err error) {
	conds := []string{"user_id = $1"}
	args := []interface{}{ownerID}
	argsPosition := 2

	if filter.IsActive != nil {
		conds = append(conds, fmt.Sprintf("is_active = $%d", argsPosition))
		args = append(args, *filter.IsActive)
		argsPosition++
	}

	if filter.Frequency != nil {
		conds = append(conds, fmt.Sprintf("frequency = $%d", argsPosition))
		args = append(args, string(*filter.Frequency))
		argsPosition++
	}

	if filter.Name != nil {
		conds = append(conds, fmt.Sprintf(`name ILIKE $%d ESCAPE '\'`, argsPosition))
		args = append(args, "%"+escapeLike(*filter.Name)+"%")
	}

	query := `SELECT ` + habitColumns + ` FROM habits WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY created_at DESC, id DESC`

	var rows pgx.Rows
	err = r.observe("habits.list", func() error {
		rows, err = r.pool.Query(ctx, query, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	habits = make([]habit.Habit, 0)
	for rows.Next() {
		h, e := scanHabit(rows)
		if e != nil {
			return nil, e
		}
		habits = append(habits, h)
	}

	if e := rows.Err(); e != nil {
		if r.prom != nil {
			r.prom.DbErrorsTotal.WithLabelValues("habits.list", "rows_err").Inc()
		}
		return nil, e
	}

	return habits, nil
}

func (r *HabitsRepo) Update(ctx context.Context, h habit.Habit) (out habit.Habit, err error) {
	err = r.observe("habits.update", func() error {
		out, err = scanHabit(r.pool.QueryRow(ctx,
			`UPDATE habits
			 SET name = $3, description = $4, frequency = $5, is_active = $6, updated_at = $7
			 WHERE id = $1 AND user_id = $2
			 RETURNING `+habitColumns,
			h.ID, h.UserID, h.Name, h.Description, string(h.Frequency), h.IsActive, h.UpdatedAt,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return habit.Habit{}, habit.ErrNotFound
		}
		return habit.Habit{}, err
	}
	return out, nil
}

func (r *HabitsRepo) Delete(ctx context.Context, id string) error {
	var affected int64
	err := r.observe("habits.delete", func() error {
		tag, e := r.pool.Exec(ctx, `DELETE FROM habits WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return e
	})

	if err != nil {
		return err
	}
	if affected == 0 {
		return habit.ErrNotFound
	}
	return nil
}

// escapeLike makes user input literal inside an ILIKE pattern.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
