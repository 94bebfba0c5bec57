package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/habithub/internal/apperr"
	"github.com/geocoder89/habithub/internal/auth"
	"github.com/geocoder89/habithub/internal/cache"
	"github.com/geocoder89/habithub/internal/domain/habit"
	"github.com/geocoder89/habithub/internal/repo/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

type fakeCacheRecorder struct {
	hits, misses int
}

func (f *fakeCacheRecorder) ObserveCache(hit bool) {
	if hit {
		f.hits++
	} else {
		f.misses++
	}
}

type habitFixture struct {
	svc   *HabitService
	repo  *memory.HabitsRepo
	clock *time.Time
	rec   *fakeCacheRecorder
}

func newHabitFixture() habitFixture {
	repo := memory.NewHabitsRepo()
	rec := &fakeCacheRecorder{}
	svc := NewHabitService(repo, cache.New(time.Minute), quietLogger()).WithMetrics(rec)

	clock := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	return habitFixture{svc: svc, repo: repo, clock: &clock, rec: rec}
}

func TestCreate_Defaults(t *testing.T) {
	fx := newHabitFixture()

	h, err := fx.svc.Create(context.Background(), "u1", habit.CreateHabitRequest{Name: "  Read  "})
	require.NoError(t, err)

	assert.Equal(t, "Read", h.Name)
	assert.Equal(t, "", h.Description)
	assert.Equal(t, habit.FrequencyDaily, h.Frequency)
	assert.True(t, h.IsActive)
	assert.Equal(t, "u1", h.UserID)
	assert.True(t, h.CreatedAt.Equal(h.UpdatedAt))
	_, perr := uuid.Parse(h.ID)
	assert.NoError(t, perr)
}

func TestCreate_Validation(t *testing.T) {
	fx := newHabitFixture()
	ctx := context.Background()

	tests := []struct {
		name string
		req  habit.CreateHabitRequest
	}{
		{name: "short_name", req: habit.CreateHabitRequest{Name: "R"}},
		{name: "blank_name", req: habit.CreateHabitRequest{Name: "    "}},
		{name: "long_name", req: habit.CreateHabitRequest{Name: strings.Repeat("n", 101)}},
		{name: "long_description", req: habit.CreateHabitRequest{Name: "Read", Description: ptr(strings.Repeat("d", 501))}},
		{name: "bad_frequency", req: habit.CreateHabitRequest{Name: "Read", Frequency: ptr("hourly")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.svc.Create(ctx, "u1", tt.req)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	_, err := fx.svc.Create(ctx, "", habit.CreateHabitRequest{Name: "Read"})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCreate_FrequencyCaseInsensitive(t *testing.T) {
	fx := newHabitFixture()

	h, err := fx.svc.Create(context.Background(), "u1", habit.CreateHabitRequest{Name: "Read", Frequency: ptr("WEEKLY")})
	require.NoError(t, err)
	assert.Equal(t, habit.FrequencyWeekly, h.Frequency)
}

func TestOwnership_NotFoundBeforeForbidden(t *testing.T) {
	fx := newHabitFixture()
	ctx := context.Background()

	h, err := fx.svc.Create(ctx, "owner", habit.CreateHabitRequest{Name: "Read"})
	require.NoError(t, err)

	missing := uuid.NewString()

	_, err = fx.svc.Get(ctx, "intruder", h.ID)
	assert.ErrorIs(t, err, auth.ErrForbidden)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = fx.svc.Get(ctx, "intruder", missing)
	assert.ErrorIs(t, err, ErrHabitNotFound)

	_, err = fx.svc.Get(ctx, "owner", "not-a-uuid")
	assert.ErrorIs(t, err, ErrHabitNotFound)

	_, err = fx.svc.Update(ctx, "intruder", h.ID, habit.UpdateHabitRequest{Name: "Hacked"})
	assert.ErrorIs(t, err, auth.ErrForbidden)

	_, err = fx.svc.Patch(ctx, "intruder", h.ID, habit.PatchHabitRequest{IsActive: ptr(false)})
	assert.ErrorIs(t, err, auth.ErrForbidden)

	assert.ErrorIs(t, fx.svc.Delete(ctx, "intruder", h.ID), auth.ErrForbidden)
	assert.ErrorIs(t, fx.svc.Delete(ctx, "intruder", missing), ErrHabitNotFound)

	// the forbidden attempts changed nothing
	got, err := fx.svc.Get(ctx, "owner", h.ID)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestList_OwnerScopedNewestFirst(t *testing.T) {
	fx := newHabitFixture()
	ctx := context.Background()

	first, err := fx.svc.Create(ctx, "u1", habit.CreateHabitRequest{Name: "Read"})
	require.NoError(t, err)
	second, err := fx.svc.Create(ctx, "u1", habit.CreateHabitRequest{Name: "Run", Frequency: ptr("weekly"), IsActive: ptr(false)})
	require.NoError(t, err)
	_, err = fx.svc.Create(ctx, "u2", habit.CreateHabitRequest{Name: "Swim"})
	require.NoError(t, err)

	all, err := fx.svc.List(ctx, "u1", habit.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)

	weekly := habit.FrequencyWeekly
	filtered, err := fx.svc.List(ctx, "u1", habit.ListFilter{Frequency: &weekly})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, second.ID, filtered[0].ID)

	none, err := fx.svc.List(ctx, "u3", habit.ListFilter{})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestList_CacheInvalidatedOnWrite(t *testing.T) {
	fx := newHabitFixture()
	ctx := context.Background()

	_, err := fx.svc.Create(ctx, "u1", habit.CreateHabitRequest{Name: "Read"})
	require.NoError(t, err)

	_, err = fx.svc.List(ctx, "u1", habit.ListFilter{})
	require.NoError(t, err)
	cached, err := fx.svc.List(ctx, "u1", habit.ListFilter{})
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, 1, fx.rec.hits)
	assert.Equal(t, 1, fx.rec.misses)

	h, err := fx.svc.Create(ctx, "u1", habit.CreateHabitRequest{Name: "Run"})
	require.NoError(t, err)

	fresh, err := fx.svc.List(ctx, "u1", habit.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
	assert.Equal(t, 2, fx.rec.misses)

	require.NoError(t, fx.svc.Delete(ctx, "u1", h.ID))
	after, err := fx.svc.List(ctx, "u1", habit.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, after, 1)
}

// pausingListRepo parks the first List call after it has read storage, so a
// write can complete before the read result reaches the cache.
type pausingListRepo struct {
	*memory.HabitsRepo
	read    chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *pausingListRepo) List(ctx context.Context, ownerID string, filter habit.ListFilter) ([]habit.Habit, error) {
	out, err := r.HabitsRepo.List(ctx, ownerID, filter)

	paused := false
	r.once.Do(func() { paused = true })
	if paused {
		close(r.read)
		<-r.release
	}

	return out, err
}

func TestList_ReadOverlappingWriteDoesNotCacheStaleList(t *testing.T) {
	repo := &pausingListRepo{
		HabitsRepo: memory.NewHabitsRepo(),
		read:       make(chan struct{}),
		release:    make(chan struct{}),
	}
	svc := NewHabitService(repo, cache.New(time.Minute), quietLogger())
	ctx := context.Background()

	done := make(chan []habit.Habit, 1)
	go func() {
		out, err := svc.List(ctx, "u1", habit.ListFilter{})
		assert.NoError(t, err)
		done <- out
	}()

	<-repo.read
	_, err := svc.Create(ctx, "u1", habit.CreateHabitRequest{Name: "Read"})
	require.NoError(t, err)
	close(repo.release)

	require.Empty(t, <-done)

	got, err := svc.List(ctx, "u1", habit.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPatch_LeavesOtherFieldsUntouched(t *testing.T) {
	fx := newHabitFixture()
	ctx := context.Background()

	h, err := fx.svc.Create(ctx, "u1", habit.CreateHabitRequest{
		Name:        "Read",
		Description: ptr("20 pages"),
		Frequency:   ptr("weekly"),
	})
	require.NoError(t, err)

	got, err := fx.svc.Patch(ctx, "u1", h.ID, habit.PatchHabitRequest{IsActive: ptr(false)})
	require.NoError(t, err)

	assert.False(t, got.IsActive)
	assert.Equal(t, "Read", got.Name)
	assert.Equal(t, "20 pages", got.Description)
	assert.Equal(t, habit.FrequencyWeekly, got.Frequency)
	assert.True(t, got.CreatedAt.Equal(h.CreatedAt))
	assert.True(t, got.UpdatedAt.After(h.UpdatedAt))
}

func TestUpdate_RequiresNameAndKeepsOmittedFields(t *testing.T) {
	fx := newHabitFixture()
	ctx := context.Background()

	h, err := fx.svc.Create(ctx, "u1", habit.CreateHabitRequest{Name: "Read", Description: ptr("20 pages")})
	require.NoError(t, err)

	_, err = fx.svc.Update(ctx, "u1", h.ID, habit.UpdateHabitRequest{Name: ""})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	got, err := fx.svc.Update(ctx, "u1", h.ID, habit.UpdateHabitRequest{Name: "Read more", Frequency: ptr("monthly")})
	require.NoError(t, err)
	assert.Equal(t, "Read more", got.Name)
	assert.Equal(t, "20 pages", got.Description)
	assert.Equal(t, habit.FrequencyMonthly, got.Frequency)
	assert.True(t, got.IsActive)

	_, err = fx.svc.Update(ctx, "u1", uuid.NewString(), habit.UpdateHabitRequest{Name: "Ghost"})
	assert.ErrorIs(t, err, ErrHabitNotFound)
}

func TestDelete_ThenNotFound(t *testing.T) {
	fx := newHabitFixture()
	ctx := context.Background()

	h, err := fx.svc.Create(ctx, "u1", habit.CreateHabitRequest{Name: "Read"})
	require.NoError(t, err)

	require.NoError(t, fx.svc.Delete(ctx, "u1", h.ID))

	_, err = fx.svc.Get(ctx, "u1", h.ID)
	assert.ErrorIs(t, err, ErrHabitNotFound)
	assert.ErrorIs(t, fx.svc.Delete(ctx, "u1", h.ID), ErrHabitNotFound)
}

type brokenRepo struct {
	*memory.HabitsRepo
}

func (brokenRepo) GetByID(context.Context, string) (habit.Habit, error) {
	return habit.Habit{}, errors.New("connection reset")
}

func TestGet_StorageErrorIsInternal(t *testing.T) {
	svc := NewHabitService(brokenRepo{memory.NewHabitsRepo()}, nil, quietLogger())

	_, err := svc.Get(context.Background(), "u1", uuid.NewString())
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}
