package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/geocoder89/habithub/internal/actorctx"
	"github.com/geocoder89/habithub/internal/apperr"
	"github.com/geocoder89/habithub/internal/auth"
	"github.com/geocoder89/habithub/internal/domain/habit"
	"github.com/geocoder89/habithub/internal/utils"
)

var (
	ErrHabitNotFound   = apperr.New(apperr.KindNotFound, "habit_not_found", "Habit not found")
	ErrUnauthenticated = apperr.New(apperr.KindUnauthorized, "unauthenticated", "User not authenticated")
)

const (
	MsgHabitCreated = "Habit created successfully"
	MsgHabitUpdated = "Habit updated successfully"
	MsgHabitDeleted = "Habit deleted successfully"
	MsgHabitsListed = "Habits listed successfully"
)

// HabitRepository is plain storage; ownership is enforced by HabitService.
type HabitRepository interface {
	Create(ctx context.Context, h habit.Habit) (habit.Habit, error)
	GetByID(ctx context.Context, id string) (habit.Habit, error)
	List(ctx context.Context, ownerID string, filter habit.ListFilter) ([]habit.Habit, error)
	Update(ctx context.Context, h habit.Habit) (habit.Habit, error)
	Delete(ctx context.Context, id string) error
}

type ListCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte)
	Delete(ctx context.Context, key string)
}

type CacheRecorder interface {
	ObserveCache(hit bool)
}

type HabitService struct {
	repo    HabitRepository
	cache   ListCache
	log     *slog.Logger
	now     func() time.Time
	metrics CacheRecorder

	// gens counts invalidations per owner. A list read only fills the cache
	// when no write for that owner finished while it was reading.
	genMu sync.Mutex
	gens  map[string]uint64
}

// NewHabitService wires the store; cache may be nil.
func NewHabitService(repo HabitRepository, cache ListCache, log *slog.Logger) *HabitService {
	if log == nil {
		log = slog.Default()
	}

	return &HabitService{
		repo:  repo,
		cache: cache,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
		gens:  make(map[string]uint64),
	}
}

func (s *HabitService) WithMetrics(m CacheRecorder) *HabitService {
	s.metrics = m
	return s
}

func (s *HabitService) Create(ctx context.Context, ownerID string, req habit.CreateHabitRequest) (habit.Habit, error) {
	if ownerID == "" {
		return habit.Habit{}, ErrUnauthenticated
	}

	name, err := validateName(req.Name)
	if err != nil {
		return habit.Habit{}, err
	}

	description := ""
	if req.Description != nil {
		if description, err = validateDescription(*req.Description); err != nil {
			return habit.Habit{}, err
		}
	}

	frequency := habit.FrequencyDaily
	if req.Frequency != nil {
		if frequency, err = parseFrequency(*req.Frequency); err != nil {
			return habit.Habit{}, err
		}
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	h := habit.New(ownerID, name, description, frequency, isActive, s.now())

	created, err := s.repo.Create(ctx, h)
	if err != nil {
		s.log.ErrorContext(ctx, "create habit failed", "user_id", ownerID, "err", err)
		return habit.Habit{}, apperr.Internal("Could not create habit", err)
	}

	s.invalidate(ctx, ownerID)
	s.log.InfoContext(ctx, "habit created", "user_id", ownerID, "habit_id", created.ID)

	return created, nil
}

// List returns the owner's habits, newest first. Only the unfiltered list is
// served from cache.
func (s *HabitService) List(ctx context.Context, ownerID string, filter habit.ListFilter) ([]habit.Habit, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}

	cacheable := s.cache != nil && filter.IsZero()
	key := utils.BuildHabitsListCacheKey(ownerID)

	var gen uint64
	if cacheable {
		gen = s.generation(ownerID)

		if raw, ok := s.cache.Get(ctx, key); ok {
			var cached []habit.Habit
			if err := json.Unmarshal(raw, &cached); err == nil {
				s.observeCache(true)
				return cached, nil
			}
			s.cache.Delete(ctx, key)
		}
		s.observeCache(false)
	}

	habits, err := s.repo.List(ctx, ownerID, filter)
	if err != nil {
		s.log.ErrorContext(ctx, "list habits failed", "user_id", ownerID, "err", err)
		return nil, apperr.Internal("Could not list habits", err)
	}

	if habits == nil {
		habits = []habit.Habit{}
	}

	if cacheable {
		if raw, err := json.Marshal(habits); err == nil {
			s.fill(ctx, ownerID, key, gen, raw)
		}
	}

	return habits, nil
}

func (s *HabitService) Get(ctx context.Context, ownerID, id string) (habit.Habit, error) {
	return s.loadOwned(ctx, ownerID, id, "get")
}

// Update replaces the habit (PUT). Name is required; omitted optional fields
// keep their stored values.
func (s *HabitService) Update(ctx context.Context, ownerID, id string, req habit.UpdateHabitRequest) (habit.Habit, error) {
	name, err := validateName(req.Name)
	if err != nil {
		return habit.Habit{}, err
	}

	patch := habit.PatchHabitRequest{
		Name:        &name,
		Description: req.Description,
		Frequency:   req.Frequency,
		IsActive:    req.IsActive,
	}

	return s.apply(ctx, ownerID, id, patch, "update")
}

// Patch changes only the supplied fields.
func (s *HabitService) Patch(ctx context.Context, ownerID, id string, req habit.PatchHabitRequest) (habit.Habit, error) {
	return s.apply(ctx, ownerID, id, req, "patch")
}

func (s *HabitService) Delete(ctx context.Context, ownerID, id string) error {
	h, err := s.loadOwned(ctx, ownerID, id, "delete")
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, h.ID); err != nil {
		if errors.Is(err, habit.ErrNotFound) {
			return ErrHabitNotFound
		}
		s.log.ErrorContext(ctx, "delete habit failed", "habit_id", h.ID, "err", err)
		return apperr.Internal("Could not delete habit", err)
	}

	s.invalidate(ctx, ownerID)
	s.log.InfoContext(ctx, "habit deleted", "user_id", ownerID, "habit_id", h.ID)

	return nil
}

func (s *HabitService) apply(ctx context.Context, ownerID, id string, req habit.PatchHabitRequest, op string) (habit.Habit, error) {
	// input is validated before any lookup
	var (
		name, description *string
		frequency         *habit.Frequency
	)

	if req.Name != nil {
		n, err := validateName(*req.Name)
		if err != nil {
			return habit.Habit{}, err
		}
		name = &n
	}

	if req.Description != nil {
		d, err := validateDescription(*req.Description)
		if err != nil {
			return habit.Habit{}, err
		}
		description = &d
	}

	if req.Frequency != nil {
		f, err := parseFrequency(*req.Frequency)
		if err != nil {
			return habit.Habit{}, err
		}
		frequency = &f
	}

	h, err := s.loadOwned(ctx, ownerID, id, op)
	if err != nil {
		return habit.Habit{}, err
	}

	if name != nil {
		h.Name = *name
	}
	if description != nil {
		h.Description = *description
	}
	if frequency != nil {
		h.Frequency = *frequency
	}
	if req.IsActive != nil {
		h.IsActive = *req.IsActive
	}
	h.UpdatedAt = s.now()

	updated, err := s.repo.Update(ctx, h)
	if err != nil {
		if errors.Is(err, habit.ErrNotFound) {
			return habit.Habit{}, ErrHabitNotFound
		}
		s.log.ErrorContext(ctx, "update habit failed", "op", op, "habit_id", h.ID, "err", err)
		return habit.Habit{}, apperr.Internal("Could not update habit", err)
	}

	s.invalidate(ctx, ownerID)
	s.log.InfoContext(ctx, "habit updated", "op", op, "user_id", ownerID, "habit_id", h.ID)

	return updated, nil
}

// loadOwned checks existence strictly before ownership, so a request for a
// missing id reports not found to every caller.
func (s *HabitService) loadOwned(ctx context.Context, ownerID, id, op string) (habit.Habit, error) {
	if ownerID == "" {
		return habit.Habit{}, ErrUnauthenticated
	}

	// nothing can be stored under a non-uuid id
	if !utils.IsUUID(id) {
		return habit.Habit{}, ErrHabitNotFound
	}

	h, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, habit.ErrNotFound) {
			return habit.Habit{}, ErrHabitNotFound
		}
		s.log.ErrorContext(ctx, "get habit failed", "op", op, "habit_id", id, "err", err)
		return habit.Habit{}, apperr.Internal("Could not fetch habit", err)
	}

	if err := auth.CheckOwnership(h.UserID, ownerID); err != nil {
		requestID, _ := actorctx.RequestIDFrom(ctx)
		s.log.WarnContext(ctx, "habit access denied",
			"op", op,
			"user_id", ownerID,
			"habit_id", id,
			"request_id", requestID,
		)
		return habit.Habit{}, err
	}

	return h, nil
}

func (s *HabitService) generation(ownerID string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[ownerID]
}

// fill stores a list read under generation gen. The check and the Set share
// the lock with invalidate, so a stale read can never land after a delete.
func (s *HabitService) fill(ctx context.Context, ownerID, key string, gen uint64, raw []byte) {
	s.genMu.Lock()
	defer s.genMu.Unlock()

	if s.gens[ownerID] != gen {
		return
	}
	s.cache.Set(ctx, key, raw)
}

func (s *HabitService) invalidate(ctx context.Context, ownerID string) {
	if s.cache == nil {
		return
	}

	s.genMu.Lock()
	defer s.genMu.Unlock()

	s.gens[ownerID]++
	s.cache.Delete(ctx, utils.BuildHabitsListCacheKey(ownerID))
}

func (s *HabitService) observeCache(hit bool) {
	if s.metrics != nil {
		s.metrics.ObserveCache(hit)
	}
}

func validateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(name)

	if n < habit.NameMinLen {
		return "", apperr.Validation("Name must be at least 2 characters")
	}
	if n > habit.NameMaxLen {
		return "", apperr.Validation("Name must be at most 100 characters")
	}
	return name, nil
}

func validateDescription(raw string) (string, error) {
	d := strings.TrimSpace(raw)
	if utf8.RuneCountInString(d) > habit.DescriptionMaxLen {
		return "", apperr.Validation("Description must be at most 500 characters")
	}
	return d, nil
}

func parseFrequency(raw string) (habit.Frequency, error) {
	f, err := habit.ParseFrequency(raw)
	if err != nil {
		return "", apperr.Validation("Frequency must be one of: daily, weekly, biweekly, monthly")
	}
	return f, nil
}
