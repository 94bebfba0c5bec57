package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/habithub/internal/actorctx"
	"github.com/geocoder89/habithub/internal/apperr"
	"github.com/geocoder89/habithub/internal/config"
	"github.com/geocoder89/habithub/internal/domain/habit"
	"github.com/geocoder89/habithub/internal/services"
	"github.com/gin-gonic/gin"
)

const habitsTimeout = 2 * time.Second

type HabitStore interface {
	Create(ctx context.Context, ownerID string, req habit.CreateHabitRequest) (habit.Habit, error)
	List(ctx context.Context, ownerID string, filter habit.ListFilter) ([]habit.Habit, error)
	Get(ctx context.Context, ownerID, id string) (habit.Habit, error)
	Update(ctx context.Context, ownerID, id string, req habit.UpdateHabitRequest) (habit.Habit, error)
	Patch(ctx context.Context, ownerID, id string, req habit.PatchHabitRequest) (habit.Habit, error)
	Delete(ctx context.Context, ownerID, id string) error
}

var _ HabitStore = (*services.HabitService)(nil)

// habitResponse renders the habit fields flat with the outcome message.
type habitResponse struct {
	habit.Habit
	Message string `json:"message"`
}

type HabitsHandler struct {
	habits HabitStore
}

func NewHabitsHandler(habits HabitStore) *HabitsHandler {
	return &HabitsHandler{habits: habits}
}

func callerID(ctx *gin.Context) string {
	id, _ := actorctx.UserIDFrom(ctx.Request.Context())
	return id
}

func (h *HabitsHandler) CreateHabit(ctx *gin.Context) {
	var req habit.CreateHabitRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), habitsTimeout)
	defer cancel()

	created, err := h.habits.Create(cctx, callerID(ctx), req)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, habitResponse{Habit: created, Message: services.MsgHabitCreated})
}

func (h *HabitsHandler) ListHabits(ctx *gin.Context) {
	filter, err := parseListFilter(ctx)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), habitsTimeout)
	defer cancel()

	habits, err := h.habits.List(cctx, callerID(ctx), filter)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"habits":  habits,
		"count":   len(habits),
		"message": services.MsgHabitsListed,
	})
}

func (h *HabitsHandler) GetHabitByID(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), habitsTimeout)
	defer cancel()

	found, err := h.habits.Get(cctx, callerID(ctx), ctx.Param("id"))
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, found)
}

func (h *HabitsHandler) UpdateHabit(ctx *gin.Context) {
	var req habit.UpdateHabitRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), habitsTimeout)
	defer cancel()

	updated, err := h.habits.Update(cctx, callerID(ctx), ctx.Param("id"), req)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, habitResponse{Habit: updated, Message: services.MsgHabitUpdated})
}

func (h *HabitsHandler) PatchHabit(ctx *gin.Context) {
	var req habit.PatchHabitRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), habitsTimeout)
	defer cancel()

	updated, err := h.habits.Patch(cctx, callerID(ctx), ctx.Param("id"), req)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, habitResponse{Habit: updated, Message: services.MsgHabitUpdated})
}

func (h *HabitsHandler) DeleteHabit(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), habitsTimeout)
	defer cancel()

	if err := h.habits.Delete(cctx, callerID(ctx), id); err != nil {
		RespondAppError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"id":      id,
		"message": services.MsgHabitDeleted,
	})
}

// parseListFilter reads isActive, frequency and name. Empty values mean
// "no filter"; malformed ones are rejected rather than guessed.
func parseListFilter(ctx *gin.Context) (habit.ListFilter, error) {
	var filter habit.ListFilter

	if raw := strings.TrimSpace(ctx.Query("isActive")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, apperr.Validation("isActive must be true or false")
		}
		filter.IsActive = &v
	}

	if raw := strings.TrimSpace(ctx.Query("frequency")); raw != "" {
		f, err := habit.ParseFrequency(raw)
		if err != nil {
			return filter, apperr.Validation("frequency must be one of: daily, weekly, biweekly, monthly")
		}
		filter.Frequency = &f
	}

	if raw := strings.TrimSpace(ctx.Query("name")); raw != "" {
		filter.Name = &raw
	}

	return filter, nil
}
