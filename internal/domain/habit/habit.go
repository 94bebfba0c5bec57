package habit

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound         = errors.New("habit not found")
	ErrInvalidFrequency = errors.New("frequency must be one of: daily, weekly, biweekly, monthly")
)

const (
	NameMinLen        = 2
	NameMaxLen        = 100
	DescriptionMaxLen = 500
)

type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// ParseFrequency accepts the wire values case-insensitively.
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(strings.ToLower(strings.TrimSpace(s))); f {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return f, nil
	default:
		return "", ErrInvalidFrequency
	}
}

type Habit struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Frequency   Frequency `json:"frequency"`
	IsActive    bool      `json:"isActive"`
	UserID      string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// with pointers if optional, it will be nil
type ListFilter struct {
	IsActive  *bool
	Frequency *Frequency
	Name      *string
}

// IsZero reports a filter that constrains nothing beyond the owner.
func (f ListFilter) IsZero() bool {
	return f.IsActive == nil && f.Frequency == nil && f.Name == nil
}

// Matches applies the filter to a single habit. Name is a case-insensitive
// substring match.
func (f ListFilter) Matches(h Habit) bool {
	if f.IsActive != nil && h.IsActive != *f.IsActive {
		return false
	}
	if f.Frequency != nil && h.Frequency != *f.Frequency {
		return false
	}
	if f.Name != nil && !strings.Contains(strings.ToLower(h.Name), strings.ToLower(*f.Name)) {
		return false
	}
	return true
}

type CreateHabitRequest struct {
	Name        string  `json:"name" binding:"required,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	Frequency   *string `json:"frequency"`
	IsActive    *bool   `json:"isActive"`
}

// a full update payload: name is mandatory, omitted optional fields keep their stored value.
type UpdateHabitRequest struct {
	Name        string  `json:"name" binding:"required,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	Frequency   *string `json:"frequency"`
	IsActive    *bool   `json:"isActive"`
}

// partial update: only non-nil fields change.
type PatchHabitRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	Frequency   *string `json:"frequency"`
	IsActive    *bool   `json:"isActive"`
}
