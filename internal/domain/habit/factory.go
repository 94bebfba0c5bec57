package habit

import (
	"time"

	"github.com/google/uuid"
)

func New(ownerID, name, description string, frequency Frequency, isActive bool, now time.Time) Habit {
	return Habit{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Frequency:   frequency,
		IsActive:    isActive,
		UserID:      ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
