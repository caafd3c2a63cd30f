package users

import (
	"time"

	"github.com/google/uuid"
)

// User is a directory entry for an employee who can write, approve, or be
// referenced on documents.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Username     string    `json:"username" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Name         string    `json:"name" gorm:"not null"`
	Department   string    `json:"department"`
	Position     string    `json:"position"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}
