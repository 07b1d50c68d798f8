package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleCandidate Role = "candidate"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleCandidate, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id" bson:"_id" yaml:"id"`
	Name         string    `gorm:"not null" json:"name" bson:"name" yaml:"name"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email" bson:"email" yaml:"email"`
	PasswordHash string    `json:"-" bson:"hashedPassword,omitempty" yaml:"-"` // empty for Google-only accounts
	Role         Role      `gorm:"size:20;default:'user';not null" json:"role" bson:"role" yaml:"role"`
	Provider     string    `gorm:"size:20" json:"provider" bson:"provider" yaml:"provider"` // credentials, google
	GoogleID     string    `gorm:"index" json:"-" bson:"googleId,omitempty" yaml:"-"`
	Image        string    `json:"image,omitempty" bson:"image,omitempty" yaml:"image,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt" yaml:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt" yaml:"updatedAt"`
	// Role is fixed at creation; there is no promotion flow.
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
