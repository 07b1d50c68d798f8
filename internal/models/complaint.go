package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ComplaintStatus string

const (
	StatusPending    ComplaintStatus = "Pending"
	StatusInProgress ComplaintStatus = "In Progress"
	StatusResolved   ComplaintStatus = "Resolved"
	StatusRejected   ComplaintStatus = "Rejected"
)

func (s ComplaintStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

type Complaint struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id" bson:"_id" yaml:"id"`
	RequesterID string          `gorm:"not null;index;size:36" json:"userId" bson:"userId" yaml:"userId"`
	Type        string          `gorm:"size:100;not null" json:"complaintType" bson:"complaintType" yaml:"complaintType"`
	Area        string          `gorm:"not null" json:"area" bson:"area" yaml:"area"`
	Description string          `gorm:"type:text;not null" json:"description" bson:"description" yaml:"description"`
	Contact     string          `gorm:"not null" json:"contact" bson:"contact" yaml:"contact"`
	Name        string          `json:"name" bson:"name" yaml:"name"`
	Email       string          `json:"email" bson:"email" yaml:"email"`
	Status      ComplaintStatus `gorm:"size:20;not null;default:'Pending';index" json:"status" bson:"status" yaml:"status"`
	AdminNotes  string          `gorm:"type:text" json:"adminNotes" bson:"adminNotes" yaml:"adminNotes"`
	ResolvedAt  *time.Time      `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty" yaml:"resolvedAt,omitempty"`
	ResolvedBy  string          `json:"resolvedBy,omitempty" bson:"resolvedBy,omitempty" yaml:"resolvedBy,omitempty"`
	CreatedAt   time.Time       `gorm:"index" json:"createdAt" bson:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt" bson:"updatedAt" yaml:"updatedAt"`
}

func (c *Complaint) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// ComplaintReview is an admin status decision. Terminal statuses are not
// locked; a later review may overwrite them.
type ComplaintReview struct {
	Status     ComplaintStatus
	AdminNotes string
	ResolvedAt *time.Time
	ResolvedBy string
	UpdatedAt  time.Time
}
