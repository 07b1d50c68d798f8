package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vote is written once per voter and never mutated. CandidateName is a
// snapshot taken at cast time.
type Vote struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id" bson:"_id" yaml:"id"`
	VoterID       string    `gorm:"uniqueIndex;size:36;not null" json:"userId" bson:"userId" yaml:"userId"`
	VoterEmail    string    `json:"userEmail,omitempty" bson:"userEmail,omitempty" yaml:"userEmail,omitempty"`
	CandidateID   string    `gorm:"index;size:36;not null" json:"candidateId" bson:"candidateId" yaml:"candidateId"`
	CandidateName string    `gorm:"not null" json:"candidateName" bson:"candidateName" yaml:"candidateName"`
	VotedAt       time.Time `gorm:"not null;index" json:"votedAt" bson:"votedAt" yaml:"votedAt"`
}

func (v *Vote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// Tally is one row of the per-candidate vote aggregation.
type Tally struct {
	CandidateID   string `json:"candidateId" bson:"_id"`
	CandidateName string `json:"candidateName" bson:"candidateName"`
	Count         int64  `json:"count" bson:"count"`
}
