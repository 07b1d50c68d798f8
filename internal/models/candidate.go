package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Candidate struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id" bson:"_id" yaml:"id"`
	Name      string    `gorm:"not null" json:"name" bson:"name" yaml:"name"`
	Gender    string    `gorm:"size:20;not null" json:"gender" bson:"gender" yaml:"gender"`
	Age       int       `gorm:"not null" json:"age" bson:"age" yaml:"age"`
	Promises  string    `gorm:"type:text;not null" json:"promises" bson:"promises" yaml:"promises"`
	Party     string    `gorm:"not null" json:"party" bson:"party" yaml:"party"`
	VotingID  int       `gorm:"uniqueIndex;not null" json:"votingId" bson:"votingId" yaml:"votingId"`
	Votes     int64     `gorm:"not null;default:0" json:"votes" bson:"votes" yaml:"votes"` // mutated only by the vote ledger
	OwnerID   string    `gorm:"uniqueIndex;size:36;not null" json:"ownerId" bson:"ownerId" yaml:"ownerId"`
	Email     string    `json:"email,omitempty" bson:"email,omitempty" yaml:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt" yaml:"updatedAt"`

	PromisesHTML string `gorm:"-" json:"promisesHtml,omitempty" bson:"-" yaml:"-"`
}

func (c *Candidate) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// CandidatePatch lists the fields an owner or admin may change. Votes,
// VotingID and OwnerID are deliberately absent.
type CandidatePatch struct {
	Name     *string `mapstructure:"name"`
	Gender   *string `mapstructure:"gender"`
	Age      *int    `mapstructure:"age"`
	Promises *string `mapstructure:"promises"`
	Party    *string `mapstructure:"party"`
}

// Empty reports whether the patch changes nothing.
func (p CandidatePatch) Empty() bool {
	return p.Name == nil && p.Gender == nil && p.Age == nil && p.Promises == nil && p.Party == nil
}

// Apply copies the set fields onto c.
func (p CandidatePatch) Apply(c *Candidate) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Gender != nil {
		c.Gender = *p.Gender
	}
	if p.Age != nil {
		c.Age = *p.Age
	}
	if p.Promises != nil {
		c.Promises = *p.Promises
	}
	if p.Party != nil {
		c.Party = *p.Party
	}
}

// Columns returns the patch as a gorm column map.
func (p CandidatePatch) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Gender != nil {
		cols["gender"] = *p.Gender
	}
	if p.Age != nil {
		cols["age"] = *p.Age
	}
	if p.Promises != nil {
		cols["promises"] = *p.Promises
	}
	if p.Party != nil {
		cols["party"] = *p.Party
	}
	return cols
}
