package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document records an IPFS content hash registered by a citizen. The
// content itself lives on the pinning gateway.
type Document struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id" bson:"_id" yaml:"id"`
	IPFSHash    string    `gorm:"not null;index" json:"ipfsHash" bson:"ipfsHash" yaml:"ipfsHash"`
	FileName    string    `gorm:"not null" json:"fileName" bson:"fileName" yaml:"fileName"`
	FileType    string    `json:"fileType" bson:"fileType" yaml:"fileType"`
	FileSize    int64     `json:"fileSize" bson:"fileSize" yaml:"fileSize"`
	Description string    `gorm:"type:text" json:"description" bson:"description" yaml:"description"`
	OwnerID     string    `gorm:"not null;index;size:36" json:"userId" bson:"userId" yaml:"userId"`
	OwnerEmail  string    `json:"userEmail" bson:"userEmail" yaml:"userEmail"`
	OwnerName   string    `json:"userName" bson:"userName" yaml:"userName"`
	Verified    bool      `gorm:"default:false" json:"verified" bson:"verified" yaml:"verified"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt" yaml:"updatedAt"`
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
