package models

import (
	"time"

	"github.com/google/uuid"
)

// Vendor is the minimal identity record used by vendor login.
type Vendor struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Mobile         string    `gorm:"column:mobile;type:text;not null;uniqueIndex"`
	VendorName     string    `gorm:"column:vendor_name;type:text;not null"`
	MobileVerified bool      `gorm:"column:mobile_verified;not null;default:false"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Vendor) TableName() string { return "vendors" }
