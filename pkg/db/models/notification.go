package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	"github.com/angelmondragon/vendorops-backend/pkg/types"
)

// Notification is the delivery record of a push sent to a vendor or customer.
type Notification struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID       uuid.UUID              `gorm:"column:event_id;type:uuid;not null;uniqueIndex"`
	RecipientID   uuid.UUID              `gorm:"column:recipient_id;type:uuid;not null;index"`
	RecipientRole enums.ActorRole        `gorm:"column:recipient_role;type:text;not null"`
	Type          enums.NotificationType `gorm:"column:type;type:text;not null"`
	Title         string                 `gorm:"column:title;type:text;not null"`
	Body          string                 `gorm:"column:body;type:text;not null"`
	Data          types.JSONMap          `gorm:"column:data;type:jsonb;not null"`
	ReadAt        *time.Time             `gorm:"column:read_at"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (Notification) TableName() string { return "notifications" }
