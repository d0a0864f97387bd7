package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	"github.com/angelmondragon/vendorops-backend/pkg/types"
)

// Order is the lifecycle aggregate. Status only changes through conditional
// updates; embedded ledger and OTP writes are guarded by Version.
type Order struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID         *uuid.UUID            `gorm:"column:customer_id;type:uuid"`
	VendorID           *uuid.UUID            `gorm:"column:vendor_id;type:uuid"`
	Pickup             types.Location        `gorm:"column:pickup;type:jsonb;not null"`
	Drop               types.Location        `gorm:"column:drop_location;type:jsonb;not null"`
	Items              types.LineItems       `gorm:"column:items;type:jsonb;not null"`
	Fare               float64               `gorm:"column:fare;type:numeric(12,2);not null;default:0"`
	PaymentMethod      enums.PaymentMethod   `gorm:"column:payment_method;type:text;not null;default:'cod'"`
	PaymentStatus      enums.PaymentStatus   `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	Status             enums.OrderStatus     `gorm:"column:status;type:text;not null;default:'pending';index"`
	ScheduledAt        *time.Time            `gorm:"column:scheduled_at"`
	AssignedAt         *time.Time            `gorm:"column:assigned_at"`
	AcceptedAt         *time.Time            `gorm:"column:accepted_at"`
	CompletedAt        *time.Time            `gorm:"column:completed_at"`
	CancelledAt        *time.Time            `gorm:"column:cancelled_at"`
	CancellationReason *string               `gorm:"column:cancellation_reason"`
	CancelledBy        *enums.ActorRole      `gorm:"column:cancelled_by;type:text"`
	CustomerNotes      *string               `gorm:"column:customer_notes"`
	VendorNotes        *string               `gorm:"column:vendor_notes"`
	PaymentRequests    types.PaymentRequests `gorm:"column:payment_requests;type:jsonb;not null"`
	OTP                *types.OTPChallenge   `gorm:"column:otp;type:jsonb"`
	Metadata           types.JSONMap         `gorm:"column:metadata;type:jsonb;not null"`
	Version            int64                 `gorm:"column:version;not null;default:1"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name.
func (Order) TableName() string { return "orders" }

// AssignedTo reports whether the order is bound to vendorID.
func (o *Order) AssignedTo(vendorID uuid.UUID) bool {
	return o != nil && o.VendorID != nil && *o.VendorID == vendorID
}
