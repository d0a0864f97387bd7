package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MockOrderCall is the immutable audit record of one idempotent creation call.
type MockOrderCall struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ClientRequestID *string         `gorm:"column:client_request_id;type:text"`
	RequestPayload  json.RawMessage `gorm:"column:request_payload;type:jsonb;not null"`
	OrderID         *uuid.UUID      `gorm:"column:order_id;type:uuid"`
	VendorID        *uuid.UUID      `gorm:"column:vendor_id;type:uuid"`
	IPAddress       string          `gorm:"column:ip_address;type:text"`
	UserAgent       string          `gorm:"column:user_agent;type:text"`
	AutoAssigned    bool            `gorm:"column:auto_assigned;not null;default:false"`
	ResponseStatus  int             `gorm:"column:response_status;not null"`
	ErrorMessage    *string         `gorm:"column:error_message"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TableName pins the table name.
func (MockOrderCall) TableName() string { return "mock_order_calls" }
