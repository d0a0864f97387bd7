package mockorders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorops-backend/pkg/db/models"
)

// RequestMeta describes the HTTP call being audited. Payload is the body as
// received; when empty the decoded input is stored instead.
type RequestMeta struct {
	IPAddress string
	UserAgent string
	Payload   json.RawMessage
}

// Result is the order returned by CreateOrGet. CalledAt is the time of the
// call that created the order, which differs from now on a replay.
type Result struct {
	Order      *models.Order
	Idempotent bool
	CalledAt   time.Time
}

// Stats summarises the audit trail.
type Stats struct {
	TotalCalls        int64 `json:"totalCalls"`
	SuccessfulCalls   int64 `json:"successfulCalls"`
	FailedCalls       int64 `json:"failedCalls"`
	IdempotentReplays int64 `json:"idempotentReplays"`
}

// CallView is the JSON shape of one audit record.
type CallView struct {
	ID              uuid.UUID       `json:"id"`
	ClientRequestID *string         `json:"clientRequestId,omitempty"`
	OrderID         *uuid.UUID      `json:"orderId,omitempty"`
	VendorID        *uuid.UUID      `json:"vendorId,omitempty"`
	RequestPayload  json.RawMessage `json:"requestPayload"`
	IPAddress       string          `json:"ipAddress,omitempty"`
	UserAgent       string          `json:"userAgent,omitempty"`
	AutoAssigned    bool            `json:"autoAssigned"`
	ResponseStatus  int             `json:"responseStatus"`
	ErrorMessage    *string         `json:"errorMessage,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// CallList is one page of audit records, newest first.
type CallList struct {
	Items  []CallView `json:"items"`
	Total  int64      `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

func newCallView(c *models.MockOrderCall) CallView {
	payload := c.RequestPayload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	return CallView{
		ID:              c.ID,
		ClientRequestID: c.ClientRequestID,
		OrderID:         c.OrderID,
		VendorID:        c.VendorID,
		RequestPayload:  payload,
		IPAddress:       c.IPAddress,
		UserAgent:       c.UserAgent,
		AutoAssigned:    c.AutoAssigned,
		ResponseStatus:  c.ResponseStatus,
		ErrorMessage:    c.ErrorMessage,
		CreatedAt:       c.CreatedAt,
	}
}
