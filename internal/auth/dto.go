package auth

import (
	"time"

	"github.com/google/uuid"
)

// RegisterRequest starts a vendor login for a mobile number.
type RegisterRequest struct {
	Mobile     string `json:"mobile" validate:"required,min=8,max=20"`
	VendorName string `json:"vendorName" validate:"omitempty,max=120"`
}

// RegisterResponse reports the issued login code. Code is only populated
// when the service runs with codes exposed (dev environments).
type RegisterResponse struct {
	VendorID  uuid.UUID `json:"vendorId"`
	IsNew     bool      `json:"isNew"`
	ExpiresIn int       `json:"expiresIn"`
	Code      string    `json:"code,omitempty"`
}

// VerifyRequest exchanges a login code for an access token.
type VerifyRequest struct {
	Mobile string `json:"mobile" validate:"required"`
	Code   string `json:"code" validate:"required,numeric"`
}

// VendorSummary is the vendor profile returned after login.
type VendorSummary struct {
	ID             uuid.UUID `json:"id"`
	Mobile         string    `json:"mobile"`
	VendorName     string    `json:"vendorName"`
	MobileVerified bool      `json:"mobileVerified"`
}

// VerifyResponse carries the minted access token.
type VerifyResponse struct {
	AccessToken string        `json:"accessToken"`
	ExpiresAt   time.Time     `json:"expiresAt"`
	Vendor      VendorSummary `json:"vendor"`
}
