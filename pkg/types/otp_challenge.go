package types

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorops-backend/pkg/enums"
)

// OTPChallenge is the single OTP slot embedded in an order. Only the hash of
// the code is stored.
type OTPChallenge struct {
	ID        uuid.UUID        `json:"id"`
	CodeHash  string           `json:"codeHash"`
	Purpose   enums.OTPPurpose `json:"purpose"`
	CreatedAt time.Time        `json:"createdAt"`
	ExpiresAt time.Time        `json:"expiresAt"`
	Attempts  int              `json:"attempts"`
	Verified  bool             `json:"verified"`
}

// Value implements driver.Valuer.
func (c OTPChallenge) Value() (driver.Value, error) {
	return jsonValue(c)
}

// Scan implements sql.Scanner.
func (c *OTPChallenge) Scan(src any) error {
	if src == nil {
		*c = OTPChallenge{}
		return nil
	}
	if err := jsonScan(src, c); err != nil {
		return fmt.Errorf("otp challenge: %w", err)
	}
	return nil
}

// Expired reports whether now is past the expiry. No grace period.
func (c OTPChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Active reports whether the challenge can still be verified.
func (c OTPChallenge) Active(now time.Time) bool {
	return !c.Verified && !c.Expired(now)
}
