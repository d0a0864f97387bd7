package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorops-backend/internal/notifications"
	"github.com/angelmondragon/vendorops-backend/pkg/db/models"
	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	"github.com/angelmondragon/vendorops-backend/pkg/outbox"
	"github.com/angelmondragon/vendorops-backend/pkg/types"
)

// Repository defines persistence operations for the orders table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	TryTransition(ctx context.Context, id uuid.UUID, expect Expect, change Change) (*models.Order, bool, error)
	ListForVendor(ctx context.Context, vendorID uuid.UUID, filter VendorOrderFilter) ([]models.Order, int64, error)
	ListWithChallenges(ctx context.Context, afterID uuid.UUID, limit int) ([]models.Order, error)
}

// Expect is the precondition of a conditional write. Empty fields are not
// checked.
type Expect struct {
	Statuses []enums.OrderStatus
	VendorID *uuid.UUID
	Version  *int64
	// ClaimableBy matches rows with no vendor or the given vendor.
	ClaimableBy *uuid.UUID
}

// Change is the write applied when Expect holds. Version is always bumped.
type Change struct {
	Status enums.OrderStatus
	Fields map[string]any
}

// VendorLocator finds vendors currently online near a point.
type VendorLocator interface {
	FindOnlineVendors(ctx context.Context, point types.Location, maxDistanceMeters float64) ([]uuid.UUID, error)
}

// VendorDirectory answers whether a vendor account exists.
type VendorDirectory interface {
	Exists(ctx context.Context, vendorID uuid.UUID) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (uuid.UUID, error)
}

type notifier = notifications.Notifier
