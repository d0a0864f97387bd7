package earnings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorops-backend/pkg/db/models"
	"github.com/angelmondragon/vendorops-backend/pkg/enums"
)

// Repository reads the payment ledgers of a vendor's orders.
type Repository interface {
	LedgersForVendor(ctx context.Context, vendorID uuid.UUID) ([]models.Order, error)
	CountCompleted(ctx context.Context, vendorID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the earnings repository to a gorm connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// LedgersForVendor loads only the columns needed to fold ledgers.
func (r *repository) LedgersForVendor(ctx context.Context, vendorID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Select("id", "status", "payment_method", "payment_requests").
		Where("vendor_id = ?", vendorID).
		Where("payment_requests <> ?", "[]").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) CountCompleted(ctx context.Context, vendorID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("vendor_id = ? AND status = ?", vendorID, enums.OrderStatusCompleted).
		Count(&n).Error
	return n, err
}
