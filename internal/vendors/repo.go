package vendors

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorops-backend/pkg/db"
	"github.com/angelmondragon/vendorops-backend/pkg/db/models"
)

// Repository exposes vendor persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a vendors repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Exists reports whether a vendor with id is registered.
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Vendor{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

// FindByID loads a vendor by UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).First(&vendor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

// FindByMobile retrieves the vendor registered with mobile.
func (r *Repository) FindByMobile(ctx context.Context, mobile string) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Where("mobile = ?", mobile).First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

// FindOrCreateByMobile returns the vendor for mobile, creating it with name
// when absent. A concurrent insert of the same mobile resolves to the winner.
func (r *Repository) FindOrCreateByMobile(ctx context.Context, mobile, name string) (*models.Vendor, bool, error) {
	existing, err := r.FindByMobile(ctx, mobile)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	vendor := &models.Vendor{ID: uuid.New(), Mobile: mobile, VendorName: name}
	if err := r.db.WithContext(ctx).Create(vendor).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			winner, findErr := r.FindByMobile(ctx, mobile)
			return winner, false, findErr
		}
		return nil, false, err
	}
	return vendor, true, nil
}

// MarkMobileVerified flips mobile_verified once a login code is redeemed.
func (r *Repository) MarkMobileVerified(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", id).
		UpdateColumn("mobile_verified", true).Error
}
