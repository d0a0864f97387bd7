package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorops-backend/pkg/db/models"
	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	"github.com/angelmondragon/vendorops-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.Version == 0 {
		order.Version = 1
	}
	return r.db.WithContext(ctx).Create(order).Error
}

// FindByID returns gorm.ErrRecordNotFound when the order does not exist.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// TryTransition issues one conditional UPDATE. A false result with a nil
// error means the precondition did not hold and nothing was written.
func (r *repository) TryTransition(ctx context.Context, id uuid.UUID, expect Expect, change Change) (*models.Order, bool, error) {
	updates := make(map[string]any, len(change.Fields)+3)
	for column, value := range change.Fields {
		updates[column] = value
	}
	if change.Status != "" {
		updates["status"] = change.Status
	}
	updates["version"] = gorm.Expr("version + ?", 1)
	updates["updated_at"] = time.Now().UTC()

	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id)
	if len(expect.Statuses) > 0 {
		query = query.Where("status IN ?", expect.Statuses)
	}
	if expect.VendorID != nil {
		query = query.Where("vendor_id = ?", *expect.VendorID)
	}
	if expect.Version != nil {
		query = query.Where("version = ?", *expect.Version)
	}
	if expect.ClaimableBy != nil {
		query = query.Where("(vendor_id IS NULL OR vendor_id = ?)", *expect.ClaimableBy)
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, false, nil
	}

	order, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return order, true, nil
}

// VendorOrderFilter narrows a vendor's order list.
type VendorOrderFilter struct {
	Statuses []enums.OrderStatus
	Limit    int
	Offset   int
}

func (r *repository) ListForVendor(ctx context.Context, vendorID uuid.UUID, filter VendorOrderFilter) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("vendor_id = ?", vendorID)
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Order
	err := query.Session(&gorm.Session{}).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.NormalizeLimit(filter.Limit)).
		Offset(pagination.NormalizeOffset(filter.Offset)).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListWithChallenges pages through orders that still carry an OTP slot,
// ordered by id.
func (r *repository) ListWithChallenges(ctx context.Context, afterID uuid.UUID, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Where("otp IS NOT NULL")
	if afterID != uuid.Nil {
		query = query.Where("id > ?", afterID)
	}
	var rows []models.Order
	err := query.Order("id ASC").Limit(pagination.NormalizeLimit(limit)).Find(&rows).Error
	return rows, err
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
