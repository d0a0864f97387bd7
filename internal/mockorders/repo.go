package mockorders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorops-backend/pkg/db/models"
	"github.com/angelmondragon/vendorops-backend/pkg/pagination"
)

// Repository persists mock order audit records. Records are append-only
// apart from ReleaseKey, which clears client_request_id once the record's
// order is gone or never existed so the unique key can be claimed again.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, call *models.MockOrderCall) error
	FindByClientRequestID(ctx context.Context, clientRequestID string) (*models.MockOrderCall, error)
	ReleaseKey(ctx context.Context, id uuid.UUID) error
	Counts(ctx context.Context) (CallCounts, error)
	List(ctx context.Context, limit, offset int) ([]models.MockOrderCall, int64, error)
}

// CallCounts aggregates the audit table.
type CallCounts struct {
	Total      int64
	Successful int64
	Failed     int64
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the audit repository to a gorm connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, call *models.MockOrderCall) error {
	if call.ID == uuid.Nil {
		call.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(call).Error
}

// FindByClientRequestID returns nil, nil when no call holds the key.
func (r *repository) FindByClientRequestID(ctx context.Context, clientRequestID string) (*models.MockOrderCall, error) {
	var call models.MockOrderCall
	err := r.db.WithContext(ctx).
		Where("client_request_id = ?", clientRequestID).
		First(&call).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &call, nil
}

// ReleaseKey detaches the client request id from a record whose order no
// longer exists so a new call can claim it.
func (r *repository) ReleaseKey(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.MockOrderCall{}).
		Where("id = ?", id).
		Update("client_request_id", gorm.Expr("NULL")).Error
}

func (r *repository) Counts(ctx context.Context) (CallCounts, error) {
	var row struct {
		Total      int64
		Successful int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.MockOrderCall{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN response_status = ? THEN 1 ELSE 0 END), 0) AS successful", statusCreated).
		Scan(&row).Error
	if err != nil {
		return CallCounts{}, err
	}
	return CallCounts{
		Total:      row.Total,
		Successful: row.Successful,
		Failed:     row.Total - row.Successful,
	}, nil
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]models.MockOrderCall, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.MockOrderCall{})

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.MockOrderCall
	err := query.Session(&gorm.Session{}).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.NormalizeLimit(limit)).
		Offset(pagination.NormalizeOffset(offset)).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
