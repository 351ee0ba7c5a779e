package handoff

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/localkart/localkart-backend/pkg/db/models"
	"github.com/localkart/localkart-backend/pkg/enums"
	"github.com/localkart/localkart-backend/pkg/pagination"
)

// QueueList is one page of claimable orders plus paging metadata.
type QueueList struct {
	Orders []models.Order
	Meta   pagination.Meta
}

// Repository defines persistence operations for the parcel handoff flow.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ClaimOrder(ctx context.Context, orderID, agentID uuid.UUID) (bool, error)
	SetOTP(ctx context.Context, orderID uuid.UUID, code string) error
	VerifyOTP(ctx context.Context, orderID uuid.UUID, code string) (bool, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	CreateTracking(ctx context.Context, row *models.OrderTracking) error
	ListSellerIDs(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error)
	ListUnassigned(ctx context.Context, params pagination.Params) (*QueueList, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a handoff repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ClaimOrder assigns the agent only while the order is still unclaimed, so
// two agents racing for the same order cannot both win.
func (r *repository) ClaimOrder(ctx context.Context, orderID, agentID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND delivery_agent_id IS NULL AND delivery_status = ?", orderID, enums.DeliveryStatusPending).
		Updates(map[string]any{
			"delivery_agent_id": agentID,
			"delivery_status":   enums.DeliveryStatusAcceptedByAgent,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *repository) SetOTP(ctx context.Context, orderID uuid.UUID, code string) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"parcel_otp":      code,
			"otp_verified":    false,
			"delivery_status": enums.DeliveryStatusOTPGenerated,
		}).Error
}

// VerifyOTP flips the verified flag with a conditional update so concurrent
// verification attempts serialize at the storage layer; at most one caller
// can observe an unverified matching code.
func (r *repository) VerifyOTP(ctx context.Context, orderID uuid.UUID, code string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND parcel_otp = ? AND otp_verified = ?", orderID, code, false).
		Updates(map[string]any{
			"otp_verified":    true,
			"delivery_status": enums.DeliveryStatusOTPVerified,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) CreateTracking(ctx context.Context, row *models.OrderTracking) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) ListSellerIDs(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.SellerOrder{}).
		Where("order_id = ?", orderID).
		Pluck("seller_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) ListUnassigned(ctx context.Context, params pagination.Params) (*QueueList, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("delivery_agent_id IS NULL AND delivery_status = ? AND status NOT IN ?",
			enums.DeliveryStatusPending,
			[]enums.OrderStatus{enums.OrderStatusCancelled, enums.OrderStatusDelivered})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []models.Order
	err := query.
		Preload("Items").
		Order("created_at ASC").
		Offset(params.Offset()).
		Limit(params.PageSize()).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	return &QueueList{
		Orders: rows,
		Meta:   pagination.BuildMeta(params, total),
	}, nil
}
