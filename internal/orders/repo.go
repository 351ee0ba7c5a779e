package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/localkart/localkart-backend/pkg/db/models"
	"github.com/localkart/localkart-backend/pkg/pagination"
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

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) CreateSellerOrder(ctx context.Context, sellerOrder *models.SellerOrder) (*models.SellerOrder, error) {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(sellerOrder).Error; err != nil {
		return nil, err
	}
	return sellerOrder, nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *repository) CreateTracking(ctx context.Context, row *models.OrderTracking) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("SellerOrders").
		Preload("SellerOrders.Items").
		Preload("Payments").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
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

func (r *repository) ListOrders(ctx context.Context, input ListOrdersInput) (*OrderList, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if input.CustomerID != nil {
		query = query.Where("customer_id = ?", *input.CustomerID)
	}
	if input.SellerID != nil {
		query = query.Where("id IN (?)", r.db.Model(&models.SellerOrder{}).
			Select("order_id").
			Where("seller_id = ?", *input.SellerID))
	}
	if input.AgentID != nil {
		query = query.Where("delivery_agent_id = ?", *input.AgentID)
	}
	if input.Status != nil {
		query = query.Where("status = ?", *input.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []models.Order
	err := query.
		Preload("Items").
		Preload("SellerOrders").
		Order("created_at DESC").
		Offset(input.Params.Offset()).
		Limit(input.Params.PageSize()).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	return &OrderList{
		Orders: rows,
		Meta:   pagination.BuildMeta(input.Params, total),
	}, nil
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

func (r *repository) ListTracking(ctx context.Context, orderID uuid.UUID) ([]models.OrderTracking, error) {
	var rows []models.OrderTracking
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}
