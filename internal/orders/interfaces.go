package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/localkart/localkart-backend/pkg/db/models"
)

// Repository defines persistence operations for the order graph.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	CreateSellerOrder(ctx context.Context, sellerOrder *models.SellerOrder) (*models.SellerOrder, error)
	CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	CreateTracking(ctx context.Context, row *models.OrderTracking) error
	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, input ListOrdersInput) (*OrderList, error)
	ListSellerIDs(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error)
	ListTracking(ctx context.Context, orderID uuid.UUID) ([]models.OrderTracking, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
}
