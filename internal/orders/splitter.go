package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/localkart/localkart-backend/pkg/errors"
)

// ResolvedLine is one cart line after product resolution: the owning seller
// and the catalog snapshot are already attached.
type ResolvedLine struct {
	ProductID       uuid.UUID
	SellerID        uuid.UUID
	ProductName     string
	ProductImage    *string
	ProductCategory string
	Quantity        int
	UnitPrice       decimal.Decimal
}

// LineTotal returns quantity * unit price.
func (l ResolvedLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// SellerSlice is the portion of a cart owned by one seller, with its
// commission and net payout already computed.
type SellerSlice struct {
	SellerID   uuid.UUID
	Lines      []ResolvedLine
	Subtotal   decimal.Decimal
	Commission decimal.Decimal
	NetAmount  decimal.Decimal
}

// SplitResult groups the cart by seller. Slices keep the order in which each
// seller first appears in the cart so output is deterministic.
type SplitResult struct {
	Slices   []SellerSlice
	Subtotal decimal.Decimal
}

// Split groups resolved cart lines by owning seller and computes per-seller
// subtotal, commission (subtotal * rate) and net payout (subtotal minus
// commission). It is a pure function; callers resolve products first.
func Split(lines []ResolvedLine, rate decimal.Decimal) (*SplitResult, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no resolvable lines").
			WithDetails(map[string]any{"reason": "empty_order"})
	}

	order := make([]uuid.UUID, 0, len(lines))
	bySeller := make(map[uuid.UUID][]ResolvedLine, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive").
				WithDetails(map[string]any{
					"reason":     "invalid_quantity",
					"product_id": line.ProductID.String(),
					"quantity":   line.Quantity,
				})
		}
		if _, seen := bySeller[line.SellerID]; !seen {
			order = append(order, line.SellerID)
		}
		bySeller[line.SellerID] = append(bySeller[line.SellerID], line)
	}

	result := &SplitResult{Slices: make([]SellerSlice, 0, len(order))}
	for _, sellerID := range order {
		slice := SellerSlice{SellerID: sellerID, Lines: bySeller[sellerID]}
		for _, line := range slice.Lines {
			slice.Subtotal = slice.Subtotal.Add(line.LineTotal())
		}
		slice.Commission = slice.Subtotal.Mul(rate).Round(2)
		slice.NetAmount = slice.Subtotal.Sub(slice.Commission)
		result.Slices = append(result.Slices, slice)
		result.Subtotal = result.Subtotal.Add(slice.Subtotal)
	}
	return result, nil
}
