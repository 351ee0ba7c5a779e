package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/localkart/localkart-backend/api/responses"
	"github.com/localkart/localkart-backend/api/validators"
	internalorders "github.com/localkart/localkart-backend/internal/orders"
	"github.com/localkart/localkart-backend/pkg/enums"
	pkgerrors "github.com/localkart/localkart-backend/pkg/errors"
	"github.com/localkart/localkart-backend/pkg/logger"
)

type adminUpdateOrderRequest struct {
	Status                *string    `json:"status,omitempty"`
	PaymentStatus         *string    `json:"payment_status,omitempty"`
	PaymentMethod         *string    `json:"payment_method,omitempty"`
	PaymentReference      *string    `json:"payment_reference,omitempty"`
	DeliveryAgentID       *string    `json:"delivery_agent_id,omitempty"`
	EstimatedDeliveryTime *time.Time `json:"estimated_delivery_time,omitempty"`
	ActualDeliveryTime    *time.Time `json:"actual_delivery_time,omitempty"`
}

// AdminUpdateOrder applies a partial patch to an order. Status changes route
// through the state machine, so admins cannot skip lifecycle steps either.
func AdminUpdateOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body adminUpdateOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.UpdateOrderInput{
			OrderID:               orderID,
			PaymentReference:      body.PaymentReference,
			EstimatedDeliveryTime: body.EstimatedDeliveryTime,
			ActualDeliveryTime:    body.ActualDeliveryTime,
		}

		if body.Status != nil {
			status, parseErr := enums.ParseOrderStatus(strings.TrimSpace(*body.Status))
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status"))
				return
			}
			input.Status = &status
		}
		if body.PaymentStatus != nil {
			status, parseErr := enums.ParsePaymentStatus(strings.TrimSpace(*body.PaymentStatus))
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid payment status"))
				return
			}
			input.PaymentStatus = &status
		}
		if body.PaymentMethod != nil {
			method, parseErr := enums.ParsePaymentMethod(strings.TrimSpace(*body.PaymentMethod))
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid payment method"))
				return
			}
			input.PaymentMethod = &method
		}
		if body.DeliveryAgentID != nil {
			agentID, parseErr := uuid.Parse(strings.TrimSpace(*body.DeliveryAgentID))
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid agent id"))
				return
			}
			input.DeliveryAgentID = &agentID
		}

		order, err := svc.UpdateOrder(r.Context(), input, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, internalorders.OrderViewFromModel(order))
	}
}
