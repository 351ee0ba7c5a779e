package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/localkart/localkart-backend/api/responses"
	"github.com/localkart/localkart-backend/api/validators"
	"github.com/localkart/localkart-backend/internal/handoff"
	internalorders "github.com/localkart/localkart-backend/internal/orders"
	pkgerrors "github.com/localkart/localkart-backend/pkg/errors"
	"github.com/localkart/localkart-backend/pkg/logger"
	"github.com/localkart/localkart-backend/pkg/types"
)

type agentLocationRequest struct {
	Latitude   float64    `json:"latitude" validate:"min=-90,max=90"`
	Longitude  float64    `json:"longitude" validate:"min=-180,max=180"`
	Accuracy   float64    `json:"accuracy,omitempty"`
	Speed      float64    `json:"speed,omitempty"`
	Heading    float64    `json:"heading,omitempty"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

// AgentOrderQueue lists unclaimed orders oldest first.
func AgentOrderQueue(svc handoff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "handoff service unavailable"))
			return
		}

		params, err := pagingParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.Queue(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page := internalorders.OrderPage{Orders: []internalorders.OrderDTO{}, Meta: list.Meta}
		for i := range list.Orders {
			page.Orders = append(page.Orders, *internalorders.OrderViewFromModel(&list.Orders[i]))
		}
		responses.WriteSuccess(w, page)
	}
}

// AgentAcceptOrder claims an unassigned order for the calling agent.
func AgentAcceptOrder(svc handoff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "handoff service unavailable"))
			return
		}

		agentID, orderID, err := agentAndOrderIDs(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Accept(r.Context(), orderID, agentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, internalorders.OrderViewFromModel(order))
	}
}

// AgentGenerateOTP issues the pickup code the agent shows the seller.
func AgentGenerateOTP(svc handoff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "handoff service unavailable"))
			return
		}

		agentID, orderID, err := agentAndOrderIDs(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code, err := svc.GenerateOTP(r.Context(), orderID, agentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"otp": code})
	}
}

// AgentPickupOrder records the physical parcel handoff after OTP verification.
func AgentPickupOrder(svc handoff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "handoff service unavailable"))
			return
		}

		agentID, orderID, err := agentAndOrderIDs(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Pickup(r.Context(), orderID, agentID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "parcel_picked_up"})
	}
}

// AgentStartDelivery moves the parcel into transit.
func AgentStartDelivery(svc handoff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "handoff service unavailable"))
			return
		}

		agentID, orderID, err := agentAndOrderIDs(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.StartDelivery(r.Context(), orderID, agentID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "in_transit"})
	}
}

// AgentUpdateLocation stores the latest GPS ping for an in-transit order.
func AgentUpdateLocation(svc handoff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "handoff service unavailable"))
			return
		}

		agentID, orderID, err := agentAndOrderIDs(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body agentLocationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		loc := types.AgentLocation{
			Latitude:  body.Latitude,
			Longitude: body.Longitude,
			Accuracy:  body.Accuracy,
			Speed:     body.Speed,
			Heading:   body.Heading,
		}
		if body.RecordedAt != nil {
			loc.RecordedAt = *body.RecordedAt
		}

		if err := svc.UpdateLocation(r.Context(), orderID, agentID, loc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "location_updated"})
	}
}

// AgentCompleteOrder marks the parcel delivered on both lifecycle axes.
func AgentCompleteOrder(svc handoff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "handoff service unavailable"))
			return
		}

		agentID, orderID, err := agentAndOrderIDs(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Complete(r.Context(), orderID, agentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, internalorders.OrderViewFromModel(order))
	}
}

func agentAndOrderIDs(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	agentID, err := actorUserID(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	orderID, err := parseOrderID(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return agentID, orderID, nil
}
