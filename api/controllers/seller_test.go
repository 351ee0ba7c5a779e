package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/localkart/localkart-backend/internal/fulfillment"
	"github.com/localkart/localkart-backend/pkg/db/models"
	"github.com/localkart/localkart-backend/pkg/enums"
	pkgerrors "github.com/localkart/localkart-backend/pkg/errors"
)

func TestSellerAdvanceOrderUsesFixedTarget(t *testing.T) {
	sellerID := uuid.New()
	orderID := uuid.New()
	svc := &stubFulfillmentService{
		advance: func(ctx context.Context, input fulfillment.AdvanceInput) (*models.Order, error) {
			if input.OrderID != orderID {
				t.Fatalf("unexpected order id %s", input.OrderID)
			}
			if input.Target != enums.OrderStatusConfirmed {
				t.Fatalf("unexpected target %s", input.Target)
			}
			if input.Actor.UserID != sellerID || input.Actor.Role != enums.UserRoleSeller {
				t.Fatalf("unexpected actor %+v", input.Actor)
			}
			return &models.Order{ID: orderID, Status: enums.OrderStatusConfirmed}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/seller/orders/"+orderID.String()+"/confirm", nil)
	req = withOrderParam(req, orderID)
	req = authedRequest(req, sellerID, enums.UserRoleSeller)

	resp := httptest.NewRecorder()
	SellerAdvanceOrder(svc, enums.OrderStatusConfirmed, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestSellerVerifyOTPPassesCode(t *testing.T) {
	sellerID := uuid.New()
	orderID := uuid.New()
	svc := &stubHandoffService{
		verifyOTP: func(ctx context.Context, incomingOrder, incomingSeller uuid.UUID, code string) error {
			if incomingOrder != orderID || incomingSeller != sellerID {
				t.Fatalf("unexpected ids order=%s seller=%s", incomingOrder, incomingSeller)
			}
			if code != "482915" {
				t.Fatalf("unexpected code %q", code)
			}
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/seller/orders/"+orderID.String()+"/verify-otp", strings.NewReader(`{"code": "482915"}`))
	req.Header.Set("Content-Type", "application/json")
	req = withOrderParam(req, orderID)
	req = authedRequest(req, sellerID, enums.UserRoleSeller)

	resp := httptest.NewRecorder()
	SellerVerifyOTP(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestSellerVerifyOTPRejectsShortCode(t *testing.T) {
	orderID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/seller/orders/"+orderID.String()+"/verify-otp", strings.NewReader(`{"code": "12"}`))
	req.Header.Set("Content-Type", "application/json")
	req = withOrderParam(req, orderID)
	req = authedRequest(req, uuid.New(), enums.UserRoleSeller)

	resp := httptest.NewRecorder()
	SellerVerifyOTP(&stubHandoffService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if code := decodeErrorCode(t, resp); code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected error code %q", code)
	}
}

func TestSellerVerifyOTPMapsInvalidCode(t *testing.T) {
	orderID := uuid.New()
	svc := &stubHandoffService{
		verifyOTP: func(ctx context.Context, incomingOrder, incomingSeller uuid.UUID, code string) error {
			return pkgerrors.New(pkgerrors.CodeInvalidOTP, "pickup code rejected")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/seller/orders/"+orderID.String()+"/verify-otp", strings.NewReader(`{"code": "000000"}`))
	req.Header.Set("Content-Type", "application/json")
	req = withOrderParam(req, orderID)
	req = authedRequest(req, uuid.New(), enums.UserRoleSeller)

	resp := httptest.NewRecorder()
	SellerVerifyOTP(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	if code := decodeErrorCode(t, resp); code != string(pkgerrors.CodeInvalidOTP) {
		t.Fatalf("unexpected error code %q", code)
	}
}
