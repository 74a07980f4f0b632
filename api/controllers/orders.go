package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/little-explorers/storefront/api/middleware"
	"github.com/little-explorers/storefront/api/responses"
	"github.com/little-explorers/storefront/api/validators"
	internalorders "github.com/little-explorers/storefront/internal/orders"
	"github.com/little-explorers/storefront/pkg/db/models"
	"github.com/little-explorers/storefront/pkg/enums"
	pkgerrors "github.com/little-explorers/storefront/pkg/errors"
	"github.com/little-explorers/storefront/pkg/logger"
	"github.com/little-explorers/storefront/pkg/pagination"
)

// OrderService reads orders and applies staff line-item edits.
type OrderService interface {
	GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListForProfile(ctx context.Context, profileID uuid.UUID, page pagination.Params) (*internalorders.OrderPage, error)
	AddLineItem(ctx context.Context, orderNumber string, input internalorders.LineItemInput) (*models.Order, error)
	UpdateLineItemQuantity(ctx context.Context, orderNumber string, lineItemID uuid.UUID, quantity int) (*models.Order, error)
	DeleteLineItem(ctx context.Context, orderNumber string, lineItemID uuid.UUID) (*models.Order, error)
}

// ProfileFinder resolves a username to its profile.
type ProfileFinder interface {
	FindByUsername(ctx context.Context, username string) (*models.UserProfile, error)
}

type addLineItemRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Size      string `json:"size" validate:"omitempty,max=2"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=99"`
}

type updateLineItemRequest struct {
	Quantity int `json:"quantity" validate:"gte=1,lte=99"`
}

// OrderDetail returns one order. Orders attached to a profile are visible to
// that profile's owner and to staff only.
func OrderDetail(svc OrderService, profiles ProfileFinder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || profiles == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		ctx := r.Context()
		order, err := svc.GetByNumber(ctx, chi.URLParam(r, "orderNumber"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := authorizeOrderView(ctx, profiles, order); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

func authorizeOrderView(ctx context.Context, profiles ProfileFinder, order *models.Order) error {
	if order.UserProfileID == nil || middleware.RoleFromContext(ctx) == string(enums.RoleAdmin) {
		return nil
	}
	username := middleware.UsernameFromContext(ctx)
	if username == "" {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	profile, err := profiles.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	if profile.ID != *order.UserProfileID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return nil
}

type profileOrdersResponse struct {
	Orders     []orderSummaryResponse `json:"orders"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}

// ProfileOrders lists the signed-in customer's order history, newest first,
// one cursor page at a time.
func ProfileOrders(svc OrderService, profiles ProfileFinder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || profiles == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		ctx := r.Context()
		username := middleware.UsernameFromContext(ctx)
		if username == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required"))
			return
		}
		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		profile, err := profiles.FindByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				responses.WriteSuccess(w, profileOrdersResponse{Orders: []orderSummaryResponse{}})
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile"))
			return
		}

		result, err := svc.ListForProfile(ctx, profile.ID, page)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		out := profileOrdersResponse{
			Orders:     make([]orderSummaryResponse, 0, len(result.Orders)),
			NextCursor: result.NextCursor,
		}
		for _, order := range result.Orders {
			out.Orders = append(out.Orders, orderSummaryResponse{
				OrderNumber:   order.OrderNumber,
				GrandTotal:    order.GrandTotal,
				Currency:      order.Currency,
				PaymentStatus: order.PaymentStatus,
				CreatedAt:     order.CreatedAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}

func AdminAddLineItem(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		var req addLineItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := internalorders.LineItemInput{ProductID: req.ProductID, Quantity: req.Quantity}
		if size := strings.TrimSpace(req.Size); size != "" {
			input.Size = &size
		}
		order, err := svc.AddLineItem(r.Context(), chi.URLParam(r, "orderNumber"), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

func AdminUpdateLineItem(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		lineItemID, err := validators.ParsePathUUID(r, "lineItemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateLineItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.UpdateLineItemQuantity(r.Context(), chi.URLParam(r, "orderNumber"), lineItemID, req.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

func AdminDeleteLineItem(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		lineItemID, err := validators.ParsePathUUID(r, "lineItemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.DeleteLineItem(r.Context(), chi.URLParam(r, "orderNumber"), lineItemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}
