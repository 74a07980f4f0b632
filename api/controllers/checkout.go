package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/little-explorers/storefront/api/middleware"
	"github.com/little-explorers/storefront/api/responses"
	"github.com/little-explorers/storefront/api/validators"
	"github.com/little-explorers/storefront/internal/checkout"
	pkgcheckout "github.com/little-explorers/storefront/pkg/checkout"
	"github.com/little-explorers/storefront/pkg/db/models"
	pkgerrors "github.com/little-explorers/storefront/pkg/errors"
	"github.com/little-explorers/storefront/pkg/logger"
)

// CheckoutService is the checkout flow behind the checkout endpoints.
type CheckoutService interface {
	Prepare(ctx context.Context, sessionID, username string) (*checkout.Prepared, error)
	CacheCheckoutData(ctx context.Context, sessionID, username, clientSecret string, saveInfo bool) error
	Submit(ctx context.Context, sessionID, username string, input checkout.SubmitInput) (*models.Order, error)
	Complete(ctx context.Context, sessionID, username, orderNumber string, saveInfo bool) (*models.Order, error)
}

type cacheCheckoutRequest struct {
	ClientSecret string `json:"client_secret" validate:"required"`
	SaveInfo     bool   `json:"save_info"`
}

type submitCheckoutRequest struct {
	pkgcheckout.CustomerDetails
	ClientSecret string `json:"client_secret" validate:"required"`
	SaveInfo     bool   `json:"save_info"`
}

type submitCheckoutResponse struct {
	Order    orderResponse `json:"order"`
	SaveInfo bool          `json:"save_info"`
}

// CheckoutPrepare prices the bag and reserves the payment.
func CheckoutPrepare(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		ctx := r.Context()
		prepared, err := svc.Prepare(ctx, middleware.SessionIDFromContext(ctx), middleware.UsernameFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, prepared)
	}
}

// CheckoutCache attaches the bag and customer markers to the payment intent
// before the browser confirms the payment.
func CheckoutCache(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		var req cacheCheckoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if err := svc.CacheCheckoutData(ctx, middleware.SessionIDFromContext(ctx), middleware.UsernameFromContext(ctx), req.ClientSecret, req.SaveInfo); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cached"})
	}
}

func CheckoutSubmit(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		var req submitCheckoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		order, err := svc.Submit(ctx, middleware.SessionIDFromContext(ctx), middleware.UsernameFromContext(ctx), checkout.SubmitInput{
			Customer:     req.CustomerDetails,
			ClientSecret: req.ClientSecret,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, submitCheckoutResponse{
			Order:    newOrderResponse(order),
			SaveInfo: req.SaveInfo,
		})
	}
}

// CheckoutSuccess finalizes the order for the signed-in customer.
func CheckoutSuccess(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		saveInfo, err := validators.ParseQueryBool(r, "save_info", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		order, err := svc.Complete(ctx, middleware.SessionIDFromContext(ctx), middleware.UsernameFromContext(ctx), chi.URLParam(r, "orderNumber"), saveInfo)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}
