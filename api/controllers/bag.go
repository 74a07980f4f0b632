package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/little-explorers/storefront/api/middleware"
	"github.com/little-explorers/storefront/api/responses"
	"github.com/little-explorers/storefront/api/validators"
	"github.com/little-explorers/storefront/internal/bag"
	pkgerrors "github.com/little-explorers/storefront/pkg/errors"
	"github.com/little-explorers/storefront/pkg/logger"
)

// BagService is the session bag surface the bag endpoints use.
type BagService interface {
	Contents(ctx context.Context, sessionID string) (*bag.Summary, error)
	Add(ctx context.Context, sessionID string, input bag.MutationInput) (*bag.Bag, error)
	Adjust(ctx context.Context, sessionID string, input bag.MutationInput) (*bag.Bag, error)
	Remove(ctx context.Context, sessionID string, productID int64, size string) (*bag.Bag, error)
}

type addToBagRequest struct {
	Quantity int    `json:"quantity" validate:"gte=1,lte=99"`
	Size     string `json:"size" validate:"omitempty,max=2"`
}

type adjustBagRequest struct {
	Quantity int    `json:"quantity" validate:"gte=0,lte=99"`
	Size     string `json:"size" validate:"omitempty,max=2"`
}

// BagContents returns the priced summary of the session's bag.
func BagContents(svc BagService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bag service unavailable"))
			return
		}
		summary, err := svc.Contents(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func BagAdd(svc BagService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bag service unavailable"))
			return
		}
		productID, err := validators.ParsePathInt64(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req addToBagRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		if _, err := svc.Add(r.Context(), sessionID, bag.MutationInput{
			ProductID: productID,
			Quantity:  req.Quantity,
			Size:      req.Size,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeBag(w, r, svc, logg, sessionID)
	}
}

func BagAdjust(svc BagService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bag service unavailable"))
			return
		}
		productID, err := validators.ParsePathInt64(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req adjustBagRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		if _, err := svc.Adjust(r.Context(), sessionID, bag.MutationInput{
			ProductID: productID,
			Quantity:  req.Quantity,
			Size:      req.Size,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeBag(w, r, svc, logg, sessionID)
	}
}

func BagRemove(svc BagService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bag service unavailable"))
			return
		}
		productID, err := validators.ParsePathInt64(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		size := strings.TrimSpace(r.URL.Query().Get("size"))

		sessionID := middleware.SessionIDFromContext(r.Context())
		if _, err := svc.Remove(r.Context(), sessionID, productID, size); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeBag(w, r, svc, logg, sessionID)
	}
}

func writeBag(w http.ResponseWriter, r *http.Request, svc BagService, logg *logger.Logger, sessionID string) {
	summary, err := svc.Contents(r.Context(), sessionID)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, summary)
}
