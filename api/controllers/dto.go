package controllers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/little-explorers/storefront/pkg/db/models"
	"github.com/little-explorers/storefront/pkg/enums"
)

type lineItemResponse struct {
	ID          string          `json:"id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Size        *string         `json:"size,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type orderResponse struct {
	OrderNumber    string              `json:"order_number"`
	FullName       string              `json:"full_name"`
	Email          string              `json:"email"`
	PhoneNumber    string              `json:"phone_number"`
	Country        string              `json:"country"`
	Postcode       *string             `json:"postcode,omitempty"`
	TownOrCity     string              `json:"town_or_city"`
	StreetAddress1 string              `json:"street_address1"`
	StreetAddress2 *string             `json:"street_address2,omitempty"`
	County         *string             `json:"county,omitempty"`
	Currency       string              `json:"currency"`
	OrderTotal     decimal.Decimal     `json:"order_total"`
	DeliveryCost   decimal.Decimal     `json:"delivery_cost"`
	GrandTotal     decimal.Decimal     `json:"grand_total"`
	PaymentStatus  enums.PaymentStatus `json:"payment_status"`
	LineItems      []lineItemResponse  `json:"line_items"`
	CreatedAt      time.Time           `json:"created_at"`
}

type orderSummaryResponse struct {
	OrderNumber   string              `json:"order_number"`
	GrandTotal    decimal.Decimal     `json:"grand_total"`
	Currency      string              `json:"currency"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time           `json:"created_at"`
}

func newOrderResponse(order *models.Order) orderResponse {
	items := make([]lineItemResponse, 0, len(order.LineItems))
	for _, li := range order.LineItems {
		item := lineItemResponse{
			ID:        li.ID.String(),
			ProductID: li.ProductID,
			Size:      li.Size,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice,
			LineTotal: li.LineTotal,
		}
		if li.Product != nil {
			item.ProductName = li.Product.Name
		}
		items = append(items, item)
	}
	return orderResponse{
		OrderNumber:    order.OrderNumber,
		FullName:       order.FullName,
		Email:          order.Email,
		PhoneNumber:    order.PhoneNumber,
		Country:        order.Country,
		Postcode:       order.Postcode,
		TownOrCity:     order.TownOrCity,
		StreetAddress1: order.StreetAddress1,
		StreetAddress2: order.StreetAddress2,
		County:         order.County,
		Currency:       order.Currency,
		OrderTotal:     order.OrderTotal,
		DeliveryCost:   order.DeliveryCost,
		GrandTotal:     order.GrandTotal,
		PaymentStatus:  order.PaymentStatus,
		LineItems:      items,
		CreatedAt:      order.CreatedAt,
	}
}
