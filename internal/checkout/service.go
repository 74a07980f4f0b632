package checkout

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/little-explorers/storefront/internal/bag"
	"github.com/little-explorers/storefront/internal/orders"
	"github.com/little-explorers/storefront/internal/payments"
	"github.com/little-explorers/storefront/internal/profiles"
	pkgcheckout "github.com/little-explorers/storefront/pkg/checkout"
	"github.com/little-explorers/storefront/pkg/db/models"
	pkgerrors "github.com/little-explorers/storefront/pkg/errors"
	"github.com/little-explorers/storefront/pkg/logger"
	"github.com/little-explorers/storefront/pkg/money"
	"github.com/little-explorers/storefront/pkg/outbox"
	"github.com/little-explorers/storefront/pkg/outbox/payloads"
)

type sessionBags interface {
	Load(ctx context.Context, sessionID string) (*bag.Bag, error)
	Clear(ctx context.Context, sessionID string) error
}

// PricingSource resolves the delivery rules in force for the current request.
type PricingSource interface {
	Pricing(ctx context.Context) (money.Pricing, error)
}

type paymentBridge interface {
	Available() bool
	Reserve(ctx context.Context, grandTotal decimal.Decimal, currency string) (*payments.Reservation, error)
	AttachMetadata(ctx context.Context, clientSecret string, md payments.Metadata) error
}

type ServiceParams struct {
	Bags           sessionBags
	Products       bag.ProductLookup
	Pricing        PricingSource
	Bridge         paymentBridge
	PublishableKey string
	Materializer   *Materializer
	Orders         orders.Repository
	Profiles       *profiles.Repository
	Logger         *logger.Logger
}

// Service orchestrates the checkout page, form submission and the success
// step.
type Service struct {
	bags           sessionBags
	products       bag.ProductLookup
	pricing        PricingSource
	bridge         paymentBridge
	publishableKey string
	materializer   *Materializer
	orders         orders.Repository
	profiles       *profiles.Repository
	logg           *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Bags == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "bag store required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product lookup required")
	}
	if params.Pricing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "pricing source required")
	}
	if params.Bridge == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment bridge required")
	}
	if params.Materializer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order materializer required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Profiles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "profiles repository required")
	}
	return &Service{
		bags:           params.Bags,
		products:       params.Products,
		pricing:        params.Pricing,
		bridge:         params.Bridge,
		publishableKey: params.PublishableKey,
		materializer:   params.Materializer,
		orders:         params.Orders,
		profiles:       params.Profiles,
		logg:           params.Logger,
	}, nil
}

// Prepared is the data behind the checkout page. ClientSecret is empty when
// no payment could be reserved; the page then tells the customer payment is
// unavailable.
type Prepared struct {
	Summary          *bag.Summary                `json:"summary"`
	ClientSecret     string                      `json:"client_secret"`
	PublishableKey   string                      `json:"publishable_key"`
	PaymentAvailable bool                        `json:"payment_available"`
	Prefill          pkgcheckout.CustomerDetails `json:"prefill"`
}

// Prepare prices the bag, reserves the grand total with the processor and
// prefills the form from the customer's saved delivery details.
func (s *Service) Prepare(ctx context.Context, sessionID, username string) (*Prepared, error) {
	b, err := s.bags.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if b.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "There's nothing in your bag at the moment")
	}
	pricing, err := s.pricing.Pricing(ctx)
	if err != nil {
		return nil, err
	}
	summary, err := bag.Summarize(ctx, b, s.products, pricing)
	if err != nil {
		return nil, err
	}

	prepared := &Prepared{
		Summary:        summary,
		PublishableKey: s.publishableKey,
	}
	if summary.GrandTotal.IsPositive() && s.bridge.Available() {
		reservation, err := s.bridge.Reserve(ctx, summary.GrandTotal, pricing.Currency)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payment reservation unavailable")
		} else {
			prepared.ClientSecret = reservation.ClientSecret
			prepared.PaymentAvailable = reservation.ClientSecret != ""
		}
	}

	if username = strings.TrimSpace(username); username != "" {
		prefill, err := s.prefill(ctx, username)
		if err != nil {
			return nil, err
		}
		prepared.Prefill = prefill
	}
	return prepared, nil
}

func (s *Service) prefill(ctx context.Context, username string) (pkgcheckout.CustomerDetails, error) {
	profile, err := s.profiles.FindByUsername(ctx, username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgcheckout.CustomerDetails{}, nil
	}
	if err != nil {
		return pkgcheckout.CustomerDetails{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	return pkgcheckout.CustomerDetails{
		PhoneNumber:    deref(profile.DefaultPhoneNumber),
		Country:        deref(profile.DefaultCountry),
		Postcode:       deref(profile.DefaultPostcode),
		TownOrCity:     deref(profile.DefaultTownOrCity),
		StreetAddress1: deref(profile.DefaultStreetAddress1),
		StreetAddress2: deref(profile.DefaultStreetAddress2),
		County:         deref(profile.DefaultCounty),
	}, nil
}

// CacheCheckoutData attaches the bag snapshot, the save-info flag and the
// username to the payment intent behind clientSecret.
func (s *Service) CacheCheckoutData(ctx context.Context, sessionID, username, clientSecret string, saveInfo bool) error {
	b, err := s.bags.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	snapshot, err := b.Snapshot()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "serialize bag")
	}
	return s.bridge.AttachMetadata(ctx, clientSecret, payments.Metadata{
		Bag:      snapshot,
		SaveInfo: saveInfo,
		Username: username,
	})
}

// SubmitInput is the checkout form plus the payment credential.
type SubmitInput struct {
	Customer     pkgcheckout.CustomerDetails
	ClientSecret string
}

// Submit materializes the session's bag into an order. The bag is cleared
// only once the order is committed; on any failure it is left untouched.
func (s *Service) Submit(ctx context.Context, sessionID, username string, input SubmitInput) (*models.Order, error) {
	customer := input.Customer
	if err := pkgcheckout.ValidateCustomer(&customer); err != nil {
		return nil, err
	}
	reference, err := payments.PaymentReferenceFromClientSecret(input.ClientSecret)
	if err != nil {
		return nil, err
	}
	b, err := s.bags.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	pricing, err := s.pricing.Pricing(ctx)
	if err != nil {
		return nil, err
	}

	order, err := s.materializer.Materialize(ctx, MaterializeInput{
		Customer:         customer,
		Bag:              b,
		PaymentReference: reference,
		Pricing:          pricing,
		Actor:            actorFor(username),
		Source:           payloads.SourceCheckout,
	})
	if err != nil {
		return nil, err
	}

	s.clearBag(ctx, sessionID)
	return order, nil
}

// Complete is the success step: it links the order to the signed-in
// customer, saves their delivery details when asked, and clears the bag.
func (s *Service) Complete(ctx context.Context, sessionID, username, orderNumber string, saveInfo bool) (*models.Order, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := s.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, orderNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	username = strings.TrimSpace(username)
	if username == "" {
		if order.UserProfileID != nil {
			return nil, orderNotFound()
		}
	} else {
		profile, err := s.profiles.GetOrCreate(ctx, username)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
		}
		if order.UserProfileID != nil && *order.UserProfileID != profile.ID {
			return nil, orderNotFound()
		}
		attached, err := s.orders.AttachProfile(ctx, order.ID, profile.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach order to profile")
		}
		if !attached {
			return nil, orderNotFound()
		}
		order.UserProfileID = &profile.ID
		if saveInfo {
			if err := s.profiles.UpdateDefaults(ctx, profile, profiles.FromOrder(order)); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save delivery details")
			}
		}
	}

	if sessionID != "" {
		s.clearBag(ctx, sessionID)
	}
	return order, nil
}

// clearBag runs after the order is committed, so a failure is logged rather
// than surfaced.
func (s *Service) clearBag(ctx context.Context, sessionID string) {
	if err := s.bags.Clear(ctx, sessionID); err != nil {
		s.logg.Error(s.logg.WithSessionID(ctx, sessionID), "clear bag after checkout", err)
	}
}

// orderNotFound hides orders owned by someone else behind the same answer
// as a missing order number.
func orderNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func actorFor(username string) *outbox.ActorRef {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil
	}
	return &outbox.ActorRef{Username: username}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
