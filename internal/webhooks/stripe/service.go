package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/little-explorers/storefront/internal/bag"
	"github.com/little-explorers/storefront/internal/checkout"
	"github.com/little-explorers/storefront/internal/orders"
	"github.com/little-explorers/storefront/internal/payments"
	"github.com/little-explorers/storefront/internal/profiles"
	pkgcheckout "github.com/little-explorers/storefront/pkg/checkout"
	"github.com/little-explorers/storefront/pkg/db/models"
	"github.com/little-explorers/storefront/pkg/enums"
	pkgerrors "github.com/little-explorers/storefront/pkg/errors"
	"github.com/little-explorers/storefront/pkg/logger"
	"github.com/little-explorers/storefront/pkg/metrics"
	"github.com/little-explorers/storefront/pkg/money"
	"github.com/little-explorers/storefront/pkg/outbox"
	"github.com/little-explorers/storefront/pkg/outbox/payloads"
)

const (
	defaultLookupAttempts = 5
	defaultLookupDelay    = time.Second
)

// Webhook outcomes recorded in metrics.
const (
	outcomeReconciled   = "reconciled"
	outcomeMaterialized = "materialized"
	outcomeAlreadyPaid  = "already_paid"
	outcomeFailed       = "payment_failed"
	outcomeUnknownOrder = "unknown_order"
	outcomeIgnored      = "ignored"
	outcomeError        = "error"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type intentLookup interface {
	Lookup(ctx context.Context, reference string) (*stripe.PaymentIntent, error)
}

// PricingSource resolves the delivery rules used when an order has to be
// rebuilt from intent metadata.
type PricingSource interface {
	Pricing(ctx context.Context) (money.Pricing, error)
}

type ServiceParams struct {
	Orders            orders.Repository
	TransactionRunner txRunner
	Materializer      *checkout.Materializer
	Profiles          *profiles.Repository
	Pricing           PricingSource
	Intents           intentLookup
	Outbox            outboxPublisher
	Metrics           *metrics.Storefront
	Logger            *logger.Logger
	LookupAttempts    int
	LookupDelay       time.Duration
}

// Service reconciles payment processor events with stored orders.
type Service struct {
	orders         orders.Repository
	txRunner       txRunner
	materializer   *checkout.Materializer
	profiles       *profiles.Repository
	pricing        PricingSource
	intents        intentLookup
	outbox         outboxPublisher
	metrics        *metrics.Storefront
	logg           *logger.Logger
	lookupAttempts int
	lookupDelay    time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Materializer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order materializer required")
	}
	if params.Profiles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "profile repository required")
	}
	if params.Pricing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "pricing source required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox publisher required")
	}
	attempts := params.LookupAttempts
	if attempts <= 0 {
		attempts = defaultLookupAttempts
	}
	delay := params.LookupDelay
	if delay < 0 {
		delay = defaultLookupDelay
	}
	return &Service{
		orders:         params.Orders,
		txRunner:       params.TransactionRunner,
		materializer:   params.Materializer,
		profiles:       params.Profiles,
		pricing:        params.Pricing,
		intents:        params.Intents,
		outbox:         params.Outbox,
		metrics:        params.Metrics,
		logg:           params.Logger,
		lookupAttempts: attempts,
		lookupDelay:    delay,
		sleep:          sleepContext,
	}, nil
}

// HandleEvent applies one verified event. A returned error means the event
// was not applied and the processor should deliver it again.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"stripe_event_id":   event.ID,
		"stripe_event_type": string(event.Type),
	})

	var (
		outcome string
		err     error
	)
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeBadSignature, err, "decode payment intent")
		}
		outcome, err = s.handleSucceeded(ctx, &intent)
	case stripe.EventTypePaymentIntentPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeBadSignature, err, "decode payment intent")
		}
		outcome, err = s.handleFailed(ctx, &intent)
	default:
		outcome = outcomeIgnored
		s.logg.Debug(ctx, "stripe event ignored")
	}

	if err != nil {
		s.metrics.WebhookEvent(string(event.Type), outcomeError)
		return err
	}
	s.metrics.WebhookEvent(string(event.Type), outcome)
	return nil
}

// ReconcileIntent applies the current state of an intent fetched from the
// processor. It backs up deliveries the webhook never received.
func (s *Service) ReconcileIntent(ctx context.Context, intent *stripe.PaymentIntent) (string, error) {
	if intent == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment intent required")
	}
	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return s.handleSucceeded(ctx, intent)
	case stripe.PaymentIntentStatusCanceled, stripe.PaymentIntentStatusRequiresPaymentMethod:
		return s.handleFailed(ctx, intent)
	default:
		return outcomeIgnored, nil
	}
}

func (s *Service) handleSucceeded(ctx context.Context, intent *stripe.PaymentIntent) (string, error) {
	reference := strings.TrimSpace(intent.ID)
	if reference == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	ctx = s.logg.WithField(ctx, "payment_reference", reference)

	order, err := s.awaitOrder(ctx, reference)
	if err != nil {
		return "", err
	}

	outcome := outcomeReconciled
	if order == nil {
		order, err = s.materialize(ctx, intent)
		if err != nil {
			return "", err
		}
		outcome = outcomeMaterialized
	}

	if order.PaymentStatus == enums.PaymentStatusPaid {
		return outcomeAlreadyPaid, nil
	}
	if err := s.recordPayment(ctx, order, enums.PaymentStatusPaid, ""); err != nil {
		return "", err
	}
	s.logg.Info(s.logg.WithOrderNumber(ctx, order.OrderNumber), "order payment confirmed")
	return outcome, nil
}

func (s *Service) handleFailed(ctx context.Context, intent *stripe.PaymentIntent) (string, error) {
	reference := strings.TrimSpace(intent.ID)
	if reference == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	order, err := s.orders.FindByPaymentReference(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Info(s.logg.WithField(ctx, "payment_reference", reference), "payment failed before an order was stored")
			return outcomeUnknownOrder, nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order by payment reference")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return outcomeAlreadyPaid, nil
	}

	message := ""
	if intent.LastPaymentError != nil {
		message = intent.LastPaymentError.Msg
	}
	if err := s.recordPayment(ctx, order, enums.PaymentStatusFailed, message); err != nil {
		return "", err
	}
	s.logg.Warn(s.logg.WithOrderNumber(ctx, order.OrderNumber), "order payment failed")
	return outcomeFailed, nil
}

// awaitOrder polls for the order the checkout form may still be writing.
// It returns nil when every attempt missed.
func (s *Service) awaitOrder(ctx context.Context, reference string) (*models.Order, error) {
	for attempt := 1; attempt <= s.lookupAttempts; attempt++ {
		order, err := s.orders.FindByPaymentReference(ctx, reference)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order by payment reference")
		}
		if attempt == s.lookupAttempts {
			break
		}
		if err := s.sleep(ctx, s.lookupDelay); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "wait for order")
		}
	}
	return nil, nil
}

// materialize rebuilds the order from the bag and customer markers cached on
// the intent during checkout.
func (s *Service) materialize(ctx context.Context, intent *stripe.PaymentIntent) (*models.Order, error) {
	md := payments.ParseMetadata(intent.Metadata)
	if strings.TrimSpace(md.Bag) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent carries no bag")
	}
	b := bag.New()
	if err := json.Unmarshal([]byte(md.Bag), b); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode bag metadata")
	}

	customer, err := s.customerFor(ctx, intent)
	if err != nil {
		return nil, err
	}
	pricing, err := s.pricing.Pricing(ctx)
	if err != nil {
		return nil, err
	}

	var (
		profile   *models.UserProfile
		profileID *uuid.UUID
		actor     *outbox.ActorRef
	)
	if md.Username != "" {
		profile, err = s.profiles.GetOrCreate(ctx, md.Username)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
		}
		profileID = &profile.ID
		actor = &outbox.ActorRef{Username: md.Username}
	}

	order, err := s.materializer.Materialize(ctx, checkout.MaterializeInput{
		Customer:         customer,
		Bag:              b,
		PaymentReference: intent.ID,
		Pricing:          pricing,
		ProfileID:        profileID,
		Actor:            actor,
		Source:           payloads.SourceWebhook,
	})
	if err != nil {
		return nil, err
	}

	if profile != nil && md.SaveInfo {
		if err := s.profiles.UpdateDefaults(ctx, profile, profiles.FromOrder(order)); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save delivery details")
		}
	}
	return order, nil
}

// customerFor reads delivery details from the intent's shipping block and
// the email from the receipt address or the charge's billing details.
func (s *Service) customerFor(ctx context.Context, intent *stripe.PaymentIntent) (pkgcheckout.CustomerDetails, error) {
	var customer pkgcheckout.CustomerDetails
	if shipping := intent.Shipping; shipping != nil {
		customer.FullName = shipping.Name
		customer.PhoneNumber = shipping.Phone
		if addr := shipping.Address; addr != nil {
			customer.Country = addr.Country
			customer.Postcode = addr.PostalCode
			customer.TownOrCity = addr.City
			customer.StreetAddress1 = addr.Line1
			customer.StreetAddress2 = addr.Line2
			customer.County = addr.State
		}
	}

	customer.Email = intent.ReceiptEmail
	if customer.Email == "" {
		billing := billingDetails(intent)
		if billing == nil && s.intents != nil {
			full, err := s.intents.Lookup(ctx, intent.ID)
			if err != nil {
				return customer, err
			}
			billing = billingDetails(full)
		}
		if billing != nil {
			customer.Email = billing.Email
			if customer.FullName == "" {
				customer.FullName = billing.Name
			}
			if customer.PhoneNumber == "" {
				customer.PhoneNumber = billing.Phone
			}
		}
	}
	return customer, nil
}

func billingDetails(intent *stripe.PaymentIntent) *stripe.ChargeBillingDetails {
	if intent == nil || intent.LatestCharge == nil || intent.LatestCharge.BillingDetails == nil {
		return nil
	}
	return intent.LatestCharge.BillingDetails
}

func (s *Service) recordPayment(ctx context.Context, order *models.Order, status enums.PaymentStatus, failure string) error {
	eventType := enums.EventOrderPaid
	if status == enums.PaymentStatusFailed {
		eventType = enums.EventOrderPaymentFailed
	}
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).SetPaymentStatus(ctx, order.ID, status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderPaymentEvent{
				OrderID:          order.ID,
				OrderNumber:      order.OrderNumber,
				Email:            order.Email,
				PaymentReference: order.PaymentReference,
				Status:           string(status),
				FailureMessage:   failure,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment event")
		}
		return nil
	})
	if err != nil {
		return err
	}
	order.PaymentStatus = status
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
