package payments

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/little-explorers/storefront/pkg/errors"
	"github.com/little-explorers/storefront/pkg/logger"
	"github.com/little-explorers/storefront/pkg/metrics"
	"github.com/little-explorers/storefront/pkg/money"
	pkgstripe "github.com/little-explorers/storefront/pkg/stripe"
)

// Metadata keys written on the payment intent while the customer fills the
// checkout form.
const (
	MetadataBag      = "bag"
	MetadataSaveInfo = "save_info"
	MetadataUsername = "username"

	// GuestUsername marks intents created by customers who are not signed in.
	GuestUsername = "anonymous"

	defaultTimeout = 10 * time.Second
)

type BridgeParams struct {
	Intents pkgstripe.PaymentIntents
	Timeout time.Duration
	Metrics *metrics.Storefront
	Logger  *logger.Logger
}

// Bridge talks to the payment processor on behalf of checkout. A Bridge
// without an intents client reports itself unavailable.
type Bridge struct {
	intents pkgstripe.PaymentIntents
	timeout time.Duration
	metrics *metrics.Storefront
	logg    *logger.Logger
}

func NewBridge(params BridgeParams) *Bridge {
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Bridge{
		intents: params.Intents,
		timeout: timeout,
		metrics: params.Metrics,
		logg:    params.Logger,
	}
}

func (b *Bridge) Available() bool {
	return b != nil && b.intents != nil
}

// Reservation is the processor's hold for a checkout amount.
type Reservation struct {
	ClientSecret string `json:"client_secret"`
	Reference    string `json:"-"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// Reserve creates a payment intent for grandTotal in minor units.
func (b *Bridge) Reserve(ctx context.Context, grandTotal decimal.Decimal, currency string) (*Reservation, error) {
	if !b.Available() {
		return nil, pkgerrors.New(pkgerrors.CodePayment, "payment processor not configured")
	}
	amount := money.ToMinorUnits(grandTotal)
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	currency = money.NormalizeCurrency(currency)

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	intent, err := b.intents.Create(callCtx, &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	})
	if err != nil {
		return nil, b.processorError(ctx, "create", err)
	}
	return &Reservation{
		ClientSecret: intent.ClientSecret,
		Reference:    intent.ID,
		Amount:       amount,
		Currency:     currency,
	}, nil
}

// Metadata is attached to an existing intent so the webhook can rebuild the
// order if the browser never submits the form.
type Metadata struct {
	Bag      string
	SaveInfo bool
	Username string
}

func (m Metadata) values() map[string]string {
	username := strings.TrimSpace(m.Username)
	if username == "" {
		username = GuestUsername
	}
	return map[string]string{
		MetadataBag:      m.Bag,
		MetadataSaveInfo: strconv.FormatBool(m.SaveInfo),
		MetadataUsername: username,
	}
}

// ParseMetadata reads the values written by AttachMetadata.
func ParseMetadata(values map[string]string) Metadata {
	saveInfo, _ := strconv.ParseBool(values[MetadataSaveInfo])
	username := values[MetadataUsername]
	if username == GuestUsername {
		username = ""
	}
	return Metadata{
		Bag:      values[MetadataBag],
		SaveInfo: saveInfo,
		Username: username,
	}
}

// AttachMetadata writes the bag snapshot and customer markers on the intent
// identified by clientSecret.
func (b *Bridge) AttachMetadata(ctx context.Context, clientSecret string, md Metadata) error {
	reference, err := PaymentReferenceFromClientSecret(clientSecret)
	if err != nil {
		return err
	}
	if !b.Available() {
		return pkgerrors.New(pkgerrors.CodePayment, "payment processor not configured")
	}

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	for k, v := range md.values() {
		params.AddMetadata(k, v)
	}
	if _, err := b.intents.Update(callCtx, reference, params); err != nil {
		return b.processorError(ctx, "update", err)
	}
	return nil
}

// Lookup fetches an intent with its latest charge expanded.
func (b *Bridge) Lookup(ctx context.Context, reference string) (*stripe.PaymentIntent, error) {
	if !b.Available() {
		return nil, pkgerrors.New(pkgerrors.CodePayment, "payment processor not configured")
	}
	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.AddExpand("latest_charge")
	intent, err := b.intents.Get(callCtx, reference, params)
	if err != nil {
		return nil, b.processorError(ctx, "get", err)
	}
	return intent, nil
}

// PaymentReferenceFromClientSecret returns the intent id, the part of the
// client secret before "_secret".
func PaymentReferenceFromClientSecret(clientSecret string) (string, error) {
	secret := strings.TrimSpace(clientSecret)
	reference, _, found := strings.Cut(secret, "_secret")
	if !found || reference == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid client secret").WithDetails(map[string]string{
			"client_secret": "is invalid",
		})
	}
	return reference, nil
}

func (b *Bridge) processorError(ctx context.Context, op string, err error) error {
	b.metrics.PaymentFailure(op)
	logCtx := b.logg.WithField(ctx, "op", op)
	if errors.Is(err, context.DeadlineExceeded) {
		logCtx = b.logg.WithField(logCtx, "timeout", b.timeout.String())
	}
	b.logg.Error(logCtx, "payment processor call failed", err)
	return pkgerrors.Wrap(pkgerrors.CodePayment, err, "payment processor call failed")
}
